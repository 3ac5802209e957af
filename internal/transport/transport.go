// Copyright 2024 The mvn2get Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transport implements the resolver's HttpFetcher capability over
// a retrying HTTP client, grounded on the broader pack's reliance on
// hashicorp/go-retryablehttp for resilient outbound HTTP.
package transport

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Fetcher is the capability the resolver and the CLI's key-server lookup
// depend on for outbound HTTP (repoindex declares its own Get-only subset).
type Fetcher interface {
	Get(ctx context.Context, url string) (status int, body []byte, err error)
	Head(ctx context.Context, url string) (status int, err error)
}

// RetryingFetcher is the production Fetcher: bounded retries with
// exponential backoff on transient failures, a configurable per-request
// timeout, and silent logging (go-retryablehttp's own logger is
// suppressed; the resolver's EventSink is the single source of
// user-visible log output).
type RetryingFetcher struct {
	client *retryablehttp.Client
}

// New builds a RetryingFetcher with the given overall per-request timeout
// and maximum retry count.
func New(timeout time.Duration, maxRetries int) *RetryingFetcher {
	c := retryablehttp.NewClient()
	c.RetryMax = maxRetries
	c.HTTPClient.Timeout = timeout
	c.Logger = log.New(io.Discard, "", 0)
	return &RetryingFetcher{client: c}
}

func (f *RetryingFetcher) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (f *RetryingFetcher) Head(ctx context.Context, url string) (int, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
