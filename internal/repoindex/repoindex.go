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

// Package repoindex extracts the file listing of a Maven repository
// artifact directory by scraping its HTML directory index.
package repoindex

import (
	"context"
	"strings"

	"golang.org/x/net/html"
)

// ErrNotFound is returned by List when the directory does not exist
// (HTTP 404, or an empty body).
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "repository directory not found" }

// garbageExtensions are link targets real Maven mirrors sometimes emit
// that are never genuine artifact files (double-signed/double-hashed
// digest files produced by buggy repository software).
var garbageExtensions = []string{
	".asc.asc",
	".md5.asc",
	".sha1.asc",
	".asc.asc.md5",
	".asc.asc.sha1",
	".md5.asc.md5",
	".md5.asc.sha1",
	".sha1.asc.md5",
	".sha1.asc.sha1",
}

// Fetcher is the subset of the HTTP transport List needs.
type Fetcher interface {
	Get(ctx context.Context, url string) (status int, body []byte, err error)
}

// List fetches directoryURL and returns the set of filenames it links to,
// per spec: absolute hrefs are accepted only if they share directoryURL's
// prefix (their tail becomes the filename); relative hrefs are taken
// verbatim; everything else is discarded, along with subdirectory links,
// parent-directory links and known garbage extensions.
func List(ctx context.Context, f Fetcher, directoryURL string) (map[string]bool, error) {
	status, body, err := f.Get(ctx, directoryURL)
	if err != nil {
		return nil, err
	}
	if status == 404 || len(body) == 0 {
		return nil, ErrNotFound
	}

	files := make(map[string]bool)
	tokenizer := html.NewTokenizer(strings.NewReader(string(body)))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		token := tokenizer.Token()
		if token.Data != "a" {
			continue
		}
		for _, attr := range token.Attr {
			if attr.Key != "href" {
				continue
			}
			if name, ok := filenameFromHref(attr.Val, directoryURL); ok {
				files[name] = true
			}
		}
	}
	return files, nil
}

func filenameFromHref(href, directoryURL string) (string, bool) {
	href = strings.TrimPrefix(href, ":")
	if href == "" {
		return "", false
	}

	var name string
	if strings.Contains(href, "://") {
		if !strings.HasPrefix(href, directoryURL) {
			return "", false
		}
		name = strings.TrimPrefix(href, directoryURL)
	} else {
		name = href
	}

	if name == "" || name == ".." || strings.HasSuffix(name, "/") {
		return "", false
	}
	for _, ext := range garbageExtensions {
		if strings.HasSuffix(name, ext) {
			return "", false
		}
	}
	return name, true
}
