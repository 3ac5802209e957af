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

package problem

import (
	"sync"
	"testing"
)

func TestLedgerDeduplicates(t *testing.T) {
	var l Ledger
	p := Problem{Kind: NotFound, Coordinate: "g:a:1", URL: "https://example/g/a/1/", Message: "missing"}
	l.Add(p)
	l.Add(p)
	l.Add(Problem{Kind: NotFound, Coordinate: "g:a:1", URL: "https://example/g/a/1/", Message: "different message, same key"})
	if got := len(l.All()); got != 1 {
		t.Errorf("expected 1 deduplicated problem, got %d", got)
	}
}

func TestLedgerDistinguishesOnFullKey(t *testing.T) {
	var l Ledger
	l.Add(Problem{Kind: NotFound, Coordinate: "g:a:1"})
	l.Add(Problem{Kind: HTTPError, Coordinate: "g:a:1"})
	l.Add(Problem{Kind: NotFound, Coordinate: "g:b:1"})
	if got := len(l.All()); got != 3 {
		t.Errorf("expected 3 distinct problems, got %d", got)
	}
}

func TestLedgerConcurrentAdd(t *testing.T) {
	var l Ledger
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Add(Problem{Kind: HTTPError, Coordinate: "g:a:1", URL: "u"})
		}(i)
	}
	wg.Wait()
	if got := len(l.All()); got != 1 {
		t.Errorf("expected concurrent identical adds to dedupe to 1, got %d", got)
	}
}

func TestEmpty(t *testing.T) {
	var l Ledger
	if !l.Empty() {
		t.Error("new ledger should be empty")
	}
	l.Add(Problem{Kind: NotFound})
	if l.Empty() {
		t.Error("ledger with a problem should not be empty")
	}
}
