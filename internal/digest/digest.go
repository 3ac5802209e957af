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

// Package digest verifies downloaded artifact bytes against their
// published MD5/SHA-1 digest files.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Kind identifies which hash a digest file carries.
type Kind int

const (
	MD5 Kind = iota
	SHA1
)

func (k Kind) String() string {
	if k == MD5 {
		return "md5"
	}
	return "sha1"
}

// Sum computes the hex digest of data for the given kind.
func Sum(data []byte, kind Kind) string {
	var sum []byte
	switch kind {
	case MD5:
		s := md5.Sum(data)
		sum = s[:]
	case SHA1:
		s := sha1.Sum(data)
		sum = s[:]
	}
	return hex.EncodeToString(sum)
}

// Verify reports whether data's digest matches expectedHex. Comparison is
// case-insensitive and tolerates surrounding whitespace in the published
// digest file (some repositories wrap digest files at 76 characters or
// append a trailing newline).
func Verify(data []byte, kind Kind, expectedHex string) bool {
	want := normalize(expectedHex)
	got := Sum(data, kind)
	return got == want
}

// normalize extracts the hex digest from the raw contents of a published
// .md5/.sha1 file: some repositories publish "<hex>  <filename>" rather
// than a bare hex string.
func normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, " \t"); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToLower(raw)
}
