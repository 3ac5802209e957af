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

// Package version implements Maven's version ordering rules
// (https://maven.apache.org/pom.html#Version_Order_Specification).
//
// A Version is a sequence of segments. The separators "." and "-" both
// start a new segment, but a "-" marks the start of a less-significant
// sub-list: "1-a" sorts before "1.a" because the "-" boundary is weaker
// than a plain continuation of the same list.
package version

import (
	"math/big"
	"strings"
)

type segmentKind int

const (
	kindNumeric segmentKind = iota
	kindQualifier
)

// segment is one component of a parsed Version.
type segment struct {
	// sep is the separator that preceded this segment: 0 for the first
	// segment of a version, otherwise '.' or '-'.
	sep byte
	// str holds the lowercased, canonicalised qualifier text. Unused for
	// numeric segments.
	str string
	// num is set for numeric segments: an arbitrary-precision,
	// non-negative integer.
	num *big.Int
}

func (s segment) kind() segmentKind {
	if s.num != nil {
		return kindNumeric
	}
	return kindQualifier
}

func (s segment) isZero() bool {
	if s.num != nil {
		return s.num.Sign() == 0
	}
	return qualifierRank[s.str] == 0
}

// Version is a parsed, comparable Maven version string.
type Version struct {
	raw   string
	elems []segment
}

// String returns the original, unparsed version string.
func (v Version) String() string { return v.raw }

// qualifierRank assigns well-known qualifiers a fixed rank relative to a
// plain release, which always ranks 0. Qualifiers absent from this table
// are "unknown" and sort above every ranked qualifier, including the
// release rank.
var qualifierRank = map[string]int{
	"alpha":     -5,
	"beta":      -4,
	"milestone": -3,
	"rc":        -2,
	"cr":        -2, // Maven treats "cr" as a synonym for "rc".
	"snapshot":  -1,
	"":          0,
	"release":   0,
	"final":     0,
	"ga":        0,
	"sp":        1,
}

func category(s string) segmentKind {
	if len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
		return kindNumeric
	}
	return kindQualifier
}

// Parse tokenises a Maven version string into a Version.
//
// "." and "-" both introduce a new segment; within a run between
// separators, a transition between digits and non-digits also starts a
// new segment (so "1.0rc1" tokenises as "1", "0", "rc", "1"). Numeric runs
// become arbitrary-precision numeric segments; non-numeric runs are
// lowercased and become qualifier segments, with the single-letter
// shortcuts "a", "b" and "m" expanded to "alpha", "beta" and "milestone".
func Parse(s string) Version {
	input := strings.ToLower(s)

	var elems []segment
	pendingSep := byte(0)
	first := true
	for i := 0; i < len(input); {
		c := input[i]
		if c == '.' || c == '-' {
			pendingSep = c
			i++
			continue
		}
		start := i
		kind := category(input[i:])
		for i < len(input) && input[i] != '.' && input[i] != '-' && category(input[i:]) == kind {
			i++
		}
		str := input[start:i]

		e := segment{sep: effectiveSep(pendingSep, first)}
		if kind == kindNumeric {
			n := new(big.Int)
			n.SetString(str, 10)
			e.num = n
		} else {
			e.str = expandShortcut(str)
		}
		elems = append(elems, e)
		pendingSep = 0
		first = false
	}

	return Version{raw: s, elems: elems}
}

// effectiveSep picks the separator recorded for a segment: the first
// segment of a version carries no separator; every other segment defaults
// to "-" when no explicit "." or "-" preceded it (this happens at an
// implicit digit/qualifier boundary, e.g. the "rc" in "1rc1").
func effectiveSep(sep byte, first bool) byte {
	if first {
		return 0
	}
	if sep == 0 {
		return '-'
	}
	return sep
}

// expandShortcut applies Maven's well-known single-letter qualifier
// shortcuts.
func expandShortcut(str string) string {
	switch str {
	case "a":
		return "alpha"
	case "b":
		return "beta"
	case "m":
		return "milestone"
	}
	return str
}

// zero returns the padding segment substituted for a missing position
// when one version has fewer segments than the other. Which zero to use
// depends on the separator that would have introduced the missing
// segment: a "-" boundary pads with the empty (release-rank) qualifier, a
// "." boundary pads with numeric 0.
func zero(sep byte) segment {
	if sep == '-' {
		return segment{sep: '-', str: ""}
	}
	return segment{sep: '.', num: big.NewInt(0)}
}

// Compare returns -1, 0 or 1 according to whether a orders before, the
// same as, or after b.
func Compare(a, b Version) int {
	n := len(a.elems)
	if len(b.elems) > n {
		n = len(b.elems)
	}
	for i := 0; i < n; i++ {
		x, xOK := at(a.elems, i)
		y, yOK := at(b.elems, i)
		if !xOK {
			x = zero(y.sep)
		}
		if !yOK {
			y = zero(x.sep)
		}
		if c := compareSegments(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func at(elems []segment, i int) (segment, bool) {
	if i < len(elems) {
		return elems[i], true
	}
	return segment{}, false
}

// compareSegments orders two segments found at the same position.
func compareSegments(x, y segment) int {
	xNum, yNum := x.kind() == kindNumeric, y.kind() == kindNumeric
	if xNum != yNum {
		// A non-zero numeric segment always outranks a qualifier; a zero
		// numeric segment is compared as if it were the empty qualifier.
		if xNum {
			if !x.isZero() {
				return 1
			}
			return compareQualifiers("", y.str)
		}
		if !y.isZero() {
			return -1
		}
		return compareQualifiers(x.str, "")
	}
	if xNum {
		if c := x.num.Cmp(y.num); c != 0 {
			return c
		}
		return sepOrder(x.sep, y.sep)
	}
	if c := compareQualifiers(x.str, y.str); c != 0 {
		return c
	}
	return sepOrder(x.sep, y.sep)
}

// sepOrder breaks ties between equal-valued segments introduced by
// different separators. A "-" boundary (starting a weaker sub-list)
// sorts before a "." boundary (continuing the current list) at the same
// position: this is what makes "1-a" order before "1.a", and "1-1"
// order before "1.1".
func sepOrder(a, b byte) int {
	switch {
	case a == b:
		return 0
	case a == '-':
		return -1
	case b == '-':
		return 1
	default:
		return 0
	}
}

// compareQualifiers orders two qualifier strings using the well-known
// rank table, falling back to lexical order for unrecognised qualifiers
// (which always sort above every ranked qualifier, including "release").
func compareQualifiers(a, b string) int {
	ra, aKnown := qualifierRank[a]
	rb, bKnown := qualifierRank[b]
	switch {
	case aKnown && bKnown:
		return sgn(ra - rb)
	case aKnown && !bKnown:
		return -1
	case !aKnown && bKnown:
		return 1
	default:
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
}

func sgn(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b compare equal.
func Equal(a, b Version) bool { return Compare(a, b) == 0 }

// Less reports whether a orders strictly before b.
func Less(a, b Version) bool { return Compare(a, b) < 0 }
