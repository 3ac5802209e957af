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

package pom

import (
	"encoding/xml"
	"strings"
)

// String is a POM text field. UnmarshalXML trims surrounding whitespace,
// which real-world POMs frequently include around element text.
type String string

func (s *String) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var str string
	if err := d.DecodeElement(&str, &start); err != nil {
		return err
	}
	*s = String(strings.TrimSpace(str))
	return nil
}

// merge fills s from parent if s is unset.
func (s *String) merge(parent String) {
	if *s == "" {
		*s = parent
	}
}

// interpolate resolves every "${key}" placeholder in s against dictionary,
// returning whether every placeholder was resolved.
func (s *String) interpolate(dictionary map[string]string) bool {
	result, ok := interpolate(string(*s), dictionary, nil, 0)
	*s = String(result)
	return ok
}

// defaultingBool is a POM text field holding "true"/"false"/"" with a
// configurable default, following the teacher's BoolString pattern but
// made concrete for the default the data model needs: dependency
// optionality (default false).
type defaultingBool struct {
	raw          String
	defaultValue bool
}

func (b *defaultingBool) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return b.raw.UnmarshalXML(d, start)
}

func (b *defaultingBool) interpolate(dictionary map[string]string) bool {
	return b.raw.interpolate(dictionary)
}

// Value resolves the field to a concrete bool, honouring the default when
// the element was absent or empty.
func (b defaultingBool) Value() bool {
	s := strings.ToLower(strings.TrimSpace(string(b.raw)))
	switch s {
	case "true":
		return true
	case "false":
		return false
	default:
		return b.defaultValue
	}
}

// FalsyBool is a bool-valued POM field that defaults to false when absent
// (e.g. <optional>).
type FalsyBool struct{ defaultingBool }

func (b *FalsyBool) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	b.defaultValue = false
	return b.defaultingBool.UnmarshalXML(d, start)
}

// Equal compares two FalsyBool values by their raw text, so tests using
// go-cmp can compare structs embedding it without tripping over
// defaultingBool's unexported fields.
func (b FalsyBool) Equal(other FalsyBool) bool { return b.raw == other.raw }

// maxPropertyDepth bounds the recursion interpolate performs when
// resolving a chain of properties that reference each other, guarding
// against pathological self-referential definitions per the design note
// recommending a safety cap (here, a recursion-depth cap rather than a
// repeated-pass count, since each placeholder is resolved by recursive
// descent into the properties it references).
const maxPropertyDepth = 32

// interpolate replaces every "${key}" in s using dictionary, recursing
// into referenced values so that chains of property references resolve in
// one top-level call. resolving tracks keys currently being expanded, to
// detect a reference cycle; depth bounds recursion. Unresolved
// placeholders (undefined key, cycle, or depth exceeded) are left intact
// in the output and ok is false.
func interpolate(s string, dictionary map[string]string, resolving map[string]bool, depth int) (result string, ok bool) {
	if depth > maxPropertyDepth {
		return s, false
	}
	resolved := true
	var out strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			break
		}
		j := strings.Index(s[i:], "}")
		if j < 0 {
			break
		}
		out.WriteString(s[:i])
		key := s[i+2 : i+j]
		if resolving[key] {
			resolved = false
			out.WriteString(s[i : i+j+1])
			s = s[i+j+1:]
			continue
		}
		value, found := dictionary[key]
		if !found {
			resolved = false
			out.WriteString(s[i : i+j+1])
			s = s[i+j+1:]
			continue
		}
		if resolving == nil {
			resolving = make(map[string]bool)
		}
		resolving[key] = true
		expanded, subOK := interpolate(value, dictionary, resolving, depth+1)
		resolving[key] = false
		if !subOK {
			resolved = false
		}
		out.WriteString(expanded)
		s = s[i+j+1:]
	}
	out.WriteString(s)
	return out.String(), resolved
}
