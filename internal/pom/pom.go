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

// Package pom parses Maven POM files and computes effective POMs: parent
// merge, property substitution, and dependency-management copy-down with
// import-scope BOM expansion.
package pom

import (
	"encoding/xml"
	"fmt"
)

// Parent identifies the POM a Project inherits from.
type Parent struct {
	GroupID      String `xml:"groupId"`
	ArtifactID   String `xml:"artifactId"`
	Version      String `xml:"version"`
	RelativePath String `xml:"relativePath"`
}

// License is a declared licence entry; either field may be empty.
type License struct {
	Name String `xml:"name"`
	URL  String `xml:"url"`
}

// Exclusion names a transitive dependency to suppress.
type Exclusion struct {
	GroupID    String `xml:"groupId"`
	ArtifactID String `xml:"artifactId"`
}

// Dependency is one <dependency> entry, from either <dependencies> or
// <dependencyManagement>/<dependencies>.
type Dependency struct {
	GroupID    String      `xml:"groupId"`
	ArtifactID String      `xml:"artifactId"`
	Version    String      `xml:"version"`
	Type       String      `xml:"type"`
	Classifier String      `xml:"classifier"`
	Scope      String      `xml:"scope"`
	Optional   FalsyBool   `xml:"optional"`
	Exclusions []Exclusion `xml:"exclusions>exclusion"`
}

// EffectiveType returns the dependency's packaging type, defaulting to jar
// as Maven does when the element is absent.
func (d Dependency) EffectiveType() string {
	if d.Type == "" {
		return "jar"
	}
	return string(d.Type)
}

// EffectiveScope returns the dependency's scope, defaulting to compile.
func (d Dependency) EffectiveScope() string {
	if d.Scope == "" {
		return "compile"
	}
	return string(d.Scope)
}

// RecursesInto reports whether this dependency's scope feeds transitive
// recursion (compile, runtime), per spec.md §3. includeDepManagement
// widens this to also admit provided/test/system scopes.
func (d Dependency) RecursesInto(includeDepManagement bool) bool {
	switch d.EffectiveScope() {
	case "compile", "runtime":
		return true
	case "test", "provided", "system":
		return includeDepManagement
	default:
		return false
	}
}

// DependencyKey identifies a dependency for dependency-management lookup and
// exclusion matching, ignoring version and scope.
type DependencyKey struct {
	GroupID    string
	ArtifactID string
	Type       string
	Classifier string
}

func (d Dependency) key() DependencyKey {
	return DependencyKey{
		GroupID:    string(d.GroupID),
		ArtifactID: string(d.ArtifactID),
		Type:       d.EffectiveType(),
		Classifier: string(d.Classifier),
	}
}

// DependencyManagement holds managed dependency entries, keyed implicitly
// by DependencyKey; earlier entries in Dependencies take precedence
// (Maven's "first declaration wins", with merge placing the child's own
// entries first).
type DependencyManagement struct {
	Dependencies []Dependency `xml:"dependencies>dependency"`
}

// merge appends parent's managed entries after this POM's own, so a
// child's own dependencyManagement entry is looked up before the parent's
// when both declare the same key.
func (dm *DependencyManagement) merge(parent DependencyManagement) {
	dm.Dependencies = append(append([]Dependency{}, dm.Dependencies...), parent.Dependencies...)
}

func (dm DependencyManagement) lookup(key DependencyKey) (Dependency, bool) {
	for _, d := range dm.Dependencies {
		if d.key() == key {
			return d, true
		}
	}
	return Dependency{}, false
}

// Property is one <properties> child element: name is the element's tag,
// value is its text content.
type Property struct {
	Name  string
	Value string
}

// Properties is the <properties> block: an arbitrary set of elements,
// each becoming a name/value pair. Grounded on util/maven/properties.go's
// custom UnmarshalXML, since encoding/xml cannot map unknown element names
// to a struct field set declared in advance.
type Properties struct {
	entries []Property
}

func (p *Properties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			p.entries = append(p.entries, Property{Name: t.Name.Local, Value: value})
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

// merge appends parent's properties after this POM's own, so a lookup
// that scans in order finds the child's value first.
func (p *Properties) merge(parent Properties) {
	p.entries = append(append([]Property{}, p.entries...), parent.entries...)
}

func (p Properties) asMap(dst map[string]string) {
	for i := len(p.entries) - 1; i >= 0; i-- {
		dst[p.entries[i].Name] = p.entries[i].Value
	}
}

// Project is a parsed POM document.
type Project struct {
	XMLName              xml.Name             `xml:"project"`
	GroupID              String               `xml:"groupId"`
	ArtifactID           String               `xml:"artifactId"`
	Version              String               `xml:"version"`
	Packaging            String               `xml:"packaging"`
	Parent               Parent               `xml:"parent"`
	Properties           Properties           `xml:"properties"`
	Licenses             []License            `xml:"licenses>license"`
	DependencyManagement DependencyManagement `xml:"dependencyManagement"`
	Dependencies         []Dependency         `xml:"dependencies>dependency"`
}

// Parse decodes a POM document. Unknown elements are ignored and missing
// optional children leave their field zero, per encoding/xml's default
// behaviour.
func Parse(data []byte) (*Project, error) {
	var p Project
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pom: %w", err)
	}
	return &p, nil
}

// EffectivePackaging returns the packaging, defaulting to jar.
func (p *Project) EffectivePackaging() string {
	if p.Packaging == "" {
		return "jar"
	}
	return string(p.Packaging)
}

// HasParent reports whether the POM declares a parent.
func (p *Project) HasParent() bool {
	return p.Parent.GroupID != "" && p.Parent.ArtifactID != ""
}

// MergeParent folds parent's inheritable state into p: groupId/version are
// filled in if p left them empty, licenses are inherited wholesale if p
// declares none, and properties/dependencyManagement are merged with p's
// own entries ahead of the parent's so p's own entries take precedence on
// lookup.
func (p *Project) MergeParent(parent Project) {
	p.GroupID.merge(parent.GroupID)
	p.Version.merge(parent.Version)
	if len(p.Licenses) == 0 {
		p.Licenses = parent.Licenses
	}
	p.Properties.merge(parent.Properties)
	p.DependencyManagement.merge(parent.DependencyManagement)
}

// PropertyMap builds the property dictionary used for substitution:
// explicit <properties> entries plus Maven's built-in project
// self-references, seeded the way the teacher's propertyMap does —
// project.*-prefixed, pom.*-prefixed, and bare forms all resolve to the
// same values, with the explicit <properties> block taking precedence
// over the built-ins on any name collision.
func (p *Project) PropertyMap() map[string]string {
	m := make(map[string]string)
	seed := func(key, value string) {
		if value == "" {
			return
		}
		m[key] = value
		m["project."+key] = value
		m["pom."+key] = value
	}
	seed("groupId", string(p.GroupID))
	seed("artifactId", string(p.ArtifactID))
	seed("version", string(p.Version))
	if p.HasParent() {
		seed("parent.groupId", string(p.Parent.GroupID))
		seed("parent.version", string(p.Parent.Version))
	}
	p.Properties.asMap(m)
	return m
}
