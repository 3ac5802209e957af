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

// maxManagedImports bounds the number of import-scope BOM expansions a
// single effective-POM computation will perform, guarding against a
// pathological or cyclic chain of imported BOMs. Named after, and set to
// the same value as, the teacher's MaxImports constant.
const maxManagedImports = 300

// BOMFetcher resolves an import-scope BOM dependency (scope=import,
// type=pom) to its own DependencyManagement, so that it can be expanded
// into the importing POM's managed dependencies. The resolver supplies an
// implementation backed by its normal fetch-and-parse path.
type BOMFetcher func(groupID, artifactID, version string) (DependencyManagement, error)

// UnresolvedProperty records a "${...}" reference that property
// substitution could not resolve.
type UnresolvedProperty struct {
	Field      string
	Expression string
}

// Interpolate resolves every "${key}" placeholder across the POM's
// interpolatable fields (coordinate, packaging, dependency entries, license
// URLs/names) against dictionary; the parent reference is not interpolated. It returns the list of fields where a
// placeholder could not be resolved; those fields retain the literal
// "${...}" text, per spec.
func (p *Project) Interpolate(dictionary map[string]string) []UnresolvedProperty {
	var unresolved []UnresolvedProperty
	note := func(field string, ok bool, value String) {
		if !ok {
			unresolved = append(unresolved, UnresolvedProperty{Field: field, Expression: string(value)})
		}
	}

	note("groupId", p.GroupID.interpolate(dictionary), p.GroupID)
	note("artifactId", p.ArtifactID.interpolate(dictionary), p.ArtifactID)
	note("version", p.Version.interpolate(dictionary), p.Version)
	note("packaging", p.Packaging.interpolate(dictionary), p.Packaging)

	for i := range p.Licenses {
		note("license.name", p.Licenses[i].Name.interpolate(dictionary), p.Licenses[i].Name)
		note("license.url", p.Licenses[i].URL.interpolate(dictionary), p.Licenses[i].URL)
	}
	for i := range p.DependencyManagement.Dependencies {
		unresolved = append(unresolved, interpolateDependency(&p.DependencyManagement.Dependencies[i], dictionary, "dependencyManagement")...)
	}
	for i := range p.Dependencies {
		unresolved = append(unresolved, interpolateDependency(&p.Dependencies[i], dictionary, "dependencies")...)
	}
	return unresolved
}

func interpolateDependency(d *Dependency, dictionary map[string]string, prefix string) []UnresolvedProperty {
	var unresolved []UnresolvedProperty
	fields := []struct {
		name  string
		field *String
	}{
		{"groupId", &d.GroupID},
		{"artifactId", &d.ArtifactID},
		{"version", &d.Version},
		{"type", &d.Type},
		{"classifier", &d.Classifier},
		{"scope", &d.Scope},
	}
	for _, f := range fields {
		if !f.field.interpolate(dictionary) {
			unresolved = append(unresolved, UnresolvedProperty{Field: prefix + "." + f.name, Expression: string(*f.field)})
		}
	}
	return unresolved
}

// ExpandImports walks p's dependencyManagement, resolving every
// scope=import, type=pom entry through fetch and splicing its managed
// dependencies in ahead of the remaining entries (so entries declared
// earlier in the importing POM still take precedence, matching Maven's
// declaration-order-wins rule for dependencyManagement). Expansion is
// capped at maxManagedImports total imports resolved, across the whole
// (possibly nested) chain, to guard against a cyclic or runaway BOM graph.
func (p *Project) ExpandImports(fetch BOMFetcher) error {
	budget := maxManagedImports
	expanded, err := expandImports(p.DependencyManagement.Dependencies, fetch, &budget)
	if err != nil {
		return err
	}
	p.DependencyManagement.Dependencies = expanded
	return nil
}

func expandImports(deps []Dependency, fetch BOMFetcher, budget *int) ([]Dependency, error) {
	var out []Dependency
	for _, d := range deps {
		if d.EffectiveScope() != "import" || d.EffectiveType() != "pom" {
			out = append(out, d)
			continue
		}
		if *budget <= 0 {
			continue
		}
		*budget--
		imported, err := fetch(string(d.GroupID), string(d.ArtifactID), string(d.Version))
		if err != nil {
			continue
		}
		nested, err := expandImports(imported.Dependencies, fetch, budget)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// EffectiveDependency is a Dependency after dependency-management
// copy-down: its Version/Scope/Exclusions have been filled in from the
// merged dependencyManagement wherever the dependency itself left them
// empty, matching the teacher's ProcessDependencies copy-down rule
// (Optional always takes the dependency's own declared value, never the
// managed one).
type EffectiveDependency struct {
	Dependency
}

// ResolveDependencies applies dependency-management copy-down to p's
// direct dependencies: for each dependency whose own version is empty,
// the managed version (keyed by group/artifact/type/classifier) is
// copied in; likewise scope and exclusions when the dependency leaves
// them unset. p.DependencyManagement should already reflect the merged
// parent chain and any import-scope expansion.
func (p *Project) ResolveDependencies() []EffectiveDependency {
	out := make([]EffectiveDependency, 0, len(p.Dependencies))
	for _, d := range p.Dependencies {
		if managed, ok := p.DependencyManagement.lookup(d.key()); ok {
			if d.Version == "" {
				d.Version = managed.Version
			}
			if d.Scope == "" {
				d.Scope = managed.Scope
			}
			if len(d.Exclusions) == 0 {
				d.Exclusions = managed.Exclusions
			}
		}
		out = append(out, EffectiveDependency{Dependency: d})
	}
	return out
}
