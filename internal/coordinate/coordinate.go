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

// Package coordinate models Maven artifact coordinates and the repository
// directory layout derived from them.
package coordinate

import (
	"fmt"
	"strings"
)

// Coordinate identifies a single Maven artifact version.
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
	Packaging  string
}

// Key is the identity used for resolver deduplication: classifier and
// packaging do not participate.
type Key struct {
	Group, Artifact, Version string
}

// Key returns the deduplication identity of c.
func (c Coordinate) Key() Key {
	return Key{Group: c.Group, Artifact: c.Artifact, Version: c.Version}
}

// Name returns the "group:artifact" pair Maven tooling conventionally
// prints for diagnostics.
func (c Coordinate) Name() string {
	return fmt.Sprintf("%s:%s", c.Group, c.Artifact)
}

func (c Coordinate) String() string {
	s := c.Name() + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	if c.Packaging != "" {
		s += "@" + c.Packaging
	}
	return s
}

// Validate reports whether c satisfies the data model's non-empty
// constraints on group, artifact and version.
func (c Coordinate) Validate() error {
	if strings.TrimSpace(c.Group) == "" {
		return fmt.Errorf("coordinate %q: group is empty", c)
	}
	if strings.TrimSpace(c.Artifact) == "" {
		return fmt.Errorf("coordinate %q: artifact is empty", c)
	}
	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("coordinate %q: version is empty", c)
	}
	return nil
}

// IsVersionRange reports whether version uses Maven's range syntax
// ("[1.0,2.0)", "(,1.0]", etc.), which this resolver does not support.
func IsVersionRange(version string) bool {
	v := strings.TrimSpace(version)
	return strings.HasPrefix(v, "[") || strings.HasPrefix(v, "(")
}

// RewriteRule rewrites a mislabeled artifact group into its corrected group
// and artifact-name prefix, per Configuration.MislabeledArtifactGroups.
type RewriteRule struct {
	NewGroup          string
	NewArtifactPrefix string
}

// Canonicalise applies the mislabeled-group rewrite table to c: if any key
// of rewrites is a prefix of "c.Group.", the coordinate's group is replaced
// and its artifact name is prepended with the configured prefix. Applied at
// most once, before the coordinate's first directory lookup.
func Canonicalise(c Coordinate, rewrites map[string]RewriteRule) Coordinate {
	probe := c.Group + "."
	for prefix, rule := range rewrites {
		if strings.HasPrefix(probe, prefix) {
			c.Group = rule.NewGroup
			c.Artifact = rule.NewArtifactPrefix + c.Artifact
			return c
		}
	}
	return c
}

// GroupPath returns the group with '.' replaced by '/', as used in
// repository directory paths.
func GroupPath(group string) string {
	return strings.ReplaceAll(group, ".", "/")
}

// DirectoryURL returns the repository directory URL for c under baseURL,
// which must end in "/".
func DirectoryURL(baseURL string, c Coordinate) string {
	return baseURL + GroupPath(c.Group) + "/" + c.Artifact + "/" + c.Version + "/"
}

// PrimaryFilename returns the filename of the packaging-typed primary file
// for c, e.g. "log4j-api-2.12.1.jar" or "log4j-api-2.12.1-sources.jar".
func PrimaryFilename(c Coordinate, packaging string) string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + packaging
}

// PomFilename returns the filename of c's POM.
func PomFilename(c Coordinate) string {
	return c.Artifact + "-" + c.Version + ".pom"
}

// Parse parses a positional CLI coordinate argument in
// "group:artifact:version[:classifier[:packaging]]" form.
func Parse(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 5 {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: expected group:artifact:version[:classifier[:packaging]]", s)
	}
	c := Coordinate{Group: parts[0], Artifact: parts[1], Version: parts[2]}
	if len(parts) >= 4 {
		c.Classifier = parts[3]
	}
	if len(parts) == 5 {
		c.Packaging = parts[4]
	}
	return c, c.Validate()
}

// ParseArg parses a positional CLI argument in either Parse's
// "group:artifact:version[...]" form or a full Maven repository URL
// pointing at one of an artifact's files (e.g. ".../group/path/artifact/
// version/artifact-version[-classifier].packaging"), per spec.md §6's CLI
// surface. knownBases, when non-empty, are tried as directory-URL prefixes
// first so the group is recovered exactly rather than guessed from the
// "maven2"-style layout convention.
func ParseArg(s string, knownBases []string) (Coordinate, error) {
	if !strings.Contains(s, "://") {
		return Parse(s)
	}
	return ParseURL(s, knownBases)
}

// ParseURL inverts DirectoryURL+PrimaryFilename/PomFilename: given a full
// URL to one of an artifact's published files, it recovers the coordinate
// the URL was derived from.
func ParseURL(rawURL string, knownBases []string) (Coordinate, error) {
	for _, base := range knownBases {
		if strings.HasPrefix(rawURL, base) {
			if c, ok := parseURLTail(strings.TrimPrefix(rawURL, base)); ok {
				return c, c.Validate()
			}
		}
	}
	schemeSep := strings.Index(rawURL, "://")
	rest := rawURL[schemeSep+len("://"):]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return Coordinate{}, fmt.Errorf("invalid maven url %q: no path", rawURL)
	}
	path := rest[slash+1:]
	// Conventional repository layouts nest the group/artifact/version tree
	// one path segment below the host (e.g. "maven2/..."); drop it.
	if i := strings.Index(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if c, ok := parseURLTail(path); ok {
		return c, c.Validate()
	}
	return Coordinate{}, fmt.Errorf("invalid maven url %q: could not derive coordinate", rawURL)
}

// parseURLTail parses "group/path/artifact/version/filename" (as produced
// by stripping a known base_url, or the conventional one-segment host
// prefix) into a Coordinate.
func parseURLTail(tail string) (Coordinate, bool) {
	segments := strings.Split(strings.Trim(tail, "/"), "/")
	if len(segments) < 4 {
		return Coordinate{}, false
	}
	filename := segments[len(segments)-1]
	version := segments[len(segments)-2]
	artifact := segments[len(segments)-3]
	group := strings.Join(segments[:len(segments)-3], ".")

	prefix := artifact + "-" + version
	if !strings.HasPrefix(filename, prefix) {
		return Coordinate{}, false
	}
	rest := strings.TrimPrefix(filename, prefix)
	dot := strings.LastIndex(rest, ".")
	if dot < 0 {
		return Coordinate{}, false
	}
	classifier := strings.TrimPrefix(rest[:dot], "-")
	packaging := rest[dot+1:]
	if hasDigestOrSigExt(packaging) {
		return Coordinate{}, false
	}
	return Coordinate{Group: group, Artifact: artifact, Version: version, Classifier: classifier, Packaging: packaging}, true
}

func hasDigestOrSigExt(ext string) bool {
	switch ext {
	case "md5", "sha1", "asc":
		return true
	default:
		return false
	}
}
