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

package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/groboclown/mvn2get/internal/coordinate"
	"github.com/groboclown/mvn2get/internal/digest"
	"github.com/groboclown/mvn2get/internal/license"
	"github.com/groboclown/mvn2get/internal/pom"
	"github.com/groboclown/mvn2get/internal/problem"
	"github.com/groboclown/mvn2get/internal/signature"
)

// resolveAt performs the full per-coordinate pipeline once a repository
// with the mandatory files has been found: fetch+verify the POM,
// compute the effective POM (parent merge, interpolation, import
// expansion), gate the remaining files on license policy, fetch+verify+
// persist them, then enqueue dependencies.
func (r *Resolver) resolveAt(ctx context.Context, c coordinate.Coordinate, base string, files map[string]bool) {
	dirURL := coordinate.DirectoryURL(base, c)
	pomName := coordinate.PomFilename(c)

	pomResult := r.fetchAndVerifyOne(ctx, c.String(), dirURL, pomName, files, true)
	if pomResult.failed {
		r.setState(c.Key(), failed, base)
		return
	}
	if r.Config.DoRemoteDownload {
		r.persist(pomName, pomResult.data)
	}

	proj, err := pom.Parse(pomResult.data)
	if err != nil {
		r.Ledger.Add(problem.Problem{Kind: problem.XMLParseError, Coordinate: c.String(), URL: dirURL + pomName, Message: err.Error()})
		r.setState(c.Key(), failed, base)
		return
	}
	r.computeEffective(ctx, proj)

	accepted := license.Accept(declaredLicenses(proj.Licenses), r.licensePolicy())
	if !accepted {
		r.Ledger.Add(problem.Problem{Kind: problem.LicenseRejected, Coordinate: c.String(), Message: "declared license not in the acceptable list", Recoverable: true})
	}

	packaging := proj.EffectivePackaging()
	mandatory := map[string]bool{pomName: true}
	var primaryName string
	if packaging != "pom" {
		primaryName = coordinate.PrimaryFilename(c, packaging)
		mandatory[primaryName] = true
	}

	primaryFailed := false
	if accepted {
		var contentNames []string
		for name := range files {
			if name == pomName || hasDigestOrSigSuffix(name) {
				continue
			}
			contentNames = append(contentNames, name)
		}
		sort.Strings(contentNames)

		for _, result := range r.fetchAndVerifyMany(ctx, c.String(), dirURL, contentNames, files, mandatory) {
			if result.name == primaryName && result.failed {
				primaryFailed = true
			}
			if !result.failed && r.Config.DoRemoteDownload {
				r.persist(result.name, result.data)
			}
		}
	}

	if primaryFailed {
		r.setState(c.Key(), failed, base)
		return
	}
	r.setState(c.Key(), resolved, base)

	r.enqueueDependencies(proj)
}

func declaredLicenses(ls []pom.License) []license.Declared {
	out := make([]license.Declared, len(ls))
	for i, l := range ls {
		out[i] = license.Declared{Name: string(l.Name), URL: string(l.URL)}
	}
	return out
}

func hasDigestOrSigSuffix(name string) bool {
	for _, suffix := range []string{".md5", ".sha1", ".asc"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (r *Resolver) persist(name string, data []byte) {
	if err := r.Store.Write(name, data, r.Config.Overwrite); err != nil {
		r.Sink.Warn("failed to persist %s: %v", name, err)
	}
}

type fileResult struct {
	name      string
	data      []byte
	failed    bool
	mandatory bool
}

// fetchAndVerifyMany downloads and verifies each name in names, bounded
// by Config.Concurrency goroutines, modelled on please_maven.Resolver.Run's
// fixed-size goroutine fan-out with a completion channel.
func (r *Resolver) fetchAndVerifyMany(ctx context.Context, coord, dirURL string, names []string, files map[string]bool, mandatory map[string]bool) []fileResult {
	concurrency := r.Config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]fileResult, len(names))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.fetchAndVerifyOne(ctx, coord, dirURL, name, files, mandatory[name])
		}(i, name)
	}
	wg.Wait()
	return results
}

// fetchAndVerifyOne downloads dirURL+name, verifies its digest against
// any present .md5/.sha1 sibling and its signature against any present
// .asc sibling (unless no_pgp), and records ledger problems per
// spec.md §4.3/§4.8's failure semantics. Auxiliary (non-mandatory) files
// never set the hard failure that would fail the coordinate; they are
// still checked, just best-effort.
func (r *Resolver) fetchAndVerifyOne(ctx context.Context, coord, dirURL, name string, files map[string]bool, isMandatory bool) fileResult {
	url := dirURL + name
	status, data, err := r.Fetcher.Get(ctx, url)
	if err != nil || status >= 400 {
		msg := fmt.Sprintf("status %d", status)
		if err != nil {
			msg = err.Error()
		}
		r.Ledger.Add(problem.Problem{Kind: problem.HTTPError, Coordinate: coord, URL: url, Message: msg, Recoverable: !isMandatory})
		return fileResult{name: name, failed: isMandatory, mandatory: isMandatory}
	}

	if !r.verifyAndPersistDigests(ctx, dirURL, name, data, files) {
		r.Ledger.Add(problem.Problem{Kind: problem.DigestMismatch, Coordinate: coord, URL: url, Message: "digest verification failed", Recoverable: !isMandatory})
		return fileResult{name: name, failed: isMandatory, mandatory: isMandatory}
	}

	if !r.Config.NoPGP && files[name+".asc"] {
		sigURL := dirURL + name + ".asc"
		sigStatus, sigData, err := r.Fetcher.Get(ctx, sigURL)
		if err == nil && sigStatus == 200 {
			verdict := r.Verifier.Verify(ctx, data, sigData, r.Config.PGPKeyServers)
			switch verdict {
			case signature.InvalidSignature:
				r.Ledger.Add(problem.Problem{Kind: problem.SignatureInvalid, Coordinate: coord, URL: sigURL, Message: "signature did not verify", Recoverable: !isMandatory})
				if isMandatory {
					return fileResult{name: name, failed: true, mandatory: true}
				}
			case signature.KeyNotFound:
				r.Ledger.Add(problem.Problem{Kind: problem.SignatureKeyMissing, Coordinate: coord, URL: sigURL, Message: "signing key not available", Recoverable: true})
			default:
				if r.Config.DoRemoteDownload {
					r.persist(name+".asc", sigData)
				}
			}
		}
	}

	return fileResult{name: name, data: data, mandatory: isMandatory}
}

// verifyAndPersistDigests checks data against any present .md5/.sha1
// sibling and, when it verifies, persists that sibling file too: digest
// files are published artifacts in their own right (spec.md §3's
// "digest" file kind), not merely verification scaffolding.
func (r *Resolver) verifyAndPersistDigests(ctx context.Context, dirURL, name string, data []byte, files map[string]bool) bool {
	check := func(kind digest.Kind, suffix string) bool {
		if !files[name+suffix] {
			return true
		}
		_, expected, err := r.Fetcher.Get(ctx, dirURL+name+suffix)
		if err != nil {
			return true // missing digest file is a warning, not a failure
		}
		if !digest.Verify(data, kind, string(expected)) {
			return false
		}
		if r.Config.DoRemoteDownload {
			r.persist(name+suffix, expected)
		}
		return true
	}
	return check(digest.MD5, ".md5") && check(digest.SHA1, ".sha1")
}

// computeEffective merges proj's parent chain and resolves property
// substitution and import-scope BOM expansion in place.
func (r *Resolver) computeEffective(ctx context.Context, proj *pom.Project) {
	r.mergeParentChain(ctx, proj)

	dict := proj.PropertyMap()
	for _, u := range proj.Interpolate(dict) {
		r.Ledger.Add(problem.Problem{
			Kind:        problem.UnresolvedProperty,
			Coordinate:  fmt.Sprintf("%s:%s", proj.GroupID, proj.ArtifactID),
			Message:     fmt.Sprintf("%s: unresolved reference %s", u.Field, u.Expression),
			Recoverable: true,
		})
	}

	if err := proj.ExpandImports(r.bomFetcher(ctx)); err != nil {
		r.Sink.Warn("import-scope dependency management expansion failed for %s:%s: %v", proj.GroupID, proj.ArtifactID, err)
	}
}

// mergeParentChain walks proj's parent chain, merging each ancestor's
// inheritable state, per design (a) of spec.md §9: synchronous recursive
// fetch, bounded by the chain being finite (and defensively, by a visited
// set in case of a malformed cyclic declaration).
func (r *Resolver) mergeParentChain(ctx context.Context, proj *pom.Project) {
	visited := map[coordinate.Key]bool{}
	next := proj.Parent
	for next.GroupID != "" && next.ArtifactID != "" {
		parentCoord := coordinate.Coordinate{
			Group:     string(next.GroupID),
			Artifact:  string(next.ArtifactID),
			Version:   string(next.Version),
			Packaging: "pom",
		}
		key := parentCoord.Key()
		if visited[key] {
			break
		}
		visited[key] = true

		data, err := r.fetchRawPom(ctx, parentCoord)
		if err != nil {
			r.Sink.Warn("parent pom %s not found: %v", parentCoord, err)
			break
		}
		parentProj, err := pom.Parse(data)
		if err != nil {
			r.Ledger.Add(problem.Problem{Kind: problem.XMLParseError, Coordinate: parentCoord.String(), Message: err.Error()})
			break
		}
		proj.MergeParent(*parentProj)
		next = parentProj.Parent
	}
}

// bomFetcher adapts the resolver's raw-POM fetch path to pom.BOMFetcher,
// so ExpandImports can pull in an imported BOM's own managed dependencies
// (themselves parent-merged, in case the BOM inherits dependencyManagement
// from a parent).
func (r *Resolver) bomFetcher(ctx context.Context) pom.BOMFetcher {
	return func(groupID, artifactID, version string) (pom.DependencyManagement, error) {
		c := coordinate.Coordinate{Group: groupID, Artifact: artifactID, Version: version, Packaging: "pom"}
		data, err := r.fetchRawPom(ctx, c)
		if err != nil {
			return pom.DependencyManagement{}, err
		}
		proj, err := pom.Parse(data)
		if err != nil {
			return pom.DependencyManagement{}, err
		}
		r.mergeParentChain(ctx, proj)
		return proj.DependencyManagement, nil
	}
}

// enqueueDependencies applies canonicalisation and version-range
// filtering to proj's effective dependencies and, when Recursive,
// enqueues the ones whose scope feeds recursion; when IncludeDepManagement
// is also set, every dependencyManagement entry is enqueued too.
func (r *Resolver) enqueueDependencies(proj *pom.Project) {
	if !r.Config.Recursive {
		return
	}
	for _, dep := range proj.ResolveDependencies() {
		if !dep.RecursesInto(r.Config.IncludeDepManagement) {
			continue
		}
		r.enqueueDependencyCoordinate(dep.Dependency)
	}
	if r.Config.IncludeDepManagement {
		for _, dep := range proj.DependencyManagement.Dependencies {
			r.enqueueDependencyCoordinate(dep)
		}
	}
}

func (r *Resolver) enqueueDependencyCoordinate(dep pom.Dependency) {
	group, artifact, version := string(dep.GroupID), string(dep.ArtifactID), string(dep.Version)
	if group == "" || artifact == "" || version == "" || strings.Contains(group, "${") || strings.Contains(artifact, "${") || strings.Contains(version, "${") {
		return // left unresolved by Interpolate; already logged as unresolved_property
	}
	if coordinate.IsVersionRange(version) {
		r.Ledger.Add(problem.Problem{
			Kind:        problem.VersionRangeUnsupported,
			Coordinate:  fmt.Sprintf("%s:%s:%s", group, artifact, version),
			Message:     "version ranges are not resolved",
			Recoverable: true,
		})
		return
	}
	r.enqueue(coordinate.Coordinate{
		Group:      group,
		Artifact:   artifact,
		Version:    version,
		Classifier: string(dep.Classifier),
		Packaging:  dep.EffectiveType(),
	})
}
