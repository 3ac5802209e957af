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

// Package resolver implements the frontier-queue engine that drives
// repository lookup, verified download, POM interpretation and
// transitive dependency expansion, grounded on please_maven.Resolver's
// task loop and util/resolve/maven.resolve's worklist/resolution-map
// design.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/groboclown/mvn2get/internal/config"
	"github.com/groboclown/mvn2get/internal/coordinate"
	"github.com/groboclown/mvn2get/internal/license"
	"github.com/groboclown/mvn2get/internal/problem"
	"github.com/groboclown/mvn2get/internal/repoindex"
	"github.com/groboclown/mvn2get/internal/signature"
	"github.com/groboclown/mvn2get/internal/sink"
	"github.com/groboclown/mvn2get/internal/store"
	"github.com/groboclown/mvn2get/internal/transport"
)

// state is a coordinate's position in the resolution state machine.
// Transitions are monotonic; Resolved/NotFound/Failed are absorbing.
type state int

const (
	queued state = iota
	inProgress
	resolved
	notFound
	failed
)

type record struct {
	state state
	repo  string
}

// Resolver is the single coordinator owning the worklist, resolution map
// and problem ledger for one resolve() run.
type Resolver struct {
	Config   config.Configuration
	Sink     sink.EventSink
	Fetcher  transport.Fetcher
	Verifier signature.Verifier
	Store    store.Store
	Ledger   *problem.Ledger

	rewrites map[string]coordinate.RewriteRule
	records  map[coordinate.Key]*record
	worklist []coordinate.Coordinate
}

// New builds a Resolver. A nil Verifier behaves as signature.NullVerifier.
func New(cfg config.Configuration, evt sink.EventSink, fetcher transport.Fetcher, verifier signature.Verifier, st store.Store, ledger *problem.Ledger) *Resolver {
	if verifier == nil {
		verifier = signature.NullVerifier{}
	}
	rewrites := make(map[string]coordinate.RewriteRule, len(cfg.MislabeledArtifactGroups))
	for prefix, rw := range cfg.MislabeledArtifactGroups {
		rewrites[prefix] = coordinate.RewriteRule{NewGroup: rw.NewGroup, NewArtifactPrefix: rw.NewArtifactPrefix}
	}
	return &Resolver{
		Config:   cfg,
		Sink:     evt,
		Fetcher:  fetcher,
		Verifier: verifier,
		Store:    st,
		Ledger:   ledger,
		rewrites: rewrites,
		records:  make(map[coordinate.Key]*record),
	}
}

// licensePolicy adapts the resolver's configuration to license.Policy.
func (r *Resolver) licensePolicy() license.Policy {
	return license.Policy{
		AcceptableURLs:            r.Config.AcceptableLicenseURLs,
		AcceptableNames:           r.Config.AcceptableLicenseNames,
		AllowUnacceptableLicenses: r.Config.AllowUnacceptableLicense,
		AllowNoLicense:            r.Config.AllowNoLicense,
		RequireLicense:            r.Config.RequireLicense,
	}
}

// Resolve drives resolution to completion for the given seed coordinates.
// Side effects land in r.Store and r.Ledger; Resolve itself only returns
// an error for fatal conditions (the problem ledger carries everything
// recoverable).
func (r *Resolver) Resolve(ctx context.Context, seeds []coordinate.Coordinate) error {
	for _, s := range seeds {
		r.enqueue(s)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c, ok := r.pop()
		if !ok {
			break
		}
		r.processCoordinate(ctx, c)
	}
	return r.Ledger.WriteFile(r.Config.ProblemFile)
}

// enqueue canonicalises c and inserts it into the worklist iff its key is
// not already tracked, which is what makes diamonds and cycles collapse
// to a single visit.
func (r *Resolver) enqueue(c coordinate.Coordinate) {
	canon := coordinate.Canonicalise(c, r.rewrites)
	key := canon.Key()
	if _, exists := r.records[key]; exists {
		return
	}
	r.records[key] = &record{state: queued}
	r.worklist = append(r.worklist, canon)
}

func (r *Resolver) pop() (coordinate.Coordinate, bool) {
	if len(r.worklist) == 0 {
		return coordinate.Coordinate{}, false
	}
	c := r.worklist[0]
	r.worklist = r.worklist[1:]
	rec := r.records[c.Key()]
	rec.state = inProgress
	return c, true
}

func (r *Resolver) setState(key coordinate.Key, s state, repo string) {
	rec := r.records[key]
	rec.state = s
	rec.repo = repo
}

// effectivePackaging is the packaging this resolver assumes for a
// coordinate until its POM says otherwise: jar unless the coordinate
// already carries an explicit packaging (typically propagated from a
// dependency's <type>, or an explicit CLI packaging suffix).
func effectivePackaging(c coordinate.Coordinate) string {
	if c.Packaging == "" {
		return "jar"
	}
	return c.Packaging
}

func (r *Resolver) processCoordinate(ctx context.Context, c coordinate.Coordinate) {
	r.Sink.Progress(c.String())

	if r.Config.CheckInLocal {
		for _, base := range r.Config.LocalRepoURLs {
			if files, ok := r.tryRepo(ctx, base, c); ok {
				r.resolveAt(ctx, c, base, files)
				return
			}
		}
	}

	for _, base := range r.Config.RemoteRepoURLs {
		if files, ok := r.tryRepo(ctx, base, c); ok {
			r.resolveAt(ctx, c, base, files)
			return
		}
	}

	r.setState(c.Key(), notFound, "")
	r.Ledger.Add(problem.Problem{
		Kind:       problem.NotFound,
		Coordinate: c.String(),
		Message:    "no configured repository listed the mandatory files for this coordinate",
	})
}

// tryRepo reports whether base's directory index for c contains the
// coordinate's mandatory files (the POM, plus the primary file when the
// assumed packaging is not "pom"), returning the full listing when it
// does.
func (r *Resolver) tryRepo(ctx context.Context, base string, c coordinate.Coordinate) (map[string]bool, bool) {
	dirURL := coordinate.DirectoryURL(base, c)
	files, err := repoindex.List(ctx, r.Fetcher, dirURL)
	if err != nil {
		if !errors.Is(err, repoindex.ErrNotFound) {
			r.Ledger.Add(problem.Problem{Kind: problem.HTTPError, Coordinate: c.String(), URL: dirURL, Message: err.Error(), Recoverable: true})
		}
		return nil, false
	}
	if !files[coordinate.PomFilename(c)] {
		return nil, false
	}
	packaging := effectivePackaging(c)
	if packaging != "pom" && !files[coordinate.PrimaryFilename(c, packaging)] {
		return nil, false
	}
	return files, true
}

// fetchRawPom fetches just the POM bytes for c by trying every configured
// repository (local first, then remote, in order) without requiring a
// full directory listing. Used for parent and import-scope BOM lookups,
// where only the POM content is needed.
func (r *Resolver) fetchRawPom(ctx context.Context, c coordinate.Coordinate) ([]byte, error) {
	pomName := coordinate.PomFilename(c)
	for _, base := range append(append([]string{}, r.Config.LocalRepoURLs...), r.Config.RemoteRepoURLs...) {
		url := coordinate.DirectoryURL(base, c) + pomName
		status, body, err := r.Fetcher.Get(ctx, url)
		if err != nil || status != 200 || len(body) == 0 {
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("pom not found for %s in any repository", c)
}
