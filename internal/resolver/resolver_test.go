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
	"strings"
	"sync"
	"testing"

	"github.com/groboclown/mvn2get/internal/config"
	"github.com/groboclown/mvn2get/internal/coordinate"
	"github.com/groboclown/mvn2get/internal/digest"
	"github.com/groboclown/mvn2get/internal/problem"
	"github.com/groboclown/mvn2get/internal/store"
)

type memResponse struct {
	status int
	body   []byte
}

// memoryFetcher is an in-memory transport.Fetcher fake keyed by exact URL.
// calls records every URL requested, in order, so tests can assert a repo
// was (or was not) hit.
type memoryFetcher struct {
	mu        sync.Mutex
	responses map[string]memResponse
	calls     []string
}

func newMemoryFetcher() *memoryFetcher {
	return &memoryFetcher{responses: make(map[string]memResponse)}
}

func (f *memoryFetcher) set(url string, status int, body []byte) {
	f.responses[url] = memResponse{status: status, body: body}
}

func (f *memoryFetcher) Get(ctx context.Context, url string) (int, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	r, ok := f.responses[url]
	if !ok {
		return 404, nil, nil
	}
	return r.status, r.body, nil
}

func (f *memoryFetcher) Head(ctx context.Context, url string) (int, error) {
	status, _, err := f.Get(ctx, url)
	return status, err
}

func (f *memoryFetcher) callCountForPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func listingHTML(names ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><pre>")
	for _, n := range names {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`+"\n", n, n)
	}
	b.WriteString("</pre></body></html>")
	return b.String()
}

func baseConfig(outputDir string, remotes ...string) config.Configuration {
	cfg := config.Defaults()
	cfg.RemoteRepoURLs = remotes
	cfg.LocalRepoURLs = nil
	cfg.CheckInLocal = false
	cfg.OutputDir = outputDir
	cfg.Concurrency = 2
	cfg.AllowNoLicense = true
	cfg.AllowUnacceptableLicense = true
	return cfg
}

// publishArtifact registers a full jar+pom+digest+signature fixture (the
// .asc files hold a stub signature body) for coordinate
// group:artifact:version at base, with pomXML as the POM body and an
// arbitrary jar payload, including the directory listing that names all
// eight files.
func publishArtifact(f *memoryFetcher, base, group, artifact, version, pomXML string, deps ...string) {
	c := coordinate.Coordinate{Group: group, Artifact: artifact, Version: version}
	dirURL := coordinate.DirectoryURL(base, c)
	pomName := coordinate.PomFilename(c)
	jarName := coordinate.PrimaryFilename(c, "jar")
	jarData := []byte("jar-bytes-for-" + artifact + "-" + version)
	pomData := []byte(pomXML)

	f.set(dirURL, 200, []byte(listingHTML(
		pomName, pomName+".md5", pomName+".sha1", pomName+".asc",
		jarName, jarName+".md5", jarName+".sha1", jarName+".asc",
	)))
	f.set(dirURL+pomName, 200, pomData)
	f.set(dirURL+pomName+".md5", 200, []byte(digest.Sum(pomData, digest.MD5)))
	f.set(dirURL+pomName+".sha1", 200, []byte(digest.Sum(pomData, digest.SHA1)))
	f.set(dirURL+pomName+".asc", 200, []byte("-----BEGIN PGP SIGNATURE-----\nstub\n-----END PGP SIGNATURE-----"))
	f.set(dirURL+jarName, 200, jarData)
	f.set(dirURL+jarName+".md5", 200, []byte(digest.Sum(jarData, digest.MD5)))
	f.set(dirURL+jarName+".sha1", 200, []byte(digest.Sum(jarData, digest.SHA1)))
	f.set(dirURL+jarName+".asc", 200, []byte("-----BEGIN PGP SIGNATURE-----\nstub\n-----END PGP SIGNATURE-----"))
}

func depXML(group, artifact, version string) string {
	return fmt.Sprintf(`<dependency><groupId>%s</groupId><artifactId>%s</artifactId><version>%s</version></dependency>`, group, artifact, version)
}

func projectXML(group, artifact, version string, deps ...string) string {
	return fmt.Sprintf(`<project><groupId>%s</groupId><artifactId>%s</artifactId><version>%s</version><packaging>jar</packaging><dependencies>%s</dependencies></project>`,
		group, artifact, version, strings.Join(deps, ""))
}

func TestSingleArtifactFetchNoRecursion(t *testing.T) {
	dir := t.TempDir()
	f := newMemoryFetcher()
	base := "https://repo1.maven.org/maven2/"
	publishArtifact(f, base, "org.apache.logging.log4j", "log4j-api", "2.12.1",
		projectXML("org.apache.logging.log4j", "log4j-api", "2.12.1"))

	cfg := baseConfig(dir, base)
	ledger := &problem.Ledger{}
	r := New(cfg, noopSink{}, f, nil, store.New(dir), ledger)

	seed := coordinate.Coordinate{Group: "org.apache.logging.log4j", Artifact: "log4j-api", Version: "2.12.1"}
	if err := r.Resolve(context.Background(), []coordinate.Coordinate{seed}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ledger.Empty() {
		t.Fatalf("expected empty ledger, got %+v", ledger.All())
	}
	st := store.New(dir)
	for _, name := range []string{
		"log4j-api-2.12.1.pom", "log4j-api-2.12.1.pom.md5", "log4j-api-2.12.1.pom.sha1", "log4j-api-2.12.1.pom.asc",
		"log4j-api-2.12.1.jar", "log4j-api-2.12.1.jar.md5", "log4j-api-2.12.1.jar.sha1", "log4j-api-2.12.1.jar.asc",
	} {
		if !st.Has(name) {
			t.Errorf("expected %s to be persisted", name)
		}
	}
}

func TestRepositoryFallback(t *testing.T) {
	dir := t.TempDir()
	f := newMemoryFetcher()
	badBase := "https://bad.example.com/maven2/"
	goodBase := "https://good.example.com/maven2/"
	// badBase's directory listing 404s; no per-file entries exist for it.
	c := coordinate.Coordinate{Group: "com.example", Artifact: "widget", Version: "1.0.0"}
	f.set(coordinate.DirectoryURL(badBase, c), 404, nil)
	publishArtifact(f, goodBase, "com.example", "widget", "1.0.0", projectXML("com.example", "widget", "1.0.0"))

	cfg := baseConfig(dir, badBase, goodBase)
	ledger := &problem.Ledger{}
	r := New(cfg, noopSink{}, f, nil, store.New(dir), ledger)
	if err := r.Resolve(context.Background(), []coordinate.Coordinate{c}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ledger.Empty() {
		t.Fatalf("expected empty ledger, got %+v", ledger.All())
	}
	if n := f.callCountForPrefix(badBase); n != 1 {
		t.Errorf("expected exactly 1 call to the failing repo (the directory listing), got %d", n)
	}
	st := store.New(dir)
	if !st.Has("widget-1.0.0.jar") {
		t.Errorf("expected widget-1.0.0.jar to be persisted from the fallback repo")
	}
}

func TestDigestMismatchFailsCoordinate(t *testing.T) {
	dir := t.TempDir()
	f := newMemoryFetcher()
	base := "https://repo1.maven.org/maven2/"
	c := coordinate.Coordinate{Group: "com.example", Artifact: "widget", Version: "1.0.0"}
	publishArtifact(f, base, "com.example", "widget", "1.0.0", projectXML("com.example", "widget", "1.0.0"))
	dirURL := coordinate.DirectoryURL(base, c)
	jarName := coordinate.PrimaryFilename(c, "jar")
	f.set(dirURL+jarName+".sha1", 200, []byte("0000000000000000000000000000000000000000"))

	cfg := baseConfig(dir, base)
	ledger := &problem.Ledger{}
	r := New(cfg, noopSink{}, f, nil, store.New(dir), ledger)
	if err := r.Resolve(context.Background(), []coordinate.Coordinate{c}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	st := store.New(dir)
	if st.Has(jarName) {
		t.Errorf("jar with mismatched digest should not be persisted")
	}
	found := false
	for _, p := range ledger.All() {
		if p.Kind == problem.DigestMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a digest_mismatch problem, got %+v", ledger.All())
	}
	rec := r.records[c.Key()]
	if rec.state != failed {
		t.Errorf("coordinate state = %v, want failed", rec.state)
	}
}

func TestTransitiveResolution(t *testing.T) {
	dir := t.TempDir()
	f := newMemoryFetcher()
	base := "https://repo1.maven.org/maven2/"
	publishArtifact(f, base, "com.example", "a", "1.0.0",
		projectXML("com.example", "a", "1.0.0", depXML("com.example", "b", "1.0.0")))
	publishArtifact(f, base, "com.example", "b", "1.0.0",
		projectXML("com.example", "b", "1.0.0", depXML("com.example", "c", "1.0.0")))
	publishArtifact(f, base, "com.example", "c", "1.0.0",
		projectXML("com.example", "c", "1.0.0"))

	cfg := baseConfig(dir, base)
	cfg.Recursive = true
	ledger := &problem.Ledger{}
	r := New(cfg, noopSink{}, f, nil, store.New(dir), ledger)

	seed := coordinate.Coordinate{Group: "com.example", Artifact: "a", Version: "1.0.0"}
	if err := r.Resolve(context.Background(), []coordinate.Coordinate{seed}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ledger.Empty() {
		t.Fatalf("expected empty ledger, got %+v", ledger.All())
	}
	if len(r.records) != 3 {
		t.Fatalf("expected exactly 3 tracked coordinates, got %d: %+v", len(r.records), r.records)
	}
	for key, rec := range r.records {
		if rec.state != resolved {
			t.Errorf("%+v did not resolve: state=%v", key, rec.state)
		}
	}
}

func TestCycleResolvesOnce(t *testing.T) {
	dir := t.TempDir()
	f := newMemoryFetcher()
	base := "https://repo1.maven.org/maven2/"
	publishArtifact(f, base, "com.example", "a", "1.0.0",
		projectXML("com.example", "a", "1.0.0", depXML("com.example", "b", "1.0.0")))
	publishArtifact(f, base, "com.example", "b", "1.0.0",
		projectXML("com.example", "b", "1.0.0", depXML("com.example", "a", "1.0.0")))

	cfg := baseConfig(dir, base)
	cfg.Recursive = true
	ledger := &problem.Ledger{}
	r := New(cfg, noopSink{}, f, nil, store.New(dir), ledger)

	seed := coordinate.Coordinate{Group: "com.example", Artifact: "a", Version: "1.0.0"}
	if err := r.Resolve(context.Background(), []coordinate.Coordinate{seed}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(r.records) != 2 {
		t.Fatalf("expected exactly 2 tracked coordinates in the cycle, got %d", len(r.records))
	}
	for key, rec := range r.records {
		if rec.state != resolved {
			t.Errorf("%+v did not resolve: state=%v", key, rec.state)
		}
	}
}

func TestLicenseRejection(t *testing.T) {
	dir := t.TempDir()
	f := newMemoryFetcher()
	base := "https://repo1.maven.org/maven2/"
	pomXML := `<project><groupId>com.example</groupId><artifactId>widget</artifactId><version>1.0.0</version><packaging>jar</packaging>
		<licenses><license><name>Proprietary</name></license></licenses>
		<dependencies>` + depXML("com.example", "lib", "1.0.0") + `</dependencies></project>`
	publishArtifact(f, base, "com.example", "widget", "1.0.0", pomXML)
	publishArtifact(f, base, "com.example", "lib", "1.0.0", projectXML("com.example", "lib", "1.0.0"))

	cfg := baseConfig(dir, base)
	cfg.Recursive = true
	cfg.AllowUnacceptableLicense = false
	ledger := &problem.Ledger{}
	r := New(cfg, noopSink{}, f, nil, store.New(dir), ledger)

	seed := coordinate.Coordinate{Group: "com.example", Artifact: "widget", Version: "1.0.0"}
	if err := r.Resolve(context.Background(), []coordinate.Coordinate{seed}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	st := store.New(dir)
	if !st.Has("widget-1.0.0.pom") {
		t.Errorf("pom should still be persisted for traversal")
	}
	if st.Has("widget-1.0.0.jar") {
		t.Errorf("jar should not be persisted after license rejection")
	}
	foundRejection := false
	for _, p := range ledger.All() {
		if p.Kind == problem.LicenseRejected {
			foundRejection = true
		}
	}
	if !foundRejection {
		t.Errorf("expected a license_rejected problem, got %+v", ledger.All())
	}
	if _, tracked := r.records[(coordinate.Coordinate{Group: "com.example", Artifact: "lib", Version: "1.0.0"}).Key()]; !tracked {
		t.Errorf("dependency should still be enqueued despite the license rejection")
	}
	if !st.Has("lib-1.0.0.jar") {
		t.Errorf("dependency's own jar should be persisted (it declares no license, which AllowNoLicense accepts)")
	}
}

type noopSink struct{}

func (noopSink) Info(format string, args ...any)  {}
func (noopSink) Warn(format string, args ...any)  {}
func (noopSink) Debug(format string, args ...any) {}
func (noopSink) Trace(format string, args ...any) {}
func (noopSink) Problem(p problem.Problem)        {}
func (noopSink) Progress(coordinate string)       {}
