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

// Command mvn2get fetches Maven artifacts and their transitive
// dependencies from one or more repository layouts.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/groboclown/mvn2get/internal/config"
	"github.com/groboclown/mvn2get/internal/coordinate"
	"github.com/groboclown/mvn2get/internal/problem"
	"github.com/groboclown/mvn2get/internal/resolver"
	"github.com/groboclown/mvn2get/internal/signature"
	"github.com/groboclown/mvn2get/internal/sink"
	"github.com/groboclown/mvn2get/internal/store"
	"github.com/groboclown/mvn2get/internal/transport"
)

var configPath string

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mvn2get COORDINATE...",
		Short: "Fetch Maven 2 repository artifacts and their transitive dependencies",
		Long: "mvn2get resolves one or more Maven artifact coordinates (group:artifact:version\n" +
			"or a full repository URL) against an ordered list of repositories, downloads\n" +
			"every published file, verifies digests and signatures, and optionally recurses\n" +
			"into the POM's dependency graph.",
		Args: cobra.MinimumNArgs(1),
		RunE: runResolve,
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a .mvn2get.json configuration file")
	flags.Bool("progress", false, "show a spinner-style progress indicator")
	flags.StringP("verbosity", "v", "warn", "log level: warn, info, debug, trace")
	flags.String("problem-file", "", "write the problem ledger as JSON to this path")
	flags.BoolP("recursive", "r", false, "recurse into compile/runtime dependencies")
	flags.Bool("overwrite", false, "overwrite files already present in the output directory")
	flags.Bool("download", true, "persist fetched remote files (--no-download fetches and verifies without persisting)")
	flags.Bool("no-download", false, "fetch and verify files without persisting them to the output directory")
	flags.Bool("include-dep-management", false, "also fetch every dependencyManagement entry")
	flags.Bool("check-local", true, "probe local repositories before remote ones")
	flags.Bool("no-pgp", false, "skip PGP signature verification")
	flags.StringSlice("repository", nil, "remote repository base URL (repeatable, tried in order)")
	flags.StringSlice("local-repository", nil, "local repository base URL (repeatable, tried in order)")
	flags.StringSlice("keyserver", nil, "HKP key server to query for missing signing keys (repeatable)")
	flags.StringSlice("license-url", nil, "acceptable license URL (repeatable)")
	flags.StringSlice("license-name", nil, "acceptable license name (repeatable)")
	flags.Bool("allow-bad-license", false, "persist files even when the declared license is not on the acceptable list")
	flags.Bool("allow-no-license", false, "persist files even when the POM declares no license")
	flags.Bool("require-license", false, "reject artifacts whose POM declares no license")
	flags.StringP("output", "o", "", "output directory (default: current directory)")
	flags.Int("concurrency", 0, "maximum concurrent per-coordinate file downloads")

	// A bare --no-local always wins over check_in_local from a config
	// file, even though "--check-local=false" would already do so via
	// viper's flag-over-file precedence: this flag exists because a CLI
	// user reasonably expects the negative spelling to exist on its own.
	flags.Bool("no-local", false, "never probe local repositories, overriding check_in_local in any config file")

	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// --no-local/--no-download are pure negation shortcuts: config.Load
	// already applied --check-local/--download (and everything else in
	// config.FlagBindings) with CLI-over-file precedence.
	if noLocal, _ := cmd.Flags().GetBool("no-local"); noLocal {
		cfg.CheckInLocal = false
	}
	if noDownload, _ := cmd.Flags().GetBool("no-download"); noDownload {
		cfg.DoRemoteDownload = false
	}

	evt := sink.New(os.Stderr, sink.LogLevel(cfg.LogLevel), cfg.ShowProgress, cfg.ProgressIndicators)

	fetcher := transport.New(30*time.Second, 3)

	var verifier signature.Verifier = signature.NullVerifier{}
	if !cfg.NoPGP {
		verifier = &signature.OpenPGPVerifier{KeyFetcher: hkpKeyFetcher(fetcher)}
	}

	st := store.New(cfg.OutputDir)
	ledger := &problem.Ledger{}
	res := resolver.New(cfg, evt, fetcher, verifier, st, ledger)

	knownBases := append(append([]string{}, cfg.RemoteRepoURLs...), cfg.LocalRepoURLs...)
	seeds := make([]coordinate.Coordinate, 0, len(args))
	for _, arg := range args {
		c, err := coordinate.ParseArg(arg, knownBases)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q: %w", arg, err)
		}
		seeds = append(seeds, c)
	}

	if err := res.Resolve(context.Background(), seeds); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	if !ledger.Empty() {
		for _, p := range ledger.All() {
			evt.Problem(p)
		}
		os.Exit(1)
	}
	return nil
}

// hkpKeyFetcher adapts fetcher to signature.OpenPGPVerifier's KeyFetcher,
// querying each key server's HKP "get" endpoint in order for an armored
// public key matching keyID, grounded on securestor-securestor's
// fetch-then-decode key retrieval pattern.
func hkpKeyFetcher(fetcher transport.Fetcher) func(ctx context.Context, keyID uint64, keyServers []string) ([]byte, error) {
	return func(ctx context.Context, keyID uint64, keyServers []string) ([]byte, error) {
		search := "0x" + strconv.FormatUint(keyID, 16)
		var lastErr error
		for _, server := range keyServers {
			lookupURL := hkpLookupURL(server, search)
			status, body, err := fetcher.Get(ctx, lookupURL)
			if err != nil {
				lastErr = err
				continue
			}
			if status != 200 || len(body) == 0 {
				lastErr = fmt.Errorf("key server %s: status %d", server, status)
				continue
			}
			return body, nil
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no key servers configured")
		}
		return nil, lastErr
	}
}

// hkpLookupURL builds an HKP "get" lookup URL for search against server,
// rewriting an "hkps://" scheme (the conventional HKP-over-TLS spelling)
// to plain HTTPS since the underlying transport is a standard HTTP client.
func hkpLookupURL(server, search string) string {
	server = strings.TrimSuffix(server, "/")
	if strings.HasPrefix(server, "hkps://") {
		server = "https://" + strings.TrimPrefix(server, "hkps://")
	} else if strings.HasPrefix(server, "hkp://") {
		server = "http://" + strings.TrimPrefix(server, "hkp://")
	}
	return server + "/pks/lookup?op=get&options=mr&search=" + url.QueryEscape(search)
}
