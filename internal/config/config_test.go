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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	dir := t.TempDir()
	old, _ := os.Getwd()
	defer os.Chdir(old)
	os.Chdir(dir)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" || !cfg.CheckInLocal || !cfg.DoRemoteDownload {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.RemoteRepoURLs) != 1 || cfg.RemoteRepoURLs[0] != "https://repo1.maven.org/maven2/" {
		t.Fatalf("unexpected default remote repo: %+v", cfg.RemoteRepoURLs)
	}
}

func TestLoadExplicitConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"log_level": "debug", "recursive": true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" || !cfg.Recursive {
		t.Fatalf("config file values not applied: %+v", cfg)
	}
	// Defaults not mentioned in the file survive.
	if !cfg.CheckInLocal {
		t.Fatalf("unrelated default was clobbered: %+v", cfg)
	}
}

func TestLoadRejectsNonStrictJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"log_level": "debug", /* comment */}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected an error for non-strict JSON with a comment")
	}
}

func TestLoadExplicitConfigMissingIsAnError(t *testing.T) {
	if _, err := Load("/nonexistent/path/to/config.json", nil); err == nil {
		t.Fatal("expected an error for a missing explicit --config path")
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"log_level": "debug"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("verbosity", "warn", "")
	if err := flags.Set("verbosity", "trace"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "trace" {
		t.Fatalf("log_level = %q, want flag value trace to win over config file", cfg.LogLevel)
	}
}

func TestFlagsOverrideRepeatedListOption(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("repository", nil, "")
	if err := flags.Set("repository", "https://mirror.example/maven2/"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.RemoteRepoURLs) != 1 || cfg.RemoteRepoURLs[0] != "https://mirror.example/maven2/" {
		t.Fatalf("remote_repo_urls = %+v, want the --repository flag value", cfg.RemoteRepoURLs)
	}
}
