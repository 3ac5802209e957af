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

// Package config loads the mvn2get Configuration from a JSON file and
// merges it with command-line flags, grounded on securestor-securestor's
// use of spf13/viper for layered configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Rewrite is one entry of mislabeled_artifact_groups: artifacts under a
// group prefix are rewritten to NewGroup with NewArtifactPrefix prepended
// to the artifact id.
type Rewrite struct {
	NewGroup          string `json:"new_group" mapstructure:"new_group"`
	NewArtifactPrefix string `json:"new_artifact_prefix" mapstructure:"new_artifact_prefix"`
}

// Configuration is the option table from spec.md §6.
type Configuration struct {
	ShowProgress             bool               `mapstructure:"show_progress"`
	LogLevel                 string             `mapstructure:"log_level"`
	ProblemFile              string             `mapstructure:"problem_file"`
	Recursive                bool               `mapstructure:"recursive"`
	Overwrite                bool               `mapstructure:"overwrite"`
	DoRemoteDownload         bool               `mapstructure:"do_remote_download"`
	IncludeDepManagement     bool               `mapstructure:"include_dep_management"`
	CheckInLocal             bool               `mapstructure:"check_in_local"`
	NoPGP                    bool               `mapstructure:"no_pgp"`
	ProgressIndicators       string             `mapstructure:"progress_indicators"`
	RemoteRepoURLs           []string           `mapstructure:"remote_repo_urls"`
	LocalRepoURLs            []string           `mapstructure:"local_repo_urls"`
	PGPKeyServers            []string           `mapstructure:"pgp_key_servers"`
	AcceptableLicenseURLs    []string           `mapstructure:"acceptable_license_urls"`
	AcceptableLicenseNames   []string           `mapstructure:"acceptable_license_names"`
	AllowUnacceptableLicense bool               `mapstructure:"allow_unacceptable_licenses"`
	AllowNoLicense           bool               `mapstructure:"allow_no_license"`
	RequireLicense           bool               `mapstructure:"require_license"`
	MislabeledArtifactGroups map[string]Rewrite `mapstructure:"mislabeled_artifact_groups"`
	OutputDir                string             `mapstructure:"output_dir"`
	Concurrency              int                `mapstructure:"concurrency"`
}

// Defaults returns the Configuration with every field set to the default
// value spec.md §6 lists.
func Defaults() Configuration {
	return Configuration{
		LogLevel:                 "warn",
		DoRemoteDownload:         true,
		CheckInLocal:             true,
		ProgressIndicators:       `|/-\`,
		RemoteRepoURLs:           []string{"https://repo1.maven.org/maven2/"},
		AllowUnacceptableLicense: true,
		AllowNoLicense:           true,
		OutputDir:                ".",
		Concurrency:              4,
	}
}

// FlagBindings maps a Configuration field's mapstructure key to the CLI
// flag name that sets it, for the options whose ergonomic flag spelling
// (e.g. "recursive", "-r") differs from the JSON key (e.g.
// "recursive" itself matches, but "problem_file" is spelled
// "--problem-file"). Load uses this instead of viper's name-derived
// BindPFlags so CLI flag names can follow CLI conventions independently
// of the configuration file's JSON key spelling.
var FlagBindings = map[string]string{
	"show_progress":               "progress",
	"log_level":                   "verbosity",
	"problem_file":                "problem-file",
	"recursive":                   "recursive",
	"overwrite":                   "overwrite",
	"do_remote_download":          "download",
	"include_dep_management":      "include-dep-management",
	"check_in_local":              "check-local",
	"no_pgp":                      "no-pgp",
	"remote_repo_urls":            "repository",
	"local_repo_urls":             "local-repository",
	"pgp_key_servers":             "keyserver",
	"acceptable_license_urls":     "license-url",
	"acceptable_license_names":    "license-name",
	"allow_unacceptable_licenses": "allow-bad-license",
	"allow_no_license":            "allow-no-license",
	"require_license":             "require-license",
	"output_dir":                  "output",
	"concurrency":                 "concurrency",
}

// Load resolves the configuration file, following the search order
// explicitPath (--config), ./.mvn2get.json, $HOME/.mvn2get.json, and
// finally falling back to defaults with no file at all. flags, if
// non-nil, is bound through FlagBindings so that any flag explicitly set
// on the command line overrides both the file and the defaults.
func Load(explicitPath string, flags *pflag.FlagSet) (Configuration, error) {
	v := viper.New()
	v.SetConfigType("json")

	defaults := reflect.ValueOf(Defaults())
	for i := 0; i < defaults.NumField(); i++ {
		v.SetDefault(defaults.Type().Field(i).Tag.Get("mapstructure"), defaults.Field(i).Interface())
	}

	path, err := resolveConfigPath(explicitPath)
	if err != nil {
		return Configuration{}, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Configuration{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if !json.Valid(data) {
			return Configuration{}, fmt.Errorf("config %s is not strict JSON", path)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return Configuration{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if flags != nil {
		for configKey, flagName := range FlagBindings {
			flag := flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(configKey, flag); err != nil {
				return Configuration{}, fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return Configuration{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// resolveConfigPath implements the explicit search order: an explicit
// --config path (must exist), else ./.mvn2get.json if present, else
// $HOME/.mvn2get.json if present, else "" meaning defaults only.
func resolveConfigPath(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("explicit config %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	if _, err := os.Stat("./.mvn2get.json"); err == nil {
		return "./.mvn2get.json", nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".mvn2get.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}
