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

// Package license implements the artifact license acceptance policy.
package license

// Declared is one license entry declared in a POM.
type Declared struct {
	Name string
	URL  string
}

// Policy is the configuration the decision is made against.
type Policy struct {
	AcceptableURLs            []string
	AcceptableNames           []string
	AllowUnacceptableLicenses bool
	AllowNoLicense            bool
	RequireLicense            bool
}

// Accept decides whether an artifact's declared licenses satisfy policy.
func Accept(licenses []Declared, policy Policy) bool {
	if len(licenses) == 0 {
		return policy.AllowNoLicense && !policy.RequireLicense
	}
	if acceptable(licenses, policy) {
		return true
	}
	return policy.AllowUnacceptableLicenses
}

func acceptable(licenses []Declared, policy Policy) bool {
	anyURLDeclared := false
	for _, l := range licenses {
		if l.URL == "" {
			continue
		}
		anyURLDeclared = true
		if contains(policy.AcceptableURLs, l.URL) {
			return true
		}
	}
	if anyURLDeclared {
		// A URL was declared but none matched; fall through to also try
		// name matching, per spec: "OR (no url given, or no url matched)
		// any declared license's name matches".
	}
	for _, l := range licenses {
		if l.Name == "" {
			continue
		}
		if contains(policy.AcceptableNames, l.Name) {
			return true
		}
	}
	return false
}

func contains(hay []string, needle string) bool {
	for _, h := range hay {
		if h == needle {
			return true
		}
	}
	return false
}
