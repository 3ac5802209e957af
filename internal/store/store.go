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

// Package store writes resolved artifact files flat into an output
// directory, atomically and without any Maven local-repository layout.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store writes and probes files under a single output directory.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) Store {
	return Store{Dir: dir}
}

// Has reports whether filename already exists in the store.
func (s Store) Has(filename string) bool {
	_, err := os.Stat(filepath.Join(s.Dir, filename))
	return err == nil
}

// Write persists data under filename, creating the output directory on
// demand. Unless overwrite is true, an existing file is left untouched and
// Write returns nil without writing. The write is atomic: data lands in a
// temporary file in the same directory, then is renamed into place, so a
// reader never observes a partially written file at its final name.
func (s Store) Write(filename string, data []byte, overwrite bool) error {
	if !overwrite && s.Has(filename) {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", s.Dir, err)
	}
	final := filepath.Join(s.Dir, filename)
	tmp, err := os.CreateTemp(s.Dir, "."+filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", filename, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file for %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file for %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file into place for %s: %w", filename, err)
	}
	return nil
}
