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

package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteThenHas(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "out"))
	if s.Has("a.jar") {
		t.Error("Has should be false before Write")
	}
	if err := s.Write("a.jar", []byte("hello"), false); err != nil {
		t.Fatal(err)
	}
	if !s.Has("a.jar") {
		t.Error("Has should be true after Write")
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, "a.jar"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("wrote %q, want %q", data, "hello")
	}
}

func TestWriteDoesNotOverwriteByDefault(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Write("a.jar", []byte("first"), false); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("a.jar", []byte("second"), false); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "a.jar"))
	if string(data) != "first" {
		t.Errorf("non-overwrite write should preserve original content, got %q", data)
	}
}

func TestWriteOverwriteTrue(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Write("a.jar", []byte("first"), false); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("a.jar", []byte("second"), true); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "a.jar"))
	if string(data) != "second" {
		t.Errorf("overwrite write should replace content, got %q", data)
	}
}

func TestWriteLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Write("a.jar", []byte("data"), false); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.jar" {
		t.Errorf("expected only a.jar in directory, got %v", entries)
	}
}
