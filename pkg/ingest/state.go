// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry records the last ingestion outcome for one file, link list,
// or URL. SHA guards file content, Mtime guards link lists.
type Entry struct {
	SHA   string `json:"sha,omitempty"`
	Mtime int64  `json:"mtime,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Cache string `json:"cache,omitempty"`
	TS    string `json:"ts"`
}

// State maps entry keys (file::ns::path, linksfile::ns::path,
// url::ns::url) to their last outcome. It persists as a single JSON
// file written with an atomic rename, so a crash mid-scan never
// leaves a truncated state file.
type State struct {
	path    string
	entries map[string]Entry
}

// LoadState reads the state file at path, returning an empty state if
// the file does not exist yet. A corrupt state file is also treated
// as empty; the next scan rebuilds it.
func LoadState(path string) *State {
	st := &State{path: path, entries: make(map[string]Entry)}
	data, err := os.ReadFile(path)
	if err != nil {
		return st
	}
	if err := json.Unmarshal(data, &st.entries); err != nil {
		st.entries = make(map[string]Entry)
	}
	return st
}

// Get returns the entry for key and whether it exists.
func (s *State) Get(key string) (Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Set records an outcome for key. The timestamp is stamped here.
func (s *State) Set(key string, e Entry) {
	e.TS = time.Now().UTC().Format(time.RFC3339)
	s.entries[key] = e
}

// Len returns the number of tracked entries.
func (s *State) Len() int {
	return len(s.entries)
}

// Save writes the state file atomically via a temp file and rename.
func (s *State) Save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// FileKey builds the state key for a regular document file.
func FileKey(namespace, path string) string {
	return fmt.Sprintf("file::%s::%s", namespace, path)
}

// LinksFileKey builds the state key for a link-list file.
func LinksFileKey(namespace, path string) string {
	return fmt.Sprintf("linksfile::%s::%s", namespace, path)
}

// URLKey builds the state key for a fetched URL.
func URLKey(namespace, url string) string {
	return fmt.Sprintf("url::%s::%s", namespace, url)
}
