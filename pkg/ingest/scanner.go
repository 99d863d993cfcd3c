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

// Package ingest walks knowledge-base directories and feeds new or
// changed documents into the retrieval store. Every per-file and
// per-URL failure is recorded and swallowed; a scan degrades, it
// never aborts, and nothing here can fail a chat request.
package ingest

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/triage/internal/log"
	"github.com/teradata-labs/triage/pkg/retrieval"
)

// Ingestor is the slice of the retrieval store the scanner needs.
type Ingestor interface {
	Ingest(ctx context.Context, docs []retrieval.Document, namespace string) (int, error)
}

// PageFetcher fetches the visible text of a web page.
type PageFetcher interface {
	PageText(ctx context.Context, url string) (string, error)
}

// ScanTotals summarizes one scan pass. Failures counts documents and
// URLs that were seen but could not be ingested.
type ScanTotals struct {
	Docs     int
	Links    int
	Failures int
}

// ScannerConfig holds scanner directories and state location.
type ScannerConfig struct {
	UploadsDir       string
	MessagesDir      string
	LinksDir         string
	LinksCacheDir    string
	StatePath        string
	DefaultNamespace string
}

// Scanner indexes uploads, teach messages, and link lists.
type Scanner struct {
	cfg   ScannerConfig
	store Ingestor
	fetch PageFetcher
}

// NewScanner creates a scanner. fetch may be nil, which disables link
// ingestion.
func NewScanner(cfg ScannerConfig, store Ingestor, fetch PageFetcher) *Scanner {
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = retrieval.DefaultNamespace
	}
	return &Scanner{cfg: cfg, store: store, fetch: fetch}
}

// ScanAll runs one full pass over all configured directories and
// persists the updated state file. The only returned error is a state
// save failure; everything per-document lands in Totals.Failures.
func (s *Scanner) ScanAll(ctx context.Context) (ScanTotals, error) {
	state := LoadState(s.cfg.StatePath)
	var totals ScanTotals

	for _, dir := range []string{s.cfg.UploadsDir, s.cfg.MessagesDir} {
		if dir == "" {
			continue
		}
		s.scanDocuments(ctx, dir, state, &totals)
	}
	if s.cfg.LinksDir != "" && s.fetch != nil {
		s.scanLinks(ctx, s.cfg.LinksDir, state, &totals)
	}

	if err := state.Save(); err != nil {
		return totals, fmt.Errorf("save ingest state: %w", err)
	}
	log.Info("ingest scan complete",
		zap.Int("docs", totals.Docs),
		zap.Int("links", totals.Links),
		zap.Int("failures", totals.Failures))
	return totals, nil
}

// scanDocuments ingests document files under dir. First-level
// subdirectories become namespaces; files directly under dir land in
// the default namespace.
func (s *Scanner) scanDocuments(ctx context.Context, dir string, state *State, totals *ScanTotals) {
	for ns, paths := range s.listByNamespace(dir, IsDocument) {
		for _, path := range paths {
			key := FileKey(ns, path)
			sha, err := fileSHA(path)
			if err != nil {
				s.recordFailure(state, key, totals, "hash file", path, err)
				continue
			}
			if prev, ok := state.Get(key); ok && prev.OK && prev.SHA == sha {
				continue
			}

			text, err := FileText(path)
			if err != nil {
				s.recordFailure(state, key, totals, "extract file", path, err)
				continue
			}
			_, err = s.store.Ingest(ctx, []retrieval.Document{{Source: filepath.Base(path), Text: text}}, ns)
			if err != nil {
				s.recordFailure(state, key, totals, "ingest file", path, err)
				continue
			}

			state.Set(key, Entry{SHA: sha, OK: true})
			totals.Docs++
			log.Debug("ingested document", zap.String("path", path), zap.String("namespace", ns))
		}
	}
}

// scanLinks processes link-list files (one URL per line). Each URL's
// page text is cached to disk and ingested. Mtime gates re-reads of
// the list; URL state gates re-fetches.
func (s *Scanner) scanLinks(ctx context.Context, dir string, state *State, totals *ScanTotals) {
	isLinkList := func(path string) bool {
		ext := strings.ToLower(filepath.Ext(path))
		return ext == ".txt" || ext == ".lst"
	}
	for ns, paths := range s.listByNamespace(dir, isLinkList) {
		for _, path := range paths {
			key := LinksFileKey(ns, path)
			info, err := os.Stat(path)
			if err != nil {
				s.recordFailure(state, key, totals, "stat link list", path, err)
				continue
			}
			if prev, ok := state.Get(key); ok && prev.OK && prev.Mtime == info.ModTime().Unix() {
				continue
			}

			data, err := os.ReadFile(path)
			if err != nil {
				s.recordFailure(state, key, totals, "read link list", path, err)
				continue
			}
			for _, line := range strings.Split(string(data), "\n") {
				link := strings.TrimSpace(line)
				if link == "" || strings.HasPrefix(link, "#") {
					continue
				}
				if !validLink(link) {
					log.Debug("skipping non-http link", zap.String("url", link))
					continue
				}
				s.ingestURL(ctx, link, ns, state, totals)
			}
			state.Set(key, Entry{Mtime: info.ModTime().Unix(), OK: true})
		}
	}
}

func (s *Scanner) ingestURL(ctx context.Context, link, ns string, state *State, totals *ScanTotals) {
	key := URLKey(ns, link)
	if prev, ok := state.Get(key); ok && prev.OK {
		return
	}

	text, err := s.fetch.PageText(ctx, link)
	if err != nil {
		s.recordFailure(state, key, totals, "fetch link", link, err)
		return
	}

	cache := s.cacheLink(link, text)
	_, err = s.store.Ingest(ctx, []retrieval.Document{{Source: link, Text: text}}, ns)
	if err != nil {
		s.recordFailure(state, key, totals, "ingest link", link, err)
		return
	}

	state.Set(key, Entry{OK: true, Cache: cache})
	totals.Links++
	log.Debug("ingested link", zap.String("url", link), zap.String("namespace", ns))
}

// cacheLink writes fetched page text to the links cache and returns
// the cache path. Cache write failures are harmless.
func (s *Scanner) cacheLink(link, text string) string {
	if s.cfg.LinksCacheDir == "" {
		return ""
	}
	if err := os.MkdirAll(s.cfg.LinksCacheDir, 0o755); err != nil {
		return ""
	}
	name := fmt.Sprintf("%x.txt", sha1.Sum([]byte(link)))
	path := filepath.Join(s.cfg.LinksCacheDir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return ""
	}
	return path
}

// listByNamespace groups matching files under dir by namespace:
// first-level subdirectory names are namespaces, files directly in
// dir belong to the default namespace. A missing dir yields nothing.
func (s *Scanner) listByNamespace(dir string, match func(string) bool) map[string][]string {
	out := make(map[string][]string)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if !entry.IsDir() {
			if match(full) {
				out[s.cfg.DefaultNamespace] = append(out[s.cfg.DefaultNamespace], full)
			}
			continue
		}
		ns := entry.Name()
		sub, err := os.ReadDir(full)
		if err != nil {
			continue
		}
		for _, f := range sub {
			if f.IsDir() {
				continue
			}
			path := filepath.Join(full, f.Name())
			if match(path) {
				out[ns] = append(out[ns], path)
			}
		}
	}
	return out
}

func (s *Scanner) recordFailure(state *State, key string, totals *ScanTotals, op, target string, err error) {
	state.Set(key, Entry{OK: false, Error: err.Error()})
	totals.Failures++
	log.Warn("ingest failure", zap.String("op", op), zap.String("target", target), zap.Error(err))
}

func validLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func fileSHA(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha1.Sum(data)), nil
}
