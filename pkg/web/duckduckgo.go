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

// Package web supplements escalated answers with context from the
// DuckDuckGo Instant Answer API. Web context is strictly best-effort:
// a failed lookup degrades to no context, never to a failed turn.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/triage/internal/htmltext"
	"github.com/teradata-labs/triage/internal/log"
)

const (
	// DefaultEndpoint is the DuckDuckGo Instant Answer API.
	// Docs: https://duckduckgo.com/api
	DefaultEndpoint = "https://api.duckduckgo.com/"
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 15 * time.Second
	// snippetLimit caps each text fragment added to the web context.
	snippetLimit = 1200
	// maxRelatedTopics bounds how many related-topic snippets are used.
	maxRelatedTopics = 3
	// maxPageBytes caps how much of a fetched page is read.
	maxPageBytes = 2 * 1024 * 1024

	userAgent = "Mozilla/5.0 (compatible; triage/1.0)"
)

// Fetcher performs best-effort web lookups.
type Fetcher struct {
	endpoint string
	client   *http.Client
}

// Config holds Fetcher configuration.
type Config struct {
	Endpoint string        // Default: DuckDuckGo Instant Answer API
	Timeout  time.Duration // Default: 15s
}

// NewFetcher creates a web fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Fetcher{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Answer queries the instant answer API and returns a context string
// plus source URLs. Any failure (network, non-200, bad JSON) returns
// empty results; callers never see an error from a web lookup.
func (f *Fetcher) Answer(ctx context.Context, query string) (string, []string) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", f.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		log.Debug("web lookup skipped", zap.Error(err))
		return "", nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		log.Warn("web lookup failed", zap.String("query", query), zap.Error(err))
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("web lookup returned non-OK status",
			zap.String("query", query),
			zap.Int("status", resp.StatusCode))
		return "", nil
	}

	var ddg struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Heading       string `json:"Heading"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ddg); err != nil {
		log.Warn("web lookup returned unparseable body", zap.String("query", query), zap.Error(err))
		return "", nil
	}

	var parts []string
	var sources []string

	if ddg.AbstractText != "" {
		parts = append(parts, truncate(ddg.AbstractText, snippetLimit))
		if ddg.AbstractURL != "" {
			sources = append(sources, ddg.AbstractURL)
		}
	}
	for _, topic := range ddg.RelatedTopics {
		if len(parts) > maxRelatedTopics {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		parts = append(parts, truncate(topic.Text, snippetLimit))
		sources = append(sources, topic.FirstURL)
	}

	return strings.Join(parts, "\n"), sources
}

// PageText fetches a URL and extracts its visible text. Unlike Answer
// this does return errors; ingestion wants to record failed links.
func (f *Fetcher) PageText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	text := htmltext.Extract(io.LimitReader(resp.Body, maxPageBytes))
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("fetch %s: no extractable text", pageURL)
	}
	return text, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
