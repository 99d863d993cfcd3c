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
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teradata-labs/triage/pkg/llm"
)

const (
	// DefaultEndpoint is the Anthropic Messages API endpoint.
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultTier1Model is the default fast model.
	DefaultTier1Model = "claude-haiku-4-5-20251001"
	// DefaultTier2Model is the default deep-reasoning model.
	DefaultTier2Model = "claude-sonnet-4-5-20250929"
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 120 * time.Second
	// APIVersion is the anthropic-version header value.
	APIVersion = "2023-06-01"
)

// Client implements the llm.Provider interface for Anthropic's Claude API.
type Client struct {
	apiKey      string
	endpoint    string
	httpClient  *http.Client
	temperature float64
	tiers       map[llm.Tier]tierSettings
}

type tierSettings struct {
	model     string
	maxTokens int
}

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey         string // Required
	Endpoint       string // Default: https://api.anthropic.com/v1/messages
	Tier1Model     string
	Tier2Model     string
	Tier1MaxTokens int // Default: 512
	Tier2MaxTokens int // Default: 2048
	Temperature    float64
	Timeout        time.Duration // Default: 120s
}

// NewClient creates a new Anthropic client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Tier1Model == "" {
		cfg.Tier1Model = DefaultTier1Model
	}
	if cfg.Tier2Model == "" {
		cfg.Tier2Model = DefaultTier2Model
	}
	if cfg.Tier1MaxTokens == 0 {
		cfg.Tier1MaxTokens = 512
	}
	if cfg.Tier2MaxTokens == 0 {
		cfg.Tier2MaxTokens = 2048
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		apiKey:      cfg.APIKey,
		endpoint:    cfg.Endpoint,
		temperature: cfg.Temperature,
		tiers: map[llm.Tier]tierSettings{
			llm.Tier1: {model: cfg.Tier1Model, maxTokens: cfg.Tier1MaxTokens},
			llm.Tier2: {model: cfg.Tier2Model, maxTokens: cfg.Tier2MaxTokens},
		},
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the model identifier used for the given tier.
func (c *Client) Model(tier llm.Tier) string {
	return c.tiers[tier].model
}

// Complete sends a prompt to the Claude model configured for the given tier.
func (c *Client) Complete(ctx context.Context, tier llm.Tier, prompt llm.Prompt) (string, error) {
	settings, ok := c.tiers[tier]
	if !ok {
		return "", fmt.Errorf("anthropic: unknown tier %q", tier)
	}

	req := messagesRequest{
		Model:       settings.model,
		MaxTokens:   settings.maxTokens,
		System:      prompt.System,
		Temperature: c.temperature,
		Messages: []messageParam{
			{Role: "user", Content: prompt.User},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp messagesResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}
