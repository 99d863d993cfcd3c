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
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teradata-labs/triage/pkg/llm"
)

const (
	// DefaultEndpoint is the default local Ollama server.
	DefaultEndpoint = "http://localhost:11434"
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 180 * time.Second
	// DefaultTemperature keeps tier-1 self-reports stable.
	DefaultTemperature = 0.2
)

// Client implements the llm.Provider interface for Ollama.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	temperature float64
	tiers       map[llm.Tier]tierSettings
}

type tierSettings struct {
	model     string
	maxTokens int
}

// Config holds configuration for the Ollama client.
type Config struct {
	Endpoint       string        // Default: http://localhost:11434
	Tier1Model     string        // Required: e.g. llama3.1
	Tier2Model     string        // Required: e.g. qwen2.5:14b
	Tier1MaxTokens int           // Default: 512
	Tier2MaxTokens int           // Default: 2048
	Temperature    float64       // Default: 0.2
	Timeout        time.Duration // Default: 180s
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Tier1Model == "" || cfg.Tier2Model == "" {
		return nil, fmt.Errorf("ollama: tier1 and tier2 models are required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Tier1MaxTokens == 0 {
		cfg.Tier1MaxTokens = 512
	}
	if cfg.Tier2MaxTokens == 0 {
		cfg.Tier2MaxTokens = 2048
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
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
	return "ollama"
}

// Model returns the model identifier used for the given tier.
func (c *Client) Model(tier llm.Tier) string {
	return c.tiers[tier].model
}

// Complete sends a prompt to the model configured for the given tier.
func (c *Client) Complete(ctx context.Context, tier llm.Tier, prompt llm.Prompt) (string, error) {
	settings, ok := c.tiers[tier]
	if !ok {
		return "", fmt.Errorf("ollama: unknown tier %q", tier)
	}

	req := chatRequest{
		Model: settings.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Stream: false,
		Options: map[string]interface{}{
			"temperature": c.temperature,
			"num_predict": settings.maxTokens,
		},
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return "", fmt.Errorf("ollama API call failed: %w", err)
	}
	return resp.Message.Content, nil
}

// callAPI sends a chat request to the Ollama server.
func (c *Client) callAPI(ctx context.Context, req chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// chatRequest is the Ollama /api/chat request body.
type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response body.
type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	EvalDuration    int64       `json:"eval_duration"`
}
