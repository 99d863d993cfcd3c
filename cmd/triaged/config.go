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
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	// ServiceName for keyring storage
	ServiceName = "triage"
	// DefaultConfigFileName is the name of the config file
	DefaultConfigFileName = "triaged"
)

// Config holds all configuration for the triage server.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Features  FeaturesConfig  `mapstructure:"features"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Session   SessionConfig   `mapstructure:"session"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	ReadTimeoutSeconds int    `mapstructure:"read_timeout_seconds"`
}

// LLMConfig holds completion provider configuration.
type LLMConfig struct {
	// Provider selects the completion backend: "ollama" or "anthropic".
	Provider string `mapstructure:"provider"`

	// Endpoint overrides the provider's default API endpoint.
	Endpoint string `mapstructure:"endpoint"`

	Tier1Model string `mapstructure:"tier1_model"`
	Tier2Model string `mapstructure:"tier2_model"`

	MaxOutputTokensTier1 int `mapstructure:"max_output_tokens_tier1"`
	MaxOutputTokensTier2 int `mapstructure:"max_output_tokens_tier2"`

	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// AnthropicAPIKey comes from env/keyring only, never the config file.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
}

// PolicyConfig holds escalation thresholds and cue patterns.
type PolicyConfig struct {
	TopK                    int      `mapstructure:"top_k"`
	MinSimilarity           float64  `mapstructure:"min_similarity"`
	MinSelfConfidence       float64  `mapstructure:"min_self_confidence"`
	NeedsFreshnessPatterns  []string `mapstructure:"needs_freshness_patterns"`
	ReasoningIntentPatterns []string `mapstructure:"reasoning_intent_patterns"`
}

// FeaturesConfig holds escalation feature toggles.
type FeaturesConfig struct {
	UseWeb                 bool `mapstructure:"use_web"`
	Tier2OnFreshness       bool `mapstructure:"tier2_on_freshness"`
	Tier2OnReasoningIntent bool `mapstructure:"tier2_on_reasoning_intent"`
	Tier2CooldownTurns     int  `mapstructure:"tier2_cooldown_turns"`
}

// RetrievalConfig holds the embedding store configuration.
type RetrievalConfig struct {
	DBPath       string `mapstructure:"db_path"`
	EmbedModel   string `mapstructure:"embed_model"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

// IngestConfig holds knowledge-base directory configuration.
type IngestConfig struct {
	Root                string `mapstructure:"root"`
	UploadsDir          string `mapstructure:"uploads_dir"`
	LinksDir            string `mapstructure:"links_dir"`
	MessagesDir         string `mapstructure:"messages_dir"`
	LinksCacheDir       string `mapstructure:"links_cache_dir"`
	DefaultNamespace    string `mapstructure:"namespace_default"`
	ScanIntervalSeconds int    `mapstructure:"scan_interval_seconds"`
}

// SessionConfig holds session store configuration.
type SessionConfig struct {
	TTLSeconds              int `mapstructure:"ttl_seconds"`
	EvictionIntervalSeconds int `mapstructure:"eviction_interval_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// defaultFreshnessPatterns flag questions that likely need current
// information.
var defaultFreshnessPatterns = []string{
	`(?i)\b(latest|newest|current|today|this (week|month|year))\b`,
	`(?i)\b(price|pricing|release date|changelog|version)\b`,
	`(?i)\bwhat('?s| is) new\b`,
}

// defaultReasoningPatterns flag questions that need multi-step work.
var defaultReasoningPatterns = []string{
	`(?i)\b(compare|comparison|trade-?offs?|pros and cons)\b`,
	`(?i)\b(step[- ]by[- ]step|walk me through|in detail|deep dive)\b`,
	`(?i)\bwhy (does|is|would|did)\b`,
	`(?i)\b(architecture|design|migrate|migration plan)\b`,
}

// LoadConfig loads configuration from file, environment, and defaults.
func LoadConfig(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/triage/")
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars + flags
	}

	viper.SetEnvPrefix("TRIAGE")
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDerivedPaths(&config)
	loadAnthropicKey(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 30)

	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.tier1_model", "llama3.1:8b")
	viper.SetDefault("llm.tier2_model", "qwen3:14b")
	viper.SetDefault("llm.max_output_tokens_tier1", 512)
	viper.SetDefault("llm.max_output_tokens_tier2", 2048)
	viper.SetDefault("llm.timeout_seconds", 180)

	viper.SetDefault("policy.top_k", 5)
	viper.SetDefault("policy.min_similarity", 0.3)
	viper.SetDefault("policy.min_self_confidence", 0.55)
	viper.SetDefault("policy.needs_freshness_patterns", defaultFreshnessPatterns)
	viper.SetDefault("policy.reasoning_intent_patterns", defaultReasoningPatterns)

	viper.SetDefault("features.use_web", false)
	viper.SetDefault("features.tier2_on_freshness", true)
	viper.SetDefault("features.tier2_on_reasoning_intent", true)
	viper.SetDefault("features.tier2_cooldown_turns", 2)

	viper.SetDefault("retrieval.db_path", "triage.db")
	viper.SetDefault("retrieval.embed_model", "all-minilm")
	viper.SetDefault("retrieval.chunk_size", 800)
	viper.SetDefault("retrieval.chunk_overlap", 120)

	viper.SetDefault("ingest.root", "knowledge")
	viper.SetDefault("ingest.namespace_default", "default")
	viper.SetDefault("ingest.scan_interval_seconds", 300)

	viper.SetDefault("session.ttl_seconds", 0)
	viper.SetDefault("session.eviction_interval_seconds", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// applyDerivedPaths fills ingest subdirectories relative to the root
// when not set explicitly.
func applyDerivedPaths(cfg *Config) {
	if cfg.Ingest.UploadsDir == "" {
		cfg.Ingest.UploadsDir = filepath.Join(cfg.Ingest.Root, "uploads")
	}
	if cfg.Ingest.MessagesDir == "" {
		cfg.Ingest.MessagesDir = filepath.Join(cfg.Ingest.Root, "messages")
	}
	if cfg.Ingest.LinksDir == "" {
		cfg.Ingest.LinksDir = filepath.Join(cfg.Ingest.Root, "links")
	}
	if cfg.Ingest.LinksCacheDir == "" {
		cfg.Ingest.LinksCacheDir = filepath.Join(cfg.Ingest.Root, "links_cache")
	}
}

// loadAnthropicKey resolves the API key from env then keyring.
// Non-fatal when absent; only the anthropic provider needs it.
func loadAnthropicKey(cfg *Config) {
	if cfg.LLM.AnthropicAPIKey != "" {
		return
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.LLM.AnthropicAPIKey = key
		return
	}
	if key, err := keyring.Get(ServiceName, "anthropic_api_key"); err == nil {
		cfg.LLM.AnthropicAPIKey = key
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama":
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("llm.provider is anthropic but no API key found (set ANTHROPIC_API_KEY or store anthropic_api_key in the keyring)")
		}
	default:
		return fmt.Errorf("unknown llm.provider %q (supported: ollama, anthropic)", c.LLM.Provider)
	}

	if c.LLM.Tier1Model == "" || c.LLM.Tier2Model == "" {
		return fmt.Errorf("llm.tier1_model and llm.tier2_model are required")
	}
	if c.Policy.MinSimilarity < 0 || c.Policy.MinSimilarity > 1 {
		return fmt.Errorf("policy.min_similarity must be in [0,1], got %v", c.Policy.MinSimilarity)
	}
	if c.Policy.MinSelfConfidence < 0 || c.Policy.MinSelfConfidence > 1 {
		return fmt.Errorf("policy.min_self_confidence must be in [0,1], got %v", c.Policy.MinSelfConfidence)
	}
	if c.Features.Tier2CooldownTurns < 0 {
		return fmt.Errorf("features.tier2_cooldown_turns must be >= 0, got %d", c.Features.Tier2CooldownTurns)
	}
	if c.Retrieval.DBPath == "" {
		return fmt.Errorf("retrieval.db_path is required")
	}
	return nil
}
