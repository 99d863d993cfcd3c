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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/triage/internal/log"
	"github.com/teradata-labs/triage/pkg/ingest"
	"github.com/teradata-labs/triage/pkg/llm"
	"github.com/teradata-labs/triage/pkg/llm/anthropic"
	"github.com/teradata-labs/triage/pkg/llm/ollama"
	"github.com/teradata-labs/triage/pkg/orchestrator"
	"github.com/teradata-labs/triage/pkg/policy"
	"github.com/teradata-labs/triage/pkg/retrieval"
	"github.com/teradata-labs/triage/pkg/server"
	"github.com/teradata-labs/triage/pkg/session"
	"github.com/teradata-labs/triage/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the triage chat server",
	Long:  `Starts the HTTP chat server, the session janitor, and the knowledge-base watcher.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := log.Init(config.Logging.Level, config.Logging.Format); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := buildProvider(config)
	if err != nil {
		return err
	}
	log.Info("completion provider ready",
		zap.String("provider", provider.Name()),
		zap.String("tier1_model", provider.Model(llm.Tier1)),
		zap.String("tier2_model", provider.Model(llm.Tier2)))

	classifier, err := policy.NewRegexClassifier(
		config.Policy.NeedsFreshnessPatterns,
		config.Policy.ReasoningIntentPatterns,
	)
	if err != nil {
		return fmt.Errorf("compile cue patterns: %w", err)
	}
	engine := policy.NewEngine(policy.Config{
		MinSimilarity:             config.Policy.MinSimilarity,
		MinSelfConfidence:         config.Policy.MinSelfConfidence,
		CooldownTurns:             config.Features.Tier2CooldownTurns,
		EscalateOnFreshness:       config.Features.Tier2OnFreshness,
		EscalateOnReasoningIntent: config.Features.Tier2OnReasoningIntent,
		UseWeb:                    config.Features.UseWeb,
	}, classifier)

	embedder := retrieval.NewOllamaEmbedder(retrieval.EmbedderConfig{
		Endpoint: config.LLM.Endpoint,
		Model:    config.Retrieval.EmbedModel,
	})
	store, err := retrieval.OpenStore(retrieval.StoreConfig{
		Path:         config.Retrieval.DBPath,
		ChunkSize:    config.Retrieval.ChunkSize,
		ChunkOverlap: config.Retrieval.ChunkOverlap,
	}, embedder)
	if err != nil {
		return fmt.Errorf("open retrieval store: %w", err)
	}
	defer store.Close()

	sessions := session.NewMemoryStore(session.Config{
		TTL:              time.Duration(config.Session.TTLSeconds) * time.Second,
		EvictionInterval: time.Duration(config.Session.EvictionIntervalSeconds) * time.Second,
	})
	go sessions.Janitor(ctx)

	fetcher := web.NewFetcher(web.Config{})
	var webAdapter orchestrator.WebFetcher
	if config.Features.UseWeb {
		webAdapter = fetcher
	}

	orch := orchestrator.New(orchestrator.Config{
		TopK:             config.Policy.TopK,
		DefaultNamespace: config.Ingest.DefaultNamespace,
	}, sessions, store, provider, engine, webAdapter)

	scanner := ingest.NewScanner(ingest.ScannerConfig{
		UploadsDir:       config.Ingest.UploadsDir,
		MessagesDir:      config.Ingest.MessagesDir,
		LinksDir:         config.Ingest.LinksDir,
		LinksCacheDir:    config.Ingest.LinksCacheDir,
		StatePath:        config.Retrieval.DBPath + ".ingest.json",
		DefaultNamespace: config.Ingest.DefaultNamespace,
	}, store, fetcher)

	watcher := ingest.NewWatcher(scanner,
		time.Duration(config.Ingest.ScanIntervalSeconds)*time.Second,
		[]string{config.Ingest.UploadsDir, config.Ingest.MessagesDir, config.Ingest.LinksDir})
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("watcher stopped", zap.Error(err))
		}
	}()

	handlers := server.NewHandlers(orch, scanner, server.Dirs{
		Uploads:  config.Ingest.UploadsDir,
		Messages: config.Ingest.MessagesDir,
		Links:    config.Ingest.LinksDir,
	})
	srv := server.New(server.Config{
		Addr:        fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		ReadTimeout: time.Duration(config.Server.ReadTimeoutSeconds) * time.Second,
		CORS:        server.DefaultCORSConfig(),
	}, handlers)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

// buildProvider constructs the configured completion provider.
// Construction failures are fatal at startup.
func buildProvider(cfg *Config) (llm.Provider, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	switch cfg.LLM.Provider {
	case "ollama":
		return ollama.NewClient(ollama.Config{
			Endpoint:       cfg.LLM.Endpoint,
			Tier1Model:     cfg.LLM.Tier1Model,
			Tier2Model:     cfg.LLM.Tier2Model,
			Tier1MaxTokens: cfg.LLM.MaxOutputTokensTier1,
			Tier2MaxTokens: cfg.LLM.MaxOutputTokensTier2,
			Timeout:        timeout,
		})
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:         cfg.LLM.AnthropicAPIKey,
			Tier1Model:     cfg.LLM.Tier1Model,
			Tier2Model:     cfg.LLM.Tier2Model,
			Tier1MaxTokens: cfg.LLM.MaxOutputTokensTier1,
			Tier2MaxTokens: cfg.LLM.MaxOutputTokensTier2,
			Timeout:        timeout,
		})
	default:
		return nil, fmt.Errorf("unknown llm.provider %q", cfg.LLM.Provider)
	}
}
