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

// Package orchestrator runs the per-turn chat pipeline: bump the
// session turn, retrieve context, ask tier-1 for a self-reported
// answer, let the policy engine decide, and when it escalates, hand
// the turn to tier-2 with the difficulty report and optional web
// context.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/triage/internal/log"
	"github.com/teradata-labs/triage/pkg/llm"
	"github.com/teradata-labs/triage/pkg/policy"
	"github.com/teradata-labs/triage/pkg/prompts"
	"github.com/teradata-labs/triage/pkg/retrieval"
	"github.com/teradata-labs/triage/pkg/session"
)

// Retriever is the retrieval capability the orchestrator consumes.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, namespace string) ([]retrieval.Passage, error)
}

// WebFetcher supplies best-effort web context. Answer never fails; it
// returns empty results instead.
type WebFetcher interface {
	Answer(ctx context.Context, query string) (string, []string)
}

// Config holds orchestrator tuning.
type Config struct {
	TopK               int // Default: 5
	ContextTokenBudget int // Default: 2000
	DefaultNamespace   string
}

// Orchestrator wires the session store, retriever, policy engine,
// completion provider, and web fetcher into one chat pipeline.
type Orchestrator struct {
	cfg       Config
	sessions  session.Store
	retriever Retriever
	provider  llm.Provider
	engine    *policy.Engine
	web       WebFetcher
}

// New creates an orchestrator. web may be nil when the web feature is
// disabled.
func New(cfg Config, sessions session.Store, retriever Retriever, provider llm.Provider, engine *policy.Engine, web WebFetcher) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ContextTokenBudget <= 0 {
		cfg.ContextTokenBudget = DefaultContextTokenBudget
	}
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = retrieval.DefaultNamespace
	}
	return &Orchestrator{
		cfg:       cfg,
		sessions:  sessions,
		retriever: retriever,
		provider:  provider,
		engine:    engine,
		web:       web,
	}
}

// thinkBlockRe matches private-reasoning blocks some models emit.
var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// HandleChat runs one chat turn. Retrieval and tier-2 errors fail the
// turn; tier-1 errors degrade to a fallback self-report and web
// errors degrade to empty context.
func (o *Orchestrator) HandleChat(ctx context.Context, userID, message, namespace string) (ChatResponse, error) {
	if namespace == "" {
		namespace = o.cfg.DefaultNamespace
	}
	turn := o.sessions.BumpTurn(userID)

	passages, err := o.retriever.Retrieve(ctx, message, o.cfg.TopK, namespace)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("retrieve context: %w", err)
	}
	retrievedContext := buildContext(passages, o.cfg.ContextTokenBudget)
	avgSim := avgSimilarity(passages)

	report := o.tier1(ctx, message, retrievedContext)

	decision := o.engine.Decide(message, policy.Signals{
		AvgSimilarity:     avgSim,
		Tier1Confidence:   report.Confidence,
		Tier1RequestedWeb: report.NeedsWeb,
	}, o.sessions.TurnsSinceLastEscalation(userID, turn))

	log.Debug("escalation decision",
		zap.String("user_id", userID),
		zap.Int("turn", turn),
		zap.Bool("escalate", decision.Escalate),
		zap.Strings("reasons", decision.Reasons),
		zap.Float64("avg_similarity", avgSim),
		zap.Float64("tier1_confidence", report.Confidence))

	if !decision.Escalate {
		return ChatResponse{
			Tier:      llm.Tier1,
			Answer:    report.Answer,
			Citations: citationSources(passages),
			DifficultyReport: DifficultyReport{
				Escalated:       false,
				Reasons:         report.Reasons,
				AvgSimilarity:   avgSim,
				Tier1Confidence: report.Confidence,
			},
		}, nil
	}

	return o.tier2(ctx, userID, message, turn, retrievedContext, passages, decision)
}

// tier1 asks the fast responder for a self-reported answer. A failed
// call degrades to the fallback report so the turn keeps moving.
func (o *Orchestrator) tier1(ctx context.Context, message, retrievedContext string) Tier1Report {
	raw, err := o.provider.Complete(ctx, llm.Tier1, prompts.Tier1(message, retrievedContext))
	if err != nil {
		log.Warn("tier-1 completion failed, using fallback report", zap.Error(err))
		return fallbackReport("")
	}
	return ParseTier1Report(raw)
}

// tier2 runs the escalated path. The provider error is a hard failure
// for the turn; there is no tier-3 to fall back to.
func (o *Orchestrator) tier2(ctx context.Context, userID, message string, turn int, retrievedContext string, passages []retrieval.Passage, decision policy.Decision) (ChatResponse, error) {
	difficulty := DifficultyReport{
		Escalated:       true,
		Reasons:         decision.Reasons,
		AvgSimilarity:   decision.AvgSimilarity,
		Tier1Confidence: decision.Tier1Confidence,
		NeedsWeb:        decision.NeedsWeb,
	}

	var webContext string
	var webSources []string
	if decision.NeedsWeb && o.web != nil {
		webContext, webSources = o.web.Answer(ctx, message)
	}

	reportJSON, err := json.Marshal(difficulty)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("encode difficulty report: %w", err)
	}

	raw, err := o.provider.Complete(ctx, llm.Tier2,
		prompts.Tier2(message, retrievedContext, string(reportJSON), webContext))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("tier-2 completion: %w", err)
	}

	answer := strings.TrimSpace(thinkBlockRe.ReplaceAllString(raw, ""))

	o.sessions.MarkEscalation(userID, turn)

	return ChatResponse{
		Tier:             llm.Tier2,
		Answer:           answer,
		Citations:        append(citationSources(passages), webSources...),
		DifficultyReport: difficulty,
	}, nil
}
