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
package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/triage/pkg/llm"
	"github.com/teradata-labs/triage/pkg/policy"
	"github.com/teradata-labs/triage/pkg/retrieval"
	"github.com/teradata-labs/triage/pkg/session"
)

type fakeProvider struct {
	tier1Response string
	tier1Err      error
	tier2Response string
	tier2Err      error
	tier2Calls    int
	lastTier2User string
}

func (f *fakeProvider) Complete(ctx context.Context, tier llm.Tier, prompt llm.Prompt) (string, error) {
	if tier == llm.Tier1 {
		return f.tier1Response, f.tier1Err
	}
	f.tier2Calls++
	f.lastTier2User = prompt.User
	return f.tier2Response, f.tier2Err
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Model(tier llm.Tier) string { return "fake-model" }

type fakeRetriever struct {
	passages []retrieval.Passage
	err      error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int, namespace string) ([]retrieval.Passage, error) {
	return f.passages, f.err
}

type fakeWeb struct {
	context string
	sources []string
	calls   int
}

func (f *fakeWeb) Answer(ctx context.Context, query string) (string, []string) {
	f.calls++
	return f.context, f.sources
}

func newTestOrchestrator(t *testing.T, provider *fakeProvider, retriever *fakeRetriever, web WebFetcher, useWeb bool) (*Orchestrator, *session.MemoryStore) {
	t.Helper()
	classifier, err := policy.NewRegexClassifier(
		[]string{`(?i)\blatest\b`},
		[]string{`(?i)\bcompare\b`},
	)
	require.NoError(t, err)
	engine := policy.NewEngine(policy.Config{
		MinSimilarity:             0.3,
		MinSelfConfidence:         0.55,
		CooldownTurns:             2,
		EscalateOnFreshness:       true,
		EscalateOnReasoningIntent: true,
		UseWeb:                    useWeb,
	}, classifier)
	sessions := session.NewMemoryStore(session.Config{})
	return New(Config{TopK: 3}, sessions, retriever, provider, engine, web), sessions
}

func goodPassages() []retrieval.Passage {
	return []retrieval.Passage{
		{Text: "Password resets live in account settings.", Source: "accounts.md", Score: 0.9},
		{Text: "Billing is handled monthly.", Source: "billing.md", Score: 0.7},
	}
}

func confidentTier1() string {
	return `{"answer": "Use the account settings page.", "confidence": 0.9, "needs_web": false, "reasons": ["covered by docs"]}`
}

func TestTier1PathConfidentAnswer(t *testing.T) {
	provider := &fakeProvider{tier1Response: confidentTier1()}
	orch, _ := newTestOrchestrator(t, provider, &fakeRetriever{passages: goodPassages()}, nil, false)

	resp, err := orch.HandleChat(context.Background(), "alice", "how do I reset my password", "")
	require.NoError(t, err)

	assert.Equal(t, llm.Tier1, resp.Tier)
	assert.Equal(t, "Use the account settings page.", resp.Answer)
	assert.Equal(t, []string{"accounts.md", "billing.md"}, resp.Citations)
	assert.False(t, resp.DifficultyReport.Escalated)
	assert.Equal(t, []string{"covered by docs"}, resp.DifficultyReport.Reasons)
	assert.InDelta(t, 0.8, resp.DifficultyReport.AvgSimilarity, 1e-9)
	assert.Equal(t, 0.9, resp.DifficultyReport.Tier1Confidence)
	assert.Equal(t, 0, provider.tier2Calls)
}

func TestEscalationOnLowRetrieval(t *testing.T) {
	provider := &fakeProvider{
		tier1Response: confidentTier1(),
		tier2Response: "Here is a thorough answer.",
	}
	retriever := &fakeRetriever{passages: []retrieval.Passage{
		{Text: "vaguely related", Source: "misc.md", Score: 0.1},
	}}
	orch, _ := newTestOrchestrator(t, provider, retriever, nil, false)

	resp, err := orch.HandleChat(context.Background(), "alice", "how do refunds work for annual plans", "")
	require.NoError(t, err)

	assert.Equal(t, llm.Tier2, resp.Tier)
	assert.Equal(t, "Here is a thorough answer.", resp.Answer)
	assert.True(t, resp.DifficultyReport.Escalated)
	assert.Contains(t, resp.DifficultyReport.Reasons, policy.ReasonLowRetrieval)
	assert.Equal(t, 1, provider.tier2Calls)
	// The tier-2 prompt carries the serialized difficulty report.
	assert.Contains(t, provider.lastTier2User, `"escalated":true`)
}

func TestUnparseableTier1StillAnswers(t *testing.T) {
	// Non-JSON tier-1 output means confidence 0, so the turn escalates.
	provider := &fakeProvider{
		tier1Response: "I think so",
		tier2Response: "A real answer.",
	}
	orch, _ := newTestOrchestrator(t, provider, &fakeRetriever{passages: goodPassages()}, nil, false)

	resp, err := orch.HandleChat(context.Background(), "alice", "can I export my data", "")
	require.NoError(t, err)
	assert.Equal(t, llm.Tier2, resp.Tier)
	assert.Contains(t, resp.DifficultyReport.Reasons, policy.ReasonLowConfidence)
}

func TestTier1ProviderErrorDegrades(t *testing.T) {
	provider := &fakeProvider{
		tier1Err:      errors.New("connection refused"),
		tier2Response: "Recovered by tier-2.",
	}
	orch, _ := newTestOrchestrator(t, provider, &fakeRetriever{passages: goodPassages()}, nil, false)

	resp, err := orch.HandleChat(context.Background(), "alice", "can I export my data", "")
	require.NoError(t, err)
	assert.Equal(t, llm.Tier2, resp.Tier)
	assert.Equal(t, "Recovered by tier-2.", resp.Answer)
}

func TestTier2ProviderErrorFailsTurn(t *testing.T) {
	provider := &fakeProvider{
		tier1Response: "garbage",
		tier2Err:      errors.New("model overloaded"),
	}
	orch, _ := newTestOrchestrator(t, provider, &fakeRetriever{passages: goodPassages()}, nil, false)

	_, err := orch.HandleChat(context.Background(), "alice", "can I export my data", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier-2 completion")
}

func TestRetrievalErrorFailsTurn(t *testing.T) {
	provider := &fakeProvider{tier1Response: confidentTier1()}
	orch, _ := newTestOrchestrator(t, provider, &fakeRetriever{err: errors.New("db locked")}, nil, false)

	_, err := orch.HandleChat(context.Background(), "alice", "anything", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieve context")
}

func TestWebFetchOnFreshness(t *testing.T) {
	provider := &fakeProvider{
		tier1Response: confidentTier1(),
		tier2Response: "With web context.",
	}
	web := &fakeWeb{context: "fresh info", sources: []string{"https://example.com/a"}}
	orch, _ := newTestOrchestrator(t, provider, &fakeRetriever{passages: goodPassages()}, web, true)

	// Outside cooldown, the freshness cue escalates on its own.
	resp, err := orch.HandleChat(context.Background(), "alice", "what is the latest pricing", "")
	require.NoError(t, err)

	assert.Equal(t, llm.Tier2, resp.Tier)
	assert.True(t, resp.DifficultyReport.NeedsWeb)
	assert.Equal(t, 1, web.calls)
	// Internal sources first, then web sources.
	assert.Equal(t, []string{"accounts.md", "billing.md", "https://example.com/a"}, resp.Citations)
}

func TestNoWebFetchWithoutFreshness(t *testing.T) {
	provider := &fakeProvider{
		tier1Response: confidentTier1(),
		tier2Response: "No web needed.",
	}
	web := &fakeWeb{}
	orch, _ := newTestOrchestrator(t, provider, &fakeRetriever{passages: goodPassages()}, web, true)

	resp, err := orch.HandleChat(context.Background(), "alice", "compare the basic and pro plans", "")
	require.NoError(t, err)

	assert.Equal(t, llm.Tier2, resp.Tier)
	assert.False(t, resp.DifficultyReport.NeedsWeb)
	assert.Equal(t, 0, web.calls)
}

func TestCooldownAcrossTurns(t *testing.T) {
	provider := &fakeProvider{
		tier1Response: confidentTier1(),
		tier2Response: "Deep answer.",
	}
	// Weak retrieval on every turn.
	retriever := &fakeRetriever{passages: []retrieval.Passage{
		{Text: "weak", Source: "misc.md", Score: 0.1},
	}}
	orch, _ := newTestOrchestrator(t, provider, retriever, nil, false)
	ctx := context.Background()

	// Turn 1 escalates on low retrieval.
	resp, err := orch.HandleChat(ctx, "alice", "how do refunds work", "")
	require.NoError(t, err)
	assert.Equal(t, llm.Tier2, resp.Tier)

	// Turns 2 and 3 are inside the cooldown window: weak retrieval
	// alone no longer escalates.
	for turn := 2; turn <= 3; turn++ {
		resp, err = orch.HandleChat(ctx, "alice", "how do refunds work", "")
		require.NoError(t, err)
		assert.Equal(t, llm.Tier1, resp.Tier, "turn %d should stay on tier-1", turn)
	}

	// Turn 4 is past the window; weak retrieval escalates again.
	resp, err = orch.HandleChat(ctx, "alice", "how do refunds work", "")
	require.NoError(t, err)
	assert.Equal(t, llm.Tier2, resp.Tier)
}

func TestEscalationNotMarkedOnTier2Failure(t *testing.T) {
	provider := &fakeProvider{
		tier1Response: "garbage",
		tier2Err:      errors.New("boom"),
	}
	retriever := &fakeRetriever{passages: []retrieval.Passage{
		{Text: "weak", Source: "misc.md", Score: 0.1},
	}}
	orch, sessions := newTestOrchestrator(t, provider, retriever, nil, false)

	_, err := orch.HandleChat(context.Background(), "alice", "hard question", "")
	require.Error(t, err)

	// The failed escalation must not start a cooldown window.
	assert.Greater(t, sessions.TurnsSinceLastEscalation("alice", 1), 100)
}

func TestThinkBlocksStripped(t *testing.T) {
	provider := &fakeProvider{
		tier1Response: "garbage",
		tier2Response: "<think>private chain of thought</think>\nThe visible answer.",
	}
	orch, _ := newTestOrchestrator(t, provider, &fakeRetriever{passages: goodPassages()}, nil, false)

	resp, err := orch.HandleChat(context.Background(), "alice", "tricky question", "")
	require.NoError(t, err)
	assert.Equal(t, "The visible answer.", resp.Answer)
	assert.NotContains(t, resp.Answer, "<think>")
}

func TestSmalltalkStaysOnTier1(t *testing.T) {
	provider := &fakeProvider{
		tier1Response: `{"answer": "Hey! How can I help?", "confidence": 0.3, "needs_web": true, "reasons": []}`,
	}
	// Empty retrieval and low confidence would normally escalate.
	orch, _ := newTestOrchestrator(t, provider, &fakeRetriever{}, nil, false)

	resp, err := orch.HandleChat(context.Background(), "alice", "hi", "")
	require.NoError(t, err)
	assert.Equal(t, llm.Tier1, resp.Tier)
	assert.Equal(t, "Hey! How can I help?", resp.Answer)
	assert.Equal(t, 0, provider.tier2Calls)
}

func TestBuildContextBudget(t *testing.T) {
	passages := []retrieval.Passage{
		{Text: "first passage text", Source: "a.md", Score: 0.9},
		{Text: "second passage text", Source: "b.md", Score: 0.8},
	}
	full := buildContext(passages, 10000)
	assert.Contains(t, full, "[a.md] first passage text")
	assert.Contains(t, full, "[b.md] second passage text")

	// A tiny budget keeps at least the top passage.
	tiny := buildContext(passages, 1)
	assert.Contains(t, tiny, "[a.md]")
	assert.NotContains(t, tiny, "[b.md]")
}

func TestAvgSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, avgSimilarity(nil))
	assert.InDelta(t, 0.5, avgSimilarity([]retrieval.Passage{{Score: 0.2}, {Score: 0.8}}), 1e-9)
}

func TestCitationSourcesDeduped(t *testing.T) {
	passages := []retrieval.Passage{
		{Source: "a.md", Score: 0.9},
		{Source: "b.md", Score: 0.8},
		{Source: "a.md", Score: 0.7},
		{Source: "", Score: 0.6},
	}
	assert.Equal(t, []string{"a.md", "b.md"}, citationSources(passages))
}
