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

// Package policy implements the escalation decision engine: the stateful
// per-session policy that decides whether a tier-1 answer is trustworthy
// enough to return or whether the turn must escalate to tier-2, subject
// to a cooldown that prevents escalation thrashing.
package policy

import "sort"

// Reason tags attached to an escalation decision.
const (
	ReasonLowRetrieval      = "low_retrieval"
	ReasonLowConfidence     = "low_confidence"
	ReasonTier1RequestedWeb = "tier1_requested_web"
	ReasonFreshness         = "freshness"
	ReasonReasoningIntent   = "reasoning_intent"
)

// Config holds the policy thresholds and feature toggles.
type Config struct {
	// MinSimilarity is the average retrieval similarity below which
	// tier-1 is considered weakly grounded.
	MinSimilarity float64

	// MinSelfConfidence is the tier-1 self-reported confidence below
	// which tier-1 is considered unsure.
	MinSelfConfidence float64

	// CooldownTurns is the minimum turn gap enforced between
	// consecutive escalations for a user. Default 2.
	CooldownTurns int

	// EscalateOnFreshness enables the freshness cue.
	EscalateOnFreshness bool

	// EscalateOnReasoningIntent enables the reasoning-intent cue.
	EscalateOnReasoningIntent bool

	// UseWeb gates web lookups during tier-2. Web context is fetched
	// only when this is enabled AND the freshness cue fired.
	UseWeb bool
}

// DefaultCooldownTurns is used when CooldownTurns is unset.
const DefaultCooldownTurns = 2

// Signals are the per-turn inputs derived from retrieval and the tier-1
// self-report.
type Signals struct {
	AvgSimilarity     float64
	Tier1Confidence   float64
	Tier1RequestedWeb bool
}

// Decision is the outcome of the policy for one message. It is a pure
// function of the message, the signals, and the session cooldown state.
type Decision struct {
	Escalate        bool
	Reasons         []string
	AvgSimilarity   float64
	Tier1Confidence float64
	Fresh           bool
	ReasoningIntent bool
	NeedsWeb        bool
}

// Engine fuses retrieval, confidence, and intent signals into an
// escalation decision with cooldown hysteresis.
type Engine struct {
	cfg        Config
	classifier Classifier
}

// NewEngine creates a policy engine. A zero CooldownTurns falls back to
// the default of 2.
func NewEngine(cfg Config, classifier Classifier) *Engine {
	if cfg.CooldownTurns == 0 {
		cfg.CooldownTurns = DefaultCooldownTurns
	}
	return &Engine{cfg: cfg, classifier: classifier}
}

// Decide evaluates one message. turnsSinceEscalation is the gap between
// the current turn and the session's last escalation turn.
//
// Smalltalk and gratitude/closing messages never escalate. Within the
// cooldown window an escalation requires both a cue (freshness or
// reasoning intent) and evidence that tier-1 is struggling; outside the
// window any single signal suffices.
func (e *Engine) Decide(message string, sig Signals, turnsSinceEscalation int) Decision {
	d := Decision{
		AvgSimilarity:   sig.AvgSimilarity,
		Tier1Confidence: sig.Tier1Confidence,
	}

	if IsTrivialSmalltalk(message) || IsGratitudeOrClosing(message) {
		return d
	}

	var reasons []string
	weakTier1 := false
	if sig.AvgSimilarity < e.cfg.MinSimilarity {
		reasons = append(reasons, ReasonLowRetrieval)
		weakTier1 = true
	}
	if sig.Tier1Confidence < e.cfg.MinSelfConfidence {
		reasons = append(reasons, ReasonLowConfidence)
		weakTier1 = true
	}
	if sig.Tier1RequestedWeb {
		reasons = append(reasons, ReasonTier1RequestedWeb)
		weakTier1 = true
	}

	cues := e.classifier.Classify(message)
	d.Fresh = cues.Fresh && e.cfg.EscalateOnFreshness
	d.ReasoningIntent = cues.ReasoningIntent && e.cfg.EscalateOnReasoningIntent

	if d.Fresh {
		reasons = append(reasons, ReasonFreshness)
	}
	if d.ReasoningIntent {
		reasons = append(reasons, ReasonReasoningIntent)
	}

	inCooldown := turnsSinceEscalation <= e.cfg.CooldownTurns
	if inCooldown {
		// Stricter inside the cooldown window: a cue alone is not
		// enough, tier-1 must also be struggling.
		d.Escalate = (d.Fresh || d.ReasoningIntent) && weakTier1
	} else {
		d.Escalate = d.Fresh || d.ReasoningIntent || weakTier1
	}

	d.Reasons = dedupeSorted(reasons)
	d.NeedsWeb = d.Escalate && e.cfg.UseWeb && d.Fresh
	return d
}

func dedupeSorted(reasons []string) []string {
	if len(reasons) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(reasons))
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
