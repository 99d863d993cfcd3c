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

// Package llm defines the completion provider interface shared by all
// backends (Ollama, Anthropic). The orchestrator depends only on this
// package, so backends stay pluggable.
package llm

import "context"

// Tier identifies which answer tier a completion request is for.
type Tier string

const (
	// Tier1 is the fast retrieval-augmented responder.
	Tier1 Tier = "tier1"
	// Tier2 is the slower deep-reasoning responder invoked on escalation.
	Tier2 Tier = "tier2"
)

// Prompt is the two-part prompt structure sent to a provider.
type Prompt struct {
	System string
	User   string
}

// Provider defines the interface for completion backends.
// Implementations must honor context cancellation and apply a bounded
// request timeout of their own.
type Provider interface {
	// Complete sends a prompt to the model configured for the given tier
	// and returns the raw generated text.
	Complete(ctx context.Context, tier Tier, prompt Prompt) (string, error)

	// Name returns the provider name.
	Name() string

	// Model returns the model identifier used for the given tier.
	Model(tier Tier) string
}
