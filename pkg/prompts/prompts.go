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

// Package prompts holds the tier-1 and tier-2 prompt templates and the
// template interpolation helper.
package prompts

import "github.com/teradata-labs/triage/pkg/llm"

// Tier1System instructs the fast responder to return a JSON self-report.
const Tier1System = `You are a concise, friendly customer support agent.

Rules:
- Use the provided company/documentation context when it is relevant.
- If the user is greeting or making small talk and context is not needed, you may respond conversationally.
- Always return a JSON object ONLY (no extra text), with keys:
  {
    "answer": "<short helpful answer>",
    "confidence": <float 0..1>,
    "needs_web": <true|false>,
    "reasons": ["brief reason 1", "brief reason 2"]
  }
- Do NOT reveal chain-of-thought.`

const tier1UserTemplate = `User said:
{{.user_message}}

Relevant context (from internal docs):
{{.context}}

Return JSON ONLY (no prose outside JSON).`

// Tier2System instructs the deep-reasoning responder.
const Tier2System = `You are a deeper reasoning agent.
- Think privately; do NOT reveal chain-of-thought.
- You may receive web snippets prepared by the orchestrator.
- Synthesize a clear, correct answer. If you cite sources, use bracketed numbers [1], [2] that correspond to the sources list the app shows the user.
- End with: "For this specific question, please also consult a human."
Return your final prose answer only.`

const tier2UserTemplate = `User message:
{{.user_message}}

Retrieved internal context:
{{.retrieved_context}}

Difficulty report (from Tier-1):
{{.difficulty_report}}

Optional web context:
{{.web_context}}

Write the best final answer you can with clear steps and plain language.`

// Tier1 builds the tier-1 prompt from the user message and retrieved context.
func Tier1(userMessage, context string) llm.Prompt {
	return llm.Prompt{
		System: Tier1System,
		User: Interpolate(tier1UserTemplate, map[string]interface{}{
			"user_message": userMessage,
			"context":      context,
		}),
	}
}

// Tier2 builds the tier-2 prompt from the user message, retrieved context,
// the serialized difficulty report, and optional web context.
func Tier2(userMessage, retrievedContext, difficultyReport, webContext string) llm.Prompt {
	return llm.Prompt{
		System: Tier2System,
		User: Interpolate(tier2UserTemplate, map[string]interface{}{
			"user_message":      userMessage,
			"retrieved_context": retrievedContext,
			"difficulty_report": difficultyReport,
			"web_context":       webContext,
		}),
	}
}
