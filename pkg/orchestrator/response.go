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

import "github.com/teradata-labs/triage/pkg/llm"

// DifficultyReport is the per-turn escalation metadata returned to
// callers alongside the answer.
type DifficultyReport struct {
	Escalated       bool     `json:"escalated"`
	Reasons         []string `json:"reasons"`
	AvgSimilarity   float64  `json:"avg_retrieval_similarity"`
	Tier1Confidence float64  `json:"tier1_confidence"`
	NeedsWeb        bool     `json:"needs_web"`
}

// ChatResponse is the final record for one chat turn. Citations list
// internal passage sources first, then web sources.
type ChatResponse struct {
	Tier             llm.Tier         `json:"tier"`
	Answer           string           `json:"answer"`
	Citations        []string         `json:"citations"`
	DifficultyReport DifficultyReport `json:"difficulty_report"`
}
