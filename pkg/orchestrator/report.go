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
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FallbackReason tags reports synthesized from unparseable tier-1
// output.
const FallbackReason = "unparseable self-report"

// fallbackAnswer is used when the raw tier-1 output is empty too.
const fallbackAnswer = "I'm not fully sure."

// Tier1Report is the tier-1 model's self-assessment. Confidence is
// expected in [0,1] but not enforced.
type Tier1Report struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	NeedsWeb   bool     `json:"needs_web"`
	Reasons    []string `json:"reasons"`
}

// tier1ReportSchema rejects payloads that decode but carry the wrong
// shapes (e.g. a string confidence). Extra keys are tolerated.
const tier1ReportSchema = `{
	"type": "object",
	"properties": {
		"answer":     {"type": "string"},
		"confidence": {"type": "number"},
		"needs_web":  {"type": "boolean"},
		"reasons":    {"type": "array", "items": {"type": "string"}}
	}
}`

var reportSchemaLoader = gojsonschema.NewStringLoader(tier1ReportSchema)

// ParseTier1Report parses raw tier-1 output into a report. Models
// often wrap JSON in markdown fences, so those are stripped first.
// Any parse or schema failure degrades to a fallback report carrying
// the raw text as the answer; parsing never returns an error.
func ParseTier1Report(raw string) Tier1Report {
	cleaned := stripFences(raw)

	var report Tier1Report
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return fallbackReport(raw)
	}

	docLoader := gojsonschema.NewStringLoader(cleaned)
	result, err := gojsonschema.Validate(reportSchemaLoader, docLoader)
	if err != nil || !result.Valid() {
		return fallbackReport(raw)
	}

	if report.Reasons == nil {
		report.Reasons = []string{}
	}
	return report
}

func fallbackReport(raw string) Tier1Report {
	answer := strings.TrimSpace(raw)
	if answer == "" {
		answer = fallbackAnswer
	}
	return Tier1Report{
		Answer:     answer,
		Confidence: 0,
		NeedsWeb:   false,
		Reasons:    []string{FallbackReason},
	}
}

// stripFences removes a surrounding markdown code fence, with or
// without a json language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
