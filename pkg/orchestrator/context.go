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
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teradata-labs/triage/pkg/retrieval"
)

// DefaultContextTokenBudget bounds the retrieved context handed to a
// prompt.
const DefaultContextTokenBudget = 2000

// tokenCounter counts tokens with cl100k_base, a close enough
// approximation for both tiers' models.
type tokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

var (
	globalCounter *tokenCounter
	counterOnce   sync.Once
)

func getTokenCounter() *tokenCounter {
	counterOnce.Do(func() {
		tkm, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// Fall back to char-based estimation.
			globalCounter = &tokenCounter{encoder: nil}
			return
		}
		globalCounter = &tokenCounter{encoder: tkm}
	})
	return globalCounter
}

func (tc *tokenCounter) count(text string) int {
	if tc.encoder == nil {
		return len(text) / 4
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.encoder.Encode(text, nil, nil))
}

// buildContext renders passages as "[source] text" blocks, stopping
// once the token budget is spent. Passages arrive ranked, so the
// best context always survives truncation.
func buildContext(passages []retrieval.Passage, tokenBudget int) string {
	if tokenBudget <= 0 {
		tokenBudget = DefaultContextTokenBudget
	}
	tc := getTokenCounter()

	var blocks []string
	used := 0
	for _, p := range passages {
		block := fmt.Sprintf("[%s] %s", p.Source, p.Text)
		cost := tc.count(block)
		if used+cost > tokenBudget && len(blocks) > 0 {
			break
		}
		blocks = append(blocks, block)
		used += cost
		if used >= tokenBudget {
			break
		}
	}
	return strings.Join(blocks, "\n\n")
}

// avgSimilarity returns the mean passage score, 0 for no passages.
func avgSimilarity(passages []retrieval.Passage) float64 {
	if len(passages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range passages {
		sum += p.Score
	}
	return sum / float64(len(passages))
}

// citationSources lists passage sources in rank order, deduplicated.
func citationSources(passages []retrieval.Passage) []string {
	seen := make(map[string]bool, len(passages))
	var out []string
	for _, p := range passages {
		if p.Source == "" || seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		out = append(out, p.Source)
	}
	return out
}
