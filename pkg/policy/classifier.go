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
package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// Cues are the intent signals extracted from a message.
type Cues struct {
	// Fresh indicates the user needs time-sensitive/current information.
	Fresh bool
	// ReasoningIntent indicates the user needs multi-step/deep reasoning.
	ReasoningIntent bool
}

// Classifier extracts cues from a message. The default implementation is
// regex-driven; the interface exists so a model-based classifier can
// replace it without touching the policy engine.
type Classifier interface {
	Classify(message string) Cues
}

// RegexClassifier matches configurable pattern lists against the message.
type RegexClassifier struct {
	fresh     []*regexp.Regexp
	reasoning []*regexp.Regexp
}

// NewRegexClassifier compiles the configured pattern lists. An invalid
// pattern is a configuration error and must abort startup.
func NewRegexClassifier(freshPatterns, reasoningPatterns []string) (*RegexClassifier, error) {
	fresh, err := compileAll(freshPatterns)
	if err != nil {
		return nil, fmt.Errorf("needs_freshness_patterns: %w", err)
	}
	reasoning, err := compileAll(reasoningPatterns)
	if err != nil {
		return nil, fmt.Errorf("reasoning_intent_patterns: %w", err)
	}
	return &RegexClassifier{fresh: fresh, reasoning: reasoning}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Classify reports which cue patterns the message matches.
func (c *RegexClassifier) Classify(message string) Cues {
	return Cues{
		Fresh:           matchAny(c.fresh, message),
		ReasoningIntent: matchAny(c.reasoning, message),
	}
}

func matchAny(patterns []*regexp.Regexp, message string) bool {
	for _, re := range patterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

// smalltalkVocab is the fixed vocabulary of short greetings that never
// escalate, regardless of any other signal.
var smalltalkVocab = map[string]struct{}{
	"hi":             {},
	"hey":            {},
	"hello":          {},
	"hi there":       {},
	"hey there":      {},
	"yo":             {},
	"sup":            {},
	"hiya":           {},
	"hola":           {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
}

// maxSmalltalkLen bounds the vocabulary lookup so long messages that
// happen to start with a greeting are not swallowed.
const maxSmalltalkLen = 20

// gratitudePatterns match short thanks/acknowledgement/closing messages,
// each optionally followed by "." or "!".
var gratitudePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^thanks[.!]?$`),
	regexp.MustCompile(`^thank you[.!]?$`),
	regexp.MustCompile(`^thx[.!]?$`),
	regexp.MustCompile(`^ty[.!]?$`),
	regexp.MustCompile(`^ok(ay)?[.!]?$`),
	regexp.MustCompile(`^got it[.!]?$`),
	regexp.MustCompile(`^cool[.!]?$`),
	regexp.MustCompile(`^bye[.!]?$`),
	regexp.MustCompile(`^goodbye[.!]?$`),
	regexp.MustCompile(`^see you[.!]?$`),
}

// IsTrivialSmalltalk reports whether the message is a short greeting.
func IsTrivialSmalltalk(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	if len(m) > maxSmalltalkLen {
		return false
	}
	_, ok := smalltalkVocab[m]
	return ok
}

// IsGratitudeOrClosing reports whether the message is a thanks or a
// conversation closing.
func IsGratitudeOrClosing(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	for _, re := range gratitudePatterns {
		if re.MatchString(m) {
			return true
		}
	}
	return false
}
