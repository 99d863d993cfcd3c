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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTrivialSmalltalk(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"hi", true},
		{"Hello", true},
		{"  hey there  ", true},
		{"GOOD MORNING", true},
		{"hola", true},
		{"hi, can you help me with my invoice", false},
		{"hello my account is locked", false},
		{"what is the weather", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTrivialSmalltalk(tt.message), "message %q", tt.message)
	}
}

func TestIsGratitudeOrClosing(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"thanks", true},
		{"Thanks!", true},
		{"thank you.", true},
		{"thx", true},
		{"ty", true},
		{"ok", true},
		{"okay!", true},
		{"got it", true},
		{"bye", true},
		{"see you", true},
		{"thanks, but one more question", false},
		{"ok so about my refund", false},
		{"goodbye cruel world", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsGratitudeOrClosing(tt.message), "message %q", tt.message)
	}
}

func TestRegexClassifier(t *testing.T) {
	c, err := NewRegexClassifier(
		[]string{`(?i)\blatest\b`},
		[]string{`(?i)\bcompare\b`},
	)
	require.NoError(t, err)

	cues := c.Classify("what is the LATEST release")
	assert.True(t, cues.Fresh)
	assert.False(t, cues.ReasoningIntent)

	cues = c.Classify("compare the latest plans")
	assert.True(t, cues.Fresh)
	assert.True(t, cues.ReasoningIntent)

	cues = c.Classify("how do I reset my password")
	assert.False(t, cues.Fresh)
	assert.False(t, cues.ReasoningIntent)
}

func TestRegexClassifierInvalidPattern(t *testing.T) {
	_, err := NewRegexClassifier([]string{`(unclosed`}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs_freshness_patterns")

	_, err = NewRegexClassifier(nil, []string{`[bad`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reasoning_intent_patterns")
}

func TestRegexClassifierEmptyPatterns(t *testing.T) {
	c, err := NewRegexClassifier(nil, nil)
	require.NoError(t, err)
	cues := c.Classify("anything at all")
	assert.False(t, cues.Fresh)
	assert.False(t, cues.ReasoningIntent)
}
