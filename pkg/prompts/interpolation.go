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
package prompts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var placeholderRe = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// Interpolate performs variable substitution in a prompt template.
//
// Uses {{.variable_name}} syntax (like Go templates but simpler). Values
// are sanitized before insertion: null bytes, invalid UTF-8, and control
// characters other than newline and tab are stripped. Newlines are kept
// because retrieved context and web snippets are multi-line blocks.
//
// Example:
//
//	template := "User said:\n{{.user_message}}"
//	result := Interpolate(template, map[string]interface{}{
//	    "user_message": "how do I reset my password?",
//	})
func Interpolate(template string, vars map[string]interface{}) string {
	if vars == nil {
		return template
	}

	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}}"), "{{.")

		value, ok := vars[varName]
		if !ok {
			// Keep placeholder if variable not provided
			return match
		}
		return sanitizeValue(value)
	})
}

// sanitizeValue converts a value to string and strips hostile bytes.
func sanitizeValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return sanitizeString(v)
	case int, int64, int32, float64, float32:
		return fmt.Sprintf("%v", v)
	case bool:
		return fmt.Sprintf("%t", v)
	case []string:
		escaped := make([]string, len(v))
		for i, s := range v {
			escaped[i] = sanitizeString(s)
		}
		return strings.Join(escaped, ", ")
	default:
		return sanitizeString(fmt.Sprintf("%v", v))
	}
}

// sanitizeString removes null bytes, invalid UTF-8, and control characters
// except newline and tab.
func sanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
