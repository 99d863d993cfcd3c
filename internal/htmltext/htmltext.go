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

// Package htmltext extracts readable text from HTML documents. Script
// and style contents are dropped, everything else is joined with
// single spaces.
package htmltext

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
}

// Extract tokenizes HTML from r and returns the visible text. A parse
// error mid-stream returns whatever text was collected up to that
// point; broken markup is common enough on real pages that partial
// text beats no text.
func Extract(r io.Reader) string {
	tok := html.NewTokenizer(r)
	var parts []string
	skipDepth := 0

	for {
		switch tok.Next() {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.StartTagToken:
			name, _ := tok.TagName()
			if skipElements[string(name)] {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			if skipElements[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tok.Text()))
			if text != "" {
				parts = append(parts, text)
			}
		}
	}
}
