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
package retrieval

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize is the chunk window in words.
	DefaultChunkSize = 800
	// DefaultChunkOverlap is the word overlap between adjacent chunks.
	DefaultChunkOverlap = 120
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Chunk splits text into overlapping word windows. Empty chunks are
// dropped. size must be larger than overlap; callers get the defaults
// by passing zeros.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}

	words := whitespaceRe.Split(strings.TrimSpace(text), -1)
	var chunks []string
	for i := 0; i < len(words); i += size - overlap {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.TrimSpace(strings.Join(words[i:end], " "))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(words) {
			break
		}
	}
	return chunks
}
