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

// Package retrieval stores knowledge-base chunks with embeddings in
// SQLite and ranks them by cosine similarity against a query embedding.
// Collections are partitioned by namespace.
package retrieval

// Passage is one ranked retrieval result.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Document is a unit of ingestion: a source identifier and its full text.
type Document struct {
	Source string
	Text   string
}

// DefaultNamespace is used when a request does not name a namespace.
const DefaultNamespace = "default"

// Normalize maps an empty namespace to the default.
func Normalize(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}
	return namespace
}
