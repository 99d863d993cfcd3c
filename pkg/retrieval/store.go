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
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	namespace  TEXT NOT NULL,
	source     TEXT NOT NULL,
	content    TEXT NOT NULL,
	embedding  TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunks_namespace ON chunks(namespace);
`

// SQLiteStore persists chunks and their embeddings in a single SQLite
// database and ranks them in Go by cosine similarity.
type SQLiteStore struct {
	db           *sql.DB
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
}

// StoreConfig holds SQLiteStore configuration.
type StoreConfig struct {
	Path         string // Required: database file path
	ChunkSize    int    // Default: 800 words
	ChunkOverlap int    // Default: 120 words
}

// OpenStore opens (or creates) the SQLite-backed retrieval store.
func OpenStore(cfg StoreConfig, embedder Embedder) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("retrieval: database path is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: embedder is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// WAL keeps readers from blocking the ingestion writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{
		db:           db,
		embedder:     embedder,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ingest chunks and embeds the given documents into a namespace and
// returns the number of chunks stored. Chunk IDs derive from
// source::index, so re-ingesting a document overwrites its old chunks.
func (s *SQLiteStore) Ingest(ctx context.Context, docs []Document, namespace string) (int, error) {
	ns := Normalize(namespace)
	total := 0
	for _, doc := range docs {
		chunks := Chunk(doc.Text, s.chunkSize, s.chunkOverlap)
		for idx, chunk := range chunks {
			vec, err := s.embedder.Embed(ctx, chunk)
			if err != nil {
				return total, fmt.Errorf("embed chunk %d of %s: %w", idx, doc.Source, err)
			}
			encoded, err := json.Marshal(vec)
			if err != nil {
				return total, fmt.Errorf("encode embedding: %w", err)
			}

			id := chunkID(ns, doc.Source, idx)
			_, err = s.db.ExecContext(ctx,
				"INSERT OR REPLACE INTO chunks (id, namespace, source, content, embedding) VALUES (?, ?, ?, ?, ?)",
				id, ns, doc.Source, chunk, string(encoded),
			)
			if err != nil {
				return total, fmt.Errorf("store chunk: %w", err)
			}
			total++
		}
	}
	return total, nil
}

// Retrieve embeds the query and returns the topK most similar passages
// in the namespace, ordered by descending score. An empty namespace
// means the default namespace; an empty index yields an empty result,
// not an error.
func (s *SQLiteStore) Retrieve(ctx context.Context, query string, topK int, namespace string) ([]Passage, error) {
	if topK <= 0 {
		topK = 5
	}
	ns := Normalize(namespace)

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT content, source, embedding FROM chunks WHERE namespace = ?", ns)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var content, source, encoded string
		if err := rows.Scan(&content, &source, &encoded); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(encoded), &vec); err != nil {
			// A corrupt embedding should not poison the whole query.
			continue
		}
		passages = append(passages, Passage{
			Text:   content,
			Source: source,
			Score:  cosineSimilarity(queryVec, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
	if len(passages) > topK {
		passages = passages[:topK]
	}
	return passages, nil
}

// chunkID is stable for a (namespace, source, index) triple so
// re-ingesting a document replaces its old chunks in place.
func chunkID(namespace, source string, idx int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s::%s::%d", namespace, source, idx)))
	return fmt.Sprintf("%x", sum)
}
