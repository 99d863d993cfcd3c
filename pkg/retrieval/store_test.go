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
	"hash/fnv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder derives a deterministic vector from the text so tests
// run without an Ollama server. Identical texts get identical vectors.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	vec := make([]float32, 16)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)) / float32(1<<30)
	}
	return vec, nil
}

func (hashEmbedder) Name() string { return "hash" }

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenStore(StoreConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		ChunkSize:    50,
		ChunkOverlap: 10,
	}, hashEmbedder{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenStoreValidation(t *testing.T) {
	_, err := OpenStore(StoreConfig{}, hashEmbedder{})
	require.Error(t, err)

	_, err = OpenStore(StoreConfig{Path: "x.db"}, nil)
	require.Error(t, err)
}

func TestIngestAndRetrieve(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	docs := []Document{
		{Source: "accounts.md", Text: "Password resets happen from the account settings page."},
		{Source: "billing.md", Text: "Invoices are generated monthly and emailed to the owner."},
	}
	n, err := store.Ingest(ctx, docs, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The exact query text of a chunk is its own nearest neighbor.
	passages, err := store.Retrieve(ctx, docs[0].Text, 2, "")
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "accounts.md", passages[0].Source)
	assert.InDelta(t, 1.0, passages[0].Score, 1e-6)
	assert.GreaterOrEqual(t, passages[0].Score, passages[1].Score)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	store := openTestStore(t)
	passages, err := store.Retrieve(context.Background(), "anything", 5, "")
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestNamespaceIsolation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Ingest(ctx, []Document{{Source: "a.md", Text: "tenant a document"}}, "tenant-a")
	require.NoError(t, err)
	_, err = store.Ingest(ctx, []Document{{Source: "b.md", Text: "tenant b document"}}, "tenant-b")
	require.NoError(t, err)

	passages, err := store.Retrieve(ctx, "tenant a document", 10, "tenant-a")
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "a.md", passages[0].Source)
}

func TestReingestReplacesChunks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Ingest(ctx, []Document{{Source: "doc.md", Text: "original text"}}, "")
	require.NoError(t, err)
	_, err = store.Ingest(ctx, []Document{{Source: "doc.md", Text: "updated text"}}, "")
	require.NoError(t, err)

	passages, err := store.Retrieve(ctx, "updated text", 10, "")
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "updated text", passages[0].Text)
}

func TestRetrieveTopKLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	docs := make([]Document, 8)
	for i := range docs {
		docs[i] = Document{Source: "s", Text: words(5) + " " + string(rune('a'+i))}
	}
	_, err := store.Ingest(ctx, docs, "")
	require.NoError(t, err)

	passages, err := store.Retrieve(ctx, "query", 3, "")
	require.NoError(t, err)
	assert.Len(t, passages, 3)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestNormalizeNamespace(t *testing.T) {
	assert.Equal(t, DefaultNamespace, Normalize(""))
	assert.Equal(t, "tenant-a", Normalize("tenant-a"))
}
