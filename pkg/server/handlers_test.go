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
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/triage/pkg/ingest"
	"github.com/teradata-labs/triage/pkg/llm"
	"github.com/teradata-labs/triage/pkg/orchestrator"
)

type fakeChat struct {
	resp orchestrator.ChatResponse
	err  error
}

func (f *fakeChat) HandleChat(ctx context.Context, userID, message, namespace string) (orchestrator.ChatResponse, error) {
	return f.resp, f.err
}

type fakeScanner struct {
	totals ingest.ScanTotals
	err    error
}

func (f *fakeScanner) ScanAll(ctx context.Context) (ingest.ScanTotals, error) {
	return f.totals, f.err
}

func testHandlers(t *testing.T, chat ChatHandler, scanner Scanner) (*Handlers, string) {
	t.Helper()
	root := t.TempDir()
	return NewHandlers(chat, scanner, Dirs{
		Uploads:  filepath.Join(root, "uploads"),
		Messages: filepath.Join(root, "messages"),
		Links:    filepath.Join(root, "links"),
	}), root
}

func TestChatEndpoint(t *testing.T) {
	chat := &fakeChat{resp: orchestrator.ChatResponse{
		Tier:      llm.Tier1,
		Answer:    "all good",
		Citations: []string{"doc.md"},
	}}
	h, _ := testHandlers(t, chat, nil)

	body := `{"user_id": "alice", "message": "hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp orchestrator.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, llm.Tier1, resp.Tier)
	assert.Equal(t, "all good", resp.Answer)
}

func TestChatValidation(t *testing.T) {
	h, _ := testHandlers(t, &fakeChat{}, nil)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"GET rejected", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid JSON", http.MethodPost, "{not json", http.StatusBadRequest},
		{"missing user_id", http.MethodPost, `{"message": "hi"}`, http.StatusBadRequest},
		{"missing message", http.MethodPost, `{"user_id": "alice"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Chat(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestChatPipelineFailureHidesDetails(t *testing.T) {
	chat := &fakeChat{err: errors.New("tier-2 completion: model overloaded at 10.0.0.5")}
	h, _ := testHandlers(t, chat, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id": "a", "message": "m"}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestTeachStoresMessage(t *testing.T) {
	h, root := testHandlers(t, &fakeChat{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/teach",
		strings.NewReader(`{"text": "refunds take 5 days", "namespace": "billing"}`))
	rec := httptest.NewRecorder()
	h.Teach(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	entries, err := os.ReadDir(filepath.Join(root, "messages", "billing"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(filepath.Join(root, "messages", "billing", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "refunds take 5 days", string(content))
}

func TestTeachRejectsEmptyText(t *testing.T) {
	h, _ := testHandlers(t, &fakeChat{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/teach", strings.NewReader(`{"text": "   "}`))
	rec := httptest.NewRecorder()
	h.Teach(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadStoresFiles(t *testing.T) {
	h, root := testHandlers(t, &fakeChat{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("namespace", "docs"))
	fw, err := mw.CreateFormFile("file", "guide.md")
	require.NoError(t, err)
	_, err = fw.Write([]byte("# Guide"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	content, err := os.ReadFile(filepath.Join(root, "uploads", "docs", "guide.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Guide", string(content))
}

func TestLinksAppended(t *testing.T) {
	h, root := testHandlers(t, &fakeChat{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/links",
		strings.NewReader(`{"urls": ["https://example.com/a", "https://example.com/b"]}`))
	rec := httptest.NewRecorder()
	h.Links(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	content, err := os.ReadFile(filepath.Join(root, "links", "links.txt"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a\nhttps://example.com/b\n", string(content))
}

func TestScanEndpoint(t *testing.T) {
	scanner := &fakeScanner{totals: ingest.ScanTotals{Docs: 3, Links: 1, Failures: 2}}
	h, _ := testHandlers(t, &fakeChat{}, scanner)

	req := httptest.NewRequest(http.MethodPost, "/ingest/scan", nil)
	rec := httptest.NewRecorder()
	h.Scan(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var totals map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &totals))
	assert.Equal(t, 3, totals["docs"])
	assert.Equal(t, 1, totals["links"])
	assert.Equal(t, 2, totals["failures"])
}

func TestScanDisabled(t *testing.T) {
	h, _ := testHandlers(t, &fakeChat{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/ingest/scan", nil)
	rec := httptest.NewRecorder()
	h.Scan(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	h, _ := testHandlers(t, &fakeChat{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestUIServed(t *testing.T) {
	h, _ := testHandlers(t, &fakeChat{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/ui", nil)
	rec := httptest.NewRecorder()
	h.UI(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Triage Chat")
}

func TestNamespaceDirSanitized(t *testing.T) {
	assert.Equal(t, "/base", namespaceDir("/base", ""))
	assert.Equal(t, "/base/ns", namespaceDir("/base", "ns"))
	// Traversal attempts collapse to their base name.
	assert.Equal(t, "/base/passwd", namespaceDir("/base", "../../etc/passwd"))
}
