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
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/triage/internal/log"
	"github.com/teradata-labs/triage/pkg/ingest"
	"github.com/teradata-labs/triage/pkg/orchestrator"
)

//go:embed ui.html
var uiHTML []byte

// maxUploadSize caps a single multipart upload (25MB).
const maxUploadSize = 25 * 1024 * 1024

// ChatHandler runs one chat turn.
type ChatHandler interface {
	HandleChat(ctx context.Context, userID, message, namespace string) (orchestrator.ChatResponse, error)
}

// Scanner runs one knowledge-base scan.
type Scanner interface {
	ScanAll(ctx context.Context) (ingest.ScanTotals, error)
}

// Dirs tells the handlers where teach messages, uploads, and link
// lists live on disk.
type Dirs struct {
	Uploads  string
	Messages string
	Links    string
}

// Handlers implements the HTTP endpoints.
type Handlers struct {
	chat    ChatHandler
	scanner Scanner
	dirs    Dirs
}

// NewHandlers creates the endpoint set. scanner may be nil, which
// disables /ingest/scan.
func NewHandlers(chat ChatHandler, scanner Scanner, dirs Dirs) *Handlers {
	return &Handlers{chat: chat, scanner: scanner, dirs: dirs}
}

type chatRequest struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Namespace string `json:"namespace,omitempty"`
}

// Chat handles POST /chat.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}

	resp, err := h.chat.HandleChat(r.Context(), req.UserID, req.Message, req.Namespace)
	if err != nil {
		// Details go to the log, not the caller.
		log.Error("chat turn failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "the assistant is unavailable right now, please try again")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type teachRequest struct {
	Text      string `json:"text"`
	Namespace string `json:"namespace,omitempty"`
}

// Teach handles POST /teach: appends free-form text to the messages
// directory for the next scan to pick up.
func (h *Handlers) Teach(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req teachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	dir := namespaceDir(h.dirs.Messages, req.Namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "cannot store message")
		return
	}
	name := fmt.Sprintf("teach-%d.txt", time.Now().UnixNano())
	if err := os.WriteFile(filepath.Join(dir, name), []byte(req.Text), 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, "cannot store message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored", "file": name})
}

// Upload handles POST /upload (multipart): saves files into the
// uploads directory for the next scan.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	namespace := r.FormValue("namespace")
	dir := namespaceDir(h.dirs.Uploads, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "cannot store upload")
		return
	}

	var saved []string
	for _, headers := range r.MultipartForm.File {
		for _, hdr := range headers {
			name := filepath.Base(hdr.Filename)
			if name == "" || name == "." {
				continue
			}
			src, err := hdr.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "cannot read uploaded file")
				return
			}
			dst, err := os.Create(filepath.Join(dir, name))
			if err != nil {
				src.Close()
				writeError(w, http.StatusInternalServerError, "cannot store upload")
				return
			}
			_, err = io.Copy(dst, src)
			src.Close()
			dst.Close()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "cannot store upload")
				return
			}
			saved = append(saved, name)
		}
	}
	if len(saved) == 0 {
		writeError(w, http.StatusBadRequest, "no files in upload")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "stored", "files": saved})
}

type linksRequest struct {
	URLs      []string `json:"urls"`
	Namespace string   `json:"namespace,omitempty"`
}

// Links handles POST /links: appends URLs to a link-list file.
func (h *Handlers) Links(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req linksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}

	dir := namespaceDir(h.dirs.Links, req.Namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "cannot store links")
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "links.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot store links")
		return
	}
	defer f.Close()
	for _, u := range req.URLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, err := fmt.Fprintln(f, u); err != nil {
			writeError(w, http.StatusInternalServerError, "cannot store links")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "stored", "count": len(req.URLs)})
}

// Scan handles POST /ingest/scan: one synchronous scan pass.
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if h.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion is disabled")
		return
	}
	totals, err := h.scanner.ScanAll(r.Context())
	if err != nil {
		log.Error("scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"docs":     totals.Docs,
		"links":    totals.Links,
		"failures": totals.Failures,
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// UI serves the embedded single-page chat client.
func (h *Handlers) UI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(uiHTML)
}

// namespaceDir joins a base dir with an optional namespace subdir.
// Path separators in the namespace are rejected by flattening to the
// base dir.
func namespaceDir(base, namespace string) string {
	namespace = filepath.Base(strings.TrimSpace(namespace))
	if namespace == "" || namespace == "." || namespace == string(filepath.Separator) {
		return base
	}
	return filepath.Join(base, namespace)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
