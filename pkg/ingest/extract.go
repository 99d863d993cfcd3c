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
package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/teradata-labs/triage/internal/htmltext"
)

// MaxDocumentSize caps how large a file ingestion will read (50MB).
const MaxDocumentSize = 50 * 1024 * 1024

// docExts lists extensions treated as ingestible documents. Anything
// else in a scanned directory is skipped silently.
var docExts = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".html": true,
	".htm":  true,
}

// IsDocument reports whether path has an ingestible extension.
func IsDocument(path string) bool {
	return docExts[strings.ToLower(filepath.Ext(path))]
}

// FileText extracts plain text from a document file. PDFs go through
// ledongthuc/pdf, HTML through the shared tokenizer, everything else
// is read as-is.
func FileText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > MaxDocumentSize {
		return "", fmt.Errorf("file too large: %d bytes", info.Size())
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfText(path)
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return htmltext.Extract(bytes.NewReader(data)), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func pdfText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// One bad page should not lose the rest of the document.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("pdf has no extractable text")
	}
	return sb.String(), nil
}
