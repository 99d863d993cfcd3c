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
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/triage/internal/log"
	"github.com/teradata-labs/triage/pkg/ingest"
	"github.com/teradata-labs/triage/pkg/retrieval"
	"github.com/teradata-labs/triage/pkg/web"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one knowledge-base scan and exit",
	Long:  `Scans the uploads, messages, and links directories once, indexing new or changed documents into the retrieval store.`,
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := log.Init(config.Logging.Level, config.Logging.Format); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	embedder := retrieval.NewOllamaEmbedder(retrieval.EmbedderConfig{
		Endpoint: config.LLM.Endpoint,
		Model:    config.Retrieval.EmbedModel,
	})
	store, err := retrieval.OpenStore(retrieval.StoreConfig{
		Path:         config.Retrieval.DBPath,
		ChunkSize:    config.Retrieval.ChunkSize,
		ChunkOverlap: config.Retrieval.ChunkOverlap,
	}, embedder)
	if err != nil {
		return fmt.Errorf("open retrieval store: %w", err)
	}
	defer store.Close()

	scanner := ingest.NewScanner(ingest.ScannerConfig{
		UploadsDir:       config.Ingest.UploadsDir,
		MessagesDir:      config.Ingest.MessagesDir,
		LinksDir:         config.Ingest.LinksDir,
		LinksCacheDir:    config.Ingest.LinksCacheDir,
		StatePath:        config.Retrieval.DBPath + ".ingest.json",
		DefaultNamespace: config.Ingest.DefaultNamespace,
	}, store, web.NewFetcher(web.Config{}))

	totals, err := scanner.ScanAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("scan complete: %d documents, %d links, %d failures\n",
		totals.Docs, totals.Links, totals.Failures)
	return nil
}
