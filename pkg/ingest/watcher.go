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
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teradata-labs/triage/internal/log"
)

// debounceWindow coalesces bursts of filesystem events into one rescan.
const debounceWindow = 2 * time.Second

// Watcher reruns the scanner on a schedule and when watched
// directories change. Both triggers funnel into the same serialized
// scan loop, so two triggers never run scans concurrently.
type Watcher struct {
	scanner  *Scanner
	interval time.Duration
	dirs     []string
}

// NewWatcher creates a watcher over the scanner's directories.
// interval <= 0 disables periodic scans; an empty dirs list disables
// filesystem watching.
func NewWatcher(scanner *Scanner, interval time.Duration, dirs []string) *Watcher {
	return &Watcher{scanner: scanner, interval: interval, dirs: dirs}
}

// Run blocks until ctx is cancelled, rescanning on the configured
// interval and on debounced directory changes. An initial scan runs
// immediately.
func (w *Watcher) Run(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	kick := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	var sched *cron.Cron
	if w.interval > 0 {
		sched = cron.New()
		spec := fmt.Sprintf("@every %ds", int(w.interval.Seconds()))
		if _, err := sched.AddFunc(spec, kick); err != nil {
			return fmt.Errorf("schedule scan: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	if len(w.dirs) > 0 {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create filesystem watcher: %w", err)
		}
		defer fw.Close()
		for _, dir := range w.dirs {
			if dir == "" {
				continue
			}
			if err := fw.Add(dir); err != nil {
				// A missing directory is not fatal; it may appear later
				// and the periodic scan still covers it.
				log.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			}
		}
		go w.debounce(ctx, fw, kick)
	}

	kick()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trigger:
			if _, err := w.scanner.ScanAll(ctx); err != nil {
				log.Error("scan failed", zap.Error(err))
			}
		}
	}
}

// debounce forwards filesystem events as scan triggers, coalescing
// rapid bursts (editors and uploads produce several events per file).
func (w *Watcher) debounce(ctx context.Context, fw *fsnotify.Watcher, kick func()) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, kick)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Warn("filesystem watcher error", zap.Error(err))
		}
	}
}
