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

// Package session keeps per-user conversation state: the turn counter
// and the turn of the last tier-2 escalation. Sessions are created
// lazily and live for the process lifetime unless TTL eviction is
// enabled.
//
// The store is safe for concurrent use across user IDs. Requests for
// the same user ID are assumed to be serialized by the caller (one
// conversation is one sequential stream); two concurrent requests for
// the same user would race on turn numbering.
package session

import (
	"context"
	"sync"
	"time"
)

// SentinelEscalationTurn initializes lastEscalationTurn far below any
// real turn so a fresh session is never considered in cooldown.
const SentinelEscalationTurn = -999

// Store is the session state capability used by the orchestrator.
type Store interface {
	// BumpTurn increments and returns the user's turn counter,
	// creating the session on first reference.
	BumpTurn(userID string) int

	// MarkEscalation records that tier-2 fired at the given turn.
	MarkEscalation(userID string, turn int)

	// TurnsSinceLastEscalation returns the gap between the given turn
	// and the user's last escalation turn.
	TurnsSinceLastEscalation(userID string, turn int) int
}

type state struct {
	turn               int
	lastEscalationTurn int
	lastSeen           time.Time
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*state
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// Config holds MemoryStore configuration.
type Config struct {
	// TTL evicts sessions idle for longer than this. Zero disables
	// eviction (sessions live for the process lifetime).
	TTL time.Duration

	// EvictionInterval is how often the janitor sweeps. Default 1m
	// when TTL is set.
	EvictionInterval time.Duration
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(cfg Config) *MemoryStore {
	interval := cfg.EvictionInterval
	if cfg.TTL > 0 && interval == 0 {
		interval = time.Minute
	}
	return &MemoryStore{
		sessions: make(map[string]*state),
		ttl:      cfg.TTL,
		interval: interval,
		now:      time.Now,
	}
}

// BumpTurn increments and returns the user's turn counter.
func (s *MemoryStore) BumpTurn(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateLocked(userID)
	st.turn++
	st.lastSeen = s.now()
	return st.turn
}

// MarkEscalation records that tier-2 fired at the given turn.
func (s *MemoryStore) MarkEscalation(userID string, turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateLocked(userID)
	st.lastEscalationTurn = turn
	st.lastSeen = s.now()
}

// TurnsSinceLastEscalation returns the gap between the given turn and
// the user's last escalation turn.
func (s *MemoryStore) TurnsSinceLastEscalation(userID string, turn int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateLocked(userID)
	return turn - st.lastEscalationTurn
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle removes sessions idle for longer than the configured TTL
// and returns how many were evicted. No-op when TTL is disabled.
func (s *MemoryStore) EvictIdle() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, st := range s.sessions {
		if st.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Janitor sweeps idle sessions until the context is canceled. Returns
// immediately when TTL eviction is disabled.
func (s *MemoryStore) Janitor(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle()
		}
	}
}

func (s *MemoryStore) getOrCreateLocked(userID string) *state {
	st, ok := s.sessions[userID]
	if !ok {
		st = &state{lastEscalationTurn: SentinelEscalationTurn, lastSeen: s.now()}
		s.sessions[userID] = st
	}
	return st
}
