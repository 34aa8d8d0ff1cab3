// Package session keeps calculator flows addressable by ID and persists their
// snapshots so a user can resume after a restart.
package session

import (
	"context"
	"errors"
	"sync"

	"lcp-engine/internal/engine"
)

var ErrNotFound = errors.New("session not found")

// Store persists flow snapshots by session ID.
type Store interface {
	Save(ctx context.Context, id string, snap engine.Snapshot) error
	Load(ctx context.Context, id string) (engine.Snapshot, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// MemoryStore keeps snapshots in process memory. Used when no database path
// is configured and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]engine.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]engine.Snapshot)}
}

func (s *MemoryStore) Save(_ context.Context, id string, snap engine.Snapshot) error {
	snap.FormData = snap.FormData.Clone()
	s.mu.Lock()
	s.snaps[id] = snap
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[id]
	if !ok {
		return engine.Snapshot{}, ErrNotFound
	}
	snap.FormData = snap.FormData.Clone()
	return snap, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[id]; !ok {
		return ErrNotFound
	}
	delete(s.snaps, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
