package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lcp-engine/internal/engine"
	"lcp-engine/internal/steps"
)

// Manager hands out live flows by session ID. Flows are cached in memory and
// written through to the store after every change; a flow missing from the
// cache is restored from its last snapshot. Idle flows are dropped from the
// cache by Evict.
type Manager struct {
	registry *steps.Registry
	valuator engine.Valuator
	store    Store
	log      *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	flows map[string]*liveFlow
}

type liveFlow struct {
	flow     *engine.Flow
	lastUsed time.Time
}

func NewManager(registry *steps.Registry, valuator engine.Valuator, store Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		registry: registry,
		valuator: valuator,
		store:    store,
		log:      log,
		now:      time.Now,
		flows:    make(map[string]*liveFlow),
	}
}

// Create starts a new flow on the first step and persists it.
func (m *Manager) Create(ctx context.Context) (string, *engine.Flow, error) {
	id := uuid.New().String()
	flow := engine.New(m.registry, m.valuator, m.log.With("session", id))
	if err := m.store.Save(ctx, id, flow.Snapshot()); err != nil {
		return "", nil, err
	}
	m.mu.Lock()
	m.flows[id] = &liveFlow{flow: flow, lastUsed: m.now()}
	m.mu.Unlock()
	m.log.Info("session created", "session", id)
	return id, flow, nil
}

// Get returns the live flow for id, restoring it from the store on a miss.
func (m *Manager) Get(ctx context.Context, id string) (*engine.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lf, ok := m.flows[id]; ok {
		lf.lastUsed = m.now()
		return lf.flow, nil
	}
	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	flow := engine.New(m.registry, m.valuator, m.log.With("session", id))
	flow.Restore(snap)
	m.flows[id] = &liveFlow{flow: flow, lastUsed: m.now()}
	m.log.Debug("session restored", "session", id, "step", snap.CurrentStep)
	return flow, nil
}

// Save writes the flow's current snapshot through to the store.
func (m *Manager) Save(ctx context.Context, id string, flow *engine.Flow) error {
	return m.store.Save(ctx, id, flow.Snapshot())
}

// Delete drops the session from the cache and the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, cached := m.flows[id]
	delete(m.flows, id)
	m.mu.Unlock()

	err := m.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) && cached {
		return nil
	}
	return err
}

// Evict drops flows unused for longer than maxIdle from the cache. Their
// snapshots stay in the store, so a later Get restores them. A flow with a
// valuation in flight is kept.
func (m *Manager) Evict(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, lf := range m.flows {
		if lf.lastUsed.After(cutoff) || lf.flow.State().Calculating {
			continue
		}
		delete(m.flows, id)
		n++
	}
	return n
}

// Live is the number of cached flows.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}

// RunEviction calls Evict every interval until ctx is done.
func (m *Manager) RunEviction(ctx context.Context, interval, maxIdle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Evict(maxIdle); n > 0 {
				m.log.Debug("evicted idle sessions", "count", n, "live", m.Live())
			}
		}
	}
}
