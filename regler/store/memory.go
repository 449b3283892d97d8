// Package store provides BeregningStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	byID      map[string]regler.Beregning
	byLogical map[string][]string // logical id -> beregning ids, ordered by CreatedAt
}

var _ regler.BeregningStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		byID:      make(map[string]regler.Beregning),
		byLogical: make(map[string][]string),
	}
}

// Append adds a calculation. Append-only. The store keeps its own copy, and
// reads return copies, so the log cannot be changed through a returned value.
func (m *Memory) Append(_ context.Context, b regler.Beregning) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[b.ID]; exists {
		return regler.ErrDuplicateBeregning
	}
	m.byID[b.ID] = b.Clone()

	ids := m.byLogical[b.LogicalID]
	// Binary search for insertion point keeps the list ordered by CreatedAt.
	i := sort.Search(len(ids), func(i int) bool {
		return m.byID[ids[i]].CreatedAt.After(b.CreatedAt)
	})
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = b.ID
	m.byLogical[b.LogicalID] = ids
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (regler.Beregning, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.byID[id]
	if !ok {
		return regler.Beregning{}, regler.ErrBeregningNotFound
	}
	return b.Clone(), nil
}

func (m *Memory) ListByLogicalID(_ context.Context, logicalID string) ([]regler.Beregning, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byLogical[logicalID]
	result := make([]regler.Beregning, len(ids))
	for i, id := range ids {
		result[i] = m.byID[id].Clone()
	}
	return result, nil
}
