package rotation

import (
	"context"
	"sync"

	"github.com/townwire/townwire/internal/models"
)

// MemoryStore is an in-memory rotation Store for tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]models.RotationState
	Saves  int
}

// NewMemoryStore creates an empty in-memory rotation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]models.RotationState)}
}

// Get returns the stored state for a category, nil when none exists.
func (m *MemoryStore) Get(ctx context.Context, category string) (*models.RotationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[category]
	if !ok {
		return nil, nil
	}
	// Copy the order slice so callers cannot mutate stored state.
	out := state
	out.Order = append([]string(nil), state.Order...)
	return &out, nil
}

// Save replaces a category's state.
func (m *MemoryStore) Save(ctx context.Context, state models.RotationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state.Order = append([]string(nil), state.Order...)
	m.states[state.Category] = state
	m.Saves++
	return nil
}
