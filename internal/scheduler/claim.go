package scheduler

import (
	"context"
	"sync"
)

// MemoryClaimer is an in-memory JobClaimer for tests.
type MemoryClaimer struct {
	mu      sync.Mutex
	lastRun map[string]string // job -> last claimed date
}

// NewMemoryClaimer creates an empty in-memory claimer.
func NewMemoryClaimer() *MemoryClaimer {
	return &MemoryClaimer{lastRun: make(map[string]string)}
}

// Claim advances the job's date marker, succeeding only when the marker has
// not yet reached the date.
func (m *MemoryClaimer) Claim(ctx context.Context, job, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.lastRun[job]; ok && last >= date {
		return false, nil
	}
	m.lastRun[job] = date
	return true, nil
}
