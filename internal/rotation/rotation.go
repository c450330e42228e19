// Package rotation implements fair cyclic selection for promotional
// listings. A persisted shuffle order and cursor per category guarantee that
// every eligible id is drawn exactly once per full cycle before any id
// repeats, which plain random sampling would not.
package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/townwire/townwire/internal/models"
)

// Store persists rotation state per category. Save must replace the whole
// (cursor, order) pair atomically.
type Store interface {
	Get(ctx context.Context, category string) (*models.RotationState, error)
	Save(ctx context.Context, state models.RotationState) error
}

// Selector draws ids from a category in persisted shuffle order.
type Selector struct {
	store   Store
	logger  *slog.Logger
	shuffle func(n int, swap func(i, j int))
	now     func() time.Time
}

// NewSelector builds a rotation selector over the given store.
func NewSelector(store Store, logger *slog.Logger) *Selector {
	return &Selector{
		store:   store,
		logger:  logger,
		shuffle: rand.Shuffle,
		now:     time.Now,
	}
}

// Draw returns the next id for the category. When the persisted shuffle is
// exhausted (or absent) a fresh uniform permutation of the eligible ids is
// generated and the cursor reset. Ids that dropped out of the eligible set
// since the shuffle was persisted are skipped. Returns "" without error when
// no eligible ids exist.
func (s *Selector) Draw(ctx context.Context, category string, eligible []string) (string, error) {
	if len(eligible) == 0 {
		return "", nil
	}

	state, err := s.store.Get(ctx, category)
	if err != nil {
		return "", fmt.Errorf("load rotation state: %w", err)
	}

	known := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		known[id] = true
	}

	for {
		if state.Exhausted() {
			state = s.reshuffle(category, eligible)
		}

		id := state.Order[state.Cursor]
		state.Cursor++

		if !known[id] {
			// Dropped from the pool since this shuffle was persisted.
			continue
		}

		state.UpdatedAt = s.now()
		if err := s.store.Save(ctx, *state); err != nil {
			return "", fmt.Errorf("save rotation state: %w", err)
		}
		return id, nil
	}
}

// DrawN draws up to n distinct ids, fewer when the eligible pool is smaller.
func (s *Selector) DrawN(ctx context.Context, category string, eligible []string, n int) ([]string, error) {
	if n > len(eligible) {
		n = len(eligible)
	}

	out := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(out) < n {
		id, err := s.Draw(ctx, category, eligible)
		if err != nil {
			return out, err
		}
		if id == "" {
			break
		}
		if seen[id] {
			// A full cycle completed mid-call; stop rather than repeat.
			break
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func (s *Selector) reshuffle(category string, eligible []string) *models.RotationState {
	order := make([]string, len(eligible))
	copy(order, eligible)
	s.shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	s.logger.Debug("rotation reshuffled", "category", category, "pool", len(order))
	return &models.RotationState{
		Category: category,
		Cursor:   0,
		Order:    order,
	}
}
