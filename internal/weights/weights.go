// Package weights manages the versioned weight sets behind scoring and
// impact assessment. Analyzers only ever suggest changes; Promote is the
// single place a suggestion becomes live.
package weights

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// ErrWrongSet is returned when a suggestion targets a different set than
// the one being promoted into.
var ErrWrongSet = errors.New("suggestion targets a different weight set")

// Manager loads, seeds, and promotes weight sets.
type Manager struct {
	store  storage.WeightStore
	now    func() time.Time
	logger *log.Logger
}

// NewManager creates a manager. The clock is injectable for tests; nil
// means time.Now.
func NewManager(store storage.WeightStore, now func() time.Time, logger *log.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: store, now: now, logger: logger}
}

// Load returns the named set, falling back to the built-in defaults when
// nothing has been stored yet. The fallback is not persisted; Seed does
// that explicitly.
func (m *Manager) Load(ctx context.Context, name string) (*domain.WeightSet, error) {
	ws, err := m.store.Get(ctx, name)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load weight set %q: %w", name, err)
	}

	defaults, err := defaultsFor(name)
	if err != nil {
		return nil, err
	}
	return defaults, nil
}

// Seed stores the default sets for any name not yet present. Existing sets
// are left alone so a restart never rolls back a promotion.
func (m *Manager) Seed(ctx context.Context) error {
	for _, name := range []string{domain.WeightSetComposite, domain.WeightSetFunnelImpact} {
		_, err := m.store.Get(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("seed weight set %q: %w", name, err)
		}

		defaults, err := defaultsFor(name)
		if err != nil {
			return err
		}
		defaults.UpdatedAt = m.now()
		if err := m.store.Put(ctx, defaults); err != nil {
			return fmt.Errorf("seed weight set %q: %w", name, err)
		}
		if m.logger != nil {
			m.logger.Printf("seeded default weight set %q v%d", name, defaults.Version)
		}
	}
	return nil
}

// Promote applies accepted suggestions to the named set, bumping its
// version once. Suggestions carrying the investigate flag or targeting
// another set are rejected rather than skipped, so a caller can never
// half-apply a batch by accident.
func (m *Manager) Promote(ctx context.Context, name string, suggestions []domain.WeightSuggestion) (*domain.WeightSet, error) {
	if len(suggestions) == 0 {
		return nil, errors.New("no suggestions to promote")
	}
	for _, s := range suggestions {
		if s.SetName != name {
			return nil, fmt.Errorf("%w: %q into %q", ErrWrongSet, s.SetName, name)
		}
		if s.Flag != "" {
			return nil, fmt.Errorf("suggestion for %q is flagged %q, resolve before promoting", s.Signal, s.Flag)
		}
	}

	current, err := m.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	changed := false
	for _, s := range suggestions {
		if next.Weights[s.Signal] != s.Suggested {
			next.Weights[s.Signal] = s.Suggested
			changed = true
		}
	}
	if !changed {
		return current, nil
	}

	next.Version = current.Version + 1
	next.UpdatedAt = m.now()
	if err := m.store.Put(ctx, next); err != nil {
		return nil, fmt.Errorf("promote weight set %q: %w", name, err)
	}

	if m.logger != nil {
		m.logger.Printf("promoted weight set %q to v%d (%d signals changed)", name, next.Version, len(suggestions))
	}
	return next, nil
}

func defaultsFor(name string) (*domain.WeightSet, error) {
	switch name {
	case domain.WeightSetComposite:
		return domain.DefaultCompositeWeights(), nil
	case domain.WeightSetFunnelImpact:
		return domain.DefaultFunnelImpactWeights(), nil
	default:
		return nil, fmt.Errorf("unknown weight set %q", name)
	}
}
