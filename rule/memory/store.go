// Package memory provides an in-memory rule store for development and
// tests. Safe for concurrent use across sessions.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/c360studio/dqagent/rule"
)

// Store implements rule.Store with a map guarded by a mutex. Create
// checks and inserts under the same lock, so duplicate detection is
// race-free.
type Store struct {
	mu    sync.RWMutex
	rules map[string]rule.Rule
	clock clockwork.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for record timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		rules: make(map[string]rule.Rule),
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new rule, failing if the name is taken.
func (s *Store) Create(_ context.Context, r rule.Rule) (*rule.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[r.Name]; exists {
		return nil, fmt.Errorf("create rule %q: %w", r.Name, rule.ErrDuplicateName)
	}

	now := s.clock.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.rules[r.Name] = r

	stored := r
	return &stored, nil
}

// Search returns all rules matching the filter.
func (s *Store) Search(_ context.Context, f rule.Filter) ([]rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []rule.Rule
	for _, r := range s.rules {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Update replaces the description of an existing rule.
func (s *Store) Update(_ context.Context, name, description string) (*rule.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rules[name]
	if !exists {
		return nil, fmt.Errorf("update rule %q: %w", name, rule.ErrNotFound)
	}

	r.Description = description
	r.UpdatedAt = s.clock.Now()
	s.rules[name] = r

	updated := r
	return &updated, nil
}

// Delete removes a rule by exact name.
func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[name]; !exists {
		return fmt.Errorf("delete rule %q: %w", name, rule.ErrNotFound)
	}
	delete(s.rules, name)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
