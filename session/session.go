// Package session holds per-conversation state. A session processes
// one turn to completion before accepting the next: the orchestrator
// holds the Context's turn lock for the whole turn, so the fields carry
// no locking of their own. The Manager additionally guards the session
// map shared across conversations.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/c360studio/dqagent/warehouse"
)

// DraftKind distinguishes which mutating workflow a draft belongs to.
type DraftKind string

const (
	// DraftGenerate is an in-progress rule creation.
	DraftGenerate DraftKind = "generate"
	// DraftUpdate is an in-progress description update.
	DraftUpdate DraftKind = "update"
)

// Draft is an in-progress, unpersisted rule candidate. It exists only
// during an active generate or update workflow and is discarded on
// persistence, cancellation, or session end.
type Draft struct {
	Kind DraftKind

	// Name of the rule being created or updated.
	Name string

	// Description of what the rule checks (generate) or the replacement
	// description (update).
	Description string

	// RuleType is the requested check category for generation, e.g.
	// "null checks" or "unique counts".
	RuleType string

	// Question is the natural-language request driving generation.
	Question string

	// SQL is the current candidate statement.
	SQL string

	// Validated is set when SQL most recently passed the dry run.
	// Cleared whenever SQL changes.
	Validated bool

	// Approved is set when the user approved the exact SQL currently
	// held. Any revision clears it, even if the text comes back
	// unchanged.
	Approved bool

	// AwaitingName is set when persistence hit a name conflict and the
	// workflow is waiting for a different name. The validated SQL is
	// kept.
	AwaitingName bool

	// AwaitingDescription is set when an update workflow still needs
	// the replacement description.
	AwaitingDescription bool

	// PriorError is the validation error from the last failed round,
	// fed into the next generation call.
	PriorError *warehouse.ValidationError

	// Feedback is the user's revision guidance for the next round.
	Feedback string
}

// Context is the per-conversation mutable state. All fields are owned
// by whoever holds the turn lock.
type Context struct {
	// turnMu serializes turns. Concurrent requests for the same session
	// queue here; nothing below is safe to touch without it.
	turnMu sync.Mutex

	// ID identifies the session.
	ID string

	// Target is the warehouse scope, fixed at session start.
	Target warehouse.Target

	// Schema is the snapshot captured at session start. Read-only for
	// the session's lifetime.
	Schema *warehouse.Schema

	// Draft is the active rule draft, nil outside a generate/update
	// workflow.
	Draft *Draft

	// RetryCount counts generate/validate rounds in the current
	// workflow. Reset when a workflow starts.
	RetryCount int

	// CreatedAt is when the session started.
	CreatedAt time.Time
}

// Lock acquires the turn lock, blocking until any in-flight turn for
// this session completes.
func (c *Context) Lock() {
	c.turnMu.Lock()
}

// Unlock releases the turn lock.
func (c *Context) Unlock() {
	c.turnMu.Unlock()
}

// ClearDraft discards the active draft and retry counter. Callers hold
// the turn lock.
func (c *Context) ClearDraft() {
	c.Draft = nil
	c.RetryCount = 0
}

// Manager creates, looks up, and ends sessions. The schema snapshot is
// taken exactly once, at Start.
type Manager struct {
	schemas  warehouse.SchemaProvider
	target   warehouse.Target
	clock    clockwork.Clock
	mu       sync.RWMutex
	sessions map[string]*Context
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock sets the clock used for session timestamps.
func WithClock(c clockwork.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// NewManager creates a session manager for a fixed warehouse target.
func NewManager(schemas warehouse.SchemaProvider, target warehouse.Target, opts ...ManagerOption) *Manager {
	m := &Manager{
		schemas:  schemas,
		target:   target,
		clock:    clockwork.NewRealClock(),
		sessions: make(map[string]*Context),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates a new session, snapshotting the target schema.
func (m *Manager) Start(ctx context.Context) (*Context, error) {
	schema, err := m.schemas.GetSchema(ctx, m.target)
	if err != nil {
		return nil, fmt.Errorf("snapshot schema for %s: %w", m.target, err)
	}

	sess := &Context{
		ID:        uuid.New().String(),
		Target:    m.target,
		Schema:    schema,
		CreatedAt: m.clock.Now(),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	return sess, nil
}

// Get returns the session with the given ID, or nil if unknown.
func (m *Manager) Get(id string) *Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// End destroys a session and its draft, waiting for an in-flight turn
// to finish first. Ending an unknown session is a no-op.
func (m *Manager) End(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		sess.Lock()
		sess.ClearDraft()
		sess.Unlock()
	}
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
