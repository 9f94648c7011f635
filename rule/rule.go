// Package rule defines data quality rule records and the persistence
// contract the lifecycle workflows depend on.
package rule

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Store errors. Implementations must return these (possibly wrapped) so
// workflows can distinguish conflicts from transient failures.
var (
	// ErrDuplicateName is returned by Create when a rule with the same
	// name already exists. The existing record is never overwritten.
	ErrDuplicateName = errors.New("rule name already exists")

	// ErrNotFound is returned by Update and Delete when no rule with the
	// given name exists.
	ErrNotFound = errors.New("rule not found")
)

// Rule is a persisted data quality rule: a named, described SQL
// statement encoding a quality check against warehouse data.
type Rule struct {
	// Name uniquely identifies the rule. Case-sensitive, immutable once
	// created.
	Name string `json:"name"`

	// Description is free text explaining what the rule checks.
	Description string `json:"description"`

	// SQL is the validated statement implementing the rule.
	SQL string `json:"sql"`

	// DatasetID and ProjectID scope the rule to a warehouse target.
	// Always supplied from session context, never from generated text.
	DatasetID string `json:"dataset_id"`
	ProjectID string `json:"project_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter selects rules in a Search call. Zero-value fields are ignored;
// the zero Filter matches nothing unless All is set.
type Filter struct {
	// Name matches rules whose name contains this substring
	// (case-insensitive).
	Name string `json:"name,omitempty"`

	// Keyword matches rules whose name or description contains this
	// substring (case-insensitive).
	Keyword string `json:"keyword,omitempty"`

	// All selects every rule.
	All bool `json:"all,omitempty"`
}

// Matches reports whether r satisfies the filter. Stores may return a
// superset of matching rules; callers re-filter with this before
// presenting results.
func (f Filter) Matches(r Rule) bool {
	if f.All {
		return true
	}
	if f.Name != "" && strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Name)) {
		return true
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if strings.Contains(strings.ToLower(r.Name), kw) ||
			strings.Contains(strings.ToLower(r.Description), kw) {
			return true
		}
	}
	return false
}

// Empty reports whether the filter selects nothing.
func (f Filter) Empty() bool {
	return !f.All && f.Name == "" && f.Keyword == ""
}

// Store is the persistence contract for rules. Each operation is atomic
// with respect to a single record; implementations must make Create's
// duplicate detection race-free under concurrent sessions.
type Store interface {
	// Create persists a new rule. Returns ErrDuplicateName if a rule
	// with the same name exists.
	Create(ctx context.Context, r Rule) (*Rule, error)

	// Search returns rules matching the filter. Implementations may
	// return a superset; an empty result is not an error.
	Search(ctx context.Context, f Filter) ([]Rule, error)

	// Update replaces the description of an existing rule. Name and SQL
	// are never changed. Returns ErrNotFound if the name is absent.
	Update(ctx context.Context, name, description string) (*Rule, error)

	// Delete removes a rule by exact name. Returns ErrNotFound if the
	// name is absent.
	Delete(ctx context.Context, name string) error

	// Close releases store resources.
	Close() error
}
