// Package intent classifies an incoming user turn into one of the rule
// lifecycle operations. Classification is pure: no side effects, and
// ambiguous input maps to Clarify rather than an error.
package intent

import (
	"context"

	"github.com/c360studio/dqagent/rule"
	"github.com/c360studio/dqagent/session"
)

// Intent is a lifecycle operation requested by a user turn.
type Intent string

const (
	// Generate asks for a new rule to be created.
	Generate Intent = "generate"
	// Read asks to list or search existing rules.
	Read Intent = "read"
	// Update asks to change an existing rule's description.
	Update Intent = "update"
	// Delete asks to remove an existing rule.
	Delete Intent = "delete"
	// Explore is a free-form data question, executed read-only.
	Explore Intent = "explore"
	// Clarify means the turn lacks information required to proceed; the
	// orchestrator must re-prompt rather than guess.
	Clarify Intent = "clarify"
)

// Classification is the routing result for one turn, including the
// fields extracted from it.
type Classification struct {
	Intent Intent `json:"intent"`

	// RuleName is the rule being targeted (update/delete), if stated.
	RuleName string `json:"rule_name,omitempty"`

	// RuleType is the requested check category for generation
	// ("null checks", "formatting", ...), if stated.
	RuleType string `json:"rule_type,omitempty"`

	// Description is the requested rule description (generate) or the
	// replacement description (update), if stated.
	Description string `json:"description,omitempty"`

	// Filter is the search criteria for read.
	Filter rule.Filter `json:"filter,omitempty"`

	// Question is the free-form question for generate/explore.
	Question string `json:"question,omitempty"`

	// ClarifyPrompt is what to ask the user when Intent is Clarify.
	ClarifyPrompt string `json:"clarify_prompt,omitempty"`
}

// Router classifies a user turn given the session context. Ambiguity is
// expressed through the Clarify intent, never through an error; errors
// are reserved for collaborator failures.
type Router interface {
	Classify(ctx context.Context, turn string, sess *session.Context) (Classification, error)
}
