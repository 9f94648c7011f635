package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360studio/dqagent/llm"
	"github.com/c360studio/dqagent/rule"
	"github.com/c360studio/dqagent/session"
)

// LLMRouter classifies turns with a completion call that returns a JSON
// classification. Unparseable replies fall back to the keyword router,
// so classification itself never fails on ambiguous input.
type LLMRouter struct {
	client   llm.Completer
	fallback Router
	logger   *slog.Logger
}

// LLMRouterOption configures an LLMRouter.
type LLMRouterOption func(*LLMRouter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LLMRouterOption {
	return func(r *LLMRouter) {
		r.logger = logger
	}
}

// NewLLMRouter creates an LLM-backed router with a keyword fallback.
func NewLLMRouter(client llm.Completer, opts ...LLMRouterOption) *LLMRouter {
	r := &LLMRouter{
		client:   client,
		fallback: NewKeywordRouter(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const routerSystemPrompt = `You classify a user request about data quality rules into exactly one intent.

Intents:
- "generate": create a new rule. Requires a rule type (anomalies, formatting, null checks, unique counts, ...); without one, use "clarify".
- "read": list or search existing rules.
- "update": change an existing rule's description. Requires the rule name; without it, use "clarify".
- "delete": remove an existing rule. Requires the rule name; without it, use "clarify".
- "explore": a free-form question about the data itself, not about rules.
- "clarify": the request is ambiguous or missing a required field.

Reply with only a JSON object:
{
  "intent": "generate|read|update|delete|explore|clarify",
  "rule_name": "exact rule name if stated",
  "rule_type": "check category if stated",
  "description": "requested description if stated",
  "filter": {"name": "", "keyword": "", "all": false},
  "question": "the data question for generate/explore",
  "clarify_prompt": "what to ask the user when intent is clarify"
}`

// Classify routes a turn through the LLM, falling back to keyword
// heuristics when the reply cannot be parsed.
func (r *LLMRouter) Classify(ctx context.Context, turn string, sess *session.Context) (Classification, error) {
	temp := 0.0
	resp, err := r.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: routerSystemPrompt},
			{Role: "user", Content: turn},
		},
		Temperature: &temp,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("intent classification call: %w", err)
	}

	c, err := parseClassification(resp.Content)
	if err != nil {
		r.logger.Warn("Unparseable router reply, falling back to keywords", "error", err)
		return r.fallback.Classify(ctx, turn, sess)
	}

	// The question field drives downstream prompts; default it to the
	// raw turn so a sparse reply still carries the request.
	if c.Question == "" {
		c.Question = turn
	}
	return c, nil
}

// parseClassification extracts and validates the JSON classification.
func parseClassification(content string) (Classification, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return Classification{}, fmt.Errorf("no JSON object in reply")
	}

	var c Classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Classification{}, fmt.Errorf("decode classification: %w", err)
	}

	switch c.Intent {
	case Generate, Read, Update, Delete, Explore, Clarify:
	default:
		return Classification{}, fmt.Errorf("unknown intent %q", c.Intent)
	}

	// Required-field checks mirror the workflow contracts: the
	// orchestrator must never receive an underspecified mutation.
	switch c.Intent {
	case Update, Delete:
		if c.RuleName == "" {
			c = Classification{
				Intent:        Clarify,
				ClarifyPrompt: "Which rule? Please give its exact name.",
			}
		}
	case Read:
		if c.Filter.Empty() {
			c.Filter = rule.Filter{All: true}
		}
	}

	return c, nil
}
