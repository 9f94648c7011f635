package nl2sql

import (
	"context"

	"github.com/c360studio/dqagent/llm"
)

// Chase generates SQL by prompting the model to decompose the question
// into sub-questions before assembling the final statement. Slower than
// Baseline but more reliable on multi-clause checks.
type Chase struct {
	client llm.Completer
	cfg    Config
}

// Generate produces a candidate SQL statement.
func (c *Chase) Generate(ctx context.Context, req Request) (string, error) {
	return complete(ctx, c.client, c.cfg, chaseSystemPrompt(req.Schema), userPrompt(req))
}
