package nl2sql

import (
	"context"

	"github.com/c360studio/dqagent/llm"
)

// Baseline generates SQL with a single-shot prompt.
type Baseline struct {
	client llm.Completer
	cfg    Config
}

// Generate produces a candidate SQL statement.
func (b *Baseline) Generate(ctx context.Context, req Request) (string, error) {
	return complete(ctx, b.client, b.cfg, baselineSystemPrompt(req.Schema), userPrompt(req))
}
