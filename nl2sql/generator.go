// Package nl2sql turns natural-language questions into candidate SQL.
// Two strategies exist, selected once at construction time: a baseline
// single-shot prompt and a divide-and-conquer "chase" prompt. Both are
// stateless; error feedback from failed validation rounds is carried in
// the request, not in the generator.
package nl2sql

import (
	"context"
	"fmt"

	"github.com/c360studio/dqagent/llm"
	"github.com/c360studio/dqagent/warehouse"
)

// Method selects a generation strategy.
type Method string

const (
	// MethodBaseline is the single-shot generation prompt.
	MethodBaseline Method = "baseline"
	// MethodChase decomposes the question into sub-questions before
	// assembling the final statement.
	MethodChase Method = "chase"
)

// Request carries everything a generation round needs. PriorError is
// the structured validation error from the previous round, if any;
// Feedback is free-text revision guidance from the user.
type Request struct {
	Question   string
	Schema     *warehouse.Schema
	PriorError *warehouse.ValidationError
	Feedback   string
}

// Generator produces a candidate SQL statement from a request. It never
// executes or validates SQL; callers own the validation loop.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config holds generation settings shared by both strategies.
type Config struct {
	// Temperature for generation calls. The original agent runs near
	// deterministic.
	Temperature float64

	// MaxTokens limits the response length. 0 uses the endpoint default.
	MaxTokens int
}

// DefaultConfig returns generation defaults.
func DefaultConfig() Config {
	return Config{
		Temperature: 0.1,
		MaxTokens:   2048,
	}
}

// New creates a generator for the given method.
func New(method Method, client llm.Completer, cfg Config) (Generator, error) {
	switch method {
	case MethodBaseline, "":
		return &Baseline{client: client, cfg: cfg}, nil
	case MethodChase:
		return &Chase{client: client, cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown nl2sql method: %s", method)
	}
}

// complete runs one completion and extracts the SQL from the response.
func complete(ctx context.Context, client llm.Completer, cfg Config, system, user string) (string, error) {
	temp := cfg.Temperature
	resp, err := client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temp,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generation call: %w", err)
	}

	sql := llm.ExtractSQL(resp.Content)
	if sql == "" {
		return "", fmt.Errorf("no SQL statement in generation response")
	}
	return sql, nil
}
