package nl2sql

import (
	"fmt"
	"strings"

	"github.com/c360studio/dqagent/warehouse"
)

// baselineSystemPrompt returns the system prompt for single-shot SQL
// generation against a schema snapshot.
func baselineSystemPrompt(schema *warehouse.Schema) string {
	return fmt.Sprintf(`You are a SQL expert translating natural language questions into SQL for a data warehouse.

## Rules

- Use only the tables and columns in the schema below
- Produce exactly one statement
- Do not invent project or dataset identifiers; use the fully qualified table names from the schema as given
- Output the statement inside a single %s code block and nothing else

## Schema

%s`, "```sql```", schema.DDL())
}

// chaseSystemPrompt returns the system prompt for decomposed generation.
// The model is asked to break the question into sub-questions, draft
// partial queries, then assemble one final statement.
func chaseSystemPrompt(schema *warehouse.Schema) string {
	return fmt.Sprintf(`You are a SQL expert translating natural language questions into SQL for a data warehouse.

## Process

1. Decompose the question into the smallest sub-questions that can each be answered with a clause or subquery
2. Draft the clause for each sub-question using only the schema below
3. Assemble the clauses into one final statement
4. Re-check every table and column reference against the schema

## Rules

- Use only the tables and columns in the schema below
- Produce exactly one final statement
- Do not invent project or dataset identifiers; use the fully qualified table names from the schema as given
- Show your decomposition briefly, then output the final statement inside a single %s code block

## Schema

%s`, "```sql```", schema.DDL())
}

// userPrompt assembles the per-round user message: the question plus
// any validation error and revision feedback from earlier rounds.
func userPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(req.Question)
	sb.WriteString("\n")

	if req.PriorError != nil {
		fmt.Fprintf(&sb, "\nYour previous attempt failed validation with a %s error:\n%s\n", req.PriorError.Category, req.PriorError.Message)
		sb.WriteString("Address the error and regenerate the statement.\n")
	}

	if req.Feedback != "" {
		fmt.Fprintf(&sb, "\nThe user asked for this revision:\n%s\n", req.Feedback)
	}

	return sb.String()
}
