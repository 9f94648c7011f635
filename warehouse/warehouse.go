// Package warehouse defines the collaborator contracts the lifecycle
// workflows depend on: schema introspection, dry-run SQL validation,
// and exploratory query execution. Implementations talk to whatever
// query service fronts the warehouse; the workflows depend only on
// these interfaces.
package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// Target identifies the warehouse scope a session operates against.
// Fixed at session start.
type Target struct {
	ProjectID string `json:"project_id"`
	DatasetID string `json:"dataset_id"`
}

// String returns the dotted project.dataset form.
func (t Target) String() string {
	return t.ProjectID + "." + t.DatasetID
}

// Column describes a single column in a table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table describes a warehouse table with a few sample rows for
// prompting.
type Table struct {
	Name       string     `json:"name"`
	Columns    []Column   `json:"columns"`
	SampleRows [][]string `json:"sample_rows,omitempty"`
}

// Schema is a snapshot of the tables visible in a target, captured once
// at session start and read-only thereafter.
type Schema struct {
	Target Target  `json:"target"`
	Tables []Table `json:"tables"`
}

// DDL renders the schema as CREATE TABLE text with sample rows in
// comments, the form the generation prompts expect.
func (s *Schema) DDL() string {
	var sb strings.Builder
	for i, t := range s.Tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "CREATE TABLE `%s.%s` (\n", s.Target.String(), t.Name)
		for j, c := range t.Columns {
			sep := ","
			if j == len(t.Columns)-1 {
				sep = ""
			}
			fmt.Fprintf(&sb, "  %s %s%s\n", c.Name, c.Type, sep)
		}
		sb.WriteString(");\n")
		for _, row := range t.SampleRows {
			fmt.Fprintf(&sb, "-- sample: %s\n", strings.Join(row, ", "))
		}
	}
	return sb.String()
}

// ErrorCategory classifies a validation failure.
type ErrorCategory string

const (
	// CategorySyntax marks SQL the engine could not parse.
	CategorySyntax ErrorCategory = "syntax"
	// CategorySemantic marks SQL that parsed but references unknown
	// tables, columns, or functions.
	CategorySemantic ErrorCategory = "semantic"
	// CategoryOther marks any other engine rejection.
	CategoryOther ErrorCategory = "other"
)

// ValidationError is the structured result of a failed dry-run. It is
// fed back into the next generation attempt verbatim.
type ValidationError struct {
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// SchemaProvider introspects the schema of a target. Called once per
// session to populate the session snapshot.
type SchemaProvider interface {
	GetSchema(ctx context.Context, target Target) (*Schema, error)
}

// Validator submits SQL to the warehouse's dry-run facility. A nil
// error means the statement is syntactically and semantically valid.
// Engine rejections come back as *ValidationError; transport failures
// as other error types.
type Validator interface {
	Validate(ctx context.Context, sql string, target Target) error
}

// Executor runs an exploratory question or statement against the
// warehouse and returns a tabular or natural-language answer.
type Executor interface {
	Execute(ctx context.Context, questionOrSQL string, target Target) (string, error)
}
