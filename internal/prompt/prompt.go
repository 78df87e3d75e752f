// Package prompt composes the model prompt for one translation attempt.
// Building is a pure function of its inputs; each retry produces a fresh
// Context rather than mutating the previous one.
package prompt

import (
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/schema"
)

// Feedback carries the failed statement and the error message from a prior
// attempt, quoted back to the model as corrective context.
type Feedback struct {
	SQL     string
	Message string
}

// Options tune the instruction block.
type Options struct {
	// MaxRows is the row cap the instructions ask the model to respect.
	MaxRows int
}

// Context is one fully-composed prompt: the schema, the question, and any
// corrective feedback for this attempt. Immutable once built.
type Context struct {
	Question string
	Attempt  int
	Prior    *Feedback

	text string
}

// Text returns the rendered prompt string sent to the model.
func (c Context) Text() string {
	return c.text
}

// Build composes the prompt for one attempt. attempt is 1-based; prior is
// nil on the first attempt.
func Build(desc *schema.Descriptor, question string, prior *Feedback, attempt int, opts Options) Context {
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = 200
	}

	var b strings.Builder
	b.WriteString(desc.Render())
	b.WriteString("\n")

	fmt.Fprintf(&b, "User Question: %s\n\n", question)

	b.WriteString("Task: Generate a single valid SQL query that answers this question.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Only read queries: the statement must start with SELECT or WITH\n")
	b.WriteString("- Never emit INSERT, UPDATE, DELETE, DROP, ALTER, or any other write statement\n")
	b.WriteString("- Exactly one statement; no stacked queries separated by semicolons\n")
	b.WriteString("- No SQL comments\n")
	fmt.Fprintf(&b, "- Limit results to %d rows unless the question asks otherwise\n", maxRows)
	b.WriteString("- Return ONLY the SQL query, no explanation and no markdown\n")

	if prior != nil {
		b.WriteString("\nYour previous attempt failed.\n")
		if prior.SQL != "" {
			fmt.Fprintf(&b, "Failed statement:\n%s\n", prior.SQL)
		}
		fmt.Fprintf(&b, "Error: %s\n", prior.Message)
		b.WriteString("Fix the statement and return only the corrected SQL query.\n")
	}

	b.WriteString("\nSQL Query:")

	return Context{
		Question: question,
		Attempt:  attempt,
		Prior:    prior,
		text:     b.String(),
	}
}
