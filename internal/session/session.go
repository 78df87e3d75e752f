// Package session runs the interactive read-process-print loop. One
// question is fully resolved, through all its retries, before the next one
// is read; nothing but the schema descriptor is shared between turns.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/askdb/askdb/internal/agent"
	"github.com/askdb/askdb/internal/render"
)

// Resolver resolves one question into a terminal outcome.
type Resolver interface {
	Resolve(ctx context.Context, question string) agent.Outcome
}

// exitTokens end the session when typed on their own.
var exitTokens = map[string]bool{
	"exit": true,
	"quit": true,
	"bye":  true,
}

// Loop is one interactive session.
type Loop struct {
	in       io.Reader
	out      io.Writer
	resolver Resolver
	format   render.Formatter
	stats    *Stats
	// Prompt is printed before each read; empty when input is piped.
	Prompt string
	logger *slog.Logger
}

// New builds a Loop reading questions from in and writing answers to out.
func New(in io.Reader, out io.Writer, resolver Resolver, format render.Formatter, logger *slog.Logger) *Loop {
	return &Loop{
		in:       in,
		out:      out,
		resolver: resolver,
		format:   format,
		stats:    NewStats(),
		Prompt:   "Question: ",
		logger:   logger,
	}
}

// Run reads questions until an exit token, EOF, or context cancellation.
// A fatal turn is printed like any other outcome and the loop keeps going;
// a single bad turn never ends the session.
func (l *Loop) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(l.in)
	defer func() { l.logger.Info("session finished", l.stats.Summary()...) }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.Prompt != "" {
			fmt.Fprint(l.out, l.Prompt)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read question: %w", err)
			}
			fmt.Fprintln(l.out)
			return nil
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if exitTokens[strings.ToLower(question)] {
			fmt.Fprintln(l.out, "Goodbye")
			return nil
		}

		outcome := l.resolver.Resolve(ctx, question)
		l.stats.Record(outcome)
		l.logger.Debug("turn finished",
			"status", outcome.Status.String(),
			"attempts", outcome.Attempts,
			"elapsed", outcome.Elapsed)

		fmt.Fprintf(l.out, "\n%s\n\n", l.format.Outcome(outcome))
	}
}
