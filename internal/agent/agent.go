// Package agent drives one question through the translate-validate-execute
// loop: prompt the model, extract and classify its SQL, run it through the
// tool server, and feed failures back to the model up to a bounded number
// of attempts.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/mcpclient"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/schema"
)

// Generator produces raw model text for one prompt.
type Generator interface {
	Generate(ctx context.Context, promptText string) (string, error)
}

// Executor runs one validated SQL statement against the tool server.
type Executor interface {
	Query(ctx context.Context, sql string) (*mcpclient.Result, error)
}

// Status is the terminal state of one turn.
type Status int

const (
	// StatusSucceeded means a statement executed and produced a result set.
	StatusSucceeded Status = iota
	// StatusExhausted means every attempt up to the limit failed in a
	// retryable way. The last failure message is preserved.
	StatusExhausted
	// StatusFatal means infrastructure failed (model or tool server down);
	// retrying the translation would not help.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusExhausted:
		return "exhausted"
	default:
		return "fatal"
	}
}

// Outcome is the result of resolving one question, consumed immediately for
// display. No turn-to-turn state survives it.
type Outcome struct {
	Status   Status
	Attempts int
	SQL      string
	Result   *mcpclient.Result
	Err      string
	Elapsed  time.Duration
}

// Config tunes the loop.
type Config struct {
	MaxAttempts  int
	MaxRows      int
	QueryTimeout time.Duration
}

// Agent resolves questions against a fixed schema descriptor. One Agent
// serves one session; the descriptor is the only shared state and it is
// read-only.
type Agent struct {
	desc   *schema.Descriptor
	gen    Generator
	exec   Executor
	cfg    Config
	logger *slog.Logger
}

// New builds an Agent.
func New(desc *schema.Descriptor, gen Generator, exec Executor, cfg Config, logger *slog.Logger) *Agent {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	return &Agent{desc: desc, gen: gen, exec: exec, cfg: cfg, logger: logger}
}

// Resolve runs the full drafting/execution state machine for one question.
// Retryable failures (disallowed or unparseable statements, SQL errors) are
// absorbed here and fed back to the model; only exhaustion and
// infrastructure failures surface in the Outcome.
func (a *Agent) Resolve(ctx context.Context, question string) Outcome {
	start := time.Now()
	logger := a.logger.With("turn", uuid.NewString())

	var prior *prompt.Feedback

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		pctx := prompt.Build(a.desc, question, prior, attempt, prompt.Options{MaxRows: a.cfg.MaxRows})
		logger.Debug("drafting", "attempt", attempt, "prompt", pctx.Text())

		raw, err := a.gen.Generate(ctx, pctx.Text())
		if err != nil {
			return a.fatal(logger, start, attempt, modelFailure(err))
		}
		logger.Debug("model response", "attempt", attempt, "raw", raw)

		stmt := query.Extract(raw)
		logger.Debug("extracted statement",
			"attempt", attempt, "kind", stmt.Kind.String(), "sql", stmt.SQL)

		if stmt.Kind != query.KindSelect {
			// Never reaches the tool server; synthesize feedback instead.
			prior = &prompt.Feedback{SQL: stmt.SQL, Message: stmt.Reason()}
			continue
		}

		res, err := a.execute(ctx, stmt.SQL)
		if err == nil {
			logger.Info("query succeeded", "attempt", attempt, "rows", len(res.Rows))
			return Outcome{
				Status:   StatusSucceeded,
				Attempts: attempt,
				SQL:      stmt.SQL,
				Result:   res,
				Elapsed:  time.Since(start),
			}
		}

		var execErr *mcpclient.ExecError
		if errors.As(err, &execErr) && execErr.Kind == mcpclient.KindSQL {
			logger.Debug("execution rejected", "attempt", attempt, "error", execErr.Message)
			prior = &prompt.Feedback{SQL: stmt.SQL, Message: execErr.Message}
			continue
		}
		return a.fatal(logger, start, attempt, fmt.Sprintf("tool server failure: %v", err))
	}

	lastErr := "the model never produced an executable statement"
	if prior != nil {
		lastErr = prior.Message
	}
	logger.Warn("retries exhausted", "attempts", a.cfg.MaxAttempts, "last_error", lastErr)
	return Outcome{
		Status:   StatusExhausted,
		Attempts: a.cfg.MaxAttempts,
		Err:      lastErr,
		Elapsed:  time.Since(start),
	}
}

// execute runs one statement under the configured query timeout.
func (a *Agent) execute(ctx context.Context, sql string) (*mcpclient.Result, error) {
	if a.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.QueryTimeout)
		defer cancel()
	}
	return a.exec.Query(ctx, sql)
}

func (a *Agent) fatal(logger *slog.Logger, start time.Time, attempt int, msg string) Outcome {
	logger.Error("turn failed", "attempt", attempt, "error", msg)
	return Outcome{
		Status:   StatusFatal,
		Attempts: attempt,
		Err:      msg,
		Elapsed:  time.Since(start),
	}
}

// modelFailure words a model-side error for the user.
func modelFailure(err error) string {
	if errors.Is(err, llm.ErrUnavailable) {
		return fmt.Sprintf("the model endpoint is unreachable: %v", err)
	}
	var svcErr *llm.ServiceError
	if errors.As(err, &svcErr) {
		return fmt.Sprintf("the model service failed: %v", svcErr)
	}
	return fmt.Sprintf("model request failed: %v", err)
}
