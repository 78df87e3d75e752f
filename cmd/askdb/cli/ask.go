package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/agent"
	"github.com/askdb/askdb/internal/render"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Long: `Resolve one natural-language question through the full translation loop and
print the answer. Exits non-zero when no answer could be produced.`,
		Example: `  askdb ask "list all students"
  askdb ask "how many students got an A in CS201?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(strings.Join(args, " "))
		},
	}
	return cmd
}

func runAsk(question string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tool, err := connectTool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tool.Close()

	desc, err := buildDescriptor(ctx, cfg, tool, logger)
	if err != nil {
		return err
	}

	model, err := newModelClient(cfg)
	if err != nil {
		return err
	}

	ag := agent.New(desc, model, tool, agent.Config{
		MaxAttempts:  cfg.Agent.MaxAttempts,
		MaxRows:      cfg.Agent.MaxRows,
		QueryTimeout: cfg.Tool.QueryTimeout.Std(),
	}, logger)

	outcome := ag.Resolve(ctx, question)
	fmt.Println(render.New(cfg.Agent.DisplayThreshold).Outcome(outcome))

	if outcome.Status != agent.StatusSucceeded {
		return fmt.Errorf("no answer after %d attempt(s)", outcome.Attempts)
	}
	return nil
}
