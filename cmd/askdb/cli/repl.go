package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/askdb/askdb/internal/agent"
	"github.com/askdb/askdb/internal/render"
	"github.com/askdb/askdb/internal/session"
)

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive question-and-answer session",
		Long: `Read questions one line at a time, translate each into a single read-only
SQL statement, execute it through the tool server, and print the result.
Type 'exit' to quit.`,
		Example: `  askdb repl
  askdb repl --verbose
  echo "how many students are enrolled?" | askdb repl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
	return cmd
}

func runRepl() error {
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

	loop := session.New(os.Stdin, os.Stdout, ag, render.New(cfg.Agent.DisplayThreshold), logger)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		loop.Prompt = ""
	} else {
		fmt.Println("askdb ready. Type 'exit' to quit.")
		fmt.Println()
	}

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
