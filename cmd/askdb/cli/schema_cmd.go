package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/schema"
)

func newSchemaCmd() *cobra.Command {
	var discover bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema descriptor the agent prompts with",
		Long: `Render the schema block exactly as it is injected into model prompts.
With --discover, the schema is introspected live through the tool server's
list_tables and describe_table tools instead of read from configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(discover)
		},
	}

	cmd.Flags().BoolVar(&discover, "discover", false, "Introspect the schema through the tool server")

	return cmd
}

func runSchema(discover bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if !discover {
		desc, err := schema.New(cfg.Schema.Tables, cfg.Schema.Notes)
		if err != nil {
			return fmt.Errorf("no usable schema in configuration: %w", err)
		}
		fmt.Print(desc.Render())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tool, err := connectTool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tool.Close()

	desc, err := schema.Discover(ctx, tool, cfg.Schema.Notes, logger)
	if err != nil {
		return fmt.Errorf("schema discovery failed: %w", err)
	}
	fmt.Print(desc.Render())
	return nil
}
