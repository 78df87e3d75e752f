package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/mcpclient"
	"github.com/askdb/askdb/internal/schema"
)

// loadConfig resolves the effective configuration: defaults, then the YAML
// file viper located, then ASKDB_* environment overrides for the common
// knobs, then the --verbose flag.
func loadConfig() (config.Config, error) {
	cfg := config.Default()

	path := cfgFile
	if path == "" {
		path = viper.ConfigFileUsed()
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if v := viper.GetString("model.name"); v != "" {
		cfg.Model.Name = v
	}
	if v := viper.GetString("model.endpoint"); v != "" {
		cfg.Model.Endpoint = v
	}
	if v := viper.GetInt("agent.max_attempts"); v > 0 {
		cfg.Agent.MaxAttempts = v
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// newLogger builds the session logger: colorized tint output on a terminal,
// plain text otherwise. Verbose mode lowers the level to Debug, which is
// where every intermediate prompt and raw model response lands.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	} else if cfg.Logging.Level == "warn" {
		level = slog.LevelWarn
	}

	if term.IsTerminal(int(os.Stderr.Fd())) && cfg.Logging.Format != "text" {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// connectTool builds and connects the execution client. Callers own Close.
func connectTool(ctx context.Context, cfg config.Config, logger *slog.Logger) (*mcpclient.Client, error) {
	tool := mcpclient.New(mcpclient.Config{
		Transport: cfg.Tool.Transport,
		Command:   cfg.Tool.Command,
		Args:      cfg.Tool.Args,
		URL:       cfg.Tool.URL,
		QueryTool: cfg.Tool.QueryTool,
	}, appVersion, logger)

	if err := tool.Connect(ctx); err != nil {
		return nil, err
	}
	return tool, nil
}

// buildDescriptor produces the session's schema descriptor: discovered from
// the tool server when configured, the static config block otherwise.
// Discovery failures fall back to the static block when one exists.
func buildDescriptor(ctx context.Context, cfg config.Config, tool *mcpclient.Client, logger *slog.Logger) (*schema.Descriptor, error) {
	if cfg.Schema.Discover {
		desc, err := schema.Discover(ctx, tool, cfg.Schema.Notes, logger)
		if err == nil {
			logger.Info("schema discovered from tool server", "tables", desc.TableNames())
			return desc, nil
		}
		if len(cfg.Schema.Tables) == 0 {
			return nil, fmt.Errorf("schema discovery failed and no static schema is configured: %w", err)
		}
		logger.Warn("schema discovery failed, using static schema", "error", err)
	}
	return schema.New(cfg.Schema.Tables, cfg.Schema.Notes)
}

// newModelClient builds the inference client from configuration.
func newModelClient(cfg config.Config) (*llm.Client, error) {
	return llm.New(llm.Config{
		Endpoint:    cfg.Model.Endpoint,
		Model:       cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
		ContextSize: cfg.Model.ContextSize,
		Timeout:     cfg.Model.Timeout.Std(),
	})
}
