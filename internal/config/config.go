// Package config defines the static configuration for the askdb agent.
// Everything is loaded once at startup and passed into components by value;
// there is no global mutable configuration state.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/askdb/askdb/internal/schema"
)

// Config is the top-level askdb configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Tool    ToolConfig    `yaml:"tool"`
	Agent   AgentConfig   `yaml:"agent"`
	Schema  SchemaConfig  `yaml:"schema"`
	Verbose bool          `yaml:"verbose"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig controls the language-model inference endpoint.
type ModelConfig struct {
	Name        string   `yaml:"name"`
	Endpoint    string   `yaml:"endpoint"`
	Temperature float64  `yaml:"temperature"`
	ContextSize int      `yaml:"context_size"`
	Timeout     Duration `yaml:"timeout"`
}

// ToolConfig controls the connection to the tool-protocol (MCP) server
// that runs SQL on the agent's behalf.
type ToolConfig struct {
	// Transport is "stdio" (spawn Command as a subprocess) or "http".
	Transport string   `yaml:"transport"`
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	URL       string   `yaml:"url"`
	// QueryTool is the name of the tool that executes one SQL statement.
	QueryTool    string   `yaml:"query_tool"`
	QueryTimeout Duration `yaml:"query_timeout"`
}

// AgentConfig controls the translation/retry loop.
type AgentConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	// DisplayThreshold is the row count above which results are summarized
	// instead of rendered as a full table.
	DisplayThreshold int `yaml:"display_threshold"`
	// MaxRows is the row cap the prompt asks the model to respect.
	MaxRows int `yaml:"max_rows"`
}

// SchemaConfig holds the static schema descriptor and the discovery switch.
type SchemaConfig struct {
	// Discover builds the descriptor from the tool server's introspection
	// tools at startup instead of the static block below.
	Discover bool           `yaml:"discover"`
	Tables   []schema.Table `yaml:"tables"`
	Notes    []string       `yaml:"notes"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config pre-filled with working defaults: a local Ollama
// endpoint and the official postgres MCP server in stdio mode.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Name:        "llama3.2:3b",
			Endpoint:    "http://127.0.0.1:11434",
			Temperature: 0.1,
			ContextSize: 2048,
			Timeout:     Duration(120 * time.Second),
		},
		Tool: ToolConfig{
			Transport:    "stdio",
			Command:      "mcp-server-postgres",
			QueryTool:    "query",
			QueryTimeout: Duration(30 * time.Second),
		},
		Agent: AgentConfig{
			MaxAttempts:      3,
			DisplayThreshold: 50,
			MaxRows:          200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads a YAML configuration file over the defaults. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before
// parsing, so DSNs and endpoints can stay out of the file itself.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	content := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the agent cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Model.Name) == "" {
		return fmt.Errorf("model.name is required")
	}
	if strings.TrimSpace(c.Model.Endpoint) == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	switch c.Tool.Transport {
	case "stdio":
		if strings.TrimSpace(c.Tool.Command) == "" {
			return fmt.Errorf("tool.command is required for stdio transport")
		}
	case "http":
		if strings.TrimSpace(c.Tool.URL) == "" {
			return fmt.Errorf("tool.url is required for http transport")
		}
	default:
		return fmt.Errorf("unsupported tool.transport %q; use 'stdio' or 'http'", c.Tool.Transport)
	}
	if strings.TrimSpace(c.Tool.QueryTool) == "" {
		return fmt.Errorf("tool.query_tool is required")
	}
	if c.Agent.MaxAttempts < 1 {
		return fmt.Errorf("agent.max_attempts must be at least 1, got %d", c.Agent.MaxAttempts)
	}
	if c.Agent.DisplayThreshold < 1 {
		return fmt.Errorf("agent.display_threshold must be at least 1, got %d", c.Agent.DisplayThreshold)
	}
	if !c.Schema.Discover && len(c.Schema.Tables) == 0 {
		return fmt.Errorf("schema.tables is empty and schema.discover is off; the agent has no schema to prompt with")
	}
	return nil
}

// WriteDefault writes the default configuration, including a commented
// example schema block, to a YAML file. It refuses to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	cfg := Default()
	cfg.Schema = SchemaConfig{
		Tables: []schema.Table{
			{
				Name: "students",
				Columns: []schema.Column{
					{Name: "id", Type: "integer", PrimaryKey: true},
					{Name: "first_name", Type: "text"},
					{Name: "last_name", Type: "text"},
					{Name: "email", Type: "text", Nullable: true},
				},
			},
		},
		Notes: []string{"Example schema; replace with your own tables."},
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
