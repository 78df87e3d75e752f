package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "askdb.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestDefaultValidatesWithSchema(t *testing.T) {
	cfg := Default()
	cfg.Schema.Discover = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cfg.Agent.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Agent.MaxAttempts)
	}
	if cfg.Model.Timeout.Std() != 120*time.Second {
		t.Errorf("model timeout = %v", cfg.Model.Timeout)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTemp(t, `
model:
  name: qwen2.5-coder:7b
  timeout: 45s
tool:
  transport: http
  url: http://localhost:8080/mcp
agent:
  max_attempts: 5
schema:
  discover: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Model.Name != "qwen2.5-coder:7b" {
		t.Errorf("model name = %q", cfg.Model.Name)
	}
	if cfg.Model.Timeout.Std() != 45*time.Second {
		t.Errorf("model timeout = %v", cfg.Model.Timeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Model.Endpoint != "http://127.0.0.1:11434" {
		t.Errorf("endpoint default lost: %q", cfg.Model.Endpoint)
	}
	if cfg.Agent.MaxAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.Agent.MaxAttempts)
	}
	if cfg.Tool.Transport != "http" || cfg.Tool.URL != "http://localhost:8080/mcp" {
		t.Errorf("tool = %+v", cfg.Tool)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("ASKDB_TEST_ENDPOINT", "http://models.internal:11434")
	path := writeTemp(t, `
model:
  endpoint: ${ASKDB_TEST_ENDPOINT}
schema:
  discover: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.Endpoint != "http://models.internal:11434" {
		t.Errorf("endpoint = %q", cfg.Model.Endpoint)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("Load of missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.Schema.Discover = true
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no model name", func(c *Config) { c.Model.Name = " " }, true},
		{"no endpoint", func(c *Config) { c.Model.Endpoint = "" }, true},
		{"stdio without command", func(c *Config) { c.Tool.Command = "" }, true},
		{"http without url", func(c *Config) { c.Tool.Transport = "http" }, true},
		{"unknown transport", func(c *Config) { c.Tool.Transport = "grpc" }, true},
		{"no query tool", func(c *Config) { c.Tool.QueryTool = "" }, true},
		{"zero attempts", func(c *Config) { c.Agent.MaxAttempts = 0 }, true},
		{"zero threshold", func(c *Config) { c.Agent.DisplayThreshold = 0 }, true},
		{
			"no schema at all",
			func(c *Config) { c.Schema.Discover = false; c.Schema.Tables = nil },
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    time.Duration
		wantErr bool
	}{
		{"go notation", `t: 30s`, 30 * time.Second, false},
		{"compound", `t: 1m30s`, 90 * time.Second, false},
		{"bare seconds", `t: 45`, 45 * time.Second, false},
		{"fractional seconds", `t: 1.5`, 1500 * time.Millisecond, false},
		{"garbage", `t: soon`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc struct {
				T Duration `yaml:"t"`
			}
			err := yaml.Unmarshal([]byte(tt.yaml), &doc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && doc.T.Std() != tt.want {
				t.Errorf("duration = %v, want %v", doc.T.Std(), tt.want)
			}
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	in := Duration(90 * time.Second)
	data, err := yaml.Marshal(map[string]Duration{"t": in})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]Duration
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["t"] != in {
		t.Errorf("round trip = %v, want %v", out["t"], in)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "askdb.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load written default: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written default invalid: %v", err)
	}
	if len(cfg.Schema.Tables) == 0 {
		t.Errorf("written default has no example schema")
	}

	if err := WriteDefault(path); err == nil {
		t.Errorf("WriteDefault should refuse to overwrite")
	}
}
