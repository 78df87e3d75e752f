// Package mcpclient is the agent's side of the tool-protocol boundary. It
// talks to an MCP server that exposes a "run one SQL statement" tool, so the
// agent never holds database credentials or a direct driver connection.
package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ErrKind classifies an execution failure.
type ErrKind int

const (
	// KindSQL means the database rejected the statement. The server's
	// message is preserved verbatim so it can be fed back to the model.
	KindSQL ErrKind = iota
	// KindProtocol means the tool server was unreachable or violated the
	// protocol. Infrastructure failure; not worth retrying a translation.
	KindProtocol
)

func (k ErrKind) String() string {
	if k == KindSQL {
		return "sql"
	}
	return "protocol"
}

// ExecError is a failed execution, classified.
type ExecError struct {
	Kind    ErrKind
	Message string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Result is a tabular result set: ordered columns, ordered rows of scalars.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Config controls the transport to the tool server.
type Config struct {
	// Transport is "stdio" or "http".
	Transport string
	// Command and Args spawn the server as a subprocess in stdio mode.
	Command string
	Args    []string
	// URL is the streamable HTTP endpoint in http mode.
	URL string
	// QueryTool is the tool that executes one SQL statement; its single
	// argument is named "sql".
	QueryTool string
}

// Client wraps one mcp-go client session against the tool server.
type Client struct {
	cfg     Config
	version string
	logger  *slog.Logger

	mcp *client.Client
}

// New builds an unconnected Client. Call Connect before Query.
func New(cfg Config, version string, logger *slog.Logger) *Client {
	if cfg.QueryTool == "" {
		cfg.QueryTool = "query"
	}
	return &Client{cfg: cfg, version: version, logger: logger}
}

// Connect establishes the transport, runs the MCP handshake, and verifies
// that the configured query tool exists. The whole sequence is retried with
// bounded exponential backoff so a slow-starting server subprocess gets a
// fair chance.
func (c *Client) Connect(ctx context.Context) error {
	op := func() error {
		if err := c.connectOnce(ctx); err != nil {
			c.logger.Debug("tool server connect attempt failed", "error", err)
			return err
		}
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("connect tool server: %w", err)
	}
	return nil
}

func (c *Client) connectOnce(ctx context.Context) error {
	mc, err := c.newTransportClient(ctx)
	if err != nil {
		return err
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "askdb",
		Version: c.version,
	}
	initRes, err := mc.Initialize(ctx, initReq)
	if err != nil {
		_ = mc.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	toolsRes, err := mc.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		_ = mc.Close()
		return fmt.Errorf("list tools: %w", err)
	}
	names := make([]string, len(toolsRes.Tools))
	found := false
	for i, t := range toolsRes.Tools {
		names[i] = t.Name
		if t.Name == c.cfg.QueryTool {
			found = true
		}
	}
	if !found {
		_ = mc.Close()
		return fmt.Errorf("tool server %q does not expose tool %q (available: %v)",
			initRes.ServerInfo.Name, c.cfg.QueryTool, names)
	}

	c.logger.Info("connected to tool server",
		"server", initRes.ServerInfo.Name,
		"version", initRes.ServerInfo.Version,
		"tools", names)
	c.mcp = mc
	return nil
}

func (c *Client) newTransportClient(ctx context.Context) (*client.Client, error) {
	switch c.cfg.Transport {
	case "", "stdio":
		mc, err := client.NewStdioMCPClient(c.cfg.Command, nil, c.cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("spawn %s: %w", c.cfg.Command, err)
		}
		return mc, nil
	case "http":
		mc, err := client.NewStreamableHttpClient(c.cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("http client for %s: %w", c.cfg.URL, err)
		}
		if err := mc.Start(ctx); err != nil {
			_ = mc.Close()
			return nil, fmt.Errorf("start http transport: %w", err)
		}
		return mc, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", c.cfg.Transport)
	}
}

// Close releases the transport. Safe to call on an unconnected client.
func (c *Client) Close() error {
	if c.mcp == nil {
		return nil
	}
	err := c.mcp.Close()
	c.mcp = nil
	return err
}

// Call invokes an arbitrary tool and returns its first text payload.
// Tool-level errors come back as plain errors; used for schema discovery.
func (c *Client) Call(ctx context.Context, tool string, args map[string]any) (string, error) {
	if c.mcp == nil {
		return "", fmt.Errorf("tool server not connected")
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", tool, err)
	}
	text := firstText(res)
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", tool, text)
	}
	return text, nil
}

// Query executes one validated SQL statement through the query tool and
// returns the parsed result set. Failures are *ExecError: KindSQL when the
// server reports the database rejected the statement, KindProtocol when the
// server itself is unreachable or misbehaving.
func (c *Client) Query(ctx context.Context, sql string) (*Result, error) {
	if c.mcp == nil {
		return nil, &ExecError{Kind: KindProtocol, Message: "tool server not connected"}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = c.cfg.QueryTool
	req.Params.Arguments = map[string]any{"sql": sql}

	res, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &ExecError{Kind: KindProtocol, Message: fmt.Sprintf("query timed out: %v", err)}
		}
		return nil, &ExecError{Kind: KindProtocol, Message: err.Error()}
	}

	text := firstText(res)
	if res.IsError {
		return nil, &ExecError{Kind: KindSQL, Message: strings.TrimSpace(text)}
	}

	result, err := parseResult(text)
	if err != nil {
		return nil, &ExecError{Kind: KindProtocol, Message: fmt.Sprintf("unreadable result payload: %v", err)}
	}
	// Servers that report errors inside a success payload still mean the
	// statement failed; surface their message for the retry loop.
	if msg, ok := embeddedError(result); ok {
		return nil, &ExecError{Kind: KindSQL, Message: msg}
	}
	return result, nil
}

// firstText concatenates the text content blocks of a tool result.
func firstText(res *mcp.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		if tc, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// embeddedError detects the {"error": "..."} convention some servers use
// instead of the tool-level error flag.
func embeddedError(r *Result) (string, bool) {
	if len(r.Columns) == 1 && r.Columns[0] == "error" && len(r.Rows) == 1 {
		if msg, ok := r.Rows[0][0].(string); ok && msg != "" {
			return msg, true
		}
	}
	return "", false
}
