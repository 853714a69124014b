package tool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/rerrors"

	"github.com/XiaoConstantine/mcp-go/pkg/client"
	mcpLogging "github.com/XiaoConstantine/mcp-go/pkg/logging"
	models "github.com/XiaoConstantine/mcp-go/pkg/model"
	"github.com/XiaoConstantine/mcp-go/pkg/transport"
	"github.com/patrickmn/go-cache"
)

// ServerConfig describes one auxiliary tool server spoken to over MCP stdio.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     []string // extra KEY=VALUE entries appended to the environment
}

// Server wraps a running MCP stdio subprocess. Discovery results are cached
// with a TTL so building a registry per research run does not re-issue
// tools/list against the subprocess every time.
type Server struct {
	name      string
	cmd       *exec.Cmd
	mcpClient *client.Client
	discovery *cache.Cache
}

const discoveryKey = "tools"

// StartServer launches the configured subprocess and completes the MCP
// initialize handshake. The caller owns the returned server and must Close it.
func StartServer(cfg ServerConfig, discoveryTTL time.Duration) (*Server, error) {
	if cfg.Command == "" {
		return nil, &rerrors.ConfigurationError{Setting: fmt.Sprintf("tool server %q command", cfg.Name)}
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Stderr = os.Stderr

	serverIn, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	serverOut, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, &rerrors.ToolError{Tool: cfg.Name, Cause: fmt.Errorf("failed to start server: %w", err)}
	}

	// Give the subprocess a moment to come up before the handshake.
	time.Sleep(500 * time.Millisecond)

	mcpLogger := mcpLogging.NewStdLogger(mcpLogging.InfoLevel)
	stdio := transport.NewStdioTransport(serverOut, serverIn, mcpLogger)
	mcpClient := client.NewClient(
		stdio,
		client.WithLogger(mcpLogger),
		client.WithClientInfo("ai-research-be", "1.0.0"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := &Server{
		name:      cfg.Name,
		cmd:       cmd,
		mcpClient: mcpClient,
		discovery: cache.New(discoveryTTL, 2*discoveryTTL),
	}

	if _, err := mcpClient.Initialize(ctx); err != nil {
		s.Close()
		return nil, &rerrors.ToolError{Tool: cfg.Name, Cause: fmt.Errorf("initialize failed: %w", err)}
	}

	log.Printf("[MCP] Server %s ready (%s)", cfg.Name, cfg.Command)
	return s, nil
}

// Name returns the configured server name.
func (s *Server) Name() string {
	return s.name
}

// Tools returns the server's tool table, discovered once per TTL window.
func (s *Server) Tools(ctx context.Context) ([]Tool, error) {
	if cached, found := s.discovery.Get(discoveryKey); found {
		return cached.([]Tool), nil
	}

	result, err := s.mcpClient.ListTools(ctx, nil)
	if err != nil {
		return nil, &rerrors.ToolError{Tool: s.name, Cause: fmt.Errorf("tool discovery failed: %w", err)}
	}

	tools := make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, s.bind(t))
	}

	s.discovery.Set(discoveryKey, tools, cache.DefaultExpiration)
	log.Printf("[MCP] Server %s exposes %d tools", s.name, len(tools))
	return tools, nil
}

// bind converts one discovered MCP tool into a registry tool whose Invoke
// round-trips through this server.
func (s *Server) bind(t models.Tool) Tool {
	name := t.Name
	return Tool{
		Name:        name,
		Description: t.Description,
		Schema:      parameterSchema(t.InputSchema),
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return s.Call(ctx, name, args)
		},
	}
}

// Call invokes one tool on the server and concatenates its text content.
func (s *Server) Call(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	result, err := s.mcpClient.CallTool(ctx, name, args)
	if err != nil {
		return "", &rerrors.ToolError{Tool: name, Cause: err}
	}

	var out strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(models.TextContent); ok {
			out.WriteString(text.Text)
		}
	}

	if result.IsError {
		return "", &rerrors.ToolError{Tool: name, Cause: errors.New(out.String())}
	}
	return out.String(), nil
}

// Close shuts down the MCP session and reaps the subprocess.
func (s *Server) Close() {
	if s.mcpClient != nil {
		if err := s.mcpClient.Shutdown(); err != nil {
			log.Printf("[MCP] Warn: shutdown of %s returned: %v", s.name, err)
		}
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
}

func parameterSchema(in models.InputSchema) llm.ToolParameterSchema {
	props := make(map[string]llm.ToolProperty, len(in.Properties))
	for name, p := range in.Properties {
		props[name] = llm.ToolProperty{Type: p.Type, Description: p.Description}
	}
	typ := in.Type
	if typ == "" {
		typ = "object"
	}
	return llm.ToolParameterSchema{Type: typ, Properties: props}
}
