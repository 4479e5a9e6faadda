package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/starbox/config"
	"github.com/isdmx/starbox/render"
	"github.com/isdmx/starbox/sandbox"
)

// Executor is the engine surface the server depends on.
type Executor interface {
	Execute(ctx context.Context, code string, contextVars map[string]any) sandbox.Outcome
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	engine    Executor
	mcpServer *server.MCPServer
}

// runResponse is the JSON payload returned by the run_analysis_code tool.
type runResponse struct {
	Success    bool            `json:"success"`
	Stdout     string          `json:"stdout"`
	ElapsedSec float64         `json:"elapsed_sec"`
	Result     *render.Summary `json:"result,omitempty"`
	Locals     map[string]any  `json:"locals,omitempty"`
	Error      string          `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
	Trace      string          `json:"trace,omitempty"`
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, engine Executor) (*MCPServer, error) {
	s := &MCPServer{
		config: cfg,
		logger: logger,
		engine: engine,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.String("engine.profile", cfg.Engine.Profile),
		zap.Int("engine.timeout_sec", cfg.Engine.TimeoutSec),
		zap.Int("engine.max_memory_mb", cfg.Engine.MaxMemoryMB),
		zap.Bool("engine.enable_static_analysis", cfg.Engine.EnableStaticAnalysis),
		zap.Bool("engine.enforce_policy", cfg.Engine.EnforcePolicy),
		zap.Bool("engine.enable_text_repair", cfg.Engine.EnableTextRepair),
		zap.Strings("engine.allowed_modules", cfg.Engine.AllowedModules),
		zap.String("registry.version", sandbox.RegistryVersion()),
	)

	// Create the MCP server
	s.mcpServer = server.NewMCPServer("starbox-engine", "A sandboxed analysis-code execution server")

	// Register the run_analysis_code tool
	s.registerRunAnalysisCodeTool()

	return s, nil
}

// registerRunAnalysisCodeTool registers the run_analysis_code tool
func (s *MCPServer) registerRunAnalysisCodeTool() {
	tool := mcp.Tool{
		Name:        "run_analysis_code",
		Description: "Execute an analysis snippet in an in-process sandbox and return the result or a structured diagnosis",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Analysis snippet to execute",
				},
				"context": map[string]any{
					"type":        "object",
					"description": "Variables injected into the snippet's namespace (optional)",
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleRunAnalysisCode)
}

// handleRunAnalysisCode handles the run_analysis_code tool
func (s *MCPServer) handleRunAnalysisCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	var contextVars map[string]any
	if raw, ok := request.GetArguments()["context"]; ok {
		contextVars, ok = raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("context parameter must be an object")
		}
	}

	s.logger.Info("snippet execution requested",
		zap.Int("code_len", len(code)),
		zap.Int("context_vars", len(contextVars)))

	outcome := s.engine.Execute(ctx, code, contextVars)

	response := runResponse{
		Success:    outcome.Success,
		Stdout:     outcome.Stdout,
		ElapsedSec: outcome.Elapsed.Seconds(),
	}
	if outcome.Success {
		if outcome.Value != nil {
			summary := render.Summarize(outcome.Value)
			response.Result = &summary
		}
		response.Locals = outcome.Locals
	} else {
		response.Error = string(outcome.Failure.Kind)
		response.Message = outcome.Failure.Message
		response.Suggestion = outcome.Failure.Suggestion
		response.Trace = outcome.Failure.Trace
	}

	s.logger.Info("snippet execution finished",
		zap.Bool("success", outcome.Success),
		zap.Duration("elapsed", outcome.Elapsed))

	payload, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(payload),
			},
		},
		IsError: !outcome.Success,
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
