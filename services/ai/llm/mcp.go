package llm

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes a subset of ai.llm.* routes as Model Context Protocol
// tools, so an external MCP client can drive model loading and generation
// the same way code/gopls/mcp_server.go exposes gopls over MCP.
type MCPServer struct {
	svc    *Service
	server *server.MCPServer
}

// NewMCPServer constructs an MCP server fronting svc.
func NewMCPServer(svc *Service) *MCPServer {
	s := &MCPServer{svc: svc}
	s.server = server.NewMCPServer("qntx-ai-llm", "1.0.0", server.WithToolCapabilities(true))
	s.registerTools()
	return s
}

func (s *MCPServer) registerTools() {
	loadTool := mcp.NewTool("ai_llm_model_load",
		mcp.WithDescription("Load a language model by name or remote URI"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Model filename or remote URI")),
		mcp.WithString("version_constraint", mcp.Description("semver constraint the model must satisfy, e.g. \">=1.0.0 <2.0.0\"")),
	)
	s.server.AddTool(loadTool, s.handleModelLoad)

	genTool := mcp.NewTool("ai_llm_generate",
		mcp.WithDescription("Generate text from a loaded context"),
		mcp.WithNumber("model_id", mcp.Required(), mcp.Description("Loaded model id")),
		mcp.WithNumber("context_id", mcp.Required(), mcp.Description("Context id created on that model")),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("Prompt text")),
		mcp.WithNumber("max_tokens", mcp.Description("Maximum tokens to generate")),
	)
	s.server.AddTool(genTool, s.handleGenerate)
}

func (s *MCPServer) handleModelLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	constraint := request.GetString("version_constraint", "")

	m, err := s.svc.ModelLoad(ctx, name, constraint)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load model: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("loaded model %d at %s", m.ID, m.Path)), nil
}

func (s *MCPServer) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modelID, err := request.RequireInt("model_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	contextID, err := request.RequireInt("context_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxTokens := request.GetInt("max_tokens", 64)

	model, err := s.svc.Get(uint64(modelID))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("model lookup: %v", err)), nil
	}
	c, err := model.GetContext(uint64(contextID))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("context lookup: %v", err)), nil
	}

	text, err := c.Generate(prompt, GenerateOptions{MaxTokens: maxTokens})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generate: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// Serve starts the MCP server on stdio.
func (s *MCPServer) Serve() error {
	return server.ServeStdio(s.server)
}
