// Package mcp exposes a running module tree to MCP clients: tools to read
// the tree and drive lifecycle transitions, plus a resource with the full
// tree snapshot.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TreeNode is the JSON shape of one module in tool and resource payloads.
type TreeNode struct {
	Name     string     `json:"name" jsonschema_description:"Module name"`
	State    string     `json:"state" jsonschema_description:"Current lifecycle state"`
	Children []TreeNode `json:"children,omitempty" jsonschema_description:"Child modules in load order"`
}

// TransitionResult reports a settled transition back to the client.
type TransitionResult struct {
	Name  string `json:"name" jsonschema_description:"Module name"`
	State string `json:"state" jsonschema_description:"Lifecycle state after the transition"`
}

// Server wraps a module tree and exposes it as an MCP server.
type Server struct {
	root      *lattice.Module
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server for the tree rooted at root.
func NewServer(root *lattice.Module) *Server {
	s := &Server{
		root:      root,
		mcpServer: server.NewMCPServer("lattice-mcp", strings.TrimSpace(lattice.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: get_tree
	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the module tree with the lifecycle state of every module."),
		mcp.WithOutputSchema[TreeNode](),
	), mcp.NewStructuredToolHandler(s.handleGetTree))

	// TOOL: module_state
	s.mcpServer.AddTool(mcp.NewTool("module_state",
		mcp.WithDescription("Get the lifecycle state of one module."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Module name")),
		mcp.WithOutputSchema[TransitionResult](),
	), mcp.NewStructuredToolHandler(s.handleModuleState))

	// TOOL: can_unload
	s.mcpServer.AddTool(mcp.NewTool("can_unload",
		mcp.WithDescription("Poll a module and its descendants for unload eligibility without changing state."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Module name")),
	), s.handleCanUnload)

	// TOOL: suspend_module / resume_module / unload_module
	s.mcpServer.AddTool(mcp.NewTool("suspend_module",
		mcp.WithDescription("Suspend a module and all of its children."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Module name")),
		mcp.WithOutputSchema[TransitionResult](),
	), mcp.NewStructuredToolHandler(s.transitionHandler(func(ctx context.Context, m *lattice.Module) *lattice.Transition {
		return m.Suspend(ctx)
	})))

	s.mcpServer.AddTool(mcp.NewTool("resume_module",
		mcp.WithDescription("Resume a suspended module and all of its children."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Module name")),
		mcp.WithOutputSchema[TransitionResult](),
	), mcp.NewStructuredToolHandler(s.transitionHandler(func(ctx context.Context, m *lattice.Module) *lattice.Transition {
		return m.Resume(ctx)
	})))

	s.mcpServer.AddTool(mcp.NewTool("unload_module",
		mcp.WithDescription("Negotiate and perform a terminal unload. Fails with the merged veto reasons if any participant rejects."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Module name")),
		mcp.WithOutputSchema[TransitionResult](),
	), mcp.NewStructuredToolHandler(s.transitionHandler(func(ctx context.Context, m *lattice.Module) *lattice.Transition {
		return m.Unload(ctx)
	})))
}

func snapshot(m *lattice.Module) TreeNode {
	node := TreeNode{Name: m.Name(), State: string(m.State())}
	for _, child := range m.Children() {
		node.Children = append(node.Children, snapshot(child))
	}
	return node
}

func (s *Server) find(name string) (*lattice.Module, error) {
	var walk func(m *lattice.Module) *lattice.Module
	walk = func(m *lattice.Module) *lattice.Module {
		if m.Name() == name {
			return m
		}
		for _, child := range m.Children() {
			if found := walk(child); found != nil {
				return found
			}
		}
		return nil
	}
	if m := walk(s.root); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrModuleNotFound, name)
}

func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TreeNode, error) {
	return snapshot(s.root), nil
}

func (s *Server) handleModuleState(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TransitionResult, error) {
	name, _ := args["name"].(string)
	m, err := s.find(name)
	if err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Name: m.Name(), State: string(m.State())}, nil
}

func (s *Server) handleCanUnload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := request.GetArguments()["name"].(string)
	m, err := s.find(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := m.CanUnload(ctx)
	payload, _ := json.Marshal(map[string]any{
		"eligible": result.Eligible,
		"reasons":  result.Reasons,
	})
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) transitionHandler(start func(context.Context, *lattice.Module) *lattice.Transition) func(context.Context, mcp.CallToolRequest, map[string]any) (TransitionResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TransitionResult, error) {
		name, _ := args["name"].(string)
		m, err := s.find(name)
		if err != nil {
			return TransitionResult{}, err
		}

		if err := start(ctx, m).Await(ctx); err != nil {
			var veto *domain.VetoError
			if errors.As(err, &veto) {
				return TransitionResult{}, fmt.Errorf("unload vetoed: %s", strings.Join(veto.Reasons, "; "))
			}
			return TransitionResult{}, fmt.Errorf("transition failed: %w", err)
		}
		return TransitionResult{Name: m.Name(), State: string(m.State())}, nil
	}
}

func (s *Server) registerResources() {
	// EXPOSE: lattice://tree
	s.mcpServer.AddResource(mcp.NewResource("lattice://tree", "Current Module Tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		payload, err := json.Marshal(snapshot(s.root))
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "lattice://tree",
				MIMEType: "application/json",
				Text:     string(payload),
			},
		}, nil
	})
}
