package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// CurrentTreeURI addresses the last processed client tree.
const CurrentTreeURI = "arbor://tree/current"

// Server exposes session queries as MCP tools.
type Server struct {
	sessions  ports.SessionReader
	trees     ports.TreeProcessor
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions ports.SessionReader, trees ports.TreeProcessor, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		trees:     trees,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, mainly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	session := mcp.WithString("session_id", mcp.Required(), mcp.Description("Game session identifier"))
	turn := mcp.WithNumber("turn", mcp.Required(), mcp.Description("Turn number"))

	s.mcpServer.AddTool(mcp.NewTool("session_exists",
		mcp.WithDescription("Check whether a game session has recorded data."),
		session,
	), s.handleSessionExists)

	s.mcpServer.AddTool(mcp.NewTool("list_turns",
		mcp.WithDescription("List the turns of a session that have a final search tree."),
		session,
	), s.handleListTurns)

	s.mcpServer.AddTool(mcp.NewTool("get_turn_tree",
		mcp.WithDescription("Get the final search tree of a turn."),
		session, turn,
	), s.handleTurnTree)

	s.mcpServer.AddTool(mcp.NewTool("get_turn_growth",
		mcp.WithDescription("Get the stored growth snapshots of a turn, ending with its final tree."),
		session, turn,
	), s.handleTurnGrowth)

	s.mcpServer.AddTool(mcp.NewTool("replay_turn_growth",
		mcp.WithDescription("Rebuild the growth snapshots of a turn from its initial tree and recorded patches."),
		session, turn,
	), s.handleReplayGrowth)

	s.mcpServer.AddTool(mcp.NewTool("get_iteration",
		mcp.WithDescription("Get selection, expansion, playout and backpropagation data of one search iteration."),
		session, turn,
		mcp.WithNumber("iteration", mcp.Required(), mcp.Description("Iteration number")),
	), s.handleIteration)

	s.mcpServer.AddTool(mcp.NewTool("process_tree",
		mcp.WithDescription("Annotate a display tree with relative visits and depths and cache it as the current tree."),
		mcp.WithString("tree", mcp.Required(), mcp.Description("Tree as a JSON document")),
	), s.handleProcessTree)
}

func (s *Server) handleSessionExists(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]bool{"exists": s.sessions.SessionExists(ctx, sid)})
}

func (s *Server) handleListTurns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	turns, err := s.sessions.AvailableTurns(ctx, sid)
	if err != nil {
		return s.toolError("list turns", err), nil
	}
	return jsonResult(turns)
}

func (s *Server) handleTurnTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, turn, errResult := turnArgs(request)
	if errResult != nil {
		return errResult, nil
	}
	tree, err := s.sessions.TreeForTurn(ctx, sid, turn)
	if err != nil {
		return s.toolError("get turn tree", err), nil
	}
	return jsonResult(tree)
}

func (s *Server) handleTurnGrowth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, turn, errResult := turnArgs(request)
	if errResult != nil {
		return errResult, nil
	}
	steps, err := s.sessions.GrowthSteps(ctx, sid, turn)
	if err != nil {
		return s.toolError("get turn growth", err), nil
	}
	return jsonResult(steps)
}

func (s *Server) handleReplayGrowth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, turn, errResult := turnArgs(request)
	if errResult != nil {
		return errResult, nil
	}
	steps, err := s.sessions.ReplayGrowth(ctx, sid, turn)
	if err != nil {
		return s.toolError("replay turn growth", err), nil
	}
	return jsonResult(steps)
}

func (s *Server) handleIteration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, turn, errResult := turnArgs(request)
	if errResult != nil {
		return errResult, nil
	}
	iteration, err := request.RequireInt("iteration")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	details, err := s.sessions.IterationDetails(ctx, sid, turn, iteration)
	if err != nil {
		return s.toolError("get iteration", err), nil
	}
	return jsonResult(details)
}

func (s *Server) handleProcessTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("tree")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := s.trees.ProcessTreeData(ctx, []byte(raw))
	if err != nil {
		return s.toolError("process tree", err), nil
	}
	return jsonResult(tree)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(CurrentTreeURI, "Current Processed Tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		tree, err := s.trees.CurrentTree(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read current tree: %w", err)
		}
		jsonBytes, err := json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("failed to encode current tree: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      CurrentTreeURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func turnArgs(request mcp.CallToolRequest) (string, int, *mcp.CallToolResult) {
	sid, err := request.RequireString("session_id")
	if err != nil {
		return "", 0, mcp.NewToolResultError(err.Error())
	}
	turn, err := request.RequireInt("turn")
	if err != nil {
		return "", 0, mcp.NewToolResultError(err.Error())
	}
	return sid, turn, nil
}

// toolError reports lookup and input failures to the client and hides the rest.
func (s *Server) toolError(action string, err error) *mcp.CallToolResult {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrMalformed) {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", action, err))
	}
	s.logger.Error("MCP tool failed", "action", action, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: internal error", action))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
