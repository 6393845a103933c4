// Package mcp exposes the extraction engine as a Model Context Protocol server.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/synthex"
	"github.com/aretw0/synthex/internal/logging"
	"github.com/aretw0/synthex/internal/pages"
	"github.com/aretw0/synthex/internal/presentation/graph"
	"github.com/aretw0/synthex/pkg/domain"
)

// ToolExtractActions is the name of the extraction tool.
const ToolExtractActions = "extract_actions"

// Engine defines the interface required by the MCP server.
type Engine interface {
	Submit(ctx context.Context, text string, cred domain.Credential) domain.Outcome
}

// Text formats of the extract_actions result.
const (
	FormatText    = "text"
	FormatMermaid = "mermaid"
)

// ExtractArgs are the arguments of the extract_actions tool.
type ExtractArgs struct {
	Procedure string `json:"procedure"`
	Format    string `json:"format,omitempty"`
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("synthex-mcp", strings.TrimSpace(synthex.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Handler returns the SSE transport mounted on /sse and /message.
func (s *Server) Handler(baseURL string) http.Handler {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	return mux
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(baseURL),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
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

		s.logger.Info("Shutdown signal received, shutting down MCP server")
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
	extractTool := mcp.NewTool(ToolExtractActions,
		mcp.WithDescription("Convert a free-text chemical synthesis procedure into numbered protocol steps using IBM RXN for Chemistry."),
		mcp.WithString("procedure", mcp.Required(), mcp.Description("The experimental procedure paragraph, sent unmodified")),
		mcp.WithString("format",
			mcp.Enum(FormatText, FormatMermaid),
			mcp.Description("Text rendering of the steps; the structured result is the same for both"),
		),
		mcp.WithOutputSchema[domain.Outcome](),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtract)
}

// handleExtract always returns the Outcome; warnings and errors set IsError.
func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ExtractArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	outcome := s.engine.Submit(ctx, args.Procedure, "")
	s.logger.Debug("MCP extract", "outcome", outcome.Kind, "steps", len(outcome.Steps))

	text := FormatOutcome(outcome)
	if args.Format == FormatMermaid && outcome.Kind == domain.OutcomeSuccess {
		text = graph.GenerateMermaid(outcome.Steps)
	}

	result := mcp.NewToolResultStructured(outcome, text)
	result.IsError = outcome.Failed()
	return result, nil
}

// FormatOutcome renders an outcome as plain text, one step per line.
func FormatOutcome(o domain.Outcome) string {
	var b strings.Builder
	b.WriteString(o.Message)
	for _, step := range o.Steps {
		fmt.Fprintf(&b, "\n%d. %s", step.Number, step.Text)
	}
	return b.String()
}

func (s *Server) registerResources() {
	for _, page := range pages.Static {
		uri := "synthex://pages/" + string(page)
		s.mcpServer.AddResource(mcp.NewResource(uri, strings.ToUpper(string(page[:1]))+string(page[1:]),
			mcp.WithMIMEType("text/markdown"),
		), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			src, err := pages.Markdown(page)
			if err != nil {
				return nil, fmt.Errorf("failed to read page: %w", err)
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     string(src),
				},
			}, nil
		})
	}
}
