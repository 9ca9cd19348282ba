// Package mcp exposes the converter as a Model Context Protocol server.
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

	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/hanconv/pkg/diagnostics"
	"github.com/aretw0/hanconv/pkg/domain"
)

// ActionsURI is the resource listing supported actions.
const ActionsURI = "hanconv://actions"

// Service is what the MCP server needs from the converter.
type Service interface {
	Dispatch(ctx context.Context, req domain.ConversionRequest) domain.ConversionResult
	Diagnose(ctx context.Context) *diagnostics.Report
}

// Server wraps the converter and exposes it as an MCP Server.
type Server struct {
	service   Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service:   svc,
		logger:    logger,
		mcpServer: server.NewMCPServer("hanconv-mcp", strings.TrimSpace(version)),
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
	allowAll := cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
	})
	mux.Handle("/sse", allowAll(sseServer.SSEHandler()))
	mux.Handle("/message", allowAll(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
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

// convertArgs are the arguments of convert_text.
type convertArgs struct {
	Text   string `mapstructure:"text"`
	Action string `mapstructure:"action"`
}

// diagnoseArgs are the arguments of diagnose.
type diagnoseArgs struct {
	Format string `mapstructure:"format"`
}

func (s *Server) registerTools() {
	// TOOL: convert_text
	convertTool := mcp.NewTool("convert_text",
		mcp.WithDescription("Convert Chinese text between Simplified and Traditional script, or translate it. Returns the replacement text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to transform")),
		mcp.WithString("action", mcp.Required(), mcp.Enum(domain.ActionNames()...), mcp.Description("The transformation to apply")),
	)
	s.mcpServer.AddTool(convertTool, s.handleConvert)

	// TOOL: diagnose
	diagnoseTool := mcp.NewTool("diagnose",
		mcp.WithDescription("Check the interpreter, its libraries and the worker script, then run one trial conversion."),
		mcp.WithString("format", mcp.Enum("text", "markdown", "json"), mcp.Description("Report format (default markdown)")),
	)
	s.mcpServer.AddTool(diagnoseTool, s.handleDiagnose)
}

func (s *Server) handleConvert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args convertArgs
	if err := mapstructure.Decode(request.GetArguments(), &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	res := s.service.Dispatch(ctx, domain.ConversionRequest{
		Text:   args.Text,
		Action: domain.ActionKind(strings.TrimSpace(args.Action)),
	})
	if !res.OK() {
		s.logger.Warn("MCP convert_text failed", "kind", res.Kind(), "request_id", res.RequestID)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", res.Kind(), res.Err.Error())), nil
	}
	return mcp.NewToolResultText(res.Output), nil
}

func (s *Server) handleDiagnose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args diagnoseArgs
	if err := mapstructure.Decode(request.GetArguments(), &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	report := s.service.Diagnose(ctx)
	switch args.Format {
	case "text":
		return mcp.NewToolResultText(report.Text()), nil
	case "json":
		data, err := json.Marshal(report)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode report: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	default:
		return mcp.NewToolResultText(report.Markdown()), nil
	}
}

func (s *Server) registerResources() {
	// EXPOSE: hanconv://actions
	s.mcpServer.AddResource(mcp.NewResource(ActionsURI, "Supported Actions",
		mcp.WithMIMEType("application/json"),
	), s.readActions)
}

func (s *Server) readActions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type action struct {
		Kind        string `json:"kind"`
		Category    string `json:"category"`
		Target      string `json:"target"`
		Description string `json:"description"`
	}
	var out []action
	for _, a := range domain.Actions() {
		out = append(out, action{string(a.Kind), string(a.Category), a.Target.String(), a.Description})
	}
	jsonBytes, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode actions: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ActionsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
