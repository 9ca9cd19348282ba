package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/hanconv"
	"github.com/aretw0/hanconv/internal/presentation/tui"
	httpAdapter "github.com/aretw0/hanconv/pkg/adapters/http"
	"github.com/aretw0/hanconv/pkg/adapters/mcp"
	"github.com/aretw0/hanconv/pkg/observability"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// ServeOptions configures RunServe.
type ServeOptions struct {
	Addr      string
	Provision bool
}

// BuildServer wires a converter, metrics and the event stream into the
// HTTP handler. The caller owns the returned converter.
func BuildServer(opts Options, extra ...hanconv.Option) (http.Handler, *hanconv.Converter, *slog.Logger, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, nil, nil, err
	}
	streams := httpAdapter.NewStreamManager()

	convOpts := append([]hanconv.Option{
		hanconv.WithHooks(metrics.Hooks()),
		hanconv.WithHooks(streams.Hooks()),
	}, extra...)
	conv, logger, err := NewConverter(opts, convOpts...)
	if err != nil {
		return nil, nil, nil, err
	}

	handler := httpAdapter.NewHandler(conv,
		httpAdapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		httpAdapter.WithStreams(streams),
		httpAdapter.WithVersion(strings.TrimSpace(hanconv.Version)),
		httpAdapter.WithLogger(logger),
	)
	return handler, conv, logger, nil
}

// RunServe starts the HTTP server and blocks until ctx is cancelled.
func RunServe(ctx context.Context, opts Options, serve ServeOptions, w io.Writer) error {
	handler, conv, logger, err := BuildServer(opts, hanconv.WithNotifier(tui.Notifier(w)))
	if err != nil {
		return err
	}
	defer conv.Close()

	if err := conv.Ping(ctx); err != nil {
		return err
	}
	if serve.Provision {
		conv.StartProvisioning(ctx)
	}

	srv := &http.Server{
		Addr:              serve.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(w, "Starting hanconv server on %s", srv.Addr)
		logger.Info("http server listening", "address", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		printSystemMessage(w, "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			return srv.Close()
		}
		printSystemMessage(w, "Server stopped gracefully")
		return nil
	}
}

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// MCPOptions configures RunMCP.
type MCPOptions struct {
	Transport string
	Port      int
	Provision bool
}

// RunMCP serves the converter as MCP tools until ctx is cancelled or the
// stdio peer disconnects. Notices go to errOut; stdout carries JSON-RPC.
func RunMCP(ctx context.Context, opts Options, m MCPOptions, errOut io.Writer) error {
	conv, logger, err := NewConverter(opts, hanconv.WithNotifier(tui.Notifier(errOut)))
	if err != nil {
		return err
	}
	defer conv.Close()

	if m.Provision {
		conv.StartProvisioning(ctx)
	}

	srv := mcp.NewServer(conv, hanconv.Version, logger)
	switch m.Transport {
	case TransportStdio, "":
		logger.Info("starting MCP server (stdio)")
		return srv.ServeStdio()
	case TransportSSE:
		logger.Info("starting MCP server (SSE)", "port", m.Port)
		return srv.ServeSSE(ctx, m.Port)
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", m.Transport)
	}
}
