package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/extkit/internal/adapters/metrics"
	"github.com/felixgeelhaar/extkit/internal/app"
	mcptools "github.com/felixgeelhaar/extkit/internal/mcp"
	"github.com/felixgeelhaar/mcp-go"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Start a Model Context Protocol (MCP) server exposing extkit to AI agents.

Available tools:
  - extkit_status             Show version, sources and installed count
  - extkit_list_sources       List trusted sources
  - extkit_search             Search extension catalogs
  - extkit_details            Show catalog details for an extension
  - extkit_list_extensions    List installed extensions
  - extkit_validate_manifest  Validate a manifest file
  - extkit_outdated           List extensions with newer versions
  - extkit_install            Install an extension (requires confirm)

Examples:
  extkit mcp                          # Start stdio MCP server
  extkit mcp --http :8080             # Start HTTP MCP server
  extkit mcp --metrics-addr :9090     # Also expose Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

var (
	mcpHTTP        string
	mcpMetricsAddr string
)

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&mcpHTTP, "http", "", "Start HTTP server on address (default: mcp.http_addr, else stdio)")
	mcpCmd.Flags().StringVar(&mcpMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics at /metrics on address")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	m := metrics.New(nil)
	a, err := loadApp(cmd, app.WithMetrics(m))
	if err != nil {
		return err
	}

	if mcpMetricsAddr != "" {
		stop := serveMetrics(ctx, mcpMetricsAddr, m.Handler(), cmd.ErrOrStderr())
		defer stop()
	}

	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "extkit",
		Version: version,
	})
	mcptools.RegisterAll(srv, a, mcptools.VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: date,
	})

	addr := mcpHTTP
	if addr == "" {
		addr = a.Config().MCP.HTTPAddr
	}
	if addr != "" {
		return mcp.ServeHTTP(ctx, srv, addr)
	}
	return mcp.ServeStdio(ctx, srv)
}

// serveMetrics starts the metrics endpoint in the background and returns a
// function that shuts it down.
func serveMetrics(ctx context.Context, addr string, handler http.Handler, errOut io.Writer) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			printErrorTo(errOut, err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}
