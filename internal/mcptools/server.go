package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dusk-indust/datawizard/internal/session"
)

// version is set by the linker at build time.
var version = "dev"

// NewWizardMCPServer creates an MCP server with the wizard tools registered.
func NewWizardMCPServer(mgr *session.Manager) *mcp.Server {
	svc := NewWizardService(mgr)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "datawizard",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_run",
		Description: "Upload a dataset and run cleaning, exploratory analysis and analysis suggestion. The run then waits for an analysis type chosen from its candidates.",
	}, svc.StartRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run",
		Description: "Get the state, stage statuses and results of a run.",
	}, svc.GetRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resume_run",
		Description: "Choose the analysis type for a waiting run and execute preprocessing and the final analysis.",
	}, svc.ResumeRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_run",
		Description: "Cancel the stage a run is currently executing. The run fails with a cancellation error.",
	}, svc.CancelRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_run",
		Description: "Discard a run. Start a new run to analyze the dataset again.",
	}, svc.ResetRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_run",
		Description: "Render a run report as text, JSON, YAML, Markdown or a Mermaid stage diagram.",
	}, svc.ExportRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List the runs held by the server, optionally filtered by state.",
	}, svc.ListRuns)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler serves the MCP server over streamable HTTP. When gatherer is
// non-nil its metrics are exposed on /metrics.
func NewHTTPHandler(server *mcp.Server, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	))
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// RunHTTP starts an HTTP server on addr and shuts it down when ctx is
// cancelled.
func RunHTTP(ctx context.Context, handler http.Handler, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
