package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/datawizard/internal/flows"
	"github.com/dusk-indust/datawizard/internal/mcptools"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
	"github.com/dusk-indust/datawizard/internal/session"
	"github.com/dusk-indust/datawizard/internal/stream"
	"github.com/dusk-indust/datawizard/internal/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var httpAddr string
	var keepFailed bool
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the wizard as MCP tools over stdio or streamable HTTP",
		Long:  "serve-mcp exposes the wizard as MCP tools. With --http it also serves Prometheus metrics at /metrics and a Server-Sent Events stream of stage transitions at /events.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, httpAddr, keepFailed)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "listen address for streamable HTTP (default: stdio)")
	cmd.Flags().BoolVar(&keepFailed, "keep-failed", false, "keep failed runs until reset_run instead of discarding them")
	return cmd
}

func (a *app) serve(ctx context.Context, httpAddr string, keepFailed bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.NewMetrics(reg, flows.Stages())
	if err != nil {
		return err
	}

	orch, err := a.newOrchestrator(ctx, orchestrator.WithObserver(metrics))
	if err != nil {
		return err
	}
	var mgrOpts []session.Option
	if keepFailed {
		mgrOpts = append(mgrOpts, session.WithKeepFailed())
	}
	server := mcptools.NewWizardMCPServer(session.NewManager(orch, mgrOpts...))

	g, gctx := errgroup.WithContext(ctx)
	if httpAddr != "" {
		a.log.WithField("addr", httpAddr).Info("serving MCP over HTTP")
		g.Go(func() error {
			mux := http.NewServeMux()
			mux.Handle("/events", stream.NewHandler(orch))
			mux.Handle("/", mcptools.NewHTTPHandler(server, reg))
			return mcptools.RunHTTP(gctx, mux, httpAddr)
		})
	} else {
		g.Go(func() error {
			return mcptools.RunStdio(gctx, server)
		})
	}

	if addr := a.cfg.MetricsAddr; addr != "" && httpAddr == "" {
		a.log.WithField("addr", addr).Info("serving metrics")
		g.Go(func() error {
			return serveMetrics(gctx, a.log, addr, reg)
		})
	}
	return g.Wait()
}

func serveMetrics(ctx context.Context, log logrus.FieldLogger, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("metrics server shutdown")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
