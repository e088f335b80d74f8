package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
	"github.com/dusk-indust/datawizard/internal/stream"
)

func newWatchCmd(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "watch URL",
		Short: "Follow the stage transitions of a serve-mcp --http server",
		Long:  "watch connects to the /events stream of a running serve-mcp --http server and prints one line per stage transition. URL may be the server root or the /events endpoint.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.watch(ctx, args[0], runID)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "only show this run")
	return cmd
}

func eventsURL(raw, runID string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q needs a scheme and host", raw)
	}
	if !strings.HasSuffix(u.Path, "/events") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/events"
	}
	if runID != "" {
		q := u.Query()
		q.Set("run", runID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (a *app) watch(ctx context.Context, raw, runID string) error {
	target, err := eventsURL(raw, runID)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connect %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("connect %s: %s", target, resp.Status)
	}
	a.log.WithField("url", target).Info("watching events")

	for r := range stream.ReadRecords(ctx, resp.Body) {
		if r.Err != nil {
			a.log.WithError(r.Err).Warn("skipping event")
			continue
		}
		line := orchestrator.FormatProgress(r.Event(), r.Label)
		if r.Status == string(orchestrator.StatusPending) {
			line = "  run started"
		}
		fmt.Fprintf(a.stdout, "%s %s\n", shortID(r.RunID), line)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
