package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/datawizard/internal/flows"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewRecord(t *testing.T) {
	stages := flows.Stages()

	r := NewRecord(orchestrator.Event{
		RunID:   "r1",
		Stage:   flows.StageSelect,
		Index:   3,
		Status:  orchestrator.StatusAwaitingInput,
		Payload: []orchestrator.Candidate{{Label: "Regression"}, {Label: "Clustering"}},
	}, stages, fixedNow)
	assert.Equal(t, "select", r.StageName)
	assert.Equal(t, "Analysis Selection", r.Label)
	assert.Equal(t, []string{"Regression", "Clustering"}, r.Candidates)
	assert.Equal(t, "2026-03-01T12:00:00Z", r.At)

	r = NewRecord(orchestrator.Event{
		RunID: "r1", Stage: flows.StageSelect, Status: orchestrator.StatusSucceeded, Payload: "Clustering",
	}, stages, fixedNow)
	assert.Equal(t, "Clustering", r.Choice)

	r = NewRecord(orchestrator.Event{
		RunID: "r1", Stage: flows.StageClean, Status: orchestrator.StatusFailed, Err: errors.New("boom"),
	}, stages, fixedNow)
	assert.Equal(t, "boom", r.Error)

	r = NewRecord(orchestrator.Event{RunID: "r1", Stage: 42, Status: orchestrator.StatusRunning}, stages, fixedNow)
	assert.Empty(t, r.Label)
}

func TestRecordEventRoundTrip(t *testing.T) {
	r := Record{RunID: "r1", Stage: 3, Index: 3, Status: "awaiting-input", Label: "Analysis Selection", Candidates: []string{"A", "B"}}
	assert.Equal(t, "  ? Analysis Selection awaiting input: A, B", orchestrator.FormatProgress(r.Event(), r.Label))

	r = Record{RunID: "r1", Stage: 0, Status: "failed", Label: "Data Cleaning", Error: "boom"}
	assert.Equal(t, "  ✗ Data Cleaning failed: boom", orchestrator.FormatProgress(r.Event(), r.Label))
}

func TestWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	w.Init()

	require.NoError(t, w.WriteRecord(Record{RunID: "r1", Status: "running"}))
	require.NoError(t, w.WriteComment("keep-alive"))
	require.NoError(t, w.WriteRecord(Record{RunID: "r2", Status: "succeeded"}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	frames := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, frames, 3)
	assert.True(t, strings.HasPrefix(frames[0], `data: {"runId":"r1"`), frames[0])
	assert.Equal(t, ": keep-alive", frames[1])
}

func collect(t *testing.T, ch <-chan Record) []Record {
	t.Helper()
	var out []Record
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, r)
		case <-timeout:
			t.Fatal("timed out reading records")
		}
	}
}

func TestReadRecords(t *testing.T) {
	body := strings.Join([]string{
		": comment",
		`data: {"runId":"r1","status":"running"}`,
		"",
		`data:{"runId":"r2",`,
		`data: "status":"succeeded"}`,
		"id: 7",
		"",
		"data: not json",
		"",
		`data: {"runId":"r3","status":"failed"}`,
	}, "\n")

	got := collect(t, ReadRecords(context.Background(), io.NopCloser(strings.NewReader(body))))
	require.Len(t, got, 4)
	assert.Equal(t, "r1", got[0].RunID)
	assert.Equal(t, "succeeded", got[1].Status)
	assert.Error(t, got[2].Err)
	assert.Equal(t, "r3", got[3].RunID, "trailing frame without blank line")
}

func TestReadRecordsStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	ch := ReadRecords(ctx, pr)

	go fmt.Fprint(pw, "data: {\"runId\":\"r1\"}\n\n")
	first := <-ch
	assert.Equal(t, "r1", first.RunID)

	cancel()
	pw.Close()
	assert.Empty(t, collect(t, ch))
}

func TestHandlerStreamsRunEvents(t *testing.T) {
	n := 0
	orch, err := flows.NewOrchestrator(flows.Config{Mode: flows.ModeMock},
		orchestrator.WithIDGenerator(func() string { n++; return fmt.Sprintf("run-%d", n) }))
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(orch, WithKeepAlive(0)))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?run=run-2", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records := ReadRecords(ctx, resp.Body)

	_, err = orch.Start(ctx, []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	run, err := orch.Start(ctx, []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, orch.ResumeWithChoice(ctx, run, "Clustering"))

	var got []Record
	for r := range records {
		require.NoError(t, r.Err)
		got = append(got, r)
		if r.Stage == int(flows.StageAnalyze) && r.Status == string(orchestrator.StatusSucceeded) {
			break
		}
	}
	cancel()

	require.NotEmpty(t, got)
	for _, r := range got {
		assert.Equal(t, "run-2", r.RunID)
	}
	assert.Equal(t, "pending", got[0].Status)

	var awaiting, chosen bool
	for _, r := range got {
		if r.Status == string(orchestrator.StatusAwaitingInput) {
			awaiting = true
			assert.Equal(t, []string{"Regression", "Classification", "Clustering"}, r.Candidates)
		}
		if r.Choice == "Clustering" {
			chosen = true
		}
	}
	assert.True(t, awaiting)
	assert.True(t, chosen)
}

func TestHandlerRejectsPost(t *testing.T) {
	orch, err := flows.NewOrchestrator(flows.Config{Mode: flows.ModeMock})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	NewHandler(orch).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
