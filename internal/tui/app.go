// Package tui is the interactive terminal front-end of the wizard: it
// uploads a dataset, shows stage progress, hosts the analysis selection and
// renders the result cards.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dusk-indust/datawizard/internal/dataset"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
	"github.com/dusk-indust/datawizard/internal/report"
	"github.com/dusk-indust/datawizard/internal/session"
)

// EventMsg carries one orchestrator transition. It is exported so that tests
// can inject it directly into AppModel.Update.
type EventMsg struct {
	Event orchestrator.Event
}

// RunDoneMsg is sent when a start or resume call returns.
type RunDoneMsg struct {
	Name     string
	Snapshot orchestrator.Snapshot
	Err      error
}

// CancelDoneMsg is sent when a cancel request has settled.
type CancelDoneMsg struct {
	Cancelled bool
}

// eventsClosedMsg is sent when the progress channel is closed.
type eventsClosedMsg struct{}

type viewState int

const (
	viewUpload viewState = iota
	viewRunning
	viewSelect
	viewResults
	viewFailed
)

// AppModel is the root Bubbletea model of the wizard.
type AppModel struct {
	mgr    *session.Manager
	events <-chan orchestrator.Event
	stages []orchestrator.StageDescriptor

	view     viewState
	path     string
	autorun  bool
	name     string
	runID    string
	statuses map[orchestrator.Stage]orchestrator.Status
	snap     orchestrator.Snapshot
	cursor   int
	err      error
	notice   string
	width    int
}

// NewAppModel creates the wizard model. events is usually the channel of an
// orchestrator.ProgressReporter subscribed to the manager's orchestrator.
// When path is non-empty the run starts immediately.
func NewAppModel(mgr *session.Manager, events <-chan orchestrator.Event, path string) AppModel {
	m := AppModel{
		mgr:      mgr,
		events:   events,
		stages:   mgr.Orchestrator().Stages(),
		path:     path,
		autorun:  path != "",
		statuses: make(map[orchestrator.Stage]orchestrator.Status),
	}
	if m.autorun {
		m.view = viewRunning
		m.name = filepath.Base(path)
	}
	return m
}

// Init starts listening for progress and, with a preset path, the run.
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listen()}
	if m.autorun {
		cmds = append(cmds, m.startRun(m.path))
	}
	return tea.Batch(cmds...)
}

func (m AppModel) listen() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

func (m AppModel) startRun(path string) tea.Cmd {
	mgr := m.mgr
	return func() tea.Msg {
		name := filepath.Base(path)
		data, err := dataset.ReadUpload(path)
		if err != nil {
			return RunDoneMsg{Name: name, Err: err}
		}
		snap, err := mgr.Start(context.Background(), name, data)
		return RunDoneMsg{Name: name, Snapshot: snap, Err: err}
	}
}

func (m AppModel) resume(choice string) tea.Cmd {
	mgr, id, name := m.mgr, m.snap.ID, m.name
	return func() tea.Msg {
		snap, err := mgr.Resume(context.Background(), id, choice)
		return RunDoneMsg{Name: name, Snapshot: snap, Err: err}
	}
}

func (m AppModel) cancel() tea.Cmd {
	mgr, id := m.mgr, m.runID
	return func() tea.Msg {
		return CancelDoneMsg{Cancelled: mgr.Cancel(id)}
	}
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case EventMsg:
		ev := msg.Event
		if m.runID == "" || ev.Status == orchestrator.StatusPending && ev.Index == 0 {
			m.runID = ev.RunID
			m.statuses = make(map[orchestrator.Stage]orchestrator.Status)
		}
		if ev.RunID == m.runID {
			m.statuses[ev.Stage] = ev.Status
		}
		return m, m.listen()

	case eventsClosedMsg:
		m.events = nil
		return m, nil

	case RunDoneMsg:
		return m.handleRunDone(msg), nil

	case CancelDoneMsg:
		if !msg.Cancelled {
			m.notice = "nothing to cancel"
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m AppModel) handleRunDone(msg RunDoneMsg) AppModel {
	m.name = msg.Name
	m.err = msg.Err
	m.notice = ""
	if msg.Snapshot.ID == "" {
		// rejected before a run existed
		m.view = viewFailed
		return m
	}

	m.snap = msg.Snapshot
	m.runID = msg.Snapshot.ID
	for i, s := range msg.Snapshot.Status {
		m.statuses[orchestrator.Stage(i)] = s
	}

	switch {
	case msg.Snapshot.Failed():
		m.view = viewFailed
	case msg.Snapshot.AwaitingInput():
		m.view = viewSelect
		if m.err != nil {
			// invalid choice; the run is still waiting
			m.notice = m.err.Error()
			m.err = nil
		}
		if m.cursor >= len(m.snap.Candidates) {
			m.cursor = 0
		}
	case msg.Snapshot.Complete():
		m.view = viewResults
	default:
		m.view = viewRunning
	}
	return m
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.view {
	case viewUpload:
		switch msg.Type {
		case tea.KeyEnter:
			path := strings.TrimSpace(m.path)
			if path == "" {
				m.notice = "enter the path of a .csv, .xls or .xlsx file"
				return m, nil
			}
			return m.begin(path)
		case tea.KeyBackspace:
			if len(m.path) > 0 {
				r := []rune(m.path)
				m.path = string(r[:len(r)-1])
			}
		case tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyRunes, tea.KeySpace:
			m.path += string(msg.Runes)
		}
		return m, nil

	case viewRunning:
		switch msg.String() {
		case "esc", "x":
			m.notice = "cancelling..."
			return m, m.cancel()
		case "q":
			return m, tea.Quit
		}

	case viewSelect:
		n := len(m.snap.Candidates)
		switch key := msg.String(); key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < n-1 {
				m.cursor++
			}
		case "enter":
			if n == 0 {
				return m, nil
			}
			return m.choose(m.snap.Candidates[m.cursor].Label)
		case "q":
			return m, tea.Quit
		default:
			if choice, ok := orchestrator.MatchCandidate(m.snap.Candidates, key); ok {
				return m.choose(choice)
			}
		}

	case viewResults:
		switch msg.String() {
		case "n":
			m.reset()
			return m, nil
		case "q", "esc":
			return m, tea.Quit
		}

	case viewFailed:
		switch msg.String() {
		case "enter", "r":
			m.reset()
			return m, nil
		case "q", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m AppModel) begin(path string) (tea.Model, tea.Cmd) {
	m.path = path
	m.view = viewRunning
	m.notice = ""
	m.err = nil
	m.runID = ""
	m.statuses = make(map[orchestrator.Stage]orchestrator.Status)
	return m, m.startRun(path)
}

func (m AppModel) choose(choice string) (tea.Model, tea.Cmd) {
	m.view = viewRunning
	m.notice = ""
	return m, m.resume(choice)
}

// reset returns to the unstarted state, keeping the last path for a retry.
// Failed runs have already been discarded by the session manager.
func (m *AppModel) reset() {
	if m.view == viewResults {
		_ = m.mgr.Reset(m.snap.ID)
	}
	m.view = viewUpload
	m.snap = orchestrator.Snapshot{}
	m.runID = ""
	m.cursor = 0
	m.err = nil
	m.notice = ""
	m.statuses = make(map[orchestrator.Stage]orchestrator.Status)
}

// View renders the current state.
func (m AppModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Data Analysis Wizard"))
	b.WriteString("\n\n")

	if m.view != viewUpload {
		b.WriteString(m.progressView())
		b.WriteString("\n")
	}

	switch m.view {
	case viewUpload:
		b.WriteString(headerStyle.Render("Upload a dataset"))
		b.WriteString("\n  File: " + m.path + "█\n")
		b.WriteString(dimStyle.Render("  Accepted: " + strings.Join(dataset.Extensions, ", ")))
		b.WriteString("\n")
	case viewSelect:
		b.WriteString(m.selectView())
	case viewResults:
		b.WriteString(m.resultsView())
	case viewFailed:
		b.WriteString(errorStyle.Render("Error: " + errString(m.err)))
		b.WriteString("\n" + dimStyle.Render("The run was reset. Upload the dataset again to retry."))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + dimStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(m.help()))
	return b.String()
}

func (m AppModel) progressView() string {
	var b strings.Builder
	if m.name != "" {
		b.WriteString(headerStyle.Render(m.name) + "\n")
	}
	for _, d := range m.stages {
		status, ok := m.statuses[d.Index]
		if !ok {
			status = orchestrator.StatusPending
		}
		ev := orchestrator.Event{Stage: d.Index, Status: status}
		if status == orchestrator.StatusAwaitingInput {
			ev.Payload = m.snap.Candidates
		}
		if status == orchestrator.StatusFailed {
			ev.Err = m.err
		}
		b.WriteString(orchestrator.FormatProgress(ev, d.Label) + "\n")
	}
	return b.String()
}

func (m AppModel) selectView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Select the analysis type") + "\n")
	for i, c := range m.snap.Candidates {
		line := fmt.Sprintf("%d. %s", i+1, c.Label)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	if m.cursor < len(m.snap.Candidates) {
		if desc := m.snap.Candidates[m.cursor].Description; desc != "" {
			b.WriteString("\n" + cardStyle.Render(desc) + "\n")
		}
	}
	return b.String()
}

func (m AppModel) resultsView() string {
	rep := report.Build(m.name, m.snap, m.snap.StartedAt)
	width := m.width - 4
	var b strings.Builder
	for _, s := range rep.Stages {
		for _, c := range report.Cards(s.Result) {
			style := cardStyle
			if width > 20 {
				style = style.Width(width)
			}
			b.WriteString(style.Render(headerStyle.Render(c.Title)+"\n"+c.Body) + "\n")
		}
	}
	return b.String()
}

func (m AppModel) help() string {
	switch m.view {
	case viewUpload:
		return "enter: start • esc: quit"
	case viewRunning:
		return "x: cancel • q: quit"
	case viewSelect:
		return "↑/↓ or 1-9: choose • enter: confirm • q: quit"
	case viewResults:
		return "n: new analysis • q: quit"
	case viewFailed:
		return "r: start over • q: quit"
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
