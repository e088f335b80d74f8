package main

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
	"github.com/dusk-indust/datawizard/internal/session"
	"github.com/dusk-indust/datawizard/internal/tui"
)

func newWizardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard [FILE]",
		Short: "Run the wizard interactively in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			progress := orchestrator.NewProgressReporter()
			defer progress.Close()

			orch, err := a.newOrchestrator(cmd.Context(), orchestrator.WithObserver(progress))
			if err != nil {
				return err
			}
			// keep log lines from tearing the alternate screen
			a.log.SetOutput(io.Discard)

			model := tui.NewAppModel(session.NewManager(orch), progress.Events(), path)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
