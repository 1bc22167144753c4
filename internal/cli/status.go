package cli

import (
	"github.com/spf13/cobra"

	"agentflow/internal/state"
)

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show plan progress and the persisted workflow record",
		Long: `Show how far the plan checklist has progressed and the workflow record
a resumed run would start from. Nothing is modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := app.workDir()
			if err != nil {
				return err
			}
			ws := state.Open(dir, app.Config.Files, "")

			progress, err := ws.Checklist.Progress()
			if err != nil {
				return err
			}
			rec, err := ws.Record.Load()
			if err != nil {
				return err
			}
			app.Printer.StatusTable(rec, progress)
			return nil
		},
	}
}
