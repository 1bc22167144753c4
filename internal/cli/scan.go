package cli

import (
	"github.com/spf13/cobra"
)

func newScanCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "Scan the workspace for sensitive content",
		Long: `Run the sensitive-content scan used by the compliance gate without
starting a workflow. Exits 1 when anything is found.

Example:
  agentflow scan ./infra`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := app.workDir()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				dir = resolvePath(dir, args[0])
			}

			scanner := app.Config.Scanner(app.logger(app.Config.Agent.Debug))
			findings, err := scanner.Scan(cmd.Context(), dir)
			if err != nil {
				return err
			}
			app.Printer.Findings(findings)
			if len(findings) > 0 {
				return NewExitError(ExitFailure)
			}
			return nil
		},
	}
}
