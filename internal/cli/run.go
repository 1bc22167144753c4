package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"agentflow/internal/config"
	"agentflow/internal/lifecycle"
	"agentflow/internal/output"
	"agentflow/internal/state"
)

// runFlags holds the run command's flag values. Values only override the
// configuration when the flag was set explicitly.
type runFlags struct {
	backend     string
	briefFile   string
	idea        string
	guidelines  string
	changesFile string
	policyFile  string
	maxCycles   int
	maxStalls   int
	enforce     bool
	noEnforce   bool
	strict      bool
	noStrict    bool
	debug       bool
}

func newRunCommand(app *App) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the role pipeline over the plan checklist",
		Long: `Run the role pipeline in the working directory.

Each cycle works on the first unchecked step of plan.md: the developer
implements it, the reviewer and tester verify it, and the compliance role
plus a sensitive-content scan check it against policy. A step is ticked off
only when every gate passes. The run ends when the checklist is complete,
when identical gate outcomes repeat without progress, or at the cycle limit.

Example:
  agentflow run --cli claude --idea "Inventory service" --guidelines "Go, Postgres"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.apply(cmd, app.Config)
			if err != nil {
				return err
			}
			return runWorkflow(cmd.Context(), app, cfg, inputFlags{
				idea:       f.idea,
				guidelines: f.guidelines,
				briefFile:  f.briefFile,
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.backend, "cli", "", "agent CLI backend: codex or claude")
	fl.StringVar(&f.briefFile, "brief-file", "", "markdown file with ## Idea and ## Guidelines sections (default: brief.md when present)")
	fl.StringVar(&f.idea, "idea", "", "high-level product idea")
	fl.StringVar(&f.guidelines, "guidelines", "", "rough stack and tool guidance")
	fl.StringVar(&f.changesFile, "changes-file", "", "change request file for follow-up runs (default: changes.md)")
	fl.StringVar(&f.policyFile, "policy-file", "", "policy pack markdown file (default: agent_policies.md)")
	fl.IntVar(&f.maxCycles, "max-cycles", 0, "maximum developer to compliance cycles (default: 6)")
	fl.IntVar(&f.maxStalls, "max-stagnation-cycles", 0, "stop after this many identical cycles without progress (default: 3)")
	fl.BoolVar(&f.enforce, "enforce-apply", false, "require successful infrastructure apply evidence before tests pass")
	fl.BoolVar(&f.noEnforce, "no-enforce-apply", false, "disable apply enforcement")
	fl.BoolVar(&f.strict, "strict-policy-gates", false, "block completion on compliance or safeguard failures")
	fl.BoolVar(&f.noStrict, "no-strict-policy-gates", false, "let compliance failures through the delivery gate")
	fl.BoolVar(&f.debug, "debug", false, "show raw agent output and internal diagnostics")
	cmd.MarkFlagsMutuallyExclusive("enforce-apply", "no-enforce-apply")
	cmd.MarkFlagsMutuallyExclusive("strict-policy-gates", "no-strict-policy-gates")

	return cmd
}

// apply returns a copy of base with explicitly set flags applied, validated.
func (f *runFlags) apply(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	cfg := *base
	changed := cmd.Flags().Changed

	if changed("cli") {
		cfg.Agent.Backend = f.backend
	}
	if changed("debug") {
		cfg.Agent.Debug = f.debug
	}
	if changed("changes-file") {
		cfg.Workflow.ChangesFile = f.changesFile
	}
	if changed("policy-file") {
		cfg.Workflow.PolicyFile = f.policyFile
	}
	if changed("max-cycles") {
		cfg.Workflow.MaxCycles = f.maxCycles
	}
	if changed("max-stagnation-cycles") {
		cfg.Workflow.MaxStagnationCycles = f.maxStalls
	}
	switch {
	case changed("enforce-apply"):
		cfg.Workflow.EnforceApply = f.enforce
	case changed("no-enforce-apply"):
		cfg.Workflow.EnforceApply = !f.noEnforce
	}
	switch {
	case changed("strict-policy-gates"):
		cfg.Workflow.StrictPolicyGates = f.strict
	case changed("no-strict-policy-gates"):
		cfg.Workflow.StrictPolicyGates = !f.noStrict
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// runWorkflow resolves the run inputs, drives the controller and maps the
// outcome to an exit code. SUCCESS, STALLED and MAX_CYCLES_REACHED exit 0.
func runWorkflow(ctx context.Context, app *App, cfg *config.Config, flags inputFlags) error {
	dir, err := app.workDir()
	if err != nil {
		return err
	}
	logger := app.logger(cfg.Agent.Debug)

	settings, err := cfg.AgentSettings()
	if err != nil {
		return err
	}

	changes, err := readDocument(dir, cfg.Workflow.ChangesFile)
	if err != nil {
		return err
	}
	brief, err := resolveBrief(dir, flags, cfg.Workflow.BriefFile, cfg.Files.Plan, changes.Present)
	if err != nil {
		return err
	}
	agents, err := readDocument(dir, cfg.Workflow.AgentsFile)
	if err != nil {
		return err
	}
	policyDoc, err := readDocument(dir, cfg.Workflow.PolicyFile)
	if err != nil {
		return err
	}

	runID := app.NewRunID()
	ws := state.Open(dir, cfg.Files, runID)

	app.Printer.RunStart(output.RunInfo{
		RunID:           runID,
		Backend:         cfg.Agent.Backend,
		WorkDir:         dir,
		Idea:            brief.Idea,
		Guidelines:      brief.Guidelines,
		RolePreferences: brief.RolePreferences,
		FullInputs:      cfg.Output.FullInputs,
		SummaryLength:   cfg.Output.SummaryLength,
		ChangesPath:     changes.Path,
		ChangesLoaded:   changes.Text != "",
		EnforceApply:    cfg.Workflow.EnforceApply,
		StrictPolicy:    cfg.Workflow.StrictPolicyGates,
		AgentsFile:      cfg.Workflow.AgentsFile,
		AgentsPresent:   agents.Present,
		PolicyFile:      cfg.Workflow.PolicyFile,
		PolicyPresent:   policyDoc.Present,
		Artifacts:       ws.Paths(),
	})

	ctrl := lifecycle.NewController(
		app.NewExecutor(settings, app.Printer, logger),
		ws,
		cfg,
		lifecycle.Options{
			RunID:               runID,
			MaxCycles:           cfg.Workflow.MaxCycles,
			MaxStagnationCycles: cfg.Workflow.MaxStagnationCycles,
			EnforceApply:        cfg.Workflow.EnforceApply,
			StrictPolicy:        cfg.Workflow.StrictPolicyGates,
		},
		lifecycle.Inputs{
			Brief:         brief,
			ChangesPath:   changes.Path,
			ChangeRequest: changes.Text,
			Agents:        agents.Text,
			Policy:        policyDoc.Text,
			AgentsFile:    agents.Path,
			PolicyFile:    policyDoc.Path,
		},
	)
	ctrl.SetScanner(cfg.Scanner(logger))
	ctrl.SetPrinter(app.Printer)
	ctrl.SetLogger(logger)

	rep, err := ctrl.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			app.Printer.Text("\nInterrupted by user.")
			return NewExitError(ExitInterrupted)
		}
		app.Printer.Error(err)
		return NewExitError(ExitFailure)
	}

	app.Printer.RunEnd(output.Summary{
		RunID:     rep.RunID,
		Result:    rep.Result,
		Reason:    rep.Reason,
		Cycles:    rep.Cycles,
		Duration:  rep.Duration,
		Artifacts: ws.Paths(),
	})
	return nil
}
