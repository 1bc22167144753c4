// Package cli implements the agentflow command-line surface.
//
// Commands are built with Cobra around an [App] that carries the loaded
// configuration and every collaborator a command needs. Tests build an App
// with a buffer-backed printer and an [agent.MockExecutor] instead of the
// real process supervisor.
//
// Commands:
//   - run: drive the role pipeline over the working directory's plan
//   - status: show plan progress and the persisted workflow record
//   - scan: run the sensitive-content scan on its own
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"agentflow/internal/agent"
	"agentflow/internal/config"
	"agentflow/internal/output"
)

// ExecutorFactory builds the agent executor for one run.
type ExecutorFactory func(settings agent.Settings, reporter agent.Reporter, logger *slog.Logger) agent.Executor

// App bundles the dependencies shared by all commands.
type App struct {
	Config  *config.Config
	Printer output.Printer

	// NewExecutor builds the executor for a run. Defaults to the process
	// supervisor.
	NewExecutor ExecutorFactory

	// NewRunID stamps each run. Defaults to a timestamped UUID prefix.
	NewRunID func() string

	// Logger receives internal diagnostics. A nil logger is replaced per
	// run, honouring agent.debug.
	Logger *slog.Logger

	// WorkDir overrides the process working directory.
	WorkDir string
}

// NewApp creates an App with production collaborators.
func NewApp(cfg *config.Config) *App {
	return &App{
		Config:  cfg,
		Printer: output.NewPrinter(),
		NewExecutor: func(settings agent.Settings, reporter agent.Reporter, logger *slog.Logger) agent.Executor {
			return agent.NewSupervisor(settings, reporter, logger)
		},
		NewRunID: newRunID,
	}
}

func newRunID() string {
	return fmt.Sprintf("run-%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// workDir returns the directory commands operate on.
func (a *App) workDir() (string, error) {
	if a.WorkDir != "" {
		return a.WorkDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return dir, nil
}

// logger returns the diagnostics logger, writing debug output to stderr when
// debug is set and discarding otherwise.
func (a *App) logger(debug bool) *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	if debug {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.DiscardHandler)
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentflow",
		Short: "Multi-role agent pipeline orchestrator",
		Long: `agentflow drives an external agent CLI through a gated role pipeline:
planner and architect on demand, then developer, reviewer, tester and
compliance for every step of the plan checklist in plan.md.

State lives in the working directory, so an interrupted run resumes where
it stopped without skipping verification.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCommand(app),
		newStatusCommand(app),
		newScanCommand(app),
	)
	return rootCmd
}

// ExecuteResult is the outcome of [RunWithConfig].
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// RunWithConfig runs the root command with args and reports the exit code
// instead of exiting. SIGINT and SIGTERM cancel the command's context.
func RunWithConfig(cfg *config.Config, args []string) ExecuteResult {
	return runApp(NewApp(cfg), args)
}

func runApp(app *App, args []string) ExecuteResult {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		app.Printer.Error(err)
		return ExecuteResult{ExitCode: ExitFailure, Err: err}
	}
	return ExecuteResult{}
}

// Execute loads .env and configuration, runs the CLI and exits the process.
func Execute() {
	_ = godotenv.Load()

	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(ExitFailure)
	}

	result := RunWithConfig(cfg, os.Args[1:])
	os.Exit(result.ExitCode)
}
