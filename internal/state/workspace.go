// Package state owns the durable artifacts a workflow run reasons over: the
// plan checklist, per-role state snapshots, the append-only decision log and
// the resumable workflow-state record.
//
// The controller is the single writer. Whole-file artifacts are replaced
// atomically; the decision log is only ever appended to.
package state

import (
	"fmt"
	"path/filepath"
	"time"

	"agentflow/internal/status"
)

// Files names every shared artifact. Relative paths resolve against the
// workspace directory.
type Files struct {
	Plan         string `mapstructure:"plan"`
	Architecture string `mapstructure:"architecture"`
	Development  string `mapstructure:"development"`
	Review       string `mapstructure:"review"`
	TestResults  string `mapstructure:"test_results"`
	Compliance   string `mapstructure:"compliance"`
	Decisions    string `mapstructure:"decisions"`
	State        string `mapstructure:"state"`
}

// DefaultFiles returns the conventional artifact names.
func DefaultFiles() Files {
	return Files{
		Plan:         "plan.md",
		Architecture: "architecture.md",
		Development:  "development.md",
		Review:       "review.md",
		TestResults:  "test_results.md",
		Compliance:   "compliance.md",
		Decisions:    "decisions_log.md",
		State:        "workflow_state.yaml",
	}
}

// Brief carries the inputs recorded in a freshly bootstrapped plan.
type Brief struct {
	Idea            string
	Guidelines      string
	RolePreferences string
}

// Workspace bundles the artifacts of one working directory.
type Workspace struct {
	Dir       string
	Files     Files
	Checklist *Checklist
	Decisions *DecisionLog
	Record    *Record

	now func() time.Time
}

// Open resolves files against dir. Nothing is read or written until a method
// is called.
func Open(dir string, files Files, runID string) *Workspace {
	resolved := Files{
		Plan:         resolve(dir, files.Plan),
		Architecture: resolve(dir, files.Architecture),
		Development:  resolve(dir, files.Development),
		Review:       resolve(dir, files.Review),
		TestResults:  resolve(dir, files.TestResults),
		Compliance:   resolve(dir, files.Compliance),
		Decisions:    resolve(dir, files.Decisions),
		State:        resolve(dir, files.State),
	}
	return &Workspace{
		Dir:       dir,
		Files:     resolved,
		Checklist: NewChecklist(resolved.Plan),
		Decisions: NewDecisionLog(resolved.Decisions, runID),
		Record:    NewRecord(resolved.State),
		now:       time.Now,
	}
}

// Paths lists every artifact in a stable order.
func (w *Workspace) Paths() []string {
	f := w.Files
	return []string{f.Plan, f.Architecture, f.Development, f.Review, f.TestResults, f.Compliance, f.Decisions, f.State}
}

// Snapshot returns the current-state snapshot a role maintains. The second
// return is false for roles that own no snapshot.
func (w *Workspace) Snapshot(role status.Role) (Snapshot, bool) {
	var s Snapshot
	switch role {
	case status.RoleDeveloper:
		s = Snapshot{Path: w.Files.Development, Title: "Development State"}
	case status.RoleReviewer:
		s = Snapshot{Path: w.Files.Review, Title: "Review State"}
	case status.RoleTester:
		s = Snapshot{Path: w.Files.TestResults, Title: "Test State"}
	case status.RoleCompliance:
		s = Snapshot{Path: w.Files.Compliance, Title: "Compliance State"}
	default:
		return Snapshot{}, false
	}
	s.now = w.now
	return s, true
}

// Ensure creates any missing artifact with placeholder content and
// normalizes pre-existing role snapshots into snapshot form. Existing
// content is never discarded.
func (w *Workspace) Ensure(brief Brief) error {
	prefs := brief.RolePreferences
	if prefs == "" {
		prefs = "(none)"
	}

	placeholders := []struct {
		path    string
		content string
	}{
		{w.Files.Plan, fmt.Sprintf("# Plan\n\n## Inputs\n- Idea: %s\n- Guidelines: %s\n- Role Preferences: %s\n\n## Current Plan\n(To be written by planner)\n",
			brief.Idea, brief.Guidelines, prefs)},
		{w.Files.Architecture, "# Architecture\n\n(To be written by architect)\n"},
		{w.Files.Development, "# Development State\n\n(To be maintained as current state by developer)\n"},
		{w.Files.Review, "# Review State\n\n(To be maintained as current state by reviewer)\n"},
		{w.Files.TestResults, "# Test State\n\n(To be maintained as current state by tester)\n"},
		{w.Files.Compliance, "# Compliance State\n\n(To be maintained as current state by compliance role)\n"},
		{w.Files.Decisions, decisionsHeader},
		{w.Files.State, "{}\n"},
	}
	for _, p := range placeholders {
		exists, err := fileExists(p.path)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := writeFileAtomic(p.path, []byte(p.content)); err != nil {
			return err
		}
	}

	for _, role := range []status.Role{status.RoleDeveloper, status.RoleReviewer, status.RoleTester, status.RoleCompliance} {
		snap, _ := w.Snapshot(role)
		if err := snap.Normalize(); err != nil {
			return err
		}
	}
	return nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
