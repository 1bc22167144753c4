package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agentflow/internal/state"
)

const (
	changesModeIdea       = "Apply requested changes to the existing workspace implementation."
	changesModeGuidelines = "Use existing plan.md, architecture.md, development.md, review.md, and test_results.md as the source of truth while implementing changes."
)

// inputFlags are the project inputs given on the command line.
type inputFlags struct {
	idea       string
	guidelines string

	// briefFile is set only when --brief-file was given; a missing explicit
	// brief is an error, a missing default brief is not.
	briefFile string
}

// document is an optional text file in the workspace.
type document struct {
	Path    string
	Text    string
	Present bool
}

// readDocument reads path relative to dir. A missing file is not an error.
func readDocument(dir, path string) (document, error) {
	doc := document{Path: resolvePath(dir, path)}
	data, err := os.ReadFile(doc.Path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("failed to read %s: %w", doc.Path, err)
	}
	doc.Present = true
	doc.Text = strings.TrimSpace(string(data))
	return doc, nil
}

// resolveBrief settles the idea, guidelines and role preferences. Flags win
// over the brief file, which wins over the inputs recorded in the plan.
// With a changes file present, missing inputs fall back to change-mode
// defaults so follow-up runs need no brief.
func resolveBrief(dir string, flags inputFlags, defaultBrief, planFile string, changesMode bool) (state.Brief, error) {
	var fromFile state.Brief
	briefPath, explicit := flags.briefFile, flags.briefFile != ""
	if !explicit {
		briefPath = defaultBrief
	}
	if briefPath != "" {
		doc, err := readDocument(dir, briefPath)
		if err != nil {
			return state.Brief{}, err
		}
		if !doc.Present && explicit {
			return state.Brief{}, fmt.Errorf("brief file not found: %s", doc.Path)
		}
		if doc.Present {
			fromFile = state.ParseBrief(doc.Text)
		}
	}

	plan, err := readDocument(dir, planFile)
	if err != nil {
		return state.Brief{}, err
	}
	fromPlan := state.BriefFromPlan(plan.Text)

	brief := state.Brief{Idea: flags.idea, Guidelines: flags.guidelines}.Merge(fromFile).Merge(fromPlan)

	if changesMode && brief.Idea == "" {
		brief.Idea = changesModeIdea
	}
	if changesMode && brief.Guidelines == "" {
		brief.Guidelines = changesModeGuidelines
	}

	if brief.Idea == "" {
		return state.Brief{}, errors.New("project idea is required: provide --idea or --brief-file, or keep prior context in plan.md")
	}
	if brief.Guidelines == "" {
		return state.Brief{}, errors.New("guidelines are required: provide --guidelines or --brief-file, or keep prior context in plan.md (- Guidelines: or - Required stack:)")
	}
	return brief, nil
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}
