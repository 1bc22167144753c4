package state

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	snapshotSection = "## Current State"
	emptySnapshot   = "(no updates yet)"
)

// timestampLayout matches the second-precision local ISO format used in
// every persisted artifact.
const timestampLayout = "2006-01-02T15:04:05"

// FormatSnapshot renders a role state snapshot.
func FormatSnapshot(title, body string, at time.Time) string {
	return fmt.Sprintf("# %s\n\nUpdated: %s\n\n%s\n%s\n",
		title, at.Format(timestampLayout), snapshotSection, strings.TrimSpace(body))
}

// Snapshot is a per-role current-state file. Each write fully replaces the
// previous content.
type Snapshot struct {
	Path  string
	Title string

	now func() time.Time
}

// Write replaces the snapshot with body.
func (s Snapshot) Write(body string) error {
	if err := writeFileAtomic(s.Path, []byte(FormatSnapshot(s.Title, body, s.clock()))); err != nil {
		return fmt.Errorf("failed to write %s snapshot: %w", s.Title, err)
	}
	return nil
}

// Normalize rewrites a pre-existing file into snapshot form. Files already
// in that form, and missing files, are left alone. The body kept is the text
// after the last "## " heading, or the whole file when it has none.
func (s Snapshot) Normalize() error {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s snapshot: %w", s.Title, err)
	}

	body, changed := normalizeSnapshot(s.Title, string(data))
	if !changed {
		return nil
	}
	return s.Write(body)
}

func (s Snapshot) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// normalizeSnapshot returns the body to keep and whether text needs rewriting.
func normalizeSnapshot(title, text string) (string, bool) {
	if strings.HasPrefix(text, "# "+title+"\n") && strings.Contains(text, snapshotSection) {
		return "", false
	}

	normalized := strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := strings.Split(normalized, "\n")
	last := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "## ") {
			last = i
		}
	}

	var body string
	if last >= 0 && last+1 < len(lines) {
		body = strings.TrimSpace(strings.Join(lines[last+1:], "\n"))
	} else {
		body = strings.TrimSpace(text)
	}
	if body == "" {
		body = emptySnapshot
	}
	return body, true
}
