package state

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	checklistItemRe = regexp.MustCompile(`^\s*[-*]\s+\[( |x|X)\]\s+(.+)$`)
	checklistBoxRe  = regexp.MustCompile(`^(\s*[-*]\s+\[)( |x|X)(\]\s+)(.+)$`)
)

// Progress summarizes a plan checklist.
type Progress struct {
	Pending   int
	Completed int

	// Next is the text of the first pending step, empty when none remain.
	Next string
}

// Total returns the number of checklist steps.
func (p Progress) Total() int {
	return p.Pending + p.Completed
}

// Empty reports whether the plan has no checklist steps at all.
func (p Progress) Empty() bool {
	return p.Total() == 0
}

// NextOrNone returns Next, or "(none)" when no step is pending.
func (p Progress) NextOrNone() string {
	if p.Next == "" {
		return "(none)"
	}
	return p.Next
}

// ParseProgress counts "- [ ]" and "- [x]" steps in text.
func ParseProgress(text string) Progress {
	var p Progress
	for _, line := range strings.Split(text, "\n") {
		m := checklistItemRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		if strings.EqualFold(m[1], "x") {
			p.Completed++
			continue
		}
		p.Pending++
		if p.Next == "" {
			p.Next = strings.TrimSpace(m[2])
		}
	}
	return p
}

// MarkNextDone ticks the first pending step in text. It returns the updated
// text and the step that was completed; ok is false when nothing was pending.
func MarkNextDone(text string) (updated, step string, ok bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		body := strings.TrimRight(line, "\r")
		m := checklistBoxRe.FindStringSubmatch(body)
		if m == nil || m[2] != " " {
			continue
		}
		lines[i] = m[1] + "x" + m[3] + m[4] + line[len(body):]
		return strings.Join(lines, "\n"), strings.TrimSpace(m[4]), true
	}
	return text, "", false
}

// Checklist is the plan file holding ordered "- [ ]" / "- [x]" steps.
type Checklist struct {
	path string
}

// NewChecklist creates a Checklist backed by the file at path.
func NewChecklist(path string) *Checklist {
	return &Checklist{path: path}
}

// Path returns the plan file location.
func (c *Checklist) Path() string {
	return c.path
}

// Progress reads the plan file. A missing file has no steps.
func (c *Checklist) Progress() (Progress, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Progress{}, nil
		}
		return Progress{}, fmt.Errorf("failed to read plan: %w", err)
	}
	return ParseProgress(string(data)), nil
}

// MarkNextDone ticks the first pending step on disk and returns its text.
// It returns "" without writing when no step is pending.
func (c *Checklist) MarkNextDone() (string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read plan: %w", err)
	}

	updated, step, ok := MarkNextDone(string(data))
	if !ok {
		return "", nil
	}
	if err := writeFileAtomic(c.path, []byte(updated)); err != nil {
		return "", fmt.Errorf("failed to update plan: %w", err)
	}
	return step, nil
}
