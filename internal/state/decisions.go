package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"agentflow/internal/status"
)

const decisionsHeader = "# Agent Decisions and Handoffs (Current)\n\n## Events\n"

// Decision log event names.
const (
	EventPlanProgress  = "plan_progress"
	EventWorkflowStart = "workflow_start"
	EventWorkflowEnd   = "workflow_end"
	EventResume        = "resume"
)

// Gate names recorded in the decision log.
const (
	GateApplyEnforcement = "APPLY_ENFORCEMENT"
	GateSensitiveScan    = "SENSITIVE_SCAN"
	GateDelivery         = "DELIVERY"
)

// Workflow results recorded by [DecisionLog.LogWorkflowEnd].
const (
	ResultSuccess          = "SUCCESS"
	ResultStalled          = "STALLED"
	ResultMaxCyclesReached = "MAX_CYCLES_REACHED"
	ResultFailed           = "FAILED"
)

// Field is one "key=value" pair of a decision entry.
type Field struct {
	Key   string
	Value string
}

// Entry is one decision-log line.
type Entry struct {
	Cycle  int
	Event  string
	Fields []Field
}

// DecisionLog is the append-only record of transitions and gate outcomes.
// Entries are only ever appended; existing lines are never rewritten.
type DecisionLog struct {
	path  string
	runID string
	now   func() time.Time
	mu    sync.Mutex
}

// NewDecisionLog creates a log at path. When runID is non-empty every entry
// carries it as a trailing "run=" field.
func NewDecisionLog(path, runID string) *DecisionLog {
	return &DecisionLog{path: path, runID: runID, now: time.Now}
}

// Path returns the log file location.
func (l *DecisionLog) Path() string {
	return l.path
}

// Log appends one entry.
func (l *DecisionLog) Log(e Entry) error {
	if e.Event == "" && len(e.Fields) == 0 {
		return errors.New("decision entry is empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLine(l.formatEntry(e))
}

// LogRole records a role's parsed status markers, followed by any extra
// fields.
func (l *DecisionLog) LogRole(cycle int, role status.Role, out status.Outcome, extra ...Field) error {
	fields := []Field{{Key: "role", Value: string(role)}}
	for _, m := range status.MarkersFor(role) {
		fields = append(fields, Field{Key: strings.ToLower(m.Name), Value: string(out.Value(m))})
	}
	fields = append(fields, Field{Key: "replan_required", Value: yesNo(out.Replan)})
	return l.Log(Entry{Cycle: cycle, Fields: append(fields, extra...)})
}

// LogHandoff records control passing from one role to another.
func (l *DecisionLog) LogHandoff(cycle int, from, to status.Role, reason string) error {
	fields := []Field{{Key: "handoff", Value: string(from) + "->" + string(to)}}
	if reason != "" {
		fields = append(fields, Field{Key: "reason", Value: reason})
	}
	return l.Log(Entry{Cycle: cycle, Fields: fields})
}

// LogResume records a resumed handoff that skipped earlier roles.
func (l *DecisionLog) LogResume(cycle int, from, to status.Role) error {
	return l.Log(Entry{
		Cycle:  cycle,
		Event:  EventResume,
		Fields: []Field{{Key: "handoff", Value: string(from) + "->" + string(to)}},
	})
}

// LogGate records a gate outcome.
func (l *DecisionLog) LogGate(cycle int, gate string, fields ...Field) error {
	return l.Log(Entry{Cycle: cycle, Fields: append([]Field{{Key: "gate", Value: gate}}, fields...)})
}

// LogPlanProgress records checklist counts.
func (l *DecisionLog) LogPlanProgress(cycle int, p Progress) error {
	return l.Log(Entry{
		Cycle: cycle,
		Event: EventPlanProgress,
		Fields: []Field{
			{Key: "completed", Value: strconv.Itoa(p.Completed)},
			{Key: "pending", Value: strconv.Itoa(p.Pending)},
			{Key: "next_step", Value: p.NextOrNone()},
		},
	})
}

// LogStepActive records the plan step a cycle works on.
func (l *DecisionLog) LogStepActive(cycle int, step string) error {
	return l.Log(Entry{Cycle: cycle, Fields: []Field{{Key: "plan_step_active", Value: step}}})
}

// LogStepCompleted records a plan step ticked off after all gates passed.
func (l *DecisionLog) LogStepCompleted(cycle int, step string) error {
	return l.Log(Entry{Cycle: cycle, Fields: []Field{{Key: "plan_step_completed", Value: step}}})
}

// LogWorkflowStart records the role the run starts (or resumes) at.
func (l *DecisionLog) LogWorkflowStart(role status.Role) error {
	return l.Log(Entry{
		Event: EventWorkflowStart,
		Fields: []Field{
			{Key: "handoff", Value: "SYSTEM->" + string(role)},
			{Key: "note", Value: "planner_architect_on_demand"},
		},
	})
}

// LogWorkflowEnd records how the run finished.
func (l *DecisionLog) LogWorkflowEnd(cycle int, result, reason string) error {
	fields := []Field{{Key: "result", Value: result}}
	if reason != "" {
		fields = append(fields, Field{Key: "reason", Value: reason})
	}
	return l.Log(Entry{Cycle: cycle, Event: EventWorkflowEnd, Fields: fields})
}

// formatEntry renders "- <ts> | cycle=<n> | <event> | k=v ...".
func (l *DecisionLog) formatEntry(e Entry) string {
	now := l.now
	if now == nil {
		now = time.Now
	}

	parts := []string{now().Format(timestampLayout), "cycle=" + strconv.Itoa(e.Cycle)}
	if e.Event != "" {
		parts = append(parts, e.Event)
	}
	for _, f := range e.Fields {
		parts = append(parts, f.Key+"="+sanitizeValue(f.Value))
	}
	if l.runID != "" {
		parts = append(parts, "run="+l.runID)
	}
	return "- " + strings.Join(parts, " | ")
}

// sanitizeValue keeps values on a single line.
func sanitizeValue(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// appendLine writes line to the log, creating the header when the file is
// new and the events section when an older file lacks one.
func (l *DecisionLog) appendLine(line string) error {
	if l.path == "" {
		return errors.New("decision log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(l.path), dirMode); err != nil {
		return fmt.Errorf("failed to create decision log directory: %w", err)
	}

	existing, err := os.ReadFile(l.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read decision log: %w", err)
	}

	var prefix string
	switch {
	case len(existing) == 0:
		prefix = decisionsHeader
	case !strings.Contains(string(existing), "## Events\n"):
		prefix = "\n## Events\n"
	case existing[len(existing)-1] != '\n':
		prefix = "\n"
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("failed to open decision log: %w", err)
	}
	if _, err := file.WriteString(prefix + line + "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write decision log: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close decision log: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return string(status.Yes)
	}
	return string(status.No)
}
