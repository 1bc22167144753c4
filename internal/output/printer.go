// Package output renders the controller's terminal output.
//
// All console text goes through a [Printer] so the controller, the agent
// supervisor and the CLI commands can be tested against a buffer. Styling
// uses lipgloss with a renderer bound to the destination writer: a terminal
// gets colour, a buffer or pipe gets plain text.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"agentflow/internal/classify"
	"agentflow/internal/policy"
	"agentflow/internal/state"
	"agentflow/internal/status"
)

const ruleWidth = 80

// Printer is the console surface used by the controller and the CLI.
// Implementations must be safe for concurrent use.
type Printer interface {
	// Role output, reported by the agent supervisor.
	RoleStart(role status.Role, workDir, step string)
	RoleLine(role status.Role, cl classify.Classification)
	RoleNotice(role status.Role, text string)
	RoleWarning(role status.Role, text string)

	RunStart(info RunInfo)
	ResumeRole(role status.Role)
	CycleStart(cycle, maxCycles int)
	StepActive(step string)
	Resume(to status.Role)
	Gate(text string)
	CycleGate(cycle int, summary string, applyOK bool)
	StepCompleted(step string)
	StepValidated()
	RunEnd(summary Summary)

	StatusTable(st state.WorkflowState, progress state.Progress)
	Findings(findings []policy.Finding)

	Text(format string, args ...any)
	Error(err error)
}

// DefaultPrinter writes styled text to a writer.
type DefaultPrinter struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	title  lipgloss.Style
	role   lipgloss.Style
	gate   lipgloss.Style
	warn   lipgloss.Style
	dim    lipgloss.Style
	ok     lipgloss.Style
	failed lipgloss.Style
}

// NewPrinter creates a printer writing to stdout.
func NewPrinter() *DefaultPrinter {
	return NewPrinterWithWriter(os.Stdout)
}

// NewPrinterWithWriter creates a printer writing to w.
func NewPrinterWithWriter(w io.Writer) *DefaultPrinter {
	r := lipgloss.NewRenderer(w)
	return &DefaultPrinter{
		out:    w,
		now:    time.Now,
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		role:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		gate:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("208")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("8")),
		ok:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		failed: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

func (p *DefaultPrinter) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func (p *DefaultPrinter) roleLine(role status.Role, text string) {
	p.println(p.role.Render("["+string(role)+"]") + " " + text)
}

// RoleStart prints the role banner.
func (p *DefaultPrinter) RoleStart(role status.Role, workDir, step string) {
	rule := strings.Repeat("=", ruleWidth)
	p.println("\n" + p.dim.Render(rule))
	p.roleLine(role, "Starting at "+p.now().Format("2006-01-02T15:04:05"))
	p.roleLine(role, "Working directory: "+workDir)
	if step != "" {
		p.roleLine(role, "Step: "+step)
	}
	p.println(p.dim.Render(rule))
}

// RoleLine prints one classified output line.
func (p *DefaultPrinter) RoleLine(role status.Role, cl classify.Classification) {
	switch cl.Kind {
	case classify.KindSuppressed:
		return
	case classify.KindNote:
		p.roleLine(role, "note: "+cl.Text)
	case classify.KindToolCall:
		p.roleLine(role, "running: "+cl.Text)
	case classify.KindThinking:
		p.roleLine(role, p.dim.Render("planning next step..."))
	default:
		p.roleLine(role, cl.Text)
	}
}

// RoleNotice prints a heartbeat or status notice.
func (p *DefaultPrinter) RoleNotice(role status.Role, text string) {
	p.roleLine(role, p.dim.Render(text))
}

// RoleWarning prints a supervisor warning.
func (p *DefaultPrinter) RoleWarning(role status.Role, text string) {
	p.roleLine(role, p.warn.Render(text))
}

// ResumeRole prints the role the run starts at.
func (p *DefaultPrinter) ResumeRole(role status.Role) {
	p.println("Resume role: workflow_state=" + string(role))
}

// CycleStart prints the cycle header.
func (p *DefaultPrinter) CycleStart(cycle, maxCycles int) {
	rule := strings.Repeat("#", ruleWidth)
	p.println("\n" + p.dim.Render(rule))
	p.println(p.title.Render(fmt.Sprintf("CYCLE %d / %d", cycle, maxCycles)))
	p.println(p.dim.Render(rule) + "\n")
}

// StepActive prints the plan step the cycle works on.
func (p *DefaultPrinter) StepActive(step string) {
	p.println("Current plan step: " + step)
}

// Resume prints which roles a resumed cycle skips.
func (p *DefaultPrinter) Resume(to status.Role) {
	var skipped string
	switch to {
	case status.RoleReviewer:
		skipped = "developer"
	case status.RoleTester:
		skipped = "developer/reviewer"
	case status.RoleCompliance:
		skipped = "developer/reviewer/tester"
	default:
		return
	}
	p.println(p.gate.Render("[RESUME]") + fmt.Sprintf(" Skipping %s this cycle and resuming at %s.", skipped, to.Lower()))
}

// Gate prints a gate decision or controller notice.
func (p *DefaultPrinter) Gate(text string) {
	p.println(p.gate.Render("[GATE]") + " " + text)
}

// CycleGate prints the statuses the delivery gate saw.
func (p *DefaultPrinter) CycleGate(cycle int, summary string, applyOK bool) {
	p.println(fmt.Sprintf("Cycle %d gate -> %s, apply_ok=%t", cycle, summary, applyOK))
}

// StepCompleted prints a checked-off plan step.
func (p *DefaultPrinter) StepCompleted(step string) {
	p.println(p.ok.Render("Completed plan step:") + " " + step)
}

// StepValidated announces the move to the next step.
func (p *DefaultPrinter) StepValidated() {
	p.println("Step validated. Proceeding to next plan step.")
}

// Text prints a plain formatted line.
func (p *DefaultPrinter) Text(format string, args ...any) {
	p.println(fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (p *DefaultPrinter) Error(err error) {
	p.println(p.failed.Render("Error:") + " " + err.Error())
}
