package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/reflow/truncate"

	"agentflow/internal/policy"
	"agentflow/internal/state"
)

// DefaultSummaryLength caps input summaries when no length is configured.
const DefaultSummaryLength = 180

// RunInfo is the start-of-run banner content.
type RunInfo struct {
	RunID   string
	Backend string
	WorkDir string

	Idea            string
	Guidelines      string
	RolePreferences string

	// FullInputs prints idea and guidelines unabridged.
	FullInputs    bool
	SummaryLength int

	ChangesPath   string
	ChangesLoaded bool

	EnforceApply bool
	StrictPolicy bool

	AgentsFile    string
	AgentsPresent bool
	PolicyFile    string
	PolicyPresent bool

	// Artifacts are the shared file paths.
	Artifacts []string
}

// Summary is the end-of-run report.
type Summary struct {
	RunID    string
	Result   string
	Reason   string
	Cycles   int
	Duration time.Duration

	Artifacts []string
}

// RunStart prints the run banner.
func (p *DefaultPrinter) RunStart(info RunInfo) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", p.title.Render(fmt.Sprintf("Agentic workflow started (CLI: %s).", info.Backend)))
	if info.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", info.RunID)
	}
	if info.FullInputs {
		fmt.Fprintf(&b, "Idea: %s\n", info.Idea)
		fmt.Fprintf(&b, "Guidelines: %s\n", info.Guidelines)
	} else {
		fmt.Fprintf(&b, "Idea (summary): %s\n", SummarizeInput(info.Idea, info.SummaryLength))
		fmt.Fprintf(&b, "Guidelines (summary): %s\n", SummarizeInput(info.Guidelines, info.SummaryLength))
	}
	fmt.Fprintf(&b, "Role preferences: %s\n", orDefault(info.RolePreferences, "(none provided)"))
	fmt.Fprintf(&b, "Change request file: %s %s\n", info.ChangesPath, pick(info.ChangesLoaded, "(loaded)", "(not found or empty)"))
	fmt.Fprintf(&b, "Enforce Terraform apply: %s\n", pick(info.EnforceApply, "enabled", "disabled"))
	fmt.Fprintf(&b, "Strict policy gates: %s\n", pick(info.StrictPolicy, "enabled", "disabled"))
	fmt.Fprintf(&b, "Governance files: %s=%s, %s=%s\n",
		info.AgentsFile, pick(info.AgentsPresent, "present", "missing"),
		info.PolicyFile, pick(info.PolicyPresent, "present", "missing"))
	fmt.Fprintf(&b, "Working directory: %s\n", info.WorkDir)
	b.WriteString("Knowledge files:\n")
	for _, a := range info.Artifacts {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	b.WriteString("\nPlanner/architect are on-demand only and will run when a role flags REPLAN_REQUIRED: YES.")
	p.println(b.String())
}

// RunEnd prints the final result and artifact list.
func (p *DefaultPrinter) RunEnd(s Summary) {
	var b strings.Builder
	style := p.failed
	switch s.Result {
	case state.ResultSuccess:
		style = p.ok
		b.WriteString("\n" + style.Render("Delivery gates satisfied. All plan steps completed.") + "\n")
	case state.ResultMaxCyclesReached:
		b.WriteString("\n" + style.Render("Max cycles reached before full completion gates were satisfied.") + "\n")
	case state.ResultStalled:
		b.WriteString("\n" + style.Render("Workflow stalled: repeated identical gate outcomes.") + "\n")
	default:
		b.WriteString("\n" + style.Render("Workflow failed.") + "\n")
	}
	if s.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", s.Reason)
	}
	fmt.Fprintf(&b, "Result: %s after %d cycle(s) in %s\n", style.Render(s.Result), s.Cycles, s.Duration.Round(time.Second))
	b.WriteString("\nFinal artifacts:")
	for _, a := range s.Artifacts {
		fmt.Fprintf(&b, "\n- %s", a)
	}
	p.println(b.String())
}

// StatusTable prints the persisted workflow state and plan progress.
func (p *DefaultPrinter) StatusTable(st state.WorkflowState, progress state.Progress) {
	if st.IsZero() {
		p.println(p.dim.Render("No workflow state recorded yet."))
	}

	rows := [][]string{
		{"Plan steps", fmt.Sprintf("%d completed, %d pending", progress.Completed, progress.Pending)},
		{"Next step", progress.NextOrNone()},
	}
	if !st.IsZero() {
		rows = append(rows,
			[]string{"Run", orDefault(st.RunID, "-")},
			[]string{"Updated", orDefault(st.UpdatedAt, "-")},
			[]string{"Cycle", strconv.Itoa(st.Cycle)},
			[]string{"Recorded step", orDefault(st.CurrentStep, "(none)")},
			[]string{"Next role", orDefault(string(st.NextRole), "-")},
			[]string{"Developer", string(st.DevStatus)},
			[]string{"Reviewer", string(st.ReviewStatus)},
			[]string{"Tester", string(st.TestStatus)},
			[]string{"Compliance", string(st.ComplianceStatus)},
			[]string{"Safeguards", string(st.SafeguardStatus)},
		)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.dim).
		Headers("FIELD", "VALUE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	p.println(t.String())
}

// Findings prints sensitive-scan findings.
func (p *DefaultPrinter) Findings(findings []policy.Finding) {
	if len(findings) == 0 {
		p.println(p.ok.Render("No sensitive content found."))
		return
	}
	p.println(p.failed.Render(fmt.Sprintf("%d sensitive finding(s):", len(findings))))
	for _, f := range findings {
		p.println("- " + f.String())
	}
}

// SummarizeInput collapses whitespace and caps text at maxLen columns,
// ending truncated text with "...". Empty input yields "(none)".
func SummarizeInput(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSummaryLength
	}
	compact := strings.Join(strings.Fields(text), " ")
	if compact == "" {
		return "(none)"
	}
	if lipgloss.Width(compact) <= maxLen {
		return compact
	}
	head := truncate.String(compact, uint(max(maxLen-3, 0)))
	return strings.TrimRight(head, " ") + "..."
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
