package config

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"agentflow/internal/agent"
	"agentflow/internal/state"
	"agentflow/internal/status"
)

// PromptData contains data for role task template expansion.
//
// Fields are accessible in templates using {{.FieldName}} syntax.
type PromptData struct {
	Cycle int

	// Step is the active plan checklist step.
	Step string

	// WorkDir is the directory the agent works in.
	WorkDir string

	Idea       string
	Guidelines string

	// ChangesPath and ChangeRequest describe the active change request.
	// ChangeRequest is empty when there is none.
	ChangesPath   string
	ChangeRequest string

	// Reason explains why the planner/architect detour runs.
	Reason string

	EnforceApply bool

	// PolicyFile is the policy pack name shown to the compliance role.
	PolicyFile string
	AgentsFile string

	// Files holds the configured artifact names.
	Files state.Files
}

// Governance is project context appended to every role's instructions.
type Governance struct {
	// RolePreferences come from the brief.
	RolePreferences string

	// Agents is the governance contract (AGENTS.md).
	Agents string

	// Policy is the compliance policy pack. Only the compliance role gets it.
	Policy string
}

const governanceInstruction = `
Instruction:
- Apply these coding style, compliance, and safeguard requirements in this role.
- Explicitly call out policy conflicts and set REPLAN_REQUIRED: YES when conflicts are structural.
`

// Apply appends the governance sections to instructions.
func (g Governance) Apply(instructions string, withPolicy bool) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(instructions))
	if prefs := strings.TrimSpace(g.RolePreferences); prefs != "" {
		b.WriteString("\n\nGlobal role preferences (from brief file):\n")
		b.WriteString(prefs)
		b.WriteString("\n\nInstruction:\n")
		b.WriteString("- Treat these preferences as high-priority constraints for this role.\n")
		b.WriteString("- If any preference conflicts with feasibility or safety, explain the conflict and propose a compatible alternative.\n")
	}
	if agents := strings.TrimSpace(g.Agents); agents != "" {
		b.WriteString("\n\nProduction governance contract (AGENTS.md):\n")
		b.WriteString(agents)
		b.WriteString("\n")
		b.WriteString(governanceInstruction)
	}
	if pol := strings.TrimSpace(g.Policy); withPolicy && pol != "" {
		b.WriteString("\n\nCompliance policy pack:\n")
		b.WriteString(pol)
		b.WriteString("\n")
		b.WriteString(governanceInstruction)
	}
	return b.String()
}

// GetPrompt returns the merged instruction and task prompt for role.
func (c *Config) GetPrompt(role status.Role, data PromptData, gov Governance) (string, error) {
	rc, ok := c.Roles[role.Lower()]
	if !ok {
		return "", fmt.Errorf("unknown role: %s", role)
	}

	task, err := expandTemplate(rc.TaskTemplate, data)
	if err != nil {
		return "", fmt.Errorf("role %s: %w", role, err)
	}
	instructions := gov.Apply(rc.Instructions, role == status.RoleCompliance)
	return agent.MergePrompt(instructions, task), nil
}

// expandTemplate expands a Go template string with the given data.
func expandTemplate(tmpl string, data PromptData) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
