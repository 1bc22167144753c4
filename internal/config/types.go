// Package config provides configuration loading and management for agentflow.
//
// Configuration is loaded using Viper, supporting YAML config files and
// environment variable overrides. The defaults work out of the box; every
// value can be overridden per project.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [AgentConfig] selects and tunes the agent CLI backend
//   - [WorkflowConfig] holds the controller limits and gate toggles
//   - [RoleConfig] defines one role's instructions and task template
//
// Configuration priority (highest to lowest):
//  1. Environment variables (AGENTFLOW_ prefix, plus the legacy AGENT_* names)
//  2. Config file specified by AGENTFLOW_CONFIG_PATH
//  3. ./agentflow.yaml
//  4. User config directory (platform-standard):
//     - Linux: ~/.config/agentflow/agentflow.yaml
//     - macOS: ~/Library/Application Support/agentflow/agentflow.yaml
//     - Windows: %APPDATA%\agentflow\agentflow.yaml
//  5. [DefaultConfig] defaults
package config

import (
	"agentflow/internal/policy"
	"agentflow/internal/state"
)

// Config represents the root configuration structure.
type Config struct {
	// Agent configures the external agent CLI.
	Agent AgentConfig `mapstructure:"agent"`

	// Workflow holds controller limits and gate toggles.
	Workflow WorkflowConfig `mapstructure:"workflow"`

	// Files names the shared artifacts, relative to the working directory.
	Files state.Files `mapstructure:"files"`

	// Policy tunes the sensitive-content scan.
	Policy PolicyConfig `mapstructure:"policy"`

	// Roles maps lower-case role names ("developer", "tester", ...) to their
	// prompt configuration.
	Roles map[string]RoleConfig `mapstructure:"roles"`

	// Output contains terminal output configuration.
	Output OutputConfig `mapstructure:"output"`
}

// AgentConfig contains agent CLI configuration.
type AgentConfig struct {
	// Backend is "codex" (plain text output) or "claude" (stream-json events).
	Backend string `mapstructure:"backend"`

	// BinaryPath overrides the backend executable. Empty uses the backend name.
	BinaryPath string `mapstructure:"binary_path"`

	// ExtraFlags is a shell-quoted string of flags inserted before the prompt.
	// Can be overridden with AGENT_CLI_FLAGS.
	ExtraFlags string `mapstructure:"extra_flags"`

	// Command replaces the backend argv entirely. The prompt is appended.
	Command []string `mapstructure:"command"`

	HeartbeatSeconds   int `mapstructure:"heartbeat_seconds"`
	IdleTimeoutSeconds int `mapstructure:"idle_timeout_seconds"`
	RepeatWindow       int `mapstructure:"repeat_window"`
	RepeatLimit        int `mapstructure:"repeat_limit"`
	KillGraceSeconds   int `mapstructure:"kill_grace_seconds"`

	// Debug shows raw agent output instead of progress notes.
	Debug bool `mapstructure:"debug"`
}

// WorkflowConfig holds controller limits and gate toggles.
type WorkflowConfig struct {
	// MaxCycles caps developer→compliance cycles. Default: 6
	MaxCycles int `mapstructure:"max_cycles"`

	// MaxStagnationCycles stops the run when this many consecutive cycles
	// end with the same gate outcome for the same step. Default: 3
	MaxStagnationCycles int `mapstructure:"max_stagnation_cycles"`

	// EnforceApply requires infrastructure apply evidence before the tester
	// may pass.
	EnforceApply bool `mapstructure:"enforce_apply"`

	// StrictPolicyGates blocks completion on compliance or safeguard failures.
	StrictPolicyGates bool `mapstructure:"strict_policy_gates"`

	// BriefFile holds the idea and guidelines. Default: brief.md
	BriefFile string `mapstructure:"brief_file"`

	// ChangesFile holds change requests for follow-up runs. Default: changes.md
	ChangesFile string `mapstructure:"changes_file"`

	// PolicyFile is the policy pack given to the compliance role.
	PolicyFile string `mapstructure:"policy_file"`

	// AgentsFile is the governance contract given to every role.
	AgentsFile string `mapstructure:"agents_file"`
}

// PolicyConfig tunes the sensitive-content scan.
type PolicyConfig struct {
	Includes     []string `mapstructure:"includes"`
	ExcludedDirs []string `mapstructure:"excluded_dirs"`
	MaxFileBytes int64    `mapstructure:"max_file_bytes"`
	MaxFindings  int      `mapstructure:"max_findings"`
}

// RoleConfig defines one role's prompt.
type RoleConfig struct {
	// Instructions is the role's system instructions.
	Instructions string `mapstructure:"instructions"`

	// TaskTemplate is a Go template expanded with [PromptData].
	TaskTemplate string `mapstructure:"task_template"`
}

// OutputConfig contains terminal output configuration.
type OutputConfig struct {
	// FullInputs prints the idea and guidelines in full instead of a summary.
	FullInputs bool `mapstructure:"full_inputs"`

	// SummaryLength caps input summaries in the start banner. Default: 180
	SummaryLength int `mapstructure:"summary_length"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Backend:            "codex",
			HeartbeatSeconds:   20,
			IdleTimeoutSeconds: 600,
			RepeatWindow:       6,
			RepeatLimit:        3,
			KillGraceSeconds:   5,
		},
		Workflow: WorkflowConfig{
			MaxCycles:           6,
			MaxStagnationCycles: 3,
			EnforceApply:        true,
			StrictPolicyGates:   true,
			BriefFile:           "brief.md",
			ChangesFile:         "changes.md",
			PolicyFile:          "agent_policies.md",
			AgentsFile:          "AGENTS.md",
		},
		Files: state.DefaultFiles(),
		Policy: PolicyConfig{
			Includes:     append([]string(nil), policy.DefaultIncludes...),
			ExcludedDirs: append([]string(nil), policy.DefaultExcludedDirs...),
			MaxFileBytes: policy.DefaultMaxFileBytes,
			MaxFindings:  policy.DefaultMaxFindings,
		},
		Roles: defaultRoles(),
		Output: OutputConfig{
			SummaryLength: 180,
		},
	}
}
