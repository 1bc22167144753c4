package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName        = "agentflow"
	configFileName = "agentflow.yaml"
	envPrefix      = "AGENTFLOW"
	configPathEnv  = "AGENTFLOW_CONFIG_PATH"
)

// legacyEnv maps config keys to the unprefixed variable names older
// deployments export. The prefixed AGENTFLOW_ name always wins.
var legacyEnv = map[string][]string{
	"agent.extra_flags":          {"AGENT_CLI_FLAGS", "CODEX_E_FLAGS"},
	"agent.debug":                {"AGENT_DEBUG"},
	"agent.heartbeat_seconds":    {"AGENT_HEARTBEAT_SECONDS"},
	"agent.idle_timeout_seconds": {"AGENT_ROLE_IDLE_TIMEOUT_SECONDS"},
	"agent.repeat_window":        {"AGENT_ROLE_REPEAT_WINDOW"},
	"agent.repeat_limit":         {"AGENT_ROLE_REPEAT_LIMIT"},
	"output.full_inputs":         {"AGENT_PRINT_INPUTS_FULL"},
}

// Loader handles configuration loading with Viper.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load resolves configuration from the first config file found (see the
// package documentation for the search order), then applies environment
// overrides. With no config file, defaults plus environment are used.
func (l *Loader) Load() (*Config, error) {
	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	return l.load(path)
}

// LoadFromFile loads configuration from path, then applies environment
// overrides.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	return l.load(path)
}

func (l *Loader) load(path string) (*Config, error) {
	l.setDefaults(DefaultConfig())
	if err := l.bindEnv(); err != nil {
		return nil, err
	}

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every leaf key so environment variables can override
// keys that no config file mentions.
func (l *Loader) setDefaults(d *Config) {
	v := l.v
	v.SetDefault("agent.backend", d.Agent.Backend)
	v.SetDefault("agent.binary_path", d.Agent.BinaryPath)
	v.SetDefault("agent.extra_flags", d.Agent.ExtraFlags)
	v.SetDefault("agent.command", d.Agent.Command)
	v.SetDefault("agent.heartbeat_seconds", d.Agent.HeartbeatSeconds)
	v.SetDefault("agent.idle_timeout_seconds", d.Agent.IdleTimeoutSeconds)
	v.SetDefault("agent.repeat_window", d.Agent.RepeatWindow)
	v.SetDefault("agent.repeat_limit", d.Agent.RepeatLimit)
	v.SetDefault("agent.kill_grace_seconds", d.Agent.KillGraceSeconds)
	v.SetDefault("agent.debug", d.Agent.Debug)

	v.SetDefault("workflow.max_cycles", d.Workflow.MaxCycles)
	v.SetDefault("workflow.max_stagnation_cycles", d.Workflow.MaxStagnationCycles)
	v.SetDefault("workflow.enforce_apply", d.Workflow.EnforceApply)
	v.SetDefault("workflow.strict_policy_gates", d.Workflow.StrictPolicyGates)
	v.SetDefault("workflow.brief_file", d.Workflow.BriefFile)
	v.SetDefault("workflow.changes_file", d.Workflow.ChangesFile)
	v.SetDefault("workflow.policy_file", d.Workflow.PolicyFile)
	v.SetDefault("workflow.agents_file", d.Workflow.AgentsFile)

	v.SetDefault("files.plan", d.Files.Plan)
	v.SetDefault("files.architecture", d.Files.Architecture)
	v.SetDefault("files.development", d.Files.Development)
	v.SetDefault("files.review", d.Files.Review)
	v.SetDefault("files.test_results", d.Files.TestResults)
	v.SetDefault("files.compliance", d.Files.Compliance)
	v.SetDefault("files.decisions", d.Files.Decisions)
	v.SetDefault("files.state", d.Files.State)

	v.SetDefault("policy.includes", d.Policy.Includes)
	v.SetDefault("policy.excluded_dirs", d.Policy.ExcludedDirs)
	v.SetDefault("policy.max_file_bytes", d.Policy.MaxFileBytes)
	v.SetDefault("policy.max_findings", d.Policy.MaxFindings)

	for name, role := range d.Roles {
		v.SetDefault("roles."+name+".instructions", role.Instructions)
		v.SetDefault("roles."+name+".task_template", role.TaskTemplate)
	}

	v.SetDefault("output.full_inputs", d.Output.FullInputs)
	v.SetDefault("output.summary_length", d.Output.SummaryLength)
}

func (l *Loader) bindEnv() error {
	l.v.SetEnvPrefix(envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	for key, names := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		args := append([]string{key, prefixed}, names...)
		if err := l.v.BindEnv(args...); err != nil {
			return fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}
	return nil
}

// findConfigFile returns the first existing config file, or "" when none
// exists. An explicit AGENTFLOW_CONFIG_PATH must exist.
func findConfigFile() (string, error) {
	if p := os.Getenv(configPathEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("error reading config file: %w", err)
		}
		return p, nil
	}

	candidates := []string{configFileName}
	if userPath, err := DefaultConfigPath(); err == nil {
		candidates = append(candidates, userPath)
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && !info.IsDir() {
			return c, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("error checking config file %s: %w", c, err)
		}
	}
	return "", nil
}

// MustLoad loads configuration or panics.
func MustLoad() *Config {
	cfg, err := NewLoader().Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// ConfigDir returns the platform-standard agentflow config directory.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// DefaultConfigPath returns the user-level config file path.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// EnsureConfigDir creates the user config directory if it does not exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return nil
}
