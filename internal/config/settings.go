package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"agentflow/internal/agent"
	"agentflow/internal/policy"
	"agentflow/internal/status"
)

// Validate reports values the controller cannot run with.
func (c *Config) Validate() error {
	switch c.Agent.Backend {
	case agent.BackendCodex, agent.BackendClaude:
	default:
		return fmt.Errorf("invalid agent.backend %q: must be %s or %s", c.Agent.Backend, agent.BackendCodex, agent.BackendClaude)
	}
	if c.Workflow.MaxCycles < 1 {
		return fmt.Errorf("invalid workflow.max_cycles %d: must be at least 1", c.Workflow.MaxCycles)
	}
	if c.Workflow.MaxStagnationCycles < 1 {
		return fmt.Errorf("invalid workflow.max_stagnation_cycles %d: must be at least 1", c.Workflow.MaxStagnationCycles)
	}
	if c.Agent.HeartbeatSeconds < 1 {
		return fmt.Errorf("invalid agent.heartbeat_seconds %d: must be at least 1", c.Agent.HeartbeatSeconds)
	}
	if c.Agent.IdleTimeoutSeconds < 0 {
		return fmt.Errorf("invalid agent.idle_timeout_seconds %d: must not be negative", c.Agent.IdleTimeoutSeconds)
	}

	var errs []error
	for _, role := range status.Roles {
		rc, ok := c.Roles[role.Lower()]
		if !ok || strings.TrimSpace(rc.TaskTemplate) == "" {
			errs = append(errs, fmt.Errorf("roles.%s.task_template is empty", role.Lower()))
		}
	}
	return errors.Join(errs...)
}

// AgentSettings converts the agent section into supervisor settings.
func (c *Config) AgentSettings() (agent.Settings, error) {
	flags, err := shellquote.Split(c.Agent.ExtraFlags)
	if err != nil {
		return agent.Settings{}, fmt.Errorf("invalid agent.extra_flags: %w", err)
	}

	s := agent.Settings{
		Backend:           c.Agent.Backend,
		Binary:            c.Agent.BinaryPath,
		ExtraFlags:        flags,
		Command:           c.Agent.Command,
		HeartbeatInterval: seconds(c.Agent.HeartbeatSeconds),
		IdleTimeout:       seconds(c.Agent.IdleTimeoutSeconds),
		LoopWindow:        c.Agent.RepeatWindow,
		LoopRepeats:       c.Agent.RepeatLimit,
		KillGrace:         seconds(c.Agent.KillGraceSeconds),
		Debug:             c.Agent.Debug,
	}
	if err := s.Validate(); err != nil {
		return agent.Settings{}, err
	}
	return s, nil
}

// Scanner builds the sensitive-content scanner from the policy section.
func (c *Config) Scanner(logger *slog.Logger) *policy.Scanner {
	s := policy.NewScanner()
	if len(c.Policy.Includes) > 0 {
		s.Includes = c.Policy.Includes
	}
	if len(c.Policy.ExcludedDirs) > 0 {
		s.ExcludedDirs = c.Policy.ExcludedDirs
	}
	if c.Policy.MaxFileBytes > 0 {
		s.MaxFileBytes = c.Policy.MaxFileBytes
	}
	if c.Policy.MaxFindings > 0 {
		s.MaxFindings = c.Policy.MaxFindings
	}
	if logger != nil {
		s.Logger = logger
	}
	return s
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
