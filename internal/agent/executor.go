// Package agent supervises the external agent CLI, one child process per role
// invocation.
//
// A [Supervisor] spawns the child, decodes its output through the stream and
// classify packages, and runs a heartbeat monitor next to the reader. The
// monitor terminates the child when it stays idle past the idle timeout; the
// reader terminates it when progress notes start repeating. Either condition
// fails the invocation with a typed error.
//
// Key types:
//   - [Executor]: interface the workflow controller depends on
//   - [Supervisor]: production implementation spawning real processes
//   - [MockExecutor]: scripted implementation for tests
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agentflow/internal/status"
	"agentflow/internal/stream"
)

// Executor runs one role invocation to completion.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Request describes a single role invocation.
type Request struct {
	Role status.Role

	// Prompt is the merged instruction and task text passed to the agent.
	Prompt string

	// WorkDir is the child's working directory.
	WorkDir string

	// Step is the active plan step, shown in the role banner.
	Step string
}

// Result is the outcome of a completed invocation.
type Result struct {
	// Output is the assembled final text with control sequences removed.
	Output string

	ExitCode int
	Duration time.Duration

	// Warning is set when the child exited non-zero but produced output.
	Warning string
}

// Supported backends.
const (
	BackendCodex  = "codex"
	BackendClaude = "claude"
)

// Settings configures a [Supervisor].
type Settings struct {
	// Backend selects the agent CLI and its output protocol.
	Backend string

	// Binary overrides the backend's executable name.
	Binary string

	// ExtraFlags are inserted before the prompt argument.
	ExtraFlags []string

	// Command replaces the backend argv entirely; the prompt is appended as
	// the final argument. Output is decoded with the backend's protocol.
	Command []string

	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration

	// LoopWindow and LoopRepeats configure loop detection: the child is
	// stopped when the last LoopRepeats blocks of LoopWindow notes match.
	LoopWindow  int
	LoopRepeats int

	// KillGrace is the wait between the terminate signal and a forced kill.
	KillGrace time.Duration

	// Debug shows raw output instead of progress notes.
	Debug bool
}

// DefaultSettings returns the supervisor defaults.
func DefaultSettings() Settings {
	return Settings{
		Backend:           BackendCodex,
		HeartbeatInterval: 20 * time.Second,
		IdleTimeout:       600 * time.Second,
		LoopWindow:        6,
		LoopRepeats:       3,
		KillGrace:         5 * time.Second,
	}
}

// Protocol returns the output protocol spoken by the configured backend.
func (s Settings) Protocol() stream.Protocol {
	if s.Backend == BackendClaude {
		return stream.ProtocolEvents
	}
	return stream.ProtocolText
}

// Argv builds the child argument vector for prompt.
func (s Settings) Argv(prompt string) []string {
	if len(s.Command) > 0 {
		argv := append([]string{}, s.Command...)
		return append(argv, prompt)
	}

	var argv []string
	switch s.Backend {
	case BackendClaude:
		argv = []string{s.binary("claude"), "--print", "--verbose", "--output-format", "stream-json"}
	default:
		argv = []string{s.binary("codex"), "e"}
	}
	argv = append(argv, s.ExtraFlags...)
	return append(argv, prompt)
}

func (s Settings) binary(fallback string) string {
	if s.Binary != "" {
		return s.Binary
	}
	return fallback
}

// Validate reports configuration values the supervisor cannot run with.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendCodex, BackendClaude:
	default:
		return fmt.Errorf("unsupported backend %q (want %s or %s)", s.Backend, BackendCodex, BackendClaude)
	}
	if s.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", s.HeartbeatInterval)
	}
	if s.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %s", s.IdleTimeout)
	}
	if s.KillGrace <= 0 {
		return fmt.Errorf("kill grace must be positive, got %s", s.KillGrace)
	}
	return nil
}

// MergePrompt combines role instructions and task text into the single prompt
// argument passed to the agent.
func MergePrompt(instructions, task string) string {
	return fmt.Sprintf("SYSTEM ROLE INSTRUCTIONS:\n%s\n\nTASK:\n%s\n", strings.TrimSpace(instructions), strings.TrimSpace(task))
}
