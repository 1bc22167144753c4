package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentflow/internal/status"
	"agentflow/internal/stream"
)

func TestSettings_Argv(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     []string
	}{
		{
			name:     "codex default",
			settings: Settings{Backend: BackendCodex},
			want:     []string{"codex", "e", "PROMPT"},
		},
		{
			name:     "codex with flags",
			settings: Settings{Backend: BackendCodex, ExtraFlags: []string{"--full-auto", "-m", "o3"}},
			want:     []string{"codex", "e", "--full-auto", "-m", "o3", "PROMPT"},
		},
		{
			name:     "claude stream json",
			settings: Settings{Backend: BackendClaude, ExtraFlags: []string{"--dangerously-skip-permissions"}},
			want:     []string{"claude", "--print", "--verbose", "--output-format", "stream-json", "--dangerously-skip-permissions", "PROMPT"},
		},
		{
			name:     "binary override",
			settings: Settings{Backend: BackendClaude, Binary: "/opt/bin/claude"},
			want:     []string{"/opt/bin/claude", "--print", "--verbose", "--output-format", "stream-json", "PROMPT"},
		},
		{
			name:     "command override ignores flags",
			settings: Settings{Backend: BackendCodex, Command: []string{"/bin/sh", "-c", "echo $1", "sh"}, ExtraFlags: []string{"x"}},
			want:     []string{"/bin/sh", "-c", "echo $1", "sh", "PROMPT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.Argv("PROMPT"))
		})
	}
}

func TestSettings_ArgvDoesNotAliasCommand(t *testing.T) {
	cmd := make([]string, 2, 8)
	cmd[0], cmd[1] = "/bin/echo", "x"
	s := Settings{Command: cmd}

	first := s.Argv("one")
	second := s.Argv("two")

	assert.Equal(t, "one", first[2])
	assert.Equal(t, "two", second[2])
}

func TestSettings_Protocol(t *testing.T) {
	assert.Equal(t, stream.ProtocolEvents, Settings{Backend: BackendClaude}.Protocol())
	assert.Equal(t, stream.ProtocolText, Settings{Backend: BackendCodex}.Protocol())
}

func TestSettings_Validate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.Backend = "gemini"
	assert.ErrorContains(t, s.Validate(), "unsupported backend")

	s = DefaultSettings()
	s.HeartbeatInterval = 0
	assert.ErrorContains(t, s.Validate(), "heartbeat")

	s = DefaultSettings()
	s.IdleTimeout = -time.Second
	assert.ErrorContains(t, s.Validate(), "idle timeout")

	s = DefaultSettings()
	s.KillGrace = 0
	assert.ErrorContains(t, s.Validate(), "kill grace")
}

func TestMergePrompt(t *testing.T) {
	got := MergePrompt("  You are the TESTER role.\n", "\nRun the suite.  ")

	assert.Equal(t, "SYSTEM ROLE INSTRUCTIONS:\nYou are the TESTER role.\n\nTASK:\nRun the suite.\n", got)
}

func TestInvocationError(t *testing.T) {
	err := invocationError(status.RoleReviewer, "%w after %s without model output", ErrTimeout, 10*time.Minute)

	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrLoopDetected))

	var invErr *InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, status.RoleReviewer, invErr.Role)
	assert.Equal(t, "REVIEWER: role timed out after 10m0s without model output", err.Error())
}

func TestMockExecutor(t *testing.T) {
	mock := &MockExecutor{
		Outputs: map[status.Role][]string{
			status.RoleDeveloper: {"first", "second"},
		},
		Errors: map[status.Role]error{
			status.RoleTester: ErrTimeout,
		},
	}
	ctx := context.Background()

	res, err := mock.Execute(ctx, Request{Role: status.RoleDeveloper})
	require.NoError(t, err)
	assert.Equal(t, "first", res.Output)

	res, _ = mock.Execute(ctx, Request{Role: status.RoleDeveloper})
	assert.Equal(t, "second", res.Output)

	res, _ = mock.Execute(ctx, Request{Role: status.RoleDeveloper})
	assert.Equal(t, "second", res.Output, "last output repeats")

	_, err = mock.Execute(ctx, Request{Role: status.RoleTester})
	assert.ErrorIs(t, err, ErrTimeout)

	res, err = mock.Execute(ctx, Request{Role: status.RoleReviewer})
	require.NoError(t, err)
	assert.Empty(t, res.Output)

	assert.Equal(t, []status.Role{
		status.RoleDeveloper, status.RoleDeveloper, status.RoleDeveloper, status.RoleTester, status.RoleReviewer,
	}, mock.Roles())
}

func TestMockExecutor_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&MockExecutor{}).Execute(ctx, Request{Role: status.RolePlanner})

	assert.ErrorIs(t, err, context.Canceled)
}
