package agent

import (
	"context"
	"sync"

	"agentflow/internal/status"
)

// MockExecutor implements [Executor] for testing without spawning processes.
//
// Outputs scripts the text returned per role; successive calls consume the
// slice in order and the last entry repeats once exhausted. Errors fails
// every call for a role. Requests records every call in order.
type MockExecutor struct {
	Outputs map[status.Role][]string
	Errors  map[status.Role]error

	// Hook, when set, runs before each call returns. Tests use it to cancel
	// contexts or mutate workspace files mid-run.
	Hook func(req Request)

	mu       sync.Mutex
	Requests []Request
	calls    map[status.Role]int
}

// Execute records req and returns the scripted output for its role.
func (m *MockExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	if m.calls == nil {
		m.calls = make(map[status.Role]int)
	}
	n := m.calls[req.Role]
	m.calls[req.Role] = n + 1
	hook := m.Hook
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}
	if err := m.Errors[req.Role]; err != nil {
		return Result{ExitCode: 1}, err
	}

	outputs := m.Outputs[req.Role]
	if len(outputs) == 0 {
		return Result{}, nil
	}
	if n >= len(outputs) {
		n = len(outputs) - 1
	}
	return Result{Output: outputs[n]}, nil
}

// Roles returns the role of every recorded call, in order.
func (m *MockExecutor) Roles() []status.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := make([]status.Role, len(m.Requests))
	for i, r := range m.Requests {
		roles[i] = r.Role
	}
	return roles
}
