package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"agentflow/internal/agent"
	"agentflow/internal/config"
	"agentflow/internal/output"
	"agentflow/internal/status"
)

const testRunID = "run-test"

// testApp is an App wired to a buffer, a scripted executor and a temp dir.
type testApp struct {
	*App
	dir  string
	out  *bytes.Buffer
	mock *agent.MockExecutor

	// settings records what the executor factory was given.
	settings []agent.Settings
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ta := &testApp{
		dir:  t.TempDir(),
		out:  &bytes.Buffer{},
		mock: &agent.MockExecutor{Outputs: passingOutputs()},
	}
	ta.App = &App{
		Config:  config.DefaultConfig(),
		Printer: output.NewPrinterWithWriter(ta.out),
		NewExecutor: func(s agent.Settings, _ agent.Reporter, _ *slog.Logger) agent.Executor {
			ta.settings = append(ta.settings, s)
			return ta.mock
		},
		NewRunID: func() string { return testRunID },
		Logger:   slog.New(slog.DiscardHandler),
		WorkDir:  ta.dir,
	}
	return ta
}

func (ta *testApp) run(args ...string) ExecuteResult {
	return runApp(ta.App, args)
}

func (ta *testApp) path(name string) string {
	return filepath.Join(ta.dir, name)
}

// writeFile creates name under the app's working directory.
func (ta *testApp) writeFile(t *testing.T, name, content string) {
	t.Helper()
	path := ta.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func (ta *testApp) readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(ta.path(name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func passingOutputs() map[status.Role][]string {
	return map[status.Role][]string{
		status.RolePlanner:    {"PLAN_STATUS: READY"},
		status.RoleArchitect:  {"ARCH_STATUS: READY"},
		status.RoleDeveloper:  {"DEV_STATUS: COMPLETE; REPLAN_REQUIRED: NO"},
		status.RoleReviewer:   {"REVIEW_STATUS: APPROVED; REPLAN_REQUIRED: NO"},
		status.RoleTester:     {"Apply complete! Resources: 1 added.\nTEST_STATUS: PASS; REPLAN_REQUIRED: NO"},
		status.RoleCompliance: {"COMPLIANCE_STATUS: APPROVED; SAFEGUARD_STATUS: PASS; REPLAN_REQUIRED: NO"},
	}
}
