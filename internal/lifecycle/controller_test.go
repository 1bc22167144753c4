package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentflow/internal/agent"
	"agentflow/internal/config"
	"agentflow/internal/output"
	"agentflow/internal/policy"
	"agentflow/internal/state"
	"agentflow/internal/status"
)

const (
	devDone       = "Implemented the handler.\nDEV_STATUS: COMPLETE; REPLAN_REQUIRED: NO"
	devWorking    = "Still wiring things.\nDEV_STATUS: IN_PROGRESS; REPLAN_REQUIRED: NO"
	reviewOK      = "No blocking findings.\nREVIEW_STATUS: APPROVED; REPLAN_REQUIRED: NO"
	reviewChanges = "Missing error handling.\nREVIEW_STATUS: CHANGES_REQUIRED; REPLAN_REQUIRED: NO"
	testOK        = "make tf-apply succeeded in 12s\nTEST_STATUS: PASS; REPLAN_REQUIRED: NO"
	testNoApply   = "go test ./... ok\nTEST_STATUS: PASS; REPLAN_REQUIRED: NO"
	testFailed    = "Apply complete! Resources: 0 added.\n2 failures.\nTEST_STATUS: FAIL; REPLAN_REQUIRED: NO"
	complianceOK  = "COMPLIANCE_STATUS: APPROVED; SAFEGUARD_STATUS: PASS; REPLAN_REQUIRED: NO"
	complianceBad = "COMPLIANCE_STATUS: VIOLATIONS; SAFEGUARD_STATUS: PASS; REPLAN_REQUIRED: NO"
	safeguardBad  = "COMPLIANCE_STATUS: APPROVED; SAFEGUARD_STATUS: FAIL; REPLAN_REQUIRED: NO"

	twoStepPlan = "# Plan\n\n- [ ] Add handler\n- [ ] Add metrics\n"
	oneStepPlan = "# Plan\n\n- [ ] Add handler\n"
)

type fakeScanner struct {
	findings []policy.Finding
	err      error
	calls    int
}

func (f *fakeScanner) Scan(ctx context.Context, root string) ([]policy.Finding, error) {
	f.calls++
	return f.findings, f.err
}

func passingOutputs() map[status.Role][]string {
	return map[status.Role][]string{
		status.RoleDeveloper:  {devDone},
		status.RoleReviewer:   {reviewOK},
		status.RoleTester:     {testOK},
		status.RoleCompliance: {complianceOK},
		status.RolePlanner:    {"PLAN_STATUS: READY"},
		status.RoleArchitect:  {"ARCH_STATUS: READY"},
	}
}

func defaultOptions() Options {
	return Options{
		RunID:               "run-1",
		MaxCycles:           6,
		MaxStagnationCycles: 3,
		EnforceApply:        true,
		StrictPolicy:        true,
	}
}

type fixture struct {
	ctrl    *Controller
	ws      *state.Workspace
	mock    *agent.MockExecutor
	scanner *fakeScanner
	out     *bytes.Buffer
}

func newFixture(t *testing.T, plan string, outputs map[status.Role][]string, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	if plan != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.md"), []byte(plan), 0644))
	}

	ws := state.Open(dir, state.DefaultFiles(), opts.RunID)
	mock := &agent.MockExecutor{Outputs: outputs}
	ctrl := NewController(mock, ws, config.DefaultConfig(), opts, Inputs{
		Brief:       state.Brief{Idea: "Inventory service", Guidelines: "Go"},
		ChangesPath: filepath.Join(dir, "changes.md"),
		AgentsFile:  "AGENTS.md",
		PolicyFile:  "agent_policies.md",
	})
	scanner := &fakeScanner{}
	ctrl.SetScanner(scanner)
	buf := &bytes.Buffer{}
	ctrl.SetPrinter(output.NewPrinterWithWriter(buf))

	return &fixture{ctrl: ctrl, ws: ws, mock: mock, scanner: scanner, out: buf}
}

func (f *fixture) decisions(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.ws.Files.Decisions)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) record(t *testing.T) state.WorkflowState {
	t.Helper()
	rec, err := f.ws.Record.Load()
	require.NoError(t, err)
	return rec
}

func (f *fixture) progress(t *testing.T) state.Progress {
	t.Helper()
	p, err := f.ws.Checklist.Progress()
	require.NoError(t, err)
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

var steadyCycle = []status.Role{status.RoleDeveloper, status.RoleReviewer, status.RoleTester, status.RoleCompliance}

func TestController_DeliversEveryStep(t *testing.T) {
	f := newFixture(t, twoStepPlan, passingOutputs(), defaultOptions())

	rep, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, state.ResultSuccess, rep.Result)
	assert.False(t, rep.Incomplete())
	assert.Equal(t, 2, rep.Cycles)
	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, []string{"Add handler", "Add metrics"}, rep.Completed)
	assert.Equal(t, append(append([]status.Role{}, steadyCycle...), steadyCycle...), f.mock.Roles())

	p := f.progress(t)
	assert.Equal(t, 0, p.Pending)
	assert.Equal(t, 2, p.Completed)

	rec := f.record(t)
	assert.Equal(t, status.RoleComplete, rec.NextRole)
	assert.Empty(t, rec.CurrentStep)
	assert.Equal(t, "run-1", rec.RunID)

	log := f.decisions(t)
	assert.Contains(t, log, "cycle=0 | workflow_start | handoff=SYSTEM->DEVELOPER")
	assert.Contains(t, log, "cycle=1 | plan_step_active=Add handler")
	assert.Contains(t, log, "cycle=1 | role=DEVELOPER | dev_status=COMPLETE | replan_required=NO")
	assert.Contains(t, log, "cycle=1 | handoff=DEVELOPER->REVIEWER")
	assert.Contains(t, log, "cycle=1 | gate=DELIVERY | done=TRUE | policy_gate_ok=TRUE | apply_ok=TRUE | handoff=COMPLETE")
	assert.Contains(t, log, "cycle=1 | plan_step_completed=Add handler")
	assert.Contains(t, log, "cycle=1 | handoff=TESTER->DEVELOPER | reason=next_plan_step")
	assert.Contains(t, log, "cycle=2 | workflow_end | result=SUCCESS")
	assert.Contains(t, log, "run=run-1")

	assert.Contains(t, readFile(t, f.ws.Files.Development), "Implemented the handler.")
	assert.Contains(t, readFile(t, f.ws.Files.Compliance), "## Current State")
	assert.Equal(t, 2, f.scanner.calls)
	assert.Contains(t, f.out.String(), "Completed plan step: Add handler")
}

func TestController_PromptCarriesStepAndWorkDir(t *testing.T) {
	f := newFixture(t, oneStepPlan, passingOutputs(), defaultOptions())

	_, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	req := f.mock.Requests[0]
	assert.Equal(t, status.RoleDeveloper, req.Role)
	assert.Equal(t, "Add handler", req.Step)
	assert.Equal(t, f.ws.Dir, req.WorkDir)
	assert.Contains(t, req.Prompt, "SYSTEM ROLE INSTRUCTIONS:")
	assert.Contains(t, req.Prompt, "Cycle 1.")
	assert.Contains(t, req.Prompt, "ENABLED: You must run make tf-apply")
}

func TestController_GateArithmetic(t *testing.T) {
	tests := []struct {
		name      string
		role      status.Role
		output    string
		wantRoles []status.Role
		wantLog   string
	}{
		{
			name:      "developer in progress",
			role:      status.RoleDeveloper,
			output:    devWorking,
			wantRoles: []status.Role{status.RoleDeveloper},
			wantLog:   "handoff=DEVELOPER->DEVELOPER | reason=dev_status_IN_PROGRESS",
		},
		{
			name:      "review changes required",
			role:      status.RoleReviewer,
			output:    reviewChanges,
			wantRoles: steadyCycle[:2],
			wantLog:   "handoff=REVIEWER->DEVELOPER | reason=review_status_CHANGES_REQUIRED",
		},
		{
			name:      "tests fail",
			role:      status.RoleTester,
			output:    testFailed,
			wantRoles: steadyCycle[:3],
			wantLog:   "handoff=TESTER->DEVELOPER | reason=test_status_FAIL",
		},
		{
			name:      "compliance violations",
			role:      status.RoleCompliance,
			output:    complianceBad,
			wantRoles: steadyCycle,
			wantLog:   "gate=DELIVERY | done=FALSE | policy_gate_ok=FALSE | apply_ok=TRUE | handoff=COMPLIANCE->DEVELOPER",
		},
		{
			name:      "safeguard fail",
			role:      status.RoleCompliance,
			output:    safeguardBad,
			wantRoles: steadyCycle,
			wantLog:   "gate=DELIVERY | done=FALSE | policy_gate_ok=FALSE",
		},
		{
			name:      "missing developer marker",
			role:      status.RoleDeveloper,
			output:    "I did some work.",
			wantRoles: []status.Role{status.RoleDeveloper},
			wantLog:   "role=DEVELOPER | dev_status=IN_PROGRESS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputs := passingOutputs()
			outputs[tt.role] = []string{tt.output}
			opts := defaultOptions()
			opts.MaxCycles = 1
			f := newFixture(t, twoStepPlan, outputs, opts)

			rep, err := f.ctrl.Run(context.Background())

			require.NoError(t, err)
			assert.Equal(t, state.ResultMaxCyclesReached, rep.Result)
			assert.True(t, rep.Incomplete())
			assert.Empty(t, rep.Completed)
			assert.Equal(t, tt.wantRoles, f.mock.Roles())
			assert.Equal(t, "Add handler", f.progress(t).Next)

			rec := f.record(t)
			assert.Equal(t, status.RoleDeveloper, rec.NextRole)
			assert.Equal(t, "Add handler", rec.CurrentStep)

			log := f.decisions(t)
			assert.Contains(t, log, tt.wantLog)
			assert.Contains(t, log, "cycle=1 | workflow_end | result=MAX_CYCLES_REACHED")
		})
	}
}

func TestController_LenientPolicyGate(t *testing.T) {
	outputs := passingOutputs()
	outputs[status.RoleCompliance] = []string{complianceBad}
	opts := defaultOptions()
	opts.StrictPolicy = false
	f := newFixture(t, oneStepPlan, outputs, opts)

	rep, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, state.ResultSuccess, rep.Result)
	assert.Contains(t, f.decisions(t), "done=TRUE | policy_gate_ok=TRUE")
}

func TestController_ApplyEnforcement(t *testing.T) {
	t.Run("missing evidence fails the tester", func(t *testing.T) {
		outputs := passingOutputs()
		outputs[status.RoleTester] = []string{testNoApply}
		opts := defaultOptions()
		opts.MaxCycles = 1
		f := newFixture(t, oneStepPlan, outputs, opts)

		rep, err := f.ctrl.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, state.ResultMaxCyclesReached, rep.Result)
		assert.Equal(t, steadyCycle[:3], f.mock.Roles())
		assert.Equal(t, status.Fail, f.record(t).TestStatus)

		snapshot := readFile(t, f.ws.Files.TestResults)
		assert.Contains(t, snapshot, "go test ./... ok")
		assert.Contains(t, snapshot, "Apply Enforcement Gate: FAIL")

		log := f.decisions(t)
		assert.Contains(t, log, "role=TESTER | test_status=PASS")
		assert.Contains(t, log, "gate=APPLY_ENFORCEMENT | result=FAIL | handoff=TESTER->DEVELOPER")
		assert.NotContains(t, log, "reason=test_status_FAIL")
		assert.Contains(t, f.out.String(), "[GATE] Terraform apply enforcement is enabled")
	})

	t.Run("evidence from developer output counts", func(t *testing.T) {
		outputs := passingOutputs()
		outputs[status.RoleDeveloper] = []string{"Apply complete! Resources: 2 added.\n" + devDone}
		outputs[status.RoleTester] = []string{testNoApply}
		f := newFixture(t, oneStepPlan, outputs, defaultOptions())

		rep, err := f.ctrl.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, state.ResultSuccess, rep.Result)
	})

	t.Run("disabled enforcement passes without evidence", func(t *testing.T) {
		outputs := passingOutputs()
		outputs[status.RoleTester] = []string{testNoApply}
		opts := defaultOptions()
		opts.EnforceApply = false
		f := newFixture(t, oneStepPlan, outputs, opts)

		rep, err := f.ctrl.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, state.ResultSuccess, rep.Result)
		assert.Contains(t, f.decisions(t), "apply_ok=FALSE | handoff=COMPLETE")
	})
}

func TestController_Stagnation(t *testing.T) {
	outputs := passingOutputs()
	outputs[status.RoleReviewer] = []string{reviewChanges}
	f := newFixture(t, oneStepPlan, outputs, defaultOptions())

	rep, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, state.ResultStalled, rep.Result)
	assert.Equal(t, 3, rep.Cycles)
	assert.Contains(t, rep.Reason, "step=Add handler")
	assert.Contains(t, rep.Reason, "stagnation_cycles=3")
	assert.Len(t, f.mock.Roles(), 6)

	log := f.decisions(t)
	assert.Contains(t, log, "cycle=3 | workflow_end | result=STALLED | reason=Repeated identical gate outcomes")
	assert.NotContains(t, log, "MAX_CYCLES_REACHED")
}

func TestController_StagnationResetsOnChange(t *testing.T) {
	outputs := passingOutputs()
	outputs[status.RoleReviewer] = []string{reviewChanges, reviewChanges, reviewOK, reviewChanges}
	outputs[status.RoleTester] = []string{testFailed}
	opts := defaultOptions()
	opts.MaxCycles = 4
	f := newFixture(t, oneStepPlan, outputs, opts)

	rep, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, state.ResultMaxCyclesReached, rep.Result)
	assert.Equal(t, 4, rep.Cycles)
}

func TestController_ResumeSafety(t *testing.T) {
	tests := []struct {
		name      string
		rec       state.WorkflowState
		wantFirst status.Role
		wantLog   string
	}{
		{
			name: "different step restarts at developer",
			rec: state.WorkflowState{
				CurrentStep: "Some other step", NextRole: status.RoleTester,
				DevStatus: status.Complete, ReviewStatus: status.Approved,
			},
			wantFirst: status.RoleDeveloper,
		},
		{
			name: "same step with evidence resumes at tester",
			rec: state.WorkflowState{
				CurrentStep: "Add handler", NextRole: status.RoleTester,
				DevStatus: status.Complete, ReviewStatus: status.Approved,
			},
			wantFirst: status.RoleTester,
			wantLog:   "cycle=1 | resume | handoff=REVIEWER->TESTER",
		},
		{
			name: "same step without review evidence restarts at developer",
			rec: state.WorkflowState{
				CurrentStep: "Add handler", NextRole: status.RoleTester,
				DevStatus: status.Complete, ReviewStatus: status.ChangesNeeded,
			},
			wantFirst: status.RoleDeveloper,
		},
		{
			name: "compliance resume",
			rec: state.WorkflowState{
				CurrentStep: "Add handler", NextRole: status.RoleCompliance,
				DevStatus: status.ReadyForReview, ReviewStatus: status.Approved, TestStatus: status.Pass,
			},
			wantFirst: status.RoleCompliance,
			wantLog:   "cycle=1 | resume | handoff=TESTER->COMPLIANCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, oneStepPlan, passingOutputs(), defaultOptions())
			require.NoError(t, f.ws.Record.Save(tt.rec))

			rep, err := f.ctrl.Run(context.Background())

			require.NoError(t, err)
			assert.Equal(t, state.ResultSuccess, rep.Result)
			require.NotEmpty(t, f.mock.Roles())
			assert.Equal(t, tt.wantFirst, f.mock.Roles()[0])
			log := f.decisions(t)
			assert.Contains(t, log, "workflow_start | handoff=SYSTEM->"+string(tt.wantFirst))
			if tt.wantLog != "" {
				assert.Contains(t, log, tt.wantLog)
			}
		})
	}
}

func TestController_ResumedComplianceTrustsPersistedTestPass(t *testing.T) {
	f := newFixture(t, oneStepPlan, passingOutputs(), defaultOptions())
	require.NoError(t, f.ws.Record.Save(state.WorkflowState{
		CurrentStep: "Add handler", NextRole: status.RoleCompliance,
		DevStatus: status.Complete, ReviewStatus: status.Approved, TestStatus: status.Pass,
	}))

	rep, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, state.ResultSuccess, rep.Result)
	assert.Contains(t, f.out.String(), "[RESUME] Skipping developer/reviewer/tester this cycle and resuming at compliance.")
	assert.Contains(t, f.decisions(t), "apply_ok=FALSE | handoff=COMPLETE")
	assert.Equal(t, []status.Role{status.RoleCompliance}, f.mock.Roles())
}

func TestController_Replan(t *testing.T) {
	outputs := passingOutputs()
	outputs[status.RoleReviewer] = []string{"Schema is wrong.\nREVIEW_STATUS: CHANGES_REQUIRED; REPLAN_REQUIRED: YES", reviewOK}
	f := newFixture(t, oneStepPlan, outputs, defaultOptions())

	rep, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, state.ResultSuccess, rep.Result)
	assert.Equal(t, 2, rep.Cycles)
	assert.Equal(t, []status.Role{
		status.RoleDeveloper, status.RoleReviewer, status.RolePlanner, status.RoleArchitect,
		status.RoleDeveloper, status.RoleReviewer, status.RoleTester, status.RoleCompliance,
	}, f.mock.Roles())

	planner := f.mock.Requests[2]
	assert.Contains(t, planner.Prompt, "Reviewer cycle 1 requested high-level planning/architecture change.")

	log := f.decisions(t)
	assert.Contains(t, log, "cycle=1 | handoff=REVIEWER->PLANNER | reason=Reviewer cycle 1 requested")
	assert.Contains(t, log, "cycle=1 | role=PLANNER | plan_status=READY | replan_required=NO | handoff=PLANNER->ARCHITECT")
	assert.Contains(t, log, "cycle=1 | role=ARCHITECT | arch_status=READY | replan_required=NO | handoff=ARCHITECT->DEVELOPER")
}

func TestController_ComplianceReplan(t *testing.T) {
	outputs := passingOutputs()
	outputs[status.RoleCompliance] = []string{
		"COMPLIANCE_STATUS: APPROVED; SAFEGUARD_STATUS: PASS; REPLAN_REQUIRED: YES",
		complianceOK,
	}
	f := newFixture(t, oneStepPlan, outputs, defaultOptions())

	rep, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, state.ResultSuccess, rep.Result)
	assert.Contains(t, f.decisions(t), "handoff=COMPLIANCE->PLANNER")
	assert.Equal(t, 1, strings.Count(f.decisions(t), "gate=DELIVERY"))
}

func TestController_BootstrapPlanning(t *testing.T) {
	f := newFixture(t, "", passingOutputs(), defaultOptions())
	f.mock.Hook = func(req agent.Request) {
		if req.Role == status.RolePlanner {
			_ = os.WriteFile(f.ws.Files.Plan, []byte(oneStepPlan), 0644)
		}
	}

	rep, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, state.ResultSuccess, rep.Result)
	assert.Equal(t, append([]status.Role{status.RolePlanner, status.RoleArchitect}, steadyCycle...), f.mock.Roles())
	assert.Contains(t, f.mock.Requests[0].Prompt, "No checklist steps found in plan.md.")

	log := f.decisions(t)
	assert.Contains(t, log, "cycle=0 | handoff=SYSTEM->PLANNER")
	assert.Contains(t, log, "cycle=0 | plan_progress | completed=0 | pending=1 | next_step=Add handler")
	assert.Contains(t, f.out.String(), "[GATE] Initial planning bootstrap required.")
}

func TestController_BootstrapWithoutPlan(t *testing.T) {
	f := newFixture(t, "", passingOutputs(), defaultOptions())

	rep, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, state.ResultSuccess, rep.Result)
	assert.Equal(t, "no_pending_plan_steps", rep.Reason)
	assert.Equal(t, []status.Role{status.RolePlanner, status.RoleArchitect}, f.mock.Roles())
	assert.Contains(t, f.decisions(t), "cycle=1 | workflow_end | result=SUCCESS | reason=no_pending_plan_steps")
}

func TestController_SensitiveScanOverride(t *testing.T) {
	t.Run("findings fail compliance", func(t *testing.T) {
		opts := defaultOptions()
		opts.MaxCycles = 1
		f := newFixture(t, oneStepPlan, passingOutputs(), opts)
		f.scanner.findings = []policy.Finding{{Path: "infra/vars.tf", Line: 4, Label: "AWS access key"}}

		rep, err := f.ctrl.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, state.ResultMaxCyclesReached, rep.Result)

		rec := f.record(t)
		assert.Equal(t, status.Violations, rec.ComplianceStatus)
		assert.Equal(t, status.Fail, rec.SafeguardStatus)

		snapshot := readFile(t, f.ws.Files.Compliance)
		assert.Contains(t, snapshot, "Sensitive-content scan findings:\n- infra/vars.tf:4 (AWS access key)")

		log := f.decisions(t)
		assert.Contains(t, log, "gate=SENSITIVE_SCAN | result=FAIL | findings=1")
		assert.Contains(t, log, "role=COMPLIANCE | compliance_status=VIOLATIONS | safeguard_status=FAIL")
	})

	t.Run("scan error fails closed", func(t *testing.T) {
		opts := defaultOptions()
		opts.MaxCycles = 1
		f := newFixture(t, oneStepPlan, passingOutputs(), opts)
		f.scanner.err = errors.New("permission denied")

		rep, err := f.ctrl.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, state.ResultMaxCyclesReached, rep.Result)
		assert.Contains(t, f.decisions(t), "gate=SENSITIVE_SCAN | result=FAIL | error=permission denied")
		assert.Contains(t, readFile(t, f.ws.Files.Compliance), "Sensitive-content scan failed: permission denied")
	})
}

func TestController_AgentFailureIsFatal(t *testing.T) {
	f := newFixture(t, oneStepPlan, passingOutputs(), defaultOptions())
	f.mock.Errors = map[status.Role]error{
		status.RoleReviewer: &agent.InvocationError{Role: status.RoleReviewer, Err: agent.ErrTimeout},
	}

	_, err := f.ctrl.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrTimeout)
	log := f.decisions(t)
	assert.Contains(t, log, "cycle=1 | workflow_end | result=FAILED")
	assert.Equal(t, status.RoleReviewer, f.record(t).NextRole)
}

func TestController_UnwrappedAgentErrorNamesRole(t *testing.T) {
	f := newFixture(t, oneStepPlan, passingOutputs(), defaultOptions())
	f.mock.Errors = map[status.Role]error{status.RoleDeveloper: errors.New("exec format error")}

	_, err := f.ctrl.Run(context.Background())

	assert.EqualError(t, err, "DEVELOPER: exec format error")
}

func TestController_Cancellation(t *testing.T) {
	f := newFixture(t, oneStepPlan, passingOutputs(), defaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.mock.Hook = func(req agent.Request) {
		if req.Role == status.RoleTester {
			cancel()
		}
	}

	_, err := f.ctrl.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, f.decisions(t), "result=FAILED")
	assert.Equal(t, status.RoleTester, f.record(t).NextRole)
	assert.Equal(t, 1, f.progress(t).Pending)
}
