package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentflow/internal/state"
	"agentflow/internal/status"
)

func TestRouter_Next(t *testing.T) {
	tests := []struct {
		name   string
		role   status.Role
		output string
		want   Transition
	}{
		{
			name:   "planner hands to architect",
			role:   status.RolePlanner,
			output: "PLAN_STATUS: READY",
			want:   Transition{Next: status.RoleArchitect},
		},
		{
			name:   "planner ignores replan clause",
			role:   status.RolePlanner,
			output: "PLAN_STATUS: READY; REPLAN_REQUIRED: YES",
			want:   Transition{Next: status.RoleArchitect},
		},
		{
			name:   "architect hands to developer",
			role:   status.RoleArchitect,
			output: "",
			want:   Transition{Next: status.RoleDeveloper},
		},
		{
			name:   "developer ready for review",
			role:   status.RoleDeveloper,
			output: "done\nDEV_STATUS: READY_FOR_REVIEW; REPLAN_REQUIRED: NO",
			want:   Transition{Next: status.RoleReviewer},
		},
		{
			name:   "developer complete",
			role:   status.RoleDeveloper,
			output: "DEV_STATUS: COMPLETE",
			want:   Transition{Next: status.RoleReviewer},
		},
		{
			name:   "developer in progress stays",
			role:   status.RoleDeveloper,
			output: "DEV_STATUS: IN_PROGRESS",
			want:   Transition{Next: status.RoleDeveloper, Reason: "dev_status_IN_PROGRESS"},
		},
		{
			name:   "developer missing marker fails closed",
			role:   status.RoleDeveloper,
			output: "I think I'm done?",
			want:   Transition{Next: status.RoleDeveloper, Reason: "dev_status_IN_PROGRESS"},
		},
		{
			name:   "developer blocked",
			role:   status.RoleDeveloper,
			output: "DEV_STATUS: BLOCKED",
			want:   Transition{Next: status.RoleDeveloper, Reason: "dev_status_BLOCKED"},
		},
		{
			name:   "developer replan overrides ready",
			role:   status.RoleDeveloper,
			output: "DEV_STATUS: COMPLETE; REPLAN_REQUIRED: YES",
			want:   Transition{Next: status.RolePlanner, Replan: true, Reason: "replan_requested"},
		},
		{
			name:   "reviewer approves",
			role:   status.RoleReviewer,
			output: "REVIEW_STATUS: approved",
			want:   Transition{Next: status.RoleTester},
		},
		{
			name:   "reviewer requests changes",
			role:   status.RoleReviewer,
			output: "REVIEW_STATUS: CHANGES_REQUIRED",
			want:   Transition{Next: status.RoleDeveloper, Reason: "review_status_CHANGES_REQUIRED"},
		},
		{
			name:   "tester passes",
			role:   status.RoleTester,
			output: "TEST_STATUS: PASS",
			want:   Transition{Next: status.RoleCompliance},
		},
		{
			name:   "tester fails",
			role:   status.RoleTester,
			output: "TEST_STATUS: FAIL",
			want:   Transition{Next: status.RoleDeveloper, Reason: "test_status_FAIL"},
		},
		{
			name:   "tester replan",
			role:   status.RoleTester,
			output: "TEST_STATUS: PASS; REPLAN_REQUIRED: yes",
			want:   Transition{Next: status.RolePlanner, Replan: true, Reason: "replan_requested"},
		},
		{
			name:   "compliance goes to gate",
			role:   status.RoleCompliance,
			output: "COMPLIANCE_STATUS: VIOLATIONS; SAFEGUARD_STATUS: FAIL",
			want:   Transition{Gate: true},
		},
		{
			name:   "compliance replan",
			role:   status.RoleCompliance,
			output: "COMPLIANCE_STATUS: APPROVED; SAFEGUARD_STATUS: PASS; REPLAN_REQUIRED: YES",
			want:   Transition{Next: status.RolePlanner, Replan: true, Reason: "replan_requested"},
		},
	}

	r := NewRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Next(tt.role, status.Parse(tt.role, tt.output))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouter_NextErrors(t *testing.T) {
	r := NewRouter()

	_, err := r.Next(status.RoleComplete, status.Outcome{})
	assert.ErrorIs(t, err, ErrWorkflowComplete)

	_, err = r.Next(status.Role("QA"), status.Outcome{})
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.Contains(t, err.Error(), `"QA"`)
}

func TestTransition_Passed(t *testing.T) {
	assert.True(t, Transition{Next: status.RoleReviewer}.Passed())
	assert.False(t, Transition{Next: status.RoleDeveloper, Reason: "test_status_FAIL"}.Passed())
	assert.False(t, Transition{Next: status.RolePlanner, Replan: true, Reason: "replan_requested"}.Passed())
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		start   status.Role
		want    []status.Role
		wantErr error
	}{
		{status.RoleDeveloper, []status.Role{status.RoleDeveloper, status.RoleReviewer, status.RoleTester, status.RoleCompliance}, nil},
		{status.RoleTester, []status.Role{status.RoleTester, status.RoleCompliance}, nil},
		{status.RoleCompliance, []status.Role{status.RoleCompliance}, nil},
		{status.RoleComplete, nil, ErrWorkflowComplete},
		{status.RolePlanner, nil, ErrUnknownRole},
	}

	for _, tt := range tests {
		t.Run(string(tt.start), func(t *testing.T) {
			got, err := Remaining(tt.start)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRemaining_ReturnsCopy(t *testing.T) {
	got, err := Remaining(status.RoleDeveloper)
	require.NoError(t, err)
	got[0] = status.RolePlanner

	again, err := Remaining(status.RoleDeveloper)
	require.NoError(t, err)
	assert.Equal(t, status.RoleDeveloper, again[0])
}

func TestPrevious(t *testing.T) {
	assert.Equal(t, status.Role(""), Previous(status.RoleDeveloper))
	assert.Equal(t, status.RoleDeveloper, Previous(status.RoleReviewer))
	assert.Equal(t, status.RoleReviewer, Previous(status.RoleTester))
	assert.Equal(t, status.RoleTester, Previous(status.RoleCompliance))
	assert.Equal(t, status.Role(""), Previous(status.RolePlanner))
}

func TestResume(t *testing.T) {
	ready := state.WorkflowState{
		CurrentStep:  "Add handler",
		DevStatus:    status.ReadyForReview,
		ReviewStatus: status.Approved,
		TestStatus:   status.Pass,
	}
	with := func(role status.Role, mutate func(*state.WorkflowState)) state.WorkflowState {
		st := ready
		st.NextRole = role
		if mutate != nil {
			mutate(&st)
		}
		return st
	}

	tests := []struct {
		name   string
		record state.WorkflowState
		step   string
		want   status.Role
	}{
		{"empty record", state.WorkflowState{}, "Add handler", status.RoleDeveloper},
		{"reviewer honored", with(status.RoleReviewer, nil), "Add handler", status.RoleReviewer},
		{"tester honored", with(status.RoleTester, nil), "Add handler", status.RoleTester},
		{"compliance honored", with(status.RoleCompliance, nil), "Add handler", status.RoleCompliance},
		{"step mismatch", with(status.RoleTester, nil), "Write docs", status.RoleDeveloper},
		{"step whitespace ignored", with(status.RoleTester, nil), "  Add handler ", status.RoleTester},
		{"lowercase persisted values", with(status.Role("tester"), func(s *state.WorkflowState) {
			s.DevStatus, s.ReviewStatus = "complete", "approved"
		}), "Add handler", status.RoleTester},
		{"reviewer without dev evidence", with(status.RoleReviewer, func(s *state.WorkflowState) {
			s.DevStatus = status.InProgress
		}), "Add handler", status.RoleDeveloper},
		{"tester without approval", with(status.RoleTester, func(s *state.WorkflowState) {
			s.ReviewStatus = status.ChangesNeeded
		}), "Add handler", status.RoleDeveloper},
		{"compliance without pass", with(status.RoleCompliance, func(s *state.WorkflowState) {
			s.TestStatus = status.Fail
		}), "Add handler", status.RoleDeveloper},
		{"planner never resumed", with(status.RolePlanner, nil), "Add handler", status.RoleDeveloper},
		{"complete restarts developer", with(status.RoleComplete, nil), "Add handler", status.RoleDeveloper},
		{"garbage role", with(status.Role("QA"), nil), "Add handler", status.RoleDeveloper},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resume(tt.record, tt.step))
		})
	}
}
