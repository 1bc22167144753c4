package router

import (
	"strings"

	"agentflow/internal/state"
	"agentflow/internal/status"
)

// Resume returns the role an interrupted run restarts at.
//
// A persisted next role is honored only when the record was written for the
// same plan step that is active now and its statuses show that role is
// reachable:
//   - REVIEWER needs a developer status of READY_FOR_REVIEW or COMPLETE
//   - TESTER additionally needs review APPROVED
//   - COMPLIANCE additionally needs tests PASS
//
// Anything else, including an empty or unreadable record, restarts at
// DEVELOPER so verification is never skipped.
func Resume(rec state.WorkflowState, activeStep string) status.Role {
	if strings.TrimSpace(rec.CurrentStep) != strings.TrimSpace(activeStep) {
		return status.RoleDeveloper
	}

	role, ok := status.ParseRole(string(rec.NextRole))
	if !ok {
		return status.RoleDeveloper
	}

	devOK := status.DeveloperReady(upper(rec.DevStatus))
	reviewOK := devOK && upper(rec.ReviewStatus) == status.Approved
	testOK := reviewOK && upper(rec.TestStatus) == status.Pass

	switch {
	case role == status.RoleReviewer && devOK:
		return status.RoleReviewer
	case role == status.RoleTester && reviewOK:
		return status.RoleTester
	case role == status.RoleCompliance && testOK:
		return status.RoleCompliance
	default:
		return status.RoleDeveloper
	}
}

func upper(v status.Value) status.Value {
	return status.Value(strings.ToUpper(strings.TrimSpace(string(v))))
}
