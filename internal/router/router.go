// Package router decides which role runs next.
//
// The steady cycle is DEVELOPER → REVIEWER → TESTER → COMPLIANCE, followed by
// the delivery gate. PLANNER and ARCHITECT only run as a detour, either at
// bootstrap or when a role's output requests replanning. Every failing role
// hands control back to DEVELOPER for the same plan step.
//
// Key types:
//   - [Router] - transition table from a role outcome to the next role
//   - [Transition] - the routing decision for one role result
//   - [Gate] - delivery gate arithmetic over a cycle's statuses
//
// [Resume] reconstructs the starting role of an interrupted run from the
// persisted workflow record.
package router

import (
	"errors"
	"fmt"
	"strings"

	"agentflow/internal/status"
)

// Sentinel errors for role routing.
var (
	// ErrWorkflowComplete indicates every plan step is done and no role
	// needs to run. Callers should end the run rather than treat this as a
	// failure.
	ErrWorkflowComplete = errors.New("workflow is complete, no role needed")

	// ErrUnknownRole indicates the role is not part of the pipeline.
	ErrUnknownRole = errors.New("unknown role")
)

// Transition is the routing decision for one role result.
type Transition struct {
	// Next is the role to run next. It is empty when Gate is set.
	Next status.Role

	// Reason explains a hand-back to DEVELOPER, e.g. "review_status_CHANGES_REQUIRED".
	Reason string

	// Replan is set when the output requested the planner/architect detour.
	Replan bool

	// Gate is set when COMPLIANCE finished and the delivery gate decides.
	Gate bool
}

// Passed reports whether the role handed off forward.
func (t Transition) Passed() bool {
	return t.Reason == "" && !t.Replan
}

// rule maps one role to the marker that gates it and its passing successor.
type rule struct {
	marker *status.Marker
	pass   func(status.Value) bool
	next   status.Role
}

// Router maps role outcomes to the next role.
type Router struct {
	rules map[status.Role]rule
}

// NewRouter creates a [Router] with the pipeline's transition table:
//   - PLANNER → ARCHITECT
//   - ARCHITECT → DEVELOPER
//   - DEVELOPER READY_FOR_REVIEW or COMPLETE → REVIEWER
//   - REVIEWER APPROVED → TESTER
//   - TESTER PASS → COMPLIANCE
//   - COMPLIANCE → delivery gate
func NewRouter() *Router {
	return &Router{
		rules: map[status.Role]rule{
			status.RolePlanner:    {next: status.RoleArchitect},
			status.RoleArchitect:  {next: status.RoleDeveloper},
			status.RoleDeveloper:  {marker: &status.DevStatus, pass: status.DeveloperReady, next: status.RoleReviewer},
			status.RoleReviewer:   {marker: &status.ReviewStatus, pass: is(status.Approved), next: status.RoleTester},
			status.RoleTester:     {marker: &status.TestStatus, pass: is(status.Pass), next: status.RoleCompliance},
			status.RoleCompliance: {},
		},
	}
}

// Next routes the outcome of role. A replan request from any steady-cycle
// role takes precedence over its status marker.
//
// Returns [ErrWorkflowComplete] for [status.RoleComplete] and
// [ErrUnknownRole] for anything outside the pipeline.
func (r *Router) Next(role status.Role, out status.Outcome) (Transition, error) {
	if role == status.RoleComplete {
		return Transition{}, ErrWorkflowComplete
	}
	rl, ok := r.rules[role]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	if out.Replan && role != status.RolePlanner && role != status.RoleArchitect {
		return Transition{Next: status.RolePlanner, Replan: true, Reason: "replan_requested"}, nil
	}
	if role == status.RoleCompliance {
		return Transition{Gate: true}, nil
	}
	if rl.marker == nil {
		return Transition{Next: rl.next}, nil
	}

	v := out.Value(*rl.marker)
	if rl.pass(v) {
		return Transition{Next: rl.next}, nil
	}
	return Transition{
		Next:   status.RoleDeveloper,
		Reason: strings.ToLower(rl.marker.Name) + "_" + string(v),
	}, nil
}

func is(want status.Value) func(status.Value) bool {
	return func(v status.Value) bool { return v == want }
}
