package router

import (
	"fmt"

	"agentflow/internal/status"
)

// cycle is the steady role order for one plan step.
var cycle = []status.Role{status.RoleDeveloper, status.RoleReviewer, status.RoleTester, status.RoleCompliance}

// Remaining returns the steady-cycle roles from start through COMPLIANCE.
//
// Returns [ErrWorkflowComplete] for [status.RoleComplete] and
// [ErrUnknownRole] for roles outside the steady cycle.
func Remaining(start status.Role) ([]status.Role, error) {
	if start == status.RoleComplete {
		return nil, ErrWorkflowComplete
	}
	for i, r := range cycle {
		if r == start {
			return append([]status.Role(nil), cycle[i:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, start)
}

// Previous returns the steady-cycle role that hands off to r, or "" for
// DEVELOPER and roles outside the cycle.
func Previous(r status.Role) status.Role {
	for i := 1; i < len(cycle); i++ {
		if cycle[i] == r {
			return cycle[i-1]
		}
	}
	return ""
}

// Assumed is the set of statuses a resumed cycle takes as already passed
// for the roles it skips.
type Assumed struct {
	Dev    status.Value
	Review status.Value
	Test   status.Value
}

// AssumedFor returns the passing statuses implied by starting at r. Fields
// for roles that will run are left empty.
func AssumedFor(r status.Role) Assumed {
	var a Assumed
	switch r {
	case status.RoleCompliance:
		a.Test = status.Pass
		fallthrough
	case status.RoleTester:
		a.Review = status.Approved
		fallthrough
	case status.RoleReviewer:
		a.Dev = status.ReadyForReview
	}
	return a
}
