package router

import (
	"fmt"
	"strings"

	"agentflow/internal/status"
)

// Gate holds the statuses the delivery gate combines at the end of a cycle.
type Gate struct {
	Dev        status.Value
	Review     status.Value
	Test       status.Value
	Compliance status.Value
	Safeguard  status.Value

	// StrictPolicy blocks completion on failing compliance or safeguard
	// statuses. When false the policy half of the gate always passes.
	StrictPolicy bool
}

// NewGate returns a gate holding every role's fail-closed default.
func NewGate(strictPolicy bool) Gate {
	return Gate{
		Dev:          status.DevStatus.Default,
		Review:       status.ReviewStatus.Default,
		Test:         status.TestStatus.Default,
		Compliance:   status.ComplianceStatus.Default,
		Safeguard:    status.SafeguardStatus.Default,
		StrictPolicy: strictPolicy,
	}
}

// PolicyOK reports whether the compliance half of the gate passes.
func (g Gate) PolicyOK() bool {
	if !g.StrictPolicy {
		return true
	}
	return g.Compliance == status.Approved && g.Safeguard == status.Pass
}

// Passed reports whether the step is delivered: developer ready, review
// approved, tests passing and the policy gate satisfied.
func (g Gate) Passed() bool {
	return status.DeveloperReady(g.Dev) &&
		g.Review == status.Approved &&
		g.Test == status.Pass &&
		g.PolicyOK()
}

// ResetPolicy puts the compliance and safeguard statuses back to their
// failing defaults, as at the start of every developer pass.
func (g *Gate) ResetPolicy() {
	g.Compliance = status.ComplianceStatus.Default
	g.Safeguard = status.SafeguardStatus.Default
}

// Apply records the statuses parsed from one role's output.
func (g *Gate) Apply(role status.Role, out status.Outcome) {
	switch role {
	case status.RoleDeveloper:
		g.Dev = out.Value(status.DevStatus)
	case status.RoleReviewer:
		g.Review = out.Value(status.ReviewStatus)
	case status.RoleTester:
		g.Test = out.Value(status.TestStatus)
	case status.RoleCompliance:
		g.Compliance = out.Value(status.ComplianceStatus)
		g.Safeguard = out.Value(status.SafeguardStatus)
	}
}

// Assume overwrites statuses with those implied by a resumed start role.
func (g *Gate) Assume(a Assumed) {
	if a.Dev != "" {
		g.Dev = a.Dev
	}
	if a.Review != "" {
		g.Review = a.Review
	}
	if a.Test != "" {
		g.Test = a.Test
	}
}

// String renders "dev=X, review=Y, test=Z, compliance=C, safeguards=S".
func (g Gate) String() string {
	return strings.Join([]string{
		fmt.Sprintf("dev=%s", g.Dev),
		fmt.Sprintf("review=%s", g.Review),
		fmt.Sprintf("test=%s", g.Test),
		fmt.Sprintf("compliance=%s", g.Compliance),
		fmt.Sprintf("safeguards=%s", g.Safeguard),
	}, ", ")
}
