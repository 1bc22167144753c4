// Package status defines pipeline roles, their status-marker vocabularies and
// the parser that extracts marker values from a role's output.
//
// Every role ends its output with a fixed-format line such as:
//
//	DEV_STATUS: READY_FOR_REVIEW; REPLAN_REQUIRED: NO
//	COMPLIANCE_STATUS: APPROVED; SAFEGUARD_STATUS: PASS; REPLAN_REQUIRED: NO
//
// Markers are matched case-insensitively, scanning from the end of the output,
// so the last occurrence wins. Missing or unrecognized values resolve to a
// fail-closed default so the pipeline never advances on ambiguous output.
//
// Key types:
//   - [Role] names one pipeline stage
//   - [Value] is a normalized marker value
//   - [Marker] describes one marker name, its allowed values and its default
package status

import "strings"

// Role is one named pipeline stage.
type Role string

// Pipeline roles.
const (
	RolePlanner    Role = "PLANNER"
	RoleArchitect  Role = "ARCHITECT"
	RoleDeveloper  Role = "DEVELOPER"
	RoleReviewer   Role = "REVIEWER"
	RoleTester     Role = "TESTER"
	RoleCompliance Role = "COMPLIANCE"
)

// RoleComplete is the pseudo-role recorded once every plan step is done.
const RoleComplete Role = "COMPLETE"

// Roles lists every real role in pipeline order.
var Roles = []Role{RolePlanner, RoleArchitect, RoleDeveloper, RoleReviewer, RoleTester, RoleCompliance}

// ParseRole normalizes s into a [Role]. The second return is false when s does
// not name a known role or [RoleComplete].
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r == RoleComplete {
		return r, true
	}
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Lower returns the role name in lower case, used for config keys.
func (r Role) Lower() string {
	return strings.ToLower(string(r))
}

// Activity is a short verb phrase describing what the role is doing,
// used in heartbeat notices.
func (r Role) Activity() string {
	switch r {
	case RoleDeveloper:
		return "implementing"
	case RoleReviewer:
		return "reviewing"
	case RoleTester:
		return "running checks"
	case RolePlanner:
		return "planning"
	case RoleArchitect:
		return "designing"
	default:
		return "processing"
	}
}

// Value is a normalized (upper-case) marker value.
type Value string

// Marker values.
const (
	Ready          Value = "READY"
	InProgress     Value = "IN_PROGRESS"
	ReadyForReview Value = "READY_FOR_REVIEW"
	Complete       Value = "COMPLETE"
	Blocked        Value = "BLOCKED"
	Approved       Value = "APPROVED"
	ChangesNeeded  Value = "CHANGES_REQUIRED"
	Pass           Value = "PASS"
	Fail           Value = "FAIL"
	Violations     Value = "VIOLATIONS"
	Yes            Value = "YES"
	No             Value = "NO"
)

// Marker describes one status-marker name.
type Marker struct {
	// Name is the marker label as written in the output, e.g. "DEV_STATUS".
	Name string

	// Allowed lists the values accepted for this marker.
	Allowed []Value

	// Default is the fail-closed value used when the marker is missing
	// or carries an unrecognized value.
	Default Value
}

// IsValid reports whether v is one of the marker's allowed values.
func (m Marker) IsValid(v Value) bool {
	for _, a := range m.Allowed {
		if a == v {
			return true
		}
	}
	return false
}

// Marker vocabularies.
var (
	PlanStatus       = Marker{Name: "PLAN_STATUS", Allowed: []Value{Ready}, Default: Ready}
	ArchStatus       = Marker{Name: "ARCH_STATUS", Allowed: []Value{Ready}, Default: Ready}
	DevStatus        = Marker{Name: "DEV_STATUS", Allowed: []Value{InProgress, ReadyForReview, Complete, Blocked}, Default: InProgress}
	ReviewStatus     = Marker{Name: "REVIEW_STATUS", Allowed: []Value{Approved, ChangesNeeded}, Default: ChangesNeeded}
	TestStatus       = Marker{Name: "TEST_STATUS", Allowed: []Value{Pass, Fail}, Default: Fail}
	ComplianceStatus = Marker{Name: "COMPLIANCE_STATUS", Allowed: []Value{Approved, Violations}, Default: Violations}
	SafeguardStatus  = Marker{Name: "SAFEGUARD_STATUS", Allowed: []Value{Pass, Fail}, Default: Fail}
	ReplanRequired   = Marker{Name: "REPLAN_REQUIRED", Allowed: []Value{Yes, No}, Default: No}
)

// MarkersFor returns the status markers a role is expected to emit.
func MarkersFor(r Role) []Marker {
	switch r {
	case RolePlanner:
		return []Marker{PlanStatus}
	case RoleArchitect:
		return []Marker{ArchStatus}
	case RoleDeveloper:
		return []Marker{DevStatus}
	case RoleReviewer:
		return []Marker{ReviewStatus}
	case RoleTester:
		return []Marker{TestStatus}
	case RoleCompliance:
		return []Marker{ComplianceStatus, SafeguardStatus}
	default:
		return nil
	}
}

// DeveloperReady reports whether a developer status hands off to review.
func DeveloperReady(v Value) bool {
	return v == ReadyForReview || v == Complete
}
