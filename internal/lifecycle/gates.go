package lifecycle

import (
	"fmt"
	"regexp"
	"strings"

	"agentflow/internal/router"
)

// applyEvidence matches output proving an infrastructure apply succeeded.
var applyEvidence = []*regexp.Regexp{
	regexp.MustCompile(`(?i)make tf-apply[^\n]*succeeded in`),
	regexp.MustCompile(`(?i)terraform(?:\s+-chdir=\S+)?\s+apply[^\n]*succeeded in`),
	regexp.MustCompile(`(?i)Apply complete!`),
	regexp.MustCompile(`(?i)No changes\.\s+Your infrastructure matches the configuration\.`),
}

const applyEnforcementMessage = "Terraform apply enforcement is enabled, but no successful tf-apply evidence was found in this cycle outputs."

// HasApplyEvidence reports whether any of texts shows a successful apply.
// The texts are joined first so evidence may span the outputs.
func HasApplyEvidence(texts ...string) bool {
	combined := strings.Join(texts, "\n")
	for _, re := range applyEvidence {
		if re.MatchString(combined) {
			return true
		}
	}
	return false
}

// signature identifies a cycle's gate outcome for stagnation detection.
type signature struct {
	step    string
	gate    router.Gate
	applyOK bool
}

// stagnation counts consecutive cycles ending with the same signature.
type stagnation struct {
	limit int
	last  *signature
	count int
}

func newStagnation(limit int) *stagnation {
	return &stagnation{limit: max(1, limit)}
}

// record adds one cycle and reports whether the limit is reached.
func (s *stagnation) record(sig signature) bool {
	if s.last != nil && *s.last == sig {
		s.count++
	} else {
		s.count = 1
		s.last = &sig
	}
	return s.count >= s.limit
}

func (s *stagnation) reset() {
	s.last = nil
	s.count = 0
}

// reason describes the stalled signature for the decision log.
func (s *stagnation) reason() string {
	if s.last == nil {
		return ""
	}
	g := s.last.gate
	return fmt.Sprintf(
		"Repeated identical gate outcomes without step progress; stopping to avoid loop. "+
			"step=%s; dev=%s; review=%s; test=%s; compliance=%s; safeguards=%s; apply_ok=%s; stagnation_cycles=%d",
		s.last.step, g.Dev, g.Review, g.Test, g.Compliance, g.Safeguard,
		boolUpper(s.last.applyOK), s.count)
}
