package status

import (
	"regexp"
	"strings"
)

var replanRe = regexp.MustCompile(`(?i)\bREPLAN_REQUIRED:\s*(YES|NO)\b`)

// Extract scans text from the end for the last line carrying marker m and
// returns its value. A line may hold several "NAME: VALUE" clauses separated
// by semicolons; any clause may carry the marker.
//
// When no line carries a recognized value, Extract returns m.Default and
// found=false.
func Extract(text string, m Marker) (v Value, found bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		for _, clause := range strings.Split(lines[i], ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(clause), ":")
			if !ok || !strings.EqualFold(strings.TrimSpace(name), m.Name) {
				continue
			}
			candidate := Value(strings.ToUpper(strings.TrimSpace(value)))
			if m.IsValid(candidate) {
				return candidate, true
			}
		}
	}
	return m.Default, false
}

// Replan reports whether text carries an explicit "REPLAN_REQUIRED: YES"
// clause. The clause is parsed independently of the status marker, again
// scanning from the end so the last clause wins.
func Replan(text string) bool {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if m := replanRe.FindStringSubmatch(lines[i]); m != nil {
			return strings.EqualFold(m[1], string(Yes))
		}
	}
	return false
}

// Outcome is the parsed status of one role invocation.
type Outcome struct {
	// Values maps marker name to its resolved value.
	Values map[string]Value

	// Missing lists marker names that fell back to their default.
	Missing []string

	// Replan is true when the output requested replanning.
	Replan bool
}

// Value returns the resolved value for m, or m.Default when absent.
func (o Outcome) Value(m Marker) Value {
	if v, ok := o.Values[m.Name]; ok {
		return v
	}
	return m.Default
}

// Parse extracts every marker expected from role r plus the replan clause.
func Parse(r Role, text string) Outcome {
	out := Outcome{Values: make(map[string]Value), Replan: Replan(text)}
	for _, m := range MarkersFor(r) {
		v, found := Extract(text, m)
		out.Values[m.Name] = v
		if !found {
			out.Missing = append(out.Missing, m.Name)
		}
	}
	return out
}
