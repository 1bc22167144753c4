package state

import (
	"regexp"
	"strings"
)

var briefHeadingRe = regexp.MustCompile(`(?im)^##\s*(idea|guidelines?|role preferences|project structure preferences|preferences)\s*$`)

// ParseBrief reads a markdown brief with "## Idea", "## Guidelines" and an
// optional preferences section. Without both headed sections the first
// non-empty line is the idea and the rest are the guidelines.
func ParseBrief(text string) Brief {
	var b Brief
	matches := briefHeadingRe.FindAllStringSubmatchIndex(text, -1)
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])
		heading := strings.ToLower(text[m[2]:m[3]])
		switch {
		case strings.HasPrefix(heading, "idea"):
			b.Idea = body
		case strings.HasPrefix(heading, "guideline"):
			b.Guidelines = body
		default:
			b.RolePreferences = body
		}
	}
	if b.Idea != "" && b.Guidelines != "" {
		return b
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	b.Idea, b.Guidelines = "", ""
	if len(lines) > 0 {
		b.Idea = lines[0]
		b.Guidelines = strings.Join(lines[1:], "\n")
	}
	return b
}

// BriefFromPlan recovers the inputs recorded in a bootstrapped plan's
// "## Inputs" section.
func BriefFromPlan(text string) Brief {
	var b Brief
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "- Idea":
			b.Idea = value
		case "- Guidelines", "- Required stack":
			b.Guidelines = value
		case "- Role Preferences":
			b.RolePreferences = value
		}
	}
	if b.RolePreferences == "(none)" {
		b.RolePreferences = ""
	}
	return b
}

// Merge fills empty fields of b from fallback.
func (b Brief) Merge(fallback Brief) Brief {
	if b.Idea == "" {
		b.Idea = fallback.Idea
	}
	if b.Guidelines == "" {
		b.Guidelines = fallback.Guidelines
	}
	if b.RolePreferences == "" {
		b.RolePreferences = fallback.RolePreferences
	}
	return b
}
