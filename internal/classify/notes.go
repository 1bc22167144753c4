package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNoteLength caps the length, in characters, of a progress note.
const MaxNoteLength = 220

// MaxSectionItemLength caps a previewed section item; longer items are cut
// and end in "...".
const MaxSectionItemLength = 90

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`^\s*ERROR:\s*Failed to shutdown rollout recorder`),
	regexp.MustCompile(`^\s*tokens used\s*$`),
	regexp.MustCompile(`^\s*OpenAI Codex v`),
	regexp.MustCompile(`^\s*workdir:`),
	regexp.MustCompile(`^\s*model:`),
	regexp.MustCompile(`^\s*provider:`),
	regexp.MustCompile(`^\s*approval:`),
	regexp.MustCompile(`^\s*sandbox:`),
	regexp.MustCompile(`^\s*reasoning effort:`),
	regexp.MustCompile(`^\s*reasoning summaries:`),
	regexp.MustCompile(`^\s*session id:`),
	regexp.MustCompile(`^\s*--------\s*$`),
}

var noisePrefixes = []string{
	"WARNING: proceeding, even though we could not update PATH",
	"mcp: doc-fetcher",
	"thinking",
	"user",
	"SYSTEM ROLE INSTRUCTIONS:",
	"TASK:",
	"⏺",
	"⎿",
}

var noiseFragments = []string{
	"codex_core::rollout::list",
	"state db missing rollout path for thread",
}

// promptEchoPrefixes mark lines the agent echoes back from its own prompt.
var promptEchoPrefixes = []string{
	"Global role preferences (from brief file):",
	"Current implementation step (from plan checklist):",
	"Active change request (from ",
	"Run relevant checks in:",
	"Terraform apply enforcement:",
	"Return plain text summary and ",
	"REVIEW_STATUS:",
	"DEV_STATUS:",
	"TEST_STATUS:",
	"PLAN_STATUS:",
	"ARCH_STATUS:",
}

var promptEchoHeaders = map[string]bool{
	"Responsibilities:":    true,
	"Collaboration files:": true,
	"Rules:":               true,
	"or":                   true,
	"user":                 true,
}

// mechanicalTokens are single-word section markers in the plain-text protocol.
var mechanicalTokens = map[string]bool{
	"thinking":    true,
	"exec":        true,
	"codex":       true,
	"file update": true,
	"apply_patch": true,
	"tokens used": true,
}

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile("^\\s*```"),
	regexp.MustCompile(`^\s*diff --git `),
	regexp.MustCompile(`^\s*index [0-9a-f]+\.\.[0-9a-f]+`),
	regexp.MustCompile(`^\s*@@`),
	regexp.MustCompile(`^\s*\*\*\* Begin Patch`),
	regexp.MustCompile(`^\s*\*\*\* End Patch`),
	regexp.MustCompile(`^\s*\*\*\* (Add|Update|Delete) File: `),
	regexp.MustCompile(`^\s*\+\+\+ `),
	regexp.MustCompile(`^\s*--- `),
}

// diffPrefixes catch diff bodies and git status previews.
var diffPrefixes = []string{
	"+", "-", "@@", "diff --git", "index ", "*** ", "M ", "A ", "D ", "R ", "?? ",
}

// commandPrefixes catch echoed shell commands.
var commandPrefixes = []string{
	"/bin/zsh -lc", "/bin/bash -lc", "cd ", "ls ", "cat ", "sed ", "rg ",
	"python ", "python3 ", "git ", "terraform ", "make ",
}

var (
	statusPathRe   = regexp.MustCompile(`^[A-Z]\s+/.+`)
	makeAssignRe   = regexp.MustCompile(`^[A-Za-z0-9_.-]+\s*\?=.*`)
	bareLabelRe    = regexp.MustCompile(`^[A-Za-z0-9_.-]+:\s*$`)
	pipeOperatorRe = regexp.MustCompile(`\s(\|\||&&|\|)\s`)
	bulletRe       = regexp.MustCompile(`^[-*•]\s+`)
	numberedRe     = regexp.MustCompile(`^\d+[.)]\s+`)
)

// IsCodeLike reports whether line looks like a code fence, diff or patch line.
func IsCodeLike(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	for _, re := range codePatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// IsNoise reports whether line is runtime boilerplate that is never shown
// outside debug mode.
func IsNoise(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	if hasAnyPrefix(s, noisePrefixes) {
		return true
	}
	for _, re := range noisePatterns {
		if re.MatchString(s) {
			return true
		}
	}
	for _, frag := range noiseFragments {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}

// IsPromptEcho reports whether line is part of the agent echoing its prompt.
func IsPromptEcho(line string) bool {
	s := strings.TrimSpace(line)
	return promptEchoHeaders[s] || hasAnyPrefix(s, promptEchoPrefixes)
}

// ExtractNote derives a short narrative progress note from line. It returns
// "" for anything mechanical: noise, prompt echoes, code, diffs, commands,
// completion lines, markdown structure and over-long lines.
//
// ExtractNote is a fixed point on its own output: for any non-empty note n,
// ExtractNote(n) == n.
func ExtractNote(line string) string {
	s := strings.TrimSpace(line)
	switch {
	case s == "":
		return ""
	case IsCodeLike(s), IsNoise(s), IsPromptEcho(s), mechanicalTokens[s]:
		return ""
	case hasAnyPrefix(s, diffPrefixes):
		return ""
	case statusPathRe.MatchString(s), makeAssignRe.MatchString(s), bareLabelRe.MatchString(s):
		return ""
	case pipeOperatorRe.MatchString(s):
		return ""
	case strings.HasSuffix(s, "{"), s == "}":
		return ""
	case hasAnyPrefix(s, commandPrefixes):
		return ""
	case isCompletionText(s):
		return ""
	case utf8.RuneCountInString(s) > MaxNoteLength:
		return ""
	case hasAnyPrefix(s, []string{"#", "-", "*", ">"}):
		return ""
	case strings.ContainsAny(s, "`\t"):
		return ""
	}
	return s
}

// ExtractSectionItem derives the preview text of a list item following a
// section header such as "Changes made:". Bullets and numbering are
// stripped. It returns "" for mechanical lines, headings and inline code.
func ExtractSectionItem(line string) string {
	s := strings.TrimSpace(line)
	switch {
	case s == "":
		return ""
	case IsCodeLike(s), IsNoise(s), IsPromptEcho(s), mechanicalTokens[s]:
		return ""
	}

	item := numberedRe.ReplaceAllString(bulletRe.ReplaceAllString(s, ""), "")
	item = strings.TrimSpace(item)
	switch {
	case item == "":
		return ""
	case strings.HasPrefix(item, "#"), strings.HasPrefix(item, "```"):
		return ""
	case strings.Contains(item, "`"):
		return ""
	}
	if utf8.RuneCountInString(item) > MaxSectionItemLength {
		runes := []rune(item)
		item = strings.TrimRight(string(runes[:MaxSectionItemLength-3]), " \t") + "..."
	}
	return item
}

func isCompletionText(s string) bool {
	return strings.Contains(s, "succeeded in ") ||
		strings.Contains(s, "failed in ") ||
		strings.Contains(s, "exited ")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
