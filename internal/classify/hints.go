package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/muesli/reflow/truncate"
)

type keywordHint struct {
	label    string
	keywords []string
}

func matchKeywords(payload string, table []keywordHint) string {
	for _, h := range table {
		for _, kw := range h.keywords {
			if strings.Contains(payload, kw) {
				return h.label
			}
		}
	}
	return ""
}

// shellHintsBeforeMake and shellHintsAfterMake are evaluated in order around
// the generic "make <target>" rule.
var shellHintsBeforeMake = []keywordHint{
	{"terraform", []string{"terraform"}},
	{"terraform apply", []string{"tf-apply"}},
	{"tests", []string{"pytest", "unittest", "make test"}},
	{"lint", []string{"make lint", "ruff", "flake8"}},
}

var shellHintsAfterMake = []keywordHint{
	{"patch edit", []string{"apply_patch"}},
	{"git", []string{"git "}},
	{"search", []string{"rg "}},
	{"file read", []string{"cat ", "sed "}},
	{"python", []string{"python ", "python3 "}},
	{"aws cli", []string{"aws "}},
}

var bashToolHints = []keywordHint{
	{"tests", []string{"pytest", "unittest", "make test"}},
	{"terraform", []string{"terraform"}},
	{"lint", []string{"make lint", "ruff", "flake8"}},
}

var toolHints = map[string]string{
	"read":         "file read",
	"write":        "file write",
	"edit":         "file edit",
	"glob":         "file search",
	"grep":         "code search",
	"task":         "subtask",
	"webfetch":     "web fetch",
	"websearch":    "web search",
	"notebookedit": "notebook edit",
}

func makeTarget(payload string) (string, bool) {
	if !strings.HasPrefix(payload, "make ") {
		return "", false
	}
	parts := strings.Fields(payload)
	if len(parts) >= 2 {
		return "make " + parts[1], true
	}
	return "make", true
}

// ShellHint maps a "/bin/sh -lc <payload>" invocation line to a short
// category label such as "tests", "terraform" or "git".
func ShellHint(line string) string {
	s := strings.TrimSpace(line)
	_, payload, ok := strings.Cut(s, "-lc")
	if !ok || !isShellInvocation(s) {
		return "shell command"
	}
	payload = unquote(strings.TrimSpace(payload))
	p := strings.ToLower(payload)

	if h := matchKeywords(p, shellHintsBeforeMake); h != "" {
		return h
	}
	if h, ok := makeTarget(p); ok {
		return h
	}
	if h := matchKeywords(p, shellHintsAfterMake); h != "" {
		return h
	}
	return "shell command"
}

// ToolHint maps a tool name and its input to a short category label used in
// heartbeat notices.
func ToolHint(name string, input map[string]any) string {
	lower := strings.ToLower(name)
	if lower == "bash" {
		cmd := strings.ToLower(stringArg(input, "command"))
		if h := matchKeywords(cmd, bashToolHints); h != "" {
			return h
		}
		if h, ok := makeTarget(cmd); ok {
			return h
		}
		if strings.Contains(cmd, "git ") {
			return "git"
		}
		return "bash"
	}
	if h, ok := toolHints[lower]; ok {
		return h
	}
	if name == "" {
		return "tool"
	}
	return name + " tool"
}

// DescribeTool returns a one-line human-readable description of a tool call,
// such as "bash: go test ./..." or "reading: internal/app.go".
func DescribeTool(name string, input map[string]any) string {
	arg := func(limit uint, keys ...string) string {
		for _, k := range keys {
			if v := stringArg(input, k); v != "" {
				return strings.TrimSpace(truncate.String(v, limit))
			}
		}
		return ""
	}
	describe := func(verb, value, fallback string) string {
		if value == "" {
			return fallback
		}
		return fmt.Sprintf("%s: %s", verb, value)
	}

	switch strings.ToLower(name) {
	case "bash":
		return describe("bash", arg(80, "command"), "bash")
	case "read":
		return describe("reading", shortPath(arg(70, "file_path", "path")), "file read")
	case "write":
		return describe("writing", shortPath(arg(70, "file_path", "path")), "file write")
	case "edit":
		return describe("editing", shortPath(arg(70, "file_path", "path")), "file edit")
	case "glob":
		return describe("globbing", arg(70, "pattern", "path"), "file search")
	case "grep":
		return describe("grep", arg(50, "pattern"), "code search")
	case "task":
		return describe("subtask", arg(60, "description"), "subtask")
	case "webfetch":
		return describe("fetching", arg(60, "url"), "web fetch")
	case "websearch":
		return describe("web search", arg(60, "query"), "web search")
	case "notebookedit":
		return describe("editing notebook", shortPath(arg(70, "notebook_path")), "notebook edit")
	}
	return ToolHint(name, input)
}

var (
	toolLineRe = regexp.MustCompile(`^⏺\s+(\w+)\s*\((.*?)\)?\s*$`)
	toolArgRe  = regexp.MustCompile("(\\w+)=[\"'`]([^\"'`\\n]+)")
)

// primaryArg names the argument a bare "⏺ Tool(value)" line carries.
var primaryArg = map[string]string{
	"bash":         "command",
	"read":         "file_path",
	"write":        "file_path",
	"edit":         "file_path",
	"glob":         "pattern",
	"grep":         "pattern",
	"task":         "description",
	"webfetch":     "url",
	"websearch":    "query",
	"notebookedit": "notebook_path",
}

// ParseToolLine parses a plain-text tool call line such as
// "⏺ Bash(command="go test ./...")" or "⏺ Read(internal/app.go)".
// ok is false when line is not a tool call.
func ParseToolLine(line string) (name string, input map[string]any, ok bool) {
	m := toolLineRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", nil, false
	}
	name, body := m[1], m[2]
	input = make(map[string]any)
	for _, kv := range toolArgRe.FindAllStringSubmatch(body, -1) {
		input[kv[1]] = kv[2]
	}
	if len(input) == 0 && body != "" {
		if key, known := primaryArg[strings.ToLower(name)]; known {
			input[key] = body
		}
	}
	return name, input, true
}

// SummarizeCompletion reduces a command completion line to one of
// "command completed (<d>)", "command failed (<d>)",
// "command exited (code <n>)" or "command finished".
func SummarizeCompletion(line string) string {
	s := strings.TrimSpace(line)
	if m := succeededRe.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("command completed (%s)", strings.TrimSpace(m[1]))
	}
	if m := failedRe.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("command failed (%s)", strings.TrimSpace(m[1]))
	}
	if m := exitedRe.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("command exited (code %s)", m[1])
	}
	return "command finished"
}

var (
	succeededRe = regexp.MustCompile(`(?i)succeeded in\s+([^:]+)`)
	failedRe    = regexp.MustCompile(`(?i)failed in\s+([^:]+)`)
	exitedRe    = regexp.MustCompile(`(?i)exited\s+(\d+)`)
)

func isShellInvocation(s string) bool {
	return strings.HasPrefix(s, "/bin/zsh -lc") || strings.HasPrefix(s, "/bin/bash -lc")
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func shortPath(p string) string {
	parts := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	if len(parts) > 2 {
		return strings.Join(parts[len(parts)-2:], "/")
	}
	return p
}

func stringArg(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	switch v := input[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
