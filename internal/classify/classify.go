// Package classify reduces raw agent output to short progress signals.
//
// A [Classifier] evaluates an ordered table of [Rule] values against each
// output line; the first matching rule decides the [Classification]. The
// table is plain data so every rule can be tested on its own.
//
// Classification is pure. Block context that spans lines (an echoed prompt, a
// command execution block) is carried in an explicit [Scope] value that the
// caller threads from one call to the next.
package classify

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"agentflow/internal/status"
	"agentflow/internal/stream"
)

// Kind is the outcome of classifying one output line or unit.
type Kind int

const (
	// KindSuppressed output is hidden from the console.
	KindSuppressed Kind = iota

	// KindNote is a short narrative progress note.
	KindNote

	// KindToolCall describes a shell command or tool invocation.
	KindToolCall

	// KindCompletion summarizes a finished command.
	KindCompletion

	// KindThinking marks the model starting a reasoning step.
	KindThinking

	// KindRaw is an unfiltered line shown in debug mode.
	KindRaw
)

// String returns the display label for the kind.
func (k Kind) String() string {
	switch k {
	case KindSuppressed:
		return "suppressed"
	case KindNote:
		return "note"
	case KindToolCall:
		return "tool"
	case KindCompletion:
		return "completion"
	case KindThinking:
		return "thinking"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Activity tells the supervisor whether a tool or command started or ended.
type Activity int

const (
	ActivityNone Activity = iota
	ActivityStart
	ActivityEnd
)

// Classification is the result of classifying one line or unit.
type Classification struct {
	Kind Kind

	// Text is the display text; empty when suppressed.
	Text string

	// Hint is the command category label, set with [ActivityStart].
	Hint string

	Activity Activity

	// Rule names the rule that produced this classification.
	Rule string
}

// Visible reports whether the classification should be printed.
func (c Classification) Visible() bool {
	return c.Kind != KindSuppressed && c.Text != ""
}

// Scope carries block context between consecutive lines.
type Scope struct {
	// Echo is set inside an echoed prompt block.
	Echo bool

	// Exec is set inside a command execution block.
	Exec bool

	// TokenCount is set when the next line is a token count.
	TokenCount bool

	// Section is an open note ending in ":" whose list items are previewed
	// on the same note. SectionPreview holds the items joined so far, SectionItems
	// the items seen and SectionBlanks the blank lines since the header.
	Section        string
	SectionPreview string
	SectionItems   int
	SectionBlanks  int
}

// MaxSectionItems is the number of list items previewed after a header.
const MaxSectionItems = 2

// maxSectionBlanks is the number of blank lines a header survives.
const maxSectionBlanks = 2

// openSection starts a preview for header when it ends in ":".
func (sc Scope) openSection(note string) Scope {
	sc = sc.closeSection()
	if strings.HasSuffix(note, ":") {
		sc.Section = note
	}
	return sc
}

func (sc Scope) closeSection() Scope {
	sc.Section, sc.SectionPreview = "", ""
	sc.SectionItems, sc.SectionBlanks = 0, 0
	return sc
}

// addSectionItem appends item to the open section and returns the preview
// note. The section closes once it holds [MaxSectionItems] items.
func (sc Scope) addSectionItem(item string) (string, Scope) {
	sc.SectionItems++
	if sc.SectionPreview == "" {
		sc.SectionPreview = item
	} else {
		sc.SectionPreview += " | " + item
	}
	note := sc.Section + " " + sc.SectionPreview
	if sc.SectionItems >= MaxSectionItems {
		sc = sc.closeSection()
	}
	return note, sc
}

// sectionBlank counts a blank line against the open section.
func (sc Scope) sectionBlank() Scope {
	if sc.Section == "" {
		return sc
	}
	sc.SectionBlanks++
	if sc.SectionBlanks > maxSectionBlanks {
		sc = sc.closeSection()
	}
	return sc
}

// leaveSection closes the open section on any line that is neither blank
// nor a list item. Lines inside blocks and section markers keep it open.
func leaveSection(s string, sc Scope) Scope {
	if sc.Section == "" || s == "" || mechanicalTokens[s] || sc.Echo || sc.Exec || sc.TokenCount {
		return sc
	}
	if ExtractSectionItem(s) == "" {
		return sc.closeSection()
	}
	return sc
}

// Mode selects the rule table.
type Mode int

const (
	// ModeProgress shows only notes, tool calls and completions.
	ModeProgress Mode = iota

	// ModeDebug shows every line except code and diff fragments.
	ModeDebug
)

// Rule is one predicate/outcome pair. Match and Apply receive the line with
// control sequences and surrounding whitespace removed.
type Rule struct {
	Name  string
	Match func(line string, sc Scope) bool
	Apply func(line string, sc Scope) (Classification, Scope)
}

// Classifier applies a rule table to agent output.
type Classifier struct {
	mode  Mode
	rules []Rule
}

// New creates a [Classifier] for the given mode.
func New(mode Mode) *Classifier {
	rules := ProgressRules
	if mode == ModeDebug {
		rules = DebugRules
	}
	return &Classifier{mode: mode, rules: rules}
}

// StripANSI removes terminal control sequences from s.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// ClassifyLine classifies a single plain-text line.
func (c *Classifier) ClassifyLine(line string, sc Scope) (Classification, Scope) {
	s := strings.TrimSpace(StripANSI(line))
	sc = leaveBlocks(s, sc)
	if c.mode == ModeProgress {
		sc = leaveSection(s, sc)
	}
	for _, r := range c.rules {
		if r.Match(s, sc) {
			cl, next := r.Apply(s, sc)
			cl.Rule = r.Name
			return cl, next
		}
	}
	return Classification{Kind: KindSuppressed, Rule: "unmatched"}, sc
}

// Classify classifies one decoded unit. Assistant text yields one
// classification per line, preceded by an [ActivityEnd] marker.
func (c *Classifier) Classify(u stream.Unit, sc Scope) ([]Classification, Scope) {
	switch u.Kind {
	case stream.KindLine:
		cl, next := c.ClassifyLine(u.Text, sc)
		return []Classification{cl}, next

	case stream.KindToolUse:
		return []Classification{{
			Kind:     KindToolCall,
			Text:     DescribeTool(u.ToolName, u.ToolInput),
			Hint:     ToolHint(u.ToolName, u.ToolInput),
			Activity: ActivityStart,
			Rule:     "tool-use",
		}}, sc

	case stream.KindAssistantText:
		out := []Classification{{Kind: KindSuppressed, Activity: ActivityEnd, Rule: "assistant-text"}}
		for _, line := range strings.Split(u.Text, "\n") {
			var cl Classification
			cl, sc = c.classifyText(line, sc)
			out = append(out, cl)
		}
		return out, sc

	case stream.KindResult:
		return []Classification{{Kind: KindSuppressed, Activity: ActivityEnd, Rule: "result"}}, sc
	}
	return []Classification{{Kind: KindSuppressed, Rule: "ignored"}}, sc
}

// classifyText handles assistant text, which has no exec or echo blocks.
// Section previews carry across lines and units.
func (c *Classifier) classifyText(line string, sc Scope) (Classification, Scope) {
	s := strings.TrimSpace(StripANSI(line))
	if c.mode == ModeDebug {
		if s == "" || IsCodeLike(s) {
			return Classification{Kind: KindSuppressed, Rule: "code"}, sc
		}
		return Classification{Kind: KindRaw, Text: s, Rule: "raw"}, sc
	}
	if s == "" {
		return Classification{Kind: KindSuppressed, Rule: "blank"}, sc.sectionBlank()
	}
	if roleTagRe.MatchString(s) {
		return Classification{Kind: KindSuppressed, Rule: "echoed-tag"}, sc
	}
	if sc.Section != "" {
		if item := ExtractSectionItem(s); item != "" {
			note, next := sc.addSectionItem(item)
			return Classification{Kind: KindNote, Text: note, Rule: "section-item"}, next
		}
		sc = sc.closeSection()
	}
	if note := ExtractNote(s); note != "" {
		return Classification{Kind: KindNote, Text: note, Rule: "note"}, sc.openSection(note)
	}
	return Classification{Kind: KindSuppressed, Rule: "mechanical"}, sc
}

var roleTagRe = func() *regexp.Regexp {
	names := make([]string, len(status.Roles))
	for i, r := range status.Roles {
		names[i] = string(r)
	}
	return regexp.MustCompile(`^\[(` + strings.Join(names, "|") + `)\]\s`)
}()

// execEnders close a command execution block.
var execEnders = map[string]bool{
	"thinking":    true,
	"codex":       true,
	"file update": true,
	"apply_patch": true,
}

func leaveBlocks(s string, sc Scope) Scope {
	if sc.Echo && (mechanicalTokens[s] || strings.HasPrefix(s, "⏺")) {
		sc.Echo = false
	}
	if sc.Exec && execEnders[s] {
		sc.Exec = false
	}
	return sc
}

func isEchoStart(s string) bool {
	return strings.HasPrefix(s, "SYSTEM ROLE INSTRUCTIONS:") ||
		strings.HasPrefix(s, "TASK:") ||
		IsPromptEcho(s) && s != "or" && s != "user"
}

func suppress(_ string, sc Scope) (Classification, Scope) {
	return Classification{Kind: KindSuppressed}, sc
}

func always(string, Scope) bool { return true }

// ProgressRules is the rule table for [ModeProgress], in priority order.
var ProgressRules = []Rule{
	{
		Name:  "token-count",
		Match: func(_ string, sc Scope) bool { return sc.TokenCount },
		Apply: func(_ string, sc Scope) (Classification, Scope) {
			sc.TokenCount = false
			return Classification{Kind: KindSuppressed}, sc
		},
	},
	{
		Name:  "blank",
		Match: func(s string, _ Scope) bool { return s == "" },
		Apply: func(_ string, sc Scope) (Classification, Scope) {
			sc.Echo = false
			return Classification{Kind: KindSuppressed}, sc.sectionBlank()
		},
	},
	{
		Name:  "echoed-tag",
		Match: func(s string, _ Scope) bool { return roleTagRe.MatchString(s) },
		Apply: suppress,
	},
	{
		Name:  "tokens-used",
		Match: func(s string, _ Scope) bool { return s == "tokens used" },
		Apply: func(_ string, sc Scope) (Classification, Scope) {
			sc.TokenCount = true
			return Classification{Kind: KindSuppressed}, sc
		},
	},
	{
		Name:  "prompt-echo-start",
		Match: func(s string, _ Scope) bool { return isEchoStart(s) },
		Apply: func(_ string, sc Scope) (Classification, Scope) {
			sc.Echo = true
			return Classification{Kind: KindSuppressed}, sc
		},
	},
	{
		Name:  "prompt-echo-body",
		Match: func(_ string, sc Scope) bool { return sc.Echo },
		Apply: suppress,
	},
	{
		Name:  "tool-line",
		Match: func(s string, _ Scope) bool { return strings.HasPrefix(s, "⏺") },
		Apply: func(s string, sc Scope) (Classification, Scope) {
			name, input, ok := ParseToolLine(s)
			if !ok {
				return Classification{Kind: KindSuppressed}, sc
			}
			return Classification{
				Kind:     KindToolCall,
				Text:     DescribeTool(name, input),
				Hint:     ToolHint(name, input),
				Activity: ActivityStart,
			}, sc
		},
	},
	{
		Name:  "tool-result",
		Match: func(s string, _ Scope) bool { return strings.HasPrefix(s, "⎿") },
		Apply: suppress,
	},
	{
		Name:  "exec-start",
		Match: func(s string, _ Scope) bool { return s == "exec" },
		Apply: func(_ string, sc Scope) (Classification, Scope) {
			sc.Exec = true
			return Classification{Kind: KindSuppressed, Activity: ActivityEnd}, sc
		},
	},
	{
		Name:  "shell-invocation",
		Match: func(s string, sc Scope) bool { return sc.Exec && isShellInvocation(s) },
		Apply: func(s string, sc Scope) (Classification, Scope) {
			hint := ShellHint(s)
			return Classification{Kind: KindToolCall, Text: hint, Hint: hint, Activity: ActivityStart}, sc
		},
	},
	{
		Name:  "completion",
		Match: func(s string, sc Scope) bool { return sc.Exec && isCompletionText(s) },
		Apply: func(s string, sc Scope) (Classification, Scope) {
			return Classification{Kind: KindCompletion, Text: SummarizeCompletion(s), Activity: ActivityEnd}, sc
		},
	},
	{
		Name:  "exec-body",
		Match: func(_ string, sc Scope) bool { return sc.Exec },
		Apply: suppress,
	},
	{
		Name:  "thinking",
		Match: func(s string, _ Scope) bool { return s == "thinking" },
		Apply: func(_ string, sc Scope) (Classification, Scope) {
			return Classification{Kind: KindThinking, Text: "planning next step...", Activity: ActivityEnd}, sc
		},
	},
	{
		Name:  "section-marker",
		Match: func(s string, _ Scope) bool { return mechanicalTokens[s] },
		Apply: func(_ string, sc Scope) (Classification, Scope) {
			return Classification{Kind: KindSuppressed, Activity: ActivityEnd}, sc
		},
	},
	{
		Name:  "section-item",
		Match: func(s string, sc Scope) bool { return sc.Section != "" && ExtractSectionItem(s) != "" },
		Apply: func(s string, sc Scope) (Classification, Scope) {
			note, next := sc.addSectionItem(ExtractSectionItem(s))
			return Classification{Kind: KindNote, Text: note, Activity: ActivityEnd}, next
		},
	},
	{
		Name:  "note",
		Match: func(s string, _ Scope) bool { return ExtractNote(s) != "" },
		Apply: func(s string, sc Scope) (Classification, Scope) {
			note := ExtractNote(s)
			return Classification{Kind: KindNote, Text: note, Activity: ActivityEnd}, sc.openSection(note)
		},
	},
	{
		Name:  "mechanical",
		Match: always,
		Apply: suppress,
	},
}

// DebugRules is the rule table for [ModeDebug].
var DebugRules = []Rule{
	{
		Name:  "code",
		Match: func(s string, _ Scope) bool { return IsCodeLike(s) },
		Apply: suppress,
	},
	{
		Name:  "raw",
		Match: always,
		Apply: func(s string, sc Scope) (Classification, Scope) {
			return Classification{Kind: KindRaw, Text: s}, sc
		},
	},
}
