// Package stream decodes the output of an agent child process into units.
//
// Agents speak one of two protocols:
//   - [ProtocolText]: a narrated plain-text stream, one unit per line
//   - [ProtocolEvents]: newline-delimited JSON events (stream-json format)
//
// The protocol is chosen once per invocation via [NewDecoder]; both variants
// sit behind the [Decoder] interface so callers consume units uniformly.
package stream

// StreamEvent represents a raw JSON event from the agent's stream-json output.
//
// It maps directly to the wire format. Most callers work with [Unit] instead.
type StreamEvent struct {
	Type          string          `json:"type"`
	Subtype       string          `json:"subtype,omitempty"`
	Message       *MessageContent `json:"message,omitempty"`
	ToolUseResult *ToolResult     `json:"tool_use_result,omitempty"`
	Result        string          `json:"result,omitempty"`
}

// MessageContent represents the content of an assistant message.
type MessageContent struct {
	Content []ContentBlock `json:"content,omitempty"`
}

// ContentBlock represents a single block of content within a [MessageContent].
//
// The Type field indicates the kind of content:
//   - "text": text output in the Text field
//   - "tool_use": a tool invocation with Name and Input fields
type ContentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	Stdout      string `json:"stdout,omitempty"`
	Stderr      string `json:"stderr,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

// Event types found in [StreamEvent.Type].
const (
	EventTypeSystem    = "system"
	EventTypeAssistant = "assistant"
	EventTypeUser      = "user"
	EventTypeResult    = "result"
)

// Protocol selects how a child's output is decoded.
type Protocol int

const (
	// ProtocolText treats every output line as one [KindLine] unit.
	ProtocolText Protocol = iota

	// ProtocolEvents decodes newline-delimited JSON events.
	ProtocolEvents
)

// String returns the protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolText:
		return "text"
	case ProtocolEvents:
		return "events"
	default:
		return "unknown"
	}
}

// Kind identifies what a [Unit] carries.
type Kind int

const (
	// KindLine is one line of plain text output.
	KindLine Kind = iota

	// KindToolUse is a structured tool invocation.
	KindToolUse

	// KindToolResult is the output of a tool execution.
	KindToolResult

	// KindAssistantText is narrative text from the model.
	KindAssistantText

	// KindResult is the final result of the session.
	KindResult

	// KindSystem is a session lifecycle event.
	KindSystem
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindToolUse:
		return "tool_use"
	case KindToolResult:
		return "tool_result"
	case KindAssistantText:
		return "assistant_text"
	case KindResult:
		return "result"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Unit is one decoded piece of agent output.
type Unit struct {
	Kind Kind

	// Text holds the line, assistant text, tool output or final result.
	Text string

	// ToolName and ToolInput are set for [KindToolUse].
	ToolName  string
	ToolInput map[string]any

	// Subtype is copied from system events (e.g. "init").
	Subtype string
}

// Final reports whether the unit's text belongs in the assembled final output.
func (u Unit) Final() bool {
	switch u.Kind {
	case KindLine, KindAssistantText, KindResult:
		return u.Text != ""
	default:
		return false
	}
}
