package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// DefaultBufferSize is the maximum size in bytes of a single JSON event line.
const DefaultBufferSize = 10 * 1024 * 1024

// Decoder yields units from an agent's output stream.
//
// Next returns [io.EOF] once the stream is exhausted.
type Decoder interface {
	Next() (Unit, error)
}

// NewDecoder returns the decoder for protocol p reading from r.
func NewDecoder(p Protocol, r io.Reader) Decoder {
	if p == ProtocolEvents {
		return NewEventDecoder(r, DefaultBufferSize)
	}
	return NewTextDecoder(r)
}

// TextDecoder decodes [ProtocolText] output line by line.
type TextDecoder struct {
	r *bufio.Reader
}

// NewTextDecoder creates a [TextDecoder] reading from r.
func NewTextDecoder(r io.Reader) *TextDecoder {
	return &TextDecoder{r: bufio.NewReader(r)}
}

// Next returns the next line without its trailing newline.
func (d *TextDecoder) Next() (Unit, error) {
	line, err := d.r.ReadString('\n')
	if line != "" {
		return Unit{Kind: KindLine, Text: strings.TrimRight(line, "\r\n")}, nil
	}
	return Unit{}, err
}

// EventDecoder decodes [ProtocolEvents] output.
//
// A single assistant event may hold several content blocks; each becomes its
// own unit. Lines that are not JSON events (stderr chatter, banners) are
// surfaced as [KindLine] units rather than dropped.
type EventDecoder struct {
	scanner *bufio.Scanner
	pending []Unit
}

// NewEventDecoder creates an [EventDecoder]. bufSize bounds the length of one
// line; values <= 0 select [DefaultBufferSize].
func NewEventDecoder(r io.Reader, bufSize int) *EventDecoder {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, bufSize)), bufSize)
	return &EventDecoder{scanner: scanner}
}

// Next returns the next unit.
func (d *EventDecoder) Next() (Unit, error) {
	for len(d.pending) == 0 {
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return Unit{}, err
			}
			return Unit{}, io.EOF
		}
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		d.pending = DecodeEvent(line)
	}
	u := d.pending[0]
	d.pending = d.pending[1:]
	return u, nil
}

// DecodeEvent converts one output line into units. Lines that do not parse as
// an event yield a single [KindLine] unit.
func DecodeEvent(line string) []Unit {
	var ev StreamEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Type == "" {
		return []Unit{{Kind: KindLine, Text: line}}
	}

	switch ev.Type {
	case EventTypeAssistant:
		if ev.Message == nil {
			return nil
		}
		var units []Unit
		for _, block := range ev.Message.Content {
			switch block.Type {
			case "text":
				if block.Text != "" {
					units = append(units, Unit{Kind: KindAssistantText, Text: block.Text})
				}
			case "tool_use":
				units = append(units, Unit{Kind: KindToolUse, ToolName: block.Name, ToolInput: block.Input})
			}
		}
		return units

	case EventTypeUser:
		if ev.ToolUseResult == nil {
			return nil
		}
		text := ev.ToolUseResult.Stdout
		if ev.ToolUseResult.Stderr != "" {
			text = strings.TrimLeft(text+"\n"+ev.ToolUseResult.Stderr, "\n")
		}
		return []Unit{{Kind: KindToolResult, Text: text}}

	case EventTypeResult:
		return []Unit{{Kind: KindResult, Text: ev.Result}}

	case EventTypeSystem:
		return []Unit{{Kind: KindSystem, Subtype: ev.Subtype}}
	}
	return nil
}

// ReadAll drains d and returns every unit. It is a convenience for tests and
// offline inspection of captured output.
func ReadAll(d Decoder) ([]Unit, error) {
	var units []Unit
	for {
		u, err := d.Next()
		if errors.Is(err, io.EOF) {
			return units, nil
		}
		if err != nil {
			return units, err
		}
		units = append(units, u)
	}
}
