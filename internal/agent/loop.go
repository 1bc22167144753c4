package agent

// LoopDetector keeps the most recent progress notes in a bounded buffer and
// reports when the trailing blocks repeat.
type LoopDetector struct {
	window  int
	repeats int
	items   []string
}

// NewLoopDetector creates a detector that fires when the last repeats blocks
// of window notes are identical. A window <= 0 or repeats <= 1 disables it.
func NewLoopDetector(window, repeats int) *LoopDetector {
	capacity := window * repeats
	if capacity < 1 {
		capacity = 1
	}
	return &LoopDetector{window: window, repeats: repeats, items: make([]string, 0, capacity)}
}

// Record appends note and reports whether a repeating sequence is now present.
func (d *LoopDetector) Record(note string) bool {
	if note == "" {
		return false
	}
	if len(d.items) == cap(d.items) {
		copy(d.items, d.items[1:])
		d.items = d.items[:len(d.items)-1]
	}
	d.items = append(d.items, note)
	return HasRepeatingSequence(d.items, d.window, d.repeats)
}

// HasRepeatingSequence reports whether the last repeats blocks of length
// window in items are all equal.
func HasRepeatingSequence(items []string, window, repeats int) bool {
	if window <= 0 || repeats <= 1 {
		return false
	}
	if len(items) < window*repeats {
		return false
	}
	block := items[len(items)-window:]
	for i := 2; i <= repeats; i++ {
		end := len(items) - window*(i-1)
		prev := items[end-window : end]
		for j := range block {
			if prev[j] != block[j] {
				return false
			}
		}
	}
	return true
}
