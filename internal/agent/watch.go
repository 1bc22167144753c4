package agent

import (
	"sync"
	"time"
)

type verdict int

const (
	verdictNone verdict = iota
	verdictTimeout
	verdictLoop
	verdictCanceled
)

type tickAction int

const (
	tickNone tickAction = iota
	tickBusy
	tickIdle
	tickTimeout
)

type tickDecision struct {
	action  tickAction
	hint    string
	elapsed time.Duration
}

// watch is the state shared by the reader and the heartbeat monitor. The
// reader records output and activity; the monitor reads it and decides.
// Every field is guarded by mu.
type watch struct {
	mu sync.Mutex

	lastOutput time.Time
	lastNotice time.Time
	busy       bool
	busySince  time.Time
	hint       string
	verdict    verdict
}

func newWatch(now time.Time) *watch {
	return &watch{lastOutput: now}
}

// touch records that output arrived.
func (w *watch) touch(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastOutput = now
	w.lastNotice = time.Time{}
}

// start marks a tool or command as in flight.
func (w *watch) start(hint string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = true
	w.busySince = now
	w.hint = hint
}

// stop clears the in-flight tool or command.
func (w *watch) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	w.busySince = time.Time{}
	w.hint = ""
}

// trip records a verdict. Only the first verdict sticks; trip reports whether
// this call set it.
func (w *watch) trip(v verdict) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.verdict != verdictNone {
		return false
	}
	w.verdict = v
	return true
}

func (w *watch) result() verdict {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.verdict
}

// tick decides what the monitor does at now. Idle time counts from the later
// of the last output and the start of the in-flight command, so a silent
// command is bounded by the idle timeout too.
func (w *watch) tick(now time.Time, interval, idleTimeout time.Duration) tickDecision {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.verdict != verdictNone {
		return tickDecision{}
	}

	last := w.lastOutput
	if w.busySince.After(last) {
		last = w.busySince
	}
	idle := now.Sub(last)

	if idleTimeout > 0 && idle >= idleTimeout {
		w.verdict = verdictTimeout
		return tickDecision{action: tickTimeout, elapsed: idle}
	}

	if w.busy {
		return tickDecision{action: tickBusy, hint: w.hint, elapsed: now.Sub(w.busySince)}
	}

	if idle >= interval && now.Sub(w.lastNotice) >= interval {
		w.lastNotice = now
		return tickDecision{action: tickIdle, elapsed: idle}
	}
	return tickDecision{}
}
