package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"agentflow/internal/classify"
	"agentflow/internal/status"
	"agentflow/internal/stream"
)

// Reporter receives the user-visible lines of an invocation. It must be safe
// for concurrent use: the reader and the monitor both report.
type Reporter interface {
	RoleStart(role status.Role, workDir, step string)
	RoleLine(role status.Role, cl classify.Classification)
	RoleNotice(role status.Role, text string)
	RoleWarning(role status.Role, text string)
}

// Supervisor implements [Executor] by spawning the configured agent CLI.
type Supervisor struct {
	settings Settings
	reporter Reporter
	logger   *slog.Logger
}

// NewSupervisor creates a [Supervisor]. A nil logger discards diagnostics.
func NewSupervisor(settings Settings, reporter Reporter, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Supervisor{settings: settings, reporter: reporter, logger: logger}
}

// Execute spawns one child for req and blocks until it exits.
//
// Exit contract: exit code 0 succeeds. A non-zero exit with output succeeds
// with [Result.Warning] set. A non-zero exit without output fails with
// [ErrChildProcess]. Idle timeout and loop detection fail with [ErrTimeout]
// and [ErrLoopDetected]. When ctx is cancelled the child is terminated, or
// never started if ctx was already done, and the returned error satisfies
// errors.Is(err, context.Canceled).
func (s *Supervisor) Execute(ctx context.Context, req Request) (res Result, err error) {
	ctx, span := s.startInvokeSpan(ctx, req)
	defer func() { s.endInvokeSpan(span, res, err) }()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, fmt.Errorf("%s interrupted: %w", req.Role, ctxErr)
	}

	argv := s.settings.Argv(req.Prompt)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = req.WorkDir
	setProcAttr(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return Result{}, invocationError(req.Role, "%w: output pipe: %v", ErrChildProcess, err)
	}
	defer pr.Close()
	cmd.Stdout = pw
	cmd.Stderr = pw

	s.reporter.RoleStart(req.Role, req.WorkDir, req.Step)
	started := time.Now()
	if err := cmd.Start(); err != nil {
		pw.Close()
		return Result{}, invocationError(req.Role, "%w: start %s: %v", ErrChildProcess, argv[0], err)
	}
	pw.Close()

	proc := &child{cmd: cmd, stdout: pr, grace: s.settings.KillGrace, exited: make(chan struct{}), logger: s.logger}
	w := newWatch(started)
	var output strings.Builder

	readerDone := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(readerDone)
		return s.consume(req.Role, pr, w, proc, &output)
	})
	g.Go(func() error {
		s.monitor(ctx, req.Role, w, proc, readerDone)
		return nil
	})
	readErr := g.Wait()
	if readErr != nil {
		proc.terminate()
	}

	waitErr := cmd.Wait()
	close(proc.exited)
	proc.reap()

	res = Result{
		Output:   strings.TrimSpace(output.String()),
		ExitCode: exitCode(waitErr),
		Duration: time.Since(started),
	}
	s.logger.Debug("agent invocation finished",
		"role", req.Role, "exit_code", res.ExitCode, "duration", res.Duration, "output_bytes", len(res.Output))

	switch w.result() {
	case verdictCanceled:
		return res, fmt.Errorf("%s interrupted: %w", req.Role, ctx.Err())
	case verdictTimeout:
		return res, invocationError(req.Role, "%w after %s without model output", ErrTimeout, s.settings.IdleTimeout)
	case verdictLoop:
		return res, invocationError(req.Role, "%w: repeating progress update sequence (window=%d, repeats=%d)",
			ErrLoopDetected, s.settings.LoopWindow, s.settings.LoopRepeats)
	}

	if readErr != nil {
		return res, invocationError(req.Role, "%w: read output: %v", ErrChildProcess, readErr)
	}
	if res.ExitCode != 0 {
		if res.Output == "" {
			return res, invocationError(req.Role, "%w: exit code %d", ErrChildProcess, res.ExitCode)
		}
		res.Warning = fmt.Sprintf("%s returned exit code %d but produced output; continuing", s.backendName(), res.ExitCode)
		s.reporter.RoleWarning(req.Role, res.Warning)
	}
	return res, nil
}

// consume reads and classifies the child's output until EOF. After a verdict
// is reached it keeps draining so the child never blocks on a full pipe.
func (s *Supervisor) consume(role status.Role, r io.Reader, w *watch, proc *child, out *strings.Builder) error {
	mode := classify.ModeProgress
	if s.settings.Debug {
		mode = classify.ModeDebug
	}
	dec := stream.NewDecoder(s.settings.Protocol(), r)
	cls := classify.New(mode)
	loop := NewLoopDetector(s.settings.LoopWindow, s.settings.LoopRepeats)

	var (
		scope      classify.Scope
		lastNote   string
		activeHint string
	)
	for {
		u, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
		now := time.Now()
		w.touch(now)
		if u.Final() {
			out.WriteString(classify.StripANSI(u.Text))
			out.WriteByte('\n')
		}
		if w.result() != verdictNone {
			continue
		}

		var results []classify.Classification
		results, scope = cls.Classify(u, scope)
		for _, cl := range results {
			switch cl.Activity {
			case classify.ActivityStart:
				w.start(cl.Hint, now)
			case classify.ActivityEnd:
				w.stop()
				activeHint = ""
			}
			if !cl.Visible() {
				continue
			}

			switch cl.Kind {
			case classify.KindNote:
				if cl.Text == lastNote {
					continue
				}
				lastNote = cl.Text
				s.reporter.RoleLine(role, cl)
				if loop.Record(cl.Text) && w.trip(verdictLoop) {
					s.reporter.RoleWarning(role, "loop detected: repeating progress updates; terminating role process")
					proc.terminate()
				}
			case classify.KindToolCall:
				if cl.Rule == "shell-invocation" && cl.Hint == activeHint {
					continue
				}
				activeHint = cl.Hint
				s.reporter.RoleLine(role, cl)
			default:
				s.reporter.RoleLine(role, cl)
			}
			if w.result() != verdictNone {
				break
			}
		}
	}
}

// monitor ticks until the reader finishes, emitting heartbeat notices and
// enforcing the idle timeout. Cancellation of ctx terminates the child.
func (s *Supervisor) monitor(ctx context.Context, role status.Role, w *watch, proc *child, done <-chan struct{}) {
	ticker := time.NewTicker(s.settings.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			if w.trip(verdictCanceled) {
				s.reporter.RoleWarning(role, "interrupted, stopping active process...")
				proc.terminate()
			}
			return
		case now := <-ticker.C:
			d := w.tick(now, s.settings.HeartbeatInterval, s.settings.IdleTimeout)
			secs := int(d.elapsed.Seconds())
			switch d.action {
			case tickTimeout:
				s.reporter.RoleWarning(role, fmt.Sprintf("timeout: no model output for %ds; terminating role process", secs))
				proc.terminate()
			case tickBusy:
				s.reporter.RoleNotice(role, fmt.Sprintf("working on %s (%ds)", d.hint, secs))
			case tickIdle:
				s.reporter.RoleNotice(role, fmt.Sprintf("waiting for model response (%s, %ds)", role.Activity(), secs))
			}
		}
	}
}

func (s *Supervisor) backendName() string {
	if len(s.settings.Command) > 0 {
		return s.settings.Command[0]
	}
	return s.settings.Backend
}

// child wraps a running process with graceful termination.
type child struct {
	cmd    *exec.Cmd
	stdout *os.File
	grace  time.Duration
	exited chan struct{}
	logger *slog.Logger

	once       sync.Once
	terminated bool
	mu         sync.Mutex
}

// terminate sends the terminate signal once and schedules a forced kill if
// the child has not exited within the grace period. If the output pipe is
// still open one grace period after the kill (a descendant escaped the
// process group), it is closed so the reader returns.
func (c *child) terminate() {
	c.once.Do(func() {
		c.mu.Lock()
		c.terminated = true
		c.mu.Unlock()

		if err := signalTerminate(c.cmd); err != nil {
			c.logger.Debug("terminate signal failed", "pid", c.cmd.Process.Pid, "error", err)
		}
		go func() {
			select {
			case <-c.exited:
				return
			case <-time.After(c.grace):
			}
			if err := forceKill(c.cmd); err != nil {
				c.logger.Debug("force kill failed", "pid", c.cmd.Process.Pid, "error", err)
			}
			select {
			case <-c.exited:
			case <-time.After(c.grace):
				c.stdout.Close()
			}
		}()
	})
}

// reap kills any descendants left in the process group after a terminated
// child has exited.
func (c *child) reap() {
	c.mu.Lock()
	terminated := c.terminated
	c.mu.Unlock()
	if terminated {
		_ = forceKill(c.cmd)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
