// Package lifecycle drives plan steps through the role pipeline until every
// step is delivered, the run stalls, or the cycle budget runs out.
//
// The [Controller] runs one cycle per iteration: DEVELOPER, REVIEWER, TESTER
// and COMPLIANCE for the active plan checklist step, then the delivery gate.
// PLANNER and ARCHITECT run only when the checklist is empty or a role asks
// for a replan. After every role the controller writes the role's snapshot,
// appends decision-log entries and saves the workflow record, so an
// interrupted run resumes without skipping verification.
//
// Key concepts:
//   - Role routing comes from [router.Router]; gate statuses live in [router.Gate]
//   - Agents run through an [agent.Executor], one invocation at a time
//   - The compliance step always runs the sensitive-content [Scanner], whose
//     findings override the role's own verdict
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"agentflow/internal/agent"
	"agentflow/internal/config"
	"agentflow/internal/output"
	"agentflow/internal/policy"
	"agentflow/internal/router"
	"agentflow/internal/state"
	"agentflow/internal/status"
)

// triggerSystem is the handoff source for the bootstrap planning pass.
const triggerSystem status.Role = "SYSTEM"

const bootstrapReason = "No checklist steps found in plan.md. Create a practical step-by-step plan using markdown checkboxes (- [ ])."

// PromptBuilder renders the merged prompt for a role.
// [config.Config] implements this interface.
type PromptBuilder interface {
	GetPrompt(role status.Role, data config.PromptData, gov config.Governance) (string, error)
}

// Scanner scans the workspace for sensitive content.
// [policy.Scanner] implements this interface.
type Scanner interface {
	Scan(ctx context.Context, root string) ([]policy.Finding, error)
}

// Options holds the controller limits and gate toggles.
type Options struct {
	RunID string

	MaxCycles           int
	MaxStagnationCycles int

	// EnforceApply fails the tester unless the cycle output shows a
	// successful infrastructure apply.
	EnforceApply bool

	// StrictPolicy blocks delivery on compliance or safeguard failures.
	StrictPolicy bool
}

// Inputs are the project documents every prompt draws on.
type Inputs struct {
	Brief state.Brief

	ChangesPath   string
	ChangeRequest string

	// Agents and Policy hold the governance contract and policy pack text.
	Agents     string
	Policy     string
	AgentsFile string
	PolicyFile string
}

// Report summarizes a finished run.
type Report struct {
	RunID string

	// Result is one of state.ResultSuccess, state.ResultStalled or
	// state.ResultMaxCyclesReached.
	Result string
	Reason string

	Cycles    int
	Completed []string
	Duration  time.Duration
}

// Incomplete reports whether the run ended without delivering every step.
func (r Report) Incomplete() bool {
	return r.Result != state.ResultSuccess
}

// Controller runs the role pipeline over a workspace.
//
// Controller uses dependency injection for testability: [agent.Executor]
// runs roles, [PromptBuilder] renders prompts and [Scanner] backs the
// compliance gate. Use [NewController] to create one and [Controller.Run]
// to drive it.
type Controller struct {
	exec    agent.Executor
	ws      *state.Workspace
	prompts PromptBuilder
	opts    Options
	in      Inputs

	router  *router.Router
	scanner Scanner
	printer output.Printer
	logger  *slog.Logger
	now     func() time.Time
}

// NewController creates a Controller. The scanner defaults to
// [policy.NewScanner], the printer discards output and the logger discards
// diagnostics until set.
func NewController(exec agent.Executor, ws *state.Workspace, prompts PromptBuilder, opts Options, in Inputs) *Controller {
	return &Controller{
		exec:    exec,
		ws:      ws,
		prompts: prompts,
		opts:    opts,
		in:      in,
		router:  router.NewRouter(),
		scanner: policy.NewScanner(),
		printer: output.NewPrinterWithWriter(io.Discard),
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
}

// SetScanner replaces the sensitive-content scanner.
func (c *Controller) SetScanner(s Scanner) {
	c.scanner = s
}

// SetPrinter configures user-visible output.
func (c *Controller) SetPrinter(p output.Printer) {
	c.printer = p
}

// SetLogger configures diagnostic logging.
func (c *Controller) SetLogger(l *slog.Logger) {
	c.logger = l
}

// cycleEnd says how a cycle finished.
type cycleEnd int

const (
	// cycleRetry sends control back to DEVELOPER for the same step.
	cycleRetry cycleEnd = iota

	// cycleAdvanced moves to the next pending step.
	cycleAdvanced

	// cycleDelivered completed the last pending step.
	cycleDelivered
)

type cycleResult struct {
	end       cycleEnd
	applyOK   bool
	completed string
}

// Run drives the workflow to a terminal outcome.
//
// SUCCESS, STALLED and MAX_CYCLES_REACHED are reported through [Report]
// with a nil error. Agent failures (timeout, loop, child failure) and
// state I/O failures return an error after a FAILED decision entry. When ctx
// is cancelled Run stops after the active role and returns ctx's error.
func (c *Controller) Run(ctx context.Context) (rep Report, err error) {
	start := c.now()
	rep.RunID = c.opts.RunID
	cycle := 0
	defer func() {
		rep.Duration = c.now().Sub(start)
		if err != nil && ctx.Err() == nil {
			if logErr := c.ws.Decisions.LogWorkflowEnd(cycle, state.ResultFailed, err.Error()); logErr != nil {
				c.logger.Error("failed to record workflow end", "error", logErr)
			}
		}
	}()

	if err := c.ws.Ensure(c.in.Brief); err != nil {
		return rep, fmt.Errorf("failed to prepare workspace: %w", err)
	}

	progress, err := c.ws.Checklist.Progress()
	if err != nil {
		return rep, err
	}
	if progress.Empty() {
		c.printer.Gate("Initial planning bootstrap required.")
		if err := c.plan(ctx, 0, triggerSystem, bootstrapReason, ""); err != nil {
			return rep, err
		}
		if progress, err = c.ws.Checklist.Progress(); err != nil {
			return rep, err
		}
	}
	if err := c.ws.Decisions.LogPlanProgress(0, progress); err != nil {
		return rep, err
	}

	rec, err := c.ws.Record.Load()
	if err != nil {
		return rep, err
	}
	next := router.Resume(rec, progress.Next)
	if err := c.ws.Decisions.LogWorkflowStart(next); err != nil {
		return rep, err
	}
	c.printer.ResumeRole(next)

	gate := router.NewGate(c.opts.StrictPolicy)
	stalls := newStagnation(c.opts.MaxStagnationCycles)

	for cycle = 1; cycle <= c.opts.MaxCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Cycles = cycle
		c.printer.CycleStart(cycle, c.opts.MaxCycles)

		progress, err := c.ws.Checklist.Progress()
		if err != nil {
			return rep, err
		}
		if progress.Pending == 0 {
			c.printer.Text("No pending plan checklist steps. Workflow complete.")
			rep.Result, rep.Reason = state.ResultSuccess, "no_pending_plan_steps"
			return rep, c.ws.Decisions.LogWorkflowEnd(cycle, state.ResultSuccess, rep.Reason)
		}
		step := strings.TrimSpace(progress.Next)
		c.printer.StepActive(step)
		if err := c.ws.Decisions.LogStepActive(cycle, step); err != nil {
			return rep, err
		}

		res, err := c.runCycle(ctx, cycle, step, next, &gate)
		if err != nil {
			return rep, err
		}
		next = status.RoleDeveloper

		switch res.end {
		case cycleDelivered:
			rep.Completed = append(rep.Completed, res.completed)
			rep.Result = state.ResultSuccess
			return rep, nil
		case cycleAdvanced:
			rep.Completed = append(rep.Completed, res.completed)
			stalls.reset()
			continue
		}

		if stalls.record(signature{step: step, gate: gate, applyOK: res.applyOK}) {
			rep.Result, rep.Reason = state.ResultStalled, stalls.reason()
			c.printer.Gate(rep.Reason)
			return rep, c.ws.Decisions.LogWorkflowEnd(cycle, state.ResultStalled, rep.Reason)
		}
	}

	cycle = c.opts.MaxCycles
	rep.Result = state.ResultMaxCyclesReached
	return rep, c.ws.Decisions.LogWorkflowEnd(cycle, state.ResultMaxCyclesReached, "")
}

// runCycle runs the steady roles from start for step, then the delivery
// gate.
func (c *Controller) runCycle(ctx context.Context, cycle int, step string, start status.Role, gate *router.Gate) (cycleResult, error) {
	var res cycleResult

	roles, err := router.Remaining(start)
	if err != nil {
		return res, err
	}
	if start != status.RoleDeveloper {
		c.printer.Resume(start)
		gate.Assume(router.AssumedFor(start))
		if err := c.ws.Decisions.LogResume(cycle, router.Previous(start), start); err != nil {
			return res, err
		}
	}

	outputs := make(map[status.Role]string, len(roles))
	for _, role := range roles {
		if role == status.RoleDeveloper {
			gate.ResetPolicy()
		}

		text, err := c.invoke(ctx, role, c.promptData(cycle, step, ""))
		if err != nil {
			return res, err
		}
		outputs[role] = text
		out := status.Parse(role, text)
		if len(out.Missing) > 0 {
			c.logger.Debug("status marker missing, using default", "role", role, "markers", out.Missing)
		}

		applyFailed := false
		switch role {
		case status.RoleTester:
			if err := c.ws.Decisions.LogRole(cycle, role, out); err != nil {
				return res, err
			}
			if !out.Replan {
				res.applyOK = HasApplyEvidence(outputs[status.RoleDeveloper], outputs[status.RoleReviewer], text)
				if c.opts.EnforceApply && !res.applyOK {
					applyFailed = true
					out.Values[status.TestStatus.Name] = status.Fail
					text = strings.TrimSpace(text) + "\n\nApply Enforcement Gate: FAIL\n" + applyEnforcementMessage
					c.printer.Gate(applyEnforcementMessage)
					if err := c.ws.Decisions.LogGate(cycle, state.GateApplyEnforcement,
						state.Field{Key: "result", Value: "FAIL"},
						state.Field{Key: "handoff", Value: "TESTER->DEVELOPER"},
					); err != nil {
						return res, err
					}
				}
			}
		case status.RoleCompliance:
			if text, err = c.scanGate(ctx, cycle, text, &out); err != nil {
				return res, err
			}
			if err := c.ws.Decisions.LogRole(cycle, role, out); err != nil {
				return res, err
			}
		default:
			if err := c.ws.Decisions.LogRole(cycle, role, out); err != nil {
				return res, err
			}
		}

		gate.Apply(role, out)
		if snap, ok := c.ws.Snapshot(role); ok {
			if err := snap.Write(text); err != nil {
				return res, err
			}
		}

		tr, err := c.router.Next(role, out)
		if err != nil {
			return res, err
		}

		switch {
		case tr.Replan:
			reason := fmt.Sprintf("%s cycle %d requested high-level planning/architecture change.", title(role), cycle)
			c.printer.Gate(reason)
			if err := c.plan(ctx, cycle, role, reason, step); err != nil {
				return res, err
			}
			return res, c.save(cycle, step, status.RoleDeveloper, *gate)
		case tr.Gate:
			return c.deliver(cycle, step, gate, res)
		case tr.Next == status.RoleDeveloper:
			if role == status.RoleReviewer {
				c.printer.Text("Cycle %d gate -> dev=%s, review=%s, tester=SKIPPED (review not approved)", cycle, gate.Dev, gate.Review)
			}
			if !applyFailed {
				if err := c.ws.Decisions.LogHandoff(cycle, role, status.RoleDeveloper, tr.Reason); err != nil {
					return res, err
				}
			}
			return res, c.save(cycle, step, status.RoleDeveloper, *gate)
		}

		if err := c.ws.Decisions.LogHandoff(cycle, role, tr.Next, ""); err != nil {
			return res, err
		}
		if err := c.save(cycle, step, tr.Next, *gate); err != nil {
			return res, err
		}
	}
	return res, nil
}

// scanGate runs the sensitive-content scan after the compliance role. Any
// finding, or a scan that cannot complete, fails compliance and safeguards.
func (c *Controller) scanGate(ctx context.Context, cycle int, text string, out *status.Outcome) (string, error) {
	findings, err := c.scanner.Scan(ctx, c.ws.Dir)
	if err != nil && ctx.Err() != nil {
		return text, ctx.Err()
	}

	var evidence string
	fields := []state.Field{{Key: "result", Value: "FAIL"}}
	switch {
	case err != nil:
		c.logger.Warn("sensitive scan failed", "error", err)
		evidence = "Sensitive-content scan failed: " + err.Error()
		fields = append(fields, state.Field{Key: "error", Value: err.Error()})
	case len(findings) > 0:
		evidence = policy.Evidence(findings)
		fields = append(fields, state.Field{Key: "findings", Value: strconv.Itoa(len(findings))})
		c.printer.Findings(findings)
	default:
		return text, nil
	}

	out.Values[status.ComplianceStatus.Name] = status.Violations
	out.Values[status.SafeguardStatus.Name] = status.Fail
	if err := c.ws.Decisions.LogGate(cycle, state.GateSensitiveScan, fields...); err != nil {
		return text, err
	}
	return strings.TrimSpace(text) + "\n\n" + evidence, nil
}

// deliver applies the delivery gate at the end of a full cycle.
func (c *Controller) deliver(cycle int, step string, gate *router.Gate, res cycleResult) (cycleResult, error) {
	done := gate.Passed()
	c.printer.CycleGate(cycle, gate.String(), res.applyOK)

	handoff := "COMPLIANCE->DEVELOPER"
	if done {
		handoff = "COMPLETE"
	}
	if err := c.ws.Decisions.LogGate(cycle, state.GateDelivery,
		state.Field{Key: "done", Value: boolUpper(done)},
		state.Field{Key: "policy_gate_ok", Value: boolUpper(gate.PolicyOK())},
		state.Field{Key: "apply_ok", Value: boolUpper(res.applyOK)},
		state.Field{Key: "handoff", Value: handoff},
	); err != nil {
		return res, err
	}

	if !done {
		res.end = cycleRetry
		return res, c.save(cycle, step, status.RoleDeveloper, *gate)
	}

	completed, err := c.ws.Checklist.MarkNextDone()
	if err != nil {
		return res, err
	}
	if completed != "" {
		res.completed = completed
		c.printer.StepCompleted(completed)
		if err := c.ws.Decisions.LogStepCompleted(cycle, completed); err != nil {
			return res, err
		}
	}

	progress, err := c.ws.Checklist.Progress()
	if err != nil {
		return res, err
	}
	if err := c.ws.Decisions.LogPlanProgress(cycle, progress); err != nil {
		return res, err
	}

	if progress.Pending == 0 {
		res.end = cycleDelivered
		if err := c.ws.Decisions.LogWorkflowEnd(cycle, state.ResultSuccess, ""); err != nil {
			return res, err
		}
		return res, c.save(cycle, "", status.RoleComplete, *gate)
	}

	res.end = cycleAdvanced
	c.printer.StepValidated()
	if err := c.ws.Decisions.LogHandoff(cycle, status.RoleTester, status.RoleDeveloper, "next_plan_step"); err != nil {
		return res, err
	}
	return res, c.save(cycle, strings.TrimSpace(progress.Next), status.RoleDeveloper, *gate)
}

// plan runs the planner and architect detour.
func (c *Controller) plan(ctx context.Context, cycle int, trigger status.Role, reason, step string) error {
	if err := c.ws.Decisions.LogHandoff(cycle, trigger, status.RolePlanner, reason); err != nil {
		return err
	}

	detour := []struct {
		role status.Role
		next status.Role
	}{
		{status.RolePlanner, status.RoleArchitect},
		{status.RoleArchitect, status.RoleDeveloper},
	}
	for _, d := range detour {
		text, err := c.invoke(ctx, d.role, c.promptData(cycle, step, reason))
		if err != nil {
			return err
		}
		out := status.Parse(d.role, text)
		out.Replan = false
		if err := c.ws.Decisions.LogRole(cycle, d.role, out,
			state.Field{Key: "handoff", Value: string(d.role) + "->" + string(d.next)},
		); err != nil {
			return err
		}
	}
	return nil
}

// invoke renders the role prompt and runs one agent invocation.
func (c *Controller) invoke(ctx context.Context, role status.Role, data config.PromptData) (string, error) {
	gov := config.Governance{
		RolePreferences: c.in.Brief.RolePreferences,
		Agents:          c.in.Agents,
		Policy:          c.in.Policy,
	}
	prompt, err := c.prompts.GetPrompt(role, data, gov)
	if err != nil {
		return "", err
	}

	c.logger.Debug("invoking role", "role", role, "cycle", data.Cycle, "step", data.Step)
	res, err := c.exec.Execute(ctx, agent.Request{
		Role:    role,
		Prompt:  prompt,
		WorkDir: c.ws.Dir,
		Step:    data.Step,
	})
	if err != nil {
		var invErr *agent.InvocationError
		if errors.As(err, &invErr) || ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%s: %w", role, err)
	}
	c.logger.Debug("role finished", "role", role, "exit_code", res.ExitCode, "duration", res.Duration)
	return res.Output, nil
}

func (c *Controller) promptData(cycle int, step, reason string) config.PromptData {
	return config.PromptData{
		Cycle:         cycle,
		Step:          step,
		WorkDir:       c.ws.Dir,
		Idea:          c.in.Brief.Idea,
		Guidelines:    c.in.Brief.Guidelines,
		ChangesPath:   c.in.ChangesPath,
		ChangeRequest: c.in.ChangeRequest,
		Reason:        reason,
		EnforceApply:  c.opts.EnforceApply,
		PolicyFile:    c.in.PolicyFile,
		AgentsFile:    c.in.AgentsFile,
		Files:         c.ws.Files,
	}
}

// save persists the resume record.
func (c *Controller) save(cycle int, step string, next status.Role, g router.Gate) error {
	return c.ws.Record.Save(state.WorkflowState{
		RunID:            c.opts.RunID,
		Cycle:            cycle,
		CurrentStep:      step,
		NextRole:         next,
		DevStatus:        g.Dev,
		ReviewStatus:     g.Review,
		TestStatus:       g.Test,
		ComplianceStatus: g.Compliance,
		SafeguardStatus:  g.Safeguard,
	})
}

// title renders DEVELOPER as "Developer".
func title(r status.Role) string {
	s := r.Lower()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func boolUpper(b bool) string {
	return strings.ToUpper(strconv.FormatBool(b))
}
