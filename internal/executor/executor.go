// Package executor runs a validated Program to completion: sequential
// action dispatch, wait_after_ms timing, pause/resume/stop control, macro
// expansion with per-invocation variable scope, visual-verification side
// effects written back into the execution context, and a safety floor
// (dangerous-keyword blocking, pointer-drift interrupt).
package executor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
	"github.com/pragnyanramtha/autopilot-go/internal/protocol"
	"github.com/pragnyanramtha/autopilot-go/internal/tasklog"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

// DefaultDangerousPatterns is checked, case-insensitively, as a substring
// match against every string parameter of every action before it runs.
var DefaultDangerousPatterns = []string{
	"delete", "remove", "format", "shutdown", "restart",
	"kill", "terminate", "rm ", "del ", "rmdir",
}

// DefaultDriftThresholdPx is how far the pointer may move between the start
// of a run and any later tick before execution is treated as user-interrupted.
const DefaultDriftThresholdPx = 50

// PointerPosition reports the current on-screen pointer location, used by
// the drift-interrupt safety check. Satisfied by capability.Pointer.
type PointerPosition interface {
	Position(ctx context.Context) (x, y int, err error)
}

// state is the executor's run state machine: idle -> running -> {paused <-> running} -> idle,
// or running -> stopping -> idle.
type state int

const (
	stateIdle state = iota
	stateRunning
	statePaused
	stateStopping
)

// Registry is the narrow action-execution surface the executor depends on.
type Registry interface {
	Execute(ctx context.Context, name string, params map[string]any) (any, error)
}

// Executor runs one Program at a time.
type Executor struct {
	registry          Registry
	pointer           PointerPosition
	dryRun            bool
	dangerousPatterns []string
	driftThresholdPx  int
	log               *tasklog.ProgramLog

	mu      sync.Mutex
	st      state
	program *types.Program
	ectx    *types.ExecutionContext
	errInfo *types.ErrorDetails
	origin  *point
}

type point struct{ x, y int }

// Option configures an Executor at construction.
type Option func(*Executor)

// WithDryRun simulates execution: handlers are never called, actions are
// only logged. Dangerous-action blocking still runs (and only logs) so a
// dry run can be used to preview what would be blocked.
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) { e.dryRun = dryRun }
}

// WithPointer supplies the capability used for pointer-drift detection.
// Without one, drift detection is skipped.
func WithPointer(p PointerPosition) Option {
	return func(e *Executor) { e.pointer = p }
}

// WithDangerousPatterns overrides the default keyword blocklist.
func WithDangerousPatterns(patterns []string) Option {
	return func(e *Executor) {
		if len(patterns) > 0 {
			e.dangerousPatterns = patterns
		}
	}
}

// WithDriftThreshold overrides DefaultDriftThresholdPx.
func WithDriftThreshold(px int) Option {
	return func(e *Executor) {
		if px > 0 {
			e.driftThresholdPx = px
		}
	}
}

// WithLog attaches a program log; every action, macro expansion, and
// control event is recorded to it. A nil log (the default) is a no-op,
// since every tasklog.ProgramLog method is nil-safe.
func WithLog(pl *tasklog.ProgramLog) Option {
	return func(e *Executor) { e.log = pl }
}

// SetLog swaps the attached program log. A long-lived Executor processes
// many programs in sequence (one at a time, per its busy check); callers
// that open a fresh tasklog.ProgramLog per program (e.g. the Actuator) use
// this to point logging at the current run before calling Run.
func (e *Executor) SetLog(pl *tasklog.ProgramLog) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = pl
}

// New builds an Executor dispatching registered actions through registry.
func New(registry Registry, opts ...Option) *Executor {
	e := &Executor{
		registry:          registry,
		dangerousPatterns: DefaultDangerousPatterns,
		driftThresholdPx:  DefaultDriftThresholdPx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes program sequentially to completion, or until stopped/errored.
// Only one Run may be in flight at a time; a second call while one is
// running returns a KindBusy error.
func (e *Executor) Run(ctx context.Context, program *types.Program) (types.ExecutionResult, error) {
	e.mu.Lock()
	if e.st != stateIdle {
		e.mu.Unlock()
		return types.ExecutionResult{}, protoerr.New(protoerr.KindBusy, "another program is already running")
	}
	e.st = stateRunning
	e.program = program
	e.ectx = types.NewExecutionContext(program.Metadata.Description)
	e.ectx.StartTime = time.Now()
	e.errInfo = nil
	e.origin = nil
	e.mu.Unlock()

	label := "Starting"
	if e.dryRun {
		label = "[DRY RUN] Starting"
	}
	log.Printf("[EXEC] %s program %q (%d actions)", label, program.Metadata.Description, len(program.Actions))

	start := time.Now()
	completed := 0
	var errMsg string
	var errKind protoerr.Kind
	var status types.ExecutionStatus

	for i, action := range program.Actions {
		e.mu.Lock()
		e.ectx.CurrentIndex = i
		e.mu.Unlock()

		if stop, err := e.checkStopAndPause(ctx); err != nil {
			return types.ExecutionResult{}, err
		} else if stop {
			errMsg = "execution stopped by user"
			errKind = protoerr.KindUserInterrupted
			break
		}

		if interrupted, err := e.checkDrift(ctx, i); err != nil {
			log.Printf("[EXEC] drift check error: %v", err)
		} else if interrupted {
			errMsg = "execution interrupted: user moved the pointer"
			errKind = protoerr.KindUserInterrupted
			e.setError(i, action.Action, protoerr.KindUserInterrupted, errMsg, action.Params)
			break
		}

		_, execErr := e.runOne(ctx, i, action)
		if execErr != nil {
			errMsg = fmt.Sprintf("action %d (%s) failed: %v", i+1, action.Action, execErr)
			kind := protoerr.KindHandlerFailed
			if pe, ok := execErr.(*protoerr.Error); ok {
				kind = pe.Kind()
			}
			errKind = kind
			e.setError(i, action.Action, kind, execErr.Error(), action.Params)
			e.appendResult(action.Action, nil, execErr.Error())
			break
		}

		// waitAfter already holds its countdown while paused, but it never
		// returns early on stop. This checkpoint is where a stop, or a pause
		// still pending (e.g. one requested while an action with no wait
		// ran), is observed once the action and its wait have returned;
		// without it, for the last action the loop has no further iteration
		// to catch either at the top.
		if stop, err := e.checkStopAndPause(ctx); err != nil {
			return types.ExecutionResult{}, err
		} else if stop {
			completed++
			errMsg = "execution stopped by user"
			errKind = protoerr.KindUserInterrupted
			break
		}
		completed++
	}

	switch {
	case errKind == protoerr.KindUserInterrupted || errKind == protoerr.KindBusy:
		status = types.StatusStopped
	case errMsg != "":
		status = types.StatusFailed
	case completed == len(program.Actions):
		status = types.StatusSuccess
	default:
		status = types.StatusFailed
		errMsg = "program incomplete"
	}

	e.mu.Lock()
	snapshot := e.ectx.Snapshot()
	errDetails := e.errInfo
	e.st = stateIdle
	e.program = nil
	e.ectx = nil
	e.errInfo = nil
	e.origin = nil
	e.mu.Unlock()

	result := types.ExecutionResult{
		ProgramID:        program.Metadata.Description,
		Status:           status,
		ActionsCompleted: completed,
		TotalActions:     len(program.Actions),
		DurationMs:       time.Since(start).Milliseconds(),
		Error:            errMsg,
		ErrorDetails:     errDetails,
		Context:          snapshot,
	}
	if status == types.StatusSuccess {
		log.Printf("[EXEC] program %q completed successfully", program.Metadata.Description)
	} else {
		log.Printf("[EXEC] program %q ended: status=%s error=%q", program.Metadata.Description, status, errMsg)
	}
	return result, nil
}

// runOne dispatches a single top-level action: substitute variables, check
// the safety floor, then either expand a macro or call the registry.
// Returns the action's raw result (a macro call returns []any).
func (e *Executor) runOne(ctx context.Context, index int, action types.Action) (any, error) {
	if ref, isMacro := types.ParseMacroRef(action.Params); isMacro && action.Action == "macro" {
		return e.runMacro(ctx, ref)
	}

	params, err := e.substitute(action.Params)
	if err != nil {
		return nil, err
	}
	if err := e.checkDangerous(action.Action, params); err != nil {
		return nil, err
	}

	log.Printf("[EXEC] [%d] %s %v", index+1, action.Action, params)
	e.log.ActionBegin(index, action.Action, fmt.Sprintf("%v", params))

	var result any
	if e.dryRun {
		log.Printf("[EXEC] [DRY RUN] would execute %s(%v)", action.Action, params)
	} else {
		result, err = e.registry.Execute(ctx, action.Action, params)
		if err != nil {
			e.log.ActionEnd(index, action.Action, "failed", err.Error())
			return nil, err
		}
		if isVerificationAction(action.Action) {
			if m, ok := result.(map[string]any); ok {
				e.applyVerification(params, m)
			}
		}
	}

	e.log.ActionEnd(index, action.Action, "ok", "")
	e.appendResult(action.Action, result, "")
	e.waitAfter(action.WaitAfterMs)
	return result, nil
}

func isVerificationAction(name string) bool {
	switch name {
	case "verify_screen", "verify_element", "find_element", "verify_text":
		return true
	}
	return false
}

// runMacro expands a macro call: each body action runs against a variable
// scope overlaying the invocation's vars on the run's shared context
// variables, so a macro can both read ambient context and receive its own
// arguments. Nested macro calls recurse. The whole invocation counts as one
// completed action in the run's progress accounting.
func (e *Executor) runMacro(ctx context.Context, ref types.MacroRef) ([]any, error) {
	e.mu.Lock()
	program := e.program
	e.mu.Unlock()
	if program == nil {
		return nil, protoerr.New(protoerr.KindUndefinedMacro, "no active program")
	}
	body, ok := program.Macros[ref.Name]
	if !ok {
		return nil, protoerr.New(protoerr.KindUndefinedMacro, "macro %q is not defined in this program", ref.Name)
	}

	log.Printf("[EXEC] executing macro %q vars=%v", ref.Name, ref.Vars)
	e.log.MacroBegin(ref.Name, len(body))
	defer e.log.MacroEnd(ref.Name)

	e.mu.Lock()
	scope := make(map[string]any, len(e.ectx.Variables)+len(ref.Vars))
	for k, v := range e.ectx.Variables {
		scope[k] = v
	}
	e.mu.Unlock()
	for k, v := range ref.Vars {
		scope[k] = v
	}

	results := make([]any, 0, len(body))
	for i, macroAction := range body {
		params, err := protocol.Substitute(macroAction.Params, scope)
		if err != nil {
			return results, err
		}
		substituted, ok := params.(map[string]any)
		if !ok {
			substituted = map[string]any{}
		}

		if nested, isMacro := types.ParseMacroRef(substituted); isMacro && macroAction.Action == "macro" {
			nestedResult, err := e.runMacro(ctx, nested)
			if err != nil {
				return results, err
			}
			results = append(results, nestedResult)
			continue
		}

		if err := e.checkDangerous(macroAction.Action, substituted); err != nil {
			return results, err
		}

		log.Printf("[EXEC]   [%d/%d] %s %v", i+1, len(body), macroAction.Action, substituted)

		var result any
		if e.dryRun {
			log.Printf("[EXEC]   [DRY RUN] would execute %s(%v)", macroAction.Action, substituted)
		} else {
			result, err = e.registry.Execute(ctx, macroAction.Action, substituted)
			if err != nil {
				return results, err
			}
			if isVerificationAction(macroAction.Action) {
				if m, ok := result.(map[string]any); ok {
					e.applyVerification(substituted, m)
				}
			}
		}
		results = append(results, result)
		e.waitAfter(macroAction.WaitAfterMs)
	}
	return results, nil
}

// substitute resolves {{identifier}} tokens in params against the run's
// shared context variables (set_variable/get_variable equivalent).
func (e *Executor) substitute(params map[string]any) (map[string]any, error) {
	e.mu.Lock()
	vars := e.ectx.Variables
	e.mu.Unlock()
	substituted, err := protocol.Substitute(params, vars)
	if err != nil {
		return nil, err
	}
	m, ok := substituted.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return m, nil
}

// applyVerification writes a verify_screen/verify_element/find_element/verify_text
// result back into context variables, so later actions can reference
// {{verified_x}}, {{verified_y}}, {{suggested_actions}}.
func (e *Executor) applyVerification(params map[string]any, result map[string]any) {
	safe, _ := result["safe_to_proceed"].(bool)
	confidence, _ := result["confidence"].(float64)
	analysis, _ := result["analysis"].(string)
	modelUsed, _ := result["model_used"].(string)
	context_, _ := params["context"].(string)
	expected, _ := params["expected"].(string)
	e.log.Verification(context_, expected, safe, confidence, modelUsed, 0, 0)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ectx == nil {
		return
	}

	if !safe {
		log.Printf("[EXEC] verification warning: not safe to proceed (confidence=%.2f) %s", confidence, analysis)
	}

	if coords, ok := result["updated_coordinates"].(map[string]any); ok {
		if x, ok := coords["x"]; ok {
			e.ectx.Variables["verified_x"] = x
		}
		if y, ok := coords["y"]; ok {
			e.ectx.Variables["verified_y"] = y
		}
	}
	if suggested, ok := result["suggested_actions"]; ok && suggested != nil {
		e.ectx.Variables["suggested_actions"] = suggested
	}
	e.ectx.Variables["last_verification_safe"] = safe
	e.ectx.Variables["last_verification_confidence"] = confidence
	e.ectx.Variables["last_verification_analysis"] = analysis
}

func (e *Executor) appendResult(action string, result any, errMsg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ectx == nil {
		return
	}
	e.ectx.ActionResults = append(e.ectx.ActionResults, types.ActionResult{
		Index:     e.ectx.CurrentIndex,
		Action:    action,
		Result:    result,
		Error:     errMsg,
		Timestamp: time.Now(),
	})
}

func (e *Executor) setError(index int, action string, kind protoerr.Kind, message string, params map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errInfo = &types.ErrorDetails{
		ActionIndex:  index,
		ActionName:   action,
		ErrorKind:    string(kind),
		ErrorMessage: message,
		Params:       params,
		Timestamp:    time.Now(),
	}
}

// waitAfter pauses for ms milliseconds after an action. Time spent paused
// does not count against the wait, so a pause mid-wait extends the
// action's total duration by however long it stays paused; a pending
// stop does not shorten it, since the safety floor requires stop() during
// wait_after_ms to terminate at the end of that wait, not before.
func (e *Executor) waitAfter(ms int) {
	if ms <= 0 {
		return
	}
	if e.dryRun {
		log.Printf("[EXEC] [DRY RUN] would wait %dms", ms)
		return
	}
	const tick = 20 * time.Millisecond
	remaining := time.Duration(ms) * time.Millisecond
	for remaining > 0 {
		e.mu.Lock()
		paused := e.st == statePaused
		e.mu.Unlock()
		if paused {
			time.Sleep(tick)
			continue
		}
		d := tick
		if remaining < d {
			d = remaining
		}
		time.Sleep(d)
		remaining -= d
	}
}

// checkDangerous blocks an action whose string parameters contain a
// dangerous keyword. Dry runs only log the block instead of returning it,
// so a preview run surfaces what real execution would refuse to do.
func (e *Executor) checkDangerous(action string, params map[string]any) error {
	for _, v := range params {
		s, ok := v.(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(s)
		for _, pattern := range e.dangerousPatterns {
			if strings.Contains(lower, pattern) {
				msg := fmt.Sprintf("dangerous action detected in %s: %q matches blocked pattern %q", action, s, pattern)
				if e.dryRun {
					log.Printf("[EXEC] [DRY RUN] would block: %s", msg)
					return nil
				}
				return protoerr.New(protoerr.KindDangerousActionBlocked, "%s", msg)
			}
		}
	}
	return nil
}

// checkDrift compares the pointer's current position against its position
// when the run started, interrupting execution if it moved further than
// the drift threshold — evidence a human grabbed the controls.
func (e *Executor) checkDrift(ctx context.Context, index int) (bool, error) {
	if e.pointer == nil {
		return false, nil
	}
	x, y, err := e.pointer.Position(ctx)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.origin == nil || index == 0 {
		e.origin = &point{x: x, y: y}
		return false, nil
	}
	dx := x - e.origin.x
	if dx < 0 {
		dx = -dx
	}
	dy := y - e.origin.y
	if dy < 0 {
		dy = -dy
	}
	return dx > e.driftThresholdPx || dy > e.driftThresholdPx, nil
}

// checkStopAndPause blocks while paused, and reports whether a stop was
// requested (either before or during the pause wait).
func (e *Executor) checkStopAndPause(ctx context.Context) (bool, error) {
	for {
		e.mu.Lock()
		st := e.st
		e.mu.Unlock()
		switch st {
		case stateStopping:
			return true, nil
		case statePaused:
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(100 * time.Millisecond):
				continue
			}
		default:
			return false, nil
		}
	}
}

// Pause requests a pause; the run loop stops advancing between actions
// until Resume or Stop is called. Returns false if no run is in progress.
func (e *Executor) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == stateRunning {
		e.st = statePaused
		log.Printf("[EXEC] paused")
		e.log.Control("pause")
		return true
	}
	return false
}

// Resume undoes a Pause. Returns false if not currently paused.
func (e *Executor) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == statePaused {
		e.st = stateRunning
		log.Printf("[EXEC] resumed")
		e.log.Control("resume")
		return true
	}
	return false
}

// Stop requests an emergency stop of the current run, unpausing it first
// if necessary so the run loop observes the stop promptly. Returns false
// if no run is in progress.
func (e *Executor) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == stateRunning || e.st == statePaused {
		e.st = stateStopping
		log.Printf("[EXEC] stop requested")
		e.log.Control("stop")
		return true
	}
	return false
}

// Status reports whether a run is in progress, and its progress if so.
type Status struct {
	IsRunning    bool
	IsPaused     bool
	DryRun       bool
	ProgramID    string
	CurrentIndex int
	TotalActions int
}

func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Status{
		IsRunning: e.st == stateRunning || e.st == statePaused || e.st == stateStopping,
		IsPaused:  e.st == statePaused,
		DryRun:    e.dryRun,
	}
	if e.program != nil {
		s.ProgramID = e.program.Metadata.Description
		s.TotalActions = len(e.program.Actions)
	}
	if e.ectx != nil {
		s.CurrentIndex = e.ectx.CurrentIndex
	}
	return s
}

// ContextSnapshot returns a copy of the in-flight execution context, or nil
// if no run is in progress.
func (e *Executor) ContextSnapshot() *types.ExecutionContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ectx == nil {
		return nil
	}
	snap := e.ectx.Snapshot()
	return &snap
}
