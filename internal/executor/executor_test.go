package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
	"github.com/pragnyanramtha/autopilot-go/internal/tasklog"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

type call struct {
	name   string
	params map[string]any
}

type fakeRegistry struct {
	calls   []call
	fail    map[string]error
	results map[string]any
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{fail: map[string]error{}, results: map[string]any{}}
}

func (f *fakeRegistry) Execute(ctx context.Context, name string, params map[string]any) (any, error) {
	f.calls = append(f.calls, call{name: name, params: params})
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	return f.results[name], nil
}

func program(actions ...types.Action) *types.Program {
	return &types.Program{
		Version:  "1.0",
		Metadata: types.Metadata{Description: "test program"},
		Actions:  actions,
	}
}

func TestRun_SequentialSuccess(t *testing.T) {
	reg := newFakeRegistry()
	e := New(reg)
	p := program(
		types.Action{Action: "press_key", Params: map[string]any{"key": "enter"}},
		types.Action{Action: "press_key", Params: map[string]any{"key": "tab"}},
	)
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Error)
	}
	if result.ActionsCompleted != 2 {
		t.Fatalf("expected 2 actions completed, got %d", result.ActionsCompleted)
	}
	if len(reg.calls) != 2 {
		t.Fatalf("expected 2 registry calls, got %d", len(reg.calls))
	}
}

func TestRun_StopsOnHandlerFailure(t *testing.T) {
	reg := newFakeRegistry()
	reg.fail["boom"] = protoerr.New(protoerr.KindHandlerFailed, "exploded")
	e := New(reg)
	p := program(
		types.Action{Action: "boom"},
		types.Action{Action: "press_key", Params: map[string]any{"key": "enter"}},
	)
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if result.ActionsCompleted != 0 {
		t.Fatalf("expected 0 completed, got %d", result.ActionsCompleted)
	}
	if result.ErrorDetails == nil || result.ErrorDetails.ErrorKind != string(protoerr.KindHandlerFailed) {
		t.Fatalf("expected handler_failed error details, got %+v", result.ErrorDetails)
	}
	if len(reg.calls) != 1 {
		t.Fatalf("expected execution to stop after the failing action, got %d calls", len(reg.calls))
	}
}

func TestRun_BusyWhenAlreadyRunning(t *testing.T) {
	reg := newFakeRegistry()
	e := New(reg)
	e.mu.Lock()
	e.st = stateRunning
	e.mu.Unlock()

	_, err := e.Run(context.Background(), program(types.Action{Action: "press_key", Params: map[string]any{"key": "enter"}}))
	if !protoerr.Is(err, protoerr.KindBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}
}

func TestRun_DangerousActionBlocked(t *testing.T) {
	reg := newFakeRegistry()
	e := New(reg)
	p := program(types.Action{Action: "type", Params: map[string]any{"text": "please delete everything"}})
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if result.ErrorDetails == nil || result.ErrorDetails.ErrorKind != string(protoerr.KindDangerousActionBlocked) {
		t.Fatalf("expected dangerous_action_blocked, got %+v", result.ErrorDetails)
	}
	if len(reg.calls) != 0 {
		t.Fatalf("expected the dangerous action to never reach the registry")
	}
}

func TestRun_DryRunNeverCallsRegistry(t *testing.T) {
	reg := newFakeRegistry()
	e := New(reg, WithDryRun(true))
	p := program(types.Action{Action: "shutdown_system"})
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusSuccess {
		t.Fatalf("expected dry run to report success, got %s (%s)", result.Status, result.Error)
	}
	if len(reg.calls) != 0 {
		t.Fatalf("expected dry run to never call the registry, got %d calls", len(reg.calls))
	}
}

func TestRun_MacroExpansionCountsAsOneAction(t *testing.T) {
	reg := newFakeRegistry()
	e := New(reg)
	p := &types.Program{
		Version:  "1.0",
		Metadata: types.Metadata{Description: "macro test"},
		Macros: map[string][]types.Action{
			"click_and_type": {
				{Action: "mouse_click", Params: map[string]any{"x": "{{x}}", "y": "{{y}}"}},
				{Action: "type", Params: map[string]any{"text": "{{text}}"}},
			},
		},
		Actions: []types.Action{
			{Action: "macro", Params: map[string]any{
				"name": "click_and_type",
				"vars": map[string]any{"x": 10, "y": 20, "text": "hello"},
			}},
		},
	}
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Error)
	}
	if result.ActionsCompleted != 1 {
		t.Fatalf("expected macro invocation to count as 1 action, got %d", result.ActionsCompleted)
	}
	if len(reg.calls) != 2 {
		t.Fatalf("expected 2 underlying registry calls from macro body, got %d", len(reg.calls))
	}
	if reg.calls[0].params["x"] != 10 || reg.calls[0].params["y"] != 20 {
		t.Fatalf("expected macro vars substituted into body params, got %+v", reg.calls[0].params)
	}
	if reg.calls[1].params["text"] != "hello" {
		t.Fatalf("expected macro text var substituted, got %+v", reg.calls[1].params)
	}
}

// TestRun_MacroBodyResolvesAmbientContextVariable ensures a macro body can
// reference a variable set by an earlier top-level action (e.g.
// verify_screen's {{verified_x}}) in addition to its own invocation vars,
// rather than failing with missing_variable.
func TestRun_MacroBodyResolvesAmbientContextVariable(t *testing.T) {
	reg := newFakeRegistry()
	reg.results["verify_screen"] = map[string]any{
		"safe_to_proceed":     true,
		"confidence":          0.9,
		"updated_coordinates": map[string]any{"x": 42, "y": 84},
	}
	p := &types.Program{
		Version:  "1.0",
		Metadata: types.Metadata{Description: "macro ambient vars"},
		Macros: map[string][]types.Action{
			"click_verified": {
				{Action: "mouse_click", Params: map[string]any{"x": "{{verified_x}}", "y": "{{verified_y}}", "label": "{{label}}"}},
			},
		},
		Actions: []types.Action{
			{Action: "verify_screen", Params: map[string]any{"context": "c", "expected": "e"}},
			{Action: "macro", Params: map[string]any{
				"name": "click_verified",
				"vars": map[string]any{"label": "target"},
			}},
		},
	}
	e := New(reg)
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Error)
	}
	click := reg.calls[1]
	if click.params["x"] != 42 || click.params["y"] != 84 {
		t.Fatalf("expected macro body to resolve ambient context vars, got %+v", click.params)
	}
	if click.params["label"] != "target" {
		t.Fatalf("expected macro body to resolve its own invocation var, got %+v", click.params)
	}
}

func TestRun_VerificationResultUpdatesContextVariables(t *testing.T) {
	reg := newFakeRegistry()
	reg.results["verify_screen"] = map[string]any{
		"safe_to_proceed":     true,
		"confidence":          0.9,
		"analysis":            "looks good",
		"updated_coordinates": map[string]any{"x": 42, "y": 84},
		"suggested_actions":   []string{},
	}
	e := New(reg)
	p := program(
		types.Action{Action: "verify_screen", Params: map[string]any{"context": "c", "expected": "e"}},
		types.Action{Action: "mouse_click", Params: map[string]any{"x": "{{verified_x}}", "y": "{{verified_y}}"}},
	)
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Error)
	}
	if reg.calls[1].params["x"] != 42 || reg.calls[1].params["y"] != 84 {
		t.Fatalf("expected verified coordinates substituted into next action, got %+v", reg.calls[1].params)
	}
}

func TestRun_MissingVariableFailsWithDetails(t *testing.T) {
	reg := newFakeRegistry()
	e := New(reg)
	p := program(types.Action{Action: "mouse_click", Params: map[string]any{"x": "{{verified_x}}", "y": 10}})
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if result.ErrorDetails == nil || result.ErrorDetails.ErrorKind != string(protoerr.KindMissingVariable) {
		t.Fatalf("expected missing_variable, got %+v", result.ErrorDetails)
	}
}

func TestPauseResumeStop_ReflectRunState(t *testing.T) {
	e := New(newFakeRegistry())
	if e.Pause() {
		t.Fatalf("expected pause to fail when not running")
	}
	e.mu.Lock()
	e.st = stateRunning
	e.mu.Unlock()
	if !e.Pause() {
		t.Fatalf("expected pause to succeed while running")
	}
	if !e.Status().IsPaused {
		t.Fatalf("expected status to report paused")
	}
	if !e.Resume() {
		t.Fatalf("expected resume to succeed while paused")
	}
	if !e.Stop() {
		t.Fatalf("expected stop to succeed while running")
	}
}

// fakePointer returns the origin on its first call (anchoring the drift
// check) and a far-away position on every call after, deterministically
// simulating a pointer that moved once execution got underway.
type fakePointer struct{ calls int }

func (p *fakePointer) Position(ctx context.Context) (int, int, error) {
	p.calls++
	if p.calls == 1 {
		return 0, 0, nil
	}
	return 500, 500, nil
}

func TestRun_PointerDriftInterrupts(t *testing.T) {
	reg := newFakeRegistry()
	ptr := &fakePointer{}
	e := New(reg, WithPointer(ptr))
	p := program(
		types.Action{Action: "press_key", Params: map[string]any{"key": "enter"}},
		types.Action{Action: "press_key", Params: map[string]any{"key": "tab"}},
	)
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusStopped {
		t.Fatalf("expected stopped due to interrupt, got %s", result.Status)
	}
}

// TestRun_PauseDuringWaitExtendsDuration is seed-test Scenario F: a pause
// landing during the final (and only) action's wait_after_ms must still be
// honored, extending total duration by however long the pause lasts rather
// than being silently skipped once the loop has no further iteration to
// check at the top.
func TestRun_PauseDuringWaitExtendsDuration(t *testing.T) {
	e := New(newFakeRegistry())
	p := program(types.Action{Action: "press_key", Params: map[string]any{"key": "enter"}, WaitAfterMs: 300})

	go func() {
		time.Sleep(50 * time.Millisecond)
		e.Pause()
		time.Sleep(100 * time.Millisecond)
		e.Resume()
	}()

	start := time.Now()
	result, err := e.Run(context.Background(), p)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Error)
	}
	if result.ActionsCompleted != 1 {
		t.Fatalf("expected 1 completed action, got %d", result.ActionsCompleted)
	}
	if elapsed < 380*time.Millisecond {
		t.Fatalf("expected the pause to extend the wait past ~400ms, got %s", elapsed)
	}
}

func TestRun_RecordsActionEventsToProgramLog(t *testing.T) {
	dir := t.TempDir()
	reg := tasklog.NewRegistry(filepath.Join(dir, "programs"))
	pl := reg.Open("logged-run", "logged run")

	e := New(newFakeRegistry(), WithLog(pl))
	p := program(types.Action{Action: "press_key", Params: map[string]any{"key": "enter"}})
	result, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	reg.Close("logged-run", string(result.Status), result.ActionsCompleted, result.TotalActions, result.Error)

	data, err := os.ReadFile(filepath.Join(dir, "programs", "logged-run.jsonl"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"action_begin"`) {
		t.Fatalf("expected an action_begin event in the log, got: %s", data)
	}
	if !strings.Contains(string(data), `"kind":"action_end"`) {
		t.Fatalf("expected an action_end event in the log, got: %s", data)
	}
}
