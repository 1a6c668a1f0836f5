package registry

import (
	"context"
	"testing"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/capability/mock"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
)

func newTestRegistry() (*Registry, *mock.Surface) {
	r := New()
	surface := mock.NewSurface()
	r.SetKeyboard(surface)
	r.SetPointer(surface)
	r.SetScreenCapture(surface)
	r.SetClipboard(surface)
	r.SetSystem(surface)
	r.SetFiles(surface)
	return r, surface
}

func TestExecute_UnknownAction(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Execute(context.Background(), "not_a_real_action", nil)
	if !protoerr.Is(err, protoerr.KindUnknownAction) {
		t.Fatalf("expected unknown_action, got %v", err)
	}
}

func TestExecute_MissingParameter(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Execute(context.Background(), "press_key", map[string]any{})
	if !protoerr.Is(err, protoerr.KindMissingParameter) {
		t.Fatalf("expected missing_parameter, got %v", err)
	}
}

func TestExecute_UnknownParameter(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Execute(context.Background(), "press_key", map[string]any{"key": "enter", "bogus": "x"})
	if !protoerr.Is(err, protoerr.KindUnknownParameter) {
		t.Fatalf("expected unknown_parameter, got %v", err)
	}
}

func TestExecute_DefaultsMergeSuppliedWins(t *testing.T) {
	r, surface := newTestRegistry()
	if _, err := r.Execute(context.Background(), "mouse_click", map[string]any{"button": "right"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	calls := surface.Calls()
	if len(calls) != 1 || calls[0].Method != "mouse_click" {
		t.Fatalf("expected one mouse_click call, got %v", calls)
	}
	if calls[0].Args["button"] != capability.Button("right") {
		t.Fatalf("expected supplied button to win over default, got %v", calls[0].Args)
	}
	if calls[0].Args["clicks"] != 1 {
		t.Fatalf("expected optional default clicks=1 to be merged in, got %v", calls[0].Args)
	}
}

func TestExecute_HandlerFailureWrapped(t *testing.T) {
	r, _ := newTestRegistry()
	r.SetKeyboard(nil)
	_, err := r.Execute(context.Background(), "press_key", map[string]any{"key": "enter"})
	if !protoerr.Is(err, protoerr.KindHandlerFailed) {
		t.Fatalf("expected handler_failed, got %v", err)
	}
}

func TestDescribe_CoversEveryRegisteredAction(t *testing.T) {
	r, _ := newTestRegistry()
	desc := r.Describe()
	for _, name := range r.List() {
		if _, ok := desc[name]; !ok {
			t.Fatalf("describe() missing entry for %q", name)
		}
	}
}

func TestLookup_SatisfiesActionCatalog(t *testing.T) {
	r, _ := newTestRegistry()
	spec, ok := r.Lookup("press_key")
	if !ok {
		t.Fatalf("expected press_key to be registered")
	}
	if len(spec.RequiredParams) != 1 || spec.RequiredParams[0] != "key" {
		t.Fatalf("unexpected spec: %+v", spec)
	}
}
