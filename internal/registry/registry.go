// Package registry is the central catalogue of callable actions: each
// registered name carries a handler, a parameter contract, a category, and
// machine-readable docs. It is the only public contract between the
// planning prompt and the action surface the Executor drives.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
	"github.com/pragnyanramtha/autopilot-go/internal/protocol"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

// Category groups actions for documentation and the describe() output.
type Category string

const (
	CategoryKeyboard  Category = "keyboard"
	CategoryMouse     Category = "mouse"
	CategoryWindow    Category = "window"
	CategoryBrowser   Category = "browser"
	CategoryClipboard Category = "clipboard"
	CategoryFile      Category = "file"
	CategoryScreen    Category = "screen"
	CategoryTiming    Category = "timing"
	CategoryVision    Category = "vision"
	CategorySystem    Category = "system"
	CategoryEdit      Category = "edit"
)

// Handler is the callable behind one registered action.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// ActionHandler is one catalogue entry.
type ActionHandler struct {
	Name           string
	Category       Category
	Description    string
	Handler        Handler
	RequiredParams []string
	OptionalParams map[string]any
	Returns        map[string]string
	Examples       []string
}

// VerifierPort is the narrow surface the vision handlers call through.
// Implemented by internal/verifier.Verifier.
type VerifierPort interface {
	Verify(ctx context.Context, req types.VerifyRequest) (types.VerificationResult, error)
}

// MacroExecutorPort is the back-pointer injection spec.md's design notes
// call for: a handle to the executor driving the current run, for handlers
// that need to know they're inside a macro invocation. No shipped handler
// currently needs it; it exists so a future handler can be wired without
// changing the DI shape.
type MacroExecutorPort interface {
	CurrentProgramID() string
}

// Registry holds the catalogue plus the injected capability handles every
// handler closure reads at call time. Handlers never read globals.
type Registry struct {
	handlers map[string]*ActionHandler

	keyboard capability.Keyboard
	pointer  capability.Pointer
	screen   capability.ScreenCapture
	clipboard capability.Clipboard
	system   capability.System
	files    capability.Files
	verifier VerifierPort
	macroExec MacroExecutorPort
}

// New returns a Registry with every concrete action family registered.
// Capabilities must be injected via the Set* methods before Execute is
// called on an action that needs them.
func New() *Registry {
	r := &Registry{handlers: map[string]*ActionHandler{}}
	r.registerKeyboard()
	r.registerMouse()
	r.registerWindow()
	r.registerBrowser()
	r.registerClipboard()
	r.registerFile()
	r.registerScreen()
	r.registerTiming()
	r.registerVision()
	r.registerSystem()
	r.registerEdit()
	return r
}

func (r *Registry) register(h ActionHandler) {
	if h.OptionalParams == nil {
		h.OptionalParams = map[string]any{}
	}
	cp := h
	r.handlers[h.Name] = &cp
}

// SetKeyboard injects the Keyboard capability.
func (r *Registry) SetKeyboard(k capability.Keyboard) { r.keyboard = k }

// SetPointer injects the Pointer capability.
func (r *Registry) SetPointer(p capability.Pointer) { r.pointer = p }

// SetScreenCapture injects the ScreenCapture capability.
func (r *Registry) SetScreenCapture(s capability.ScreenCapture) { r.screen = s }

// SetClipboard injects the Clipboard capability.
func (r *Registry) SetClipboard(c capability.Clipboard) { r.clipboard = c }

// SetSystem injects the System capability.
func (r *Registry) SetSystem(s capability.System) { r.system = s }

// SetFiles injects the Files capability.
func (r *Registry) SetFiles(f capability.Files) { r.files = f }

// SetVerifier injects the Visual Verifier.
func (r *Registry) SetVerifier(v VerifierPort) { r.verifier = v }

// SetMacroExecutor injects the macro-executor back-pointer.
func (r *Registry) SetMacroExecutor(m MacroExecutorPort) { r.macroExec = m }

// Lookup satisfies protocol.ActionCatalog so the parser's semantic pass can
// check parameter contracts without depending on the registry package's
// full surface.
func (r *Registry) Lookup(name string) (protocol.ActionSpec, bool) {
	h, ok := r.handlers[name]
	if !ok {
		return protocol.ActionSpec{}, false
	}
	return protocol.ActionSpec{
		Name:           h.Name,
		RequiredParams: h.RequiredParams,
		OptionalParams: h.OptionalParams,
	}, true
}

// Execute runs the named action: unknown_action if no handler is
// registered, missing_parameter for any absent required param,
// unknown_parameter for any param that's neither required nor optional,
// then merges optional defaults under the supplied params (supplied wins)
// before calling the handler. A handler error is wrapped as handler_failed;
// the handler's own return value is returned unchanged.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (any, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, protoerr.New(protoerr.KindUnknownAction, "unknown action %q", name)
	}
	for _, req := range h.RequiredParams {
		if _, present := params[req]; !present {
			return nil, protoerr.New(protoerr.KindMissingParameter, "missing required parameter %q for action %q", req, name)
		}
	}
	known := map[string]bool{}
	for _, req := range h.RequiredParams {
		known[req] = true
	}
	for opt := range h.OptionalParams {
		known[opt] = true
	}
	for k := range params {
		if !known[k] {
			return nil, protoerr.New(protoerr.KindUnknownParameter, "unknown parameter %q for action %q", k, name)
		}
	}
	merged := make(map[string]any, len(h.OptionalParams)+len(params))
	for k, v := range h.OptionalParams {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	result, err := h.Handler(ctx, merged)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindHandlerFailed, err, "handler %q failed", name)
	}
	return result, nil
}

// List returns every registered action name, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Description is the JSON-serializable shape Describe() exposes per action.
type Description struct {
	Category       Category       `json:"category"`
	Description    string         `json:"description"`
	RequiredParams []string       `json:"required_params"`
	OptionalParams map[string]any `json:"optional_params"`
	Returns        map[string]string `json:"returns,omitempty"`
	Examples       []string       `json:"examples,omitempty"`
}

// Describe returns the machine-readable action library consumed by the
// Planner's prompt — the only public contract between planning and the
// action surface.
func (r *Registry) Describe() map[string]Description {
	out := make(map[string]Description, len(r.handlers))
	for name, h := range r.handlers {
		out[name] = Description{
			Category:       h.Category,
			Description:    h.Description,
			RequiredParams: h.RequiredParams,
			OptionalParams: h.OptionalParams,
			Returns:        h.Returns,
			Examples:       h.Examples,
		}
	}
	return out
}

// Documentation renders a Markdown catalogue of every action, grouped by
// category, for a human operator inspecting the registry.
func (r *Registry) Documentation() string {
	byCategory := map[Category][]*ActionHandler{}
	for _, h := range r.handlers {
		byCategory[h.Category] = append(byCategory[h.Category], h)
	}
	cats := make([]string, 0, len(byCategory))
	for c := range byCategory {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)

	var b strings.Builder
	b.WriteString("# Action Library\n\n")
	for _, c := range cats {
		handlers := byCategory[Category(c)]
		sort.Slice(handlers, func(i, j int) bool { return handlers[i].Name < handlers[j].Name })
		fmt.Fprintf(&b, "## %s\n\n", strings.ToUpper(c[:1])+c[1:])
		for _, h := range handlers {
			fmt.Fprintf(&b, "### `%s`\n\n%s\n\n", h.Name, h.Description)
			if len(h.RequiredParams) > 0 {
				fmt.Fprintf(&b, "- required: `%s`\n", strings.Join(h.RequiredParams, "`, `"))
			}
			if len(h.OptionalParams) > 0 {
				opts := make([]string, 0, len(h.OptionalParams))
				for k, v := range h.OptionalParams {
					opts = append(opts, fmt.Sprintf("%s=%v", k, v))
				}
				sort.Strings(opts)
				fmt.Fprintf(&b, "- optional: `%s`\n", strings.Join(opts, "`, `"))
			}
			for _, ex := range h.Examples {
				fmt.Fprintf(&b, "- example: %s\n", ex)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
