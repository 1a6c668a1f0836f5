package protocol

import (
	"fmt"
	"sort"

	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

// ValidationResult carries every issue discovered by Validate. Warnings can
// coexist with IsValid == true: only Errors flip IsValid to false. A failed
// validation surfaces every discovered issue, not just the first.
type ValidationResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{IsValid: true}
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.IsValid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateOptions supplies the optional context (known screen size,
// out-of-bounds margin) the coordinate-bounds pass uses.
type ValidateOptions struct {
	ScreenWidth  *int
	ScreenHeight *int
	Margin       int
}

// contextVariables are written into the execution context at runtime
// (verification side-effects) and so are never "missing" at validation
// time even though no macro invocation supplies them explicitly.
var contextVariables = map[string]bool{
	"verified_x":                   true,
	"verified_y":                   true,
	"suggested_actions":            true,
	"last_verification_safe":       true,
	"last_verification_confidence": true,
	"last_verification_analysis":   true,
}

// Validate runs the full layered validation pipeline over an already
// structurally-valid Program: action semantics, macro semantics, macro
// cycle detection, coordinate bounds, and timing sanity. Every pass runs
// unconditionally so every issue surfaces in one report.
func Validate(p *types.Program, catalog ActionCatalog, opts ValidateOptions) ValidationResult {
	result := newValidationResult()

	if len(p.Actions) == 0 {
		result.addError("program must have at least one action")
	}
	for name, actions := range p.Macros {
		if len(actions) == 0 {
			result.addError("macro %q has no actions", name)
		}
	}

	validateActionSemantics(p, catalog, result, "", p.Actions)
	for name, actions := range p.Macros {
		validateActionSemantics(p, catalog, result, name, actions)
	}

	validateCycles(p, result)

	validateCoordinateBounds(p.Actions, opts, result)
	for _, actions := range p.Macros {
		validateCoordinateBounds(actions, opts, result)
	}

	validateVariableUsage(p, result)

	validateTiming(p, result)

	return *result
}

func validateActionSemantics(p *types.Program, catalog ActionCatalog, result *ValidationResult, macroName string, actions []types.Action) {
	for i, a := range actions {
		label := actionLabel(macroName, i)
		if a.Action == "" {
			result.addError("%s: action name cannot be empty", label)
			continue
		}
		if a.WaitAfterMs < 0 {
			result.addError("%s: wait_after_ms must be non-negative, got %d", label, a.WaitAfterMs)
		}
		if a.Action == "macro" {
			validateMacroActionParams(p, a, label, result)
			continue
		}
		spec, ok := catalog.Lookup(a.Action)
		if !ok {
			result.addError("%s: unknown action %q", label, a.Action)
			continue
		}
		validateParams(spec, a.Params, label, result)
	}
}

func actionLabel(macroName string, index int) string {
	if macroName == "" {
		return fmt.Sprintf("action %d", index)
	}
	return fmt.Sprintf("macro %q action %d", macroName, index)
}

func validateMacroActionParams(p *types.Program, a types.Action, label string, result *ValidationResult) {
	ref, ok := types.ParseMacroRef(a.Params)
	if !ok {
		result.addError("%s: macro action must specify a non-empty 'name' parameter", label)
		return
	}
	if _, exists := p.Macros[ref.Name]; !exists {
		result.addError("%s: macro %q not defined", label, ref.Name)
	}
	if rawVars, present := a.Params["vars"]; present {
		if _, isMap := rawVars.(map[string]any); !isMap {
			result.addError("%s: macro 'vars' parameter must be a mapping", label)
		}
	}
}

// validateParams checks a concrete (non-macro) action's params against its
// registry contract: required presence (unless a substitution token is
// present anywhere in the params bag), unknown-parameter warnings, and a
// handful of known parameter-type constraints.
func validateParams(spec ActionSpec, params map[string]any, label string, result *ValidationResult) {
	hasToken := containsAnyToken(params)
	for _, req := range spec.RequiredParams {
		if _, present := params[req]; !present && !hasToken {
			result.addError("%s: missing required parameter %q for action %q", label, req, spec.Name)
		}
	}
	known := map[string]bool{}
	for _, req := range spec.RequiredParams {
		known[req] = true
	}
	for opt := range spec.OptionalParams {
		known[opt] = true
	}
	for name := range params {
		if name == "" {
			continue
		}
		if !known[name] {
			result.addWarning("%s: unknown parameter %q for action %q", label, name, spec.Name)
		}
	}
	validateParamTypes(spec.Name, params, label, result)
}

var coordinateActions = map[string]bool{
	"mouse_move":     true,
	"mouse_drag":     true,
	"capture_region": true,
	"wait_for_color": true,
}

func validateParamTypes(action string, params map[string]any, label string, result *ValidationResult) {
	if v, ok := params["keys"]; ok && action == "shortcut" {
		if _, isList := v.([]any); !isList {
			result.addError("%s: shortcut 'keys' must be an array", label)
		}
	}
	if v, ok := params["button"]; ok {
		if s, isStr := v.(string); isStr && !containsAnyToken(v) {
			switch s {
			case "left", "right", "middle":
			default:
				result.addError("%s: button must be one of left, right, middle; got %q", label, s)
			}
		}
	}
	if action == "mouse_scroll" {
		if v, ok := params["direction"]; ok {
			if s, isStr := v.(string); isStr && !containsAnyToken(v) {
				switch s {
				case "up", "down", "left", "right":
				default:
					result.addError("%s: mouse_scroll direction must be one of up, down, left, right; got %q", label, s)
				}
			}
		}
	}
	if coordinateActions[action] {
		for _, field := range []string{"x", "y", "width", "height"} {
			if v, ok := params[field]; ok {
				if !isIntOrToken(v) {
					result.addError("%s: %s.%s must be an integer or a substitution token", label, action, field)
				}
			}
		}
	}
}

func isIntOrToken(v any) bool {
	switch t := v.(type) {
	case float64:
		return t == float64(int64(t))
	case int, int64:
		return true
	case string:
		_, isToken := wholeToken(t)
		return isToken
	}
	return false
}

// validateCycles builds the macro-call graph (macro -> macros it invokes)
// and rejects any cycle, including self-reference, via a depth-first
// traversal that maintains a recursion set.
func validateCycles(p *types.Program, result *ValidationResult) {
	visited := map[string]bool{}
	inStack := map[string]bool{}

	var visit func(name string, path []string) bool
	visit = func(name string, path []string) bool {
		visited[name] = true
		inStack[name] = true
		path = append(path, name)

		actions, ok := p.Macros[name]
		if ok {
			for _, a := range actions {
				if a.Action != "macro" {
					continue
				}
				ref, ok := types.ParseMacroRef(a.Params)
				if !ok {
					continue
				}
				if inStack[ref.Name] {
					result.addError("circular_dependency: %v -> %s", path, ref.Name)
					return true
				}
				if !visited[ref.Name] {
					if visit(ref.Name, path) {
						return true
					}
				}
			}
		}
		inStack[name] = false
		return false
	}

	names := make([]string, 0, len(p.Macros))
	for name := range p.Macros {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !visited[name] {
			visit(name, nil)
		}
	}
}

// validateCoordinateBounds warns (never errors) when an integer coordinate
// falls outside [margin, size-margin], or a capture_region overflows the
// known screen size.
func validateCoordinateBounds(actions []types.Action, opts ValidateOptions, result *ValidationResult) {
	if opts.ScreenWidth == nil || opts.ScreenHeight == nil {
		return
	}
	w, h, margin := *opts.ScreenWidth, *opts.ScreenHeight, opts.Margin
	for i, a := range actions {
		if a.Action == "capture_region" {
			x := asInt(a.Params["x"])
			y := asInt(a.Params["y"])
			width := asInt(a.Params["width"])
			height := asInt(a.Params["height"])
			if x != nil && width != nil && *x+*width > w {
				result.addWarning("action %d: capture_region x+width (%d) exceeds screen width %d", i, *x+*width, w)
			}
			if y != nil && height != nil && *y+*height > h {
				result.addWarning("action %d: capture_region y+height (%d) exceeds screen height %d", i, *y+*height, h)
			}
			continue
		}
		if x := asInt(a.Params["x"]); x != nil {
			if *x < margin || *x > w-margin {
				result.addWarning("action %d: x=%d out of bounds [%d,%d]", i, *x, margin, w-margin)
			}
		}
		if y := asInt(a.Params["y"]); y != nil {
			if *y < margin || *y > h-margin {
				result.addWarning("action %d: y=%d out of bounds [%d,%d]", i, *y, margin, h-margin)
			}
		}
	}
}

func asInt(v any) *int {
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			n := int(t)
			return &n
		}
	case int:
		return &t
	}
	return nil
}

// validateVariableUsage compares, per macro invocation, the identifiers
// referenced inside the macro body against the vars bindings supplied at
// the call site. Both directions are warnings only, never errors — this is
// the two-channel report spec.md preserves: missing vars warn (they may
// resolve from context at runtime, e.g. verified_x/verified_y), and unused
// vars warn too.
func validateVariableUsage(p *types.Program, result *ValidationResult) {
	// expanding guards the descent into macro bodies so a macro cycle (which
	// validateCycles reports as an error) does not recurse forever here.
	expanding := map[string]bool{}
	var scan func(actions []types.Action)
	scan = func(actions []types.Action) {
		for _, a := range actions {
			if a.Action != "macro" {
				continue
			}
			ref, ok := types.ParseMacroRef(a.Params)
			if !ok {
				continue
			}
			body, exists := p.Macros[ref.Name]
			if !exists {
				continue
			}
			used := map[string]bool{}
			for _, ident := range collectIdentifiers(actionsToAny(body)) {
				used[ident] = true
			}
			provided := map[string]bool{}
			for k := range ref.Vars {
				provided[k] = true
			}
			for ident := range used {
				if contextVariables[ident] {
					continue
				}
				if !provided[ident] {
					result.addWarning("macro %q: variable %q used but not provided in vars", ref.Name, ident)
				}
			}
			for ident := range provided {
				if !used[ident] {
					result.addWarning("macro %q: vars[%q] supplied but never referenced", ref.Name, ident)
				}
			}
			if !expanding[ref.Name] {
				expanding[ref.Name] = true
				scan(body)
				expanding[ref.Name] = false
			}
		}
	}
	scan(p.Actions)
	for _, body := range p.Macros {
		scan(body)
	}
}

func actionsToAny(actions []types.Action) any {
	out := make([]any, len(actions))
	for i, a := range actions {
		m := map[string]any{"action": a.Action}
		if a.Params != nil {
			m["params"] = a.Params
		}
		out[i] = m
	}
	return out
}

// validateTiming sums wait_after_ms plus any "ms" param (e.g. delay) over
// the top-level program and warns if it strays more than 20% from
// metadata.estimated_duration_seconds.
func validateTiming(p *types.Program, result *ValidationResult) {
	if p.Metadata.EstimatedDurationSeconds == nil {
		return
	}
	var totalMs int64
	for _, a := range p.Actions {
		totalMs += int64(a.WaitAfterMs)
		if ms := asInt(a.Params["ms"]); ms != nil {
			totalMs += int64(*ms)
		}
	}
	estimatedMs := int64(*p.Metadata.EstimatedDurationSeconds) * 1000
	low := float64(estimatedMs) * 0.8
	high := float64(estimatedMs) * 1.2
	if float64(totalMs) < low || float64(totalMs) > high {
		result.addWarning("estimated_duration_seconds=%ds but summed timing is %dms (outside ±20%%)",
			*p.Metadata.EstimatedDurationSeconds, totalMs)
	}
}
