package registry

import (
	"context"
	"fmt"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
)

func (r *Registry) registerKeyboard() {
	r.register(ActionHandler{
		Name: "press_key", Category: CategoryKeyboard,
		Description:    "Press and release a single key",
		RequiredParams: []string{"key"},
		Examples:       []string{`{"action":"press_key","params":{"key":"enter"}}`},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			key, _ := p["key"].(string)
			return nil, k.Press(ctx, key)
		},
	})

	r.register(ActionHandler{
		Name: "hold_key", Category: CategoryKeyboard,
		Description:    "Press and hold a key without releasing it",
		RequiredParams: []string{"key"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			key, _ := p["key"].(string)
			return nil, k.Hold(ctx, key)
		},
	})

	r.register(ActionHandler{
		Name: "release_key", Category: CategoryKeyboard,
		Description:    "Release a previously held key",
		RequiredParams: []string{"key"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			key, _ := p["key"].(string)
			return nil, k.Release(ctx, key)
		},
	})

	r.register(ActionHandler{
		Name: "type", Category: CategoryKeyboard,
		Description:    "Type a string of text",
		RequiredParams: []string{"text"},
		OptionalParams: map[string]any{"inter_key_delay_ms": 0},
		Examples:       []string{`{"action":"type","params":{"text":"hello"}}`},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			text, _ := p["text"].(string)
			delay := intParam(p["inter_key_delay_ms"])
			return nil, k.Type(ctx, text, delay)
		},
	})

	r.register(ActionHandler{
		Name: "type_with_delay", Category: CategoryKeyboard,
		Description:    "Type text with an explicit per-character delay",
		RequiredParams: []string{"text", "inter_key_delay_ms"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			text, _ := p["text"].(string)
			delay := intParam(p["inter_key_delay_ms"])
			return nil, k.Type(ctx, text, delay)
		},
	})

	r.register(ActionHandler{
		Name: "shortcut", Category: CategoryKeyboard,
		Description:    "Press a chord of keys together (e.g. ctrl+l)",
		RequiredParams: []string{"keys"},
		Examples:       []string{`{"action":"shortcut","params":{"keys":["ctrl","l"]}}`},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			keys, err := stringSlice(p["keys"])
			if err != nil {
				return nil, err
			}
			return nil, k.Shortcut(ctx, keys...)
		},
	})
}

func (r *Registry) requireKeyboard() (capability.Keyboard, error) {
	if r.keyboard == nil {
		return nil, protoerr.New(protoerr.KindHandlerFailed, "no Keyboard capability injected")
	}
	return r.keyboard, nil
}

func intParam(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	}
	return 0
}

func stringSlice(v any) ([]string, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array, got %T", v)
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected array of strings, got element of type %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
