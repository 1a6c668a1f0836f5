package registry

import (
	"context"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
)

func (r *Registry) requireClipboard() (capability.Clipboard, error) {
	if r.clipboard == nil {
		return nil, protoerr.New(protoerr.KindHandlerFailed, "no Clipboard capability injected")
	}
	return r.clipboard, nil
}

func (r *Registry) registerClipboard() {
	r.register(ActionHandler{
		Name: "copy", Category: CategoryClipboard,
		Description: "Copy the current selection (ctrl+c)",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			return nil, k.Shortcut(ctx, "ctrl", "c")
		},
	})

	r.register(ActionHandler{
		Name: "cut", Category: CategoryClipboard,
		Description: "Cut the current selection (ctrl+x)",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			return nil, k.Shortcut(ctx, "ctrl", "x")
		},
	})

	r.register(ActionHandler{
		Name: "paste", Category: CategoryClipboard,
		Description: "Paste the clipboard contents (ctrl+v)",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			return nil, k.Shortcut(ctx, "ctrl", "v")
		},
	})

	r.register(ActionHandler{
		Name: "paste_from_clipboard", Category: CategoryClipboard,
		Description: "Alias for paste; kept for parity with the catalog's naming",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			return nil, k.Shortcut(ctx, "ctrl", "v")
		},
	})

	r.register(ActionHandler{
		Name: "get_clipboard", Category: CategoryClipboard,
		Description: "Read the clipboard contents",
		Returns:     map[string]string{"text": "string"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			c, err := r.requireClipboard()
			if err != nil {
				return nil, err
			}
			text, err := c.Read(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"text": text}, nil
		},
	})

	r.register(ActionHandler{
		Name: "set_clipboard", Category: CategoryClipboard,
		Description:    "Write text to the clipboard",
		RequiredParams: []string{"text"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			c, err := r.requireClipboard()
			if err != nil {
				return nil, err
			}
			text, _ := p["text"].(string)
			return nil, c.Write(ctx, text)
		},
	})
}
