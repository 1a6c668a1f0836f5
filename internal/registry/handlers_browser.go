package registry

import "context"

// Browser actions drive the focused browser window through its standard
// keyboard shortcuts rather than a browser-specific capability — this
// system has no notion of "the browser" beyond whatever window currently
// has focus, matching how the reference implementation automates browsers
// purely through keystrokes and clicks.
func (r *Registry) registerBrowser() {
	r.register(ActionHandler{
		Name: "open_url", Category: CategoryBrowser,
		Description:    "Open a URL, using the System capability's default handler",
		RequiredParams: []string{"url"},
		Examples:       []string{`{"action":"open_url","params":{"url":"https://example.com"}}`},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireSystem()
			if err != nil {
				return nil, err
			}
			url, _ := p["url"].(string)
			return nil, s.OpenURL(ctx, url)
		},
	})

	shortcutAction := func(name, description string, keys ...string) {
		r.register(ActionHandler{
			Name: name, Category: CategoryBrowser,
			Description: description,
			Handler: func(ctx context.Context, p map[string]any) (any, error) {
				k, err := r.requireKeyboard()
				if err != nil {
					return nil, err
				}
				return nil, k.Shortcut(ctx, keys...)
			},
		})
	}

	shortcutAction("browser_back", "Navigate back in browser history", "alt", "left")
	shortcutAction("browser_forward", "Navigate forward in browser history", "alt", "right")
	shortcutAction("browser_refresh", "Reload the current page", "f5")
	shortcutAction("browser_new_tab", "Open a new browser tab", "ctrl", "t")
	shortcutAction("browser_close_tab", "Close the current browser tab", "ctrl", "w")
	shortcutAction("browser_bookmark", "Bookmark the current page", "ctrl", "d")

	r.register(ActionHandler{
		Name: "browser_switch_tab", Category: CategoryBrowser,
		Description:    "Switch to the Nth browser tab (1-indexed)",
		RequiredParams: []string{"index"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			idx := intParam(p["index"])
			if idx < 1 || idx > 9 {
				idx = 1
			}
			return nil, k.Shortcut(ctx, "ctrl", digitKey(idx))
		},
	})

	r.register(ActionHandler{
		Name: "browser_address_bar", Category: CategoryBrowser,
		Description:    "Focus the address bar and optionally type text into it",
		OptionalParams: map[string]any{"text": ""},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			if err := k.Shortcut(ctx, "ctrl", "l"); err != nil {
				return nil, err
			}
			text, _ := p["text"].(string)
			if text == "" {
				return nil, nil
			}
			return nil, k.Type(ctx, text, 0)
		},
	})

	r.register(ActionHandler{
		Name: "browser_find", Category: CategoryBrowser,
		Description:    "Open in-page find and optionally type a query",
		OptionalParams: map[string]any{"text": ""},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			if err := k.Shortcut(ctx, "ctrl", "f"); err != nil {
				return nil, err
			}
			text, _ := p["text"].(string)
			if text == "" {
				return nil, nil
			}
			return nil, k.Type(ctx, text, 0)
		},
	})
}

func digitKey(n int) string {
	return string(rune('0' + n))
}
