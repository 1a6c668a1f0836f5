package registry

import "context"

// Edit actions, like browser actions, are expressed as keyboard shortcuts
// against whatever application currently has focus.
func (r *Registry) registerEdit() {
	shortcutAction := func(name, description string, keys ...string) {
		r.register(ActionHandler{
			Name: name, Category: CategoryEdit,
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

	shortcutAction("select_all", "Select all (ctrl+a)", "ctrl", "a")
	shortcutAction("undo", "Undo the last edit (ctrl+z)", "ctrl", "z")
	shortcutAction("redo", "Redo the last undone edit (ctrl+shift+z)", "ctrl", "shift", "z")
	shortcutAction("delete_line", "Delete the current line (ctrl+shift+k)", "ctrl", "shift", "k")
	shortcutAction("duplicate_line", "Duplicate the current line (ctrl+d)", "ctrl", "d")

	r.register(ActionHandler{
		Name: "find_replace", Category: CategoryEdit,
		Description:    "Open find/replace and substitute one string for another",
		RequiredParams: []string{"find", "replace"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			if err := k.Shortcut(ctx, "ctrl", "h"); err != nil {
				return nil, err
			}
			find, _ := p["find"].(string)
			replace, _ := p["replace"].(string)
			if err := k.Type(ctx, find, 0); err != nil {
				return nil, err
			}
			if err := k.Press(ctx, "tab"); err != nil {
				return nil, err
			}
			return nil, k.Type(ctx, replace, 0)
		},
	})
}
