package registry

import (
	"context"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
)

func (r *Registry) requireSystem() (capability.System, error) {
	if r.system == nil {
		return nil, protoerr.New(protoerr.KindHandlerFailed, "no System capability injected")
	}
	return r.system, nil
}

func (r *Registry) registerWindow() {
	r.register(ActionHandler{
		Name: "open_app", Category: CategoryWindow,
		Description:    "Launch or focus an application by name",
		RequiredParams: []string{"app_name"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireSystem()
			if err != nil {
				return nil, err
			}
			name, _ := p["app_name"].(string)
			return nil, s.OpenApplication(ctx, name)
		},
	})

	r.register(ActionHandler{
		Name: "close_app", Category: CategoryWindow,
		Description:    "Close an application by name",
		RequiredParams: []string{"app_name"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireSystem()
			if err != nil {
				return nil, err
			}
			name, _ := p["app_name"].(string)
			return nil, s.CloseApplication(ctx, name)
		},
	})

	r.register(ActionHandler{
		Name: "switch_window", Category: CategoryWindow,
		Description:    "Switch focus to a window by name",
		RequiredParams: []string{"name"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireSystem()
			if err != nil {
				return nil, err
			}
			name, _ := p["name"].(string)
			return nil, s.SwitchWindow(ctx, name)
		},
	})

	r.register(ActionHandler{
		Name: "minimize_window", Category: CategoryWindow,
		Description: "Minimize the focused window",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireSystem()
			if err != nil {
				return nil, err
			}
			return nil, s.MinimizeWindow(ctx)
		},
	})

	r.register(ActionHandler{
		Name: "maximize_window", Category: CategoryWindow,
		Description: "Maximize the focused window",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireSystem()
			if err != nil {
				return nil, err
			}
			return nil, s.MaximizeWindow(ctx)
		},
	})

	r.register(ActionHandler{
		Name: "get_active_window", Category: CategoryWindow,
		Description: "Return the name of the currently focused window",
		Returns:     map[string]string{"name": "string"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireSystem()
			if err != nil {
				return nil, err
			}
			name, err := s.ActiveWindow(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"name": name}, nil
		},
	})
}
