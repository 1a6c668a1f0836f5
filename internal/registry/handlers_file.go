package registry

import (
	"context"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
)

func (r *Registry) requireFiles() (capability.Files, error) {
	if r.files == nil {
		return nil, protoerr.New(protoerr.KindHandlerFailed, "no Files capability injected")
	}
	return r.files, nil
}

func (r *Registry) registerFile() {
	r.register(ActionHandler{
		Name: "open_file", Category: CategoryFile,
		Description:    "Open a file through the focused application's Open dialog, then confirm a path",
		RequiredParams: []string{"path"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			if err := k.Shortcut(ctx, "ctrl", "o"); err != nil {
				return nil, err
			}
			path, _ := p["path"].(string)
			if err := k.Type(ctx, path, 0); err != nil {
				return nil, err
			}
			return nil, k.Press(ctx, "enter")
		},
	})

	r.register(ActionHandler{
		Name: "save_file", Category: CategoryFile,
		Description: "Save the focused document (ctrl+s)",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			return nil, k.Shortcut(ctx, "ctrl", "s")
		},
	})

	r.register(ActionHandler{
		Name: "save_as", Category: CategoryFile,
		Description:    "Save the focused document under a new path",
		RequiredParams: []string{"path"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			if err := k.Shortcut(ctx, "ctrl", "shift", "s"); err != nil {
				return nil, err
			}
			path, _ := p["path"].(string)
			if err := k.Type(ctx, path, 0); err != nil {
				return nil, err
			}
			return nil, k.Press(ctx, "enter")
		},
	})

	r.register(ActionHandler{
		Name: "open_file_dialog", Category: CategoryFile,
		Description: "Open the focused application's Open dialog without confirming a path",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			k, err := r.requireKeyboard()
			if err != nil {
				return nil, err
			}
			return nil, k.Shortcut(ctx, "ctrl", "o")
		},
	})

	r.register(ActionHandler{
		Name: "create_folder", Category: CategoryFile,
		Description:    "Create a directory on the host filesystem",
		RequiredParams: []string{"path"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			f, err := r.requireFiles()
			if err != nil {
				return nil, err
			}
			path, _ := p["path"].(string)
			return nil, f.CreateFolder(ctx, path)
		},
	})

	r.register(ActionHandler{
		Name: "delete_file", Category: CategoryFile,
		Description:    "Delete a file on the host filesystem",
		RequiredParams: []string{"path"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			f, err := r.requireFiles()
			if err != nil {
				return nil, err
			}
			path, _ := p["path"].(string)
			return nil, f.DeleteFile(ctx, path)
		},
	})
}
