package registry

import "context"

func (r *Registry) registerSystem() {
	action := func(name, description string, fn func(context.Context) error) {
		r.register(ActionHandler{
			Name: name, Category: CategorySystem,
			Description: description,
			Handler: func(ctx context.Context, p map[string]any) (any, error) {
				return nil, fn(ctx)
			},
		})
	}

	action("lock_screen", "Lock the host session", func(ctx context.Context) error {
		s, err := r.requireSystem()
		if err != nil {
			return err
		}
		return s.Lock(ctx)
	})
	action("sleep_system", "Put the host to sleep", func(ctx context.Context) error {
		s, err := r.requireSystem()
		if err != nil {
			return err
		}
		return s.Sleep(ctx)
	})
	action("shutdown_system", "Shut the host down", func(ctx context.Context) error {
		s, err := r.requireSystem()
		if err != nil {
			return err
		}
		return s.Shutdown(ctx)
	})
	action("restart_system", "Restart the host", func(ctx context.Context) error {
		s, err := r.requireSystem()
		if err != nil {
			return err
		}
		return s.Restart(ctx)
	})
	action("volume_up", "Raise the system volume one step", func(ctx context.Context) error {
		s, err := r.requireSystem()
		if err != nil {
			return err
		}
		return s.VolumeUp(ctx)
	})
	action("volume_down", "Lower the system volume one step", func(ctx context.Context) error {
		s, err := r.requireSystem()
		if err != nil {
			return err
		}
		return s.VolumeDown(ctx)
	})
	action("volume_mute", "Mute the system volume", func(ctx context.Context) error {
		s, err := r.requireSystem()
		if err != nil {
			return err
		}
		return s.VolumeMute(ctx)
	})
}
