// Package hostcap adapts the host machine's macOS automation surface
// (osascript, the shell) into capability.System and capability.Files. It is
// macOS-specific, the same platform assumption the AppleScript/shell-based
// tool wrappers it is built on already make.
//
// Keyboard, Pointer, ScreenCapture, and Clipboard have no host backend here:
// driving real input devices and the display server is out of scope for
// this module (see capability's package doc) — those four capabilities are
// only ever backed by internal/capability/mock in this repository.
package hostcap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/tools"
)

// System implements capability.System against the local macOS host via
// AppleScript (osascript) and shell utilities.
type System struct{}

var _ capability.System = System{}

func (System) OpenApplication(ctx context.Context, name string) error {
	_, err := tools.RunAppleScript(ctx, fmt.Sprintf(`tell application %q to activate`, name))
	return err
}

func (System) CloseApplication(ctx context.Context, name string) error {
	_, err := tools.RunAppleScript(ctx, fmt.Sprintf(`tell application %q to quit`, name))
	return err
}

func (System) Lock(ctx context.Context) error {
	_, _, err := tools.RunShell(ctx, `pmset displaysleepnow`)
	return err
}

func (System) Sleep(ctx context.Context) error {
	_, _, err := tools.RunShell(ctx, `pmset sleepnow`)
	return err
}

func (System) Shutdown(ctx context.Context) error {
	_, err := tools.RunAppleScript(ctx, `tell application "System Events" to shut down`)
	return err
}

func (System) Restart(ctx context.Context) error {
	_, err := tools.RunAppleScript(ctx, `tell application "System Events" to restart`)
	return err
}

func (System) VolumeUp(ctx context.Context) error {
	_, err := tools.RunAppleScript(ctx, `set volume output volume (output volume of (get volume settings) + 10)`)
	return err
}

func (System) VolumeDown(ctx context.Context) error {
	_, err := tools.RunAppleScript(ctx, `set volume output volume (output volume of (get volume settings) - 10)`)
	return err
}

func (System) VolumeMute(ctx context.Context) error {
	_, err := tools.RunAppleScript(ctx, `set volume with output muted`)
	return err
}

func (System) ActiveWindow(ctx context.Context) (string, error) {
	return tools.RunAppleScript(ctx, `tell application "System Events" to get name of first application process whose frontmost is true`)
}

func (System) SwitchWindow(ctx context.Context, name string) error {
	_, err := tools.RunAppleScript(ctx, fmt.Sprintf(`tell application %q to activate`, name))
	return err
}

func (System) MinimizeWindow(ctx context.Context) error {
	_, err := tools.RunAppleScript(ctx, `
tell application "System Events"
	set frontApp to name of first application process whose frontmost is true
	tell application process frontApp
		set value of attribute "AXMinimized" of window 1 to true
	end tell
end tell`)
	return err
}

func (System) MaximizeWindow(ctx context.Context) error {
	_, err := tools.RunAppleScript(ctx, `
tell application "System Events"
	set frontApp to name of first application process whose frontmost is true
	tell application process frontApp
		set value of attribute "AXFullScreen" of window 1 to true
	end tell
end tell`)
	return err
}

func (System) OpenURL(ctx context.Context, url string) error {
	_, _, err := tools.RunShell(ctx, fmt.Sprintf("open %q", url))
	return err
}

// Files implements capability.Files against the local filesystem. Bare
// filenames and "./"-prefixed paths are redirected into the agent's
// workspace directory (tools.ResolveOutputPath); paths with a directory
// component, including other relative ones, are used as given.
type Files struct{}

var _ capability.Files = Files{}

func (Files) ReadFile(ctx context.Context, path string) ([]byte, error) {
	resolved, _ := tools.ResolveOutputPath(tools.ExpandHome(path))
	content, err := tools.ReadFile(resolved)
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

func (Files) WriteFile(ctx context.Context, path string, data []byte) error {
	resolved, _ := tools.ResolveOutputPath(tools.ExpandHome(path))
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return err
	}
	return tools.WriteFile(resolved, string(data))
}

func (Files) CreateFolder(ctx context.Context, path string) error {
	resolved, _ := tools.ResolveOutputPath(tools.ExpandHome(path))
	return os.MkdirAll(resolved, 0o755)
}

func (Files) DeleteFile(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("hostcap: refusing to delete %q", path)
	}
	resolved, _ := tools.ResolveOutputPath(tools.ExpandHome(path))
	if strings.TrimSpace(resolved) == "" || resolved == "/" {
		return fmt.Errorf("hostcap: refusing to delete %q", resolved)
	}
	return os.Remove(resolved)
}
