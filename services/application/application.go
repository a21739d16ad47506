// Package application implements the Application core service (spec.md
// §4.2.4, §6.3): process exit, window enumeration, and the desktop
// tray/system-menu operations, grounded on
// _examples/original_source/src/runtime/ipc/routes.cc's
// application.exit/getScreenSize/getWindows/setTrayMenu/setSystemMenu/
// setSystemMenuItemEnabled handlers (~lines 530-861). The tray and
// system menu are OS widgets (spec.md §1 Non-goal), so they delegate to
// a Host collaborator instead of driving a real menu bar.
package application

import (
	"github.com/teranos/qntx-runtime/rterr"
	"github.com/teranos/qntx-runtime/window"
)

// Host is the desktop-shell collaborator for the window-system-wide
// operations that have no single owning window: screen geometry and the
// OS tray/system menu.
type Host interface {
	ScreenSize() (width, height float64, err error)
	SetTrayMenu(menu string) error
	SetSystemMenu(menu string) error
	SetSystemMenuItemEnabled(indexMain, indexSub int, enabled bool) error
}

// Service binds application.* routes to the window manager and the
// desktop Host collaborator.
type Service struct {
	windows *window.Manager
	host    Host
}

// New constructs an Application service. host may be nil in
// headless/test configurations, in which case the tray/menu/screen-size
// operations report NotSupportedError.
func New(windows *window.Manager, host Host) *Service {
	return &Service{windows: windows, host: host}
}

// Exit implements application.exit: closes window 0 (the main window)
// with the given exit code, mirroring the original's
// windowManager.getWindow(0)->exit(exitCode).
func (s *Service) Exit(code int) error {
	w := s.windows.GetWindow(0)
	if w == nil {
		return rterr.NotFound("no main window to exit")
	}
	return w.Close(code)
}

// ScreenSize implements application.getScreenSize.
func (s *Service) ScreenSize() (width, height float64, err error) {
	if s.host == nil {
		return 0, 0, rterr.NotSupported("no application host configured")
	}
	return s.host.ScreenSize()
}

// GetWindows implements application.getWindows: the JSON snapshot of
// every window at indices, or every live window when indices is empty.
func (s *Service) GetWindows(indices []int) []map[string]interface{} {
	if len(indices) == 0 {
		for i := 0; i < window.MaxWindows+window.MaxWindowsReserved; i++ {
			indices = append(indices, i)
		}
	}
	return s.windows.JSON(indices)
}

// SetTrayMenu implements application.setTrayMenu.
func (s *Service) SetTrayMenu(menu string) error {
	if s.host == nil {
		return rterr.NotSupported("no application host configured")
	}
	return s.host.SetTrayMenu(menu)
}

// SetSystemMenu implements application.setSystemMenu.
func (s *Service) SetSystemMenu(menu string) error {
	if s.host == nil {
		return rterr.NotSupported("no application host configured")
	}
	return s.host.SetSystemMenu(menu)
}

// SetSystemMenuItemEnabled implements application.setSystemMenuItemEnabled.
func (s *Service) SetSystemMenuItemEnabled(indexMain, indexSub int, enabled bool) error {
	if s.host == nil {
		return rterr.NotSupported("no application host configured")
	}
	return s.host.SetSystemMenuItemEnabled(indexMain, indexSub, enabled)
}
