// Package window implements the Window Manager (spec.md §4.4): a
// bounded, index-addressed window registry with a monotonically
// advancing status lifecycle, grounded on
// _examples/original_source/src/window/{window.hh,manager.cc}.
package window

import (
	"sync"

	"github.com/teranos/qntx-runtime/rterr"
)

// Status mirrors Window::WindowStatus exactly: negative Error sink,
// None=0, then paired Creating/Created, Hiding/Hidden, Showing/Shown,
// Closing/Closed, Exiting/Exited, Killing/Killed bands at multiples of
// ten so intermediate states can be compared with the surrounding pair.
type Status int

const (
	StatusError    Status = -1
	StatusNone     Status = 0
	StatusCreating Status = 10
	StatusCreated  Status = 11
	StatusHiding   Status = 20
	StatusHidden   Status = 21
	StatusShowing  Status = 30
	StatusShown    Status = 31
	StatusClosing  Status = 40
	StatusClosed   Status = 41
	StatusExiting  Status = 50
	StatusExited   Status = 51
	StatusKilling  Status = 60
	StatusKilled   Status = 61
)

// MaxWindows/MaxWindowsReserved mirror SSC_MAX_WINDOWS /
// SSC_MAX_WINDOWS_RESERVED: 32 user-addressable slots plus 16 reserved
// for internal windows (the service worker container window is one of
// these, at MaxWindows+1).
const (
	MaxWindows             = 32
	MaxWindowsReserved     = 16
	ServiceWorkerWindowIdx = MaxWindows + 1
)

// Options configures a managed window (a subset of WindowOptions wired
// to the runtime's concerns: geometry, navigation target, preload).
type Options struct {
	Index      int
	Title      string
	URL        string
	Width      float64
	Height     float64
	Resizable  bool
	Frameless  bool
	CanExit    bool
	Preload    string
	UserConfig map[string]string
}

// Host is the collaborator that actually renders a webview (spec.md
// §6.4); Window calls back into it for show/hide/close/kill/eval/send
// and the remaining widget-delegating route surface. The widget itself
// is a Non-goal, but a Host satisfying this interface is what lets every
// window.* route exercise something instead of being dead code.
type Host interface {
	Show() error
	Hide() error
	Close(code int) error
	Kill() error
	Eval(script string) error
	Send(event string, value interface{}) error
	Title() string
	Size() (width, height float64)

	Navigate(url string) error
	SetSize(width, height float64) error
	SetTitle(title string) error
	Maximize() error
	Minimize() error
	Restore() error
	BackgroundColor() (string, error)
	SetBackgroundColor(color string) error
	SetPosition(x, y float64) error
	SetContextMenu(items map[string]string) error
	ShowInspector() error
	ShowFileSystemPicker(opts FilePickerOptions) ([]string, error)
}

// FilePickerOptions configures window.showFileSystemPicker (spec.md
// §4.4), mirroring the original's directories/multiple/contentTypes.
type FilePickerOptions struct {
	Directories bool
	Multiple    bool
	Files       bool
	ContentType string
	DefaultPath string
}

// Window is one managed webview slot.
type Window struct {
	Index   int
	Options Options
	Host    Host

	mu     sync.Mutex
	status Status
	config map[string]string // per-window persisted user config
}

func newWindow(index int, opts Options, host Host) *Window {
	return &Window{Index: index, Options: opts, Host: host, status: StatusCreating, config: make(map[string]string)}
}

// Status returns the current lifecycle status.
func (w *Window) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Show implements window.show: Showing -> (host) -> Shown.
func (w *Window) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = StatusShowing
	if w.Host != nil {
		if err := w.Host.Show(); err != nil {
			w.status = StatusError
			return err
		}
	}
	w.status = StatusShown
	return nil
}

// Hide implements window.hide, guarded the way ManagedWindow::hide is:
// only between Hidden and Exiting does hiding make sense.
func (w *Window) Hide() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !(w.status > StatusHidden && w.status < StatusExiting) {
		return nil
	}
	w.status = StatusHiding
	if w.Host != nil {
		if err := w.Host.Hide(); err != nil {
			w.status = StatusError
			return err
		}
	}
	w.status = StatusHidden
	return nil
}

// Close implements window.close: Closing, then Exited if the window may
// exit the process or Closed otherwise.
func (w *Window) Close(code int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status >= StatusClosing {
		return nil
	}
	w.status = StatusClosing
	if w.Host != nil {
		if err := w.Host.Close(code); err != nil {
			w.status = StatusError
			return err
		}
	}
	if w.Options.CanExit {
		w.status = StatusExited
	} else {
		w.status = StatusClosed
	}
	return nil
}

// Kill moves the window to the terminal Killed status. It does not free
// the manager slot; Manager.DestroyWindow (behind window.kill) calls Kill
// and then frees the slot.
func (w *Window) Kill() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status >= StatusKilling {
		return false, nil
	}
	w.status = StatusKilling
	if w.Host != nil {
		if err := w.Host.Kill(); err != nil {
			w.status = StatusError
			return false, err
		}
	}
	w.status = StatusKilled
	return true, nil
}

// Eval implements window.eval.
func (w *Window) Eval(script string) error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.Eval(script)
}

// Send implements window.send (emitToRenderProcess).
func (w *Window) Send(event string, value interface{}) error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.Send(event, value)
}

// Navigate implements window.navigate.
func (w *Window) Navigate(url string) error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.Navigate(url)
}

// SetSize implements window.setSize.
func (w *Window) SetSize(width, height float64) error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.SetSize(width, height)
}

// SetTitle implements window.setTitle.
func (w *Window) SetTitle(title string) error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.SetTitle(title)
}

// GetTitle implements window.getTitle.
func (w *Window) GetTitle() (string, error) {
	if w.Host == nil {
		return "", rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.Title(), nil
}

// Maximize implements window.maximize.
func (w *Window) Maximize() error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.Maximize()
}

// Minimize implements window.minimize.
func (w *Window) Minimize() error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.Minimize()
}

// Restore implements window.restore.
func (w *Window) Restore() error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.Restore()
}

// GetBackgroundColor implements window.getBackgroundColor.
func (w *Window) GetBackgroundColor() (string, error) {
	if w.Host == nil {
		return "", rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.BackgroundColor()
}

// SetBackgroundColor implements window.setBackgroundColor.
func (w *Window) SetBackgroundColor(color string) error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.SetBackgroundColor(color)
}

// SetPosition implements window.setPosition.
func (w *Window) SetPosition(x, y float64) error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.SetPosition(x, y)
}

// SetContextMenu implements window.setContextMenu.
func (w *Window) SetContextMenu(items map[string]string) error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.SetContextMenu(items)
}

// ShowInspector implements window.showInspector.
func (w *Window) ShowInspector() error {
	if w.Host == nil {
		return rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.ShowInspector()
}

// ShowFileSystemPicker implements window.showFileSystemPicker.
func (w *Window) ShowFileSystemPicker(opts FilePickerOptions) ([]string, error) {
	if w.Host == nil {
		return nil, rterr.NotSupported("window %d has no rendering host", w.Index)
	}
	return w.Host.ShowFileSystemPicker(opts)
}

// JSON mirrors ManagedWindow::json().
func (w *Window) JSON() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	width, height := 0.0, 0.0
	title := w.Options.Title
	if w.Host != nil {
		width, height = w.Host.Size()
		title = w.Host.Title()
	}
	return map[string]interface{}{
		"index":  w.Index,
		"title":  title,
		"width":  width,
		"height": height,
		"status": int(w.status),
	}
}

// UserConfig returns the per-window persisted config key, mutable via
// SetUserConfig and backed by a YAML file on disk (spec.md §4.4's
// "per-window userConfig persisted").
func (w *Window) UserConfig(key string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.config[key]
	return v, ok
}

func (w *Window) setUserConfigMap(m map[string]string) {
	w.mu.Lock()
	w.config = m
	w.mu.Unlock()
}

func (w *Window) SetUserConfig(key, value string) {
	w.mu.Lock()
	w.config[key] = value
	w.mu.Unlock()
}

func (w *Window) snapshotUserConfig() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.config))
	for k, v := range w.config {
		out[k] = v
	}
	return out
}
