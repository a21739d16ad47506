package commands

import (
	"fmt"

	"github.com/teranos/qntx-runtime/services/geolocation"
	"github.com/teranos/qntx-runtime/services/permissions"
	"github.com/teranos/qntx-runtime/window"
)

// headlessHost is the in-memory webview collaborator used when no real
// OS widget is wired in (spec.md §6.4 Non-goals: "no GUI toolkit ... no
// real OS widget is implemented"). It satisfies window.Host by recording
// state instead of rendering anything, so window.Manager and its routes
// are fully exercised in a process with no display.
type headlessHost struct {
	title           string
	width, height   float64
	x, y            float64
	backgroundColor string
}

func newHeadlessHost(opts window.Options) (window.Host, error) {
	return &headlessHost{title: opts.Title, width: opts.Width, height: opts.Height}, nil
}

func (h *headlessHost) Show() error                                { return nil }
func (h *headlessHost) Hide() error                                { return nil }
func (h *headlessHost) Close(code int) error                       { return nil }
func (h *headlessHost) Kill() error                                { return nil }
func (h *headlessHost) Eval(script string) error                   { return nil }
func (h *headlessHost) Send(event string, value interface{}) error { return nil }
func (h *headlessHost) Title() string                              { return h.title }
func (h *headlessHost) Size() (float64, float64)                   { return h.width, h.height }

func (h *headlessHost) Navigate(url string) error { return nil }

func (h *headlessHost) SetSize(width, height float64) error {
	h.width, h.height = width, height
	return nil
}

func (h *headlessHost) SetTitle(title string) error {
	h.title = title
	return nil
}

func (h *headlessHost) Maximize() error { return nil }
func (h *headlessHost) Minimize() error { return nil }
func (h *headlessHost) Restore() error  { return nil }

func (h *headlessHost) BackgroundColor() (string, error) { return h.backgroundColor, nil }

func (h *headlessHost) SetBackgroundColor(color string) error {
	h.backgroundColor = color
	return nil
}

func (h *headlessHost) SetPosition(x, y float64) error {
	h.x, h.y = x, y
	return nil
}

func (h *headlessHost) SetContextMenu(items map[string]string) error { return nil }
func (h *headlessHost) ShowInspector() error                         { return nil }

func (h *headlessHost) ShowFileSystemPicker(opts window.FilePickerOptions) ([]string, error) {
	return nil, fmt.Errorf("no file system picker available on this host")
}

// headlessApplicationHost implements services/application.Host without a
// real desktop shell: fixed screen size, and no-op tray/system menu.
type headlessApplicationHost struct{}

func (headlessApplicationHost) ScreenSize() (float64, float64, error) { return 0, 0, nil }
func (headlessApplicationHost) SetTrayMenu(menu string) error         { return nil }
func (headlessApplicationHost) SetSystemMenu(menu string) error       { return nil }
func (headlessApplicationHost) SetSystemMenuItemEnabled(indexMain, indexSub int, enabled bool) error {
	return nil
}

// headlessBluetoothAdapter implements services/bluetooth.Adapter without a
// real radio: every service "starts" without touching any hardware.
type headlessBluetoothAdapter struct{}

func (headlessBluetoothAdapter) StartService(serviceID string) error { return nil }

// headlessOpener implements services/platform.Opener without an actual
// desktop shell to hand off to.
type headlessOpener struct{}

func (headlessOpener) OpenExternal(url string) error { return nil }
func (headlessOpener) RevealFile(path string) error  { return nil }

// headlessGeo implements services/geolocation.Provider for hosts with no
// real location service: CurrentPosition and WatchPosition both return a
// "geolocation not available" error.
type headlessGeo struct{}

func (headlessGeo) CurrentPosition() (geolocation.Position, error) {
	return geolocation.Position{}, fmt.Errorf("geolocation not available on this host")
}

func (headlessGeo) WatchPosition(onUpdate func(geolocation.Position)) (func(), error) {
	return func() {}, fmt.Errorf("geolocation not available on this host")
}

// headlessPrompter denies every permission request it's asked to
// adjudicate, since there's no native dialog to show.
type headlessPrompter struct{}

func (headlessPrompter) Prompt(name string, payload map[string]string) (permissions.State, error) {
	return permissions.StateDenied, nil
}
