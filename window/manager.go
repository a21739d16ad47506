package window

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/teranos/qntx-runtime/rterr"
	"gopkg.in/yaml.v3"
)

// Manager owns the bounded windows[0..MaxWindows+MaxWindowsReserved)
// registry (manager.cc's WindowManager).
type Manager struct {
	mu        sync.Mutex
	windows   []*Window
	destroyed bool
	configDir string // where per-window userConfig YAML files are persisted
}

// NewManager constructs an empty, fixed-size registry.
func NewManager(configDir string) *Manager {
	return &Manager{
		windows:   make([]*Window, MaxWindows+MaxWindowsReserved),
		configDir: configDir,
	}
}

func (m *Manager) inBounds(index int) bool {
	return index >= 0 && index < len(m.windows)
}

// GetWindow returns the window at index, or nil if none exists there or
// it has reached Exiting or a later status (mirroring getWindow(index,
// WINDOW_EXITING)'s default threshold).
func (m *Manager) GetWindow(index int) *Window {
	return m.GetWindowBelow(index, StatusExiting)
}

// GetWindowBelow mirrors the two-argument getWindow: only returns the
// window if its status is strictly below threshold.
func (m *Manager) GetWindowBelow(index int, threshold Status) *Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || !m.inBounds(index) {
		return nil
	}
	w := m.windows[index]
	if w == nil {
		return nil
	}
	if w.Status() > StatusNone && w.Status() < threshold {
		return w
	}
	return nil
}

// GetWindowStatus returns the window's current status, or None if the
// slot is empty or out of range.
func (m *Manager) GetWindowStatus(index int) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || !m.inBounds(index) {
		return StatusNone
	}
	if w := m.windows[index]; w != nil {
		return w.Status()
	}
	return StatusNone
}

// CreateWindow implements createWindow: allocates a Window at
// options.Index if the slot is free, loading any previously persisted
// userConfig for that index.
func (m *Manager) CreateWindow(opts Options, host Host) (*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || !m.inBounds(opts.Index) {
		return nil, rterr.OutOfRange("window index %d is out of range", opts.Index)
	}
	if existing := m.windows[opts.Index]; existing != nil {
		return existing, nil
	}

	w := newWindow(opts.Index, opts, host)
	if persisted, err := m.loadUserConfig(opts.Index); err == nil {
		w.setUserConfigMap(persisted)
	}
	w.status = StatusCreated
	m.windows[opts.Index] = w
	return w, nil
}

// GetOrCreateWindow implements getOrCreateWindow.
func (m *Manager) GetOrCreateWindow(index int, opts Options, host Host) (*Window, error) {
	if m.GetWindowStatus(index) == StatusNone {
		opts.Index = index
		return m.CreateWindow(opts, host)
	}
	return m.GetWindow(index), nil
}

// DestroyWindow implements destroyWindow: closes then kills the window
// if it has not already progressed that far, then frees the slot.
func (m *Manager) DestroyWindow(index int) error {
	m.mu.Lock()
	w := m.windows[index]
	m.mu.Unlock()
	if w == nil {
		return nil
	}
	if w.Status() < StatusClosing {
		if err := w.Close(0); err != nil {
			return err
		}
	}
	if w.Status() < StatusKilling {
		if _, err := w.Kill(); err != nil {
			return err
		}
	}
	if err := m.persistUserConfig(w); err != nil {
		return err
	}

	m.mu.Lock()
	m.windows[index] = nil
	m.mu.Unlock()
	return nil
}

// Destroy tears down every managed window, mirroring
// WindowManager::destroy.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	for i := range m.windows {
		m.windows[i] = nil
	}
	m.destroyed = true
}

// JSON implements window.json: the set of windows at indices, in order.
func (m *Manager) JSON(indices []int) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(indices))
	for _, idx := range indices {
		if w := m.GetWindow(idx); w != nil {
			out = append(out, w.JSON())
		}
	}
	return out
}

type persistedConfig struct {
	Values map[string]string `yaml:"values"`
}

func (m *Manager) configPath(index int) string {
	return filepath.Join(m.configDir, "window-"+strconv.Itoa(index)+".yaml")
}

func (m *Manager) loadUserConfig(index int) (map[string]string, error) {
	if m.configDir == "" {
		return nil, rterr.NotFound("no window config directory configured")
	}
	data, err := os.ReadFile(m.configPath(index))
	if err != nil {
		return nil, rterr.NotFound("no persisted config for window %d", index)
	}
	var pc persistedConfig
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return nil, rterr.Internal("parsing window %d config: %v", index, err)
	}
	return pc.Values, nil
}

// persistUserConfig writes the window's accumulated userConfig to its
// YAML sidecar file.
func (m *Manager) persistUserConfig(w *Window) error {
	if m.configDir == "" {
		return nil
	}
	values := w.snapshotUserConfig()
	if len(values) == 0 {
		return nil
	}
	data, err := yaml.Marshal(persistedConfig{Values: values})
	if err != nil {
		return rterr.Internal("marshaling window %d config: %v", w.Index, err)
	}
	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return rterr.Internal("creating window config directory: %v", err)
	}
	if err := os.WriteFile(m.configPath(w.Index), data, 0o644); err != nil {
		return rterr.Internal("writing window %d config: %v", w.Index, err)
	}
	return nil
}
