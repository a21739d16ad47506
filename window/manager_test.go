package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	title string
}

func (h *fakeHost) Show() error                             { return nil }
func (h *fakeHost) Hide() error                              { return nil }
func (h *fakeHost) Close(code int) error                     { return nil }
func (h *fakeHost) Kill() error                               { return nil }
func (h *fakeHost) Eval(script string) error                  { return nil }
func (h *fakeHost) Send(event string, value interface{}) error { return nil }
func (h *fakeHost) Title() string                              { return h.title }
func (h *fakeHost) Size() (float64, float64)                   { return 800, 600 }

func (h *fakeHost) Navigate(url string) error                    { return nil }
func (h *fakeHost) SetSize(width, height float64) error           { return nil }
func (h *fakeHost) SetTitle(title string) error                   { return nil }
func (h *fakeHost) Maximize() error                               { return nil }
func (h *fakeHost) Minimize() error                               { return nil }
func (h *fakeHost) Restore() error                                { return nil }
func (h *fakeHost) BackgroundColor() (string, error)              { return "", nil }
func (h *fakeHost) SetBackgroundColor(color string) error         { return nil }
func (h *fakeHost) SetPosition(x, y float64) error                { return nil }
func (h *fakeHost) SetContextMenu(items map[string]string) error  { return nil }
func (h *fakeHost) ShowInspector() error                          { return nil }
func (h *fakeHost) ShowFileSystemPicker(opts FilePickerOptions) ([]string, error) {
	return nil, nil
}

func TestCreateWindowAssignsIndex(t *testing.T) {
	m := NewManager("")
	w, err := m.CreateWindow(Options{Index: 0, Title: "main"}, &fakeHost{title: "main"})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, w.Status())
	assert.Equal(t, 0, w.Index)
}

func TestCreateWindowOutOfRangeFails(t *testing.T) {
	m := NewManager("")
	_, err := m.CreateWindow(Options{Index: MaxWindows + MaxWindowsReserved}, nil)
	assert.Error(t, err)
}

func TestStatusAdvancesMonotonicallyThroughLifecycle(t *testing.T) {
	m := NewManager("")
	w, err := m.CreateWindow(Options{Index: 1, CanExit: false}, &fakeHost{})
	require.NoError(t, err)

	require.NoError(t, w.Show())
	assert.Equal(t, StatusShown, w.Status())

	require.NoError(t, w.Hide())
	assert.Equal(t, StatusHidden, w.Status())

	require.NoError(t, w.Close(0))
	assert.Equal(t, StatusClosed, w.Status())

	ok, err := w.Kill()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StatusKilled, w.Status())

	// Killing an already-killed window is a no-op, not an error.
	ok, err = w.Kill()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDestroyWindowFreesSlot(t *testing.T) {
	m := NewManager("")
	_, err := m.CreateWindow(Options{Index: 2}, &fakeHost{})
	require.NoError(t, err)
	require.NoError(t, m.DestroyWindow(2))
	assert.Equal(t, StatusNone, m.GetWindowStatus(2))
}

func TestUserConfigRoundTripsThroughPersistence(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	w, err := m.CreateWindow(Options{Index: 3}, &fakeHost{})
	require.NoError(t, err)
	w.SetUserConfig("theme", "dark")

	require.NoError(t, m.DestroyWindow(3))

	m2 := NewManager(dir)
	w2, err := m2.CreateWindow(Options{Index: 3}, &fakeHost{})
	require.NoError(t, err)
	value, ok := w2.UserConfig("theme")
	require.True(t, ok)
	assert.Equal(t, "dark", value)
}
