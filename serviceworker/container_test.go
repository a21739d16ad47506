package serviceworker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGetRegistration(t *testing.T) {
	c := NewContainer(nil, nil)
	reg, err := c.Register("https://example.test", Options{
		ScriptURL: "worker.wasm",
		Scope:     "/app",
		Scheme:    "https",
	})
	require.NoError(t, err)
	assert.Equal(t, StateRegistered, reg.State())

	got, err := c.GetRegistration("/app")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, got.ID)
}

func TestRegisterIsIdempotentAtSameScope(t *testing.T) {
	c := NewContainer(nil, nil)
	first, err := c.Register("https://example.test", Options{ScriptURL: "a.wasm", Scope: "/a", Scheme: "*"})
	require.NoError(t, err)
	second, err := c.Register("https://example.test", Options{ScriptURL: "b.wasm", Scope: "/a", Scheme: "*"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindScopePrefersLongestMatch(t *testing.T) {
	c := NewContainer(nil, nil)
	_, err := c.Register("o", Options{ScriptURL: "root.wasm", Scope: "/", Scheme: "*"})
	require.NoError(t, err)
	_, err = c.Register("o", Options{ScriptURL: "app.wasm", Scope: "/app", Scheme: "*"})
	require.NoError(t, err)

	reg, scope := c.findScope("https", "/app/page")
	require.NotNil(t, reg)
	assert.Equal(t, "/app", scope)
}

func TestFetchRequiresActiveRegistrationOrPolls(t *testing.T) {
	c := NewContainer(nil, nil)
	_, err := c.Register("o", Options{ScriptURL: "app.wasm", Scope: "/app", Scheme: "*"})
	require.NoError(t, err)

	// No loop and no emitter configured: fetch against a still-Registered
	// registration should report it tried to poll (true) without panicking.
	ok := c.Fetch(FetchRequest{Scheme: "https", Pathname: "/app/x"}, func(FetchResponse) {})
	assert.True(t, ok)
}

func TestCompleteFetchErasesBothTables(t *testing.T) {
	c := NewContainer(nil, &fakeEmitter{})
	reg, err := c.Register("o", Options{ScriptURL: "app.wasm", Scope: "/app", Scheme: "*"})
	require.NoError(t, err)
	require.NoError(t, c.SetState("/app", StateActivated))
	_ = reg

	var got FetchResponse
	ok := c.Fetch(FetchRequest{Scheme: "https", Pathname: "/app/x"}, func(r FetchResponse) { got = r })
	require.True(t, ok)

	c.mu.Lock()
	var id uint64
	for k := range c.fetchReq {
		id = k
	}
	c.mu.Unlock()

	require.NoError(t, c.CompleteFetch(id, FetchResponse{StatusCode: 200}))
	assert.Equal(t, 200, got.StatusCode)

	_, ok = c.TakeFetchRequest(id)
	assert.False(t, ok)
	err = c.CompleteFetch(id, FetchResponse{})
	assert.Error(t, err)
}

type fakeEmitter struct{}

func (f *fakeEmitter) Emit(*Registration, FetchRequest, uint64) error { return nil }

func TestStorageGetFallsBackToKey(t *testing.T) {
	s := newStorage()
	assert.Equal(t, "missing", s.Get("missing"))
	s.Set("present", "value")
	assert.Equal(t, "value", s.Get("present"))
	s.Remove("present")
	assert.Equal(t, "present", s.Get("present"))
}
