package navigator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/qntx-runtime/resource"
	"github.com/teranos/qntx-runtime/serviceworker"
)

func TestResolveServesBundledAssetRoot(t *testing.T) {
	dir := t.TempDir()
	assetPath := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(assetPath, []byte("<html></html>"), 0o644))

	res := resource.NewResolver("com.example.app", dir)
	nav := NewResolver(res, nil)

	got := nav.Resolve("https", assetPath)
	assert.Equal(t, ServeResource, got.Decision)
	assert.True(t, got.Resolved.Readable)
}

func TestResolveRoutesToServiceWorkerScope(t *testing.T) {
	res := resource.NewResolver("com.example.app")
	workers := serviceworker.NewContainer(nil, nil)
	_, err := workers.Register("https://example.com", serviceworker.Options{
		Scope:  "/api",
		Scheme: "https",
	})
	require.NoError(t, err)

	nav := NewResolver(res, workers)
	got := nav.Resolve("https", "/api/widgets")
	assert.Equal(t, ServeWorker, got.Decision)
	assert.Equal(t, "/api", got.Scope)
}

func TestResolveRejectsUnknownPath(t *testing.T) {
	res := resource.NewResolver("com.example.app")
	nav := NewResolver(res, nil)

	got := nav.Resolve("https", "/nowhere")
	assert.Equal(t, Reject, got.Decision)
}

func TestMountTakesPrecedenceOverLongerPathNoMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("x"), 0o644))

	res := resource.NewResolver("com.example.app", dir)
	nav := NewResolver(res, nil)
	nav.Mount("/app", dir)

	got := nav.Resolve("https", "/app/index.html")
	assert.Equal(t, ServeResource, got.Decision)
}
