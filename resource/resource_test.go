package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveContentURI(t *testing.T) {
	r := NewResolver("com.example.app")
	resolved, ok := r.Resolve("content://media/external/images/1")
	assert.True(t, ok)
	assert.True(t, resolved.Readable)
}

func TestResolveNonAlternateOrigin(t *testing.T) {
	r := NewResolver("com.example.app")
	_, ok := r.Resolve("/tmp/some/real/path")
	assert.False(t, ok)
}

func TestResolveBundledAssetRoot(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver("com.example.app", dir)
	resolved, ok := r.Resolve(dir + "/missing.txt")
	assert.True(t, ok)
	assert.False(t, resolved.Readable)
}
