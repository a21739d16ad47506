package extension

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/qntx-runtime/services/process"
)

func TestDiscoverFindsExecutableByConventionalName(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable-bit convention is POSIX-specific")
	}
	dir := t.TempDir()
	binary := filepath.Join(dir, "qntx-runtime-camera-extension")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755))

	desc, err := Discover("camera", []string{dir})
	require.NoError(t, err)
	assert.Equal(t, binary, desc.Binary)
}

func TestDiscoverSkipsNonExecutableFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable-bit convention is POSIX-specific")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "camera"), []byte("not executable"), 0o644))

	_, err := Discover("camera", []string{dir})
	assert.Error(t, err)
}

func TestDiscoverNotFoundAcrossEmptyPaths(t *testing.T) {
	_, err := Discover("nonexistent", []string{t.TempDir(), t.TempDir()})
	assert.Error(t, err)
}

func TestUnloadUnknownExtensionErrors(t *testing.T) {
	h := NewHost(process.New())
	err := h.Unload("never-loaded")
	assert.Error(t, err)
}

func TestTypeUnknownExtensionErrors(t *testing.T) {
	h := NewHost(process.New())
	_, err := h.Type("never-loaded")
	assert.Error(t, err)
}

func TestStatsEmptyByDefault(t *testing.T) {
	h := NewHost(process.New())
	assert.Empty(t, h.Stats())
}
