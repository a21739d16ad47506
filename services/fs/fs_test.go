package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWriteCloseReadRoundTrip(t *testing.T) {
	svc := New(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "t")

	require.NoError(t, svc.Open(42, path, os.O_WRONLY|os.O_CREAT|os.O_TRUNC, 0o666))
	n, err := svc.Write(42, 0, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, svc.Close(42))

	require.NoError(t, svc.Open(43, path, os.O_RDONLY, 0))
	qr, err := svc.Read(43, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), qr.Body)
	assert.EqualValues(t, 2, qr.Length)
	require.NoError(t, svc.Close(43))
}

func TestGetOpenDescriptorsTracksLifecycle(t *testing.T) {
	svc := New(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "t2")

	require.NoError(t, svc.Open(7, path, os.O_WRONLY|os.O_CREAT, 0o666))
	ids := svc.GetOpenDescriptors()
	assert.Contains(t, ids, uint64(7))

	require.NoError(t, svc.Close(7))
	ids = svc.GetOpenDescriptors()
	assert.NotContains(t, ids, uint64(7))
}

func TestMkdirRecursiveIgnoresIntermediateEEXIST(t *testing.T) {
	svc := New(nil)
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")

	require.NoError(t, svc.Mkdir(filepath.Join(dir, "a"), 0o755, true))
	require.NoError(t, svc.Mkdir(nested, 0o755, true))

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteZeroLengthIsNoop(t *testing.T) {
	svc := New(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "z")
	require.NoError(t, svc.Open(1, path, os.O_WRONLY|os.O_CREAT, 0o666))
	n, err := svc.Write(1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
