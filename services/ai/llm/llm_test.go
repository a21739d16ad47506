package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempModel(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake-gguf"), 0o644))
	return path
}

func TestModelLoadResolvesSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeTempModel(t, dir, "tiny.gguf")

	svc := New([]string{dir}, nil)
	m, err := svc.ModelLoad(context.Background(), "tiny.gguf", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tiny.gguf"), m.Path)
	assert.True(t, m.loaded)
}

func TestModelLoadMissingReturnsNotFound(t *testing.T) {
	svc := New([]string{t.TempDir()}, nil)
	_, err := svc.ModelLoad(context.Background(), "absent.gguf", "")
	require.Error(t, err)
}

func TestModelLoadVersionConstraint(t *testing.T) {
	dir := t.TempDir()
	path := writeTempModel(t, dir, "tagged.gguf")
	require.NoError(t, os.WriteFile(path+".version", []byte("1.2.0\n"), 0o644))

	svc := New([]string{dir}, nil)

	_, err := svc.ModelLoad(context.Background(), "tagged.gguf", ">=2.0.0")
	require.Error(t, err, "1.2.0 does not satisfy >=2.0.0")

	m, err := svc.ModelLoad(context.Background(), "tagged.gguf", ">=1.0.0 <2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", m.Version.String())
}

func TestContextCreateDestroyAndInfo(t *testing.T) {
	dir := t.TempDir()
	writeTempModel(t, dir, "m.gguf")
	svc := New([]string{dir}, nil)
	m, err := svc.ModelLoad(context.Background(), "m.gguf", "")
	require.NoError(t, err)

	c, err := m.ContextCreate(ContextOptions{ContextSize: 4096})
	require.NoError(t, err)
	info := c.Info()
	assert.EqualValues(t, uint32(4096), info["contextSize"])

	require.NoError(t, m.ContextDestroy(c.ID))
	_, err = m.GetContext(c.ID)
	assert.Error(t, err)
}

func TestContextDumpRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeTempModel(t, dir, "m.gguf")
	svc := New([]string{dir}, nil)
	m, err := svc.ModelLoad(context.Background(), "m.gguf", "")
	require.NoError(t, err)
	c, err := m.ContextCreate(ContextOptions{})
	require.NoError(t, err)

	_, err = c.Dump()
	assert.Error(t, err, "no state yet")

	_, err = c.Generate("hello", GenerateOptions{MaxTokens: 3})
	require.NoError(t, err)

	blob, err := c.Dump()
	require.NoError(t, err)
	require.NoError(t, c.Restore(blob))
}

func TestLoRALoadSearchChainAndAttachDetach(t *testing.T) {
	dir := t.TempDir()
	adapterDir := filepath.Join(dir, "loras")
	require.NoError(t, os.Mkdir(adapterDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(adapterDir, "style.lora"), []byte("fake-adapter"), 0o644))

	modelDir := t.TempDir()
	writeTempModel(t, modelDir, "m.gguf")
	svc := New([]string{modelDir}, nil)
	model, err := svc.ModelLoad(context.Background(), "m.gguf", "")
	require.NoError(t, err)
	c, err := model.ContextCreate(ContextOptions{})
	require.NoError(t, err)

	l, err := svc.LoRALoad("style.lora", LoRAOptions{Directory: adapterDir}, "")
	require.NoError(t, err)
	assert.True(t, l.Loaded())
	assert.Equal(t, filepath.Join(adapterDir, "style.lora"), l.Filename)

	require.NoError(t, c.Attach(l))
	assert.Error(t, c.Attach(l), "duplicate attach must fail")

	require.NoError(t, c.Detach(l.ID))
	assert.Error(t, c.Detach(l.ID), "double detach must report not found")
}

func TestLoRALoadMissingReturnsError(t *testing.T) {
	svc := New(nil, nil)
	_, err := svc.LoRALoad("missing.lora", LoRAOptions{}, "")
	require.Error(t, err)
}

func TestGenerateStreamDeliversEveryToken(t *testing.T) {
	dir := t.TempDir()
	writeTempModel(t, dir, "m.gguf")
	svc := New([]string{dir}, nil)
	m, err := svc.ModelLoad(context.Background(), "m.gguf", "")
	require.NoError(t, err)
	c, err := m.ContextCreate(ContextOptions{})
	require.NoError(t, err)

	var tokens []string
	err = c.GenerateStream("hi", GenerateOptions{MaxTokens: 4}, func(tok string) {
		tokens = append(tokens, tok)
	})
	require.NoError(t, err)
	assert.Len(t, tokens, 4)
}
