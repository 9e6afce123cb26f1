package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayShadowsDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alice.td")
	require.NoError(t, os.WriteFile(path, []byte("disk content"), 0o644))

	p := NewOverlayProvider(NewDiskSource())
	content, err := p.GetContent(path)
	require.NoError(t, err)
	assert.Equal(t, "disk content", content)

	p.UpdateOverlay(path, "editor content")
	content, err = p.GetContent(path)
	require.NoError(t, err)
	assert.Equal(t, "editor content", content)

	p.ClearOverlay()
	content, err = p.GetContent(path)
	require.NoError(t, err)
	assert.Equal(t, "disk content", content)
}

func TestExistsChecksBothLayers(t *testing.T) {
	dir := t.TempDir()
	onDisk := filepath.Join(dir, "on_disk.td")
	require.NoError(t, os.WriteFile(onDisk, []byte("x"), 0o644))
	unsaved := filepath.Join(dir, "unsaved.td")

	p := NewOverlayProvider(NewDiskSource())
	assert.True(t, p.Exists(onDisk))
	assert.False(t, p.Exists(unsaved))

	p.UpdateOverlay(unsaved, "new file")
	assert.True(t, p.Exists(unsaved))
}

func TestMemoryOnlyRejectsDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.td")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	p := NewMemoryOnlyProvider()
	assert.False(t, p.Exists(path))
	_, err := p.GetContent(path)
	assert.Error(t, err)

	p.UpdateOverlay(path, "hydrated")
	assert.True(t, p.Exists(path))
	content, err := p.GetContent(path)
	require.NoError(t, err)
	assert.Equal(t, "hydrated", content)
}
