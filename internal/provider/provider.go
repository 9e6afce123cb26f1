// Package provider implements the Source Provider (spec.md §4.A): an
// abstract read layer composed as an overlay (in-memory, for unsaved LSP
// edits) wrapping a disk backend, so the Scanner and Linker never need to
// know whether a file's content came from disk or from an open editor
// buffer.
package provider

import (
	"fmt"
	"os"
	"sync"

	"typedown/internal/logging"
)

// Source is the interface the Scanner and Linker read through.
type Source interface {
	// Exists reports whether path can currently be read.
	Exists(path string) bool
	// GetContent returns the text content of path.
	GetContent(path string) (string, error)
}

// DiskSource reads files straight from the filesystem.
type DiskSource struct{}

// NewDiskSource returns a Source backed by the OS filesystem.
func NewDiskSource() *DiskSource { return &DiskSource{} }

func (DiskSource) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (DiskSource) GetContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("provider: read %s: %w", path, err)
	}
	return string(data), nil
}

// memoryOnlySource rejects every disk access; used when a project is
// hydrated purely from an LSP loadProject notification.
type memoryOnlySource struct{}

func (memoryOnlySource) Exists(string) bool                  { return false }
func (memoryOnlySource) GetContent(path string) (string, error) {
	return "", fmt.Errorf("provider: memory-only mode, no disk access for %s", path)
}

// OverlayProvider composes an in-memory overlay over a disk (or
// memory-only) backend. The overlay always wins when an entry is present.
type OverlayProvider struct {
	mu      sync.RWMutex
	overlay map[string]string
	backend Source
}

// NewOverlayProvider wraps backend with an empty overlay.
func NewOverlayProvider(backend Source) *OverlayProvider {
	return &OverlayProvider{overlay: make(map[string]string), backend: backend}
}

// NewMemoryOnlyProvider returns an OverlayProvider whose backend rejects all
// disk reads — the mode used to hydrate a project purely via
// typedown/loadProject.
func NewMemoryOnlyProvider() *OverlayProvider {
	return NewOverlayProvider(memoryOnlySource{})
}

// Exists reports whether path resolves via the overlay or the backend.
func (p *OverlayProvider) Exists(path string) bool {
	p.mu.RLock()
	_, ok := p.overlay[path]
	p.mu.RUnlock()
	if ok {
		return true
	}
	return p.backend.Exists(path)
}

// GetContent returns the overlay entry for path if present, else falls
// through to the backend.
func (p *OverlayProvider) GetContent(path string) (string, error) {
	p.mu.RLock()
	content, ok := p.overlay[path]
	p.mu.RUnlock()
	if ok {
		return content, nil
	}
	return p.backend.GetContent(path)
}

// UpdateOverlay replaces the in-memory entry for path, shadowing disk.
func (p *OverlayProvider) UpdateOverlay(path, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay[path] = content
	logging.Get(logging.CategoryProvider).Debug("overlay updated: %s (%d bytes)", path, len(content))
}

// ClearOverlay drops every overlay entry, reverting every path to its
// backend content.
func (p *OverlayProvider) ClearOverlay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay = make(map[string]string)
	logging.Get(logging.CategoryProvider).Debug("overlay cleared")
}

// OverlaidPaths returns the set of paths currently shadowed by the overlay,
// used by the scanner to know which paths it must treat as already-read
// even under memory-only mode.
func (p *OverlayProvider) OverlaidPaths() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	paths := make([]string, 0, len(p.overlay))
	for path := range p.overlay {
		paths = append(paths, path)
	}
	return paths
}
