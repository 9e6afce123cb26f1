package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a fully resolved project: its root, the absolute
// directories contributed by [workspace.members] (the root itself if no
// workspace table is present), and the dependency cache directories the
// Scanner should additionally walk.
type Workspace struct {
	Root         string
	Manifest     *Manifest
	MemberDirs   []string
	DependencyDirs map[string]string // name -> resolved directory
	Missing        map[string]string // name -> human-readable reason
}

// Load discovers the nearest typedown.toml above startDir, parses it, and
// resolves [workspace.members] and [dependencies] against the filesystem.
// Dependencies with a `path` key are resolved relative to the project
// root; `git` dependencies are resolved against the on-disk cache built by
// Fetch and reported Missing when that cache does not yet exist — Load
// never performs network I/O itself.
func Load(startDir string) (*Workspace, error) {
	root, ok, err := FindRoot(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no %s found above %s", ManifestName, startDir)
	}

	manifest, err := LoadManifest(filepath.Join(root, ManifestName))
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		Root:           root,
		Manifest:       manifest,
		DependencyDirs: make(map[string]string),
		Missing:        make(map[string]string),
	}

	if manifest.HasWorkspace() && len(manifest.Members) > 0 {
		for _, m := range manifest.Members {
			dir, err := resolveMember(root, m)
			if err != nil {
				return nil, err
			}
			ws.MemberDirs = append(ws.MemberDirs, dir)
		}
	} else {
		ws.MemberDirs = []string{root}
	}

	for name, dep := range manifest.Dependencies {
		depDir := CacheDir(root, name)
		info, statErr := os.Stat(depDir)
		switch {
		case dep.Path != "":
			resolved := filepath.Clean(filepath.Join(root, dep.Path))
			if !pathWithin(root, resolved) {
				return nil, fmt.Errorf("dependency %q: path %q escapes project root", name, dep.Path)
			}
			if st, err := os.Stat(resolved); err != nil || !st.IsDir() {
				ws.Missing[name] = fmt.Sprintf("dependency %q: path %q does not exist", name, dep.Path)
				continue
			}
			ws.DependencyDirs[name] = resolved
		case statErr != nil || !info.IsDir():
			ws.Missing[name] = fmt.Sprintf("dependency %q declared with git=%q but not fetched", name, dep.Git)
		default:
			ws.DependencyDirs[name] = depDir
		}
	}

	return ws, nil
}

// LoadManifest is Load's single-file counterpart, exposed so callers that
// already know the manifest path (the `init` scaffolder, tests) don't
// need to re-walk the filesystem.
func LoadManifest(path string) (*Manifest, error) {
	return load(path)
}

func resolveMember(root, member string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(member))
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("workspace member %q must be a relative path", member)
	}
	dir := filepath.Join(root, clean)
	if !pathWithin(root, dir) {
		return "", fmt.Errorf("workspace member %q escapes project root", member)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("workspace member %q: %w", member, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace member %q is not a directory", member)
	}
	return dir, nil
}

// CacheDir is where a named git dependency is fetched to: a project-local
// cache directory, never the user's home or a shared location, so two
// projects' dependency caches never collide.
func CacheDir(projectRoot, name string) string {
	return filepath.Join(projectRoot, ".typedown", "deps", name)
}

// AllSourceDirs is the full set of directories the Scanner should walk:
// every workspace member plus every resolved dependency.
func (w *Workspace) AllSourceDirs() []string {
	dirs := make([]string, 0, len(w.MemberDirs)+len(w.DependencyDirs))
	dirs = append(dirs, w.MemberDirs...)
	for _, dir := range w.DependencyDirs {
		dirs = append(dirs, dir)
	}
	return dirs
}
