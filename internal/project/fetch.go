package project

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// FetchTimeout bounds a single dependency clone.
const FetchTimeout = 60 * time.Second

// Fetch clones every `git`-declared dependency in manifest that is not
// already present under its cache directory, shelling out to the system
// git binary rather than vendoring a Go git implementation — the same
// thin os/exec-wrapper shape the teacher uses for every external process
// it runs (internal/tactile's DirectExecutor), just narrowed to one fixed
// command instead of an arbitrary one. A shallow, depth-1 clone is used;
// when Ref is set, a second `git checkout` pins it, since `git clone
// --depth 1` cannot target an arbitrary ref directly for all providers.
func Fetch(ctx context.Context, root string, manifest *Manifest) error {
	for name, dep := range manifest.Dependencies {
		if dep.Git == "" {
			continue
		}
		dir := CacheDir(root, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			continue
		}
		if err := cloneOne(ctx, dir, dep); err != nil {
			return fmt.Errorf("dependency %q: %w", name, err)
		}
	}
	return nil
}

func cloneOne(ctx context.Context, dir string, dep DependencySpec) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	args := []string{"clone", "--depth", "1"}
	if dep.Ref != "" {
		args = append(args, "--branch", dep.Ref)
	}
	args = append(args, dep.Git, dir)

	if err := runGit(cloneCtx, "", args...); err != nil {
		os.RemoveAll(dir)
		if dep.Ref == "" {
			return err
		}
		// --branch takes only branch and tag names; for a commit SHA,
		// clone the default branch and fetch the ref below.
		if err := runGit(cloneCtx, "", "clone", "--depth", "1", dep.Git, dir); err != nil {
			os.RemoveAll(dir)
			return err
		}
	}

	if dep.Ref == "" {
		return nil
	}
	// --branch already checked out a matching branch/tag; a bare commit
	// SHA still needs an explicit checkout since depth-1 clones can't
	// target one directly.
	if err := runGit(ctx, dir, "rev-parse", "--verify", "--quiet", dep.Ref); err == nil {
		return nil
	}
	if err := runGit(ctx, dir, "fetch", "--depth", "1", "origin", dep.Ref); err != nil {
		return err
	}
	return runGit(ctx, dir, "checkout", "FETCH_HEAD")
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %v: %w: %s", args, err, stderr.String())
	}
	return nil
}
