package project

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// DependencySpec is one entry in typedown.toml's [dependencies] table.
// A dependency is either a local path or a git remote (optionally pinned
// to a ref); exactly one of Path or Git is expected to be set.
type DependencySpec struct {
	Path string `toml:"path"`
	Git  string `toml:"git"`
	Ref  string `toml:"ref"`
}

// ValidationSpec is the [validation] table, spec.md §9's opt-in
// `former` immutability flag lives here.
type ValidationSpec struct {
	EnforceFormerHistory bool `toml:"enforce_former_history"`
}

// manifestFile is the raw decode target for typedown.toml.
type manifestFile struct {
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
	Dependencies map[string]DependencySpec `toml:"dependencies"`
	Scripts      map[string]string         `toml:"scripts"`
	Tasks        map[string]string         `toml:"tasks"`
	Validation   ValidationSpec            `toml:"validation"`
	Prelude      []string                  `toml:"prelude"`
	Ignore       []string                  `toml:"ignore"`
}

// Manifest is the parsed, validated form of typedown.toml.
type Manifest struct {
	ProjectRoot  string
	Members      []string
	Dependencies map[string]DependencySpec
	Scripts      map[string]string
	Tasks        map[string]string
	Validation   ValidationSpec
	Prelude      []string
	Ignore       []string

	hasWorkspace    bool
	hasDependencies bool
}

// HasWorkspace reports whether typedown.toml declared a [workspace] table
// at all, distinguishing "no members" from "no workspace section".
func (m *Manifest) HasWorkspace() bool { return m.hasWorkspace }

// HasDependencies reports whether [dependencies] was present.
func (m *Manifest) HasDependencies() bool { return m.hasDependencies }

// load parses path (a typedown.toml file) into a Manifest, using
// toml.MetaData.IsDefined the way the surge pack's project package does,
// so an absent table reads as "not configured" rather than as an empty
// one — the two cases would otherwise be indistinguishable from a plain
// decode into a zero-valued struct.
func load(path string) (*Manifest, error) {
	var raw manifestFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("%s: parse toml: %w", path, err)
	}

	for name, dep := range raw.Dependencies {
		if strings.TrimSpace(dep.Path) == "" && strings.TrimSpace(dep.Git) == "" {
			return nil, fmt.Errorf("%s: dependency %q needs either path or git", path, name)
		}
		if dep.Path != "" && dep.Git != "" {
			return nil, fmt.Errorf("%s: dependency %q declares both path and git", path, name)
		}
	}

	return &Manifest{
		Members:         raw.Workspace.Members,
		Dependencies:    raw.Dependencies,
		Scripts:         raw.Scripts,
		Tasks:           raw.Tasks,
		Validation:      raw.Validation,
		Prelude:         raw.Prelude,
		Ignore:          raw.Ignore,
		hasWorkspace:    meta.IsDefined("workspace"),
		hasDependencies: meta.IsDefined("dependencies"),
	}, nil
}
