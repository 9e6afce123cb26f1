// Package ideinit implements the `init <name>` command's cold-start
// scaffolding (spec.md §6): a starter typedown.toml, the models/ entities/
// specs/ skeleton directories, and, when Options.VSCode is set, an editor
// settings file pointing at the `lsp` command. Grounded on the teacher's internal/init directory-creation
// pattern (createDirectoryStructure), narrowed from its Type-3-agent and
// knowledge-base machinery to the one thing this compiler's init does:
// lay out files on disk, nothing more.
package ideinit

import (
	"fmt"
	"os"
	"path/filepath"
)

// Result lists what Scaffold created, for the CLI to report back.
type Result struct {
	ProjectRoot  string
	FilesCreated []string
}

// Options controls optional scaffold behavior.
type Options struct {
	// VSCode writes .vscode/settings.json wiring the `typedown lsp` command
	// as this project's language server for .td files.
	VSCode bool
}

var skeletonDirs = []string{
	"models",
	"entities",
	"specs",
}

// Scaffold creates a new typedown project named name rooted at dir. dir must
// already exist; Scaffold only ever creates things beneath it. It refuses to
// overwrite an existing typedown.toml so that `init` is never destructive
// against a project that's already set up.
func Scaffold(dir, name string, opts Options) (*Result, error) {
	manifestPath := filepath.Join(dir, "typedown.toml")
	if _, err := os.Stat(manifestPath); err == nil {
		return nil, fmt.Errorf("refusing to initialize: %s already exists", manifestPath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking %s: %w", manifestPath, err)
	}

	result := &Result{ProjectRoot: dir}

	for _, d := range skeletonDirs {
		full := filepath.Join(dir, d)
		if err := os.MkdirAll(full, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", full, err)
		}
	}

	if err := os.WriteFile(manifestPath, []byte(manifestTemplate(name)), 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", manifestPath, err)
	}
	result.FilesCreated = append(result.FilesCreated, manifestPath)

	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte(gitignoreTemplate), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", gitignorePath, err)
		}
		result.FilesCreated = append(result.FilesCreated, gitignorePath)
	}

	samplePath := filepath.Join(dir, "models", "example.td")
	if err := os.WriteFile(samplePath, []byte(sampleModelTemplate), 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", samplePath, err)
	}
	result.FilesCreated = append(result.FilesCreated, samplePath)

	if opts.VSCode {
		vscodeDir := filepath.Join(dir, ".vscode")
		if err := os.MkdirAll(vscodeDir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", vscodeDir, err)
		}
		settingsPath := filepath.Join(vscodeDir, "settings.json")
		if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
			if err := os.WriteFile(settingsPath, []byte(vscodeSettingsTemplate), 0644); err != nil {
				return nil, fmt.Errorf("writing %s: %w", settingsPath, err)
			}
			result.FilesCreated = append(result.FilesCreated, settingsPath)
		}
	}

	return result, nil
}

func manifestTemplate(name string) string {
	return fmt.Sprintf(`# typedown project manifest
[workspace]
members = ["."]

[scripts]
check = "typedown check --full"

[validation]
enforce_former_history = false

# name = %q
`, name)
}

const gitignoreTemplate = `.typedown/
`

const sampleModelTemplate = "# Example\n\n" +
	"```model:Example\n" +
	"var Result = map[string]interface{}{\n" +
	"\t\"name\": \"Example\",\n" +
	"\t\"fields\": []interface{}{\n" +
	"\t\tmap[string]interface{}{\"name\": \"name\", \"type\": \"string\", \"required\": true},\n" +
	"\t},\n" +
	"}\n" +
	"```\n\n" +
	"```entity Example: first-example\n" +
	"name: First Example\n" +
	"```\n"

const vscodeSettingsTemplate = `{
  "typedown.server.command": "typedown",
  "typedown.server.args": ["lsp"],
  "files.associations": {
    "*.td": "markdown"
  }
}
`
