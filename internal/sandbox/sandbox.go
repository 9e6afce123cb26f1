// Package sandbox implements the Linker's embedded scripting environment
// (spec.md §4.B): model and config block bodies are Go source evaluated by
// an embedded interpreter rather than compiled, so a malformed or hostile
// block body can never hang `go build`, crash the host process, or touch
// the filesystem/network/process-control surface. Grounded directly on the
// teacher's internal/autopoiesis YaegiExecutor.
package sandbox

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Violation is returned when a block body imports a package outside the
// sandbox's allow-list. Callers map it to E0221 (model) or E0222 (config)
// depending on which stage invoked Eval.
type Violation struct {
	Imports []string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("sandbox violation: disallowed imports %v", v.Imports)
}

// envImportPath is the synthetic import path sandboxed code uses to read
// the cascaded name environment passed into Eval.
const envImportPath = "typedown/env"

// DefaultAllowedPackages is the standard-library allow-list: utility
// packages with no ambient authority. Deliberately excludes os, os/exec,
// net, net/http, syscall, unsafe, and plugin.
func DefaultAllowedPackages() map[string]bool {
	return map[string]bool{
		"strings":         true,
		"strconv":         true,
		"fmt":             true,
		"math":            true,
		"regexp":          true,
		"encoding/json":   true,
		"encoding/base64": true,
		"time":            true,
		"sort":            true,
		"bytes":           true,
		"errors":          true,
		"unicode":         true,
		"unicode/utf8":    true,
		"path":            true,
		"path/filepath":   true,
	}
}

// Sandbox evaluates model/config block bodies under an import allow-list.
type Sandbox struct {
	allowed map[string]bool
}

// New returns a Sandbox restricted to allowed.
func New(allowed map[string]bool) *Sandbox {
	return &Sandbox{allowed: allowed}
}

// Default returns a Sandbox using DefaultAllowedPackages.
func Default() *Sandbox {
	return New(DefaultAllowedPackages())
}

// validateImports rejects any imported package not on the allow-list. The
// scan is textual, not AST-based, mirroring the teacher's YaegiExecutor —
// a deliberately cheap first line of defense; yaegi itself refuses to
// resolve a package it was never given symbols for, so a textual bypass
// still fails at Eval time with an unresolved-import error.
func (s *Sandbox) validateImports(code string) error {
	var imports []string
	inBlock := false
	for _, raw := range strings.Split(code, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "import ("):
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock:
			imports = append(imports, cleanImport(line))
		case strings.HasPrefix(line, "import "):
			imports = append(imports, cleanImport(strings.TrimPrefix(line, "import ")))
		}
	}

	var forbidden []string
	for _, pkg := range imports {
		if pkg == "" || pkg == envImportPath {
			continue
		}
		if !s.allowed[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return &Violation{Imports: forbidden}
	}
	return nil
}

func cleanImport(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		// aliased import: `alias "path"`
		s = s[i+1:]
	}
	return strings.Trim(strings.TrimSpace(s), `"`)
}

func wrapCode(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return "package main\n\n" + code
}

// Eval runs code with preset injected as the `typedown/env` package (each
// binding exposed as an exported identifier) and returns the value of its
// top-level `var Result` declaration. Every embedded block — model or
// config — follows this one convention so the Linker's extraction logic
// stays uniform across both.
func (s *Sandbox) Eval(ctx context.Context, code string, preset map[string]interface{}) (interface{}, error) {
	if err := s.validateImports(code); err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	// stdlib.Symbols keys are "<import path>/<package name>".
	symbols := interp.Exports{}
	for key, pkg := range stdlib.Symbols {
		if s.allowed[path.Dir(key)] {
			symbols[key] = pkg
		}
	}
	if err := i.Use(symbols); err != nil {
		return nil, fmt.Errorf("sandbox: load stdlib: %w", err)
	}
	if err := i.Use(envExports(preset)); err != nil {
		return nil, fmt.Errorf("sandbox: load env bindings: %w", err)
	}

	type evalResult struct {
		val reflect.Value
		err error
	}
	done := make(chan evalResult, 1)
	go func() {
		if _, err := i.Eval(wrapCode(code)); err != nil {
			done <- evalResult{err: fmt.Errorf("sandbox: evaluation failed: %w", err)}
			return
		}
		val, err := i.Eval("main.Result")
		if err != nil {
			done <- evalResult{err: fmt.Errorf("sandbox: block body did not declare var Result: %w", err)}
			return
		}
		done <- evalResult{val: val}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return r.val.Interface(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("sandbox: execution timed out: %w", ctx.Err())
	}
}

// envExports builds the synthetic `typedown/env` package exposing preset as
// capitalized, exported Go identifiers so sandboxed code can read the
// cascaded name environment via `env.Name`.
func envExports(preset map[string]interface{}) interp.Exports {
	pkg := make(map[string]reflect.Value, len(preset))
	for name, value := range preset {
		pkg[exportName(name)] = reflect.ValueOf(value)
	}
	return interp.Exports{envImportPath + "/env": pkg}
}

func exportName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
