// Package compiler wires the Scanner, Linker, Dependency Graph, Validator
// and Query Engine into the single `compile()` call spec.md §4 describes as
// the compiler's external contract. Nothing in here is itself a pipeline
// stage; it is the orchestration glue each stage's own package leaves
// unaddressed, grounded the same way the teacher's cmd_init_scan.go drives
// its own multi-phase pipeline from one top-level function rather than
// leaving callers to sequence the phases themselves.
package compiler

import (
	"context"

	"typedown/internal/diag"
	"typedown/internal/linker"
	"typedown/internal/model"
	"typedown/internal/project"
	"typedown/internal/provider"
	"typedown/internal/query"
	"typedown/internal/sandbox"
	"typedown/internal/scanner"
	"typedown/internal/symtab"
	"typedown/internal/validator"
)

// Stage identifies how far a Compile call was asked to run, mirroring the
// `check [stage]` CLI argument (spec.md §6).
type Stage int

const (
	StageSyntax Stage = iota
	StageStructure
	StageLocal
	StageGlobal
	StageFull
)

// Options controls one Compile call.
type Options struct {
	Root    string // project root (single file or directory)
	Ignore  map[string]bool
	Prelude []string
	Stage   Stage // how far to run; StageFull runs every sub-stage including specs
}

// Result is the full compiled state of one project, kept around so the LSP
// can answer hover/definition/completion queries without recompiling.
type Result struct {
	Documents   map[string]*model.Document
	Table       *symtab.Table
	Query       *query.Engine
	Diagnostics []diag.Diagnostic
}

// Compile runs the pipeline against src up to opts.Stage, returning the
// full compiled Result. A stage that adds an error-level diagnostic stops
// the pipeline there; later stages do not run. It never returns a Go error for a compilation
// problem — those are diagnostics — only for I/O failure severe enough
// that no Result can be built at all (an unreadable root).
func Compile(ctx context.Context, src provider.Source, opts Options) (*Result, error) {
	table := symtab.New(opts.Root)
	sb := sandbox.Default()

	sc := scanner.New()
	scanResult, err := sc.ScanProject(ctx, src, opts.Root, opts.Ignore)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Documents:   scanResult.Documents,
		Table:       table,
		Diagnostics: append([]diag.Diagnostic(nil), scanResult.Diagnostics...),
	}

	if opts.Stage == StageSyntax || result.ExitCode() != 0 {
		return result, nil
	}

	lk := linker.New(sb)
	linkDiags := lk.Link(ctx, scanResult.Documents, table, opts.Prelude, opts.Root)
	result.Diagnostics = append(result.Diagnostics, linkDiags...)

	entities := table.IterEntities()

	result.Diagnostics = append(result.Diagnostics, validator.Schema(entities)...)

	if opts.Stage == StageStructure || result.ExitCode() != 0 {
		return result, nil
	}

	result.Diagnostics = append(result.Diagnostics, validator.Local(entities)...)

	if opts.Stage == StageLocal || result.ExitCode() != 0 {
		return result, nil
	}

	qe := query.New(table).WithProjectRoot(opts.Root)
	result.Query = qe
	result.Diagnostics = append(result.Diagnostics, validator.Global(entities, table, qe)...)

	if opts.Stage == StageGlobal || result.ExitCode() != 0 {
		return result, nil
	}

	var specs []*model.SpecBlock
	for _, doc := range scanResult.Documents {
		specs = append(specs, doc.Specs...)
	}
	result.Diagnostics = append(result.Diagnostics, validator.Specs(ctx, specs, table, sb, sandbox.RootEnv())...)

	return result, nil
}

// CompileWorkspace loads the typedown.toml rooted at or above dir (if any)
// and compiles every workspace member, merging diagnostics into one Result
// keyed across all member documents. Used by the CLI and LSP's
// typedown/loadProject entry point, where "the project" means whatever the
// manifest's [workspace.members] declares rather than a single directory.
func CompileWorkspace(ctx context.Context, src provider.Source, dir string, stage Stage) (*Result, *project.Workspace, error) {
	ws, err := project.Load(dir)
	if err != nil {
		return nil, nil, err
	}

	merged := &Result{
		Documents: make(map[string]*model.Document),
	}

	var prelude []string
	var ignore map[string]bool
	if ws.Manifest != nil {
		prelude = ws.Manifest.Prelude
		if len(ws.Manifest.Ignore) > 0 {
			ignore = make(map[string]bool, len(ws.Manifest.Ignore))
			for _, name := range ws.Manifest.Ignore {
				ignore[name] = true
			}
		}
	}

	for _, memberDir := range ws.MemberDirs {
		r, err := Compile(ctx, src, Options{Root: memberDir, Ignore: ignore, Prelude: prelude, Stage: stage})
		if err != nil {
			return nil, ws, err
		}
		for path, doc := range r.Documents {
			merged.Documents[path] = doc
		}
		merged.Diagnostics = append(merged.Diagnostics, r.Diagnostics...)
		if r.Table != nil {
			merged.Table = r.Table
		}
		if r.Query != nil {
			merged.Query = r.Query
		}
	}

	return merged, ws, nil
}

// ExitCode implements the CLI's 0/1 contract: 1 if any diagnostic is
// error-level, 0 otherwise. Exit code 2 is reserved for bad CLI
// arguments and is never returned here.
func (r *Result) ExitCode() int {
	for _, d := range r.Diagnostics {
		if d.Level == diag.LevelError {
			return 1
		}
	}
	return 0
}
