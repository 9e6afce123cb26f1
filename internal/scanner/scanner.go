// Package scanner implements the Scanner (L1) of spec.md §4.B: it walks a
// project tree, parses every Markdown/Typedown file, lifts its fenced code
// blocks into the typed Block AST of internal/model, and emits E01xx
// diagnostics for shallow anti-patterns without needing the Linker.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"typedown/internal/diag"
	"typedown/internal/logging"
	"typedown/internal/model"
	"typedown/internal/provider"
)

// recognisedExt reports whether a path has an extension the compiler scans.
func recognisedExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".td"
}

// Scanner walks a Source Provider and produces parsed Documents.
type Scanner struct {
	md goldmark.Markdown
}

// New returns a ready-to-use Scanner.
func New() *Scanner {
	return &Scanner{md: goldmark.New()}
}

// Result is the output of a project scan.
type Result struct {
	Documents   map[string]*model.Document
	TargetFiles map[string]struct{}
	Diagnostics []diag.Diagnostic
}

// ScanProject enumerates every recognised file under root (honoring
// ignore, a set of directory names to skip) and parses it. root may itself
// be a single file, in which case it is the sole target file.
func (s *Scanner) ScanProject(ctx context.Context, src provider.Source, root string, ignore map[string]bool) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryScanner, "ScanProject")
	defer timer.StopWithInfo()

	result := &Result{
		Documents:   make(map[string]*model.Document),
		TargetFiles: make(map[string]struct{}),
	}

	paths, err := s.discover(root, ignore)
	if err != nil {
		return nil, fmt.Errorf("scanner: discover: %w", err)
	}
	sort.Strings(paths) // deterministic document-walk order

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		result.TargetFiles[path] = struct{}{}
		doc, diags := s.ScanFile(src, path)
		result.Documents[path] = doc
		result.Diagnostics = append(result.Diagnostics, diags...)
	}

	return result, nil
}

// discover walks root on disk to find candidate paths. It intentionally
// walks the OS filesystem directly (rather than through the Source
// Provider) because directory enumeration is not something an in-memory
// overlay can answer on its own; individual file contents are always read
// back through src so unsaved edits still take effect.
func (s *Scanner) discover(root string, ignore map[string]bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if ignore[d.Name()] || (strings.HasPrefix(d.Name(), ".") && d.Name() != ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if recognisedExt(path) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// ScanFile parses a single file and returns its Document plus any E01xx
// diagnostics. A file that cannot be read yields a single E0104 and a
// Document with Truncated set.
func (s *Scanner) ScanFile(src provider.Source, path string) (*model.Document, []diag.Diagnostic) {
	content, err := src.GetContent(path)
	if err != nil {
		logging.Get(logging.CategoryScanner).Warn("could not read %s: %v", path, err)
		return &model.Document{Path: path, Truncated: true}, []diag.Diagnostic{
			diag.Errorf(diag.EFileUnreadable, &model.SourceLocation{FilePath: path}, "could not read file: %v", err),
		}
	}
	return s.parse(path, content)
}

func (s *Scanner) parse(path, content string) (*model.Document, []diag.Diagnostic) {
	var diags []diag.Diagnostic

	fm, body, hadFrontMatter, fmErr := splitFrontMatter([]byte(content))
	if fmErr != nil {
		diags = append(diags, diag.Errorf(diag.EParseFailure, &model.SourceLocation{FilePath: path, LineStart: 1},
			"invalid front-matter YAML: %v", fmErr))
	}
	_ = hadFrontMatter

	doc := &model.Document{Path: path, Raw: content, FrontMatter: fm}
	li := newLineIndex(body)

	root := s.md.Parser().Parse(text.NewReader(body))
	isConfigFile := filepath.Base(path) == "config.td"

	err := gast.Walk(root, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		fence, ok := n.(*gast.FencedCodeBlock)
		if !ok {
			return gast.WalkContinue, nil
		}

		info := ""
		if fence.Info != nil {
			info = string(fence.Info.Segment.Value(body))
		}
		parsed := parseInfoString(info)
		if parsed.Kind == tagNone {
			return gast.WalkSkipChildren, nil
		}

		loc := blockLocation(path, li, fence, body)
		raw := extractBody(fence, body)

		if parsed.Malformed {
			diags = append(diags, diag.Errorf(diag.EParseFailure, &loc,
				"malformed %s block signature %q", tagName(parsed.Kind), info))
			return gast.WalkSkipChildren, nil
		}

		switch parsed.Kind {
		case tagConfig:
			if !isConfigFile {
				diags = append(diags, diag.Errorf(diag.ECfgOutsideConfigFile, &loc,
					"config block found outside config.td"))
			}
			doc.Configs = append(doc.Configs, &model.ConfigBlock{Location: loc, Body: raw})

		case tagModel:
			doc.Models = append(doc.Models, &model.ModelBlock{ID: parsed.ClassName, Location: loc, Body: raw})

		case tagEntity:
			desugared, hadArtefact := desugarNestedList(raw)
			if hadArtefact {
				diags = append(diags, diag.Warnf(diag.ENestedListArtefact, &loc,
					"nested-list reference artefact rewritten in entity %s", parsed.EntityID))
			}
			var data map[string]interface{}
			if yerr := yaml.Unmarshal([]byte(desugared), &data); yerr != nil {
				diags = append(diags, diag.Errorf(diag.EParseFailure, &loc,
					"entity %s: invalid YAML body: %v", parsed.EntityID, yerr))
			}
			eb := &model.EntityBlock{
				ID:        parsed.EntityID,
				ClassName: parsed.ClassName,
				Location:  loc,
				Body:      desugared,
				RawData:   data,
			}
			eb.References = collectStringReferences(data, loc)
			doc.Entities = append(doc.Entities, eb)

		case tagSpec:
			doc.Specs = append(doc.Specs, &model.SpecBlock{ID: parsed.SpecID, Location: loc, Body: raw})
		}

		return gast.WalkSkipChildren, nil
	})
	if err != nil {
		diags = append(diags, diag.Errorf(diag.EParseFailure, &model.SourceLocation{FilePath: path, LineStart: 1},
			"markdown walk failed: %v", err))
		doc.Truncated = true
	}

	// Document references: every [[...]] in the file text, block bodies
	// and front matter included, is attributed to the document itself.
	doc.References = extractReferences(content, model.SourceLocation{FilePath: path, LineStart: 1})

	return doc, diags
}

func tagName(k blockKindTag) string {
	switch k {
	case tagModel:
		return "model"
	case tagEntity:
		return "entity"
	case tagSpec:
		return "spec"
	case tagConfig:
		return "config"
	default:
		return "unknown"
	}
}

func blockLocation(path string, li *lineIndex, fence *gast.FencedCodeBlock, source []byte) model.SourceLocation {
	startLine, startCol := 1, 1
	endLine := startLine
	if fence.Info != nil {
		startLine, startCol = li.lineCol(fence.Info.Segment.Start)
	} else if fence.Lines().Len() > 0 {
		seg := fence.Lines().At(0)
		startLine, startCol = li.lineCol(seg.Start)
	}
	endLine = startLine
	if n := fence.Lines().Len(); n > 0 {
		last := fence.Lines().At(n - 1)
		endLine, _ = li.lineCol(last.Stop - 1)
	}
	return model.SourceLocation{FilePath: path, LineStart: startLine, LineEnd: endLine, ColStart: startCol, ColEnd: startCol}
}

// Lint re-validates the shallow, per-document properties a Scanner can
// check without the Linker: config blocks outside config.td and entity
// bodies still carrying a nested-list artefact. It does not re-parse the
// file; it inspects the already-built Document, so it is cheap enough to
// call on every keystroke in the LSP.
func Lint(doc *model.Document) []diag.Diagnostic {
	var diags []diag.Diagnostic
	isConfigFile := filepath.Base(doc.Path) == "config.td"
	if !isConfigFile {
		for _, cb := range doc.Configs {
			diags = append(diags, diag.Errorf(diag.ECfgOutsideConfigFile, &cb.Location,
				"config block found outside config.td"))
		}
	}
	for _, eb := range doc.Entities {
		if _, hadArtefact := desugarNestedList(eb.Body); hadArtefact {
			diags = append(diags, diag.Warnf(diag.ENestedListArtefact, &eb.Location,
				"nested-list reference artefact in entity %s", eb.ID))
		}
	}
	return diags
}

func extractBody(fence *gast.FencedCodeBlock, source []byte) string {
	var b strings.Builder
	lines := fence.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
