// Package query implements the Query Engine (spec.md §4.F): a pure
// function over (query_string, symbol_table, context_path) that resolves a
// reference into a value, and the recursive reference-substitution walker
// the Validator's Global stage uses to materialise `resolved_data`.
package query

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"typedown/internal/diag"
	"typedown/internal/model"
	"typedown/internal/symtab"
)

// ReferenceError means the root identifier of a query did not resolve to
// anything in the symbol table — maps to E0341.
type ReferenceError struct {
	Query string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference not found: %q", e.Query)
}

// QueryError means the root resolved but the property path could not be
// walked to completion — maps to E0365.
type QueryError struct {
	Query  string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %s", e.Query, e.Reason)
}

// Engine resolves reference strings against a symbol table.
type Engine struct {
	table       *symtab.Table
	projectRoot string
	resources   map[string]string
}

// New returns an Engine backed by table.
func New(table *symtab.Table) *Engine {
	return &Engine{table: table, resources: map[string]string{}}
}

// WithProjectRoot enables the asset-path fallback tier (see ResolveAsset)
// against root, for a query that fails symbol-table resolution entirely.
func (e *Engine) WithProjectRoot(root string) *Engine {
	e.projectRoot = root
	return e
}

// RegisterResource pre-binds name to path, giving it priority over the
// dynamic file-existence fallback — this is the "resource map" tier from
// original_source/src/typedown/core/analysis/query.py's QueryEngine.
func (e *Engine) RegisterResource(name, path string) {
	e.resources[name] = path
}

// ResolveAsset implements the two supplemental fallback tiers a query
// falls through to once it fails to resolve against the symbol table: a
// pre-registered resource name, then a dynamic check for a file at name
// relative to the project root. Neither tier changes what a failed
// resolution reports (still E0341/E0365) — they only add what counts as
// a successful one.
func (e *Engine) ResolveAsset(name string) (string, bool) {
	if path, ok := e.resources[name]; ok {
		return path, true
	}
	if e.projectRoot == "" {
		return "", false
	}
	candidate := filepath.Join(e.projectRoot, filepath.FromSlash(name))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, true
	}
	return "", false
}

// splitQuery implements spec.md §4.F step 1: the query is split at the
// first '.' unless the whole thing is hash-prefixed, in which case the
// colon-bearing hash is never split.
func splitQuery(query string) (root string, propPath []string) {
	if strings.HasPrefix(query, model.HashPrefix) {
		return query, nil
	}
	idx := strings.IndexByte(query, '.')
	if idx < 0 {
		return query, nil
	}
	return query[:idx], strings.Split(query[idx+1:], ".")
}

// Resolve dispatches query to the symbol table and walks its property
// path. contextPath is the file the query is being evaluated from, used
// for Id resolution's lexical scope walk. If the property path is empty,
// the resolved Block itself is returned (used by the Validator's `former`
// pointer check, which needs the Block, not its payload).
func (e *Engine) Resolve(query, contextPath string) (interface{}, error) {
	root, propPath := splitQuery(query)
	id := model.ParseIdentifier(root)

	block, err := e.resolveIdentifier(id, contextPath, query)
	if err != nil {
		if idVal, isID := id.(model.Id); isID {
			// The whole query first, so a dotted file name such as
			// "banner.png" is not split into a root and a property path.
			if asset, found := e.ResolveAsset(query); found {
				return asset, nil
			}
			if _, found := e.ResolveAsset(idVal.Name); found {
				return nil, &QueryError{Query: query, Reason: "asset reference cannot carry a property path"}
			}
		}
		return nil, err
	}
	if len(propPath) == 0 {
		return block, nil
	}

	data := payloadOf(block)
	return traverse(data, propPath, query)
}

func (e *Engine) resolveIdentifier(id model.Identifier, contextPath, query string) (model.Block, error) {
	switch v := id.(type) {
	case model.Hash:
		b := e.table.ResolveHash(v.Digest)
		if b == nil {
			return nil, &ReferenceError{Query: query}
		}
		return b, nil
	case model.Id:
		b := e.table.ResolveID(v.Name, contextPath)
		if b == nil {
			return nil, &ReferenceError{Query: query}
		}
		return b, nil
	default:
		return nil, &ReferenceError{Query: query}
	}
}

// payloadOf returns the map a property path traverses into. Only
// EntityBlock carries a traversable payload; any other Block kind yields
// nil, which the first property-path segment then fails to find.
func payloadOf(block model.Block) interface{} {
	if eb, ok := block.(*model.EntityBlock); ok {
		return eb.Data()
	}
	return nil
}

var pathSegment = regexp.MustCompile(`^(\w+)(?:\[(\d+)\])?$`)

// traverse walks property path segment-by-segment over data, implementing
// spec.md §4.F's `name`, `name[i]`, and terminal `*` grammar.
func traverse(data interface{}, path []string, query string) (interface{}, error) {
	current := data
	for i, part := range path {
		if part == "*" {
			if i != len(path)-1 {
				return nil, &QueryError{Query: query, Reason: "'*' must be the final segment"}
			}
			return current, nil
		}

		m := pathSegment.FindStringSubmatch(part)
		if m == nil {
			return nil, &QueryError{Query: query, Reason: fmt.Sprintf("invalid path segment %q", part)}
		}
		name, idxStr := m[1], m[2]

		asMap, ok := current.(map[string]interface{})
		if !ok {
			return nil, &QueryError{Query: query, Reason: fmt.Sprintf("segment %q: not a map", name)}
		}
		val, ok := asMap[name]
		if !ok {
			return nil, &QueryError{Query: query, Reason: fmt.Sprintf("segment %q not found", name)}
		}
		current = val

		if idxStr != "" {
			idx, _ := strconv.Atoi(idxStr)
			list, ok := current.([]interface{})
			if !ok {
				return nil, &QueryError{Query: query, Reason: fmt.Sprintf("segment %q is not a list, cannot index", name)}
			}
			if idx < 0 || idx >= len(list) {
				return nil, &QueryError{Query: query, Reason: fmt.Sprintf("index %d out of range in segment %q", idx, part)}
			}
			current = list[idx]
		}
	}
	return current, nil
}

// refPattern matches one `[[expr]]`; expr may carry `[i]` index segments,
// so `[[alice.tags[1]]]` is a single reference.
var refPattern = regexp.MustCompile(`\[\[([^\[\]]*(?:\[\d+\][^\[\]]*)*)\]\]`)

// ResolveString implements spec.md §4.F's string-interpolation rule. When
// text is exactly one `[[expr]]`, the resolved value is returned with its
// original type preserved (or, when it does not resolve, the original text
// and one unresolved-reference diagnostic). When text mixes literal content with one or more
// references, each is resolved and stringified independently; a reference
// that fails to resolve is left as the original `[[…]]` text and a
// diagnostic is appended, but the call as a whole never fails.
func (e *Engine) ResolveString(text, contextPath string) (interface{}, []diag.Diagnostic) {
	if m := refPattern.FindStringSubmatch(text); m != nil && m[0] == text {
		val, err := e.Resolve(m[1], contextPath)
		if err != nil {
			return text, []diag.Diagnostic{unresolvedDiag(err, text)}
		}
		return unwrap(val), nil
	}

	if !refPattern.MatchString(text) {
		return text, nil
	}

	var diags []diag.Diagnostic
	out := refPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(match, "[["), "]]")
		val, err := e.Resolve(inner, contextPath)
		if err != nil {
			diags = append(diags, unresolvedDiag(err, inner))
			return match
		}
		return stringify(unwrap(val))
	})
	return out, diags
}

// unwrap turns a resolved Block into the plain value an interpolated
// string should splice in — an EntityBlock's payload map, rather than the
// Go struct itself.
func unwrap(v interface{}) interface{} {
	if eb, ok := v.(*model.EntityBlock); ok {
		return eb.Data()
	}
	return v
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func unresolvedDiag(err error, query string) diag.Diagnostic {
	switch err.(type) {
	case *QueryError:
		return diag.Errorf(diag.EQueryPathError, nil, "%v", err)
	default:
		return diag.Errorf(diag.EUnresolvedReference, nil, "unresolved reference %q: %v", query, err)
	}
}

// EvaluateData recursively walks data (as decoded from YAML: maps, slices,
// strings, scalars) and substitutes every string reference with its
// resolved value, per the Validator's Global stage step 3. It never
// returns an error; unresolved references are reported as diagnostics and
// left as their original text so the caller can fall back to raw data.
func (e *Engine) EvaluateData(data interface{}, contextPath string) (interface{}, []diag.Diagnostic) {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		var diags []diag.Diagnostic
		for k, val := range v {
			resolved, d := e.EvaluateData(val, contextPath)
			out[k] = resolved
			diags = append(diags, d...)
		}
		return out, diags
	case []interface{}:
		out := make([]interface{}, len(v))
		var diags []diag.Diagnostic
		for i, val := range v {
			resolved, d := e.EvaluateData(val, contextPath)
			out[i] = resolved
			diags = append(diags, d...)
		}
		return out, diags
	case string:
		return e.ResolveString(v, contextPath)
	default:
		return v, nil
	}
}
