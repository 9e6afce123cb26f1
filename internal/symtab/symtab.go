// Package symtab implements the Symbol Table (spec.md §4.C): a lexically
// scoped store keyed by block id, plus a flat content-hash index. It is
// rebuilt from scratch on every compile — see Table.Reset.
package symtab

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"typedown/internal/diag"
	"typedown/internal/logging"
	"typedown/internal/model"
)

type scopedKey struct {
	scopePath string
	name      string
}

// Table is the symbol table shared by the linker, validator and query
// engine for the lifetime of a single compile.
type Table struct {
	mu         sync.RWMutex
	scoped     map[scopedKey]model.Block
	byHash     map[string]model.Block
	projectDir string

	entities []*model.EntityBlock
	models   []*model.ModelBlock
}

// New returns an empty Table scoped to projectDir, the directory at which
// resolve_id's upward walk stops.
func New(projectDir string) *Table {
	return &Table{
		scoped:     make(map[scopedKey]model.Block),
		byHash:     make(map[string]model.Block),
		projectDir: filepath.Clean(projectDir),
	}
}

// Reset clears every index so the Table can be reused for a fresh compile
// without reallocating.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scoped = make(map[scopedKey]model.Block)
	t.byHash = make(map[string]model.Block)
	t.entities = nil
	t.models = nil
}

// ScopeOf returns the directory a source path belongs to, used as the
// scope_path argument to Register and the starting point for Resolve.
func ScopeOf(sourcePath string) string {
	return filepath.Clean(filepath.Dir(sourcePath))
}

// Register stores block under (scopePath, block.BlockID()), and — if block
// carries a content hash — in the global hash index. A second registration
// of the same (scopePath, id) pair yields an E0241 diagnostic instead of an
// error, matching the Linker's append-only diagnostic contract.
func (t *Table) Register(block model.Block, scopePath string) *diag.Diagnostic {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := scopedKey{scopePath: filepath.Clean(scopePath), name: block.BlockID()}
	if existing, ok := t.scoped[key]; ok {
		loc := block.Loc()
		d := diag.Errorf(diag.EDuplicateID, &loc,
			"duplicate id %q already registered at %s", block.BlockID(), existing.Loc().String())
		return &d
	}
	t.scoped[key] = block

	if eb, ok := block.(*model.EntityBlock); ok {
		if eb.ContentHash == "" {
			eb.ContentHash = ContentHash(eb)
		}
		t.byHash[eb.ContentHash] = block
		t.entities = append(t.entities, eb)
	}
	if mb, ok := block.(*model.ModelBlock); ok {
		t.models = append(t.models, mb)
	}

	logging.Get(logging.CategorySymtab).Debug("registered %s %q at scope %s", block.Kind(), block.BlockID(), key.scopePath)
	return nil
}

// ResolveID implements resolve_id: starting at the directory of contextPath,
// look up (scope, name); on a miss, walk one directory level up and retry,
// stopping at (and including) the project root. Returns nil if no scope in
// the chain holds the name.
func (t *Table) ResolveID(name, contextPath string) model.Block {
	t.mu.RLock()
	defer t.mu.RUnlock()

	scope := ScopeOf(contextPath)
	for {
		if b, ok := t.scoped[scopedKey{scopePath: scope, name: name}]; ok {
			return b
		}
		if scope == t.projectDir || !isWithin(t.projectDir, scope) {
			return nil
		}
		parent := filepath.Dir(scope)
		if parent == scope {
			return nil
		}
		scope = parent
	}
}

// isWithin reports whether candidate is root or a descendant of root.
func isWithin(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && len(rel) > 0 && rel[0] != '.')
}

// ResolveHash implements resolve_hash: a direct lookup in the global
// content-hash index.
func (t *Table) ResolveHash(hexDigest string) model.Block {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byHash[hexDigest]
}

// IterEntities returns every registered EntityBlock in registration order.
func (t *Table) IterEntities() []*model.EntityBlock {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*model.EntityBlock, len(t.entities))
	copy(out, t.entities)
	return out
}

// IterModels returns every registered ModelBlock in registration order.
func (t *Table) IterModels() []*model.ModelBlock {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*model.ModelBlock, len(t.models))
	copy(out, t.models)
	return out
}

// ContentHash computes the deterministic sha256 digest of an entity's id,
// class name, and raw_data, used as the identity behind the `sha256:`
// identifier variant. The payload is a canonical JSON encoding: map keys
// sorted lexically, produced by re-marshaling through a sorted-key
// intermediate since encoding/json already sorts map[string]interface{}
// keys on marshal.
func ContentHash(eb *model.EntityBlock) string {
	canonical := struct {
		ID        string                 `json:"id"`
		ClassName string                 `json:"class_name"`
		RawData   map[string]interface{} `json:"raw_data"`
	}{ID: eb.ID, ClassName: eb.ClassName, RawData: sortedCopy(eb.RawData)}

	data, err := json.Marshal(canonical)
	if err != nil {
		// Unreachable for YAML-decoded data (strings/maps/slices/scalars
		// all marshal); fall back to the id alone rather than panic.
		data = []byte(fmt.Sprintf("%s:%s", eb.ClassName, eb.ID))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// sortedCopy recursively rebuilds v so every map level uses sorted keys,
// which encoding/json already guarantees for map[string]interface{} — this
// exists to make the "sorted keys" contract explicit and documented at the
// one place it matters, rather than relying on an implicit stdlib detail.
func sortedCopy(v map[string]interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]interface{}, len(v))
	for _, k := range keys {
		out[k] = normalize(v[k])
	}
	return out
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return sortedCopy(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
