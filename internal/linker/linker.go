// Package linker implements the Linker (L2, spec.md §4.D): it runs the
// prelude, executes the config cascade and every model body in the
// sandbox, registers entities in the symbol table, and assigns each entity
// its declared model by lexical scope lookup.
package linker

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"typedown/internal/diag"
	"typedown/internal/logging"
	"typedown/internal/model"
	"typedown/internal/sandbox"
	"typedown/internal/symtab"
)

// builtins are the fully-qualified names a project's `linker.prelude` list
// may reference; this is a deliberately small, fixed registry rather than
// a real module resolver, since spec.md's Non-goals leave the sandbox's
// exact implementation unspecified.
var builtins = map[string]interface{}{
	"builtin.NewID": func() string { return uuid.NewString() },
}

// Linker runs the L2 stage described above.
type Linker struct {
	sb *sandbox.Sandbox
}

// New returns a Linker using sb for every config/model body execution.
func New(sb *sandbox.Sandbox) *Linker {
	return &Linker{sb: sb}
}

// configEntry pairs a ConfigBlock with the document path it came from,
// since ConfigBlock itself only carries its own location.
type configEntry struct {
	path  string
	block *model.ConfigBlock
}

// Link performs the five ordered steps of spec.md §4.D against docs,
// populating table and returning every E02xx diagnostic raised along the
// way. docs should be keyed by document path; projectDir bounds the
// upward scope walk performed by model assignment.
func (l *Linker) Link(ctx context.Context, docs map[string]*model.Document, table *symtab.Table, prelude []string, projectDir string) []diag.Diagnostic {
	timer := logging.StartTimer(logging.CategoryLinker, "Link")
	defer timer.StopWithInfo()

	var diags []diag.Diagnostic

	rootEnv := sandbox.RootEnv()
	diags = append(diags, l.loadPrelude(rootEnv, prelude)...)

	envByDir, cascadeDiags := l.runConfigCascade(ctx, docs, rootEnv)
	diags = append(diags, cascadeDiags...)

	modelDiags := l.runModels(ctx, docs, table, envByDir, rootEnv)
	diags = append(diags, modelDiags...)

	diags = append(diags, l.registerEntities(docs, table)...)

	l.assignModels(docs, table)

	return diags
}

// loadPrelude binds every name in prelude that resolves in the builtin
// registry; an unresolvable name yields an E0223 warning and processing
// continues with that name simply absent from the base environment.
func (l *Linker) loadPrelude(env *sandbox.NameEnv, prelude []string) []diag.Diagnostic {
	var diags []diag.Diagnostic
	for _, name := range prelude {
		v, ok := builtins[name]
		if !ok {
			diags = append(diags, diag.Warnf(diag.EPreludeLoadWarning, nil,
				"prelude name %q not found in builtin registry", name))
			continue
		}
		leaf := name
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			leaf = name[i+1:]
		}
		env.Bind(leaf, v)
	}
	return diags
}

// runConfigCascade executes every ConfigBlock in (depth(path), path)
// ascending order, threading the name environment so deeper configs see
// their ancestors' bindings. It returns, for every directory that owns at
// least one config block, the environment snapshot immediately after that
// directory's own configs ran.
func (l *Linker) runConfigCascade(ctx context.Context, docs map[string]*model.Document, rootEnv *sandbox.NameEnv) (map[string]*sandbox.NameEnv, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	var entries []configEntry
	for path, doc := range docs {
		for _, cb := range doc.Configs {
			entries = append(entries, configEntry{path: path, block: cb})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		di, dj := depth(entries[i].path), depth(entries[j].path)
		if di != dj {
			return di < dj
		}
		return entries[i].path < entries[j].path
	})

	envByDir := make(map[string]*sandbox.NameEnv)
	env := rootEnv
	for _, e := range entries {
		dir := symtab.ScopeOf(e.path)
		base := env
		if existing, ok := envByDir[dir]; ok {
			base = existing
		}
		result, err := l.sb.Eval(ctx, e.block.Body, base.Flatten())
		if err != nil {
			loc := e.block.Location
			diags = append(diags, diag.Errorf(diag.EConfigExecFailure, &loc,
				"config execution failed: %v", err))
			envByDir[dir] = base
			continue
		}
		bindings, ok := result.(map[string]interface{})
		if !ok {
			loc := e.block.Location
			diags = append(diags, diag.Errorf(diag.EConfigExecFailure, &loc,
				"config Result must be a map[string]interface{}, got %T", result))
			envByDir[dir] = base
			continue
		}
		child := base.Child()
		for k, v := range bindings {
			child.Bind(k, v)
		}
		envByDir[dir] = child
		env = child
	}
	return envByDir, diags
}

// cascadeEnvFor returns the environment a model/entity in dir should see:
// the nearest ancestor directory (including dir itself) that ran a
// config, or rootEnv if none did.
func cascadeEnvFor(dir string, envByDir map[string]*sandbox.NameEnv, rootEnv *sandbox.NameEnv) *sandbox.NameEnv {
	for d := dir; ; {
		if env, ok := envByDir[d]; ok {
			return env
		}
		parent := filepath.Dir(d)
		if parent == d {
			return rootEnv
		}
		d = parent
	}
}

func depth(path string) int {
	return strings.Count(filepath.Clean(filepath.Dir(path)), string(filepath.Separator))
}

// runModels executes every ModelBlock's body, builds its Schema, and
// registers it in the symbol table. Registration happens here (rather
// than in a separate pass) because a model is itself a Block the symbol
// table must hold so sibling models/entities resolve it by lexical scope.
func (l *Linker) runModels(ctx context.Context, docs map[string]*model.Document, table *symtab.Table, envByDir map[string]*sandbox.NameEnv, rootEnv *sandbox.NameEnv) []diag.Diagnostic {
	var diags []diag.Diagnostic

	paths := make([]string, 0, len(docs))
	for p := range docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		doc := docs[path]
		dir := symtab.ScopeOf(path)
		cascaded := cascadeEnvFor(dir, envByDir, rootEnv)

		for _, mb := range doc.Models {
			result, err := l.sb.Eval(ctx, mb.Body, cascaded.Flatten())
			if err != nil {
				loc := mb.Location
				diags = append(diags, diag.Errorf(diag.EModelExecFailure, &loc,
					"model execution failed: %v", err))
				continue
			}

			schema, schemaDiags := buildSchema(mb, result)
			diags = append(diags, schemaDiags...)
			if schema == nil {
				continue
			}

			mb.Handle = &model.SchemaHandle{Name: schema.Name, Schema: schema}
			if d := table.Register(mb, dir); d != nil {
				diags = append(diags, *d)
			}
		}
	}
	return diags
}

// buildSchema interprets a model body's Result value against the
// convention documented in internal/sandbox: a map with either a "fields"
// list (record schema) or a "values" list (enumeration), plus a "name".
func buildSchema(mb *model.ModelBlock, result interface{}) (*model.Schema, []diag.Diagnostic) {
	loc := mb.Location
	raw, ok := result.(map[string]interface{})
	if !ok {
		return nil, []diag.Diagnostic{diag.Errorf(diag.EInvalidSchema, &loc,
			"model Result must be a map[string]interface{}, got %T", result)}
	}

	name, _ := raw["name"].(string)
	if name == "" {
		name = mb.ID
	}
	if name != mb.ID {
		return nil, []diag.Diagnostic{diag.Errorf(diag.EModelNameMismatch, &loc,
			"model declares class %q but signature says %q", name, mb.ID)}
	}

	schema := &model.Schema{Name: name}
	var diags []diag.Diagnostic

	if values, ok := raw["values"].([]string); ok && len(values) > 0 {
		schema.Values = values
	} else if rawValues, ok := raw["values"].([]interface{}); ok && len(rawValues) > 0 {
		for _, v := range rawValues {
			if s, ok := v.(string); ok {
				schema.Values = append(schema.Values, s)
			}
		}
	} else if rawFields, ok := raw["fields"].([]interface{}); ok {
		for _, rf := range rawFields {
			fm, ok := rf.(map[string]interface{})
			if !ok {
				continue
			}
			schema.Fields = append(schema.Fields, parseField(fm))
		}
	}

	if !schema.IsEnum() && len(schema.Fields) == 0 {
		return nil, append(diags, diag.Errorf(diag.EInvalidSchema, &loc,
			"model %q is neither a valid record schema nor an enumeration", name))
	}
	if schema.HasReservedIDField() {
		diags = append(diags, diag.Errorf(diag.EReservedIDField, &loc,
			"model %q declares a reserved field named \"id\"", name))
		return nil, diags
	}
	return schema, diags
}

func parseField(fm map[string]interface{}) model.Field {
	f := model.Field{}
	if v, ok := fm["name"].(string); ok {
		f.Name = v
	}
	if v, ok := fm["required"].(bool); ok {
		f.Required = v
	}
	if v, ok := fm["default"]; ok {
		f.Default = v
	}
	switch t, _ := fm["type"].(string); t {
	case "int":
		f.Type = model.TypeInt
	case "float":
		f.Type = model.TypeFloat
	case "bool":
		f.Type = model.TypeBool
	case "list":
		f.Type = model.TypeList
	case "map":
		f.Type = model.TypeMap
	case "ref":
		f.Type = model.TypeRef
		if targets, ok := fm["target_types"].([]interface{}); ok {
			for _, tv := range targets {
				if s, ok := tv.(string); ok {
					f.TargetTypes = append(f.TargetTypes, s)
				}
			}
		}
	case "any":
		f.Type = model.TypeAny
	default:
		f.Type = model.TypeString
	}
	return f
}

// registerEntities registers every EntityBlock in document-walk order.
func (l *Linker) registerEntities(docs map[string]*model.Document, table *symtab.Table) []diag.Diagnostic {
	var diags []diag.Diagnostic
	paths := make([]string, 0, len(docs))
	for p := range docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		doc := docs[path]
		dir := symtab.ScopeOf(path)
		for _, eb := range doc.Entities {
			if d := table.Register(eb, dir); d != nil {
				diags = append(diags, *d)
			}
		}
	}
	return diags
}

// assignModels resolves every entity's declared class name to a
// ModelBlock by the same lexical rules as handle resolution. An
// unresolved class is left nil — E0364 is raised later, by the validator,
// per spec.md §4.D step 5.
func (l *Linker) assignModels(docs map[string]*model.Document, table *symtab.Table) {
	for _, doc := range docs {
		for _, eb := range doc.Entities {
			block := table.ResolveID(eb.ClassName, eb.Location.FilePath)
			mb, ok := block.(*model.ModelBlock)
			if !ok || mb.Handle == nil {
				continue
			}
			eb.Model = mb.Handle
		}
	}
}
