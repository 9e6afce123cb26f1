package validator

import (
	"context"
	"regexp"
	"strings"

	"typedown/internal/diag"
	"typedown/internal/logging"
	"typedown/internal/model"
	"typedown/internal/sandbox"
	"typedown/internal/symtab"
)

var targetPattern = regexp.MustCompile(`(?m)^@target:\s*(\S+)\s*$`)

// resolveTarget determines a spec's scope and, for local scope, the
// entity class it runs against, by scanning its body for an `@target:`
// annotation. A missing annotation defaults to global scope, matching
// spec.md §4.G.4's framing of `@target` as optional selection.
func resolveTarget(spec *model.SpecBlock) *model.SpecTarget {
	if spec.Target != nil {
		return spec.Target
	}
	m := targetPattern.FindStringSubmatch(spec.Body)
	if m == nil || strings.EqualFold(m[1], "global") {
		return &model.SpecTarget{Scope: model.ScopeGlobal}
	}
	return &model.SpecTarget{Kind: m[1], Scope: model.ScopeLocal}
}

// Specs runs the L4 sub-stage (spec.md §4.G.4): every SpecBlock is
// executed in the sandbox, once per matching entity for a local-scoped
// spec or once overall for a global-scoped spec, with an ambient context
// exposing find_all, sql, and report.
func Specs(ctx context.Context, specs []*model.SpecBlock, table *symtab.Table, sb *sandbox.Sandbox, base *sandbox.NameEnv) []diag.Diagnostic {
	timer := logging.StartTimer(logging.CategoryValidator, "Specs")
	defer timer.StopWithInfo()

	if base == nil {
		base = sandbox.RootEnv()
	}

	var diags []diag.Diagnostic
	for _, spec := range specs {
		spec.Target = resolveTarget(spec)

		switch spec.Target.Scope {
		case model.ScopeGlobal:
			diags = append(diags, runSpec(ctx, sb, base, spec, table, nil)...)
		case model.ScopeLocal:
			var matched []*model.EntityBlock
			for _, eb := range table.IterEntities() {
				if eb.ClassName == spec.Target.Kind {
					matched = append(matched, eb)
				}
			}
			if len(matched) == 0 {
				loc := spec.Location
				diags = append(diags, diag.Warnf(diag.ESpecSelectorEmpty, &loc,
					"spec %q target %q matches no entities", spec.ID, spec.Target.Kind))
				continue
			}
			for _, eb := range matched {
				diags = append(diags, runSpec(ctx, sb, base, spec, table, eb)...)
			}
		}
	}
	return diags
}

// runSpec executes one spec body once, against entity (nil for global
// scope), and turns report() calls and a falsy `Result` into E0424
// diagnostics, and sandbox/evaluation failures into E0421. Since a spec
// body is a single `var Result = ...` declaration like every other
// sandboxed block, a spec that needs report()'s side effect calls it from
// inside an immediately-invoked function literal rather than as a bare
// statement.
func runSpec(ctx context.Context, sb *sandbox.Sandbox, base *sandbox.NameEnv, spec *model.SpecBlock, table *symtab.Table, entity *model.EntityBlock) []diag.Diagnostic {
	var reported []string
	env := base.Child()
	env.Bind("find_all", func(typeName string) []map[string]interface{} {
		var out []map[string]interface{}
		for _, eb := range table.IterEntities() {
			if eb.ClassName == typeName {
				out = append(out, eb.Data())
			}
		}
		return out
	})
	env.Bind("sql", func(q string) ([]map[string]interface{}, error) {
		return execSQL(table, q)
	})
	env.Bind("report", func(msg string) { reported = append(reported, msg) })
	if entity != nil {
		env.Bind("entity", entity.Data())
	}

	result, err := sb.Eval(ctx, spec.Body, env.Flatten())

	var diags []diag.Diagnostic
	for _, msg := range reported {
		loc := spec.Location
		diags = append(diags, diag.Errorf(diag.ESpecAssertionFail, &loc, "%s", msg))
	}
	if err != nil {
		loc := spec.Location
		diags = append(diags, diag.Errorf(diag.ESpecException, &loc,
			"spec %q execution failed: %v", spec.ID, err))
		return diags
	}
	if ok, isBool := result.(bool); isBool && !ok {
		loc := spec.Location
		diags = append(diags, diag.Errorf(diag.ESpecAssertionFail, &loc,
			"spec %q assertion failed", spec.ID))
	}
	return diags
}

var sqlSelect = regexp.MustCompile(`(?i)^\s*SELECT\s+\*\s+FROM\s+(\w+)(?:\s+WHERE\s+(\w+)\s*=\s*'([^']*)')?\s*;?\s*$`)

// execSQL is a deliberately minimal query evaluator over the in-memory
// entity tabular view: `SELECT * FROM <ClassName>` with an optional
// `WHERE field = 'value'` equality filter. spec.md's Non-goals leave the
// oracle/sandbox implementation unprescribed, and SPEC_FULL.md's
// supplemented `sql()` primitive is scoped to this in-memory view rather
// than a real embedded database — see DESIGN.md for why no SQL driver is
// wired in.
func execSQL(table *symtab.Table, query string) ([]map[string]interface{}, error) {
	m := sqlSelect.FindStringSubmatch(query)
	if m == nil {
		return nil, &sqlSyntaxError{query: query}
	}
	className, field, value := m[1], m[2], m[3]

	var rows []map[string]interface{}
	for _, eb := range table.IterEntities() {
		if eb.ClassName != className {
			continue
		}
		if field != "" {
			v, _ := eb.Data()[field].(string)
			if v != value {
				continue
			}
		}
		rows = append(rows, eb.Data())
	}
	return rows, nil
}

type sqlSyntaxError struct{ query string }

func (e *sqlSyntaxError) Error() string {
	return "sql: unsupported query shape: " + e.query
}
