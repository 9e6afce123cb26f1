package validator

import (
	"context"
	"testing"

	"typedown/internal/model"
	"typedown/internal/sandbox"
	"typedown/internal/symtab"
)

func specTable(t *testing.T) *symtab.Table {
	t.Helper()
	table := symtab.New("/proj")
	registerEntity(t, table, personEntity("alice", map[string]interface{}{"name": "Alice", "age": 30}))
	registerEntity(t, table, personEntity("bob", map[string]interface{}{"name": "Bob", "age": 25}))
	return table
}

func TestSpecsGlobalScopeRunsOnce(t *testing.T) {
	table := specTable(t)
	spec := &model.SpecBlock{
		ID:       "at-least-one-person",
		Location: model.SourceLocation{FilePath: "/proj/specs.td", LineStart: 1},
		Body:     `var Result = len(env.Find_all("Person")) > 0`,
		Target:   &model.SpecTarget{Scope: model.ScopeGlobal},
	}
	diags := Specs(context.Background(), []*model.SpecBlock{spec}, table, sandbox.Default(), nil)
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}
}

func TestSpecsLocalScopeRunsPerEntity(t *testing.T) {
	table := specTable(t)
	spec := &model.SpecBlock{
		ID:       "everyone-has-a-name",
		Location: model.SourceLocation{FilePath: "/proj/specs.td", LineStart: 1},
		Body:     `var Result = env.Entity["name"] != ""`,
		Target:   &model.SpecTarget{Scope: model.ScopeLocal, Kind: "Person"},
	}
	diags := Specs(context.Background(), []*model.SpecBlock{spec}, table, sandbox.Default(), nil)
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}
}

func TestSpecsReportYieldsAssertionDiagnostic(t *testing.T) {
	table := specTable(t)
	spec := &model.SpecBlock{
		ID:       "always-fails",
		Location: model.SourceLocation{FilePath: "/proj/specs.td", LineStart: 1},
		Body:     `var Result = func() bool { env.Report("always fails"); return true }()`,
		Target:   &model.SpecTarget{Scope: model.ScopeGlobal},
	}
	diags := Specs(context.Background(), []*model.SpecBlock{spec}, table, sandbox.Default(), nil)
	if !hasCode(diags, "E0424") {
		t.Fatalf("expected E0424 from report(), got %v", diags)
	}
}

func TestSpecsFalseResultYieldsAssertionDiagnostic(t *testing.T) {
	table := specTable(t)
	spec := &model.SpecBlock{
		ID:       "impossible",
		Location: model.SourceLocation{FilePath: "/proj/specs.td", LineStart: 1},
		Body:     `var Result = false`,
		Target:   &model.SpecTarget{Scope: model.ScopeGlobal},
	}
	diags := Specs(context.Background(), []*model.SpecBlock{spec}, table, sandbox.Default(), nil)
	if !hasCode(diags, "E0424") {
		t.Fatalf("expected E0424 for false Result, got %v", diags)
	}
}

func TestSpecsEmptyLocalSelectorYieldsWarning(t *testing.T) {
	table := specTable(t)
	spec := &model.SpecBlock{
		ID:       "no-match",
		Location: model.SourceLocation{FilePath: "/proj/specs.td", LineStart: 1},
		Body:     `var Result = true`,
		Target:   &model.SpecTarget{Scope: model.ScopeLocal, Kind: "Ghost"},
	}
	diags := Specs(context.Background(), []*model.SpecBlock{spec}, table, sandbox.Default(), nil)
	if !hasCode(diags, "E0423") {
		t.Fatalf("expected E0423 selector-empty warning, got %v", diags)
	}
}

func TestResolveTargetDefaultsToGlobal(t *testing.T) {
	spec := &model.SpecBlock{Body: "var Result = true"}
	target := resolveTarget(spec)
	if target.Scope != model.ScopeGlobal {
		t.Fatalf("expected default global scope, got %v", target.Scope)
	}
}

func TestResolveTargetParsesAnnotation(t *testing.T) {
	spec := &model.SpecBlock{Body: "@target: Person\nvar Result = true"}
	target := resolveTarget(spec)
	if target.Scope != model.ScopeLocal || target.Kind != "Person" {
		t.Fatalf("expected local scope targeting Person, got %+v", target)
	}
}
