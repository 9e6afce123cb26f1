package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"typedown/internal/diag"
	"typedown/internal/provider"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCompileFullRunsEveryStage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "models.td"), "# Models\n\n"+
		"```model:Person\n"+
		"var Result = map[string]interface{}{\n"+
		"\t\"name\": \"Person\",\n"+
		"\t\"fields\": []interface{}{\n"+
		"\t\tmap[string]interface{}{\"name\": \"name\", \"type\": \"string\", \"required\": true},\n"+
		"\t},\n"+
		"}\n"+
		"```\n")
	writeFile(t, filepath.Join(dir, "alice.td"), "```entity Person: alice\n"+
		"name: Alice\n"+
		"```\n")

	src := provider.NewDiskSource()
	result, err := Compile(context.Background(), src, Options{Root: dir, Stage: StageFull})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, d := range result.Diagnostics {
		if d.Level == diag.LevelError {
			t.Fatalf("unexpected error diagnostic: %+v", d)
		}
	}
	entities := result.Table.IterEntities()
	if len(entities) != 1 || entities[0].ID != "alice" {
		t.Fatalf("expected alice registered, got %+v", entities)
	}
	if result.ExitCode() != 0 {
		t.Fatalf("expected clean exit code, got %d", result.ExitCode())
	}
}

func TestCompileSyntaxStageStopsBeforeLinking(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "alice.td"), "```entity Person: alice\n"+
		"name: Alice\n"+
		"```\n")

	src := provider.NewDiskSource()
	result, err := Compile(context.Background(), src, Options{Root: dir, Stage: StageSyntax})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Table.IterEntities()) != 0 {
		t.Fatal("expected no entities registered at the syntax stage")
	}
}

func TestCompileReportsUnresolvedReference(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "models.td"), "```model:Person\n"+
		"var Result = map[string]interface{}{\n"+
		"\t\"name\": \"Person\",\n"+
		"\t\"fields\": []interface{}{\n"+
		"\t\tmap[string]interface{}{\"name\": \"friend\", \"type\": \"string\"},\n"+
		"\t},\n"+
		"}\n"+
		"```\n")
	writeFile(t, filepath.Join(dir, "alice.td"), "```entity Person: alice\n"+
		"friend: \"[[bob]]\"\n"+
		"```\n")

	src := provider.NewDiskSource()
	result, err := Compile(context.Background(), src, Options{Root: dir, Stage: StageFull})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Code == diag.EUnresolvedReference {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an unresolved reference diagnostic")
	}
	if result.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", result.ExitCode())
	}
}
