package main

import (
	"os"
	"path/filepath"
	"testing"

	"typedown/internal/model"
	"typedown/internal/symtab"
)

func TestResolvePathDefaultsToCwd(t *testing.T) {
	pathFlag = ""
	defer func() { pathFlag = "" }()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	got, err := resolvePath()
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if got != wd {
		t.Errorf("resolvePath() = %q, want %q", got, wd)
	}
}

func TestResolvePathHonorsFlag(t *testing.T) {
	pathFlag = "/some/project"
	defer func() { pathFlag = "" }()

	got, err := resolvePath()
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if got != "/some/project" {
		t.Errorf("resolvePath() = %q, want /some/project", got)
	}
}

func TestWordPrefixBefore(t *testing.T) {
	cases := []struct {
		line string
		col  int
		want string
	}{
		{"widget-one.size", 6, "widget"},
		{"```model:Widget", 15, "Widget"}, // scan stops at ':', which isn't an id char
		{"", 0, ""},
	}
	for _, c := range cases {
		if got := wordPrefixBefore(c.line, c.col); got != c.want {
			t.Errorf("wordPrefixBefore(%q, %d) = %q, want %q", c.line, c.col, got, c.want)
		}
	}
}

func TestExecSQLFiltersByField(t *testing.T) {
	dir := t.TempDir()
	table := symtab.New(dir)

	mkEntity := func(id, class, name string) {
		t.Helper()
		path := filepath.Join(dir, id+".td")
		block := &model.EntityBlock{
			ID:        id,
			ClassName: class,
			Location:  model.SourceLocation{FilePath: path, LineStart: 1, LineEnd: 1},
			RawData:   map[string]interface{}{"name": name},
		}
		if d := table.Register(block, symtab.ScopeOf(path)); d != nil {
			t.Fatalf("register %s: %v", id, d.Message)
		}
	}
	mkEntity("w1", "Widget", "Alpha")
	mkEntity("w2", "Widget", "Beta")

	rows, err := execSQL(table, `SELECT * FROM Widget WHERE name = 'Alpha'`)
	if err != nil {
		t.Fatalf("execSQL: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Alpha" {
		t.Fatalf("expected exactly one Alpha row, got %+v", rows)
	}

	if _, err := execSQL(table, "not sql at all"); err == nil {
		t.Errorf("expected an error for an unsupported query shape")
	}
}
