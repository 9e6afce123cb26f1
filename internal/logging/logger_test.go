package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeNoopWhenDebugDisabled(t *testing.T) {
	Reset()
	dir := t.TempDir()
	if err := Initialize(dir, Config{DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Get(CategoryScanner).Info("hello")

	if _, err := os.Stat(filepath.Join(dir, ".typedown", "logs")); !os.IsNotExist(err) {
		t.Fatalf("expected no logs directory to be created, stat err=%v", err)
	}
}

func TestInitializeWritesCategoryFile(t *testing.T) {
	Reset()
	dir := t.TempDir()
	if err := Initialize(dir, Config{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Get(CategoryScanner).Info("scanned %d files", 3)

	entries, err := os.ReadDir(filepath.Join(dir, ".typedown", "logs"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".log" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected at least one .log file, got %v", entries)
	}
}

func TestCategoryDisabledSuppressesOutput(t *testing.T) {
	Reset()
	dir := t.TempDir()
	if err := Initialize(dir, Config{
		DebugMode:  true,
		Level:      "debug",
		Categories: map[string]bool{string(CategoryScanner): false},
	}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	l := Get(CategoryScanner)
	if l.logger != nil {
		t.Fatalf("expected disabled category to yield a no-op logger")
	}
}

func TestTimerStop(t *testing.T) {
	Reset()
	dir := t.TempDir()
	_ = Initialize(dir, Config{DebugMode: true, Level: "debug"})
	timer := StartTimer(CategoryValidator, "schema-stage")
	elapsed := timer.Stop()
	if elapsed < 0 {
		t.Fatalf("expected non-negative elapsed duration, got %v", elapsed)
	}
}
