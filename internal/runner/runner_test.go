package runner

import (
	"context"
	"strings"
	"testing"
)

func TestRunSubstitutesVariablesAndCapturesOutput(t *testing.T) {
	r := New()
	result, err := r.Run(context.Background(), "echo-file", "echo ${file}", Vars{File: "alice.td", Dir: t.TempDir()}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "alice.td" {
		t.Fatalf("expected substituted file name in stdout, got %q", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", result.ExitCode)
	}
}

func TestRunCapturesNonZeroExit(t *testing.T) {
	r := New()
	result, err := r.Run(context.Background(), "fail", "exit 3", Vars{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit 3, got %d", result.ExitCode)
	}
}

func TestDryRunSkipsExecution(t *testing.T) {
	r := New()
	result, err := r.Run(context.Background(), "noop", "rm -rf ${dir}", Vars{Dir: "/should/not/run"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.DryRun {
		t.Fatal("expected DryRun to be true")
	}
	if result.Command != "rm -rf /should/not/run" {
		t.Fatalf("expected substituted command without execution, got %q", result.Command)
	}
}

func TestAuditCallbackFires(t *testing.T) {
	r := New()
	var captured *AuditEvent
	r.AuditCallback = func(e AuditEvent) { captured = &e }

	_, err := r.Run(context.Background(), "echo-ok", "echo ok", Vars{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured == nil {
		t.Fatal("expected audit callback to fire")
	}
	if captured.Script != "echo-ok" {
		t.Fatalf("expected script name recorded, got %q", captured.Script)
	}
}

func TestLookupPrefersDocumentScriptOverProject(t *testing.T) {
	cmd, ok := Lookup("build",
		map[string]string{"build": "doc-local"},
		map[string]string{"build": "project-wide"},
		nil,
	)
	if !ok || cmd != "doc-local" {
		t.Fatalf("expected doc-local script to win, got %q ok=%v", cmd, ok)
	}
}

func TestLookupFallsBackToProjectTasks(t *testing.T) {
	cmd, ok := Lookup("deploy", nil, nil, map[string]string{"deploy": "task-cmd"})
	if !ok || cmd != "task-cmd" {
		t.Fatalf("expected task fallback, got %q ok=%v", cmd, ok)
	}
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	_, ok := Lookup("missing", nil, nil, nil)
	if ok {
		t.Fatal("expected ok=false for unknown script name")
	}
}
