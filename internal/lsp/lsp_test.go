package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeFramed encodes one JSON-RPC message in Content-Length framing, the
// same helper shape the teacher's own LSP tests use to drive ServeStdio.
func writeFramed(t *testing.T, w *bytes.Buffer, v interface{}) {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n%s", len(body), body)
}

// readAllFramed decodes every Content-Length-framed message out of buf.
func readAllFramed(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	data := buf.Bytes()
	for len(data) > 0 {
		sep := []byte("\r\n\r\n")
		idx := bytes.Index(data, sep)
		if idx < 0 {
			break
		}
		header := string(data[:idx])
		var n int
		for _, line := range strings.Split(header, "\r\n") {
			if strings.HasPrefix(line, "Content-Length:") {
				fmt.Sscanf(strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:")), "%d", &n)
			}
		}
		body := data[idx+4 : idx+4+n]
		var msg map[string]interface{}
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Fatalf("unmarshal framed message: %v", err)
		}
		out = append(out, msg)
		data = data[idx+4+n:]
	}
	return out
}

func writeProjectFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestInitializeReturnsCapabilities(t *testing.T) {
	dir := t.TempDir()
	srv := New(dir)

	var in bytes.Buffer
	var out bytes.Buffer
	writeFramed(t, &in, Request{JSONRPC: jsonrpcVersion, ID: float64(1), Method: "initialize"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = srv.Serve(ctx, &in, &out)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	msgs := readAllFramed(t, &out)
	if len(msgs) == 0 {
		t.Fatalf("expected at least one response, got none")
	}
	result, ok := msgs[0]["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a result object, got %v", msgs[0])
	}
	caps, ok := result["capabilities"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected capabilities object, got %v", result)
	}
	if _, ok := caps["hoverProvider"]; !ok {
		t.Errorf("expected hoverProvider capability to be advertised")
	}
}

func TestDidOpenTriggersDiagnosticsPublish(t *testing.T) {
	dir := t.TempDir()
	srv := New(dir)

	badDoc := "# Broken\n\n```model:Widget\nvar Result = map[string]interface{}{\n\t\"name\": \"Widget\",\n}\n```\n\n" +
		"```entity Widget: w1\nname: Widget One\nsize: [[missing-ref]]\n```\n"

	var in bytes.Buffer
	var out bytes.Buffer
	writeFramed(t, &in, Request{
		JSONRPC: jsonrpcVersion,
		Method:  "textDocument/didOpen",
		Params: mustJSON(t, map[string]interface{}{
			"textDocument": map[string]interface{}{
				"uri":     pathToURI(filepath.Join(dir, "broken.td")),
				"version": 1,
				"text":    badDoc,
			},
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = srv.Serve(ctx, &in, &out)
	}()
	time.Sleep(debounceWindow + 300*time.Millisecond)
	cancel()

	msgs := readAllFramed(t, &out)
	var sawPublish bool
	for _, m := range msgs {
		if m["method"] == "textDocument/publishDiagnostics" {
			sawPublish = true
		}
	}
	if !sawPublish {
		t.Errorf("expected a textDocument/publishDiagnostics notification, got %d messages: %v", len(msgs), msgs)
	}
}

func TestDocumentSymbolListsDeclaredBlocks(t *testing.T) {
	dir := t.TempDir()
	srv := New(dir)
	path := filepath.Join(dir, "doc.td")

	content := "```model:Widget\nvar Result = map[string]interface{}{\n\t\"name\": \"Widget\",\n\t\"fields\": []interface{}{},\n}\n```\n\n" +
		"```entity Widget: widget-one\nname: First\n```\n"

	srv.overlay.UpdateOverlay(path, content)

	raw := mustJSON(t, map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": pathToURI(path)},
	})
	symbols := srv.handleDocumentSymbol(raw)
	if len(symbols) != 2 {
		t.Fatalf("expected 2 symbols (model + entity), got %d: %+v", len(symbols), symbols)
	}
	if symbols[0].Name != "Widget" || symbols[0].Kind != symKindClass {
		t.Errorf("expected first symbol to be model Widget, got %+v", symbols[0])
	}
	if symbols[1].Name != "widget-one" || symbols[1].Kind != symKindObject {
		t.Errorf("expected second symbol to be entity widget-one, got %+v", symbols[1])
	}
}

func TestWordAtAndPrefix(t *testing.T) {
	line := "size: [[widget-one.size]]"
	if got := wordAt(line, 9); got != "widget-one.size" {
		t.Errorf("wordAt = %q, want widget-one.size", got)
	}
	if got := wordPrefixAt(line, 10); got != "wi" {
		t.Errorf("wordPrefixAt = %q, want \"wi\"", got)
	}
}

func TestUpdateFileAndResetFileSystem(t *testing.T) {
	dir := t.TempDir()
	srv := New(dir)
	path := filepath.Join(dir, "a.td")

	srv.handleUpdateFile(context.Background(), mustJSON(t, map[string]interface{}{
		"path":    path,
		"content": "# A\n",
	}))
	if got, err := srv.overlay.GetContent(path); err != nil || got != "# A\n" {
		t.Fatalf("expected overlay content to be set, got %q err=%v", got, err)
	}

	srv.handleResetFileSystem(context.Background())
	if _, err := srv.overlay.GetContent(path); err == nil {
		t.Errorf("expected overlay to be cleared after resetFileSystem")
	}
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
