package lsp

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"typedown/internal/compiler"
	"typedown/internal/diag"
	"typedown/internal/logging"
	"typedown/internal/model"
	"typedown/internal/provider"
	"typedown/internal/scanner"
)

// debounceWindow mirrors internal/core/mangle_watcher.go's settle period: a
// rapid run of keystrokes collapses into one recompile rather than one per
// character.
const debounceWindow = 500 * time.Millisecond

// Server holds the live state of one LSP session: the project root, the
// overlay provider document edits flow through, and the most recently
// compiled Result every request answers against.
type Server struct {
	mu      sync.Mutex
	root    string
	overlay *provider.OverlayProvider
	result  *compiler.Result
	conn    *conn

	versions map[string]int
	timers   map[string]*time.Timer
}

// New returns a Server rooted at root, reading through an overlay over disk.
// root stays fixed; typedown/loadProject re-hydrates the overlay only.
func New(root string) *Server {
	return &Server{
		root:     root,
		overlay:  provider.NewOverlayProvider(provider.NewDiskSource()),
		versions: make(map[string]int),
		timers:   make(map[string]*time.Timer),
	}
}

// Serve runs the read-dispatch loop over r/w until the peer closes the
// stream or ctx is cancelled. It blocks; callers run it in its own
// goroutine or as the last call in `typedown lsp`'s command body.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.conn = newConn(r, w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := s.conn.readMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		s.dispatch(ctx, raw)
	}
}

func (s *Server) reply(id interface{}, result interface{}, rpcErr *RPCError) {
	if id == nil {
		return // a notification never gets a reply
	}
	_ = s.conn.writeMessage(&Response{JSONRPC: jsonrpcVersion, ID: id, Result: result, Error: rpcErr})
}

func (s *Server) notify(method string, params interface{}) {
	_ = s.conn.writeMessage(&Notification{JSONRPC: jsonrpcVersion, Method: method, Params: params})
}

// scheduleRecompile debounces recompilation after an edit to path: rapid
// successive edits to the same document collapse into a single recompile
// debounceWindow after the last one, the in-process analogue of the
// teacher's filesystem-event debounce map.
func (s *Server) scheduleRecompile(ctx context.Context, path string) {
	s.mu.Lock()
	if t, ok := s.timers[path]; ok {
		t.Stop()
	}
	s.timers[path] = time.AfterFunc(debounceWindow, func() {
		s.recompileAndPublish(ctx)
	})
	s.mu.Unlock()
}

func (s *Server) recompileAndPublish(ctx context.Context) {
	result, _, err := compiler.CompileWorkspace(ctx, s.overlay, s.root, compiler.StageFull)
	if err != nil {
		// No typedown.toml above root (or another project-load failure):
		// fall back to a single-directory compile, matching how `check`
		// degrades when run outside a workspace.
		result, err = compiler.Compile(ctx, s.overlay, compiler.Options{Root: s.root, Stage: compiler.StageFull})
		if err != nil {
			logging.Get(logging.CategoryLinker).Warn("lsp: recompile failed: %v", err)
			return
		}
	}

	s.mu.Lock()
	s.result = result
	s.mu.Unlock()

	s.publishDiagnostics(result)
}

// publishDiagnostics groups the compiled Result's diagnostics by file and
// sends one textDocument/publishDiagnostics notification per file that is
// a compiled document or carries a diagnostic; a compiled document whose
// diagnostics have all resolved gets an empty list, which clears it.
func (s *Server) publishDiagnostics(result *compiler.Result) {
	byFile := make(map[string][]diag.Diagnostic)
	for path := range result.Documents {
		byFile[path] = nil
	}
	for _, d := range result.Diagnostics {
		if d.Location == nil {
			continue
		}
		byFile[d.Location.FilePath] = append(byFile[d.Location.FilePath], d)
	}

	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		s.notify("textDocument/publishDiagnostics", publishDiagnosticsParams{
			URI:         pathToURI(path),
			Diagnostics: toLSPDiagnostics(byFile[path]),
		})
	}
}

// currentResult returns the last compiled Result, or nil if nothing has
// compiled yet.
func (s *Server) currentResult() *compiler.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// documentAt parses path fresh from the overlay for position-sensitive
// operations (completion, hover, symbols) that need line/column text rather
// than the compiled Result's block list — scanner.ScanFile is cheap enough
// to call per-request, per its own doc comment.
func (s *Server) documentAt(path string) (*model.Document, []string) {
	doc, _ := scanner.New().ScanFile(s.overlay, path)
	content, err := s.overlay.GetContent(path)
	if err != nil {
		return doc, nil
	}
	return doc, strings.Split(content, "\n")
}

func pathToURI(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}

func uriToPath(uri string) string {
	p := strings.TrimPrefix(uri, "file://")
	return filepath.FromSlash(p)
}
