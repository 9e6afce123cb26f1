package lsp

import (
	"context"
	"encoding/json"
	"strings"

	"typedown/internal/model"
	"typedown/internal/provider"
)

func (s *Server) dispatch(ctx context.Context, raw json.RawMessage) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}

	switch req.Method {
	case "initialize":
		s.reply(req.ID, initializeResult(), nil)
	case "initialized":
		// no action needed; client is ready
	case "shutdown":
		s.reply(req.ID, nil, nil)
	case "exit":
		// handled by Serve returning when the stream closes

	case "textDocument/didOpen":
		s.handleDidOpen(ctx, req.Params)
	case "textDocument/didChange":
		s.handleDidChange(ctx, req.Params)
	case "textDocument/didClose":
		s.handleDidClose(req.Params)

	case "textDocument/completion":
		s.reply(req.ID, s.handleCompletion(req.Params), nil)
	case "textDocument/hover":
		s.reply(req.ID, s.handleHover(req.Params), nil)
	case "textDocument/definition":
		s.reply(req.ID, s.handleDefinition(req.Params), nil)
	case "textDocument/documentSymbol":
		s.reply(req.ID, s.handleDocumentSymbol(req.Params), nil)
	case "textDocument/semanticTokens/full":
		s.reply(req.ID, s.handleSemanticTokens(req.Params), nil)

	case "typedown/loadProject":
		s.handleLoadProject(ctx, req.Params)
	case "typedown/resetFileSystem":
		s.handleResetFileSystem(ctx)
	case "typedown/updateFile":
		s.handleUpdateFile(ctx, req.Params)

	default:
		// Unknown methods are silently ignored rather than erroring — LSP
		// clients routinely send capability-gated notifications a minimal
		// server has no business rejecting.
	}
}

func initializeResult() map[string]interface{} {
	return map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{
				"openClose": true,
				"change":    1, // full document sync
			},
			"completionProvider": map[string]interface{}{
				"triggerCharacters": []string{"[", "."},
			},
			"hoverProvider":          true,
			"definitionProvider":     true,
			"documentSymbolProvider": true,
			"semanticTokensProvider": map[string]interface{}{
				"legend": map[string]interface{}{
					"tokenTypes":     semanticTokenTypes,
					"tokenModifiers": []string{},
				},
				"full": true,
			},
		},
	}
}

type textDocumentItem struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
	Text    string `json:"text"`
}

func (s *Server) handleDidOpen(ctx context.Context, raw json.RawMessage) {
	var params struct {
		TextDocument textDocumentItem `json:"textDocument"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}
	path := uriToPath(params.TextDocument.URI)
	s.overlay.UpdateOverlay(path, params.TextDocument.Text)
	s.mu.Lock()
	s.versions[path] = params.TextDocument.Version
	s.mu.Unlock()
	s.scheduleRecompile(ctx, path)
}

func (s *Server) handleDidChange(ctx context.Context, raw json.RawMessage) {
	var params struct {
		TextDocument struct {
			URI     string `json:"uri"`
			Version int    `json:"version"`
		} `json:"textDocument"`
		ContentChanges []struct {
			Text string `json:"text"`
		} `json:"contentChanges"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}
	if len(params.ContentChanges) == 0 {
		return
	}
	path := uriToPath(params.TextDocument.URI)
	// Full-sync only (textDocumentSync.change = 1): the last content change
	// entry is the whole new document text.
	s.overlay.UpdateOverlay(path, params.ContentChanges[len(params.ContentChanges)-1].Text)
	s.mu.Lock()
	s.versions[path] = params.TextDocument.Version
	s.mu.Unlock()
	s.scheduleRecompile(ctx, path)
}

func (s *Server) handleDidClose(raw json.RawMessage) {
	var params struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}
	s.mu.Lock()
	delete(s.versions, uriToPath(params.TextDocument.URI))
	s.mu.Unlock()
}

// handleLoadProject bulk-hydrates the overlay from a client-pushed
// {path: content} map and switches to a memory-only backend: the client is
// expected to push every source file this way rather than have the server
// touch disk, matching the "hydrate purely from notifications" mode
// internal/provider.NewMemoryOnlyProvider documents.
func (s *Server) handleLoadProject(ctx context.Context, raw json.RawMessage) {
	var params struct {
		Files map[string]string `json:"files"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}
	s.mu.Lock()
	s.overlay = provider.NewMemoryOnlyProvider()
	s.mu.Unlock()
	for path, content := range params.Files {
		s.overlay.UpdateOverlay(path, content)
	}
	s.recompileAndPublish(ctx)
}

// handleResetFileSystem clears every overlay entry, reverting the server to
// whatever its current backend (disk or memory-only) considers ground
// truth, then recompiles.
func (s *Server) handleResetFileSystem(ctx context.Context) {
	s.overlay.ClearOverlay()
	s.recompileAndPublish(ctx)
}

func (s *Server) handleUpdateFile(ctx context.Context, raw json.RawMessage) {
	var params struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}
	s.overlay.UpdateOverlay(params.Path, params.Content)
	s.scheduleRecompile(ctx, params.Path)
}

type completionParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Position lspPosition `json:"position"`
}

type completionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// LSP CompletionItemKind values used below: 7 = Class, 6 = Variable.
const (
	kindClass    = 7
	kindVariable = 6
)

func (s *Server) handleCompletion(raw json.RawMessage) []completionItem {
	var params completionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil
	}
	result := s.currentResult()
	if result == nil || result.Table == nil {
		return nil
	}

	path := uriToPath(params.TextDocument.URI)
	_, lines := s.documentAt(path)
	prefix := ""
	if params.Position.Line >= 0 && params.Position.Line < len(lines) {
		prefix = wordPrefixAt(lines[params.Position.Line], params.Position.Character)
	}

	var items []completionItem
	for _, mb := range result.Table.IterModels() {
		if strings.HasPrefix(mb.ID, prefix) {
			items = append(items, completionItem{Label: mb.ID, Kind: kindClass, Detail: "model"})
		}
	}
	for _, eb := range result.Table.IterEntities() {
		if strings.HasPrefix(eb.ID, prefix) {
			items = append(items, completionItem{Label: eb.ID, Kind: kindVariable, Detail: eb.ClassName})
		}
	}
	return items
}

type hoverResult struct {
	Contents markupContent `json:"contents"`
}

type markupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (s *Server) handleHover(raw json.RawMessage) *hoverResult {
	var params completionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil
	}
	result := s.currentResult()
	if result == nil || result.Table == nil {
		return nil
	}
	path := uriToPath(params.TextDocument.URI)
	_, lines := s.documentAt(path)
	if params.Position.Line < 0 || params.Position.Line >= len(lines) {
		return nil
	}
	word := wordAt(lines[params.Position.Line], params.Position.Character)
	if word == "" {
		return nil
	}
	block := result.Table.ResolveID(word, path)
	if block == nil {
		return nil
	}
	value := hoverText(block)
	if value == "" {
		return nil
	}
	return &hoverResult{Contents: markupContent{Kind: "markdown", Value: value}}
}

func hoverText(b model.Block) string {
	switch v := b.(type) {
	case *model.EntityBlock:
		return "**" + v.ID + "** (" + v.ClassName + ")\n\ndefined at " + v.Location.String()
	case *model.ModelBlock:
		return "**" + v.ID + "** (model)\n\ndefined at " + v.Location.String()
	default:
		return ""
	}
}

type locationResult struct {
	URI   string   `json:"uri"`
	Range lspRange `json:"range"`
}

func (s *Server) handleDefinition(raw json.RawMessage) *locationResult {
	var params completionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil
	}
	result := s.currentResult()
	if result == nil || result.Table == nil {
		return nil
	}
	path := uriToPath(params.TextDocument.URI)
	_, lines := s.documentAt(path)
	if params.Position.Line < 0 || params.Position.Line >= len(lines) {
		return nil
	}
	word := wordAt(lines[params.Position.Line], params.Position.Character)
	if word == "" {
		return nil
	}
	block := result.Table.ResolveID(word, path)
	if block == nil {
		return nil
	}
	loc := block.Loc()
	return &locationResult{
		URI: pathToURI(loc.FilePath),
		Range: lspRange{
			Start: lspPosition{Line: zeroBased(loc.LineStart), Character: zeroBased(loc.ColStart)},
			End:   lspPosition{Line: zeroBased(loc.LineEnd), Character: zeroBased(loc.ColEnd)},
		},
	}
}

type documentSymbol struct {
	Name           string          `json:"name"`
	Detail         string          `json:"detail,omitempty"`
	Kind           int             `json:"kind"`
	Range          lspRange        `json:"range"`
	SelectionRange lspRange        `json:"selectionRange"`
	Children       []documentSymbol `json:"children,omitempty"`
}

// LSP SymbolKind values: 5 = Class (models), 19 = Object (entities), 6 = Method (specs).
const (
	symKindClass  = 5
	symKindObject = 19
	symKindMethod = 6
)

func (s *Server) handleDocumentSymbol(raw json.RawMessage) []documentSymbol {
	var params struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil
	}
	path := uriToPath(params.TextDocument.URI)
	doc, _ := s.documentAt(path)
	if doc == nil {
		return nil
	}

	var symbols []documentSymbol
	for _, mb := range doc.Models {
		symbols = append(symbols, blockSymbol(mb.ID, "model", symKindClass, mb.Location))
	}
	for _, eb := range doc.Entities {
		symbols = append(symbols, blockSymbol(eb.ID, eb.ClassName, symKindObject, eb.Location))
	}
	for _, sb := range doc.Specs {
		symbols = append(symbols, blockSymbol(sb.ID, "spec", symKindMethod, sb.Location))
	}
	return symbols
}

func blockSymbol(name, detail string, kind int, loc model.SourceLocation) documentSymbol {
	r := lspRange{
		Start: lspPosition{Line: zeroBased(loc.LineStart), Character: zeroBased(loc.ColStart)},
		End:   lspPosition{Line: zeroBased(loc.LineEnd), Character: zeroBased(loc.ColEnd)},
	}
	return documentSymbol{Name: name, Detail: detail, Kind: kind, Range: r, SelectionRange: r}
}

// semanticTokenTypes is the fixed legend this server advertises: just
// enough categories to distinguish the four block kinds in an editor theme.
var semanticTokenTypes = []string{"class", "struct", "function", "macro"}

type semanticTokens struct {
	Data []int `json:"data"`
}

// handleSemanticTokens classifies each block's signature line only (one
// token per block), encoded as LSP's delta-from-previous-token format. A
// full per-token-inside-the-body classifier is out of scope for a minimal
// server; this gives an editor enough to color model/entity/spec/config
// headers distinctly.
func (s *Server) handleSemanticTokens(raw json.RawMessage) semanticTokens {
	var params struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return semanticTokens{}
	}
	path := uriToPath(params.TextDocument.URI)
	doc, _ := s.documentAt(path)
	if doc == nil {
		return semanticTokens{}
	}

	type tok struct {
		line, char, length, kind int
	}
	var toks []tok
	for _, mb := range doc.Models {
		toks = append(toks, tok{zeroBased(mb.Location.LineStart), zeroBased(mb.Location.ColStart), len(mb.ID), 0})
	}
	for _, eb := range doc.Entities {
		toks = append(toks, tok{zeroBased(eb.Location.LineStart), zeroBased(eb.Location.ColStart), len(eb.ID), 1})
	}
	for _, sb := range doc.Specs {
		toks = append(toks, tok{zeroBased(sb.Location.LineStart), zeroBased(sb.Location.ColStart), len(sb.ID), 2})
	}
	for _, cb := range doc.Configs {
		toks = append(toks, tok{zeroBased(cb.Location.LineStart), zeroBased(cb.Location.ColStart), 6, 3})
	}

	data := make([]int, 0, len(toks)*5)
	prevLine, prevChar := 0, 0
	for _, t := range toks {
		deltaLine := t.line - prevLine
		deltaChar := t.char
		if deltaLine == 0 {
			deltaChar = t.char - prevChar
		}
		data = append(data, deltaLine, deltaChar, t.length, t.kind, 0)
		prevLine, prevChar = t.line, t.char
	}
	return semanticTokens{Data: data}
}

func wordAt(line string, col int) string {
	if col < 0 || col > len(line) {
		return ""
	}
	start, end := col, col
	for start > 0 && isIDChar(line[start-1]) {
		start--
	}
	for end < len(line) && isIDChar(line[end]) {
		end++
	}
	return line[start:end]
}

func wordPrefixAt(line string, col int) string {
	if col < 0 || col > len(line) {
		return ""
	}
	start := col
	for start > 0 && isIDChar(line[start-1]) {
		start--
	}
	return line[start:col]
}

func isIDChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '-' || c == '.'
}
