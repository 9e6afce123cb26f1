package lsp

import "typedown/internal/diag"

// severity follows LSP's DiagnosticSeverity enum, the same numbering the
// teacher's internal/mangle/lsp.go uses for its own Diagnostic type.
type severity int

const (
	sevError       severity = 1
	sevWarning     severity = 2
	sevInformation severity = 3
	sevHint        severity = 4
)

func toSeverity(l diag.Level) severity {
	switch l {
	case diag.LevelError:
		return sevError
	case diag.LevelWarning:
		return sevWarning
	case diag.LevelHint:
		return sevHint
	default:
		return sevInformation
	}
}

type lspRange struct {
	Start lspPosition `json:"start"`
	End   lspPosition `json:"end"`
}

type lspPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type lspDiagnostic struct {
	Range    lspRange `json:"range"`
	Severity severity `json:"severity"`
	Code     string   `json:"code"`
	Source   string   `json:"source"`
	Message  string   `json:"message"`
}

type publishDiagnosticsParams struct {
	URI         string          `json:"uri"`
	Diagnostics []lspDiagnostic `json:"diagnostics"`
}

// toLSPDiagnostics converts the compiler's Diagnostic list to wire format.
// LSP positions are zero-based; SourceLocation's are one-based, per its own
// doc comment, so every line/col is shifted down by one on the way out.
func toLSPDiagnostics(diags []diag.Diagnostic) []lspDiagnostic {
	out := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		r := lspRange{}
		if d.Location != nil {
			r = lspRange{
				Start: lspPosition{Line: zeroBased(d.Location.LineStart), Character: zeroBased(d.Location.ColStart)},
				End:   lspPosition{Line: zeroBased(d.Location.LineEnd), Character: zeroBased(d.Location.ColEnd)},
			}
		}
		out = append(out, lspDiagnostic{
			Range:    r,
			Severity: toSeverity(d.Level),
			Code:     string(d.Code),
			Source:   "typedown",
			Message:  d.Message,
		})
	}
	return out
}

func zeroBased(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
