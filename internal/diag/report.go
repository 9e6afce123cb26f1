package diag

import (
	"encoding/json"
	"sync"
)

// Report is the append-only diagnostic list owned by one compile. It is
// rebuilt from scratch per spec.md §3's per-compile lifecycle, so a Report
// is always created fresh — there is no Clear/Reset method; compilers hold
// a new Report value per call to Compile.
type Report struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewReport returns an empty Report.
func NewReport() *Report {
	return &Report{}
}

// Add appends one diagnostic, preserving insertion order.
func (r *Report) Add(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, d)
}

// AddAll appends a whole slice, preserving relative order.
func (r *Report) AddAll(ds []Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, ds...)
}

// All returns a snapshot slice in insertion order.
func (r *Report) All() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.items))
	copy(out, r.items)
	return out
}

// HasErrors reports whether any Level == error diagnostic was recorded.
func (r *Report) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.items {
		if d.Level == LevelError {
			return true
		}
	}
	return false
}

// FilterLevel returns only diagnostics at or above the given level's
// severity, preserving order. Severity order: error > warning > info > hint.
func (r *Report) FilterLevel(min Level) []Diagnostic {
	rank := map[Level]int{LevelError: 3, LevelWarning: 2, LevelInfo: 1, LevelHint: 0}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Diagnostic
	for _, d := range r.items {
		if rank[d.Level] >= rank[min] {
			out = append(out, d)
		}
	}
	return out
}

// FilterCode returns only diagnostics with the given code.
func (r *Report) FilterCode(code Code) []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Diagnostic
	for _, d := range r.items {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// FilterStage returns only diagnostics belonging to the given stage.
func (r *Report) FilterStage(stage Stage) []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Diagnostic
	for _, d := range r.items {
		if d.Stage == stage {
			out = append(out, d)
		}
	}
	return out
}

// FilterFile returns only diagnostics whose location belongs to path; used
// by the LSP wrapper to publish diagnostics per document.
func (r *Report) FilterFile(path string) []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Diagnostic
	for _, d := range r.items {
		if d.Location != nil && d.Location.FilePath == path {
			out = append(out, d)
		}
	}
	return out
}

// MarshalJSON serialises the report as a JSON array, the wire shape named
// in spec.md §6.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.All())
}
