// Package model holds the shared value types of the typedown compiler:
// source locations, the Block sum type, references, and identifiers. It has
// no dependency on any other internal package so every pipeline stage can
// import it without creating an import cycle.
package model

import "fmt"

// SourceLocation pins a node to a line/column range in a document; lines
// and columns are 1-based. ColEnd may be
// approximate (goldmark reports byte offsets, not columns, for some node
// kinds) but LineStart must always be exact.
type SourceLocation struct {
	FilePath  string `json:"file_path"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	ColStart  int    `json:"col_start"`
	ColEnd    int    `json:"col_end"`
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FilePath, l.LineStart, l.ColStart)
}

// IsZero reports whether the location was never populated.
func (l SourceLocation) IsZero() bool {
	return l.FilePath == "" && l.LineStart == 0 && l.LineEnd == 0
}
