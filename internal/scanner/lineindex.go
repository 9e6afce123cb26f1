package scanner

import "sort"

// lineIndex maps a byte offset in a source buffer to a 1-indexed
// line/column pair. It is built once per document and reused for every
// block extracted from that document.
type lineIndex struct {
	offsets []int // offsets[i] is the byte offset where line i+1 begins
}

func newLineIndex(source []byte) *lineIndex {
	offsets := []int{0}
	for i, b := range source {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return &lineIndex{offsets: offsets}
}

// lineCol returns the 1-indexed line and column for offset.
func (li *lineIndex) lineCol(offset int) (line, col int) {
	i := sort.Search(len(li.offsets), func(i int) bool { return li.offsets[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - li.offsets[i] + 1
}
