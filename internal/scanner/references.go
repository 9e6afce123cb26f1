package scanner

import (
	"regexp"

	"typedown/internal/model"
)

var refPattern = regexp.MustCompile(`\[\[(.*?)\]\]`)

// extractReferences finds every `[[target]]` occurrence in text and attaches
// loc to each — the scanner only knows the enclosing block's location, not
// a precise sub-position, which matches spec.md §3's "col_end may be
// approximate" allowance.
func extractReferences(text string, loc model.SourceLocation) []model.Reference {
	matches := refPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]model.Reference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, model.Reference{Target: m[1], Location: loc})
	}
	return refs
}

// collectStringReferences walks a decoded YAML value tree and extracts
// every reference found in any string leaf.
func collectStringReferences(v interface{}, loc model.SourceLocation) []model.Reference {
	var refs []model.Reference
	switch t := v.(type) {
	case string:
		refs = append(refs, extractReferences(t, loc)...)
	case map[string]interface{}:
		for _, val := range t {
			refs = append(refs, collectStringReferences(val, loc)...)
		}
	case []interface{}:
		for _, val := range t {
			refs = append(refs, collectStringReferences(val, loc)...)
		}
	}
	return refs
}
