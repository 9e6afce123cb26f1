package scanner

import "regexp"

// nestedListArtefact matches the `[[['x']]]`-shaped YAML anti-pattern
// described in spec.md §4.B step 4: a flow-YAML single-element nested list
// whose inner element is itself a bracketed reference-looking string. The
// pattern is only normative for this exact shape (spec.md §9's second Open
// Question) — any other YAML shape that legitimately produces a list of
// strings is left untouched and handled by the surrounding YAML parse.
var nestedListArtefact = regexp.MustCompile(`\[\[\[\s*['"]?([^'"\[\]]+?)['"]?\s*\]\]\]`)

// desugarNestedList rewrites every occurrence of the nested-list artefact
// into a plain quoted reference string, and reports whether any rewrite
// happened (used to raise E0103).
func desugarNestedList(body string) (string, bool) {
	found := false
	out := nestedListArtefact.ReplaceAllStringFunc(body, func(match string) string {
		found = true
		sub := nestedListArtefact.FindStringSubmatch(match)
		inner := match
		if len(sub) == 2 {
			inner = sub[1]
		}
		return `"[[` + inner + `]]"`
	})
	return out, found
}
