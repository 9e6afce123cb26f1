package model

import "strings"

// HashPrefix marks a reference target as content-addressed.
const HashPrefix = "sha256:"

// Identifier is the parsed form of a reference target string. Parsing is
// pure and context-free: it never touches the symbol table, it only
// classifies the raw text. Resolution (turning an Identifier into a Block)
// is context-aware and lives in the symbol table and query packages.
type Identifier interface {
	// Raw returns the original string the identifier was parsed from.
	Raw() string
	isIdentifier()
}

// Hash is a `sha256:<hex>` identifier; it is globally stable and does not
// depend on lexical scope.
type Hash struct {
	raw    string
	Digest string
}

func (h Hash) Raw() string  { return h.raw }
func (Hash) isIdentifier()  {}

// Id is any non-hash target string: a bare name, or one containing `/`,
// `-`, `.`. Per spec.md §9's Open Question, ids are opaque strings — a `/`
// inside one is never treated as a scope path; scope is carried separately
// by the symbol table's scoped index.
type Id struct {
	raw  string
	Name string
}

func (i Id) Raw() string { return i.raw }
func (Id) isIdentifier()  {}

// ParseIdentifier classifies raw independently of any resolution context.
// The discrimination order (hash prefix first, opaque id fallback) follows
// the reference implementation's identifier factory.
func ParseIdentifier(raw string) Identifier {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, HashPrefix) {
		return Hash{raw: trimmed, Digest: strings.TrimPrefix(trimmed, HashPrefix)}
	}
	return Id{raw: trimmed, Name: trimmed}
}

// String round-trips an Identifier back to its original text, satisfying
// the law in spec.md §8: parse(q) is pure and round-trips via to_string.
func String(id Identifier) string {
	return id.Raw()
}
