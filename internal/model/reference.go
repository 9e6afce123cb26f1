package model

// Reference is a parsed `[[target]]` occurrence, found either in prose or in
// the YAML payload of an entity.
type Reference struct {
	Target   string
	Location SourceLocation
}
