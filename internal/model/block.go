package model

// BlockKind discriminates the Block sum type.
type BlockKind int

const (
	BlockModel BlockKind = iota
	BlockEntity
	BlockSpec
	BlockConfig
)

func (k BlockKind) String() string {
	switch k {
	case BlockModel:
		return "model"
	case BlockEntity:
		return "entity"
	case BlockSpec:
		return "spec"
	case BlockConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Block is the common interface every fenced-code-block variant satisfies.
// Concrete variants are ModelBlock, EntityBlock, SpecBlock, ConfigBlock.
type Block interface {
	Kind() BlockKind
	BlockID() string
	Loc() SourceLocation
	RawBody() string
}

// SchemaHandle points into the model registry; populated by the linker once
// a ModelBlock's body has been executed in the sandbox.
type SchemaHandle struct {
	Name   string
	Schema *Schema
}

// ModelBlock declares a schema: a model name plus a body of embedded
// scripting-dialect source that is executed by the sandbox to produce a
// Schema.
type ModelBlock struct {
	ID       string // declared class name, used as the registry key
	Location SourceLocation
	Body     string
	Handle   *SchemaHandle // populated post-link
}

func (b *ModelBlock) Kind() BlockKind        { return BlockModel }
func (b *ModelBlock) BlockID() string        { return b.ID }
func (b *ModelBlock) Loc() SourceLocation    { return b.Location }
func (b *ModelBlock) RawBody() string        { return b.Body }

// EntityBlock is a data instance bound to a model by its signature's class
// name. RawData is the YAML payload as parsed (with the nested-list
// artefact already desugared); ResolvedData is filled in by the validator's
// global stage once every `[[…]]` reference has been substituted.
type EntityBlock struct {
	ID           string
	ClassName    string
	Location     SourceLocation
	Body         string
	RawData      map[string]interface{}
	ResolvedData map[string]interface{}
	References   []Reference
	ContentHash  string
	Model        *SchemaHandle // populated post-link; nil if unresolved
	Instance     map[string]interface{}
}

func (b *EntityBlock) Kind() BlockKind     { return BlockEntity }
func (b *EntityBlock) BlockID() string     { return b.ID }
func (b *EntityBlock) Loc() SourceLocation { return b.Location }
func (b *EntityBlock) RawBody() string     { return b.Body }

// Data returns ResolvedData when populated, else RawData — the fallback the
// query engine and spec stage rely on so a partially-failed compile still
// degrades gracefully.
func (b *EntityBlock) Data() map[string]interface{} {
	if b.ResolvedData != nil {
		return b.ResolvedData
	}
	return b.RawData
}

// SpecTargetScope selects whether a spec runs once per entity of a type or
// once globally.
type SpecTargetScope int

const (
	ScopeLocal SpecTargetScope = iota
	ScopeGlobal
)

// SpecTarget is a spec block's optional `@target` selector.
type SpecTarget struct {
	Kind  string // entity class name the spec runs against, or "" for global
	Scope SpecTargetScope
}

// SpecBlock is a cross-entity rule executed at L4.
type SpecBlock struct {
	ID       string
	Location SourceLocation
	Body     string
	Target   *SpecTarget
}

func (b *SpecBlock) Kind() BlockKind     { return BlockSpec }
func (b *SpecBlock) BlockID() string     { return b.ID }
func (b *SpecBlock) Loc() SourceLocation { return b.Location }
func (b *SpecBlock) RawBody() string     { return b.Body }

// ConfigBlock contributes names to the linker's cascading environment. It
// only ever appears legally in a file literally named config.td.
type ConfigBlock struct {
	ID       string
	Location SourceLocation
	Body     string
}

func (b *ConfigBlock) Kind() BlockKind     { return BlockConfig }
func (b *ConfigBlock) BlockID() string     { return b.ID }
func (b *ConfigBlock) Loc() SourceLocation { return b.Location }
func (b *ConfigBlock) RawBody() string     { return b.Body }
