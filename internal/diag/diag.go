// Package diag implements the Diagnostic Engine (spec.md §4.H): a
// stable-coded, append-only diagnostic list shared by every pipeline stage
// and serialised to the CLI/LSP wire format.
package diag

import (
	"fmt"

	"typedown/internal/model"
)

// Level is the severity of a Diagnostic. Only Error blocks the next stage.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelHint    Level = "hint"
)

// Stage names the pipeline stage that produced a diagnostic, derived from
// the code's second digit.
type Stage string

const (
	StageScanner   Stage = "L1-Scanner"
	StageLinker    Stage = "L2-Linker"
	StageValidator Stage = "L3-Validator"
	StageSpec      Stage = "L4-Spec"
	StageSystem    Stage = "System"
)

// Code is a fixed diagnostic code, e.g. "E0362". Code catalogue and
// meanings are documented in SPEC_FULL.md §4.H.
type Code string

const (
	// E01xx — Scanner
	ECfgOutsideConfigFile Code = "E0102"
	ENestedListArtefact   Code = "E0103"
	EFileUnreadable       Code = "E0104"
	EParseFailure         Code = "E0101"

	// E02xx — Linker
	EModelExecFailure    Code = "E0221"
	EConfigExecFailure   Code = "E0222"
	EPreludeLoadWarning  Code = "E0223"
	ESchemaRebuildWarning Code = "E0224"
	EModelNameMismatch   Code = "E0231"
	EReservedIDField     Code = "E0232"
	EInvalidSchema       Code = "E0233"
	EDuplicateID         Code = "E0241"

	// E03xx — Validator
	EDependencyCycle     Code = "E0342"
	EFormerUnresolved    Code = "E0343"
	EUnresolvedReference Code = "E0341"
	EStructuralError     Code = "E0361"
	ERefTypeMismatch     Code = "E0362"
	ETopLevelIDKey       Code = "E0363"
	EUnresolvedModel     Code = "E0364"
	EQueryPathError      Code = "E0365"

	// E04xx — Spec
	ESpecException      Code = "E0421"
	ESpecSelectorEmpty  Code = "E0423"
	ESpecAssertionFail  Code = "E0424"

	// E09xx — System
	ESystemConfig   Code = "E0901"
	ESystemInternal Code = "E0902"
)

// stageOf derives the Stage from a Code's second digit.
func stageOf(c Code) Stage {
	if len(c) < 3 {
		return StageSystem
	}
	switch c[2] {
	case '0':
		return StageSystem
	case '1':
		return StageScanner
	case '2':
		return StageLinker
	case '3':
		return StageValidator
	case '4':
		return StageSpec
	default:
		return StageSystem
	}
}

// categoryNames maps each code to a human label; derived mechanically from
// the first two digits would collide (E02 linker and E03 validator both
// have a "4x" category meaning unresolved-reference-shaped things), so the
// catalogue is an explicit table rather than pure arithmetic.
var categoryNames = map[Code]string{
	EParseFailure:         "Syntax",
	EFileUnreadable:       "Syntax",
	ECfgOutsideConfigFile: "Structure",
	ENestedListArtefact:   "Structure",

	EModelExecFailure:     "Execution",
	EConfigExecFailure:    "Execution",
	EPreludeLoadWarning:   "Execution",
	ESchemaRebuildWarning: "Execution",
	EModelNameMismatch:    "Schema",
	EReservedIDField:      "Schema",
	EInvalidSchema:        "Schema",
	EDuplicateID:          "Symbol",

	EDependencyCycle:     "Graph",
	EFormerUnresolved:     "Graph",
	EUnresolvedReference: "Reference",
	EStructuralError:      "Schema/Structure",
	ERefTypeMismatch:      "Schema/Type",
	ETopLevelIDKey:        "Schema/Structure",
	EUnresolvedModel:      "Schema",
	EQueryPathError:       "Query",

	ESpecException:     "Execution",
	ESpecSelectorEmpty: "Selector",
	ESpecAssertionFail: "Assertion",

	ESystemConfig:   "Config",
	ESystemInternal: "Internal",
}

func categoryOf(c Code) string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Diagnostic is one entry in a Report.
type Diagnostic struct {
	Code     Code                   `json:"code"`
	Level    Level                  `json:"level"`
	Stage    Stage                  `json:"stage"`
	Category string                 `json:"category"`
	Message  string                 `json:"message"`
	Location *model.SourceLocation  `json:"location,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// New builds a Diagnostic with stage/category derived from code.
func New(code Code, level Level, message string, loc *model.SourceLocation, details map[string]interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Level:    level,
		Stage:    stageOf(code),
		Category: categoryOf(code),
		Message:  message,
		Location: loc,
		Details:  details,
	}
}

// Errorf builds an error-level diagnostic.
func Errorf(code Code, loc *model.SourceLocation, format string, args ...interface{}) Diagnostic {
	return New(code, LevelError, fmt.Sprintf(format, args...), loc, nil)
}

// Warnf builds a warning-level diagnostic.
func Warnf(code Code, loc *model.SourceLocation, format string, args ...interface{}) Diagnostic {
	return New(code, LevelWarning, fmt.Sprintf(format, args...), loc, nil)
}
