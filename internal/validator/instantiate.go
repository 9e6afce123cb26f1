// Package validator implements the Validator (spec.md §4.G): the four
// sub-stages Schema (L2), Local (L3a), Global (L3b), and Specs (L4).
package validator

import (
	"strings"

	"typedown/internal/diag"
	"typedown/internal/model"
)

// isRefShaped reports whether v is a string of the exact form `[[...]]` —
// the shape structural instantiation must suppress failures for, since an
// unresolved reference is expected to fail a type/shape check before the
// Global stage has had a chance to resolve it.
func isRefShaped(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return strings.HasPrefix(s, "[[") && strings.HasSuffix(s, "]]")
}

// instantiate performs spec.md §4.G.1/§4.G.2's shared structural check: it
// builds a working copy of the entity's data with the signature id
// injected, verifies required fields are present with the right shape,
// and — only when withValidators is true (the Local sub-stage) — runs
// field and record validators. Either way, reference-shaped field values
// never fail a shape check at this stage.
func instantiate(eb *model.EntityBlock, schema *model.Schema, withValidators bool) (map[string]interface{}, []diag.Diagnostic) {
	var diags []diag.Diagnostic

	data := eb.RawData
	if data == nil {
		data = map[string]interface{}{}
	}
	working := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		working[k] = v
	}
	working["id"] = eb.ID

	for _, field := range schema.Fields {
		val, present := working[field.Name]
		if !present {
			if field.Default != nil {
				working[field.Name] = field.Default
				continue
			}
			if field.Required {
				loc := eb.Location
				diags = append(diags, diag.Errorf(diag.EStructuralError, &loc,
					"entity %q missing required field %q", eb.ID, field.Name))
			}
			continue
		}
		if isRefShaped(val) {
			continue
		}
		if !checkFieldShape(val, field) {
			loc := eb.Location
			diags = append(diags, diag.Errorf(diag.EStructuralError, &loc,
				"entity %q field %q has the wrong shape for %s", eb.ID, field.Name, fieldTypeName(field.Type)))
			continue
		}
		if withValidators {
			for _, v := range field.Validators {
				if ok, msg := v.Check(val); !ok {
					loc := eb.Location
					diags = append(diags, diag.Errorf(diag.EStructuralError, &loc,
						"entity %q field %q failed validator %q: %s", eb.ID, field.Name, v.Name, msg))
				}
			}
		}
	}

	if withValidators {
		for _, rv := range schema.Validators {
			if ok, msg := rv.Check(working); !ok {
				loc := eb.Location
				diags = append(diags, diag.Errorf(diag.EStructuralError, &loc,
					"entity %q failed record validator %q: %s", eb.ID, rv.Name, msg))
			}
		}
	}

	return working, diags
}

func checkFieldShape(val interface{}, field model.Field) bool {
	switch field.Type {
	case model.TypeString, model.TypeRef:
		_, ok := val.(string)
		return ok
	case model.TypeInt:
		switch val.(type) {
		case int, int64:
			return true
		default:
			return false
		}
	case model.TypeFloat:
		switch val.(type) {
		case float64, float32, int, int64:
			return true
		default:
			return false
		}
	case model.TypeBool:
		_, ok := val.(bool)
		return ok
	case model.TypeList:
		_, ok := val.([]interface{})
		return ok
	case model.TypeMap:
		_, ok := val.(map[string]interface{})
		return ok
	case model.TypeAny:
		return true
	default:
		return true
	}
}

func fieldTypeName(t model.FieldType) string {
	switch t {
	case model.TypeString:
		return "string"
	case model.TypeInt:
		return "int"
	case model.TypeFloat:
		return "float"
	case model.TypeBool:
		return "bool"
	case model.TypeList:
		return "list"
	case model.TypeMap:
		return "map"
	case model.TypeRef:
		return "ref"
	default:
		return "any"
	}
}
