package validator

import (
	"strings"

	"typedown/internal/depgraph"
	"typedown/internal/diag"
	"typedown/internal/logging"
	"typedown/internal/model"
	"typedown/internal/query"
	"typedown/internal/symtab"
)

// Global runs the L3b sub-stage (spec.md §4.G.3): build the `former`
// dependency graph, topologically order entities, resolve every
// reference in that order into `resolved_data`, and type-check Ref[T]
// fields.
func Global(entities []*model.EntityBlock, table *symtab.Table, qe *query.Engine) []diag.Diagnostic {
	timer := logging.StartTimer(logging.CategoryValidator, "Global")
	defer timer.StopWithInfo()

	var diags []diag.Diagnostic

	byHash := make(map[string]*model.EntityBlock, len(entities))
	for _, eb := range entities {
		if eb.ContentHash == "" {
			eb.ContentHash = symtab.ContentHash(eb)
		}
		byHash[eb.ContentHash] = eb
	}

	g := depgraph.New()
	for _, eb := range entities {
		g.AddNode(eb.ContentHash)
	}

	for _, eb := range entities {
		formerRaw, ok := eb.RawData["former"].(string)
		if !ok {
			continue
		}
		inner, isRef := stripRef(formerRaw)
		if !isRef {
			continue
		}
		target, err := qe.Resolve(inner, eb.Location.FilePath)
		targetEntity, isEntity := target.(*model.EntityBlock)
		if err != nil || !isEntity {
			loc := eb.Location
			diags = append(diags, diag.Errorf(diag.EFormerUnresolved, &loc,
				"entity %q: former target %q does not resolve to an entity", eb.ID, inner))
			continue
		}
		g.AddEdge(eb.ContentHash, targetEntity.ContentHash)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		if cycleErr, ok := err.(*depgraph.CycleError); ok {
			ids := make([]string, len(cycleErr.Cycle))
			for i, hash := range cycleErr.Cycle {
				if eb, ok := byHash[hash]; ok {
					ids[i] = eb.ID
				} else {
					ids[i] = hash
				}
			}
			diags = append(diags, depgraph.Diagnostic(&depgraph.CycleError{Cycle: ids}))
		}
		return diags
	}

	for _, hash := range order {
		eb, ok := byHash[hash]
		if !ok {
			continue
		}
		resolved, evalDiags := qe.EvaluateData(eb.RawData, eb.Location.FilePath)
		diags = append(diags, evalDiags...)
		if data, ok := resolved.(map[string]interface{}); ok {
			eb.ResolvedData = data
		}
	}

	for _, eb := range entities {
		if eb.Model == nil || eb.Model.Schema == nil {
			loc := eb.Location
			diags = append(diags, diag.Errorf(diag.EUnresolvedModel, &loc,
				"entity %q: class %q does not resolve to any model", eb.ID, eb.ClassName))
			continue
		}
		for _, field := range eb.Model.Schema.Fields {
			diags = append(diags, checkRefField(eb, field, qe)...)
		}
	}

	return diags
}

// stripRef reports whether s is exactly `[[inner]]` and returns inner.
func stripRef(s string) (string, bool) {
	if strings.HasPrefix(s, "[[") && strings.HasSuffix(s, "]]") {
		return s[2 : len(s)-2], true
	}
	return "", false
}

// checkRefField type-checks one Ref[T] (or Ref[T1, T2, ...]) field,
// confirming the resolved target's class name is in the field's
// admissible set. List-of-reference fields are checked element-wise.
func checkRefField(eb *model.EntityBlock, field model.Field, qe *query.Engine) []diag.Diagnostic {
	if field.Type == model.TypeRef {
		return checkOneRef(eb, field, eb.RawData[field.Name], qe)
	}
	if field.Type == model.TypeList && field.ElementType != nil && field.ElementType.Type == model.TypeRef {
		list, ok := eb.RawData[field.Name].([]interface{})
		if !ok {
			return nil
		}
		var diags []diag.Diagnostic
		for _, item := range list {
			diags = append(diags, checkOneRef(eb, *field.ElementType, item, qe)...)
		}
		return diags
	}
	return nil
}

func checkOneRef(eb *model.EntityBlock, field model.Field, raw interface{}, qe *query.Engine) []diag.Diagnostic {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	inner, isRef := stripRef(s)
	if !isRef {
		return nil
	}
	target, err := qe.Resolve(inner, eb.Location.FilePath)
	if err != nil {
		return nil // already reported as E0341 during reference resolution
	}
	targetEntity, ok := target.(*model.EntityBlock)
	if !ok {
		return nil
	}
	if len(field.TargetTypes) == 0 {
		return nil
	}
	for _, t := range field.TargetTypes {
		if t == targetEntity.ClassName {
			return nil
		}
	}
	loc := eb.Location
	return []diag.Diagnostic{diag.Errorf(diag.ERefTypeMismatch, &loc,
		"entity %q field %q: target class %q not in admissible set %v", eb.ID, field.Name, targetEntity.ClassName, field.TargetTypes)}
}
