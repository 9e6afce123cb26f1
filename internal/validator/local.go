package validator

import (
	"typedown/internal/diag"
	"typedown/internal/logging"
	"typedown/internal/model"
)

// Local runs the L3a sub-stage (spec.md §4.G.2): entities are
// re-instantiated with field and record validators enabled, again
// suppressing reference-shaped failures.
func Local(entities []*model.EntityBlock) []diag.Diagnostic {
	timer := logging.StartTimer(logging.CategoryValidator, "Local")
	defer timer.StopWithInfo()

	var diags []diag.Diagnostic
	for _, eb := range entities {
		if eb.Model == nil || eb.Model.Schema == nil {
			continue
		}
		working, structDiags := instantiate(eb, eb.Model.Schema, true)
		diags = append(diags, structDiags...)
		eb.Instance = working
	}
	return diags
}
