package validator

import (
	"typedown/internal/diag"
	"typedown/internal/logging"
	"typedown/internal/model"
)

// Schema runs the L2 sub-stage (spec.md §4.G.1) over every entity that was
// assigned a model by the Linker. Entities with no assigned model are
// skipped here — E0364 (unresolved model) is the Validator's job to raise
// once the full entity set is known, not this stage's.
func Schema(entities []*model.EntityBlock) []diag.Diagnostic {
	timer := logging.StartTimer(logging.CategoryValidator, "Schema")
	defer timer.StopWithInfo()

	var diags []diag.Diagnostic
	for _, eb := range entities {
		if eb.Model == nil || eb.Model.Schema == nil {
			continue
		}
		if _, hasTopLevelID := eb.RawData["id"]; hasTopLevelID {
			loc := eb.Location
			diags = append(diags, diag.Errorf(diag.ETopLevelIDKey, &loc,
				"entity %q declares a reserved top-level \"id\" key", eb.ID))
			continue
		}
		_, structDiags := instantiate(eb, eb.Model.Schema, false)
		diags = append(diags, structDiags...)
	}
	return diags
}
