package diag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedown/internal/model"
)

func TestStageDerivedFromCode(t *testing.T) {
	cases := map[Code]Stage{
		EParseFailure:        StageScanner,
		EDuplicateID:         StageLinker,
		ERefTypeMismatch:     StageValidator,
		ESpecAssertionFail:   StageSpec,
		ESystemConfig:        StageSystem,
	}
	for code, want := range cases {
		d := Errorf(code, nil, "boom")
		assert.Equal(t, want, d.Stage, "code %s", code)
	}
}

func TestReportPreservesInsertionOrder(t *testing.T) {
	r := NewReport()
	r.Add(Errorf(EDuplicateID, nil, "first"))
	r.Add(Warnf(EPreludeLoadWarning, nil, "second"))
	r.Add(Errorf(EDependencyCycle, nil, "third"))

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].Message)
	assert.Equal(t, "second", all[1].Message)
	assert.Equal(t, "third", all[2].Message)
}

func TestReportHasErrors(t *testing.T) {
	r := NewReport()
	r.Add(Warnf(EPreludeLoadWarning, nil, "just a warning"))
	assert.False(t, r.HasErrors())
	r.Add(Errorf(EDuplicateID, nil, "now an error"))
	assert.True(t, r.HasErrors())
}

func TestReportFilterFile(t *testing.T) {
	r := NewReport()
	locA := &model.SourceLocation{FilePath: "a.td", LineStart: 1}
	locB := &model.SourceLocation{FilePath: "b.td", LineStart: 2}
	r.Add(New(EDuplicateID, LevelError, "in a", locA, nil))
	r.Add(New(EDuplicateID, LevelError, "in b", locB, nil))

	onlyA := r.FilterFile("a.td")
	require.Len(t, onlyA, 1)
	assert.Equal(t, "in a", onlyA[0].Message)
}

func TestRoundTripJSON(t *testing.T) {
	r := NewReport()
	loc := &model.SourceLocation{FilePath: "order.td", LineStart: 4, ColStart: 2}
	r.Add(New(ERefTypeMismatch, LevelError, "bad ref type", loc, map[string]interface{}{
		"expected": "User",
		"actual":   "Product",
	}))

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded []Diagnostic
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, r.All()[0].Code, decoded[0].Code)
	assert.Equal(t, r.All()[0].Message, decoded[0].Message)
	assert.Equal(t, "User", decoded[0].Details["expected"])
}
