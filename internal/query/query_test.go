package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedown/internal/model"
	"typedown/internal/symtab"
)

func newTableWithAlice(t *testing.T) (*symtab.Table, *model.EntityBlock) {
	t.Helper()
	tab := symtab.New("/proj")
	alice := &model.EntityBlock{
		ID:        "alice",
		ClassName: "Person",
		RawData: map[string]interface{}{
			"name": "Alice",
			"profile": map[string]interface{}{
				"email": "a@x.com",
			},
			"tags": []interface{}{"admin", "owner"},
		},
	}
	require.Nil(t, tab.Register(alice, "/proj"))
	return tab, alice
}

func TestResolveByIDNoPropertyPath(t *testing.T) {
	tab, alice := newTableWithAlice(t)
	e := New(tab)
	v, err := e.Resolve("alice", "/proj/note.td")
	require.NoError(t, err)
	assert.Same(t, model.Block(alice), v)
}

func TestResolvePropertyPath(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	v, err := e.Resolve("alice.profile.email", "/proj/note.td")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", v)
}

func TestResolveWildcardMustBeFinal(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	_, err := e.Resolve("alice.*.email", "/proj/note.td")
	require.Error(t, err)
	var qe *QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestResolveWildcardReturnsWholePayload(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	v, err := e.Resolve("alice.*", "/proj/note.td")
	require.NoError(t, err)
	asMap, ok := v.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Alice", asMap["name"])
}

func TestResolveIndexedSegment(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	v, err := e.Resolve("alice.tags[1]", "/proj/note.td")
	require.NoError(t, err)
	assert.Equal(t, "owner", v)
}

func TestResolveMissingSegmentYieldsQueryError(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	_, err := e.Resolve("alice.missing", "/proj/note.td")
	require.Error(t, err)
	var qe *QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestResolveUnknownRootYieldsReferenceError(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	_, err := e.Resolve("bob", "/proj/note.td")
	require.Error(t, err)
	var re *ReferenceError
	assert.ErrorAs(t, err, &re)
}

func TestResolveStringExactMatchPreservesType(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	v, diags := e.ResolveString("[[alice.tags[1]]]", "/proj/note.td")
	assert.Empty(t, diags)
	assert.Equal(t, "owner", v)
}

func TestResolveStringMixedContentInterpolates(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	v, diags := e.ResolveString("Hello [[alice.name]]!", "/proj/note.td")
	assert.Empty(t, diags)
	assert.Equal(t, "Hello Alice!", v)
}

func TestResolveStringMixedContentFallsBackOnFailure(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	v, diags := e.ResolveString("Hello [[bob]]!", "/proj/note.td")
	require.Len(t, diags, 1)
	assert.Equal(t, "Hello [[bob]]!", v)
}

func TestEvaluateDataWalksNestedStructures(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	data := map[string]interface{}{
		"greeting": "Hi [[alice.name]]",
		"items":    []interface{}{"[[alice.profile.email]]"},
	}
	resolved, diags := e.EvaluateData(data, "/proj/note.td")
	assert.Empty(t, diags)
	asMap := resolved.(map[string]interface{})
	assert.Equal(t, "Hi Alice", asMap["greeting"])
	assert.Equal(t, []interface{}{"a@x.com"}, asMap["items"])
}

func TestResolveFallsBackToRegisteredResource(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	e.RegisterResource("logo", "/assets/logo.png")

	v, err := e.Resolve("logo", "/proj/note.td")
	require.NoError(t, err)
	assert.Equal(t, "/assets/logo.png", v)
}

func TestResolveFallsBackToProjectRelativeFile(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "banner.png"), []byte("x"), 0o644))
	e := New(tab).WithProjectRoot(dir)

	v, err := e.Resolve("banner.png", "/proj/note.td")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "banner.png"), v)
}

func TestResolveAssetPropertyPathFails(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)
	e.RegisterResource("logo", "/assets/logo.png")

	_, err := e.Resolve("logo.width", "/proj/note.td")
	var qErr *QueryError
	require.ErrorAs(t, err, &qErr)
}

func TestResolveNeitherTableNorAssetYieldsReferenceError(t *testing.T) {
	tab, _ := newTableWithAlice(t)
	e := New(tab)

	_, err := e.Resolve("nowhere", "/proj/note.td")
	var refErr *ReferenceError
	require.ErrorAs(t, err, &refErr)
}
