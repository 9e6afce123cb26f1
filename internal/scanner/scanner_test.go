package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedown/internal/diag"
	"typedown/internal/provider"
)

type fakeSource struct {
	files map[string]string
}

func (f fakeSource) Exists(path string) bool { _, ok := f.files[path]; return ok }
func (f fakeSource) GetContent(path string) (string, error) {
	content, ok := f.files[path]
	if !ok {
		return "", assert.AnError
	}
	return content, nil
}

func TestScanFileExtractsModelEntitySpec(t *testing.T) {
	content := "# Doc\n\n" +
		"```model:Person\nname: str\n```\n\n" +
		"```entity Person: alice\nname: \"Alice\"\nfriend: \"[[bob]]\"\n```\n\n" +
		"```spec:check-age\nassert true\n```\n"
	src := fakeSource{files: map[string]string{"a.td": content}}

	s := New()
	doc, diags := s.ScanFile(src, "a.td")
	require.Empty(t, diags)
	require.Len(t, doc.Models, 1)
	assert.Equal(t, "Person", doc.Models[0].ID)
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, "alice", doc.Entities[0].ID)
	assert.Equal(t, "Person", doc.Entities[0].ClassName)
	require.Len(t, doc.Entities[0].References, 1)
	assert.Equal(t, "bob", doc.Entities[0].References[0].Target)
	require.Len(t, doc.Specs, 1)
	assert.Equal(t, "check-age", doc.Specs[0].ID)
}

func TestScanFileFlagsConfigOutsideConfigFile(t *testing.T) {
	content := "```config\nbase_url: \"https://example.com\"\n```\n"
	src := fakeSource{files: map[string]string{"notconfig.td": content}}

	s := New()
	doc, diags := s.ScanFile(src, "notconfig.td")
	require.Len(t, doc.Configs, 1)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.ECfgOutsideConfigFile, diags[0].Code)
}

func TestScanFileConfigAllowedInConfigFile(t *testing.T) {
	content := "```config\nbase_url: \"https://example.com\"\n```\n"
	src := fakeSource{files: map[string]string{"config.td": content}}

	s := New()
	_, diags := s.ScanFile(src, "config.td")
	assert.Empty(t, diags)
}

func TestScanFileDesugarsNestedListArtefact(t *testing.T) {
	content := "```entity Person: alice\nfriend: [[['bob']]]\n```\n"
	src := fakeSource{files: map[string]string{"a.td": content}}

	s := New()
	doc, diags := s.ScanFile(src, "a.td")
	require.Len(t, doc.Entities, 1)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.ENestedListArtefact, diags[0].Code)
	assert.Equal(t, diag.LevelWarning, diags[0].Level)
}

func TestScanFileUnreadableYieldsE0104(t *testing.T) {
	src := fakeSource{files: map[string]string{}}
	s := New()
	doc, diags := s.ScanFile(src, "missing.td")
	assert.True(t, doc.Truncated)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.EFileUnreadable, diags[0].Code)
}

func TestScanFilePreservesLineNumbersAfterFrontMatter(t *testing.T) {
	content := "---\ntitle: Doc\n---\n\n```model:Person\nname: str\n```\n"
	src := fakeSource{files: map[string]string{"a.td": content}}

	s := New()
	doc, diags := s.ScanFile(src, "a.td")
	require.Empty(t, diags)
	require.Len(t, doc.Models, 1)
	assert.Equal(t, "Doc", doc.FrontMatter.Title)
	assert.Equal(t, 5, doc.Models[0].Location.LineStart)
}

func TestLintFlagsConfigOutsideConfigFile(t *testing.T) {
	content := "```config\nbase_url: \"https://example.com\"\n```\n"
	src := fakeSource{files: map[string]string{"notconfig.td": content}}
	s := New()
	doc, _ := s.ScanFile(src, "notconfig.td")

	diags := Lint(doc)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.ECfgOutsideConfigFile, diags[0].Code)
}

func TestScanProjectDiscoversFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.td")
	content := "```model:X\nname: str\n```\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	s := New()
	result, err := s.ScanProject(context.Background(), provider.NewDiskSource(), dir, map[string]bool{"node_modules": true})
	require.NoError(t, err)
	assert.Contains(t, result.TargetFiles, path)
	require.Contains(t, result.Documents, path)
	assert.Len(t, result.Documents[path].Models, 1)
}
