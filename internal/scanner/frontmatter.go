package scanner

import (
	"strings"

	"gopkg.in/yaml.v3"

	"typedown/internal/model"
)

// splitFrontMatter detects a leading `---` YAML front-matter block and
// returns the parsed metadata, the remainder of the document (with the
// front-matter text blanked out to bare newlines, so every later line keeps
// its line number when the Scanner maps goldmark's byte offsets in the
// remainder back to source lines; byte offsets themselves shift), and
// whether a front-matter block was present.
func splitFrontMatter(source []byte) (model.FrontMatter, []byte, bool, error) {
	text := string(source)
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return model.FrontMatter{}, source, false, nil
	}

	lines := strings.SplitAfter(text, "\n")
	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		trimmed := strings.TrimRight(lines[i], "\r\n")
		if trimmed == "---" {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 {
		// No closing delimiter: not a valid front-matter block, treat the
		// whole file as body.
		return model.FrontMatter{}, source, false, nil
	}

	yamlText := strings.Join(lines[1:closeIdx], "")
	var raw struct {
		Title   string            `yaml:"title"`
		Tags    []string          `yaml:"tags"`
		Author  string            `yaml:"author"`
		Order   int               `yaml:"order"`
		Scripts map[string]string `yaml:"scripts"`
	}
	if err := yaml.Unmarshal([]byte(yamlText), &raw); err != nil {
		return model.FrontMatter{}, source, true, err
	}

	fm := model.FrontMatter{
		Title:   raw.Title,
		Tags:    raw.Tags,
		Author:  raw.Author,
		Order:   raw.Order,
		Scripts: raw.Scripts,
	}

	// Blank out the front-matter lines (keep only their line endings) so
	// every later line of the remainder keeps its line number in the
	// original file.
	var rebuilt strings.Builder
	for i, line := range lines {
		if i <= closeIdx {
			// Preserve only the trailing newline(s) to keep line counts
			// identical; blank the content.
			for _, r := range line {
				if r == '\n' || r == '\r' {
					rebuilt.WriteRune(r)
				}
			}
			continue
		}
		rebuilt.WriteString(line)
	}
	return fm, []byte(rebuilt.String()), true, nil
}
