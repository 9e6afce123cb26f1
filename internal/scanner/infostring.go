package scanner

import (
	"regexp"
	"strings"
)

// blockKindTag is the classification of a fenced block's info string,
// following the fixed grammar of spec.md §4.B step 3.
type blockKindTag int

const (
	tagNone blockKindTag = iota
	tagModel
	tagEntity
	tagSpec
	tagConfig
)

type parsedInfo struct {
	Kind      blockKindTag
	ClassName string // model/entity class name
	EntityID  string // entity signature id
	SpecID    string // optional spec id
	ConfigLang string // "" or e.g. "python"
	Malformed bool   // looked like a typedown tag but didn't parse fully
}

var (
	modelPattern  = regexp.MustCompile(`^model:(\S+)$`)
	entityPattern = regexp.MustCompile(`^entity\s+(\S+)\s*:\s*(\S+)$`)
	specPattern   = regexp.MustCompile(`^spec(?::(\S+))?$`)
	configPattern = regexp.MustCompile(`^config(?:\s+(\S+))?$`)
)

// parseInfoString classifies a fenced code block's info string per the
// grammar of spec.md §4.B. A block whose info string does not match any
// typedown tag at all returns tagNone (an ordinary fenced code block, not
// of interest to the compiler).
func parseInfoString(info string) parsedInfo {
	info = strings.TrimSpace(info)
	if info == "" {
		return parsedInfo{Kind: tagNone}
	}

	if m := modelPattern.FindStringSubmatch(info); m != nil {
		if m[1] == "" {
			return parsedInfo{Kind: tagModel, Malformed: true}
		}
		return parsedInfo{Kind: tagModel, ClassName: m[1]}
	}

	if strings.HasPrefix(info, "entity") {
		if m := entityPattern.FindStringSubmatch(info); m != nil {
			return parsedInfo{Kind: tagEntity, ClassName: m[1], EntityID: m[2]}
		}
		return parsedInfo{Kind: tagEntity, Malformed: true}
	}

	if strings.HasPrefix(info, "spec") {
		if m := specPattern.FindStringSubmatch(info); m != nil {
			return parsedInfo{Kind: tagSpec, SpecID: m[1]}
		}
		return parsedInfo{Kind: tagSpec, Malformed: true}
	}

	if strings.HasPrefix(info, "config") {
		if m := configPattern.FindStringSubmatch(info); m != nil {
			return parsedInfo{Kind: tagConfig, ConfigLang: m[1]}
		}
		return parsedInfo{Kind: tagConfig, Malformed: true}
	}

	return parsedInfo{Kind: tagNone}
}
