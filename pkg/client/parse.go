package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/postmaker/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseSubject decodes a model answer. Answers that are not usable JSON
// yield a centered subject with zero confidence.
func ParseSubject(raw string) *types.SubjectResult {
	var result types.SubjectResult
	if err := json.Unmarshal([]byte(SanitizeModelJSON(raw)), &result); err != nil {
		return &types.SubjectResult{
			Primary: types.Subject{
				Label: "none",
				Box:   types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
				Cx:    0.5,
				Cy:    0.5,
			},
			Description: "unparseable model response",
		}
	}
	return &result
}

// SanitizeModelJSON strips code fences, comments and trailing commas and
// keeps only the outermost object.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
