package pipeline

import (
	"strings"

	"roverstatus/internal/util"
)

type DetectResult struct {
	IsCandidate bool
	Score       float64
	Missing     []string
}

var statusAnchors = []string{"as of sol", "watt-hours", "(tau) of", "dust factor of"}

// DetectStatusReport flags blocks that open like a status report. A candidate that
// ExtractRecord rejects usually means the page phrasing drifted.
func DetectStatusReport(block string) DetectResult {
	lower := strings.ToLower(util.FoldSpaces(block))

	found := 0
	missing := []string{}
	for _, anchor := range statusAnchors {
		if strings.Contains(lower, anchor) {
			found++
			continue
		}
		missing = append(missing, anchor)
	}

	return DetectResult{
		IsCandidate: strings.Contains(lower, statusAnchors[0]),
		Score:       float64(found) / float64(len(statusAnchors)),
		Missing:     missing,
	}
}
