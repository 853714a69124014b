package scope

import (
	"fmt"
	"strings"
)

const briefMarker = "research brief:"

// clarificationIndicators mark a scoping response as a question back to the
// user rather than a go-ahead.
var clarificationIndicators = []string{
	"?",
	"clarify",
	"please provide",
	"could you",
	"what specific",
	"more details",
}

// completionIndicators mark a scoping response as ready-for-research even
// when no inline brief text is extractable.
var completionIndicators = []string{
	"great! i think we have a clear research direction",
	"research brief:",
	"ready to research:",
	"here's your research brief",
	"final research question:",
	"research scope:",
}

// LooksLikeClarification reports whether the scoping response is asking the
// user for more input. Case-insensitive substring match.
func LooksLikeClarification(response string) bool {
	lower := strings.ToLower(response)
	for _, indicator := range clarificationIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// ExtractBrief pulls a research brief out of the scoping response. An inline
// "research brief:" marker wins and everything after it is the brief; any
// other completion indicator yields a brief synthesized from the original
// query. Brief detection runs before clarification detection, so a response
// that both delivers a brief and asks a rhetorical question still proceeds.
func ExtractBrief(response, originalQuery string) (string, bool) {
	lower := strings.ToLower(response)

	if idx := strings.Index(lower, briefMarker); idx >= 0 {
		brief := strings.TrimSpace(response[idx+len(briefMarker):])
		if brief != "" {
			return brief, true
		}
	}

	for _, indicator := range completionIndicators {
		if strings.Contains(lower, indicator) {
			return SynthesizeBrief(originalQuery), true
		}
	}

	return "", false
}

// SynthesizeBrief builds a brief from the query when the scoping response
// signaled readiness without carrying extractable brief text.
func SynthesizeBrief(query string) string {
	context := []rune(query)
	if len(context) > 200 {
		context = context[:200]
	}

	return fmt.Sprintf(`## Research Brief

**Primary Question**: %s

**Clarified Scope**: Based on our conversation, this research will focus on the specific aspects and context we discussed.

**Research Context**: %s...

**Ready for Investigation**: This query has been refined and is ready for comprehensive research.`, query, string(context))
}
