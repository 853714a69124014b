package search

import (
	"fmt"
	"strings"
)

// QualityAssessment captures the academic credibility signals of one source.
type QualityAssessment struct {
	Score      int      `json:"quality_score"` // 0-10
	SourceType string   `json:"source_type"`   // general, preprint or peer-reviewed
	Indicators []string `json:"quality_indicators"`
	IsAcademic bool     `json:"is_academic"`
}

// Order matters: the first matching domain wins, so more specific hosts sit
// above their parent publishers.
var highQualityDomains = []struct {
	domain     string
	score      int
	sourceType string
	indicator  string
}{
	{"arxiv.org", 9, "preprint", "ArXiv preprint server"},
	{"pubmed.ncbi.nlm.nih.gov", 10, "peer-reviewed", "PubMed indexed journal"},
	{"nature.com", 10, "peer-reviewed", "Nature Publishing"},
	{"science.org", 10, "peer-reviewed", "Science journal"},
	{"ieee.org", 9, "peer-reviewed", "IEEE publication"},
	{"acm.org", 9, "peer-reviewed", "ACM publication"},
	{"springer.com", 8, "peer-reviewed", "Springer journal"},
	{"elsevier.com", 8, "peer-reviewed", "Elsevier journal"},
	{"jstor.org", 9, "peer-reviewed", "JSTOR academic archive"},
	{"wiley.com", 8, "peer-reviewed", "Wiley journal"},
	{"tandfonline.com", 8, "peer-reviewed", "Taylor & Francis journal"},
}

// Additive bonuses for scholarly markers in title or content. Order only
// affects indicator listing, not the score.
var qualityPatterns = []struct {
	pattern string
	score   int
}{
	{"peer-reviewed", 2},
	{"peer reviewed", 2},
	{"systematic review", 3},
	{"meta-analysis", 3},
	{"longitudinal study", 2},
	{"randomized controlled", 3},
	{"doi:", 2},
	{"pmid:", 2},
	{"abstract", 1},
	{"methodology", 1},
	{"results", 1},
	{"conclusion", 1},
	{"references", 1},
	{"bibliography", 1},
}

// AssessQuality scores the academic credibility of a source. Deterministic:
// same inputs always yield the same assessment, and the score stays in 0-10.
func AssessQuality(url, title, content string) QualityAssessment {
	score := 0
	indicators := []string{}
	sourceType := "general"

	// 1. Check domain quality
	urlLower := strings.ToLower(url)
	for _, d := range highQualityDomains {
		if strings.Contains(urlLower, d.domain) {
			score = d.score
			sourceType = d.sourceType
			indicators = append(indicators, d.indicator)
			break
		}
	}

	// 2. Additional quality indicators in content/title
	contentLower := strings.ToLower(content + " " + title)
	for _, p := range qualityPatterns {
		if strings.Contains(contentLower, p.pattern) {
			score += p.score
			indicators = append(indicators, fmt.Sprintf("Contains '%s'", p.pattern))
		}
	}

	// 3. PDF bonus (academic papers often in PDF)
	if strings.HasSuffix(urlLower, ".pdf") {
		score++
		indicators = append(indicators, "PDF document")
	}

	if score > 10 {
		score = 10
	}

	return QualityAssessment{
		Score:      score,
		SourceType: sourceType,
		Indicators: indicators,
		IsAcademic: score >= 5,
	}
}

// Deduplicate collapses one or more result batches into the unique results,
// keyed by URL. First seen wins; output keeps first-seen order so downstream
// source numbering is stable.
func Deduplicate(batches []ResultSet) []Result {
	seen := make(map[string]bool)
	var unique []Result

	for _, batch := range batches {
		for _, r := range batch.Results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			unique = append(unique, r)
		}
	}

	return unique
}
