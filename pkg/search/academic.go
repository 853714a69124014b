package search

import (
	"strings"
)

// Terms that mark a query as scholarly. Substring match, case-insensitive.
var academicIntentTerms = []string{
	"academic", "research", "study", "peer-reviewed", "journal", "paper",
	"citation", "scholarly", "university", "systematic review", "meta-analysis",
	"site:arxiv.org", "site:scholar.google.com", "filetype:pdf",
}

// Academic site filters - prioritize scholarly sources
var academicSites = []string{
	"site:arxiv.org",
	"site:scholar.google.com",
	"site:pubmed.ncbi.nlm.nih.gov",
	"site:jstor.org",
	"site:ieee.org",
	"site:acm.org",
	"site:nature.com",
	"site:science.org",
	"site:springer.com",
	"site:elsevier.com",
	"site:wiley.com",
	"site:tandfonline.com",
}

// Keywords that steer results toward the right scholarly depth per level.
var academicKeywords = map[string][]string{
	"Undergraduate": {"study", "research", "analysis", "review"},
	"Graduate":      {"research", "analysis", "systematic review", "meta-analysis", "empirical"},
	"PhD/Research":  {"peer-reviewed", "systematic review", "meta-analysis", "longitudinal study", "experimental"},
	"Professional":  {"evidence-based", "best practices", "systematic review", "clinical"},
}

var academicFiletypes = []string{"filetype:pdf", "filetype:doc", "filetype:docx"}

// HasAcademicIntent analyzes the query to decide whether the caller wants
// scholarly sources rather than general web results.
func HasAcademicIntent(query string) bool {
	queryLower := strings.ToLower(query)
	for _, term := range academicIntentTerms {
		if strings.Contains(queryLower, term) {
			return true
		}
	}
	return false
}

// EnhanceAcademicQuery rewrites a query with scholarly site filters, level
// keywords and document filetypes. Unknown levels fall back to Undergraduate.
func EnhanceAcademicQuery(query, academicLevel string) string {
	keywords, ok := academicKeywords[academicLevel]
	if !ok {
		keywords = academicKeywords["Undergraduate"]
	}

	// Use top 6 academic sites to keep the query within engine limits.
	siteFilter := strings.Join(academicSites[:6], " OR ")
	filetypeFilter := strings.Join(academicFiletypes, " OR ")

	return query + " (" + siteFilter + ") " + strings.Join(keywords, " ") + " (" + filetypeFilter + ")"
}
