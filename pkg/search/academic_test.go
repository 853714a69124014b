package search

import (
	"testing"
)

func TestHasAcademicIntent(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"peer-reviewed studies on sleep deprivation", true},
		{"site:arxiv.org transformer architectures", true},
		{"Latest RESEARCH on fusion energy", true},
		{"meta-analysis of remote work productivity", true},
		{"best pizza in brooklyn", false},
		{"weather tomorrow", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := HasAcademicIntent(tt.query); got != tt.want {
				t.Errorf("HasAcademicIntent(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestEnhanceAcademicQuery(t *testing.T) {
	want := "quantum computing " +
		"(site:arxiv.org OR site:scholar.google.com OR site:pubmed.ncbi.nlm.nih.gov OR site:jstor.org OR site:ieee.org OR site:acm.org) " +
		"research analysis systematic review meta-analysis empirical " +
		"(filetype:pdf OR filetype:doc OR filetype:docx)"

	got := EnhanceAcademicQuery("quantum computing", "Graduate")
	if got != want {
		t.Errorf("EnhanceAcademicQuery = %q, want %q", got, want)
	}
}

func TestEnhanceAcademicQueryUnknownLevel(t *testing.T) {
	got := EnhanceAcademicQuery("urban farming", "Hobbyist")
	want := EnhanceAcademicQuery("urban farming", "Undergraduate")
	if got != want {
		t.Errorf("unknown level = %q, want Undergraduate fallback %q", got, want)
	}
}
