package search

import (
	"reflect"
	"testing"
)

func TestAssessQuality(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		title          string
		content        string
		wantScore      int
		wantType       string
		wantAcademic   bool
		wantIndicators []string
	}{
		{
			name:         "nature domain with bonuses capped at 10",
			url:          "https://www.nature.com/articles/s41586",
			title:        "Quantum entanglement",
			content:      "A peer-reviewed systematic review of qubit architectures",
			wantScore:    10,
			wantType:     "peer-reviewed",
			wantAcademic: true,
			wantIndicators: []string{
				"Nature Publishing",
				"Contains 'peer-reviewed'",
				"Contains 'systematic review'",
			},
		},
		{
			name:           "plain blog scores zero",
			url:            "https://example.com/blog",
			title:          "My travel blog",
			content:        "pictures from italy",
			wantScore:      0,
			wantType:       "general",
			wantAcademic:   false,
			wantIndicators: []string{},
		},
		{
			name:           "arxiv is a preprint",
			url:            "https://arxiv.org/abs/2401.00001",
			title:          "",
			content:        "",
			wantScore:      9,
			wantType:       "preprint",
			wantAcademic:   true,
			wantIndicators: []string{"ArXiv preprint server"},
		},
		{
			name:         "pattern and pdf bonuses without a known domain",
			url:          "https://example.com/whitepaper.pdf",
			title:        "Industry report",
			content:      "doi: 10.1000/x abstract included",
			wantScore:    4,
			wantType:     "general",
			wantAcademic: false,
			wantIndicators: []string{
				"Contains 'doi:'",
				"Contains 'abstract'",
				"PDF document",
			},
		},
		{
			name:         "academic threshold is score five",
			url:          "https://example.com/paper",
			title:        "",
			content:      "a systematic review with doi: 10.1/1",
			wantScore:    5,
			wantType:     "general",
			wantAcademic: true,
			wantIndicators: []string{
				"Contains 'systematic review'",
				"Contains 'doi:'",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessQuality(tt.url, tt.title, tt.content)

			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.SourceType != tt.wantType {
				t.Errorf("SourceType = %q, want %q", got.SourceType, tt.wantType)
			}
			if got.IsAcademic != tt.wantAcademic {
				t.Errorf("IsAcademic = %v, want %v", got.IsAcademic, tt.wantAcademic)
			}
			if !reflect.DeepEqual(got.Indicators, tt.wantIndicators) {
				t.Errorf("Indicators = %v, want %v", got.Indicators, tt.wantIndicators)
			}
		})
	}
}

func TestAssessQualityDeterministic(t *testing.T) {
	first := AssessQuality("https://ieee.org/doc.pdf", "Protocol analysis", "methodology results conclusion")
	for i := 0; i < 5; i++ {
		again := AssessQuality("https://ieee.org/doc.pdf", "Protocol analysis", "methodology results conclusion")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
	if first.Score < 0 || first.Score > 10 {
		t.Errorf("Score = %d, want within [0,10]", first.Score)
	}
}

func TestDeduplicate(t *testing.T) {
	batches := []ResultSet{
		{Query: "q1", Results: []Result{
			{URL: "https://a.com", Title: "first seen"},
			{URL: "https://b.com", Title: "b"},
		}},
		{Query: "q2", Results: []Result{
			{URL: "https://a.com", Title: "later duplicate"},
			{URL: "https://c.com", Title: "c"},
		}},
	}

	unique := Deduplicate(batches)

	if len(unique) != 3 {
		t.Fatalf("len = %d, want 3", len(unique))
	}
	if unique[0].Title != "first seen" {
		t.Errorf("first entry = %q, want the first-seen result", unique[0].Title)
	}
	if unique[1].URL != "https://b.com" || unique[2].URL != "https://c.com" {
		t.Errorf("order not preserved: %v", unique)
	}

	// Idempotent: running it again over its own output changes nothing.
	again := Deduplicate([]ResultSet{{Results: unique}})
	if !reflect.DeepEqual(again, unique) {
		t.Errorf("second pass = %v, want %v", again, unique)
	}
}
