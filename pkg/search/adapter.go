package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/sourcegraph/conc"
)

// Summarizer reduces raw page content before it is folded into a result.
// Implementations degrade internally (e.g. truncation) instead of failing.
type Summarizer interface {
	Summarize(ctx context.Context, content string) string
}

// Processed is a deduplicated search hit whose content has been summarized
// when raw page text was available. Quality is populated on the enhanced
// single-query path only.
type Processed struct {
	Title   string
	URL     string
	Content string
	Quality QualityAssessment
}

// Adapter wraps a search provider with deduplication, quality scoring and
// academic enhancement of results.
type Adapter struct {
	provider   Provider
	summarizer Summarizer
}

func NewAdapter(provider Provider, summarizer Summarizer) *Adapter {
	return &Adapter{provider: provider, summarizer: summarizer}
}

// Search runs a single query and returns formatted result text. Failures
// never propagate: any provider error degrades into a "Search failed" line so
// callers can fold it into a transcript and keep going.
func (a *Adapter) Search(ctx context.Context, query string, maxResults int, includeRaw bool, topic string) string {
	// 1. Detect if this is an academic search based on query content
	academic := HasAcademicIntent(query)

	// 2. Fetch more results for academic filtering headroom
	fetch := maxResults
	if academic {
		fetch = maxResults * 2
	}

	raw, err := a.provider.Search(ctx, query, fetch, topic, includeRaw)
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err)
	}
	if len(raw) == 0 {
		return "No search results found."
	}

	// 3. Deduplicate within this call, then assess each remaining hit
	unique := Deduplicate([]ResultSet{{Query: query, Results: raw}})

	scored := make([]Processed, 0, len(unique))
	for _, r := range unique {
		content := r.Content
		if includeRaw && r.RawContent != "" && a.summarizer != nil {
			content = a.summarizer.Summarize(ctx, r.RawContent)
		}
		scored = append(scored, Processed{
			Title:   r.Title,
			URL:     r.URL,
			Content: content,
			Quality: AssessQuality(r.URL, r.Title, content),
		})
	}

	// 4. Prioritize academic sources if the query asked for them
	if academic {
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Quality.Score > scored[j].Quality.Score
		})
		var academicOnly []Processed
		for _, p := range scored {
			if p.Quality.IsAcademic {
				academicOnly = append(academicOnly, p)
			}
		}
		if len(academicOnly) >= 2 {
			scored = academicOnly
		}
	}

	// 5. Truncate and format
	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	return FormatEnhancedResults(scored, academic)
}

// SearchMany runs each query independently and returns one result set per
// query, in input order. Queries fan out concurrently; a failed query yields
// an empty result set rather than failing the batch.
func (a *Adapter) SearchMany(ctx context.Context, queries []string, maxResults int, topic string, includeRaw bool) []ResultSet {
	sets := make([]ResultSet, len(queries))

	var wg conc.WaitGroup
	for i, query := range queries {
		wg.Go(func() {
			sets[i] = ResultSet{Query: query}
			results, err := a.provider.Search(ctx, query, maxResults, topic, includeRaw)
			if err != nil {
				return
			}
			sets[i].Results = results
		})
	}
	wg.Wait()

	return sets
}

// ProcessResults summarizes raw page content where available, falling back to
// the provider snippet.
func (a *Adapter) ProcessResults(ctx context.Context, results []Result) []Processed {
	processed := make([]Processed, 0, len(results))
	for _, r := range results {
		content := r.Content
		if r.RawContent != "" && a.summarizer != nil {
			content = a.summarizer.Summarize(ctx, r.RawContent)
		}
		processed = append(processed, Processed{
			Title:   r.Title,
			URL:     r.URL,
			Content: content,
		})
	}
	return processed
}

// BatchSearch executes several queries, deduplicates across all of them, and
// folds everything into one formatted block.
func (a *Adapter) BatchSearch(ctx context.Context, queries []string, maxResults int, topic string, includeRaw bool) string {
	sets := a.SearchMany(ctx, queries, maxResults, topic, includeRaw)
	unique := Deduplicate(sets)
	processed := a.ProcessResults(ctx, unique)
	return FormatSearchOutput(processed)
}
