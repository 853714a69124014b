package search

import (
	"fmt"
	"strings"
)

// FormatSearchOutput renders a processed batch into a well-structured string
// with clear source separation.
func FormatSearchOutput(results []Processed) string {
	if len(results) == 0 {
		return "No valid search results found. Please try different search queries or use a different search API."
	}

	var b strings.Builder
	b.WriteString("Search results: \n\n")

	for i, r := range results {
		fmt.Fprintf(&b, "\n\n--- SOURCE %d: %s ---\n", i+1, r.Title)
		fmt.Fprintf(&b, "URL: %s\n\n", r.URL)
		fmt.Fprintf(&b, "SUMMARY:\n%s\n\n", r.Content)
		b.WriteString(strings.Repeat("-", 80) + "\n")
	}

	return b.String()
}

// FormatEnhancedResults renders the numbered list used by the search tool,
// with quality annotations when the query had academic intent.
func FormatEnhancedResults(results []Processed, academic bool) string {
	items := make([]string, 0, len(results))

	for i, r := range results {
		title, url, content := r.Title, r.URL, r.Content
		if title == "" {
			title = "No title"
		}
		if url == "" {
			url = "No URL"
		}
		if content == "" {
			content = "No content available"
		}

		qualityInfo := ""
		if academic {
			indicators := "General source"
			if len(r.Quality.Indicators) > 0 {
				top := r.Quality.Indicators
				if len(top) > 3 {
					top = top[:3]
				}
				indicators = strings.Join(top, ", ")
			}
			qualityInfo = fmt.Sprintf("\n   📊 **Quality Score**: %d/10 (%s)\n   ✅ **Academic Indicators**: %s",
				r.Quality.Score, r.Quality.SourceType, indicators)
		}

		items = append(items, fmt.Sprintf("%d. **%s**\n   URL: %s%s\n   Content: %s\n", i+1, title, url, qualityInfo, content))
	}

	header := ""
	if academic {
		header = "🎓 **Academic-Enhanced Search Results**\n\n"
	}

	return header + strings.Join(items, "\n")
}
