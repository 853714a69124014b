package tool

import (
	"context"
	"fmt"
	"strings"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/search"
)

const thinkDescription = `Tool for strategic reflection on research progress and decision-making.

Use this tool after each search to analyze results and plan next steps systematically.
This creates a deliberate pause in the research workflow for quality decision-making.

When to use:
- After receiving search results: What key information did I find?
- Before deciding next steps: Do I have enough to answer comprehensively?
- When assessing research gaps: What specific information am I still missing?
- Before concluding research: Can I provide a complete answer now?

Reflection should address:
1. Analysis of current findings - What concrete information have I gathered?
2. Gap assessment - What crucial information is still missing?
3. Quality evaluation - Do I have sufficient evidence/examples for a good answer?
4. Strategic decision - Should I continue searching or provide my answer?`

// Think returns the reflection tool. Reflections are transcript-only; the
// zero-token ledger record exists so session summaries show how often the
// model paused to plan.
func Think(ledger *costs.Ledger, session *costs.Session) Tool {
	return Tool{
		Name:        "think_tool",
		Description: thinkDescription,
		Schema: llm.ToolParameterSchema{
			Type: "object",
			Properties: map[string]llm.ToolProperty{
				"reflection": {
					Type:        "string",
					Description: "Your detailed reflection on research progress, findings, gaps, and next steps",
				},
			},
			Required: []string{"reflection"},
		},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			reflection := stringArg(args, "reflection", "")
			if ledger != nil {
				ledger.RecordModelCall(session, "local:reflection", 0, 0, "reflect")
			}
			return fmt.Sprintf("Reflection recorded: %s", reflection), nil
		},
	}
}

const tavilySearchDescription = `Search the web for information on a given query.

Performs a web search and returns formatted results with titles, URLs and
content. Academic queries are detected automatically and get quality-scored,
peer-review-weighted results.`

// TavilySearch returns the web search tool backed by the search adapter.
// Each invocation is billed as one flat-rate search before the provider is
// called, matching how searches are accounted upstream.
func TavilySearch(adapter *search.Adapter, ledger *costs.Ledger, session *costs.Session) Tool {
	return Tool{
		Name:        "tavily_search",
		Description: tavilySearchDescription,
		Schema: llm.ToolParameterSchema{
			Type: "object",
			Properties: map[string]llm.ToolProperty{
				"query": {
					Type:        "string",
					Description: "A single search query to execute",
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of results to return (default: 3)",
				},
				"topic": {
					Type:        "string",
					Description: `Search topic: "general" for web search, "news" for recent news, "finance" for financial data (default: "general")`,
				},
				"include_raw_content": {
					Type:        "boolean",
					Description: "Whether to include full webpage content (default: false)",
				},
			},
			Required: []string{"query"},
		},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			query := stringArg(args, "query", "")
			maxResults := intArg(args, "max_results", 3)
			topic := stringArg(args, "topic", "general")
			includeRaw := boolArg(args, "include_raw_content", false)

			if ledger != nil {
				ledger.RecordSearchCall(session, 1)
			}
			return adapter.Search(ctx, query, maxResults, includeRaw, topic), nil
		},
	}
}

var academicLevelGuidance = map[string]string{
	"Undergraduate": "Focus on review articles, textbooks, and introductory research papers",
	"Graduate":      "Prioritize peer-reviewed journals, systematic reviews, and empirical studies",
	"PhD/Research":  "Emphasize recent publications, primary sources, and methodological papers",
	"Professional":  "Include evidence-based practices, clinical guidelines, and industry standards",
}

var citationReminders = map[string]string{
	"APA":     "Include (Author, Year) format and DOI when available",
	"MLA":     "Use (Author Page#) format and include publication details",
	"Chicago": "Use footnotes/endnotes with full publication information",
	"IEEE":    "Use [1] format with full reference list",
	"Harvard": "Use (Author Year) format with complete bibliography",
}

// AcademicSearchHelper returns the guidance tool that turns a topic into
// optimized academic queries plus level- and citation-specific advice.
func AcademicSearchHelper() Tool {
	return Tool{
		Name:        "academic_search_helper",
		Description: "Generate optimized search queries for academic research with source quality guidance.",
		Schema: llm.ToolParameterSchema{
			Type: "object",
			Properties: map[string]llm.ToolProperty{
				"topic": {
					Type:        "string",
					Description: "The academic topic to search for",
				},
				"academic_level": {
					Type:        "string",
					Description: "Academic level: Undergraduate, Graduate, PhD/Research, or Professional",
				},
				"citation_style": {
					Type:        "string",
					Description: "Citation style: APA, MLA, Chicago, IEEE, or Harvard",
				},
			},
			Required: []string{"topic"},
		},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			topic := stringArg(args, "topic", "")
			level := stringArg(args, "academic_level", "Graduate")
			style := stringArg(args, "citation_style", "APA")
			return academicGuidance(topic, level, style), nil
		},
	}
}

func academicGuidance(topic, level, style string) string {
	baseQueries := []string{
		fmt.Sprintf("%s peer-reviewed systematic review", topic),
		fmt.Sprintf("%s research study academic journal", topic),
		fmt.Sprintf("%s (site:arxiv.org OR site:scholar.google.com OR site:pubmed.ncbi.nlm.nih.gov)", topic),
		fmt.Sprintf("%s filetype:pdf academic paper", topic),
		fmt.Sprintf("%q meta-analysis OR \"longitudinal study\"", topic),
	}

	levelGuidance, ok := academicLevelGuidance[level]
	if !ok {
		levelGuidance = academicLevelGuidance["Graduate"]
	}
	citation, ok := citationReminders[style]
	if !ok {
		citation = citationReminders["APA"]
	}

	var queries strings.Builder
	for _, q := range baseQueries {
		queries.WriteString(fmt.Sprintf("• %s\n", q))
	}

	return fmt.Sprintf(`🎓 **Academic Research Guidance for: %s**

**Recommended Search Queries:**
%s
**Academic Level (%s):**
%s

**Citation Style (%s):**
%s

**Quality Indicators to Look For:**
• Peer-reviewed journals and conferences
• University or research institution sources (.edu, .ac.uk)
• DOI numbers and PMID identifiers
• Abstract, methodology, results, conclusion sections
• Recent publication dates (last 5-10 years unless historical research)
• High citation counts on Google Scholar

**Recommended Academic Databases:**
• ArXiv (preprints): arxiv.org
• PubMed (biomedical): pubmed.ncbi.nlm.nih.gov
• Google Scholar: scholar.google.com
• JSTOR (academic archive): jstor.org
• IEEE (engineering): ieee.org
• ACM (computing): acm.org

Use these optimized queries in your tavily_search calls for better academic results.`,
		topic, queries.String(), level, levelGuidance, style, citation)
}

// Argument extraction helpers. JSON-decoded argument maps carry numbers as
// float64 and may omit optional keys entirely.

func stringArg(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func boolArg(args map[string]interface{}, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}
