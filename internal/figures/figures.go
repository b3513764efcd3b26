// Package figures derives table and chart data for generated papers.
//
// Only the data is produced (table rows, keyword counts); rendering is
// left to whatever consumes the paper JSON.
package figures

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/textproc"
)

// comparisonRows is how many retrieved papers the comparison table
// includes before the proposed-method row.
const comparisonRows = 3

// keywordStopwords are excluded from keyword-frequency extraction.
var keywordStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true, "at": true,
	"for": true, "to": true, "of": true, "and": true, "is": true, "are": true,
	"was": true, "were": true, "this": true, "that": true, "with": true,
	"from": true, "by": true, "as": true, "or": true, "be": true,
	"been": true, "has": true, "have": true, "had": true, "their": true,
	"its": true, "which": true, "can": true, "will": true, "also": true,
	"such": true, "these": true, "those": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "between": true, "under": true,
	"again": true, "further": true, "then": true, "once": true,
	"here": true, "there": true, "when": true, "where": true, "why": true,
	"how": true, "all": true, "both": true, "each": true, "few": true,
	"more": true, "most": true, "other": true, "some": true, "only": true,
	"own": true, "same": true, "than": true, "too": true, "very": true,
	"using": true, "used": true, "use": true,
}

var keywordRe = regexp.MustCompile(`\b[a-z]{4,}\b`)

// KeywordCount is one bar of the keyword-frequency chart.
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ComparisonTable builds the performance-comparison table from
// retrieved papers: one row per paper (up to three) with an approach
// classified from the title and a performance figure scaled by citation
// count, closed by a proposed-method row. With fewer than two papers a
// generic table is returned instead.
func ComparisonTable(papers []domain.Reference) [][]string {
	if len(papers) < 2 {
		return GenericTable()
	}

	rows := [][]string{
		{"Method/Paper", "Year", "Approach", "Key Metric", "Performance"},
	}

	n := len(papers)
	if n > comparisonRows {
		n = comparisonRows
	}
	for _, paper := range papers[:n] {
		title := paper.Title
		if len(title) > 40 {
			title = textproc.Truncate(title, 40) + "..."
		}

		// Citation count nudges performance within a 75-92% band.
		performance := 75 + float64(paper.CitationCount)/100*15
		if performance > 92 {
			performance = 92
		}

		rows = append(rows, []string{
			title,
			strconv.Itoa(paper.Year),
			classifyApproach(paper.Title),
			"Accuracy",
			fmt.Sprintf("%.1f%%", performance),
		})
	}

	rows = append(rows, []string{
		"Proposed Method",
		strconv.Itoa(time.Now().Year()),
		"Hybrid Approach",
		"Overall Score",
		"94.6%",
	})

	return rows
}

// GenericTable is the fallback comparison table when too few papers
// were retrieved to compare against.
func GenericTable() [][]string {
	return [][]string{
		{"Method", "Accuracy", "Precision", "Recall", "F1-Score"},
		{"Baseline", "72.3%", "71.5%", "70.8%", "71.1%"},
		{"Method A", "78.6%", "77.2%", "79.1%", "78.1%"},
		{"Method B", "84.2%", "83.8%", "84.7%", "84.2%"},
		{"Proposed", "91.5%", "91.2%", "91.8%", "91.5%"},
	}
}

// classifyApproach buckets a paper by title keywords.
func classifyApproach(title string) string {
	lower := strings.ToLower(title)
	switch {
	case containsAny(lower, "deep learning", "neural", "cnn", "lstm"):
		return "Deep Learning"
	case containsAny(lower, "machine learning", "svm", "random forest"):
		return "Machine Learning"
	case containsAny(lower, "blockchain", "distributed"):
		return "Blockchain-based"
	case containsAny(lower, "survey", "review", "analysis"):
		return "Survey/Analysis"
	}
	return "Novel Method"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// KeywordChart extracts the topN most frequent substantive words across
// all section texts. Ties break alphabetically so the output is
// deterministic. Returns nil when nothing qualifies.
func KeywordChart(sections map[domain.SectionKind]string, topN int) []KeywordCount {
	if topN <= 0 {
		topN = 10
	}

	counts := make(map[string]int)
	for _, text := range sections {
		for _, word := range keywordRe.FindAllString(strings.ToLower(text), -1) {
			if !keywordStopwords[word] {
				counts[word]++
			}
		}
	}
	if len(counts) == 0 {
		return nil
	}

	keywords := make([]KeywordCount, 0, len(counts))
	for word, count := range counts {
		keywords = append(keywords, KeywordCount{Word: word, Count: count})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Word < keywords[j].Word
	})

	if len(keywords) > topN {
		keywords = keywords[:topN]
	}
	return keywords
}
