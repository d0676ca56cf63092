package research

import (
	"regexp"
	"research/pkg/domain"
	"strings"
)

// Citation extraction is best effort: the researcher's findings and reports
// are unstructured text, so URLs are pulled out with regexes and titles are
// heuristic.
var (
	urlRegex          = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)
	markdownLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)]+)\)`)
)

const (
	titleContextChars = 100
	snippetMaxChars   = 200
)

// citationsFromFindings extracts citations from iterative research findings.
// Every URL becomes one citation; the title is the sentence fragment preceding
// the URL and the snippet is the truncated finding.
func citationsFromFindings(findings []string) []domain.Citation {
	var citations []domain.Citation
	id := 1

	for _, finding := range findings {
		snippet := finding
		// truncation counts runes, not bytes, so multi-byte text stays valid
		if runes := []rune(snippet); len(runes) > snippetMaxChars {
			snippet = string(runes[:snippetMaxChars]) + "..."
		}

		for _, url := range urlRegex.FindAllString(finding, -1) {
			title := titleNearURL(finding, url)
			if title == "" {
				title = url
			}

			citations = append(citations, domain.Citation{
				ID:         id,
				URL:        url,
				Title:      title,
				SourceType: "web",
				Snippet:    snippet,
			})
			id++
		}
	}

	return citations
}

// citationsFromReport extracts citations from a final report: markdown links
// first (their text becomes the title), then plain URLs not already captured.
func citationsFromReport(report string) []domain.Citation {
	var citations []domain.Citation
	seen := map[string]bool{}
	id := 1

	for _, m := range markdownLinkRegex.FindAllStringSubmatch(report, -1) {
		title, url := m[1], m[2]
		citations = append(citations, domain.Citation{
			ID:         id,
			URL:        url,
			Title:      title,
			SourceType: "web",
		})
		seen[url] = true
		id++
	}

	for _, url := range urlRegex.FindAllString(report, -1) {
		if seen[url] {
			continue
		}

		citations = append(citations, domain.Citation{
			ID:         id,
			URL:        url,
			Title:      url,
			SourceType: "web",
		})
		seen[url] = true
		id++
	}

	return citations
}

// titleNearURL returns the last sentence fragment of the 100 characters
// preceding the URL in text, or empty when the URL leads the text.
func titleNearURL(text, url string) string {
	pos := strings.Index(text, url)
	if pos <= 0 {
		return ""
	}

	start := pos - titleContextChars
	if start < 0 {
		start = 0
	}
	before := strings.TrimSpace(text[start:pos])

	sentences := strings.Split(before, ".")

	return strings.TrimSpace(sentences[len(sentences)-1])
}
