package feed

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor recognizes agreement codes: a label (case-insensitive) followed by
// a digits/digits pair, e.g. "CCT 123/45" or "cct123/45".
type Extractor struct {
	pattern *regexp.Regexp
}

func NewExtractor(label string) (*Extractor, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("code label is empty")
	}
	pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(label) + `\s*(\d+/\d+)`)
	if err != nil {
		return nil, fmt.Errorf("compile code pattern: %w", err)
	}
	return &Extractor{pattern: pattern}, nil
}

// Codes returns the distinct agreement codes found in text, in first-seen
// order. Duplicate mentions collapse to one entry.
func (e *Extractor) Codes(text string) []string {
	matches := e.pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var codes []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			codes = append(codes, m[1])
		}
	}
	return codes
}

// stripHTML flattens an HTML fragment to its text content. Feed bodies are
// rich text; extraction and digests want plain text. Falls back to the raw
// input if the fragment cannot be parsed.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
