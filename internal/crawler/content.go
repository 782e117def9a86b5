package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"wikiedits/pkg/utils"
)

// noise is removed from the article body before text extraction.
const noise = "sup.reference, .mw-editsection, style, script, table, figure, .thumb, " +
	".mw-empty-elt, .noprint, .mw-references-wrap, .reflist, .hatnote, .navbox"

// Extractor turns rendered article HTML into plain paragraphs.
type Extractor struct {
	stop    map[string]bool
	strings *utils.StringHelper
}

// NewExtractor creates an extractor stopping at the given level-2 sections.
func NewExtractor(stopSections []string) *Extractor {
	stop := make(map[string]bool, len(stopSections))
	for _, s := range stopSections {
		stop[strings.ToLower(strings.TrimSpace(s))] = true
	}

	return &Extractor{
		stop:    stop,
		strings: utils.NewStringHelper(),
	}
}

// Extract returns the paragraphs of the article body, in order, separated by
// blank lines. Extraction stops at the first stop section heading.
func (e *Extractor) Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := doc.Find(".mw-parser-output").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	root.Find(noise).Remove()

	var paragraphs []string

	root.Children().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if heading, ok := level2Heading(s); ok && e.stop[strings.ToLower(heading)] {
			return false
		}

		switch goquery.NodeName(s) {
		case "p", "blockquote":
			if text := e.strings.NormalizeWhitespace(s.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		case "ul", "ol":
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				if text := e.strings.NormalizeWhitespace(li.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			})
		}

		return true
	})

	return strings.Join(paragraphs, "\n\n"), nil
}

// level2Heading recognises both <h2> and the <div class="mw-heading2"> wrapper.
func level2Heading(s *goquery.Selection) (string, bool) {
	switch {
	case goquery.NodeName(s) == "h2":
		return strings.TrimSpace(s.Text()), true
	case s.HasClass("mw-heading2"):
		return strings.TrimSpace(s.Find("h2").First().Text()), true
	}

	return "", false
}

// ContentFetcher downloads and extracts the text of revisions.
type ContentFetcher struct {
	client    *Client
	extractor *Extractor
}

// NewContentFetcher creates a content fetcher.
func NewContentFetcher(client *Client, extractor *Extractor) *ContentFetcher {
	return &ContentFetcher{
		client:    client,
		extractor: extractor,
	}
}

// Content returns the plain text of a revision. A revision without any
// extractable text yields ErrNoContent.
func (cf *ContentFetcher) Content(ctx context.Context, revID int64) (string, error) {
	html, err := cf.client.ParseRevision(ctx, revID)
	if err != nil {
		return "", err
	}

	text, err := cf.extractor.Extract(html)
	if err != nil {
		return "", fmt.Errorf("revision %d: %w", revID, err)
	}

	if text == "" {
		return "", fmt.Errorf("revision %d: %w", revID, ErrNoContent)
	}

	return text, nil
}
