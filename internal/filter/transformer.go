package filter

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"wikiedits/internal/models"
	"wikiedits/pkg/metadata"
	"wikiedits/pkg/utils"
)

var (
	anchorPattern = regexp.MustCompile(`(?s)<a\b[^>]*>|</a>`)
	urlPattern    = regexp.MustCompile(`\S*https?:\S*`)
	brokenScheme  = regexp.MustCompile(`(https?) : //`)

	// Image caption leftovers such as "thumb|", "right|200px|", "upright=1.2|".
	captionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:left|right|center)\|+[\d.]+px\|`),
		regexp.MustCompile(`upright=+[\d.]+\|`),
		regexp.MustCompile(`\b\d+(?:x\d+)?px\|`),
		regexp.MustCompile(`\b(?:thumb|thumbnail|frameless|left|right|center)\|`),
	}
)

// Transformer cleans revision text.
type Transformer struct {
	strings        *utils.StringHelper
	stopMarker     string
	urlPlaceholder string
}

// NewTransformer creates a transformer. Text is cut at the first paragraph
// equal to stopMarker (surrounding whitespace ignored).
func NewTransformer(stopMarker, urlPlaceholder string) *Transformer {
	return &Transformer{
		strings:        utils.NewStringHelper(),
		stopMarker:     strings.TrimSpace(stopMarker),
		urlPlaceholder: urlPlaceholder,
	}
}

// Clean normalises text to NFC, cuts trailing sections, removes caption
// artifacts, replaces URLs and collapses whitespace. Paragraphs are
// separated by one blank line in the result.
func (t *Transformer) Clean(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string

	for line := range strings.SplitSeq(text, "\n") {
		if t.stopMarker != "" && strings.TrimSpace(line) == t.stopMarker {
			break
		}

		line = t.cleanLine(line)
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

func (t *Transformer) cleanLine(line string) string {
	for _, p := range captionPatterns {
		line = p.ReplaceAllString(line, "")
	}

	line = brokenScheme.ReplaceAllString(line, "$1://")
	line = anchorPattern.ReplaceAllString(line, "")

	if t.urlPlaceholder != "" {
		line = urlPattern.ReplaceAllString(line, t.urlPlaceholder)
	}

	return t.strings.NormalizeWhitespace(line)
}

// Transform converts a validated raw revision into a merged revision.
func (t *Transformer) Transform(raw *models.RawRevision) models.MergedRevision {
	text := t.Clean(raw.Content)

	return models.MergedRevision{
		RevID:       raw.RevID,
		Timestamp:   raw.Timestamp.UTC(),
		User:        raw.User,
		Text:        text,
		ContentHash: metadata.ContentHash(text),
	}
}
