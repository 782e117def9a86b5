// Package diffparse turns diff artifacts into aligned sentence pairs.
package diffparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedArtifact is returned when an artifact does not have the
// expected markup.
var ErrMalformedArtifact = errors.New("malformed diff artifact")

// SegmentKind tells which side of the diff a segment belongs to.
type SegmentKind int

// Segment kinds. A soft space stands for whitespace swallowed after a
// markup command; it separates words on either side but never precedes
// closing punctuation.
const (
	SegmentEqual SegmentKind = iota
	SegmentInserted
	SegmentDeleted
	SegmentSoftSpace
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentEqual:
		return "equal"
	case SegmentInserted:
		return "inserted"
	case SegmentDeleted:
		return "deleted"
	case SegmentSoftSpace:
		return "soft_space"
	default:
		return fmt.Sprintf("SegmentKind(%d)", int(k))
	}
}

// Segment is a run of text with one diff role.
type Segment struct {
	Text string
	Kind SegmentKind
}

var abstractRegex = regexp.MustCompile(`(?s)\\begin\{abstract\}(.*)\\end\{abstract\}`)

// ExtractAbstract returns the body of the abstract environment.
func ExtractAbstract(doc string) (string, error) {
	m := abstractRegex.FindStringSubmatch(doc)
	if m == nil {
		return "", fmt.Errorf("%w: no abstract environment", ErrMalformedArtifact)
	}

	return m[1], nil
}

// StripComments removes LaTeX comments. Lines that hold nothing but a
// comment are dropped together with their line break.
func StripComments(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]

	for _, line := range lines {
		i := commentStart(line)
		if i < 0 {
			out = append(out, line)
			continue
		}

		kept := line[:i]
		if strings.TrimSpace(kept) == "" {
			continue
		}

		out = append(out, kept)
	}

	return strings.Join(out, "\n")
}

// commentStart returns the index of the first unescaped %, or -1.
func commentStart(line string) int {
	backslashes := 0

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			backslashes++
			continue
		case '%':
			if backslashes%2 == 0 {
				return i
			}
		}

		backslashes = 0
	}

	return -1
}

// Scan splits an abstract body into equal, inserted and deleted segments.
// \DIFadd{...} and \DIFaddFL{...} are inserted text, \DIFdel{...} and
// \DIFdelFL{...} deleted text. The begin/end markers are dropped together
// with a trailing empty group. Segment text is unescaped.
func Scan(body string) ([]Segment, error) {
	var (
		segs  []Segment
		equal strings.Builder
		depth int
	)

	flush := func() {
		if equal.Len() > 0 {
			segs = append(segs, Segment{Kind: SegmentEqual, Text: Unescape(equal.String())})
			equal.Reset()
		}
	}

	for i := 0; i < len(body); {
		c := body[i]

		switch {
		case c == '\\':
			name, next := controlWord(body, i)
			if name == "" {
				// control symbol such as \{ or \%
				end := min(i+2, len(body))
				equal.WriteString(body[i:end])
				i = end

				continue
			}

			kind, isGroup, isMarker := classify(name)

			switch {
			case isMarker:
				flush()

				if strings.HasPrefix(body[next:], "{}") {
					i = next + 2
					continue
				}

				j := skipSpaces(body, next)
				if j > next {
					segs = append(segs, Segment{Kind: SegmentSoftSpace})
				}

				i = j
			case isGroup:
				open := skipSpaces(body, next)
				if open >= len(body) || body[open] != '{' {
					return nil, fmt.Errorf("%w: \\%s without argument at offset %d", ErrMalformedArtifact, name, i)
				}

				closing, err := matchBrace(body, open)
				if err != nil {
					return nil, err
				}

				flush()

				if text := Unescape(body[open+1 : closing]); text != "" {
					segs = append(segs, Segment{Kind: kind, Text: text})
				}

				i = closing + 1
			default:
				equal.WriteString(body[i:next])
				i = next
			}
		case c == '{':
			depth++
			equal.WriteByte(c)
			i++
		case c == '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unmatched } at offset %d", ErrMalformedArtifact, i)
			}

			equal.WriteByte(c)
			i++
		default:
			equal.WriteByte(c)
			i++
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("%w: %d unclosed {", ErrMalformedArtifact, depth)
	}

	flush()

	return segs, nil
}

// controlWord reads the command name starting at the backslash at i.
// It returns "" for control symbols.
func controlWord(s string, i int) (string, int) {
	j := i + 1
	for j < len(s) && isLetter(s[j]) {
		j++
	}

	return s[i+1 : j], j
}

func classify(name string) (kind SegmentKind, group, marker bool) {
	switch name {
	case "DIFadd", "DIFaddFL":
		return SegmentInserted, true, false
	case "DIFdel", "DIFdelFL":
		return SegmentDeleted, true, false
	case "DIFaddbegin", "DIFaddend", "DIFdelbegin", "DIFdelend",
		"DIFaddbeginFL", "DIFaddendFL", "DIFdelbeginFL", "DIFdelendFL":
		return SegmentEqual, false, true
	}

	return SegmentEqual, false, false
}

// matchBrace returns the index of the } closing the { at open.
func matchBrace(s string, open int) (int, error) {
	depth := 0

	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && !isLetter(s[i+1]) {
				i++
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: unclosed argument at offset %d", ErrMalformedArtifact, open)
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}

	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

var latexUnescaper = strings.NewReplacer(
	`\textbackslash{}`, `\`,
	`\textasciitilde{}`, `~`,
	`\textasciicircum{}`, `^`,
	`\{`, `{`,
	`\}`, `}`,
	`\$`, `$`,
	`\&`, `&`,
	`\%`, `%`,
	`\#`, `#`,
	`\_`, `_`,
)

// Unescape reverts LaTeX special character escapes.
func Unescape(s string) string {
	return latexUnescaper.Replace(s)
}
