package diffparse

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// Sentence is one sentence of a revision. Edits are the fragments the diff
// marked as changed, in order.
type Sentence struct {
	Text  string
	Edits []string
}

// Changed reports whether the diff touched the sentence.
func (s Sentence) Changed() bool {
	return len(s.Edits) > 0
}

// side accumulates the text of one revision together with a per-byte
// changed mark.
type side struct {
	buf     []byte
	changed []bool
	soft    bool
}

func (s *side) write(text string, changed bool) {
	if text == "" {
		return
	}

	if s.soft {
		s.soft = false
		s.resolveSoftSpace(text[0])
	}

	s.buf = append(s.buf, text...)
	for range len(text) {
		s.changed = append(s.changed, changed)
	}
}

// resolveSoftSpace separates two words that markup commands glued together
// and drops the space in front of closing punctuation.
func (s *side) resolveSoftSpace(next byte) {
	if len(s.buf) == 0 {
		return
	}

	if isClosingPunct(next) {
		n := len(s.buf)
		for n > 0 && (s.buf[n-1] == ' ' || s.buf[n-1] == '\t') {
			n--
		}

		s.buf = s.buf[:n]
		s.changed = s.changed[:n]

		return
	}

	if !isSpace(s.buf[len(s.buf)-1]) && !isSpace(next) {
		s.buf = append(s.buf, ' ')
		s.changed = append(s.changed, false)
	}
}

// Sides rebuilds the old revision (equal and deleted text) and the new
// revision (equal and inserted text) and splits both into sentences.
func Sides(segs []Segment) (before, after []Sentence) {
	var o, n side

	for _, seg := range segs {
		switch seg.Kind {
		case SegmentEqual:
			o.write(seg.Text, false)
			n.write(seg.Text, false)
		case SegmentDeleted:
			o.write(seg.Text, true)
		case SegmentInserted:
			n.write(seg.Text, true)
		case SegmentSoftSpace:
			o.soft = true
			n.soft = true
		}
	}

	return o.sentences(), n.sentences()
}

func (s *side) sentences() []Sentence {
	var out []Sentence

	for _, p := range s.paragraphs() {
		out = append(out, p.split()...)
	}

	return out
}

// paragraph is whitespace-collapsed text with its changed marks.
type paragraph struct {
	text    string
	changed []bool
}

// paragraphs splits on blank lines and collapses whitespace runs into one
// space.
func (s *side) paragraphs() []paragraph {
	var (
		out     []paragraph
		buf     []byte
		changed []bool
		space   bool
		newline int
	)

	emit := func() {
		if len(buf) > 0 {
			out = append(out, paragraph{text: string(buf), changed: changed})
		}

		buf, changed, space = nil, nil, false
	}

	for i, c := range s.buf {
		if isSpace(c) {
			if c == '\n' {
				newline++
				if newline == 2 {
					emit()
				}
			}

			if len(buf) > 0 {
				space = true
			}

			continue
		}

		newline = 0

		if space {
			buf = append(buf, ' ')
			changed = append(changed, false)
			space = false
		}

		buf = append(buf, c)
		changed = append(changed, s.changed[i])
	}

	emit()

	return out
}

func (p paragraph) split() []Sentence {
	var out []Sentence

	iter := sentences.FromString(p.text)
	for iter.Next() {
		start, end := iter.Start(), iter.End()

		for start < end && p.text[start] == ' ' {
			start++
		}

		for end > start && p.text[end-1] == ' ' {
			end--
		}

		if start == end {
			continue
		}

		out = append(out, Sentence{
			Text:  p.text[start:end],
			Edits: edits(p.text[start:end], p.changed[start:end]),
		})
	}

	return out
}

// edits returns the maximal runs of changed text. Spaces join the changed
// words on both sides of them into one run.
func edits(text string, changed []bool) []string {
	var (
		out   []string
		start = -1
		last  = -1
	)

	for i := range len(text) {
		if text[i] == ' ' {
			continue
		}

		if changed[i] {
			if start < 0 {
				start = i
			}

			last = i

			continue
		}

		if start >= 0 {
			out = append(out, text[start:last+1])
			start = -1
		}
	}

	if start >= 0 {
		out = append(out, text[start:last+1])
	}

	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isClosingPunct(c byte) bool {
	return strings.IndexByte(".,;:!?)]", c) >= 0
}
