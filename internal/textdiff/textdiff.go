// Package textdiff diffs token sequences, such as the words or sentences of
// two revisions.
package textdiff

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// OpKind is the role of a run of tokens.
type OpKind int

// Op kinds.
const (
	OpEqual OpKind = iota
	OpInsert
	OpDelete
)

// Op is a run of Len tokens. Equal runs advance both sequences, deletions
// only the first and insertions only the second.
type Op struct {
	Kind OpKind
	Len  int
}

// DiffTokens returns the edit script turning a into b. Tokens compare by
// exact string equality.
func DiffTokens(a, b []string) []Op {
	dmp := diffmatchpatch.New()
	// no deadline: results must not depend on machine speed
	dmp.DiffTimeout = 0

	enc := Encoder{}
	diffs := dmp.DiffMainRunes(enc.Encode(a), enc.Encode(b), false)

	ops := make([]Op, 0, len(diffs))

	for _, d := range diffs {
		op := Op{Len: utf8.RuneCountInString(d.Text)}

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			op.Kind = OpEqual
		case diffmatchpatch.DiffInsert:
			op.Kind = OpInsert
		case diffmatchpatch.DiffDelete:
			op.Kind = OpDelete
		}

		ops = append(ops, op)
	}

	return ops
}

// WordDiff is the word-level comparison of two texts.
type WordDiff struct {
	Equal    int
	Inserted int
	Deleted  int
}

// Changed is the number of inserted plus deleted words.
func (d WordDiff) Changed() int {
	return d.Inserted + d.Deleted
}

// Similarity is 2*equal/(words(a)+words(b)); two empty texts are identical.
func (d WordDiff) Similarity() float64 {
	total := 2*d.Equal + d.Inserted + d.Deleted
	if total == 0 {
		return 1
	}

	return float64(2*d.Equal) / float64(total)
}

// CompareWords diffs a and b word by word.
func CompareWords(a, b string) WordDiff {
	var d WordDiff

	for _, op := range DiffTokens(strings.Fields(a), strings.Fields(b)) {
		switch op.Kind {
		case OpEqual:
			d.Equal += op.Len
		case OpInsert:
			d.Inserted += op.Len
		case OpDelete:
			d.Deleted += op.Len
		}
	}

	return d
}

// Encoder maps each distinct token to one rune so that the character diff
// runs over token sequences.
type Encoder map[string]rune

// Encode returns the rune sequence of tokens, assigning runes to unseen
// tokens in order of appearance.
func (e Encoder) Encode(tokens []string) []rune {
	out := make([]rune, len(tokens))

	for i, t := range tokens {
		r, ok := e[t]
		if !ok {
			r = indexRune(len(e))
			e[t] = r
		}

		out[i] = r
	}

	return out
}

// indexRune maps i to a valid rune, skipping NUL and the surrogate block.
func indexRune(i int) rune {
	r := rune(i + 1)
	if r >= 0xD800 {
		r += 0x800
	}

	return r
}
