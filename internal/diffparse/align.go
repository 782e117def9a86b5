package diffparse

import (
	"wikiedits/internal/models"
	"wikiedits/internal/textdiff"
)

// Alignment links at most one old and one new sentence. A nil side marks
// a pure insertion or deletion.
type Alignment struct {
	Old  *Sentence
	New  *Sentence
	Type models.EditType
}

// Align pairs the sentences of two revisions. Identical sentences found by
// the token diff anchor the alignment as unchanged; the gaps between anchors
// are aligned by alignHunk.
func Align(before, after []Sentence, minSimilarity float64) []Alignment {
	oldTexts := make([]string, len(before))
	for i := range before {
		oldTexts[i] = before[i].Text
	}

	newTexts := make([]string, len(after))
	for i := range after {
		newTexts[i] = after[i].Text
	}

	var (
		out        []Alignment
		i, j       int
		dels, inss []*Sentence
	)

	flush := func() {
		out = append(out, alignHunk(dels, inss, minSimilarity)...)
		dels, inss = nil, nil
	}

	for _, op := range textdiff.DiffTokens(oldTexts, newTexts) {
		switch op.Kind {
		case textdiff.OpEqual:
			flush()

			for range op.Len {
				out = append(out, Alignment{Old: &before[i], New: &after[j], Type: models.EditUnchanged})
				i++
				j++
			}
		case textdiff.OpDelete:
			for range op.Len {
				dels = append(dels, &before[i])
				i++
			}
		case textdiff.OpInsert:
			for range op.Len {
				inss = append(inss, &after[j])
				j++
			}
		}
	}

	flush()

	return out
}

// alignHunk is a monotone alignment maximising the summed word similarity
// of matched pairs. Pairs below minSimilarity never match. On ties a match
// wins, and unmatched deletions are emitted before unmatched insertions.
func alignHunk(dels, inss []*Sentence, minSimilarity float64) []Alignment {
	n, m := len(dels), len(inss)
	if n == 0 && m == 0 {
		return nil
	}

	sim := make([][]float64, n)
	for a := range n {
		sim[a] = make([]float64, m)
		for b := range m {
			sim[a][b] = textdiff.CompareWords(dels[a].Text, inss[b].Text).Similarity()
		}
	}

	score := make([][]float64, n+1)
	for a := range score {
		score[a] = make([]float64, m+1)
	}

	for a := 1; a <= n; a++ {
		for b := 1; b <= m; b++ {
			best := max(score[a-1][b], score[a][b-1])
			if s := sim[a-1][b-1]; s >= minSimilarity {
				best = max(best, score[a-1][b-1]+s)
			}

			score[a][b] = best
		}
	}

	// walk back from the end; the reversed walk prefers insertions so that
	// deletions come first in reading order
	rev := make([]Alignment, 0, n+m)

	a, b := n, m
	for a > 0 || b > 0 {
		switch {
		case a > 0 && b > 0 && sim[a-1][b-1] >= minSimilarity &&
			score[a][b] == score[a-1][b-1]+sim[a-1][b-1]:
			rev = append(rev, pairOf(dels[a-1], inss[b-1]))
			a--
			b--
		case b > 0 && (a == 0 || score[a][b] == score[a][b-1]):
			rev = append(rev, Alignment{New: inss[b-1], Type: models.EditAdd})
			b--
		default:
			rev = append(rev, Alignment{Old: dels[a-1], Type: models.EditDelete})
			a--
		}
	}

	out := make([]Alignment, len(rev))
	for k := range rev {
		out[k] = rev[len(rev)-1-k]
	}

	return out
}

func pairOf(o, n *Sentence) Alignment {
	t := models.EditReplace
	if o.Text == n.Text {
		t = models.EditUnchanged
	}

	return Alignment{Old: o, New: n, Type: t}
}
