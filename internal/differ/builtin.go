package differ

import (
	"context"
	"strings"
	"unicode"

	"wikiedits/internal/config"
	"wikiedits/internal/textdiff"
)

// BuiltinBinary selects the in-process word diff instead of a subprocess.
const BuiltinBinary = "builtin"

// NewTool returns the diff tool named by the configuration.
func NewTool(cfg config.DiffConfig) Tool {
	if cfg.Binary == BuiltinBinary {
		return WordDiff{}
	}

	return NewLatexDiff(cfg)
}

// WordDiff marks up word-level changes with the commands latexdiff emits.
type WordDiff struct{}

// Diff returns newDoc's structure with deleted and inserted runs wrapped in
// \DIFdel and \DIFadd groups. Markers end with an empty group so that no
// whitespace is swallowed after them.
func (WordDiff) Diff(ctx context.Context, oldDoc, newDoc string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a, b := tokenize(oldDoc), tokenize(newDoc)

	var (
		out  strings.Builder
		i, j int
	)

	for _, op := range textdiff.DiffTokens(a, b) {
		switch op.Kind {
		case textdiff.OpEqual:
			out.WriteString(strings.Join(b[j:j+op.Len], ""))
			i += op.Len
			j += op.Len
		case textdiff.OpDelete:
			out.WriteString(`\DIFdelbegin\DIFdel{` + strings.Join(a[i:i+op.Len], "") + `}\DIFdelend{}`)
			i += op.Len
		case textdiff.OpInsert:
			out.WriteString(`\DIFaddbegin\DIFadd{` + strings.Join(b[j:j+op.Len], "") + `}\DIFaddend{}`)
			j += op.Len
		}
	}

	return out.String(), nil
}

// tokenize splits s into whitespace runs, word runs and single punctuation
// marks. Escape sequences stay inside word runs.
func tokenize(s string) []string {
	var (
		tokens []string
		start  int
		prev   = -1
	)

	for k, r := range s {
		c := tokenClass(r)
		if k > 0 && (c != prev || c == classPunct) {
			tokens = append(tokens, s[start:k])
			start = k
		}

		prev = c
	}

	if start < len(s) {
		tokens = append(tokens, s[start:])
	}

	return tokens
}

const (
	classSpace = iota
	classWord
	classPunct
)

func tokenClass(r rune) int {
	switch {
	case unicode.IsSpace(r):
		return classSpace
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), strings.ContainsRune(`\{}$&%#_~^'-`, r):
		return classWord
	default:
		return classPunct
	}
}
