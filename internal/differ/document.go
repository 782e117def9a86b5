// Package differ runs an external document diff tool over consecutive
// revisions and stores one diff artifact per revision pair.
package differ

import (
	"strings"
)

const (
	documentHead = "\\documentclass{article}\n\\begin{document}\n\\begin{abstract}\n"
	documentTail = "\n\\end{abstract}\n\\end{document}\n"
)

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`%`, `\%`,
	`#`, `\#`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// EscapeLaTeX escapes the characters LaTeX treats specially.
func EscapeLaTeX(s string) string {
	return latexEscaper.Replace(s)
}

// Document wraps revision text in a minimal LaTeX document whose abstract
// holds the paragraphs, separated by blank lines.
func Document(text string) string {
	var b strings.Builder

	b.WriteString(documentHead)

	first := true

	for para := range strings.SplitSeq(text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if !first {
			b.WriteString("\n\n")
		}

		first = false

		b.WriteString(EscapeLaTeX(para))
	}

	b.WriteString(documentTail)

	return b.String()
}
