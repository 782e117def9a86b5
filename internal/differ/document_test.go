package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLaTeX(t *testing.T) {
	tests := map[string]string{
		"plain text":      "plain text",
		"50% of $10 & #1": `50\% of \$10 \& \#1`,
		`a_b {c} \d`:      `a\_b \{c\} \textbackslash{}d`,
		"x~y^z":           `x\textasciitilde{}y\textasciicircum{}z`,
	}

	for in, want := range tests {
		assert.Equal(t, want, EscapeLaTeX(in), in)
	}
}

func TestDocument(t *testing.T) {
	doc := Document("First paragraph.\n\n  \nSecond 100%.")

	assert.Equal(t,
		"\\documentclass{article}\n\\begin{document}\n\\begin{abstract}\n"+
			"First paragraph.\n\nSecond 100\\%."+
			"\n\\end{abstract}\n\\end{document}\n",
		doc)
}
