package diffparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAbstract(t *testing.T) {
	body, err := ExtractAbstract("\\begin{document}\n\\begin{abstract}\nHello.\n\\end{abstract}\n\\end{document}")
	require.NoError(t, err)
	assert.Equal(t, "\nHello.\n", body)

	_, err = ExtractAbstract(`\begin{document}Hello.\end{document}`)
	require.ErrorIs(t, err, ErrMalformedArtifact)
}

func TestStripComments(t *testing.T) {
	in := "Kept line %DIF > trailing\n%DIF < old text only\n  %DIFDELCMD < \\%%%\n50\\% rise\nend"

	assert.Equal(t, "Kept line \n50\\% rise\nend", StripComments(in))
}

func TestScan(t *testing.T) {
	segs, err := Scan(`A cat sat \DIFaddbegin \DIFadd{quietly}\DIFaddend . \DIFdelbeginFL \DIFdelFL{Old \{x\}}\DIFdelendFL{}!`)
	require.NoError(t, err)

	assert.Equal(t, []Segment{
		{Kind: SegmentEqual, Text: "A cat sat "},
		{Kind: SegmentSoftSpace},
		{Kind: SegmentInserted, Text: "quietly"},
		{Kind: SegmentSoftSpace},
		{Kind: SegmentEqual, Text: ". "},
		{Kind: SegmentSoftSpace},
		{Kind: SegmentDeleted, Text: "Old {x}"},
		{Kind: SegmentEqual, Text: "!"},
	}, segs)
}

func TestScan_KeepsOtherCommands(t *testing.T) {
	segs, err := Scan(`Path C:\textbackslash{}tmp costs 5\$ \emph{now}`)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, `Path C:\tmp costs 5$ \emph{now}`, segs[0].Text)
}

func TestScan_Malformed(t *testing.T) {
	tests := map[string]string{
		"unclosed argument":   `text \DIFadd{never closed`,
		"missing argument":    `text \DIFdel without braces`,
		"stray closing":       `text } more`,
		"unclosed group":      `text {open`,
		"argument at the end": `text \DIFadd`,
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Scan(in)
			require.ErrorIs(t, err, ErrMalformedArtifact)
		})
	}
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, `50% of $10 & #1 a_b {c} \d x~y^z`,
		Unescape(`50\% of \$10 \& \#1 a\_b \{c\} \textbackslash{}d x\textasciitilde{}y\textasciicircum{}z`))
}

func TestSegmentKind_String(t *testing.T) {
	assert.Equal(t, "inserted", SegmentInserted.String())
	assert.Equal(t, "SegmentKind(9)", SegmentKind(9).String())
}
