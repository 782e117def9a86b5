package differ

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikiedits/internal/config"
)

func TestWordDiff_Insertion(t *testing.T) {
	out, err := WordDiff{}.Diff(context.Background(), Document("A cat sat."), Document("A cat sat quietly."))
	require.NoError(t, err)

	assert.Contains(t, out, `A cat sat\DIFaddbegin\DIFadd{ quietly}\DIFaddend{}.`)
	assert.NotContains(t, out, `\DIFdel{`)
}

func TestWordDiff_Replacement(t *testing.T) {
	out, err := WordDiff{}.Diff(context.Background(), "the big dog", "the small dog")
	require.NoError(t, err)

	assert.Equal(t, `the \DIFdelbegin\DIFdel{big}\DIFdelend{}\DIFaddbegin\DIFadd{small}\DIFaddend{} dog`, out)
}

func TestWordDiff_Identical(t *testing.T) {
	doc := Document("Nothing changed here.")

	out, err := WordDiff{}.Diff(context.Background(), doc, doc)
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}

func TestWordDiff_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WordDiff{}.Diff(ctx, "a", "b")
	require.ErrorIs(t, err, context.Canceled)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"Costs", " ", "100\\%", " ", "(", "net", ")", "."},
		tokenize(`Costs 100\% (net).`))
	assert.Empty(t, tokenize(""))
}

func TestNewTool(t *testing.T) {
	assert.IsType(t, WordDiff{}, NewTool(config.DiffConfig{Binary: BuiltinBinary}))
	assert.IsType(t, &LatexDiff{}, NewTool(config.DiffConfig{Binary: "latexdiff", TimeoutSec: 1}))
}
