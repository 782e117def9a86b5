package metadata

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const artifact = `\documentclass{article}
\begin{document}
\begin{abstract}
A cat sat \DIFaddbegin \DIFadd{quietly}\DIFaddend .
\end{abstract}
\end{document}`

func TestSignAndVerify(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	signed := Sign(artifact, Metadata{DocID: "wikipedia-7", Depth: 2, OldRevID: 10, NewRevID: 11, Source: "abc", Created: created})

	assert.True(t, strings.HasPrefix(signed, artifact))
	assert.Contains(t, signed, TagStart)

	ok, err := Verify(signed)
	require.NoError(t, err)
	assert.True(t, ok)

	meta, clean := Extract(signed)
	require.NotNil(t, meta)
	assert.Equal(t, artifact, clean)
	assert.Equal(t, "wikipedia-7", meta.DocID)
	assert.Equal(t, 2, meta.Depth)
	assert.EqualValues(t, 10, meta.OldRevID)
	assert.EqualValues(t, 11, meta.NewRevID)
	assert.Equal(t, created, meta.Created)
	assert.Equal(t, "abc", meta.Source)
	assert.Equal(t, ContentHash(artifact), meta.Hash)
}

func TestSign_ReplacesExistingBlock(t *testing.T) {
	once := Sign(artifact, Metadata{DocID: "a"})
	twice := Sign(once, Metadata{DocID: "b"})

	assert.Equal(t, 1, strings.Count(twice, TagStart))

	meta, _ := Extract(twice)
	require.NotNil(t, meta)
	assert.Equal(t, "b", meta.DocID)
}

func TestVerify_Tampered(t *testing.T) {
	signed := Sign(artifact, Metadata{DocID: "wikipedia-7"})
	tampered := strings.Replace(signed, "cat", "dog", 1)

	_, err := Verify(tampered)
	require.ErrorIs(t, err, ErrHashMismatch)
}

func TestVerify_NoBlock(t *testing.T) {
	_, err := Verify(artifact)
	require.ErrorIs(t, err, ErrNoMetadataBlock)

	noHash := artifact + "\n\n" + TagStart + "\n% DOC_ID: x\n" + TagEnd + "\n"
	_, err = Verify(noHash)
	require.ErrorIs(t, err, ErrNoHashFound)
}
