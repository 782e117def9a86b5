package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<div class="mw-parser-output">
<div class="hatnote">For other uses, see Plato (disambiguation).</div>
<table class="infobox"><tr><td>Born 428 BC</td></tr></table>
<p>Plato was an ancient Greek philosopher.<sup class="reference">[1]</sup> He founded
   the   Academy.</p>
<p class="mw-empty-elt"></p>
<div class="mw-heading mw-heading2"><h2 id="Life">Life</h2><span class="mw-editsection">[edit]</span></div>
<p>He was born in Athens.</p>
<ul><li>Republic</li><li>Laws</li></ul>
<div class="mw-heading mw-heading2"><h2 id="See_also">See also</h2></div>
<p>Socrates</p>
</div>`

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor([]string{"See also", "References"})

	text, err := e.Extract(articleHTML)
	require.NoError(t, err)

	assert.Equal(t,
		"Plato was an ancient Greek philosopher. He founded the Academy.\n\n"+
			"He was born in Athens.\n\n"+
			"Republic\n\n"+
			"Laws",
		text)
}

func TestExtractor_LegacyHeadings(t *testing.T) {
	html := `<div class="mw-parser-output">
<p>Police arrested two suspects.</p>
<h2><span class="mw-headline" id="Sources">Sources</span></h2>
<ul><li>Reuters</li></ul>
</div>`

	text, err := NewExtractor([]string{"Sources"}).Extract(html)
	require.NoError(t, err)
	assert.Equal(t, "Police arrested two suspects.", text)
}

func TestExtractor_NoParserOutput(t *testing.T) {
	text, err := NewExtractor(nil).Extract(`<p>Bare paragraph.</p>`)
	require.NoError(t, err)
	assert.Equal(t, "Bare paragraph.", text)
}

func TestWindow_Contains(t *testing.T) {
	assert.True(t, testWindow.Contains(testWindow.Start))
	assert.True(t, testWindow.Contains(testWindow.End))
	assert.False(t, testWindow.Contains(testWindow.End.Add(1)))
}
