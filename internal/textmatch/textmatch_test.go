package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher(t *testing.T) {
	m := New([]string{"Category:", "", "List of "})

	tests := []struct {
		in   string
		want bool
	}{
		{"Category:Philosophy", true},
		{"List of philosophers", true},
		{"Listing of nothing", false},
		{"category:lowercase", false},
		{"Playlist of songs", false},
		{"Plato", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Contains(tt.in), tt.in)
	}

	assert.Equal(t, []string{"Category:", "List of "}, m.Matches("List of Category:X"))
}

func TestMatcher_Empty(t *testing.T) {
	var nilMatcher *Matcher

	assert.False(t, New(nil).Contains("anything"))
	assert.False(t, nilMatcher.Contains("anything"))
	assert.Nil(t, New([]string{""}).Matches("x"))
}
