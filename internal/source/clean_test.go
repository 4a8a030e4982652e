package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"newlines", "Net sales\nincreased\n", "Net sales increased"},
		{"dash rule", "Total ------ 1,024", "Total  1,024"},
		{"leader dots", "Revenue........ 12.5", "Revenue 12.5"},
		{"keeps short runs", "a--b..c", "a--b..c"},
		{"plus runs", "x ++ y +++ z + w", "x  y  z + w"},
		{"joined runs", "--...-", ""},
		{"leading run", "... Item 7", "Item 7"},
		{"blank", " \n \n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"ITEM 1.\nBusiness\n\n---\nOverview....",
		"++-+.-..-.--+..",
		"  -.-.-.-  \n",
		"Liquidity and ----Capital Resources++ ...",
		strings.Repeat("-.", 50),
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}

func TestCleanAll(t *testing.T) {
	long := strings.Repeat("Risk factors include interest rate exposure. ", 6)
	blocks := []string{
		"Item 6. [Reserved]",
		long,
		"\n\n",
		"short\n----\n" + long,
	}

	got := CleanAll(blocks, DefaultMinLength)
	assert.Len(t, got, 2)
	assert.Equal(t, Clean(long), got[0])
	assert.True(t, strings.HasPrefix(got[1], "short"))

	assert.Len(t, CleanAll(blocks, 0), 3, "zero minimum still drops empty blocks")
}
