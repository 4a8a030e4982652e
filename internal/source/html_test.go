package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToText(t *testing.T) {
	doc := `<html><head><title>ignored</title><style>p{color:red}</style></head>
<body>
<div style="display: none"><ix:header>dei:EntityCentralIndexKey 0000320193</ix:header></div>
<p>ITEM 1.&nbsp;&nbsp;BUSINESS</p>
<p>The Company designs,
   manufactures and markets <b>smartphones</b>.</p>
<table><tr><td>Net sales</td><td>$ 383,285</td></tr></table>
<script>var x = 1;</script>
</body></html>`

	got, err := htmlToText(strings.NewReader(doc))
	require.NoError(t, err)

	lines := strings.Split(got, "\n")
	assert.Equal(t, []string{
		"ITEM 1. BUSINESS",
		"The Company designs, manufactures and markets smartphones.",
		"Net sales $ 383,285",
	}, lines)
}

func TestHTMLToText_WrappedItemReferenceStaysInParagraph(t *testing.T) {
	body := strings.Repeat("The Company sells cloud data services. ", 8)
	doc := `<html><body>
<p>Item 1. Business</p>
<p>` + body + `For risks see
Item 7 of this report for discussion.</p>
<p>Item 1A. Risk Factors</p>
<p>` + body + `</p>
</body></html>`

	got, err := htmlToText(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Contains(t, got, "For risks see Item 7 of this report")

	sections := SplitItems(Form10K, got)
	require.Len(t, sections, 2)
	assert.Equal(t, "Item 1", sections[0].Name)
	assert.Contains(t, sections[0].Text, "Item 7 of this report for discussion.")
	assert.Equal(t, "Item 1A", sections[1].Name)
}
