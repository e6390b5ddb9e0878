package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "  Steuerberater  ", expected: "Steuerberater"},
		{input: "Muster\n\t  GmbH", expected: "Muster GmbH"},
		{input: "20354 Hamburg", expected: "20354 Hamburg"},
		{input: "a\u200bb", expected: "ab"},
		{input: "20354\u00a0Hamburg", expected: "20354 Hamburg"},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, Normalize(row.input))
	}
}

func TestTextAndAttr(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div><h2 class="n"> Kanzlei <b>Muster</b>
		</h2><span data-x=" abc "></span></div>`,
	))
	require.NoError(t, err)

	require.Equal(t, "Kanzlei Muster", Text(doc.Find("h2.n")))
	require.Equal(t, "", Text(doc.Find("h3")))
	require.Equal(t, "abc", Attr(doc.Find("span"), "data-x"))
	require.Equal(t, "", Attr(doc.Find("span"), "data-y"))
	require.Equal(t, "", Attr(doc.Find("p"), "data-x"))
}
