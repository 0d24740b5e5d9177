package htmlutil

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "  iPhone 15  ", expect: "iPhone 15"},
		{in: "\n\tiPhone\n\n   15 Pro\t", expect: "iPhone 15 Pro"},
		{in: "iPhone\u200b 15\u00a0", expect: "iPhone 15"},
		{in: "", expect: ""},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, CleanText(test.in))
	}
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div id="a">iPhone <b>15</b><script>var x = 1;</script>
		<span>Pro</span></div>`,
	))
	require.NoError(t, err)
	require.Equal(t, "iPhone 15 Pro", SelectionText(doc.Find("#a")))
}

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<a href="products/iphone-15.html"> iPhone
			15 </a>
		<a href="">empty</a>
		<a>no href</a>
		<a href="https://other.example.com/x">Other</a>
	`))
	require.NoError(t, err)

	base, err := url.Parse("https://example.github.io/catalog/")
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), base, doc.Find("a"))
	diff := cmp.Diff([]Anchor{
		{Name: "iPhone 15", Href: "https://example.github.io/catalog/products/iphone-15.html"},
		{Name: "Other", Href: "https://other.example.com/x"},
	}, anchors)
	require.Empty(t, diff)
}
