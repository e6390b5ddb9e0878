package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// Normalize turns every kind of whitespace (including nbsp) into a plain
// space, drops non-printable runes, collapses runs of spaces and trims.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Text returns the normalized text of the first node in the selection,
// or "" if the selection is empty.
func Text(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	return Normalize(GetText(sel.Nodes[0]))
}

// Attr returns the trimmed value of an attribute on the first node in
// the selection, or "" if either is missing.
func Attr(sel *goquery.Selection, name string) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	return strings.TrimSpace(sel.First().AttrOr(name, ""))
}
