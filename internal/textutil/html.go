package textutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// nonProse lists elements whose content is never read aloud.
var nonProse = []string{"script", "style", "noscript", "template"}

// blockElements separate their text from neighbouring text with a space, so
// that "<p>One</p><p>Two</p>" reads as "One Two" rather than "OneTwo".
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "td": true,
	"th": true, "tr": true, "ul": true,
}

// HTMLText extracts the human-readable text of an HTML or XHTML fragment.
// Script and style content is dropped, every whitespace run collapses to a
// single space and the result is trimmed.
func HTMLText(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return CollapseWhitespace(fragment)
	}
	return DocumentText(goquery.NewDocumentFromNode(root))
}

// DocumentText is HTMLText for an already parsed document. Non-prose
// elements are removed from doc.
func DocumentText(doc *goquery.Document) string {
	doc.Find(strings.Join(nonProse, ",")).Remove()

	scope := doc.Find("body")
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	var sb strings.Builder
	for _, n := range scope.Nodes {
		writeText(&sb, n)
	}
	return CollapseWhitespace(sb.String())
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[strings.ToLower(n.Data)]
	if block {
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteByte(' ')
	}
}

// CollapseWhitespace replaces every run of Unicode whitespace, newlines
// included, with a single space and trims both ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
