// internal/browser/text.go
package browser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// blockTags are elements that terminate a visual line; their boundaries
// become newlines so label/value rows keep their line structure for the
// pattern chains.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"div": true, "dd": true, "dl": true, "dt": true, "fieldset": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"section": true, "table": true, "tr": true, "ul": true,
}

// skipTags hold no visible text.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"head": true, "iframe": true,
}

// FlattenHTML converts rendered page HTML into the visible-text form the
// pattern chains run against: block boundaries become newlines, table cells
// are space-separated, whitespace runs collapse.
func FlattenHTML(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	body := doc.Find("body")
	if body.Length() == 0 {
		// Fragment without a body wrapper; walk whatever parsed.
		for _, node := range doc.Nodes {
			writeNodeText(&b, node)
		}
	} else {
		for _, node := range body.Nodes {
			writeNodeText(&b, node)
		}
	}

	text := b.String()
	text = strings.ReplaceAll(text, "\r", "")
	text = spaceRun.ReplaceAllString(text, " ")
	text = trimLineEdges(text)
	text = newlineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

func writeNodeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipTags[n.Data] {
			return
		}
		if n.Data == "br" {
			b.WriteByte('\n')
			return
		}
		// Separate sibling cells so "Bib" and "4521" in adjacent <td>s do
		// not fuse into one token.
		if n.Data == "td" || n.Data == "th" {
			b.WriteByte(' ')
		}
		if blockTags[n.Data] {
			b.WriteByte('\n')
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(b, c)
	}

	if n.Type == html.ElementNode && blockTags[n.Data] {
		b.WriteByte('\n')
	}
}

// trimLineEdges strips leading/trailing spaces per line and drops lines that
// are only whitespace down to empties for the newline collapse.
func trimLineEdges(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
