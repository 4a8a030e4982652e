package source

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Tr: true, atom.Li: true,
	atom.Table: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Section: true, atom.Hr: true, atom.Title: true,
}

var sourceBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Noscript: true,
}

// htmlToText renders an EDGAR filing document as plain text, one line per
// block element. Hidden inline XBRL headers are skipped.
func htmlToText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			// Source line breaks are layout only; lines come from blocks.
			b.WriteString(sourceBreaks.Replace(n.Data))
			return
		case html.ElementNode:
			if skippedElements[n.DataAtom] || hidden(n) || n.Data == "ix:header" {
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Td {
			b.WriteByte(' ')
		}
		if block {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return normaliseLines(b.String()), nil
}

func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "style" {
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") {
				return true
			}
		}
	}
	return false
}

// normaliseLines collapses whitespace (NBSP included) inside lines and
// drops blank lines.
func normaliseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if f := strings.Fields(l); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return strings.Join(out, "\n")
}
