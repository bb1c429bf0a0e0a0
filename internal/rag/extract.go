package rag

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// contentClassPrefix marks the article body divs on the bank's blog pages.
const contentClassPrefix = "ExternalClass"

// ExtractText returns the text of every div carrying a class token that
// starts with ExternalClass, one block per div. Nested matches are not
// repeated.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var blocks []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasContentClass(n) {
			if t := collapse(textOf(n)); t != "" {
				blocks = append(blocks, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(blocks, "\n\n"), nil
}

func hasContentClass(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, cls := range strings.Fields(a.Val) {
			if strings.HasPrefix(cls, contentClassPrefix) {
				return true
			}
		}
	}
	return false
}

var flatten = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			// Source line breaks are layout, not structure.
			b.WriteString(flatten.Replace(n.Data))
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			if isBlock(n.Data) {
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// collapse trims each line, squeezes inner whitespace and drops blank lines.
func collapse(s string) string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "br", "li", "div", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}
