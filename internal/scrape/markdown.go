package scrape

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Elements that never carry page content
const noiseSelector = "script, style, noscript, iframe, svg, nav, footer, header, form, button"

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ToMarkdown converts an HTML page into lightweight markdown.
// The first <article> or <main> is preferred over the whole body.
func ToMarkdown(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	doc.Find(noiseSelector).Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, n := range root.Nodes {
		render(&b, n)
	}

	md := cleanup(b.String())
	if md == "" {
		// Layouts that hide text outside the usual block elements
		md = strings.TrimSpace(visibleText(root.Nodes[0]))
	}
	return md, nil
}

func render(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		writeText(b, n.Data)
		return
	case html.ElementNode:
	default:
		renderChildren(b, n)
		return
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		b.WriteString("\n\n" + strings.Repeat("#", level) + " ")
		renderChildren(b, n)
		b.WriteString("\n\n")
	case "p", "div", "section", "table", "tr", "blockquote", "dl":
		b.WriteString("\n\n")
		renderChildren(b, n)
		b.WriteString("\n\n")
	case "br":
		b.WriteString("\n")
	case "li":
		b.WriteString("\n- ")
		renderChildren(b, n)
	case "td", "th", "dd", "dt":
		renderChildren(b, n)
		b.WriteString(" ")
	case "a":
		text := strings.Join(strings.Fields(visibleText(n)), " ")
		href := attr(n, "href")
		if text == "" {
			return
		}
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			writeText(b, text)
			return
		}
		writeText(b, "["+text+"]("+href+")")
	case "strong", "b":
		var inner strings.Builder
		renderChildren(&inner, n)
		if s := strings.TrimSpace(inner.String()); s != "" {
			writeText(b, "**"+s+"**")
		}
	case "img":
		if alt := strings.TrimSpace(attr(n, "alt")); alt != "" {
			writeText(b, alt)
		}
	default:
		renderChildren(b, n)
	}
}

func renderChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		render(b, c)
	}
}

// writeText appends whitespace-collapsed text, keeping words apart
func writeText(b *strings.Builder, s string) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return
	}
	if b.Len() > 0 {
		switch b.String()[b.Len()-1] {
		case ' ', '\n', '(', '[':
		default:
			b.WriteByte(' ')
		}
	}
	b.WriteString(s)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// cleanup trims every line and collapses blank runs
func cleanup(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	md = strings.Join(lines, "\n")
	md = blankRuns.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}

// visibleText extracts text nodes, skipping scripts and styles
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}
