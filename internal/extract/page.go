package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// pageEmails collects addresses from mailto links, Cloudflare-protected spans and the
// visible text of a parsed page.
func (m *Matcher) pageEmails(doc *goquery.Document, siteHost string) []string {
	var candidates []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		candidates = append(candidates, mailtoAddresses(href)...)
		if _, frag, ok := strings.Cut(href, "/cdn-cgi/l/email-protection#"); ok {
			if email, ok := decodeCloudflareEmail(frag); ok {
				candidates = append(candidates, email)
			}
		}
	})
	doc.Find("[data-cfemail]").Each(func(_ int, s *goquery.Selection) {
		encoded, _ := s.Attr("data-cfemail")
		if email, ok := decodeCloudflareEmail(encoded); ok {
			candidates = append(candidates, email)
		}
	})

	var out []string
	seen := make(map[string]struct{})
	for _, raw := range candidates {
		email := Clean(raw)
		if _, dup := seen[email]; dup || !m.Accept(email, siteHost) {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	for _, email := range m.Find(visibleText(doc), siteHost) {
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

var inlineElements = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Bdi: true, atom.Bdo: true, atom.Cite: true,
	atom.Code: true, atom.Em: true, atom.Font: true, atom.I: true, atom.Mark: true, atom.Q: true,
	atom.S: true, atom.Small: true, atom.Span: true, atom.Strong: true, atom.Sub: true,
	atom.Sup: true, atom.U: true, atom.Wbr: true,
}

var hiddenElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
	atom.Svg: true, atom.Head: true,
}

// visibleText flattens the document to text, separating block-level elements with
// spaces so adjacent cells do not run together.
func visibleText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if hiddenElements[n.DataAtom] {
				return
			}
		}
		block := n.Type == html.ElementNode && !inlineElements[n.DataAtom]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return b.String()
}
