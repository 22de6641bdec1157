// Package detector decides when a plain HTTP fetch must be re-rendered in a browser.
package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

const defaultBodyLengthThreshold = 2048

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultBodyLengthThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

// Mount points of the common client-side frameworks and site builders.
var spaSelectors = []string{
	"#__next",
	"#__nuxt",
	"#root:empty",
	"#app:empty",
	"[data-reactroot]",
	"[ng-version]",
	"[data-v-app]",
}

// ShouldPromote reports whether page probably needs JavaScript to show its
// content. Only successful responses are considered.
func (h *Heuristic) ShouldPromote(page lead.Page) bool {
	if page.StatusCode != 200 {
		return false
	}
	if strings.TrimSpace(page.HTML) == "" {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return false
	}
	for _, sel := range spaSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	if len(page.HTML) < h.BodyLengthThreshold && scriptHeavy(doc) {
		return true
	}
	return false
}

// scriptHeavy reports whether inline scripts outweigh the visible text.
func scriptHeavy(doc *goquery.Document) bool {
	scriptBytes := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scriptBytes += len(s.Text())
		if src, ok := s.Attr("src"); ok {
			scriptBytes += len(src)
		}
	})
	if scriptBytes == 0 {
		return false
	}
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := len(strings.TrimSpace(body.Text()))
	return scriptBytes >= text
}
