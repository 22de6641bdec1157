package extract

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

// DefaultKeywords rank internal links likely to list people or contact details.
var DefaultKeywords = []string{
	"attorney", "partner", "team", "contact", "lawyer", "staff", "about", "people", "profiles",
}

type scoredLink struct {
	url   string
	score int
	order int
}

// rankLinks returns same-site links from doc that mention at least one keyword in their
// path or anchor text, best first. Path matches weigh more than anchor text.
func rankLinks(doc *goquery.Document, base *url.URL, keywords []string) []string {
	seen := map[string]struct{}{canonicalLink(base): {}}
	var links []scoredLink

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if skipHref(href) {
			return
		}
		target, err := base.Parse(strings.TrimSpace(href))
		if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
			return
		}
		if !lead.SameHost(base, target) {
			return
		}
		if ext := strings.TrimPrefix(strings.ToLower(path.Ext(target.Path)), "."); ext != "" {
			if _, isFile := fileExtensions[ext]; isFile {
				return
			}
		}
		target.Fragment = ""
		key := canonicalLink(target)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		score := scoreLink(strings.ToLower(target.Path), strings.ToLower(s.Text()), keywords)
		if score == 0 {
			return
		}
		links = append(links, scoredLink{url: target.String(), score: score, order: i})
	})

	sort.SliceStable(links, func(i, j int) bool {
		if links[i].score != links[j].score {
			return links[i].score > links[j].score
		}
		return links[i].order < links[j].order
	})
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.url
	}
	return out
}

func scoreLink(linkPath, anchor string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(linkPath, kw) {
			score += 2
		}
		if strings.Contains(anchor, kw) {
			score++
		}
	}
	return score
}

func skipHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if h == "" || strings.HasPrefix(h, "#") {
		return true
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "data:", "ftp:"} {
		if strings.HasPrefix(h, prefix) {
			return true
		}
	}
	return false
}

func canonicalLink(u *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host + strings.TrimRight(u.EscapedPath(), "/") + "?" + u.RawQuery
}
