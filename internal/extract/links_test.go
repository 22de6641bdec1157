package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankLinks(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<a href="/">Home</a>
		<a href="#top">Top</a>
		<a href="/news">News</a>
		<a href="/contact-us/">Get in touch</a>
		<a href="https://www.smithlaw.com/our-attorneys">Our Attorneys</a>
		<a href="/our-attorneys#bio">Attorneys</a>
		<a href="/brochure-team.pdf">Team brochure</a>
		<a href="tel:5550100">Call the team</a>
		<a href="https://other.com/team">Partner site</a>
		<a href="javascript:void(0)">Contact</a>
		<a href="/firm">About the firm</a>`))
	require.NoError(t, err)
	base, err := url.Parse("https://smithlaw.com")
	require.NoError(t, err)

	got := rankLinks(doc, base, DefaultKeywords)
	assert.Equal(t, []string{
		"https://www.smithlaw.com/our-attorneys",
		"https://smithlaw.com/contact-us/",
		"https://smithlaw.com/firm",
	}, got)
}

func TestScoreLink(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, scoreLink("/news", "latest news", DefaultKeywords))
	assert.Equal(t, 1, scoreLink("/firm", "about the firm", DefaultKeywords))
	assert.Equal(t, 3, scoreLink("/team", "our team", DefaultKeywords))
}
