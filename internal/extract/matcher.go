package extract

import (
	"encoding/hex"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

var (
	standardPattern = regexp.MustCompile(`(?i)\b[a-z0-9_][a-z0-9._%+-]{0,63}@[a-z0-9][a-z0-9.-]{0,253}\.[a-z]{2,63}\b`)

	// user [at] firm [dot] com, user(at)firm.com
	bracketPattern = regexp.MustCompile(`(?i)\b([a-z0-9_][a-z0-9._%+-]*)\s*[\[({]\s*at\s*[\])}]\s*([a-z0-9-]+(?:(?:\s*[\[({]\s*dot\s*[\])}]\s*|\.)[a-z0-9-]+)+)\b`)
	bracketDot     = regexp.MustCompile(`(?i)\s*[\[({]\s*dot\s*[\])}]\s*`)

	// user AT firm DOT com, user at firm dot com. Lowercase markers also need a
	// common TLD to keep prose out.
	spacedPattern = regexp.MustCompile(`(?i)\b([a-z0-9_][a-z0-9._%+-]*)\s+at\s+([a-z0-9-]+(?:\s+dot\s+[a-z0-9-]+)+)\b`)
	spacedDot     = regexp.MustCompile(`(?i)\s+dot\s+`)
	upperAt       = regexp.MustCompile(`\sAT\s`)

	numericOnly = regexp.MustCompile(`^[0-9.]+$`)
)

// fileExtensions are TLD-looking suffixes produced by asset names such as logo@2x.png.
var fileExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "svg": {}, "webp": {}, "bmp": {}, "ico": {},
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {}, "pptx": {},
	"zip": {}, "rar": {}, "tar": {}, "gz": {}, "7z": {},
	"mp3": {}, "mp4": {}, "avi": {}, "mov": {}, "wmv": {},
	"css": {}, "js": {}, "json": {}, "xml": {},
	"scaled": {}, "circle": {}, "thumbnail": {}, "icon": {},
}

// spacedTLDs are the suffixes accepted after lowercase "at"/"dot" markers.
var spacedTLDs = map[string]struct{}{
	"com": {}, "net": {}, "org": {}, "us": {}, "co": {}, "uk": {}, "ca": {}, "au": {},
	"law": {}, "legal": {}, "lawyer": {}, "attorney": {}, "info": {}, "biz": {},
}

var placeholderLocals = map[string]struct{}{
	"test": {}, "demo": {}, "sample": {}, "example": {}, "email": {},
	"name": {}, "user": {}, "username": {}, "yourname": {}, "your.name": {}, "youremail": {},
}

// Matcher finds contact addresses in page text and filters out obvious noise. When a
// candidate is ambiguous it is kept.
type Matcher struct {
	blocked *domainBlocklist
}

// NewMatcher builds a Matcher that rejects addresses on the given domain patterns.
func NewMatcher(disallowedDomains []string) *Matcher {
	return &Matcher{blocked: newDomainBlocklist(disallowedDomains)}
}

// Find returns the accepted addresses in text, lowercased and deduplicated in order of
// first appearance. siteHost is the host being crawled; its own domain is never treated
// as disallowed.
func (m *Matcher) Find(text, siteHost string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(raw string) {
		email := Clean(raw)
		if _, dup := seen[email]; dup {
			return
		}
		if !m.Accept(email, siteHost) {
			return
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}

	for _, match := range standardPattern.FindAllString(text, -1) {
		add(match)
	}
	for _, sub := range bracketPattern.FindAllStringSubmatch(text, -1) {
		add(sub[1] + "@" + bracketDot.ReplaceAllString(sub[2], "."))
	}
	for _, sub := range spacedPattern.FindAllStringSubmatch(text, -1) {
		domain := spacedDot.ReplaceAllString(sub[2], ".")
		if !upperAt.MatchString(sub[0]) {
			tld := strings.ToLower(domain[strings.LastIndexByte(domain, '.')+1:])
			if _, ok := spacedTLDs[tld]; !ok {
				continue
			}
		}
		add(sub[1] + "@" + domain)
	}
	return out
}

// Clean lowercases an address and strips wrapping quotes, brackets, a mailto: prefix and
// trailing punctuation.
func Clean(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "mailto:")
	for {
		trimmed := strings.TrimRight(strings.Trim(s, "\"'()[]<>{} "), ".,;:")
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// Accept reports whether a cleaned address looks like a deliverable contact address.
func (m *Matcher) Accept(email, siteHost string) bool {
	if len(email) < 6 || len(email) > 254 || strings.Contains(email, "..") {
		return false
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || len(local) > 64 || strings.Contains(domain, "@") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	if _, isFile := fileExtensions[domain[dot+1:]]; isFile {
		return false
	}
	if numericOnly.MatchString(local) || numericOnly.MatchString(domain) {
		return false
	}
	if domain == "localhost" || strings.HasPrefix(domain, "localhost.") {
		return false
	}
	if _, placeholder := placeholderLocals[local]; placeholder && !sameSite(domain, siteHost) {
		return false
	}
	if m.blocked.IsBlocked(domain) && !sameSite(domain, siteHost) {
		return false
	}
	return true
}

func sameSite(domain, siteHost string) bool {
	if siteHost == "" {
		return false
	}
	d := strings.TrimPrefix(strings.ToLower(domain), "www.")
	h := strings.TrimPrefix(strings.ToLower(siteHost), "www.")
	return d == h || strings.HasSuffix(h, "."+d) || strings.HasSuffix(d, "."+h)
}

// mailtoAddresses returns the recipients of a mailto: href.
func mailtoAddresses(href string) []string {
	href = strings.TrimSpace(href)
	if len(href) < len("mailto:") || !strings.EqualFold(href[:len("mailto:")], "mailto:") {
		return nil
	}
	rest := href[len("mailto:"):]
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}
	if decoded, err := url.PathUnescape(rest); err == nil {
		rest = decoded
	}
	var out []string
	for _, part := range strings.Split(rest, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decodeCloudflareEmail reverses Cloudflare email obfuscation: the first byte is an XOR
// key for the remaining hex-encoded bytes.
func decodeCloudflareEmail(encoded string) (string, bool) {
	raw, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil || len(raw) < 2 {
		return "", false
	}
	key := raw[0]
	out := make([]byte, len(raw)-1)
	for i, b := range raw[1:] {
		out[i] = b ^ key
	}
	return string(out), true
}
