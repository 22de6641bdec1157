package extract

import (
	"slices"
	"strings"
)

// domainBlocklist matches email domains against configured patterns:
//
//	host.tld    exact host
//	*.host.tld  host.tld and any subdomain (a leading "." is equivalent)
//	name.*      any host whose first label is name (example.com, example.org)
type domainBlocklist struct {
	exact    map[string]struct{}
	suffixes []string
	prefixes []string
}

func newDomainBlocklist(patterns []string) *domainBlocklist {
	b := &domainBlocklist{
		exact: make(map[string]struct{}),
	}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		switch {
		case value == "":
			continue
		case strings.HasPrefix(value, "*."):
			b.suffixes = appendUnique(b.suffixes, strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			b.suffixes = appendUnique(b.suffixes, strings.TrimPrefix(value, "."))
		case strings.HasSuffix(value, ".*"):
			b.prefixes = appendUnique(b.prefixes, strings.TrimSuffix(value, ".*"))
		default:
			b.exact[value] = struct{}{}
		}
	}
	if len(b.exact) == 0 && len(b.suffixes) == 0 && len(b.prefixes) == 0 {
		return nil
	}
	return b
}

func appendUnique(list []string, value string) []string {
	if value == "" || slices.Contains(list, value) {
		return list
	}
	return append(list, value)
}

func (b *domainBlocklist) IsBlocked(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(host)), ".")
	if host == "" {
		return false
	}
	if _, ok := b.exact[host]; ok {
		return true
	}
	for _, suffix := range b.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	if first, _, ok := strings.Cut(host, "."); ok {
		if slices.Contains(b.prefixes, first) {
			return true
		}
	}
	return false
}
