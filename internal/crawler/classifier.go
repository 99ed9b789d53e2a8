package crawler

import (
	"net/url"
	"strings"
)

// minSlugParts is the exclusive lower bound on hyphen-separated slug parts
// for a root-level path to count as a product page.
const minSlugParts = 4

// IsProductURL reports whether raw looks like a product detail page: the path
// holds exactly one non-empty segment whose hyphenated slug has more than four
// parts. It is a structural guess tied to the storefront's slug convention and
// admits both false positives and false negatives.
func IsProductURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	segments := pathSegments(u.Path)
	if len(segments) != 1 {
		return false
	}
	return len(strings.Split(segments[0], "-")) > minSlugParts
}

// FilterProductURLs keeps the product URLs from urls, preserving order and duplicates.
func FilterProductURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if IsProductURL(u) {
			out = append(out, u)
		}
	}
	return out
}

func pathSegments(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
