// Package detector decides when a plain fetch should be retried in a headless browser.
package detector

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

const defaultBodyThreshold = 2048

// Heuristic promotes pages that look like client-rendered storefront shells.
type Heuristic struct {
	BodyLengthThreshold int
	// RequiredSelector must match on a server-rendered product page. Empty disables the check.
	RequiredSelector string
}

// NewHeuristic creates a detector. A zero threshold uses the default.
func NewHeuristic(threshold int, requiredSelector string) *Heuristic {
	if threshold <= 0 {
		threshold = defaultBodyThreshold
	}
	return &Heuristic{
		BodyLengthThreshold: threshold,
		RequiredSelector:    strings.TrimSpace(requiredSelector),
	}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// ShouldPromote reports whether a headless fetch is likely to produce a richer page.
func (h *Heuristic) ShouldPromote(resp crawler.FetchResponse) bool {
	if h == nil || resp.StatusCode != 200 || resp.UsedHeadless {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	if h.missingRequired(body) {
		for _, marker := range spaMarkers {
			if bytes.Contains(body, marker) {
				return true
			}
		}
	}
	return false
}

// missingRequired is true when the selector is configured and absent.
func (h *Heuristic) missingRequired(body []byte) bool {
	if h.RequiredSelector == "" {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return true
	}
	return doc.Find(h.RequiredSelector).Length() == 0
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed tag; the remainder counts as script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		nextSearch := total
		if relativeEnd != -1 {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	return scriptCoverage*100/total >= 25
}
