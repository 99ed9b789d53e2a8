// Package sitemap reads the URL list out of an XML sitemap document.
package sitemap

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ErrInvalidSitemap is returned when the document is not a sitemap.
var ErrInvalidSitemap = errors.New("invalid sitemap document")

// Parse returns the text of every <loc> element in document order. Duplicates
// are kept and surrounding whitespace is trimmed; empty <loc> elements are dropped.
// Both <urlset> and <sitemapindex> roots are accepted, with or without a
// namespace prefix.
func Parse(r io.Reader) ([]string, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSitemap, err)
	}
	if xmlquery.FindOne(doc, "/*[local-name()='urlset' or local-name()='sitemapindex']") == nil {
		return nil, fmt.Errorf("%w: missing urlset or sitemapindex root", ErrInvalidSitemap)
	}
	nodes := xmlquery.Find(doc, "//*[local-name()='loc']")
	urls := make([]string, 0, len(nodes))
	for _, n := range nodes {
		loc := strings.TrimSpace(n.InnerText())
		if loc == "" {
			continue
		}
		urls = append(urls, loc)
	}
	return urls, nil
}
