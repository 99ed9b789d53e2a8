package sitemap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKeepsDocumentOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://site/b-b-b-b-b</loc><lastmod>2024-01-01</lastmod></url>
  <url><loc>
    https://site/living-room
  </loc></url>
  <url><loc>https://site/a-a-a-a-a</loc></url>
  <url><loc>https://site/b-b-b-b-b</loc></url>
  <url><loc>   </loc></url>
</urlset>`

	got, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://site/b-b-b-b-b",
		"https://site/living-room",
		"https://site/a-a-a-a-a",
		"https://site/b-b-b-b-b",
	}, got)
}

func TestParseSitemapIndex(t *testing.T) {
	t.Parallel()

	doc := `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://site/sitemap-products.xml</loc></sitemap>
</sitemapindex>`

	got, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, []string{"https://site/sitemap-products.xml"}, got)
}

func TestParseEmptyURLSet(t *testing.T) {
	t.Parallel()

	got, err := Parse(strings.NewReader(`<urlset></urlset>`))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestParseRejectsNonSitemap(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"plain text": "this is not xml",
		"html page":  "<html><body><loc>https://site/a-b-c-d-e</loc></body></html>",
		"empty":      "",
	}
	for name, body := range tests {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(body))
			require.ErrorIs(t, err, ErrInvalidSitemap)
		})
	}
}

func TestParseNamespacePrefixedElements(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0" encoding="UTF-8"?>
<s:urlset xmlns:s="http://www.sitemaps.org/schemas/sitemap/0.9">
  <s:url><s:loc>https://site/oak-dining-table-large-natural</s:loc></s:url>
  <s:url><s:loc>https://site/dining</s:loc></s:url>
</s:urlset>`

	got, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, []string{"https://site/oak-dining-table-large-natural", "https://site/dining"}, got)
}
