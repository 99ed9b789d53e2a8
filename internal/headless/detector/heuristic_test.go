package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

func ok(body string) crawler.FetchResponse {
	return crawler.FetchResponse{StatusCode: 200, Body: []byte(body)}
}

func TestHeuristic_EmptyBodyPromotes(t *testing.T) {
	t.Parallel()

	require.True(t, NewHeuristic(100, "").ShouldPromote(ok("")))
}

func TestHeuristic_SPAShellPromotes(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(10, "h1.page-title")
	require.True(t, h.ShouldPromote(ok(`<html><body><div id="__next"></div></body></html>`)))
}

func TestHeuristic_SPAMarkerIgnoredWhenContentRendered(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(10, "h1.page-title")
	body := `<html><body><div id="root"><h1 class="page-title"><span class="base">Chair</span></h1></div></body></html>`
	require.False(t, h.ShouldPromote(ok(body)))
}

func TestHeuristic_ScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000, "")
	require.True(t, h.ShouldPromote(ok(`<html><script>var a=1;</script><p>t</p></html>`)))
}

func TestHeuristic_PlainPageNotPromoted(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(10, "")
	body := "<html><body><p>" + strings.Repeat("content ", 50) + "</p></body></html>"
	require.False(t, h.ShouldPromote(ok(body)))
}

func TestHeuristic_SkipsNon200AndHeadless(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100, "")
	require.False(t, h.ShouldPromote(crawler.FetchResponse{StatusCode: 404}))
	require.False(t, h.ShouldPromote(crawler.FetchResponse{StatusCode: 200, UsedHeadless: true}))

	var nilDetector *Heuristic
	require.False(t, nilDetector.ShouldPromote(ok("")))
}

func TestNewHeuristic_DefaultThreshold(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0, "  .x  ")
	require.Equal(t, defaultBodyThreshold, h.BodyLengthThreshold)
	require.Equal(t, ".x", h.RequiredSelector)
}
