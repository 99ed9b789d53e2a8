package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-sitemap-crawler/internal/config"
	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
	"github.com/JakeFAU/product-sitemap-crawler/internal/extract"
	autofetcher "github.com/JakeFAU/product-sitemap-crawler/internal/fetcher/auto"
	collyfetcher "github.com/JakeFAU/product-sitemap-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/product-sitemap-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/product-sitemap-crawler/internal/pipeline"
	"github.com/JakeFAU/product-sitemap-crawler/internal/policy/ratelimit"
	memorystorage "github.com/JakeFAU/product-sitemap-crawler/internal/storage/memory"
)

const sofaPage = `<html><body>
<h1 class="page-title"><span class="base">Sofa X</span></h1>
<div class="price-box"><span class="special-price"><span class="price">$999</span></span></div>
</body></html>`

type testSite struct {
	*httptest.Server
	categoryHits atomic.Int32
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	site := &testSite{}
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /checkout\n")
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/sofa-x-three-seat-grey</loc></url>
  <url><loc>%[1]s/living-room/sofas</loc></url>
</urlset>`, site.URL)
	})
	mux.HandleFunc("/sofa-x-three-seat-grey", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sofaPage)
	})
	mux.HandleFunc("/living-room/sofas", func(w http.ResponseWriter, _ *http.Request) {
		site.categoryHits.Add(1)
		fmt.Fprint(w, "<html>category</html>")
	})
	site.Server = httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

func testConfig(site string) config.Config {
	return config.Config{
		Crawler: config.CrawlerConfig{
			TargetSite:        site,
			MaxProducts:       5,
			RequestsPerSecond: 0,
			Burst:             1,
			UserAgent:         "product-crawler-test",
			SitemapPath:       "/sitemap.xml",
			RobotsPath:        "/robots.txt",
		},
		HTTP:    config.HTTPConfig{TimeoutSeconds: 5},
		Fetcher: config.FetcherConfig{Backend: "colly"},
		Extract: extract.DefaultSelectors(),
		Storage: config.StorageConfig{Backend: "memory"},
		Archive: config.ArchiveConfig{Backend: "none", Prefix: "snapshots"},
	}
}

func TestBuildAndRunEndToEnd(t *testing.T) {
	site := newTestSite(t)
	cfg := testConfig(site.URL)
	cfg.Metrics.ListenAddr = "127.0.0.1:0"
	cfg.Archive.Backend = "local"
	cfg.Archive.BaseDir = t.TempDir()

	ctx := context.Background()
	a, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close(ctx)

	summary, err := a.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.StateDone, summary.State)
	require.Equal(t, 2, summary.SitemapURLs)
	require.Equal(t, 1, summary.Candidates)
	require.Equal(t, 1, summary.Stored)
	require.Zero(t, site.categoryHits.Load())

	store, ok := a.Store().(*memorystorage.ProductStore)
	require.True(t, ok)
	require.Equal(t, []crawler.Product{{
		URL:          site.URL + "/sofa-x-three-seat-grey",
		Title:        "Sofa X",
		CurrentPrice: "$999",
	}}, store.All())

	entries, err := os.ReadDir(filepath.Join(cfg.Archive.BaseDir, "snapshots"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRunFailsWhenSitemapMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx := context.Background()
	a, err := Build(ctx, testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)
	defer a.Close(ctx)

	summary, err := a.Run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, crawler.ErrUnexpectedStatus)
	require.Equal(t, pipeline.StateFailed, summary.State)
}

func TestBuildFailsOnBadPostgresDSN(t *testing.T) {
	cfg := testConfig("https://shop.test")
	cfg.Storage = config.StorageConfig{
		Backend:  "postgres",
		Postgres: config.PostgresConfig{DSN: "postgres://%zz", Table: "products"},
	}
	_, err := Build(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "postgres store init failed")
}

func TestBuildFailsOnBadArchiveDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	cfg := testConfig("https://shop.test")
	cfg.Archive = config.ArchiveConfig{Backend: "local", BaseDir: file}
	_, err := Build(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "local snapshot store init failed")
}

func TestCloseOnEmptyApp(t *testing.T) {
	(&App{logger: zap.NewNop()}).Close(context.Background())
}

func TestSetupFetcherBackends(t *testing.T) {
	cases := []struct {
		backend      string
		wantHeadless bool
		check        func(t *testing.T, f crawler.Fetcher)
	}{
		{"colly", false, func(t *testing.T, f crawler.Fetcher) {
			require.IsType(t, &collyfetcher.Fetcher{}, f)
		}},
		{"chromedp", true, func(t *testing.T, f crawler.Fetcher) {
			require.IsType(t, &headlessfetcher.Fetcher{}, f)
		}},
		{"auto", true, func(t *testing.T, f crawler.Fetcher) {
			require.IsType(t, &autofetcher.Fetcher{}, f)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			cfg := testConfig("https://shop.test")
			cfg.Fetcher.Backend = tc.backend
			cfg.Headless.NavTimeoutSec = 5
			a := &App{cfg: cfg, logger: zap.NewNop()}
			defer a.Close(context.Background())

			tc.check(t, setupFetcher(a, ratelimit.New(ratelimit.Config{})))
			require.Equal(t, tc.wantHeadless, a.headless != nil)
		})
	}
}

func TestBuildWithTracingEnabled(t *testing.T) {
	cfg := testConfig("https://shop.test")
	cfg.Tracing = config.TracingConfig{Enabled: true, ServiceName: "product-crawler-test", SampleRatio: 1}

	a, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.tracer)
	a.Close(context.Background())
}
