// Package pipeline drives one crawl run: read the sitemap, keep the product
// URLs, then fetch, extract and upsert candidates until the cap is reached.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
	"github.com/JakeFAU/product-sitemap-crawler/internal/metrics"
	"github.com/JakeFAU/product-sitemap-crawler/internal/sitemap"
)

const tracerName = "github.com/JakeFAU/product-sitemap-crawler/internal/pipeline"

// State is the phase a run is in.
type State string

// Run phases. Failed is only entered from StateFetchingSitemap.
const (
	StateFetchingSitemap  State = "fetching_sitemap"
	StateClassifyingURLs  State = "classifying_urls"
	StateCrawlingProducts State = "crawling_products"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Config controls a run.
type Config struct {
	SitemapURL     string
	RobotsURL      string
	UserAgent      string
	MaxProducts    int
	SnapshotPrefix string
}

// Summary reports what a run did.
type Summary struct {
	RunID       string        `json:"run_id"`
	State       State         `json:"state"`
	SitemapURLs int           `json:"sitemap_urls"`
	Candidates  int           `json:"candidates"`
	Visited     int           `json:"visited"`
	Stored      int           `json:"stored"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration_ns"`
}

// Orchestrator runs the crawl pipeline. Archive and notifier are optional.
type Orchestrator struct {
	cfg       Config
	fetcher   crawler.Fetcher
	limiter   crawler.Limiter
	extractor crawler.Extractor
	sink      crawler.ProductSink
	archive   crawler.SnapshotStore
	notifier  crawler.Notifier
	hasher    crawler.Hasher
	ids       crawler.IDGenerator
	clock     crawler.Clock
	logger    *zap.Logger
	tracer    trace.Tracer
}

// New constructs an Orchestrator.
func New(
	cfg Config,
	fetcher crawler.Fetcher,
	limiter crawler.Limiter,
	extractor crawler.Extractor,
	sink crawler.ProductSink,
	archive crawler.SnapshotStore,
	notifier crawler.Notifier,
	hasher crawler.Hasher,
	ids crawler.IDGenerator,
	clock crawler.Clock,
	logger *zap.Logger,
) *Orchestrator {
	metrics.Init()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		limiter:   limiter,
		extractor: extractor,
		sink:      sink,
		archive:   archive,
		notifier:  notifier,
		hasher:    hasher,
		ids:       ids,
		clock:     clock,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// Run executes one crawl. It returns an error when the sitemap cannot be read
// or ctx ends; per-URL failures are counted in the Summary instead.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	start := o.clock.Now()
	runID, err := o.ids.NewID()
	if err != nil {
		return Summary{State: StateFailed}, fmt.Errorf("run id: %w", err)
	}
	summary := Summary{RunID: runID}
	logger := o.logger.With(zap.String("run_id", runID))
	ctx, span := o.tracer.Start(ctx, "crawl.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("sitemap_url", o.cfg.SitemapURL),
	))
	defer span.End()
	finish := func(state State) Summary {
		summary.State = state
		summary.Duration = o.clock.Now().Sub(start)
		span.SetAttributes(
			attribute.String("state", string(state)),
			attribute.Int("stored", summary.Stored),
			attribute.Int("failed", summary.Failed),
		)
		if state != StateDone {
			span.SetStatus(codes.Error, string(state))
		}
		return summary
	}

	summary.State = StateFetchingSitemap
	logger.Info("fetching sitemap", zap.String("sitemap_url", o.cfg.SitemapURL))
	robots := o.loadRobots(ctx, logger)
	urls, err := o.loadSitemap(ctx)
	if err != nil {
		logger.Error("sitemap unavailable", zap.String("sitemap_url", o.cfg.SitemapURL), zap.Error(err))
		return finish(StateFailed), err
	}
	summary.SitemapURLs = len(urls)

	summary.State = StateClassifyingURLs
	candidates := crawler.FilterProductURLs(urls)
	summary.Candidates = len(candidates)
	metrics.SetSitemapURLs(len(urls), len(candidates))
	logger.Info("classified sitemap urls",
		zap.Int("sitemap_urls", len(urls)),
		zap.Int("candidates", len(candidates)),
	)
	for _, u := range robots.Disallowed(candidates) {
		logger.Info("robots.txt would disallow candidate", zap.String("url", u))
	}

	summary.State = StateCrawlingProducts
	for _, pageURL := range candidates {
		if summary.Stored >= o.cfg.MaxProducts {
			logger.Info("product cap reached", zap.Int("max_products", o.cfg.MaxProducts))
			break
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return finish(StateCrawlingProducts), fmt.Errorf("crawl interrupted: %w", err)
		}
		summary.Visited++
		outcome := o.process(ctx, runID, pageURL)
		o.record(logger, &summary, outcome)
		if ctx.Err() != nil {
			return finish(StateCrawlingProducts), fmt.Errorf("crawl interrupted: %w", ctx.Err())
		}
	}

	finish(StateDone)
	logger.Info("crawl finished",
		zap.Int("visited", summary.Visited),
		zap.Int("stored", summary.Stored),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (o *Orchestrator) loadRobots(ctx context.Context, logger *zap.Logger) *crawler.RobotsReport {
	if o.cfg.RobotsURL == "" {
		return nil
	}
	resp, err := o.fetcher.Fetch(ctx, crawler.FetchRequest{URL: o.cfg.RobotsURL})
	if err != nil {
		logger.Warn("robots.txt unavailable", zap.String("robots_url", o.cfg.RobotsURL), zap.Error(err))
		return nil
	}
	logger.Info("robots.txt", zap.String("robots_url", o.cfg.RobotsURL), zap.ByteString("body", resp.Body))
	report, err := crawler.ParseRobots(resp.StatusCode, resp.Body, o.cfg.UserAgent)
	if err != nil {
		logger.Warn("robots.txt unparseable", zap.Error(err))
		return nil
	}
	return report
}

func (o *Orchestrator) loadSitemap(ctx context.Context) ([]string, error) {
	resp, err := o.fetcher.Fetch(ctx, crawler.FetchRequest{URL: o.cfg.SitemapURL})
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	urls, err := sitemap.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("read sitemap %s: %w", o.cfg.SitemapURL, err)
	}
	return urls, nil
}

func (o *Orchestrator) process(ctx context.Context, runID, pageURL string) crawler.Outcome {
	ctx, span := o.tracer.Start(ctx, "crawl.product", trace.WithAttributes(attribute.String("url", pageURL)))
	defer span.End()
	outcome := o.crawlProduct(ctx, runID, pageURL)
	span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, "product crawl failed")
	}
	return outcome
}

func (o *Orchestrator) crawlProduct(ctx context.Context, runID, pageURL string) crawler.Outcome {
	resp, err := o.fetcher.Fetch(ctx, crawler.FetchRequest{URL: pageURL, Promotable: true})
	if err != nil {
		return crawler.Failed(pageURL, fmt.Errorf("fetch: %w", err))
	}
	product, err := o.extractor.Extract(pageURL, resp.Body)
	if err != nil {
		var notProduct *crawler.NotProductError
		switch {
		case errors.As(err, &notProduct):
			return crawler.Skipped(pageURL, notProduct.Reason)
		case errors.Is(err, crawler.ErrNotProduct):
			return crawler.Skipped(pageURL, err.Error())
		default:
			return crawler.Failed(pageURL, fmt.Errorf("extract: %w", err))
		}
	}
	if err := o.sink.Upsert(ctx, product); err != nil {
		return crawler.Failed(pageURL, fmt.Errorf("upsert: %w", err))
	}
	o.afterUpsert(ctx, runID, product, resp.Body)
	return crawler.Stored(product)
}

// afterUpsert archives the page and announces the write. Failures are logged
// and do not change the outcome.
func (o *Orchestrator) afterUpsert(ctx context.Context, runID string, product crawler.Product, body []byte) {
	logger := o.logger.With(zap.String("run_id", runID), zap.String("url", product.URL))

	var snapshotURI string
	if o.archive != nil {
		uri, err := o.archive.SaveSnapshot(ctx, o.snapshotKey(product.URL), body)
		if err != nil {
			logger.Warn("snapshot archive failed", zap.Error(err))
		} else {
			snapshotURI = uri
		}
	}

	if o.notifier == nil {
		return
	}
	event := crawler.UpsertEvent{
		RunID:     runID,
		URL:       product.URL,
		Title:     product.Title,
		Price:     product.CurrentPrice,
		Snapshot:  snapshotURI,
		Timestamp: o.clock.Now(),
	}
	if _, err := o.notifier.PublishUpsert(ctx, event); err != nil {
		logger.Warn("upsert notification failed", zap.Error(err))
	}
}

func (o *Orchestrator) snapshotKey(pageURL string) string {
	name := o.hasher.Hash([]byte(pageURL)) + ".html"
	prefix := strings.Trim(o.cfg.SnapshotPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func (o *Orchestrator) record(logger *zap.Logger, summary *Summary, outcome crawler.Outcome) {
	metrics.ObserveProduct(outcome.URL, string(outcome.Kind))
	switch outcome.Kind {
	case crawler.OutcomeStored:
		summary.Stored++
		p := outcome.Product
		logger.Info("product stored",
			zap.String("url", p.URL),
			zap.String("title", p.Title),
			zap.String("current_price", p.CurrentPrice),
			zap.String("original_price", p.OriginalPrice),
			zap.Any("description", p.Description),
		)
	case crawler.OutcomeSkipped:
		summary.Skipped++
		logger.Info("not a product page", zap.String("url", outcome.URL), zap.String("reason", outcome.Reason))
	case crawler.OutcomeFailed:
		summary.Failed++
		logger.Error("product crawl failed", zap.String("url", outcome.URL), zap.Error(outcome.Err))
	}
}
