// Package app builds the crawler's dependencies from configuration and owns
// their lifetime.
package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-sitemap-crawler/internal/api"
	"github.com/JakeFAU/product-sitemap-crawler/internal/clock/system"
	"github.com/JakeFAU/product-sitemap-crawler/internal/config"
	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
	"github.com/JakeFAU/product-sitemap-crawler/internal/extract"
	autofetcher "github.com/JakeFAU/product-sitemap-crawler/internal/fetcher/auto"
	collyfetcher "github.com/JakeFAU/product-sitemap-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/product-sitemap-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/product-sitemap-crawler/internal/hash/sha256"
	"github.com/JakeFAU/product-sitemap-crawler/internal/headless/detector"
	"github.com/JakeFAU/product-sitemap-crawler/internal/id/uuid"
	"github.com/JakeFAU/product-sitemap-crawler/internal/pipeline"
	"github.com/JakeFAU/product-sitemap-crawler/internal/policy/ratelimit"
	gcppublisher "github.com/JakeFAU/product-sitemap-crawler/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/product-sitemap-crawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/product-sitemap-crawler/internal/storage/local"
	memorystorage "github.com/JakeFAU/product-sitemap-crawler/internal/storage/memory"
	mongostore "github.com/JakeFAU/product-sitemap-crawler/internal/storage/mongo"
	pgstore "github.com/JakeFAU/product-sitemap-crawler/internal/storage/postgres"
	redisstore "github.com/JakeFAU/product-sitemap-crawler/internal/storage/redis"
	"github.com/JakeFAU/product-sitemap-crawler/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

// App holds the long-lived services of one crawler process.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	store        crawler.ProductStore
	orchestrator *pipeline.Orchestrator
	metricsSrv   *api.Server
	headless     *headlessfetcher.Fetcher
	gcsClient    *storage.Client
	pubsubClient *pubsub.Client
	topic        *pubsub.Topic
	tracer       *sdktrace.TracerProvider
}

// Build opens the configured store and wires the pipeline. Anything opened
// before a failure is released before Build returns.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building crawler",
		zap.String("target_site", cfg.Crawler.TargetSite),
		zap.Int("max_products", cfg.Crawler.MaxProducts),
		zap.Float64("requests_per_second", cfg.Crawler.RequestsPerSecond),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("fetcher_backend", cfg.Fetcher.Backend),
	)

	var err error
	fail := func(err error) (*App, error) {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		app.Close(closeCtx)
		return nil, err
	}

	if cfg.Tracing.Enabled {
		app.tracer, err = tracing.Init(ctx, tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			ProjectID:   cfg.Tracing.ProjectID,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return fail(fmt.Errorf("tracing init failed: %w", err))
		}
		logger.Info("tracing enabled", zap.String("project", cfg.Tracing.ProjectID))
	}
	if app.store, err = setupStore(ctx, app); err != nil {
		return fail(err)
	}
	archive, err := setupArchive(ctx, app)
	if err != nil {
		return fail(err)
	}
	notifier, err := setupNotifier(ctx, app)
	if err != nil {
		return fail(err)
	}
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
		Burst:             cfg.Crawler.Burst,
	})
	fetcher := setupFetcher(app, limiter)

	app.orchestrator = pipeline.New(
		pipeline.Config{
			SitemapURL:     cfg.SitemapURL(),
			RobotsURL:      cfg.RobotsURL(),
			UserAgent:      cfg.Crawler.UserAgent,
			MaxProducts:    cfg.Crawler.MaxProducts,
			SnapshotPrefix: cfg.Archive.Prefix,
		},
		fetcher,
		limiter,
		extract.New(cfg.Extract),
		app.store,
		archive,
		notifier,
		sha256.New(),
		uuid.New(),
		system.New(),
		logger.Named("pipeline"),
	)

	if cfg.Metrics.ListenAddr != "" {
		app.metricsSrv = api.NewServer(logger.Named("api"))
	}
	return app, nil
}

// Store returns the product store the run writes to.
func (a *App) Store() crawler.ProductStore {
	return a.store
}

// Run executes one crawl. SIGINT and SIGTERM cancel it.
func (a *App) Run(ctx context.Context) (pipeline.Summary, error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.metricsSrv != nil {
		if err := a.metricsSrv.Start(a.cfg.Metrics.ListenAddr); err != nil {
			return pipeline.Summary{}, fmt.Errorf("metrics server: %w", err)
		}
	}
	summary, err := a.orchestrator.Run(ctx)
	if err != nil {
		return summary, fmt.Errorf("crawl %s: %w", a.cfg.Crawler.TargetSite, err)
	}
	return summary, nil
}

// Close releases every resource Build opened. It is safe to call on a
// partially built App.
func (a *App) Close(ctx context.Context) {
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.topic != nil {
		a.topic.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.logger.Warn("product store close failed", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	a.logger.Debug("resources released")
}

func setupStore(ctx context.Context, app *App) (crawler.ProductStore, error) {
	cfg := app.cfg.Storage
	switch cfg.Backend {
	case "mongo":
		store, err := mongostore.NewProductStore(ctx, mongostore.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("mongo store init failed: %w", err)
		}
		app.logger.Info("using mongo product store",
			zap.String("database", cfg.Mongo.Database),
			zap.String("collection", cfg.Mongo.Collection),
		)
		return store, nil
	case "postgres":
		store, err := pgstore.NewProductStore(ctx, pgstore.Config{
			DSN:      cfg.Postgres.DSN,
			Table:    cfg.Postgres.Table,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store init failed: %w", err)
		}
		app.logger.Info("using postgres product store", zap.String("table", cfg.Postgres.Table))
		return store, nil
	case "redis":
		store, err := redisstore.NewProductStore(ctx, redisstore.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("redis store init failed: %w", err)
		}
		app.logger.Info("using redis product store", zap.String("addr", cfg.Redis.Addr))
		return store, nil
	default:
		app.logger.Info("using in-memory product store")
		return memorystorage.NewProductStore(), nil
	}
}

// setupArchive returns a nil interface when archiving is off so the pipeline
// skips it.
func setupArchive(ctx context.Context, app *App) (crawler.SnapshotStore, error) {
	cfg := app.cfg.Archive
	switch cfg.Backend {
	case "gcs":
		var err error
		app.gcsClient, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		store, err := gcsstorage.New(app.gcsClient, gcsstorage.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs snapshot store init failed: %w", err)
		}
		app.logger.Info("archiving snapshots to gcs", zap.String("bucket", cfg.Bucket))
		return store, nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local snapshot store init failed: %w", err)
		}
		app.logger.Info("archiving snapshots locally", zap.String("path", cfg.BaseDir))
		return store, nil
	case "memory":
		app.logger.Info("archiving snapshots in memory")
		return memorystorage.NewSnapshotStore(), nil
	default:
		return nil, nil
	}
}

func setupNotifier(ctx context.Context, app *App) (crawler.Notifier, error) {
	cfg := app.cfg.PubSub
	if !cfg.Enabled() {
		app.logger.Debug("no Pub/Sub topic configured, upsert notifications disabled")
		return nil, nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.topic = app.pubsubClient.Topic(cfg.TopicName)
	app.logger.Info("Pub/Sub notifier initialized",
		zap.String("project", cfg.ProjectID),
		zap.String("topic", cfg.TopicName),
	)
	return gcppublisher.New(app.topic), nil
}

// setupFetcher builds the configured backend. The auto backend waits on
// limiter before each headless promotion.
func setupFetcher(app *App, limiter crawler.Limiter) crawler.Fetcher {
	probe := collyfetcher.New(collyfetcher.Config{
		UserAgent:    app.cfg.Crawler.UserAgent,
		Timeout:      app.cfg.HTTPTimeout(),
		MaxBodyBytes: app.cfg.HTTP.MaxBodyBytes,
	})
	switch app.cfg.Fetcher.Backend {
	case "chromedp":
		app.logger.Info("using headless chromedp fetcher")
		return newHeadless(app)
	case "auto":
		app.logger.Info("using colly probe with headless promotion",
			zap.Int("promote_min_bytes", app.cfg.Headless.PromoteMinBytes),
		)
		required := app.cfg.Extract.Title
		if required == "" {
			required = extract.DefaultSelectors().Title
		}
		heuristic := detector.NewHeuristic(app.cfg.Headless.PromoteMinBytes, required)
		return autofetcher.New(probe, newHeadless(app), heuristic, limiter, app.logger)
	default:
		return probe
	}
}

func newHeadless(app *App) *headlessfetcher.Fetcher {
	app.headless = headlessfetcher.NewChromedp(headlessfetcher.Config{
		UserAgent:         app.cfg.Crawler.UserAgent,
		NavigationTimeout: app.cfg.NavigationTimeout(),
	})
	return app.headless
}
