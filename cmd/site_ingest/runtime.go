package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jonathan/site-ingest/internal/chunking"
	"github.com/jonathan/site-ingest/internal/config"
	"github.com/jonathan/site-ingest/internal/crawling"
	"github.com/jonathan/site-ingest/internal/db"
	"github.com/jonathan/site-ingest/internal/embedding"
	"github.com/jonathan/site-ingest/internal/fetch"
	"github.com/jonathan/site-ingest/internal/ingestion"
	"github.com/jonathan/site-ingest/internal/pipeline"
	"github.com/jonathan/site-ingest/internal/ratelimit"
	"github.com/jonathan/site-ingest/internal/robots"
	"github.com/jonathan/site-ingest/internal/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// runtime holds the per-job collaborators. One limiter and one robots
// cache are shared by every fetch of the job.
type runtime struct {
	cfg        *config.Config
	logger     logrus.FieldLogger
	limiter    *ratelimit.Limiter
	client     *fetch.Client
	robots     *robots.Cache
	discoverer *crawling.Discoverer
}

func newRuntime(cfg *config.Config, logger logrus.FieldLogger) *runtime {
	limiter := ratelimit.NewLimiter(cfg.RateLimit)
	client := fetch.NewClient(limiter, &fetch.Options{Timeout: cfg.Timeout(), UserAgent: cfg.UserAgent})
	robotsCache := robots.NewCache(client, cfg.UserAgent, logger)

	discoverer := crawling.NewDiscoverer(
		crawling.NewSitemapResolver(client, cfg.SitemapMaxDepth, logger),
		crawling.NewFrontierCrawler(client, robotsCache, logger),
		logger,
	)
	discoverer.Limit = cfg.URLLimit()

	return &runtime{
		cfg:        cfg,
		logger:     logger,
		limiter:    limiter,
		client:     client,
		robots:     robotsCache,
		discoverer: discoverer,
	}
}

func (rt *runtime) scraper() *ingestion.Scraper {
	sc := ingestion.ScraperConfig{MinContentLength: rt.cfg.MinContentLength, Logger: rt.logger}
	if rt.cfg.UseBrowser {
		sc.Renderer = fetch.NewChromeRenderer(rt.limiter, rt.cfg.Timeout(), rt.cfg.UserAgent)
	}
	return ingestion.NewScraper(rt.client, sc)
}

func (rt *runtime) chunker() *chunking.Chunker {
	return chunking.NewChunker(chunking.Config{ChunkSize: rt.cfg.ChunkSize, Overlap: rt.cfg.ChunkOverlap})
}

// pipeline builds a Pipeline persisting through be.
func (rt *runtime) pipeline(be *backend, onProgress pipeline.ProgressCallback) *pipeline.Pipeline {
	deps := pipeline.Deps{
		Discoverer: rt.discoverer,
		Robots:     rt.robots,
		Scraper:    rt.scraper(),
		Chunker:    rt.chunker(),
		Store:      be.store,
		Ledger:     be.ledger,
		Progress:   be.progress,
		Logger:     rt.logger,
	}
	if rt.cfg.EmbeddingURL != "" {
		deps.Embedder = embedding.NewClient(embedding.Config{
			BaseURL:     rt.cfg.EmbeddingURL,
			APIKey:      rt.cfg.EmbeddingAPIKey,
			Model:       rt.cfg.EmbeddingModel,
			Dimension:   rt.cfg.EmbeddingDimension,
			Concurrency: rt.cfg.EmbeddingConcurrency,
			Timeout:     rt.cfg.Timeout(),
		}, rt.logger)
	}
	return pipeline.New(deps, pipeline.Options{
		MaxPages:       rt.cfg.MaxPages,
		EmbedWithTitle: rt.cfg.EmbedWithTitle,
		OnProgress:     onProgress,
	})
}

// siteRegistry creates or finds the Site row of a base URL.
type siteRegistry interface {
	UpsertSite(ctx context.Context, baseURL, name, description string) (*types.Site, error)
}

// backend is the persistence strategy of a command: Postgres or a
// directory of JSON files.
type backend struct {
	sites    siteRegistry
	store    pipeline.PageStore
	ledger   pipeline.FailureLedger
	progress pipeline.ProgressReporter
	db       *db.DB
	files    *pipeline.FileStore
}

// openBackend prefers the file store when outDir is set, otherwise connects
// to cfg.DatabaseURL and applies the schema.
func openBackend(ctx context.Context, cfg *config.Config, outDir string, logger logrus.FieldLogger) (*backend, error) {
	if outDir != "" {
		files, err := pipeline.OpenFileStore(outDir)
		if err != nil {
			return nil, err
		}
		return &backend{
			sites:    files,
			store:    files,
			ledger:   files,
			progress: pipeline.LogReporter{Logger: logger},
			files:    files,
		}, nil
	}

	database, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, cfg.EmbeddingDimension); err != nil {
		database.Close()
		return nil, err
	}
	return &backend{
		sites:    database,
		store:    database,
		ledger:   database,
		progress: database,
		db:       database,
	}, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("no storage configured: pass --out DIR or set DATABASE_URL")
	}
	return db.Connect(ctx, cfg.DatabaseURL)
}

// startJob registers a pending job with the job-status store, if any.
func (be *backend) startJob(ctx context.Context, job pipeline.Job) error {
	if be.db == nil {
		return nil
	}
	return be.db.CreateJob(ctx, job.ID, job.Site.ID)
}

// close flushes the file store or closes the database pool.
func (be *backend) close() error {
	if be.files != nil {
		return be.files.Flush()
	}
	if be.db != nil {
		be.db.Close()
	}
	return nil
}

// parseBaseURL checks that raw is an absolute http(s) URL and returns its
// normalized form.
func parseBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: expected an absolute http(s) URL", raw)
	}
	return ingestion.NormalizeURL(raw), nil
}

// serveMetrics exposes Prometheus metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, logger logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
