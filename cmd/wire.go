package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/assemble"
	"github.com/JakeFAU/recipe-harvester/internal/config"
	"github.com/JakeFAU/recipe-harvester/internal/extract"
	"github.com/JakeFAU/recipe-harvester/internal/fetcher"
	collyfetcher "github.com/JakeFAU/recipe-harvester/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/recipe-harvester/internal/fetcher/headless"
	"github.com/JakeFAU/recipe-harvester/internal/headless/detector"
	"github.com/JakeFAU/recipe-harvester/internal/imageurl"
	"github.com/JakeFAU/recipe-harvester/internal/logging"
	"github.com/JakeFAU/recipe-harvester/internal/metrics"
	"github.com/JakeFAU/recipe-harvester/internal/pipeline"
	"github.com/JakeFAU/recipe-harvester/internal/policy/hosts"
	"github.com/JakeFAU/recipe-harvester/internal/policy/ratelimit"
	"github.com/JakeFAU/recipe-harvester/internal/publisher"
	gcppublisher "github.com/JakeFAU/recipe-harvester/internal/publisher/pubsub"
	"github.com/JakeFAU/recipe-harvester/internal/server"
	"github.com/JakeFAU/recipe-harvester/internal/storage"
	"github.com/JakeFAU/recipe-harvester/internal/storage/gcs"
	"github.com/JakeFAU/recipe-harvester/internal/storage/local"
	"github.com/JakeFAU/recipe-harvester/internal/storage/memory"
	"github.com/JakeFAU/recipe-harvester/internal/storage/postgres"
	"github.com/JakeFAU/recipe-harvester/internal/store/csvstore"
	"github.com/JakeFAU/recipe-harvester/internal/telemetry"
)

// closers runs cleanup functions in reverse order of registration.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func openStore(cfg config.Config, logger *zap.Logger) (*csvstore.Store, error) {
	st, err := csvstore.New(cfg.Store, csvstore.WithLogger(logger.Named("store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// buildFetcher stacks the transport decorators: each attempt waits for the rate limiter,
// is counted, and failed attempts are retried with linear backoff. Off-site URLs are refused
// before any of that happens.
func buildFetcher(cfg config.FetchConfig, logger *zap.Logger, done *closers) (fetcher.Fetcher, error) {
	var base fetcher.Fetcher
	switch cfg.Mode {
	case config.FetchModeHeadless:
		f, err := newHeadless(cfg, done)
		if err != nil {
			return nil, err
		}
		base = f
	case config.FetchModeAuto:
		rendered, err := newHeadless(cfg, done)
		if err != nil {
			return nil, err
		}
		heuristic := detector.NewHeuristic(cfg.PromotionThreshold)
		base = fetcher.NewPromoting(newColly(cfg), rendered, heuristic.ShouldPromote,
			metrics.ObservePromotion, logger.Named("promote"))
	default:
		base = newColly(cfg)
	}

	observed := fetcher.NewObserved(base, func(url string, size int, err error) {
		metrics.ObserveFetch(url, fetchStatus(err), size)
	})
	limiter := ratelimit.New(cfg.Rate, metrics.ObserveRateLimitDelay)
	limited := fetcher.NewRateLimited(observed, limiter)
	retrying := fetcher.NewRetrying(limited, cfg.Retry, logger.Named("fetch"),
		fetcher.WithRetryHook(func(url string, _ int, _ error) {
			metrics.ObserveRetry(url)
		}),
	)
	return fetcher.NewAdmitted(retrying, hosts.New(cfg.AllowedHosts...), metrics.ObserveRejected), nil
}

func newColly(cfg config.FetchConfig) *collyfetcher.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.UserAgent,
		RespectRobots: cfg.RespectRobots,
		Timeout:       cfg.Timeout,
		Headers:       cfg.Headers,
	})
}

func newHeadless(cfg config.FetchConfig, done *closers) (*headlessfetcher.Fetcher, error) {
	f, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		UserAgent:         cfg.UserAgent,
		NavigationTimeout: cfg.Timeout,
		WaitSelector:      cfg.WaitSelector,
		WaitTimeout:       cfg.WaitTimeout,
		Headers:           cfg.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	done.add(f.Close)
	return f, nil
}

func fetchStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var se *fetcher.StatusError
	if errors.As(err, &se) {
		return strconv.Itoa(se.Code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

func buildMirrors(ctx context.Context, cfg config.Config, logger *zap.Logger, done *closers) ([]pipeline.Mirror, error) {
	var mirrors []pipeline.Mirror
	if cfg.DB.DSN != "" {
		pg, err := postgres.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("init postgres mirror: %w", err)
		}
		done.add(pg.Close)
		mirrors = append(mirrors, pg)
		logger.Info("postgres mirror enabled", zap.String("table", cfg.DB.Table))
	}
	if cfg.PubSub.TopicID != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		done.add(func() { _ = client.Close() })
		pub := gcppublisher.New(client.Topic(cfg.PubSub.TopicID))
		done.add(pub.Stop)
		mirror, err := publisher.NewMirror("pubsub", pub)
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, mirror)
		logger.Info("pubsub mirror enabled", zap.String("topic", cfg.PubSub.TopicID))
	}
	return mirrors, nil
}

func buildArchiver(ctx context.Context, cfg config.Config, done *closers) (pipeline.Archiver, error) {
	var blobs storage.BlobStore
	switch cfg.Archive.Backend {
	case config.ArchiveNone, "":
		return nil, nil
	case config.ArchiveMemory:
		blobs = memory.NewBlobStore()
	case config.ArchiveLocal:
		store, err := local.New(local.Config{Dir: cfg.Archive.Dir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		blobs = store
	case config.ArchiveGCS:
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		done.add(func() { _ = client.Close() })
		store, err := gcs.New(client, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		blobs = store
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
	archiver, err := storage.NewArchiver(blobs, cfg.Archive.Prefix)
	if err != nil {
		return nil, err
	}
	return archiver, nil
}

// buildDriver wires the pipeline for one run. The returned closers must be closed when the
// run ends.
func buildDriver(ctx context.Context, rt *runtime, tracker *server.Tracker) (*pipeline.Driver, closers, error) {
	cfg, logger := rt.cfg, rt.logger
	var done closers

	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	fetch, err := buildFetcher(cfg.Fetch, logger, &done)
	if err != nil {
		done.close()
		return nil, nil, err
	}
	mirrors, err := buildMirrors(ctx, cfg, logger, &done)
	if err != nil {
		done.close()
		return nil, nil, err
	}
	archiver, err := buildArchiver(ctx, cfg, &done)
	if err != nil {
		done.close()
		return nil, nil, err
	}

	normalizer := imageurl.New(cfg.Image)
	resolver := extract.NewResolver(cfg.Selectors, logger.Named("extract"))
	assembler := assemble.New(resolver, normalizer, cfg.Assemble, logger.Named("assemble"))

	observers := pipeline.Observers{
		pipeline.NewLogObserver(logger.Named("pipeline")),
		pipeline.NewMetricsObserver(),
	}
	if tracker != nil {
		observers = append(observers, tracker)
	}

	driver, err := pipeline.New(pipeline.Config{
		BaseOrigin:     cfg.Site.BaseOrigin,
		DefaultDietary: cfg.Assemble.DefaultDietary,
		Selectors:      cfg.Selectors,
	}, pipeline.Deps{
		Fetcher:   fetch,
		Store:     st,
		Assembler: assembler,
		Mirrors:   mirrors,
		Archiver:  archiver,
		Observer:  observers,
		Logger:    logger.Named("pipeline"),
	})
	if err != nil {
		done.close()
		return nil, nil, fmt.Errorf("init pipeline: %w", err)
	}
	return driver, done, nil
}

// startServer serves the operational endpoints until the returned stop function is called.
// It is a no-op when no address is configured.
func startServer(ctx context.Context, rt *runtime, tracker *server.Tracker) func() {
	if rt.cfg.Metrics.Addr == "" {
		return func() {}
	}
	storeDir := filepath.Dir(rt.cfg.Store.Path)
	ready := func(context.Context) error {
		info, err := os.Stat(storeDir)
		if err != nil {
			return fmt.Errorf("store directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store directory %s is not a directory", storeDir)
		}
		return nil
	}
	srv := server.New(tracker, ready, rt.logger.Named("server"))

	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := srv.Serve(ctx, rt.cfg.Metrics.Addr); err != nil {
			rt.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		select {
		case <-stopped:
		case <-time.After(10 * time.Second):
			rt.logger.Warn("metrics server did not stop in time")
		}
	}
}

// startTracing installs the span-logging tracer provider when logging.tracing is set.
func startTracing(ctx context.Context, rt *runtime) (func(), error) {
	if !rt.cfg.Logging.Tracing {
		return func() {}, nil
	}
	tp, err := telemetry.InitTracerProvider(ctx, logging.Name, rt.logger.Named("trace"))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			rt.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}, nil
}

// withDriver builds a driver, runs fn with it and releases everything afterwards.
func withDriver(ctx context.Context, rt *runtime, fn func(context.Context, *pipeline.Driver) error) error {
	stopTracing, err := startTracing(ctx, rt)
	if err != nil {
		return err
	}
	defer stopTracing()

	tracker := server.NewTracker()
	stopServer := startServer(ctx, rt, tracker)
	defer stopServer()

	driver, done, err := buildDriver(ctx, rt, tracker)
	if err != nil {
		return err
	}
	defer done.close()
	return fn(ctx, driver)
}
