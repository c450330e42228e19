package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/townwire/townwire/internal/advisory"
	"github.com/townwire/townwire/internal/alert"
	"github.com/townwire/townwire/internal/api"
	"github.com/townwire/townwire/internal/archive"
	"github.com/townwire/townwire/internal/campaign"
	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/curation"
	"github.com/townwire/townwire/internal/database"
	"github.com/townwire/townwire/internal/events"
	"github.com/townwire/townwire/internal/ingestion"
	"github.com/townwire/townwire/internal/logging"
	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/oracle"
	"github.com/townwire/townwire/internal/rehost"
	"github.com/townwire/townwire/internal/rotation"
	"github.com/townwire/townwire/internal/scheduler"
	"github.com/townwire/townwire/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fallback().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		logging.Fallback().Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting townwire pipeline")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("connecting to database")
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	sources, err := config.LoadSources(cfg.Sources.Path)
	if err != nil {
		logger.Error("failed to load sources", "path", cfg.Sources.Path, "error", err)
		os.Exit(1)
	}
	logger.Info("sources loaded", "count", len(sources))

	collector, err := metrics.NewPipelineCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	oracleClient, err := oracle.NewClient(cfg.Oracle, logger)
	if err != nil {
		logger.Error("failed to init oracle", "error", err)
		os.Exit(1)
	}
	oracleClient.SetRecorder(database.NewOracleCallRepository(db, logger))

	// Repositories.
	campaignRepo := database.NewCampaignRepository(db)
	itemRepo := database.NewItemRepository(db)
	articleRepo := database.NewArticleRepository(db)
	eventRepo := database.NewEventRepository(db)
	advisoryRepo := database.NewAdvisoryRepository(db)
	archiveRepo := database.NewArchiveRepository(db)
	jobRunRepo := database.NewJobRunRepository(db)
	sourceErrorRepo := database.NewSourceErrorRepository(db)
	rotationRepo := database.NewRotationRepository(db)

	// Image rehosting is optional: without a bucket, original URLs are kept.
	var rehoster *rehost.Rehoster
	if cfg.Rehost.Bucket != "" {
		store, err := rehost.NewS3Store(cfg.Rehost)
		if err != nil {
			logger.Error("failed to init object store", "error", err)
			os.Exit(1)
		}
		rehoster = rehost.NewRehoster(store, cfg.Rehost, logger, collector)
	} else {
		logger.Warn("no image bucket configured, images will not be rehosted")
	}

	var alerts alert.Sink = alert.NoopSink{}
	if cfg.Alert.SlackWebhookURL != "" {
		alerts = alert.NewSlackSink(cfg.Alert.SlackWebhookURL, logger)
	}

	var ingestRehoster ingestion.ImageRehoster
	var listingRehoster events.ListingRehoster
	if rehoster != nil {
		ingestRehoster = rehoster
		listingRehoster = rehoster
	}

	adapter := ingestion.NewAdapter(itemRepo, sourceErrorRepo, ingestRehoster, cfg.Rehost.EphemeralHosts, logger, collector)
	evaluator := curation.NewEvaluator(oracleClient, itemRepo, cfg.Curation, logger, collector)
	dedup := curation.NewDeduplicator(oracleClient, logger, collector)
	producer := curation.NewProducer(
		curation.NewRewriter(oracleClient, cfg.Curation, logger, collector),
		curation.NewFactChecker(oracleClient, logger, collector),
		articleRepo, cfg.Curation, logger, collector,
	)
	selector := curation.NewSelector(articleRepo, campaignRepo, oracleClient, cfg.Curation, logger, collector)

	orchestrator := campaign.NewOrchestrator(campaign.Deps{
		Campaigns:  campaignRepo,
		Items:      itemRepo,
		Articles:   articleRepo,
		Adapter:    adapter,
		Evaluator:  evaluator,
		Dedup:      dedup,
		Producer:   producer,
		Selector:   selector,
		Rehoster:   ingestRehoster,
		Events:     events.NewPopulator(eventRepo, cfg.Events, logger),
		Spotlight:  events.NewSpotlight(eventRepo, rotation.NewSelector(rotationRepo, logger), campaignRepo, listingRehoster, logger),
		Advisories: advisory.NewPopulator(oracleClient, advisoryRepo, logger, collector),
		Archiver:   archive.NewArchiver(itemRepo, articleRepo, archiveRepo, logger),
		Alerts:     alerts,
		Metrics:    collector,
	}, sources, cfg.Curation, cfg.Scheduler.Location(), logger)

	daily := scheduler.New(jobRunRepo, cfg.Scheduler, logger)
	daily.Register(scheduler.Job{Name: "daily-curation", Run: orchestrator.Run})
	go daily.Start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context(), db); err != nil {
			http.Error(w, `{"status":"degraded"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", collector.Handler())

	apiHandler := api.NewHandler(campaignRepo, articleRepo, eventRepo, advisoryRepo, cfg.Scheduler.Location(), logger)
	runHandler := api.NewRunHandler(orchestrator.Run, logger)
	api.SetupRoutes(mux, apiHandler, runHandler, cfg.Auth, logger)

	srv := server.New(cfg.Server, logger, mux)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http listener error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("townwire pipeline started")
	waitForSignal(logger)

	logger.Info("shutting down")
	daily.Stop()
	cancel()

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
