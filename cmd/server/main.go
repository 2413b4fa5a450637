package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/titlevet/titlevet-go/internal/api"
	"github.com/titlevet/titlevet-go/internal/api/handlers"
	"github.com/titlevet/titlevet-go/internal/browser"
	"github.com/titlevet/titlevet-go/internal/config"
	"github.com/titlevet/titlevet-go/internal/middleware"
	"github.com/titlevet/titlevet-go/internal/queue"
	"github.com/titlevet/titlevet-go/internal/repository"
	"github.com/titlevet/titlevet-go/internal/risk"
	"github.com/titlevet/titlevet-go/internal/service"
	"github.com/titlevet/titlevet-go/internal/social"
	"github.com/titlevet/titlevet-go/internal/store"
	"github.com/titlevet/titlevet-go/internal/vetting"
	"github.com/titlevet/titlevet-go/internal/watcher"
	"github.com/titlevet/titlevet-go/internal/website"
	"github.com/titlevet/titlevet-go/internal/whois"
	"github.com/titlevet/titlevet-go/internal/worker"
)

var (
	Version   = "1.2.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	fmt.Printf("TitleVet - Domain Vetting Service\n")
	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n\n", GitCommit)

	configPath := "./configs/config.yaml"
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		configPath = os.Args[2]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := config.InitLogger(&cfg.Log)
	logger.Infof("Starting TitleVet %s", Version)
	logger.Infof("Config loaded from: %s", configPath)

	// Database
	db, err := repository.InitDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to init database: %v", err)
	}
	logger.Info("Database connected successfully")

	jobRepo := repository.NewJobRepository(db, logger)
	reportRepo := repository.NewReportRepository(db, logger)

	if err := cleanupStuckJobs(jobRepo, logger); err != nil {
		logger.WithError(err).Warn("Failed to cleanup stuck jobs")
	}

	// Risk engine. An invalid rules document is a fatal startup error;
	// invalid documents at runtime are rejected by the watcher instead.
	riskCfg, err := risk.LoadConfig(cfg.Risk.ConfigPath)
	if err != nil {
		logger.Fatalf("Failed to load risk config: %v", err)
	}
	riskEngine := risk.NewEngine(riskCfg, logger)
	logger.Infof("Risk engine initialized with config version %s", riskCfg.Version)

	if cfg.Risk.Watch {
		configWatcher, err := watcher.NewConfigWatcher(cfg.Risk.ConfigPath, riskEngine, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to create risk config watcher, hot reload disabled")
		} else {
			configWatcher.Start(context.Background())
			defer configWatcher.Stop()
		}
	}

	// Observability
	memMonitor := middleware.NewMemoryMonitor(logger, 30*time.Second)
	memMonitor.Start()
	defer memMonitor.Stop()

	promMetrics := middleware.NewPrometheusMetrics(logger, "titlevet")

	// Evidence collectors
	resolver := whois.NewResolver(cfg.Whois.WhoisTimeout(), logger)
	resolver.SetMetrics(promMetrics)

	validator := website.NewValidator(website.Options{
		Timeout:            cfg.Website.FetchTimeout(),
		FollowContactPages: cfg.Website.FollowContactPages,
		MaxContactPages:    cfg.Website.MaxContactPages,
	}, logger)

	var crawler *social.Crawler
	if cfg.Social.Enabled {
		launcher := browser.NewChromeLauncher(cfg.Browser.Headless, cfg.Browser.ExecPath, logger)
		prober := social.NewHeadProber(cfg.Social.NavigationTimeout())
		crawler = social.NewCrawler(launcher, prober, social.Options{
			SearchURL:     cfg.Social.SearchURL,
			NavTimeout:    cfg.Social.NavigationTimeout(),
			MaxCandidates: cfg.Social.MaxCandidates,
			ScreenshotDir: cfg.Social.ScreenshotDir,
		}, logger)
		crawler.SetMetrics(promMetrics)
		logger.Info("Social presence crawler initialized")
	} else {
		logger.Info("Social presence crawling disabled")
	}

	// Stores
	cache := store.NewCache(time.Duration(cfg.Cache.TTL)*time.Second, cfg.Cache.MaxEntries, logger)
	limiter := store.NewRateLimiter(time.Duration(cfg.RateLimit.Window)*time.Second, cfg.RateLimit.MaxRequests)

	// Progress stream for long-running vets
	progress := handlers.NewProgressHandler(logger)
	progress.Start()
	defer progress.Stop()

	// Pipeline
	orchestrator := vetting.NewOrchestrator(vetting.Deps{
		Resolver:      resolver,
		Site:          validator,
		Crawler:       crawler,
		Engine:        riskEngine,
		Cache:         cache,
		Limiter:       limiter,
		Broadcaster:   progress,
		Metrics:       promMetrics,
		Logger:        logger,
		SocialEnabled: cfg.Social.Enabled,
	})

	// Message queue (optional)
	var mq *queue.RabbitMQ
	var producer *queue.Producer
	if cfg.RabbitMQ.Enabled {
		mq, err = queue.NewRabbitMQWithPrefetch(&queue.RabbitMQConfig{
			Host:     cfg.RabbitMQ.Host,
			Port:     cfg.RabbitMQ.Port,
			User:     cfg.RabbitMQ.User,
			Password: cfg.RabbitMQ.Password,
			VHost:    cfg.RabbitMQ.VHost,
		}, cfg.RabbitMQ.Queue, cfg.Worker.Concurrency, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer mq.Close()
		mq.StartConnectionWatcher()
		producer = queue.NewProducer(mq, logger)
		logger.Infof("RabbitMQ connected, queue: %s", cfg.RabbitMQ.Queue)

		if err := republishQueuedJobs(mq, producer, jobRepo, logger); err != nil {
			logger.WithError(err).Error("Failed to republish queued jobs")
		}
	} else {
		logger.Info("RabbitMQ disabled, async vetting unavailable")
	}

	// Service and worker pool reference each other: the pool's executor is
	// the service, the service submits through the pool.
	vetService := service.NewVetService(orchestrator, nil, jobRepo, reportRepo, producer, logger)
	pool := worker.NewPool(cfg.Worker.Concurrency, cfg.Worker.QueueSize, vetService.Execute, logger)
	vetService.SetPool(pool)
	pool.Start(context.Background())
	defer pool.Stop()
	logger.Infof("Worker pool started with %d workers", cfg.Worker.Concurrency)

	if mq != nil {
		consumer := queue.NewConsumer(mq, vetService.HandleJobMessage, cfg.Worker.Concurrency, logger)
		if err := consumer.Start(context.Background()); err != nil {
			logger.Fatalf("Failed to start consumer: %v", err)
		}
		defer consumer.Stop()
		logger.Infof("Job consumer started with %d workers", cfg.Worker.Concurrency)
	}

	// Metrics refresher
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			promMetrics.UpdateMemoryStats(memMonitor.GetStats())

			if sqlDB, err := db.DB(); err == nil {
				stats := sqlDB.Stats()
				promMetrics.UpdateDBStats(stats.OpenConnections, stats.Idle, stats.InUse)
			}

			size, active, queued := pool.Stats()
			promMetrics.UpdateWorkerPoolStats(size, active, queued)
		}
	}()

	// HTTP server
	router := api.SetupRouter(api.RouterDeps{
		Config:      cfg,
		Logger:      logger,
		VetService:  vetService,
		Jobs:        jobRepo,
		Reports:     reportRepo,
		Pool:        pool,
		RabbitMQ:    mq,
		Producer:    producer,
		Limiter:     limiter,
		MemMonitor:  memMonitor,
		PromMetrics: promMetrics,
		Progress:    progress,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
		// Social crawling can hold a synchronous request open for a while.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("Server stopped")
}

// cleanupStuckJobs marks jobs interrupted by a previous shutdown as failed.
// Queued jobs are left alone; republishQueuedJobs puts them back on the
// broker.
func cleanupStuckJobs(jobs repository.JobRepository, logger *logrus.Logger) error {
	ctx := context.Background()

	count, err := jobs.FailRunning(ctx, "service restarted while job was running")
	if err != nil {
		return err
	}
	if count > 0 {
		logger.WithField("count", count).Warn("Marked stuck jobs as failed after restart")
	} else {
		logger.Info("No stuck jobs found")
	}
	return nil
}

// republishQueuedJobs rebuilds the broker queue from the database after a
// restart. The broker queue is purged first so surviving messages are not
// delivered twice.
func republishQueuedJobs(mq *queue.RabbitMQ, producer *queue.Producer, jobs repository.JobRepository, logger *logrus.Logger) error {
	ctx := context.Background()

	queued, err := jobs.ListQueued(ctx)
	if err != nil {
		return err
	}
	if len(queued) == 0 {
		return nil
	}

	purged, err := mq.PurgeQueue()
	if err != nil {
		return err
	}
	if purged > 0 {
		logger.WithField("count", purged).Info("Purged stale broker messages")
	}

	republished := 0
	for _, job := range queued {
		msg := &queue.JobMessage{
			JobID:    job.ID,
			Domain:   job.Domain,
			InputURL: job.InputURL,
			OrgName:  job.OrgName,
		}
		if err := producer.PublishJob(ctx, msg); err != nil {
			logger.WithError(err).WithField("job_id", job.ID).Error("Failed to republish job")
			continue
		}
		republished++
	}
	logger.WithField("count", republished).Info("Republished queued jobs after restart")
	return nil
}
