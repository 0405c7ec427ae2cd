package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cricketfancy/settlement/internal/cache"
	"cricketfancy/settlement/internal/classify"
	"cricketfancy/settlement/internal/client"
	"cricketfancy/settlement/internal/config"
	"cricketfancy/settlement/internal/notify"
	"cricketfancy/settlement/internal/resolver"
	"cricketfancy/settlement/internal/store"
	"cricketfancy/settlement/internal/watch"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting cricket fancy settlement worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize session store
	sessionStore, err := store.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to session store")
	}
	defer sessionStore.Close(context.Background())

	// Initialize Redis timeline cache
	var snapshotCache client.SnapshotCache
	redisCache, err := cache.NewRedisCache(ctx, cache.Config{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.TimelineCacheTTL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without timeline cache")
	} else {
		defer redisCache.Close()
		snapshotCache = redisCache
		log.Info().Msg("Redis timeline cache connected")
	}

	// Initialize upstream clients
	listingClient := client.New(
		cfg.CompetitionsEndpoint,
		cfg.EventsEndpoint,
		cfg.MarketsEndpoint,
		cfg.SportID,
		cfg.FetchTimeout,
	)
	timelineClient := client.NewTimeline(cfg.TimelineEndpoint, cfg.FetchTimeout, snapshotCache)
	log.Info().Msg("Upstream clients initialized")

	// Initialize notifier
	notifier := notify.New(cfg.Subscribers, cfg.FetchTimeout, notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPUser,
		To:       cfg.NotifyEmail,
	})

	// Initialize resolver
	res, err := resolver.New(sessionStore, timelineClient, notifier, resolver.Options{
		PollInterval:      cfg.SessionPollInterval,
		NotAvailableLimit: cfg.NotAvailableLimit,
		PoolSize:          cfg.ResolverPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create resolver")
	}
	defer res.Stop()

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort, sessionStore)
	}

	// Schedule the backlog digest
	if cfg.DigestEnabled() {
		digest := cron.New()
		_, err := digest.AddFunc(cfg.DigestCron, func() {
			counts, err := sessionStore.CountsByStatus(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Failed to collect digest counts")
				return
			}
			if err := notifier.SendDigest(counts); err != nil {
				log.Error().Err(err).Msg("Failed to send digest")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Str("cron", cfg.DigestCron).Msg("Invalid digest schedule")
		}
		digest.Start()
		defer digest.Stop()
		log.Info().Str("cron", cfg.DigestCron).Msg("Digest scheduled")
	}

	// Create and start the discovery watcher
	watcher := watch.New(
		listingClient,
		sessionStore,
		res,
		func(label string) bool { _, ok := classify.Classify(label); return ok },
		watch.Intervals{
			Competition: cfg.CompetitionPollInterval,
			Event:       cfg.EventPollInterval,
			Market:      cfg.MarketPollInterval,
		},
		cfg.ResyncCron,
	)
	if err := watcher.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start watcher")
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down watcher...")
	watcher.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int, sessionStore *store.Store) {
	http.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := sessionStore.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","error":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Str("addr", addr).Msg("Starting metrics server")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
