package main

import (
	"context"
	"errors"
	"marketplace/server/config"
	"marketplace/server/internal/api"
	"marketplace/server/internal/apiclient"
	"marketplace/server/internal/cache"
	"marketplace/server/internal/catalog"
	"marketplace/server/internal/metrics"
	"marketplace/server/internal/notify"
	"marketplace/server/internal/search"
	"marketplace/server/internal/session"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize cache store
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).WithField("addr", cfg.Cache.RedisAddr).Warn("Redis unreachable, using in-process cache")
		} else {
			redisStore, err := cache.NewRedisStore(rdb, cfg.Cache.KeyPrefix)
			if err != nil {
				logger.WithError(err).Fatal("Failed to initialize redis cache")
			}
			store = redisStore
			logger.WithField("addr", cfg.Cache.RedisAddr).Info("Using redis cache")
		}
	}

	client := apiclient.New(apiclient.Options{
		BaseURL:       cfg.Backend.BaseURL,
		Timeout:       cfg.Backend.Timeout,
		MaxAttempts:   cfg.Backend.MaxAttempts,
		BackoffUnit:   cfg.Backend.BackoffUnit,
		MaxRetryAfter: cfg.Backend.MaxRetryAfter,
		UserAgent:     cfg.Backend.UserAgent,
	}, logger, m)
	locations := catalog.New(client, store, cfg.Cache.TTL, logger, m)

	// Notices go to the session inbox synchronously and to logs and metrics via the queue
	notices := notify.NewQueue(cfg.Session.NoticeBuffer, logger)
	notices.Subscribe(func(n notify.Notice) error {
		m.Notice(string(n.Kind))
		logger.WithFields(logrus.Fields{
			"session_id": n.SessionID,
			"request_id": n.RequestID,
			"kind":       n.Kind,
		}).Warn("Search failure notice")
		return nil
	})
	notices.Start()

	sessions := session.NewRegistry(func(id string, inbox *notify.Inbox) *search.Orchestrator {
		return search.New(id, client, locations, notify.Multi(inbox, notices), logger, m)
	}, session.Options{
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		InboxSize:     cfg.Session.InboxSize,
		MaxSessions:   cfg.Session.MaxSessions,
	}, logger, m)
	sessions.Start()

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(sessions, locations, logger, cfg.Session.CookieSecure, int(cfg.Session.IdleTimeout.Seconds()))
	router := api.NewRouter(handler, api.NewLocationHandler(locations, logger), logger, m, reg, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}

	sessions.Stop()
	if err := notices.Close(); err != nil {
		logger.WithError(err).Error("Failed to close notice queue")
	}
	logger.Info("Server stopped")
}
