// Package app wires every component the recommender needs: stores,
// generators, the orchestrator, the message bus, and the ambient
// health/metrics HTTP surface.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/resonanse/recommender/internal/behaviorlog"
	"github.com/resonanse/recommender/internal/catalog"
	"github.com/resonanse/recommender/internal/config"
	"github.com/resonanse/recommender/internal/database"
	"github.com/resonanse/recommender/internal/embedding"
	"github.com/resonanse/recommender/internal/graph"
	"github.com/resonanse/recommender/internal/handlers"
	"github.com/resonanse/recommender/internal/health"
	"github.com/resonanse/recommender/internal/messaging"
	"github.com/resonanse/recommender/internal/middleware"
	"github.com/resonanse/recommender/internal/recommend"
	"github.com/resonanse/recommender/internal/vectorindex"
)

type App struct {
	config      *config.Config
	logger      *logrus.Logger
	db          *database.Database
	behaviorLog *behaviorlog.Log
	bus         *messaging.Bus
	orchestrator *recommend.Orchestrator
	metricsServer *http.Server
}

func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg)

	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	index, err := vectorindex.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	behaviorLog, err := behaviorlog.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize behavior log: %w", err)
	}

	cat := catalog.New(db.PG, logger)

	embedder, err := embedding.New(cfg, db.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	var mirror graph.Mirror = graph.NoopMirror{}
	if cfg.Graph.Enabled && db.Graph != nil {
		mirror = graph.New(db.Graph, logger)
	}

	metrics := recommend.NewMetrics()

	staticGen := recommend.NewStaticGenerator(embedder, index, cfg.Recommend.StaticLimit, logger)
	dynamicGen := recommend.NewDynamicGenerator(
		behaviorLog, index,
		cfg.Recommend.DynamicLookback,
		cfg.Recommend.DynamicConsideredInteractions,
		cfg.Recommend.ExplicitCoefficient,
		cfg.Recommend.DynamicExtraCandidates,
		logger,
	)
	collaborativeGen := recommend.NewCollaborativeGenerator(
		behaviorLog, index, mirror,
		cfg.Recommend.CollaborativeLookback,
		cfg.Recommend.CollaborativeConsideredInteractions,
		cfg.Recommend.CollaborativePerEventLimit,
		cfg.Recommend.CollaborativeLimit,
		logger,
	)
	rescorer := recommend.NewRescorer(cfg.Recommend.DecayRate, cfg.Recommend.JitterAmplitude)
	blender := recommend.NewBlender(cfg.Recommend.MinByGroup, cfg.Recommend.BlendLimit)

	orchestrator := recommend.NewOrchestrator(
		staticGen, dynamicGen, collaborativeGen,
		rescorer, blender,
		cat, behaviorLog, embedder, index,
		cfg.Recommend.GeneratorTimeout,
		metrics,
		logger,
	)

	bus := messaging.New(cfg, logger)

	checker := health.NewChecker(db, index, behaviorLog, logger)
	handler := handlers.New(checker)

	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	handlers.Register(router, handler, cfg.Monitoring.MetricsPath)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.Monitoring.Port,
		Handler: router,
	}

	return &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		behaviorLog:   behaviorLog,
		bus:           bus,
		orchestrator:  orchestrator,
		metricsServer: metricsServer,
	}, nil
}

// Start runs the health/metrics HTTP server and the message-bus consumer
// loops until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	go func() {
		a.logger.WithField("addr", a.metricsServer.Addr).Info("starting health/metrics server")
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("health/metrics server failed")
		}
	}()

	return a.bus.Run(ctx, messaging.Handlers{
		RecommendByUser: func(ctx context.Context, userID int64) (any, error) {
			return a.orchestrator.RecommendByUser(ctx, userID)
		},
		SetUserDescription: func(ctx context.Context, userID int64, description string) (any, error) {
			status, err := a.orchestrator.SetUserDescription(ctx, userID, description)
			return map[string]bool{"status": status}, err
		},
	})
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down application")

	if err := a.metricsServer.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Error("error shutting down health/metrics server")
	}

	if err := a.bus.Close(); err != nil {
		a.logger.WithError(err).Error("error closing message bus")
	}

	if err := a.behaviorLog.Close(); err != nil {
		a.logger.WithError(err).Error("error closing behavior log")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
