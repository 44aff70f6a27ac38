// Package database wires the process-wide store connections: Postgres for
// the event catalog, Redis for the embedding cache, and an optional Neo4j
// driver for the neighbor-graph mirror. Each is initialized once at
// startup and is safe for concurrent use by every generator.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/resonanse/recommender/internal/config"
)

// Database aggregates the store handles shared across the recommender. The
// behavior log keeps its own ClickHouse connection (internal/behaviorlog)
// since that driver is native-protocol and doesn't share a pool type with
// anything here.
type Database struct {
	PG     *pgxpool.Pool
	Redis  *redis.Client
	Graph  neo4j.DriverWithContext
	logger *logrus.Logger
}

func New(cfg *config.Config, logger *logrus.Logger) (*Database, error) {
	db := &Database{logger: logger}

	if err := db.initPostgreSQL(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize catalog postgres: %w", err)
	}

	if err := db.initRedis(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	if cfg.Graph.Enabled {
		if err := db.initGraph(cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize neighbor graph: %w", err)
		}
	}

	return db, nil
}

func (db *Database) initPostgreSQL(cfg *config.Config) error {
	pgCfg, err := pgxpool.ParseConfig(cfg.Catalog.URL)
	if err != nil {
		return fmt.Errorf("failed to parse catalog postgres config: %w", err)
	}

	pgCfg.MaxConns = int32(cfg.Catalog.MaxConnections)
	pgCfg.ConnConfig.ConnectTimeout = cfg.Catalog.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
	if err != nil {
		return fmt.Errorf("failed to create catalog postgres pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping catalog postgres: %w", err)
	}

	db.PG = pool
	db.logger.Info("catalog postgres connection established")
	return nil
}

// initRedis connects the single embedding-cache client. Unlike the
// teacher's hot/warm/cold split, the recommender core caches exactly one
// thing — embeddings keyed by content hash — so one pool is enough.
func (db *Database) initRedis(cfg *config.Config) error {
	db.Redis = redis.NewClient(&redis.Options{
		Addr:         cfg.Embedding.RedisAddr,
		MaxRetries:   3,
		PoolSize:     10,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	db.logger.Info("redis connection established")
	return nil
}

func (db *Database) initGraph(cfg *config.Config) error {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Graph.URL,
		neo4j.BasicAuth(cfg.Graph.Username, cfg.Graph.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = 10
			c.ConnectionAcquisitionTimeout = 10 * time.Second
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create neighbor graph driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify neighbor graph connectivity: %w", err)
	}

	db.Graph = driver
	db.logger.Info("neighbor graph connection established")
	return nil
}

// Close tears down every open connection, collecting errors rather than
// stopping at the first failure so a slow shutdown of one store doesn't
// leak the others.
func (db *Database) Close() error {
	var errs []error

	if db.PG != nil {
		db.PG.Close()
		db.logger.Info("catalog postgres connection closed")
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if db.Graph != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Graph.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close neighbor graph: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing database connections: %v", errs)
	}
	return nil
}
