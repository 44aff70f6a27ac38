// Package embedding turns free text into the 384-dimensional vectors the
// vector index stores. A subprocess bridge defers to the same
// multilingual sentence-transformers model the original behavior-log
// pipeline used; a Redis-backed cache keyed by content hash means a
// repeated description never pays for a second inference call.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/resonanse/recommender/internal/config"
)

// cacheLookups counts embedding cache hits and misses (SPEC_FULL.md §4.9's
// embedding cache hit ratio), labeled so the ratio can be derived in PromQL
// as rate(...{result="hit"}) / rate(...{}).
var cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "embedding_cache_lookups_total",
	Help: "Embedding cache lookups, partitioned by hit or miss.",
}, []string{"result"})

func init() {
	if err := prometheus.Register(cacheLookups); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}

// Provider is the narrow surface every candidate generator depends on.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type CachedProvider struct {
	bridge      *PythonBridge
	redisClient *redis.Client
	logger      *logrus.Logger
	modelName   string
	cachePrefix string
	cacheTTL    time.Duration
}

func New(cfg *config.Config, redisClient *redis.Client, logger *logrus.Logger) (*CachedProvider, error) {
	bridge := NewPythonBridge(cfg.Embedding.PythonPath, cfg.Embedding.CallTimeout, logger)
	if err := bridge.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	return &CachedProvider{
		bridge:      bridge,
		redisClient: redisClient,
		logger:      logger,
		modelName:   cfg.Embedding.ModelName,
		cachePrefix: "embed:text",
		cacheTTL:    cfg.Embedding.CacheTTL,
	}, nil
}

// Embed returns the NFC-normalized text's embedding, serving from cache
// when available. Cache misses and cache-write failures are non-fatal —
// they only cost an extra inference call next time.
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized := norm.NFC.String(text)
	key := p.cacheKey(normalized)

	if cached, ok := p.getCached(ctx, key); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	embeddings, err := p.bridge.GenerateEmbeddings(ctx, []string{normalized}, p.modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vectors")
	}

	p.setCached(ctx, key, embeddings[0])
	return embeddings[0], nil
}

func (p *CachedProvider) cacheKey(text string) string {
	hasher := sha256.New()
	hasher.Write([]byte(text))
	contentHash := fmt.Sprintf("%x", hasher.Sum(nil))[:16]
	return fmt.Sprintf("%s:%s:%s", p.cachePrefix, p.modelName, contentHash)
}

func (p *CachedProvider) getCached(ctx context.Context, key string) ([]float32, bool) {
	result, err := p.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal([]byte(result), &embedding); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("failed to deserialize cached embedding")
		return nil, false
	}
	return embedding, true
}

func (p *CachedProvider) setCached(ctx context.Context, key string, embedding []float32) {
	data, err := json.Marshal(embedding)
	if err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("failed to serialize embedding for caching")
		return
	}
	if err := p.redisClient.Set(ctx, key, data, p.cacheTTL).Err(); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("failed to cache embedding")
	}
}
