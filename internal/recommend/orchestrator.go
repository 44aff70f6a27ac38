package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/resonanse/recommender/internal/behaviorlog"
	"github.com/resonanse/recommender/internal/catalog"
	"github.com/resonanse/recommender/internal/embedding"
	"github.com/resonanse/recommender/internal/vectorindex"
	"github.com/resonanse/recommender/pkg/models"
)

// generatorResult is the fork-join slot for one candidate generator's run.
type generatorResult struct {
	subsystem models.RecSubsystem
	items     []models.RecItem
	err       error
	latency   time.Duration
}

// Orchestrator is C10: fans the three candidate generators out
// concurrently, rescores and blends their output, and writes the audit
// trail. It never fails a request because one subsystem failed.
type Orchestrator struct {
	static          GeneratorInterface
	dynamic         GeneratorInterface
	collaborative   GeneratorInterface
	rescorer        RescorerInterface
	blender         BlenderInterface
	catalog         catalog.Catalog
	behaviorLog     behaviorlog.BehaviorLog
	embedder        embedding.Provider
	index           vectorindex.VectorIndex
	generatorTimeout time.Duration
	metrics         *Metrics
	logger          *logrus.Logger
}

func NewOrchestrator(
	static, dynamic, collaborative GeneratorInterface,
	rescorer RescorerInterface,
	blender BlenderInterface,
	cat catalog.Catalog,
	behaviorLog behaviorlog.BehaviorLog,
	embedder embedding.Provider,
	index vectorindex.VectorIndex,
	generatorTimeout time.Duration,
	metrics *Metrics,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		static:           static,
		dynamic:          dynamic,
		collaborative:    collaborative,
		rescorer:         rescorer,
		blender:          blender,
		catalog:          cat,
		behaviorLog:      behaviorLog,
		embedder:         embedder,
		index:            index,
		generatorTimeout: generatorTimeout,
		metrics:          metrics,
		logger:           logger,
	}
}

// RecommendByUser implements spec.md §4.7's "recommend-by-user" operation.
func (o *Orchestrator) RecommendByUser(ctx context.Context, userID int64) ([]models.RecItem, error) {
	description, err := o.catalog.GetUserDescription(ctx, userID)
	if err != nil && err != catalog.ErrUserNotFound {
		o.logger.WithError(err).WithField("user_id", userID).Warn("failed to fetch user description, proceeding without it")
	}

	results := o.runGeneratorsParallel(ctx, userID, description)

	groups := make([][]models.RecItem, 0, 3)
	for _, subsystem := range []models.RecSubsystem{models.SubsystemBasic, models.SubsystemDynamic, models.SubsystemCollaborative} {
		items := results[subsystem].items
		groups = append(groups, o.rescorer.Rescore(items))
	}

	blended := o.blender.Blend(groups)

	if o.metrics != nil {
		composition := make(map[string]int, 3)
		for _, item := range blended {
			composition[string(item.Subsystem)]++
		}
		o.metrics.ObserveBlendComposition(composition, len(blended))
	}

	if err := o.behaviorLog.InsertGivenRecommendation(ctx, userID, blended); err != nil {
		o.logger.WithError(err).WithField("user_id", userID).Warn("failed to write recommendation audit row")
	}

	return blended, nil
}

// runGeneratorsParallel is the fork-join barrier: all three generators run
// concurrently under one deadline and share no mutable state; a failure in
// any one yields an empty list for that subsystem only.
func (o *Orchestrator) runGeneratorsParallel(ctx context.Context, userID int64, queryText string) map[models.RecSubsystem]generatorResult {
	genCtx, cancel := context.WithTimeout(ctx, o.generatorTimeout)
	defer cancel()

	var wg sync.WaitGroup
	resultsMutex := sync.Mutex{}
	results := make(map[models.RecSubsystem]generatorResult, 3)

	run := func(subsystem models.RecSubsystem, gen GeneratorInterface) {
		defer wg.Done()

		start := time.Now()
		items, err := gen.Generate(genCtx, userID, queryText)
		latency := time.Since(start)

		if err != nil {
			o.logger.WithFields(logrus.Fields{
				"subsystem": subsystem,
				"user_id":   userID,
				"error":     err,
				"latency":   latency,
			}).Warn("candidate generator failed, yielding empty list")
			items = nil
		} else {
			o.logger.WithFields(logrus.Fields{
				"subsystem": subsystem,
				"user_id":   userID,
				"items":     len(items),
				"latency":   latency,
			}).Debug("candidate generator completed")
		}

		if o.metrics != nil {
			o.metrics.ObserveGenerator(string(subsystem), len(items), latency.Seconds())
		}

		resultsMutex.Lock()
		results[subsystem] = generatorResult{subsystem: subsystem, items: items, err: err, latency: latency}
		resultsMutex.Unlock()
	}

	wg.Add(3)
	go run(models.SubsystemBasic, o.static)
	go run(models.SubsystemDynamic, o.dynamic)
	go run(models.SubsystemCollaborative, o.collaborative)
	wg.Wait()

	return results
}

// SetUserDescription implements spec.md §4.7's "set-user-description"
// operation: the catalog write and the vector upsert both must succeed for
// status to be true.
func (o *Orchestrator) SetUserDescription(ctx context.Context, userID int64, description string) (bool, error) {
	if err := o.catalog.SetUserDescription(ctx, userID, description); err != nil {
		return false, err
	}

	user := models.User{ID: userID, Description: &description}
	if !user.IsIndexable() {
		return false, nil
	}

	vector, err := o.embedder.Embed(ctx, description)
	if err != nil {
		o.logger.WithError(err).WithField("user_id", userID).Warn("failed to embed user description")
		return false, nil
	}

	ok, err := o.index.UpsertUser(ctx, userID, vector)
	if err != nil {
		o.logger.WithError(err).WithField("user_id", userID).Warn("failed to upsert user vector")
		return false, nil
	}

	return ok, nil
}
