package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/resonanse/recommender/internal/behaviorlog"
	"github.com/resonanse/recommender/internal/graph"
	"github.com/resonanse/recommender/internal/vectorindex"
	"github.com/resonanse/recommender/pkg/models"
)

// CollaborativeGenerator is C7: neighbor-user discovery through shared
// recent event interactions, averaged into a single mean vector. The
// averaging is intentionally unweighted — Open Question 3 of spec.md §9
// decides against weighting by interaction overlap.
type CollaborativeGenerator struct {
	log              behaviorlog.BehaviorLog
	index            vectorindex.VectorIndex
	mirror           graph.Mirror
	lookback         time.Duration
	userInteractions int
	perEventLimit    int
	limit            int
	logger           *logrus.Logger
}

func NewCollaborativeGenerator(log behaviorlog.BehaviorLog, index vectorindex.VectorIndex, mirror graph.Mirror, lookback time.Duration, userInteractions, perEventLimit, limit int, logger *logrus.Logger) *CollaborativeGenerator {
	return &CollaborativeGenerator{
		log:              log,
		index:            index,
		mirror:           mirror,
		lookback:         lookback,
		userInteractions: userInteractions,
		perEventLimit:    perEventLimit,
		limit:            limit,
		logger:           logger,
	}
}

func (g *CollaborativeGenerator) Generate(ctx context.Context, userID int64, queryText string) ([]models.RecItem, error) {
	after := time.Now().Add(-g.lookback)

	interactions, err := g.log.GetInteractionsByUser(ctx, userID, after, g.userInteractions)
	if err != nil {
		return nil, err
	}
	if len(interactions) == 0 {
		return nil, nil
	}

	touchedEvents := make(map[uuid.UUID]struct{}, len(interactions))
	for _, interaction := range interactions {
		touchedEvents[interaction.EventID] = struct{}{}
	}

	neighborSet := make(map[int64]struct{})
	for eventID := range touchedEvents {
		eventInteractions, err := g.log.GetInteractionsByEvent(ctx, eventID, after, g.perEventLimit)
		if err != nil {
			g.logger.WithError(err).WithField("event_id", eventID).Warn("failed to fetch neighbor interactions for event")
			continue
		}

		for _, interaction := range eventInteractions {
			if interaction.UserID == userID {
				continue
			}
			neighborSet[interaction.UserID] = struct{}{}
		}
	}

	if len(neighborSet) == 0 {
		return nil, nil
	}

	neighborIDs := make([]int64, 0, len(neighborSet))
	for id := range neighborSet {
		neighborIDs = append(neighborIDs, id)
	}

	vectors, err := g.index.GetUserVectors(ctx, neighborIDs)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	mean := meanVector(vectors)

	hits, err := g.index.SearchEvents(ctx, mean, g.limit)
	if err != nil {
		return nil, err
	}

	g.mirror.MirrorNeighbors(ctx, userID, neighborIDs)

	items := make([]models.RecItem, 0, len(hits))
	for _, hit := range hits {
		items = append(items, models.RecItem{
			Subsystem: models.SubsystemCollaborative,
			Event:     hit.Event,
			Score:     hit.Score,
		})
	}
	return items, nil
}

// meanVector computes the element-wise arithmetic mean of a set of equal-length
// vectors, with no normalization applied afterward (spec.md §4.3 step 5).
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	sum := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			sum[i] += float64(x)
		}
	}

	floats.Scale(1.0/float64(len(vectors)), sum)

	mean := make([]float32, len(sum))
	for i, x := range sum {
		mean[i] = float32(x)
	}
	return mean
}
