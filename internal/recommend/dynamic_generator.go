package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/resonanse/recommender/internal/behaviorlog"
	"github.com/resonanse/recommender/internal/vectorindex"
	"github.com/resonanse/recommender/pkg/models"
)

// DynamicGenerator is C6: recent-behavior-driven candidate generation.
// Clicks, likes, and dislikes over the lookback window are turned into
// weighted positive/negative anchor ID lists and handed to the vector
// index's recommend-by-examples API.
type DynamicGenerator struct {
	log                  behaviorlog.BehaviorLog
	index                vectorindex.VectorIndex
	lookback             time.Duration
	consideredInteractions int
	explicitCoefficient  int
	extraCandidates      int
	logger               *logrus.Logger
}

func NewDynamicGenerator(log behaviorlog.BehaviorLog, index vectorindex.VectorIndex, lookback time.Duration, consideredInteractions, explicitCoefficient, extraCandidates int, logger *logrus.Logger) *DynamicGenerator {
	return &DynamicGenerator{
		log:                    log,
		index:                  index,
		lookback:               lookback,
		consideredInteractions: consideredInteractions,
		explicitCoefficient:    explicitCoefficient,
		extraCandidates:        extraCandidates,
		logger:                 logger,
	}
}

func (g *DynamicGenerator) Generate(ctx context.Context, userID int64, queryText string) ([]models.RecItem, error) {
	after := time.Now().Add(-g.lookback)
	interactions, err := g.log.GetInteractionsByUser(ctx, userID, after, g.consideredInteractions)
	if err != nil {
		return nil, err
	}
	if len(interactions) == 0 {
		return nil, nil
	}

	touched := make(map[uuid.UUID]struct{}, len(interactions))
	var positive, negative []uuid.UUID
	for _, interaction := range interactions {
		touched[interaction.EventID] = struct{}{}

		switch interaction.Kind {
		case models.InteractionClick:
			positive = append(positive, interaction.EventID)
		case models.InteractionLike:
			for i := 0; i < g.explicitCoefficient; i++ {
				positive = append(positive, interaction.EventID)
			}
		case models.InteractionDislike:
			for i := 0; i < g.explicitCoefficient; i++ {
				negative = append(negative, interaction.EventID)
			}
		}
	}

	if len(positive) == 0 && len(negative) == 0 {
		return nil, nil
	}

	limit := len(touched) + g.extraCandidates
	hits, err := g.index.RecommendEvents(ctx, positive, negative, limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.RecItem, 0, len(hits))
	for _, hit := range hits {
		if _, interacted := touched[hit.Event.ID]; interacted {
			continue
		}
		items = append(items, models.RecItem{
			Subsystem: models.SubsystemDynamic,
			Event:     hit.Event,
			Score:     hit.Score,
		})
	}
	return items, nil
}
