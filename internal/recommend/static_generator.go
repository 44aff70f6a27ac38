package recommend

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/resonanse/recommender/internal/embedding"
	"github.com/resonanse/recommender/internal/vectorindex"
	"github.com/resonanse/recommender/pkg/models"
)

// StaticGenerator is C5: text-similarity search against the user's profile
// description. It produces an empty list when there's no query text to
// embed.
type StaticGenerator struct {
	embedder embedding.Provider
	index    vectorindex.VectorIndex
	limit    int
	logger   *logrus.Logger
}

func NewStaticGenerator(embedder embedding.Provider, index vectorindex.VectorIndex, limit int, logger *logrus.Logger) *StaticGenerator {
	return &StaticGenerator{embedder: embedder, index: index, limit: limit, logger: logger}
}

func (g *StaticGenerator) Generate(ctx context.Context, userID int64, queryText string) ([]models.RecItem, error) {
	if queryText == "" {
		return nil, nil
	}

	vector, err := g.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	hits, err := g.index.SearchEvents(ctx, vector, g.limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.RecItem, 0, len(hits))
	for _, hit := range hits {
		items = append(items, models.RecItem{
			Subsystem: models.SubsystemBasic,
			Event:     hit.Event,
			Score:     hit.Score,
		})
	}
	return items, nil
}
