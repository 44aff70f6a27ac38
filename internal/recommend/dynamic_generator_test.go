package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonanse/recommender/pkg/models"
)

func TestDynamicGenerator_NoInteractionsYieldsNoCandidates(t *testing.T) {
	log := &fakeBehaviorLog{}
	index := &fakeVectorIndex{}
	gen := NewDynamicGenerator(log, index, 7*24*time.Hour, 100, 5, 5, silentLogger())

	items, err := gen.Generate(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDynamicGenerator_WeightsLikesByExplicitCoefficient(t *testing.T) {
	clickedEvent := uuid.New()
	likedEvent := uuid.New()
	dislikedEvent := uuid.New()

	log := &fakeBehaviorLog{
		byUser: map[int64][]models.Interaction{
			1: {
				{UserID: 1, EventID: clickedEvent, Kind: models.InteractionClick},
				{UserID: 1, EventID: likedEvent, Kind: models.InteractionLike},
				{UserID: 1, EventID: dislikedEvent, Kind: models.InteractionDislike},
			},
		},
	}
	index := &fakeVectorIndex{
		recommendHits: []models.ScoredEvent{
			{Score: 0.5, Event: models.Event{ID: uuid.New()}},
		},
	}
	gen := NewDynamicGenerator(log, index, 7*24*time.Hour, 100, 5, 3, silentLogger())

	items, err := gen.Generate(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.SubsystemDynamic, items[0].Subsystem)

	assert.Len(t, index.lastPositive, 1+5) // one click copy + five like copies
	assert.Len(t, index.lastNegative, 5)   // five dislike copies
	assert.Equal(t, 3+3, index.lastRecommendLimit) // 3 touched events + 3 extra
}

func TestDynamicGenerator_ExcludesAlreadyInteractedEvents(t *testing.T) {
	touchedEvent := uuid.New()
	freshEvent := uuid.New()

	log := &fakeBehaviorLog{
		byUser: map[int64][]models.Interaction{
			1: {{UserID: 1, EventID: touchedEvent, Kind: models.InteractionClick}},
		},
	}
	index := &fakeVectorIndex{
		recommendHits: []models.ScoredEvent{
			{Score: 0.9, Event: models.Event{ID: touchedEvent}},
			{Score: 0.7, Event: models.Event{ID: freshEvent}},
		},
	}
	gen := NewDynamicGenerator(log, index, 7*24*time.Hour, 100, 5, 5, silentLogger())

	items, err := gen.Generate(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, freshEvent, items[0].Event.ID)
}

func TestDynamicGenerator_PropagatesLogError(t *testing.T) {
	log := &fakeBehaviorLog{byUserErr: assertError("clickhouse unreachable")}
	index := &fakeVectorIndex{}
	gen := NewDynamicGenerator(log, index, 7*24*time.Hour, 100, 5, 5, silentLogger())

	_, err := gen.Generate(context.Background(), 1, "")
	assert.Error(t, err)
}
