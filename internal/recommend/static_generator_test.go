package recommend

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonanse/recommender/pkg/models"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestStaticGenerator_EmptyQueryTextYieldsNoCandidates(t *testing.T) {
	index := &fakeVectorIndex{}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	gen := NewStaticGenerator(embedder, index, 10, silentLogger())

	items, err := gen.Generate(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStaticGenerator_TagsHitsAsBasicSubsystem(t *testing.T) {
	eventID := uuid.New()
	index := &fakeVectorIndex{
		searchHits: []models.ScoredEvent{
			{Score: 0.8, Event: models.Event{ID: eventID}},
		},
	}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	gen := NewStaticGenerator(embedder, index, 10, silentLogger())

	items, err := gen.Generate(context.Background(), 1, "likes jazz")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.SubsystemBasic, items[0].Subsystem)
	assert.Equal(t, eventID, items[0].Event.ID)
	assert.Equal(t, 10, index.lastSearchLimit)
}

func TestStaticGenerator_PropagatesEmbedError(t *testing.T) {
	index := &fakeVectorIndex{}
	embedder := &fakeEmbedder{err: assertError("embedding backend down")}
	gen := NewStaticGenerator(embedder, index, 10, silentLogger())

	_, err := gen.Generate(context.Background(), 1, "some text")
	assert.Error(t, err)
}

type assertError string

func (e assertError) Error() string { return string(e) }
