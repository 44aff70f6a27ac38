package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/resonanse/recommender/pkg/models"
)

// fakeVectorIndex is a minimal, deterministic stand-in for
// vectorindex.VectorIndex, used so the candidate generators can be tested
// without a live Qdrant collection.
type fakeVectorIndex struct {
	searchHits    []models.ScoredEvent
	searchErr     error
	recommendHits []models.ScoredEvent
	recommendErr  error
	userVectors   map[int64][]float32

	lastSearchLimit    int
	lastRecommendLimit int
	lastPositive       []uuid.UUID
	lastNegative       []uuid.UUID
}

func (f *fakeVectorIndex) UpsertEventVector(ctx context.Context, event models.Event, vector []float32) (bool, error) {
	return true, nil
}

func (f *fakeVectorIndex) UpsertUser(ctx context.Context, userID int64, vector []float32) (bool, error) {
	return true, nil
}

func (f *fakeVectorIndex) SearchEvents(ctx context.Context, vector []float32, limit int) ([]models.ScoredEvent, error) {
	f.lastSearchLimit = limit
	return f.searchHits, f.searchErr
}

func (f *fakeVectorIndex) RecommendEvents(ctx context.Context, positive, negative []uuid.UUID, limit int) ([]models.ScoredEvent, error) {
	f.lastPositive = positive
	f.lastNegative = negative
	f.lastRecommendLimit = limit
	return f.recommendHits, f.recommendErr
}

func (f *fakeVectorIndex) GetEventVectors(ctx context.Context, ids []uuid.UUID) ([][]float32, error) {
	return nil, nil
}

func (f *fakeVectorIndex) GetUserVectors(ctx context.Context, ids []int64) ([][]float32, error) {
	out := make([][]float32, 0, len(ids))
	for _, id := range ids {
		if v, ok := f.userVectors[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// fakeBehaviorLog is a minimal stand-in for behaviorlog.BehaviorLog.
type fakeBehaviorLog struct {
	byUser          map[int64][]models.Interaction
	byEvent         map[uuid.UUID][]models.Interaction
	insertedAudits  []models.RecItem
	insertAuditErr  error
	byUserErr       error
	byEventErr      error
}

func (f *fakeBehaviorLog) InsertInteraction(ctx context.Context, userID int64, eventID uuid.UUID, kind models.InteractionKind) error {
	return nil
}

func (f *fakeBehaviorLog) InsertGivenRecommendation(ctx context.Context, userID int64, items []models.RecItem) error {
	f.insertedAudits = append(f.insertedAudits, items...)
	return f.insertAuditErr
}

func (f *fakeBehaviorLog) GetInteractionsByUser(ctx context.Context, userID int64, after time.Time, limit int) ([]models.Interaction, error) {
	if f.byUserErr != nil {
		return nil, f.byUserErr
	}
	return f.byUser[userID], nil
}

func (f *fakeBehaviorLog) GetInteractionsByEvent(ctx context.Context, eventID uuid.UUID, after time.Time, limit int) ([]models.Interaction, error) {
	if f.byEventErr != nil {
		return nil, f.byEventErr
	}
	return f.byEvent[eventID], nil
}

// fakeEmbedder is a minimal stand-in for embedding.Provider.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

// fakeMirror is a minimal stand-in for graph.Mirror.
type fakeMirror struct {
	calledUserID     int64
	calledNeighbors  []int64
	calls            int
}

func (f *fakeMirror) MirrorNeighbors(ctx context.Context, userID int64, neighborIDs []int64) {
	f.calledUserID = userID
	f.calledNeighbors = neighborIDs
	f.calls++
}

// fakeCatalog is a minimal stand-in for catalog.Catalog.
type fakeCatalog struct {
	description string
	getErr      error
	setErr      error
	setCalls    []struct {
		userID      int64
		description string
	}
}

func (f *fakeCatalog) GetUserDescription(ctx context.Context, userID int64) (string, error) {
	return f.description, f.getErr
}

func (f *fakeCatalog) SetUserDescription(ctx context.Context, userID int64, description string) error {
	f.setCalls = append(f.setCalls, struct {
		userID      int64
		description string
	}{userID, description})
	return f.setErr
}
