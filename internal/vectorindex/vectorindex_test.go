package vectorindex

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/resonanse/recommender/pkg/models"
)

// testIndex builds an Index with a compiled payload schema and a discarding
// logger but no qdrant client, enough to exercise the payload-decoding path
// without a live collection.
func testIndex(t *testing.T) *Index {
	t.Helper()
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(eventPayloadSchema))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &Index{payloadSchema: schema, logger: logger}
}

func TestUpsertEventVector_SkipsNonIndexableEvent(t *testing.T) {
	idx := &Index{} // client is never touched on this path
	short := "too short"
	event := models.Event{ID: uuid.New(), Description: &short}

	ok, err := idx.UpsertEventVector(context.Background(), event, []float32{0.1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventPayload_RoundTripsThroughEventFromPayload(t *testing.T) {
	desc := "a sufficiently long event description for indexing"
	city := "Saint Petersburg"
	event := models.Event{
		ID:           uuid.New(),
		Title:        "Jazz Night",
		Description:  &desc,
		DatetimeFrom: time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC),
		City:         &city,
		ServiceID:    "kg-123",
		ServiceType:  models.EventSourceKudaGo,
	}

	payload, err := eventPayload(event)
	require.NoError(t, err)

	qdrantPayload := qdrant.NewValueMap(payload)

	roundTripped, err := eventFromPayload(qdrantPayload)
	require.NoError(t, err)

	assert.Equal(t, event.ID, roundTripped.ID)
	assert.Equal(t, event.Title, roundTripped.Title)
	assert.Equal(t, event.ServiceID, roundTripped.ServiceID)
	assert.Equal(t, event.ServiceType, roundTripped.ServiceType)
	assert.Equal(t, event.DatetimeFrom, roundTripped.DatetimeFrom)
	require.NotNil(t, roundTripped.Description)
	assert.Equal(t, desc, *roundTripped.Description)
}

func TestEventFromPayload_RejectsInvalidID(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{"id": "not-a-uuid"})
	_, err := eventFromPayload(payload)
	assert.Error(t, err)
}

func TestScoredEventsFromPoints_SkipsMalformedRecordsWithoutFailingTheBatch(t *testing.T) {
	idx := testIndex(t)

	valid := models.Event{
		ID:           uuid.New(),
		Title:        "Jazz Night",
		DatetimeFrom: time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC),
		ServiceID:    "kg-123",
		ServiceType:  models.EventSourceKudaGo,
	}
	validPayload, err := eventPayload(valid)
	require.NoError(t, err)

	points := []*qdrant.ScoredPoint{
		{Score: 0.9, Payload: qdrant.NewValueMap(validPayload)},
		// Fails schema validation: missing every required field.
		{Score: 0.8, Payload: qdrant.NewValueMap(map[string]any{"id": "not-a-uuid"})},
		// Passes schema validation (all required strings present) but fails
		// the stricter per-field parse in eventFromPayload.
		{Score: 0.7, Payload: qdrant.NewValueMap(map[string]any{
			"id":            "not-a-uuid",
			"title":         "Broken",
			"datetime_from": "2026-08-01T19:00:00Z",
			"service_id":    "kg-456",
			"service_type":  string(models.EventSourceKudaGo),
		})},
	}

	results := idx.scoredEventsFromPoints(points)
	require.Len(t, results, 1)
	assert.Equal(t, valid.ID, results[0].Event.ID)
	assert.Equal(t, float64(float32(0.9)), results[0].Score)
}

func TestPointIDs_PreservesOrderAndCount(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	refs := pointIDs(ids)
	require.Len(t, refs, 3)
	for i, ref := range refs {
		assert.Equal(t, ids[i].String(), ref.GetUuid())
	}
}

func TestRecencyFilter_BuildsSingleMustCondition(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	later := now.Add(180 * 24 * time.Hour)

	filter := recencyFilter(now, later)
	require.Len(t, filter.Must, 1)
}
