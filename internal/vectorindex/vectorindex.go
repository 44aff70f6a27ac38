// Package vectorindex wraps the Qdrant collections backing the event and
// user embedding spaces (C2). Every caller outside this package talks to
// the VectorIndex interface, never to the qdrant client directly, so a
// driver upgrade or a swap to another store touches one place.
package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"

	"github.com/resonanse/recommender/internal/config"
	"github.com/resonanse/recommender/pkg/models"
)

// VectorIndex is the narrow surface every candidate generator depends on.
type VectorIndex interface {
	UpsertEventVector(ctx context.Context, event models.Event, vector []float32) (bool, error)
	UpsertUser(ctx context.Context, userID int64, vector []float32) (bool, error)
	SearchEvents(ctx context.Context, vector []float32, limit int) ([]models.ScoredEvent, error)
	RecommendEvents(ctx context.Context, positive, negative []uuid.UUID, limit int) ([]models.ScoredEvent, error)
	GetEventVectors(ctx context.Context, ids []uuid.UUID) ([][]float32, error)
	GetUserVectors(ctx context.Context, ids []int64) ([][]float32, error)
}

// eventPayloadSchema validates the event payload round-tripped through
// Qdrant on every upsert, so a malformed producer never silently corrupts
// what the candidate generators read back.
const eventPayloadSchema = `{
  "type": "object",
  "required": ["id", "title", "datetime_from", "service_id", "service_type"],
  "properties": {
    "id": {"type": "string"},
    "title": {"type": "string", "minLength": 1},
    "datetime_from": {"type": "string"},
    "service_id": {"type": "string", "minLength": 1},
    "service_type": {"type": "string"}
  }
}`

type Index struct {
	client           *qdrant.Client
	eventsCollection string
	usersCollection  string
	vectorSize       uint64
	onDisk           bool
	recencyWindow    time.Duration
	requestTimeout   time.Duration
	payloadSchema    *gojsonschema.Schema
	logger           *logrus.Logger
}

func New(cfg *config.Config, logger *logrus.Logger) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.VectorIndex.Host,
		Port:   cfg.VectorIndex.Port,
		APIKey: cfg.VectorIndex.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(eventPayloadSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile event payload schema: %w", err)
	}

	idx := &Index{
		client:           client,
		eventsCollection: cfg.VectorIndex.EventsCollection,
		usersCollection:  cfg.VectorIndex.UsersCollection,
		vectorSize:       uint64(cfg.VectorIndex.VectorSize),
		onDisk:           cfg.VectorIndex.OnDisk,
		recencyWindow:    cfg.VectorIndex.RecencyWindow,
		requestTimeout:   cfg.VectorIndex.RequestTimeout,
		payloadSchema:    schema,
		logger:           logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := idx.ensureCollections(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure vector collections: %w", err)
	}

	return idx, nil
}

func (idx *Index) ensureCollections(ctx context.Context) error {
	for _, name := range []string{idx.eventsCollection, idx.usersCollection} {
		exists, err := idx.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check collection %s: %w", name, err)
		}
		if exists {
			continue
		}

		idx.logger.WithField("collection", name).Info("creating vector collection")
		onDisk := idx.onDisk
		err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     idx.vectorSize,
				Distance: qdrant.Distance_Cosine,
				OnDisk:   &onDisk,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}
	return nil
}

// Ping reports whether the events collection is reachable, for the health
// endpoint's readiness check.
func (idx *Index) Ping(ctx context.Context) error {
	_, err := idx.client.CollectionExists(ctx, idx.eventsCollection)
	return err
}

// UpsertEventVector writes an already-embedded event into the events
// collection. It takes a precomputed vector so the embedding call (which
// needs the description text, not the whole Event) stays outside this
// package.
func (idx *Index) UpsertEventVector(ctx context.Context, event models.Event, vector []float32) (bool, error) {
	if !event.IsIndexable() {
		return false, nil
	}

	payload, err := eventPayload(event)
	if err != nil {
		return false, fmt.Errorf("failed to build event payload: %w", err)
	}

	result, err := idx.payloadSchema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to validate event payload: %w", err)
	}
	if !result.Valid() {
		return false, fmt.Errorf("event %s failed payload schema validation: %v", event.ID, result.Errors())
	}

	ctx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
	defer cancel()

	_, err = idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.eventsCollection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(event.ID.String()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert event %s: %w", event.ID, err)
	}

	return true, nil
}

// UpsertUser writes a user's precomputed description embedding into the
// users collection. It does no indexability check of its own; callers
// decide whether a description is long enough to embed.
func (idx *Index) UpsertUser(ctx context.Context, userID int64, vector []float32) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
	defer cancel()

	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.usersCollection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDNum(uint64(userID)),
				Vectors: qdrant.NewVectors(vector...),
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert user %d: %w", userID, err)
	}

	return true, nil
}

// SearchEvents runs a plain vector search against the events collection,
// restricted to events whose datetime_from falls within the recency
// window (spec §4.1 static generator, §4.3 collaborative generator).
func (idx *Index) SearchEvents(ctx context.Context, vector []float32, limit int) ([]models.ScoredEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
	defer cancel()

	now := time.Now()
	lte := now.Add(idx.recencyWindow)

	points, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.eventsCollection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         recencyFilter(now, lte),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	return idx.scoredEventsFromPoints(points), nil
}

// RecommendEvents runs Qdrant's recommend-by-examples API with Qdrant's
// BestScore strategy over the positive/negative event ID sets (spec
// §4.2's dynamic generator, fed by the dynamic generator's weighted
// interaction history).
func (idx *Index) RecommendEvents(ctx context.Context, positive, negative []uuid.UUID, limit int) ([]models.ScoredEvent, error) {
	if len(positive) == 0 && len(negative) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
	defer cancel()

	now := time.Now()
	lte := now.Add(idx.recencyWindow)

	points, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.eventsCollection,
		Query: qdrant.NewQueryRecommend(&qdrant.RecommendInput{
			Positive: pointIDs(positive),
			Negative: pointIDs(negative),
			Strategy: qdrant.RecommendStrategy_BestScore.Enum(),
		}),
		Filter:      recencyFilter(now, lte),
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recommend events: %w", err)
	}

	return idx.scoredEventsFromPoints(points), nil
}

// GetEventVectors retrieves raw embeddings for a set of event IDs. None of
// the candidate generators in this module calls it; the collaborative
// generator (C7) reads user vectors through GetUserVectors instead.
func (idx *Index) GetEventVectors(ctx context.Context, ids []uuid.UUID) ([][]float32, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
	defer cancel()

	records, err := idx.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: idx.eventsCollection,
		Ids:            pointIDs(ids),
		WithVectors:    qdrant.NewWithVectors(true),
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get event vectors: %w", err)
	}

	return vectorsFromRecords(records), nil
}

// GetUserVectors retrieves raw description embeddings for a set of user
// IDs, used by the collaborative generator (C7) to average a neighbor
// set's description vectors.
func (idx *Index) GetUserVectors(ctx context.Context, ids []int64) ([][]float32, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
	defer cancel()

	pointRefs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointRefs = append(pointRefs, qdrant.NewIDNum(uint64(id)))
	}

	records, err := idx.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: idx.usersCollection,
		Ids:            pointRefs,
		WithVectors:    qdrant.NewWithVectors(true),
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user vectors: %w", err)
	}

	return vectorsFromRecords(records), nil
}

func recencyFilter(gte, lte time.Time) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewRangeDatetime("datetime_from", &qdrant.DatetimeRange{
				Gte: qdrant.PtrOf(gte.Format(time.RFC3339)),
				Lte: qdrant.PtrOf(lte.Format(time.RFC3339)),
			}),
		},
	}
}

func pointIDs(ids []uuid.UUID) []*qdrant.PointId {
	refs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, qdrant.NewIDUUID(id.String()))
	}
	return refs
}

func eventPayload(event models.Event) (map[string]any, error) {
	payload := map[string]any{
		"id":            event.ID.String(),
		"title":         event.Title,
		"datetime_from": event.DatetimeFrom.Format(time.RFC3339),
		"service_id":    event.ServiceID,
		"service_type":  string(event.ServiceType),
	}
	if event.Description != nil {
		payload["description"] = *event.Description
	}
	if event.City != nil {
		payload["city"] = *event.City
	}
	if len(event.Tags) > 0 {
		payload["tags"] = event.Tags
	}
	return payload, nil
}

// scoredEventsFromPoints decodes a search/recommend response into scored
// events. A point whose payload is malformed (fails the same schema checked
// at upsert time, or fails the stricter per-field parse) is skipped and
// logged rather than failing the whole batch — one bad producer write must
// not blank out every other valid candidate in the response (spec §3).
func (idx *Index) scoredEventsFromPoints(points []*qdrant.ScoredPoint) []models.ScoredEvent {
	results := make([]models.ScoredEvent, 0, len(points))
	for _, point := range points {
		event, err := idx.eventFromValidatedPayload(point.GetPayload())
		if err != nil {
			idx.logger.WithError(err).Warn("skipping malformed event record returned by vector index")
			continue
		}
		results = append(results, models.ScoredEvent{Score: float64(point.GetScore()), Event: event})
	}
	return results
}

// eventFromValidatedPayload re-validates a retrieved payload against the
// same schema enforced on upsert (spec §3: "before upsert AND after
// retrieval") before decoding it, so a record that slipped past an older
// schema version or a non-conforming writer is rejected here too.
func (idx *Index) eventFromValidatedPayload(payload map[string]*qdrant.Value) (models.Event, error) {
	raw := rawPayloadMap(payload)

	result, err := idx.payloadSchema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to validate retrieved event payload: %w", err)
	}
	if !result.Valid() {
		return models.Event{}, fmt.Errorf("retrieved event payload failed schema validation: %v", result.Errors())
	}

	return eventFromPayload(payload)
}

// rawPayloadMap converts a Qdrant payload back into a plain map so it can
// be checked against the same schema used on upsert. Every value is read
// as a string; non-string values (such as the tags list) become "".
func rawPayloadMap(payload map[string]*qdrant.Value) map[string]any {
	raw := make(map[string]any, len(payload))
	for key, value := range payload {
		raw[key] = value.GetStringValue()
	}
	return raw
}

func eventFromPayload(payload map[string]*qdrant.Value) (models.Event, error) {
	var event models.Event

	idStr := payload["id"].GetStringValue()
	id, err := uuid.Parse(idStr)
	if err != nil {
		return event, fmt.Errorf("invalid event id %q: %w", idStr, err)
	}
	event.ID = id
	event.Title = payload["title"].GetStringValue()
	event.ServiceID = payload["service_id"].GetStringValue()
	event.ServiceType = models.EventSource(payload["service_type"].GetStringValue())

	if dt := payload["datetime_from"].GetStringValue(); dt != "" {
		parsed, err := time.Parse(time.RFC3339, dt)
		if err != nil {
			return event, fmt.Errorf("invalid datetime_from %q: %w", dt, err)
		}
		event.DatetimeFrom = parsed
	}

	if desc, ok := payload["description"]; ok {
		s := desc.GetStringValue()
		event.Description = &s
	}
	if city, ok := payload["city"]; ok {
		s := city.GetStringValue()
		event.City = &s
	}

	return event, nil
}

func vectorsFromRecords(records []*qdrant.RetrievedPoint) [][]float32 {
	vectors := make([][]float32, 0, len(records))
	for _, record := range records {
		if v := record.GetVectors().GetVector().GetData(); v != nil {
			vectors = append(vectors, v)
		}
	}
	return vectors
}
