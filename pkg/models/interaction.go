package models

import (
	"time"

	"github.com/google/uuid"
)

// Interaction is one append-only (user, event, kind, time) record in the
// behavior log (C3).
type Interaction struct {
	UserID    int64           `json:"user_id"`
	EventID   uuid.UUID       `json:"event_id"`
	Kind      InteractionKind `json:"interaction_type"`
	Timestamp time.Time       `json:"interaction_dt"`
}

// RecommendedEvent is one entry of an audit row recorded after a
// recommendation request completes.
type RecommendedEvent struct {
	EventID   uuid.UUID     `json:"event_id"`
	Subsystem RecSubsystem  `json:"subsystem"`
	Score     float64       `json:"score"`
}

// GivenRecommendation is the append-only audit row written to the behavior
// log for every completed recommendation request.
type GivenRecommendation struct {
	UserID           int64              `json:"user_id"`
	RecommendedEvents []RecommendedEvent `json:"recommended_events"`
	Timestamp        time.Time          `json:"recommendation_dt"`
}
