package models

// InteractionKind enumerates the user-event interaction types recorded in
// the behavior log.
type InteractionKind string

const (
	InteractionClick   InteractionKind = "click"
	InteractionLike    InteractionKind = "like"
	InteractionDislike InteractionKind = "dislike"
)

// ExplicitCoefficient is the standard multiplier for LIKE/DISLIKE signals
// so they outweigh implicit CLICK signals. The dynamic candidate generator
// does not read this constant; it takes its coefficient from configuration
// (recommendation.explicit_coefficient, default 5).
const ExplicitCoefficient = 5
