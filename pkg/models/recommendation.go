package models

// RecSubsystem tags a RecItem with the candidate generator that produced
// it. It is set once at generation time and the blender never rewrites it.
type RecSubsystem string

const (
	SubsystemBasic         RecSubsystem = "BASIC"
	SubsystemDynamic       RecSubsystem = "DYNAMIC"
	SubsystemCollaborative RecSubsystem = "COLLABORATIVE"
)

// RecItem is the in-memory result unit produced by a candidate generator
// and carried through rescoring and blending. Score is the only mutable
// field; Subsystem and Event never change after construction.
type RecItem struct {
	Subsystem RecSubsystem `json:"subsystem"`
	Event     Event        `json:"event"`
	Score     float64      `json:"score"`
}

// ScoredEvent is a raw (score, event) hit returned by the vector index,
// before it is wrapped into a RecItem tagged with a subsystem.
type ScoredEvent struct {
	Score float64
	Event Event
}
