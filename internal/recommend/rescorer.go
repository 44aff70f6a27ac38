package recommend

import (
	"math"
	"math/rand"
	"time"

	"github.com/resonanse/recommender/pkg/models"
)

// Rescorer is C8: exponential time decay followed by uniform jitter,
// applied in that exact order. A caller must never rescore the same list
// twice — the jitter is only idempotent in expectation.
type Rescorer struct {
	decayRate       float64
	jitterAmplitude float64
}

func NewRescorer(decayRate, jitterAmplitude float64) *Rescorer {
	return &Rescorer{decayRate: decayRate, jitterAmplitude: jitterAmplitude}
}

func (r *Rescorer) Rescore(items []models.RecItem) []models.RecItem {
	now := time.Now()
	rescored := make([]models.RecItem, len(items))

	for i, item := range items {
		days := math.Abs(now.Sub(item.Event.DatetimeFrom).Hours() / 24)
		item.Score *= math.Exp(-r.decayRate * days)
		item.Score += (rand.Float64()*2 - 1) * r.jitterAmplitude
		rescored[i] = item
	}

	return rescored
}
