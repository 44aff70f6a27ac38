package recommend

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/resonanse/recommender/pkg/models"
)

func recItem(subsystem models.RecSubsystem, score float64) models.RecItem {
	return models.RecItem{
		Subsystem: subsystem,
		Score:     score,
		Event:     models.Event{ID: uuid.New()},
	}
}

func TestBlender_RespectsMinByGroupFloor(t *testing.T) {
	b := NewBlender(2, 10)

	basic := []models.RecItem{recItem(models.SubsystemBasic, 0.9), recItem(models.SubsystemBasic, 0.8)}
	dynamic := []models.RecItem{recItem(models.SubsystemDynamic, 0.5), recItem(models.SubsystemDynamic, 0.4)}
	collaborative := []models.RecItem{recItem(models.SubsystemCollaborative, 0.1), recItem(models.SubsystemCollaborative, 0.05)}

	result := b.Blend([][]models.RecItem{basic, dynamic, collaborative})

	counts := map[models.RecSubsystem]int{}
	for _, item := range result {
		counts[item.Subsystem]++
	}

	assert.GreaterOrEqual(t, counts[models.SubsystemBasic], 2)
	assert.GreaterOrEqual(t, counts[models.SubsystemDynamic], 2)
	assert.GreaterOrEqual(t, counts[models.SubsystemCollaborative], 2)
}

func TestBlender_NeverExceedsLimit(t *testing.T) {
	b := NewBlender(2, 5)

	var basic []models.RecItem
	for i := 0; i < 10; i++ {
		basic = append(basic, recItem(models.SubsystemBasic, float64(10-i)))
	}

	result := b.Blend([][]models.RecItem{basic, nil, nil})
	assert.LessOrEqual(t, len(result), 5)
}

func TestBlender_DedupesAcrossGroups(t *testing.T) {
	b := NewBlender(1, 10)

	shared := recItem(models.SubsystemBasic, 0.9)
	sameEventOtherSubsystem := shared
	sameEventOtherSubsystem.Subsystem = models.SubsystemDynamic
	sameEventOtherSubsystem.Score = 0.95

	basic := []models.RecItem{shared}
	dynamic := []models.RecItem{sameEventOtherSubsystem}

	result := b.Blend([][]models.RecItem{basic, dynamic, nil})

	seen := map[uuid.UUID]int{}
	for _, item := range result {
		seen[item.Event.ID]++
	}
	for id, count := range seen {
		assert.Equalf(t, 1, count, "event %s appeared more than once", id)
	}
}

func TestBlender_FillPhaseOrdersByScoreDescending(t *testing.T) {
	b := NewBlender(0, 10)

	basic := []models.RecItem{recItem(models.SubsystemBasic, 0.2)}
	dynamic := []models.RecItem{recItem(models.SubsystemDynamic, 0.9)}
	collaborative := []models.RecItem{recItem(models.SubsystemCollaborative, 0.5)}

	result := b.Blend([][]models.RecItem{basic, dynamic, collaborative})

	require := assert.New(t)
	require.Len(result, 3)
	require.Equal(models.SubsystemDynamic, result[0].Subsystem)
	require.Equal(models.SubsystemCollaborative, result[1].Subsystem)
	require.Equal(models.SubsystemBasic, result[2].Subsystem)
}
