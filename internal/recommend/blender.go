package recommend

import (
	"sort"

	"github.com/google/uuid"

	"github.com/resonanse/recommender/pkg/models"
)

// Blender is C9: merges the three rescored per-subsystem groups into one
// final list via a fairness phase followed by a score-ordered fill phase.
// The result is never re-sorted afterward — it reflects fairness-then-
// score order, not pure score order.
type Blender struct {
	minByGroup int
	limit      int
}

func NewBlender(minByGroup, limit int) *Blender {
	return &Blender{minByGroup: minByGroup, limit: limit}
}

// Blend expects groups in fixed BASIC, DYNAMIC, COLLABORATIVE order.
func (b *Blender) Blend(groups [][]models.RecItem) []models.RecItem {
	prepared := make([][]models.RecItem, len(groups))
	for i, group := range groups {
		prepared[i] = sortTruncateDedupe(group, b.limit)
	}

	selected := make(map[uuid.UUID]struct{})
	var result []models.RecItem

	// Fairness phase: walk index 0..minByGroup-1, taking the first
	// unselected item from each group in fixed order.
	for index := 0; index < b.minByGroup; index++ {
		for groupIdx := range prepared {
			item, ok := firstUnselected(prepared[groupIdx], selected)
			if !ok {
				continue
			}
			result = append(result, item)
			selected[item.Event.ID] = struct{}{}
		}
	}

	if len(result) > b.limit {
		return result[:b.limit]
	}

	// Fill phase: merge remaining items into one bag, repeatedly picking
	// the highest-scoring unselected item.
	var bag []models.RecItem
	for _, group := range prepared {
		for _, item := range group {
			if _, ok := selected[item.Event.ID]; ok {
				continue
			}
			bag = append(bag, item)
		}
	}
	sort.SliceStable(bag, func(i, j int) bool { return bag[i].Score > bag[j].Score })

	for _, item := range bag {
		if len(result) >= b.limit {
			break
		}
		if _, ok := selected[item.Event.ID]; ok {
			continue
		}
		result = append(result, item)
		selected[item.Event.ID] = struct{}{}
	}

	return result
}

func sortTruncateDedupe(items []models.RecItem, limit int) []models.RecItem {
	sorted := make([]models.RecItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	seen := make(map[uuid.UUID]struct{}, len(sorted))
	deduped := make([]models.RecItem, 0, len(sorted))
	for _, item := range sorted {
		if _, ok := seen[item.Event.ID]; ok {
			continue
		}
		seen[item.Event.ID] = struct{}{}
		deduped = append(deduped, item)
		if len(deduped) == limit {
			break
		}
	}
	return deduped
}

func firstUnselected(items []models.RecItem, selected map[uuid.UUID]struct{}) (models.RecItem, bool) {
	for _, item := range items {
		if _, ok := selected[item.Event.ID]; !ok {
			return item, true
		}
	}
	return models.RecItem{}, false
}
