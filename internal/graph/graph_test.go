package graph

import (
	"context"
	"testing"
)

func TestNoopMirror_NeverPanics(t *testing.T) {
	var m NoopMirror
	m.MirrorNeighbors(context.Background(), 1, []int64{2, 3, 4})
	m.MirrorNeighbors(context.Background(), 1, nil)
}
