// Package graph mirrors co-interaction edges discovered by the
// collaborative generator (C7) into Neo4j for offline analytics. It is a
// supplemental, fire-and-forget feature: nothing on the recommendation
// path ever reads from it, and a write failure here never fails a
// recommendation request.
package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// Mirror is the narrow surface the collaborative generator depends on.
type Mirror interface {
	MirrorNeighbors(ctx context.Context, userID int64, neighborIDs []int64)
}

type Neo4jMirror struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func New(driver neo4j.DriverWithContext, logger *logrus.Logger) *Neo4jMirror {
	return &Neo4jMirror{driver: driver, logger: logger}
}

// MirrorNeighbors writes one CO_INTERACTED edge per neighbor discovered
// during collaborative candidate generation. It runs in its own detached
// context with a short timeout and only logs on failure — the
// recommendation response never waits on it and never depends on its
// outcome.
func (m *Neo4jMirror) MirrorNeighbors(ctx context.Context, userID int64, neighborIDs []int64) {
	if len(neighborIDs) == 0 {
		return
	}

	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		session := m.driver.NewSession(writeCtx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(writeCtx)

		_, err := session.ExecuteWrite(writeCtx, func(tx neo4j.ManagedTransaction) (any, error) {
			for _, neighborID := range neighborIDs {
				_, err := tx.Run(writeCtx, `
					MERGE (u:User {id: $userID})
					MERGE (n:User {id: $neighborID})
					MERGE (u)-[e:CO_INTERACTED]->(n)
					SET e.last_seen = datetime()`,
					map[string]any{"userID": userID, "neighborID": neighborID},
				)
				if err != nil {
					return nil, err
				}
			}
			return nil, nil
		})

		if err != nil {
			m.logger.WithError(err).WithField("user_id", userID).Warn("failed to mirror neighbor graph edges")
		}
	}()
}

// NoopMirror is used when the neighbor graph is disabled (config.Graph.Enabled == false).
type NoopMirror struct{}

func (NoopMirror) MirrorNeighbors(ctx context.Context, userID int64, neighborIDs []int64) {}
