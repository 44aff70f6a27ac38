// Package health implements the liveness/readiness surface described in
// SPEC_FULL.md §4.9: it checks that the vector index, behavior log, and
// catalog connections are reachable, and never executes business logic.
package health

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/resonanse/recommender/internal/database"
)

type Status struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// pinger is satisfied by the vector index and behavior log connections.
type pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	db          *database.Database
	vectorIndex pinger
	behaviorLog pinger
	logger      *logrus.Logger
}

func NewChecker(db *database.Database, vectorIndex, behaviorLog pinger, logger *logrus.Logger) *Checker {
	return &Checker{db: db, vectorIndex: vectorIndex, behaviorLog: behaviorLog, logger: logger}
}

// Check pings the vector index, behavior log, and catalog connections
// (SPEC_FULL.md §4.9) and never executes business logic.
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := Status{Services: make(map[string]string)}
	healthy := true

	checks := map[string]func() error{
		"catalog": func() error { return c.db.PG.Ping(ctx) },
		"vector_index": func() error { return c.vectorIndex.Ping(ctx) },
		"behavior_log": func() error { return c.behaviorLog.Ping(ctx) },
	}

	for name, check := range checks {
		if err := check(); err != nil {
			status.Services[name] = "unhealthy"
			healthy = false
			c.logger.WithError(err).WithField("service", name).Warn("dependency health check failed")
		} else {
			status.Services[name] = "healthy"
		}
	}

	if healthy {
		status.Status = "healthy"
	} else {
		status.Status = "unhealthy"
	}

	return status
}
