// Package catalog is the thin Postgres-backed view onto the event and user
// catalog (C4). The catalog itself is owned by the ingestion pipeline; this
// package only reads what the recommender needs and writes back the one
// field the recommender owns — a user's free-text description.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

// ErrUserNotFound is returned when no catalog row exists for a user ID.
var ErrUserNotFound = errors.New("user not found in catalog")

// Catalog is the narrow surface the orchestrator depends on.
type Catalog interface {
	GetUserDescription(ctx context.Context, userID int64) (string, error)
	SetUserDescription(ctx context.Context, userID int64, description string) error
}

// DatabaseQuerier is satisfied by *pgxpool.Pool and by pgxmock.PgxPoolIface,
// which keeps PostgresCatalog testable without a live Postgres connection.
type DatabaseQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type PostgresCatalog struct {
	pool   DatabaseQuerier
	logger *logrus.Logger
}

func New(pool DatabaseQuerier, logger *logrus.Logger) *PostgresCatalog {
	return &PostgresCatalog{pool: pool, logger: logger}
}

// GetUserDescription returns the user's free-text profile description, used
// by the orchestrator as the query text for the static generator (C5). An
// empty string (no error) is returned if the user has no description yet.
func (c *PostgresCatalog) GetUserDescription(ctx context.Context, userID int64) (string, error) {
	var description *string
	err := c.pool.QueryRow(ctx,
		`SELECT description FROM resonanse_users WHERE id = $1`, userID,
	).Scan(&description)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch user description: %w", err)
	}

	if description == nil {
		return "", nil
	}
	return *description, nil
}

// SetUserDescription updates the recommender-visible free-text description
// for a user. It never creates a user row — the catalog's owning service
// does that; this only updates the field the recommender reads back.
func (c *PostgresCatalog) SetUserDescription(ctx context.Context, userID int64, description string) error {
	tag, err := c.pool.Exec(ctx,
		`UPDATE resonanse_users SET description = $1 WHERE id = $2`, description, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set user description: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
