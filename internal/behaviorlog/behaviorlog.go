// Package behaviorlog is the append-only interaction store (C3): every
// click/like/dislike a user makes, and an audit trail of every
// recommendation list ever handed out. Backed by ClickHouse, queried only
// for bounded, recency-ordered slices — it is never the catalog of record
// for an event or a user.
package behaviorlog

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/resonanse/recommender/internal/config"
	"github.com/resonanse/recommender/pkg/models"
)

const createInteractionsTable = `
CREATE TABLE IF NOT EXISTS users_interactions (
	user_id UInt64,
	event_id UUID,
	interaction_type String,
	interaction_dt DateTime
)
ENGINE MergeTree
ORDER BY interaction_dt`

const createGivenRecommendationsTable = `
CREATE TABLE IF NOT EXISTS given_recommendations (
	user_id UInt64,
	recommended_events Array(Tuple(event_id UUID, subsystem_kind String, score Float32)),
	recommendation_dt DateTime
)
ENGINE MergeTree
ORDER BY recommendation_dt`

// BehaviorLog is the interface the candidate generators and orchestrator
// depend on; it never exposes the underlying ClickHouse connection.
type BehaviorLog interface {
	InsertInteraction(ctx context.Context, userID int64, eventID uuid.UUID, kind models.InteractionKind) error
	InsertGivenRecommendation(ctx context.Context, userID int64, items []models.RecItem) error
	GetInteractionsByUser(ctx context.Context, userID int64, after time.Time, limit int) ([]models.Interaction, error)
	GetInteractionsByEvent(ctx context.Context, eventID uuid.UUID, after time.Time, limit int) ([]models.Interaction, error)
}

type Log struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func New(cfg *config.Config, logger *logrus.Logger) (*Log, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.BehaviorLog.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.BehaviorLog.Database,
			Username: cfg.BehaviorLog.Username,
			Password: cfg.BehaviorLog.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open behavior log connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping behavior log: %w", err)
	}

	if err := conn.Exec(ctx, createInteractionsTable); err != nil {
		return nil, fmt.Errorf("failed to create users_interactions table: %w", err)
	}
	if err := conn.Exec(ctx, createGivenRecommendationsTable); err != nil {
		return nil, fmt.Errorf("failed to create given_recommendations table: %w", err)
	}

	logger.Info("behavior log connection established")
	return &Log{conn: conn, logger: logger}, nil
}

func (l *Log) InsertInteraction(ctx context.Context, userID int64, eventID uuid.UUID, kind models.InteractionKind) error {
	batch, err := l.conn.PrepareBatch(ctx, "INSERT INTO users_interactions")
	if err != nil {
		return fmt.Errorf("failed to prepare interaction batch: %w", err)
	}

	if err := batch.Append(uint64(userID), eventID, string(kind), time.Now()); err != nil {
		return fmt.Errorf("failed to append interaction row: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}

// clickhouseRecommendedEvent mirrors the Array(Tuple(...)) column shape of
// given_recommendations row-for-row.
type clickhouseRecommendedEvent struct {
	EventID   uuid.UUID `ch:"event_id"`
	Subsystem string    `ch:"subsystem_kind"`
	Score     float32   `ch:"score"`
}

func (l *Log) InsertGivenRecommendation(ctx context.Context, userID int64, items []models.RecItem) error {
	recommended := make([]clickhouseRecommendedEvent, 0, len(items))
	for _, item := range items {
		recommended = append(recommended, clickhouseRecommendedEvent{
			EventID:   item.Event.ID,
			Subsystem: string(item.Subsystem),
			Score:     float32(item.Score),
		})
	}

	batch, err := l.conn.PrepareBatch(ctx, "INSERT INTO given_recommendations")
	if err != nil {
		return fmt.Errorf("failed to prepare recommendation audit batch: %w", err)
	}

	if err := batch.Append(uint64(userID), recommended, time.Now()); err != nil {
		return fmt.Errorf("failed to append recommendation audit row: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert recommendation audit row: %w", err)
	}
	return nil
}

func (l *Log) GetInteractionsByUser(ctx context.Context, userID int64, after time.Time, limit int) ([]models.Interaction, error) {
	rows, err := l.conn.Query(ctx, `
		SELECT user_id, event_id, interaction_type, interaction_dt
		FROM users_interactions
		WHERE user_id = $1 AND interaction_dt >= $2
		ORDER BY interaction_dt DESC
		LIMIT $3`, uint64(userID), after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions by user: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

func (l *Log) GetInteractionsByEvent(ctx context.Context, eventID uuid.UUID, after time.Time, limit int) ([]models.Interaction, error) {
	rows, err := l.conn.Query(ctx, `
		SELECT user_id, event_id, interaction_type, interaction_dt
		FROM users_interactions
		WHERE event_id = $1 AND interaction_dt >= $2
		ORDER BY interaction_dt DESC
		LIMIT $3`, eventID, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions by event: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

func scanInteractions(rows driver.Rows) ([]models.Interaction, error) {
	var interactions []models.Interaction
	for rows.Next() {
		var (
			userID  uint64
			eventID uuid.UUID
			kind    string
			at      time.Time
		)
		if err := rows.Scan(&userID, &eventID, &kind, &at); err != nil {
			return nil, fmt.Errorf("failed to scan interaction row: %w", err)
		}
		interactions = append(interactions, models.Interaction{
			UserID:    int64(userID),
			EventID:   eventID,
			Kind:      models.InteractionKind(kind),
			Timestamp: at,
		})
	}
	return interactions, rows.Err()
}

func (l *Log) Ping(ctx context.Context) error {
	return l.conn.Ping(ctx)
}

func (l *Log) Close() error {
	return l.conn.Close()
}
