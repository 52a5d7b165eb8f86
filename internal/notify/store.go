package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/metrics"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store writes notifications to the notifications table, where the
// delivery channel (mail, in-app feed) picks them up.
type Store struct {
	db      DB
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewStore(db DB, logger *zap.Logger, m *metrics.Metrics) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, metrics: m}
}

func (s *Store) Notify(ctx context.Context, userID uuid.UUID, kind, message, link string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, kind, message, link, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), now())
	`, uuid.New(), userID, kind, message, link)
	if err != nil {
		s.metrics.ObserveNotification("failed")
		return fmt.Errorf("insert notification: %w", err)
	}

	s.metrics.ObserveNotification("stored")
	s.logger.Debug("notification stored",
		zap.String("user_id", userID.String()),
		zap.String("kind", kind),
	)
	return nil
}
