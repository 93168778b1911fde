package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/anonto42/nano-midea/notifyfeed/internal/notifid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CommentEventSource yields comment notifications for a post author
type CommentEventSource interface {
	RecentCommentEvents(ctx context.Context, viewerID string, limit int) ([]models.NotificationEvent, error)
}

// PostgresCommentRepository reads comment events from PostgreSQL
type PostgresCommentRepository struct {
	db      *gorm.DB
	blocked BlockPredicate
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB, blocked BlockPredicate) *PostgresCommentRepository {
	if blocked == nil {
		blocked = NotBlockedEitherWay
	}
	return &PostgresCommentRepository{db: db, blocked: blocked}
}

type commentEventRow struct {
	PostID        int64
	CommentID     int64
	ActorID       string
	ActorUsername *string
	CreatedAt     *time.Time
}

// RecentCommentEvents returns up to limit comments left by other users on the
// viewer's posts, newest first. Comments the viewer dismissed are skipped in
// the query so the limit is spent on visible rows.
func (r *PostgresCommentRepository) RecentCommentEvents(ctx context.Context, viewerID string, limit int) ([]models.NotificationEvent, error) {
	var rows []commentEventRow
	err := r.db.WithContext(ctx).
		Table("comments AS c").
		Select("c.post_id AS post_id, c.id AS comment_id, c.author_id AS actor_id, u.username AS actor_username, c.created_at AS created_at").
		Joins("JOIN posts p ON p.id = c.post_id").
		Joins("LEFT JOIN users u ON u.id = c.author_id").
		Where("p.author_id = ?", viewerID).
		Where("c.author_id <> ?", viewerID).
		Where(r.blocked(viewerID, "c.author_id")).
		Where("NOT EXISTS (SELECT 1 FROM dismissed_notifications d WHERE d.user_id = ? AND d.notification_id = "+
			notifid.CommentIDExpr("c.post_id", "c.id")+")", viewerID).
		Order("c.created_at DESC").
		Order("c.post_id DESC").
		Order("c.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "unable to load comment events")
	}

	events := make([]models.NotificationEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, models.NotificationEvent{
			Kind:          models.EventKindComment,
			PostID:        row.PostID,
			CommentID:     row.CommentID,
			ActorID:       row.ActorID,
			ActorUsername: row.ActorUsername,
			OccurredAt:    row.CreatedAt,
		})
	}
	return events, nil
}
