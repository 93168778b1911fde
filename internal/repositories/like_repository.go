package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/anonto42/nano-midea/notifyfeed/internal/notifid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// LikeEventSource yields like notifications for a post author
type LikeEventSource interface {
	RecentLikeEvents(ctx context.Context, viewerID string, limit int) ([]models.NotificationEvent, error)
}

// PostgresLikeRepository reads like events from PostgreSQL
type PostgresLikeRepository struct {
	db      *gorm.DB
	blocked BlockPredicate
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB, blocked BlockPredicate) *PostgresLikeRepository {
	if blocked == nil {
		blocked = NotBlockedEitherWay
	}
	return &PostgresLikeRepository{db: db, blocked: blocked}
}

type likeEventRow struct {
	PostID        int64
	ActorID       string
	ActorUsername *string
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
}

// RecentLikeEvents returns up to limit likes by other users on the viewer's
// posts, newest first by effective time. A like stays hidden only while a
// current or legacy dismissal is at least as new as the like itself.
func (r *PostgresLikeRepository) RecentLikeEvents(ctx context.Context, viewerID string, limit int) ([]models.NotificationEvent, error) {
	var rows []likeEventRow
	err := r.db.WithContext(ctx).
		Table("likes AS l").
		Select("l.post_id AS post_id, l.user_id AS actor_id, u.username AS actor_username, l.created_at AS created_at, l.updated_at AS updated_at").
		Joins("JOIN posts p ON p.id = l.post_id").
		Joins("LEFT JOIN users u ON u.id = l.user_id").
		Where("p.author_id = ?", viewerID).
		Where("l.user_id <> ?", viewerID).
		Where(r.blocked(viewerID, "l.user_id")).
		Where("NOT EXISTS (SELECT 1 FROM dismissed_notifications d WHERE d.user_id = ? AND d.notification_id IN ("+
			notifid.LikeIDExpr("l.post_id", "l.user_id")+", "+notifid.LegacyLikeIDExpr("l.post_id")+
			") AND d.dismissed_at >= COALESCE(l.updated_at, l.created_at))", viewerID).
		Order("COALESCE(l.updated_at, l.created_at) DESC").
		Order("l.post_id DESC").
		Order("l.user_id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "unable to load like events")
	}

	events := make([]models.NotificationEvent, 0, len(rows))
	for _, row := range rows {
		occurredAt := row.UpdatedAt
		if occurredAt == nil {
			occurredAt = row.CreatedAt
		}
		events = append(events, models.NotificationEvent{
			Kind:          models.EventKindLike,
			PostID:        row.PostID,
			ActorID:       row.ActorID,
			ActorUsername: row.ActorUsername,
			OccurredAt:    occurredAt,
		})
	}
	return events, nil
}
