package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/anonto42/nano-midea/notifyfeed/internal/notifid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// FollowRequestSource yields pending follow requests targeting a user
type FollowRequestSource interface {
	PendingFollowRequests(ctx context.Context, viewerID string, limit int) ([]models.FollowRequestEvent, error)
}

// PostgresFollowRequestRepository reads follow requests from PostgreSQL
type PostgresFollowRequestRepository struct {
	db      *gorm.DB
	blocked BlockPredicate
}

// NewPostgresFollowRequestRepository creates a new PostgresFollowRequestRepository
func NewPostgresFollowRequestRepository(db *gorm.DB, blocked BlockPredicate) *PostgresFollowRequestRepository {
	if blocked == nil {
		blocked = NotBlockedEitherWay
	}
	return &PostgresFollowRequestRepository{db: db, blocked: blocked}
}

type followRequestRow struct {
	ActorUserID      string
	ActorUsername    *string
	ActorDisplayName *string
	CreatedAt        *time.Time
}

// PendingFollowRequests returns up to limit pending requests, newest first.
// Requesters without a username are left out.
func (r *PostgresFollowRequestRepository) PendingFollowRequests(ctx context.Context, viewerID string, limit int) ([]models.FollowRequestEvent, error) {
	var rows []followRequestRow
	err := r.db.WithContext(ctx).
		Table("follow_requests AS f").
		Select("f.requester_id AS actor_user_id, u.username AS actor_username, u.name AS actor_display_name, f.created_at AS created_at").
		Joins("JOIN users u ON u.id = f.requester_id").
		Where("f.target_id = ?", viewerID).
		Where("u.username IS NOT NULL AND u.username <> ''").
		Where(r.blocked(viewerID, "f.requester_id")).
		Where("NOT EXISTS (SELECT 1 FROM dismissed_notifications d WHERE d.user_id = ? AND d.notification_id = "+
			notifid.FollowIDExpr("f.requester_id")+" AND d.dismissed_at >= f.created_at)", viewerID).
		Order("f.created_at DESC").
		Order("f.requester_id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "unable to load follow requests")
	}

	events := make([]models.FollowRequestEvent, 0, len(rows))
	for _, row := range rows {
		event := models.FollowRequestEvent{
			ActorUserID: row.ActorUserID,
			OccurredAt:  row.CreatedAt,
		}
		if row.ActorUsername != nil {
			event.ActorUsername = *row.ActorUsername
		}
		if row.ActorDisplayName != nil {
			event.ActorDisplayName = *row.ActorDisplayName
		}
		events = append(events, event)
	}
	return events, nil
}
