package models

import "time"

// MaxNotificationIDLength bounds the stored notification_id column.
const MaxNotificationIDLength = 191

// DismissedNotification is one entry of a user's dismissal ledger. Rows are
// never updated; pruning deletes the oldest ones.
type DismissedNotification struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement;index:ix_dismissed_notifications_user_dismissed,priority:3,sort:desc"`
	UserID         string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_dismissed_notifications_user_notification,priority:1;index:ix_dismissed_notifications_user_dismissed,priority:1"`
	NotificationID string    `json:"notification_id" gorm:"size:191;not null;uniqueIndex:ux_dismissed_notifications_user_notification,priority:2"`
	DismissedAt    time.Time `json:"dismissed_at" gorm:"not null;index:ix_dismissed_notifications_user_dismissed,priority:2,sort:desc"`
}

func (DismissedNotification) TableName() string {
	return "dismissed_notifications"
}

// EventKind is the kind of a stream notification.
type EventKind string

const (
	EventKindComment EventKind = "comment"
	EventKindLike    EventKind = "like"
)

// NotificationEvent is a comment or like on one of the viewer's posts. It is
// derived from source rows on every read and never stored.
type NotificationEvent struct {
	Kind          EventKind
	PostID        int64
	CommentID     int64  // comment events only
	ActorID       string // commenter or liker
	ActorUsername *string
	OccurredAt    *time.Time
}

// FollowRequestEvent is a pending follow request targeting the viewer.
type FollowRequestEvent struct {
	ActorUserID      string
	ActorUsername    string
	ActorDisplayName string
	OccurredAt       *time.Time
}

// DismissNotificationRequest defines the request body for dismissing one notification
type DismissNotificationRequest struct {
	NotificationID string `json:"notificationId" validate:"required,max=191,notification_id"`
}

// DismissNotificationsBulkRequest defines the request body for dismissing several notifications
type DismissNotificationsBulkRequest struct {
	NotificationIDs []string `json:"notificationIds" validate:"required,min=1,max=64,dive,required,max=191,notification_id"`
}

type DismissNotificationResponse struct {
	NotificationID string    `json:"notificationId"`
	DismissedAt    time.Time `json:"dismissedAt"`
}

type DismissNotificationsBulkResponse struct {
	ProcessedCount int `json:"processedCount"`
}

type DismissedNotificationListResponse struct {
	NotificationIDs []string `json:"notificationIds"`
}

// NotificationStreamItem is a comment or like entry of the stream response.
type NotificationStreamItem struct {
	ID         string     `json:"id"`
	Kind       EventKind  `json:"kind"`
	Username   *string    `json:"username"`
	Message    string     `json:"message"`
	Href       string     `json:"href"`
	OccurredAt *time.Time `json:"occurredAt"`
}

// FollowStreamItem is a pending follow request entry of the stream response.
type FollowStreamItem struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Name       string     `json:"name"`
	Href       string     `json:"href"`
	OccurredAt *time.Time `json:"occurredAt"`
}

type NotificationStreamResponse struct {
	Notifications  []NotificationStreamItem `json:"notifications"`
	FollowRequests []FollowStreamItem       `json:"followRequests"`
	TotalCount     int                      `json:"totalCount"`
}
