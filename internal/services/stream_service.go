package services

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/anonto42/nano-midea/notifyfeed/internal/notifid"
	"github.com/anonto42/nano-midea/notifyfeed/internal/repositories"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultStreamLimit = 16
	MaxStreamLimit     = 32
	DefaultFollowLimit = 8
	MaxFollowLimit     = 32

	// MaxFetchBudget bounds how many raw events a single source is asked for.
	MaxFetchBudget = MaxDismissedLimit + MaxStreamLimit

	commentMessage = "commented on your post"
	likeMessage    = "liked your post"
)

// StreamOptions are the page sizes of a stream read. Zero means the default.
type StreamOptions struct {
	Limit       int
	FollowLimit int
}

func (o StreamOptions) normalize() StreamOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultStreamLimit
	}
	if o.Limit > MaxStreamLimit {
		o.Limit = MaxStreamLimit
	}
	if o.FollowLimit <= 0 {
		o.FollowLimit = DefaultFollowLimit
	}
	if o.FollowLimit > MaxFollowLimit {
		o.FollowLimit = MaxFollowLimit
	}
	return o
}

// FetchBudget is how many events to request from each source so that limit
// visible events remain after dismissedCount of them are filtered out.
func FetchBudget(limit, dismissedCount int) int {
	budget := limit + dismissedCount
	if budget > MaxFetchBudget {
		return MaxFetchBudget
	}
	return budget
}

// DismissalWindow exposes the recent part of a user's dismissal ledger.
type DismissalWindow interface {
	ListDismissedSince(ctx context.Context, userID string, limit int) (map[string]time.Time, error)
}

// StreamService assembles a user's notification stream from the comment,
// like and follow-request sources.
type StreamService struct {
	dismissals DismissalWindow
	comments   repositories.CommentEventSource
	likes      repositories.LikeEventSource
	follows    repositories.FollowRequestSource
}

// NewStreamService creates a new StreamService
func NewStreamService(
	dismissals DismissalWindow,
	comments repositories.CommentEventSource,
	likes repositories.LikeEventSource,
	follows repositories.FollowRequestSource,
) *StreamService {
	return &StreamService{
		dismissals: dismissals,
		comments:   comments,
		likes:      likes,
		follows:    follows,
	}
}

// LoadStream returns the newest undismissed notifications and pending follow
// requests for userID. Each source is queried exactly once. A failing source
// fails the whole call.
func (s *StreamService) LoadStream(ctx context.Context, userID string, opts StreamOptions) (*models.NotificationStreamResponse, error) {
	opts = opts.normalize()

	dismissed, err := s.dismissals.ListDismissedSince(ctx, userID, MaxDismissedLimit)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load dismissed notifications")
	}
	budget := FetchBudget(opts.Limit, len(dismissed))

	var comments, likes []models.NotificationEvent
	var follows []models.FollowRequestEvent

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		comments, err = s.comments.RecentCommentEvents(gctx, userID, budget)
		return err
	})
	g.Go(func() error {
		var err error
		likes, err = s.likes.RecentLikeEvents(gctx, userID, budget)
		return err
	})
	g.Go(func() error {
		var err error
		follows, err = s.follows.PendingFollowRequests(gctx, userID, opts.FollowLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "unable to load notification stream")
	}

	events := mergeEvents(comments, likes)

	notifications := make([]models.NotificationStreamItem, 0, opts.Limit)
	for _, event := range events {
		if len(notifications) == opts.Limit {
			break
		}
		id := eventID(event)
		if !isVisible(id, event.OccurredAt, dismissed) {
			continue
		}
		notifications = append(notifications, notificationItem(id, event))
	}

	followRequests := make([]models.FollowStreamItem, 0, len(follows))
	for _, event := range follows {
		if len(followRequests) == opts.FollowLimit {
			break
		}
		if event.ActorUsername == "" {
			continue
		}
		id := notifid.Follow{ActorID: event.ActorUserID}
		if !isVisible(id, event.OccurredAt, dismissed) {
			continue
		}
		followRequests = append(followRequests, followItem(id, event))
	}

	return &models.NotificationStreamResponse{
		Notifications:  notifications,
		FollowRequests: followRequests,
		TotalCount:     len(notifications) + len(followRequests),
	}, nil
}

// mergeEvents combines both sources newest first. Events without a time sort
// last and the remaining keys make the order total.
func mergeEvents(comments, likes []models.NotificationEvent) []models.NotificationEvent {
	events := make([]models.NotificationEvent, 0, len(comments)+len(likes))
	events = append(events, comments...)
	events = append(events, likes...)

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch {
		case a.OccurredAt == nil && b.OccurredAt != nil:
			return false
		case a.OccurredAt != nil && b.OccurredAt == nil:
			return true
		case a.OccurredAt != nil && !a.OccurredAt.Equal(*b.OccurredAt):
			return a.OccurredAt.After(*b.OccurredAt)
		}
		if a.PostID != b.PostID {
			return a.PostID > b.PostID
		}
		if a.Kind != b.Kind {
			return a.Kind == models.EventKindComment
		}
		if a.CommentID != b.CommentID {
			return a.CommentID > b.CommentID
		}
		return a.ActorID > b.ActorID
	})
	return events
}

func eventID(event models.NotificationEvent) notifid.ID {
	if event.Kind == models.EventKindComment {
		return notifid.Comment{PostID: event.PostID, CommentID: event.CommentID}
	}
	return notifid.Like{PostID: event.PostID, ActorID: event.ActorID}
}

// isVisible applies the per-kind dismissal rule. Comments stay hidden once
// dismissed. Likes and follow requests come back when the event is newer
// than every dismissal that matches it.
func isVisible(id notifid.ID, occurredAt *time.Time, dismissed map[string]time.Time) bool {
	switch v := id.(type) {
	case notifid.Comment:
		_, hidden := dismissed[v.String()]
		return !hidden
	case notifid.Like:
		return newerThanDismissals(occurredAt, dismissed, v.String(), v.Legacy().String())
	case notifid.LegacyLike:
		_, hidden := dismissed[v.String()]
		return !hidden
	case notifid.Follow:
		return newerThanDismissals(occurredAt, dismissed, v.String())
	}
	return true
}

func newerThanDismissals(occurredAt *time.Time, dismissed map[string]time.Time, keys ...string) bool {
	for _, key := range keys {
		dismissedAt, ok := dismissed[key]
		if !ok {
			continue
		}
		if occurredAt == nil || !occurredAt.After(dismissedAt) {
			return false
		}
	}
	return true
}

func postHref(postID int64) string {
	return "/posts/" + strconv.FormatInt(postID, 10)
}

func notificationItem(id notifid.ID, event models.NotificationEvent) models.NotificationStreamItem {
	message := likeMessage
	if event.Kind == models.EventKindComment {
		message = commentMessage
	}
	return models.NotificationStreamItem{
		ID:         id.String(),
		Kind:       event.Kind,
		Username:   event.ActorUsername,
		Message:    message,
		Href:       postHref(event.PostID),
		OccurredAt: event.OccurredAt,
	}
}

func followItem(id notifid.Follow, event models.FollowRequestEvent) models.FollowStreamItem {
	name := event.ActorDisplayName
	if name == "" {
		name = event.ActorUsername
	}
	return models.FollowStreamItem{
		ID:         id.String(),
		Username:   event.ActorUsername,
		Name:       name,
		Href:       "/users/" + url.PathEscape(event.ActorUsername),
		OccurredAt: event.OccurredAt,
	}
}
