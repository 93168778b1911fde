package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/anonto42/nano-midea/notifyfeed/internal/notifid"
	"github.com/anonto42/nano-midea/notifyfeed/internal/repositories"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// MaxDismissedLimit caps how much of the ledger is read at once.
	MaxDismissedLimit = 500
	// DefaultDismissedListLimit is the page size of the dismissed listing.
	DefaultDismissedListLimit = 250
	// MaxBulkDismiss caps the ids accepted by DismissMany.
	MaxBulkDismiss = 64

	DefaultKeepLimit      = 500
	DefaultPruneBatchSize = 100

	backgroundPruneTimeout = 30 * time.Second
)

// DismissResult is the ledger entry a dismiss call resolved to.
type DismissResult struct {
	NotificationID string
	DismissedAt    time.Time
}

// PruneOptions bounds a single user's prune. KeepLimit of zero removes every
// entry; MaxDeleted of zero means no cap.
type PruneOptions struct {
	KeepLimit  int
	BatchSize  int
	MaxDeleted int
}

// DefaultPruneOptions keeps the newest 500 entries, deleting 100 per batch.
func DefaultPruneOptions() PruneOptions {
	return PruneOptions{KeepLimit: DefaultKeepLimit, BatchSize: DefaultPruneBatchSize}
}

// DismissalService owns the per-user dismissal ledger
type DismissalService struct {
	repo         repositories.DismissalRepository
	pruneOptions PruneOptions
	autoPrune    bool
	now          func() time.Time
	log          *logrus.Entry

	pruneGroup singleflight.Group
	pending    sync.WaitGroup
}

// DismissalServiceOption customizes a DismissalService.
type DismissalServiceOption func(*DismissalService)

// WithClock replaces the time source used for dismissedAt.
func WithClock(now func() time.Time) DismissalServiceOption {
	return func(s *DismissalService) { s.now = now }
}

// WithBackgroundPrune sets the options of the prune that follows a new
// dismissal. Passing enabled=false turns it off.
func WithBackgroundPrune(enabled bool, opts PruneOptions) DismissalServiceOption {
	return func(s *DismissalService) {
		s.autoPrune = enabled
		s.pruneOptions = opts
	}
}

// WithLogger sets the logger used for background failures.
func WithLogger(log *logrus.Entry) DismissalServiceOption {
	return func(s *DismissalService) { s.log = log }
}

// NewDismissalService creates a new DismissalService
func NewDismissalService(repo repositories.DismissalRepository, opts ...DismissalServiceOption) *DismissalService {
	s := &DismissalService{
		repo:         repo,
		pruneOptions: DefaultPruneOptions(),
		autoPrune:    true,
		now:          time.Now,
		log:          logrus.WithField("component", "dismissal_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func clampDismissedLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxDismissedLimit {
		return MaxDismissedLimit
	}
	return limit
}

// ListDismissedIDs returns the user's most recently dismissed ids, newest first.
func (s *DismissalService) ListDismissedIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	records, err := s.repo.ListRecent(ctx, userID, clampDismissedLimit(limit))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.NotificationID)
	}
	return ids, nil
}

// ListDismissedSince returns the same window as ListDismissedIDs keyed by
// notification id.
func (s *DismissalService) ListDismissedSince(ctx context.Context, userID string, limit int) (map[string]time.Time, error) {
	records, err := s.repo.ListRecent(ctx, userID, clampDismissedLimit(limit))
	if err != nil {
		return nil, err
	}
	dismissed := make(map[string]time.Time, len(records))
	for _, rec := range records {
		dismissed[rec.NotificationID] = rec.DismissedAt
	}
	return dismissed, nil
}

func normalizeNotificationID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch {
	case id == "":
		return "", NewValidationError("notificationId", "must not be blank")
	case len(id) > models.MaxNotificationIDLength:
		return "", NewValidationError("notificationId", "must be at most %d characters", models.MaxNotificationIDLength)
	case !notifid.IsSupported(id):
		return "", NewValidationError("notificationId", "unsupported notification id `%s`", id)
	}
	return id, nil
}

func resultOf(rec *models.DismissedNotification) *DismissResult {
	return &DismissResult{NotificationID: rec.NotificationID, DismissedAt: rec.DismissedAt}
}

// Dismiss records that userID dismissed notificationID. Repeating the call
// returns the original entry unchanged.
func (s *DismissalService) Dismiss(ctx context.Context, userID, notificationID string) (*DismissResult, error) {
	id, err := normalizeNotificationID(notificationID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return resultOf(existing), nil
	}

	record := &models.DismissedNotification{
		UserID:         userID,
		NotificationID: id,
		DismissedAt:    s.now().UTC().Truncate(time.Microsecond),
	}
	err = s.repo.Create(ctx, record)
	if errors.Is(err, repositories.ErrDuplicateDismissal) {
		// A concurrent dismiss won the insert; report its row.
		winner, findErr := s.repo.Find(ctx, userID, id)
		if findErr != nil {
			return nil, findErr
		}
		if winner == nil {
			return nil, errors.Errorf("dismissal of `%s` conflicted but could not be re-read", id)
		}
		return resultOf(winner), nil
	}
	if err != nil {
		return nil, err
	}

	s.schedulePrune(userID)
	return resultOf(record), nil
}

// DismissMany dismisses every id in notificationIDs and returns how many
// distinct ids were processed. All ids are validated before anything is
// written.
func (s *DismissalService) DismissMany(ctx context.Context, userID string, notificationIDs []string) (int, error) {
	if len(notificationIDs) == 0 {
		return 0, NewValidationError("notificationIds", "must not be empty")
	}
	if len(notificationIDs) > MaxBulkDismiss {
		return 0, NewValidationError("notificationIds", "must contain at most %d ids", MaxBulkDismiss)
	}

	unique := make([]string, 0, len(notificationIDs))
	seen := make(map[string]struct{}, len(notificationIDs))
	for _, raw := range notificationIDs {
		id, err := normalizeNotificationID(raw)
		if err != nil {
			return 0, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	existing, err := s.repo.FindExisting(ctx, userID, unique)
	if err != nil {
		return 0, err
	}

	dismissedAt := s.now().UTC().Truncate(time.Microsecond)
	missing := make([]models.DismissedNotification, 0, len(unique))
	for _, id := range unique {
		if _, ok := existing[id]; ok {
			continue
		}
		missing = append(missing, models.DismissedNotification{
			UserID:         userID,
			NotificationID: id,
			DismissedAt:    dismissedAt,
		})
	}
	if len(missing) == 0 {
		return len(unique), nil
	}

	err = s.repo.CreateBatch(ctx, missing)
	switch {
	case errors.Is(err, repositories.ErrDuplicateDismissal):
		// Someone else dismissed part of the batch meanwhile; settle id by id.
		for _, rec := range missing {
			if _, err := s.Dismiss(ctx, userID, rec.NotificationID); err != nil {
				return 0, err
			}
		}
	case err != nil:
		return 0, err
	default:
		s.schedulePrune(userID)
	}
	return len(unique), nil
}

// Prune deletes the user's oldest dismissals beyond opts.KeepLimit, batch by
// batch, and returns how many rows were removed.
func (s *DismissalService) Prune(ctx context.Context, userID string, opts PruneOptions) (int, error) {
	if opts.KeepLimit < 0 {
		return 0, NewValidationError("keepLimit", "must not be negative")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultPruneBatchSize
	}

	deleted := 0
	for {
		batchSize := opts.BatchSize
		if opts.MaxDeleted > 0 {
			remaining := opts.MaxDeleted - deleted
			if remaining <= 0 {
				break
			}
			if remaining < batchSize {
				batchSize = remaining
			}
		}

		ids, err := s.repo.SelectPruneBatch(ctx, userID, opts.KeepLimit, batchSize)
		if err != nil {
			return deleted, err
		}
		if len(ids) == 0 {
			break
		}
		n, err := s.repo.DeleteByIDs(ctx, userID, ids)
		if err != nil {
			return deleted, err
		}
		if n == 0 {
			break
		}
		deleted += int(n)

		if err := ctx.Err(); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// schedulePrune trims the user's ledger in the background. Failures are
// logged and never reach the dismiss caller.
func (s *DismissalService) schedulePrune(userID string) {
	if !s.autoPrune {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("user_id", userID).Errorf("background prune panicked: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundPruneTimeout)
		defer cancel()

		deleted, err, _ := s.pruneGroup.Do(userID, func() (interface{}, error) {
			return s.Prune(ctx, userID, s.pruneOptions)
		})
		if err != nil {
			s.log.WithField("user_id", userID).WithError(err).Warn("background prune failed")
			return
		}
		if n, _ := deleted.(int); n > 0 {
			s.log.WithFields(logrus.Fields{"user_id": userID, "deleted": n}).Debug("pruned dismissed notifications")
		}
	}()
}

// Wait blocks until all background prunes started so far have finished.
func (s *DismissalService) Wait() {
	s.pending.Wait()
}
