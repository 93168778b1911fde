package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const dismissalTable = "dismissed_notifications"

// UserDismissalCount is one row of the over-limit user scan.
type UserDismissalCount struct {
	UserID         string
	DismissedCount int64
}

// DismissalRepository defines the persistence operations of the dismissal ledger
type DismissalRepository interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]models.DismissedNotification, error)
	Find(ctx context.Context, userID, notificationID string) (*models.DismissedNotification, error)
	FindExisting(ctx context.Context, userID string, notificationIDs []string) (map[string]models.DismissedNotification, error)
	Create(ctx context.Context, record *models.DismissedNotification) error
	CreateBatch(ctx context.Context, records []models.DismissedNotification) error
	SelectPruneBatch(ctx context.Context, userID string, keepLimit, batchSize int) ([]int64, error)
	DeleteByIDs(ctx context.Context, userID string, ids []int64) (int64, error)
	ListUsersOverLimit(ctx context.Context, keepLimit int, afterUserID string, limit int) ([]UserDismissalCount, error)
}

// PostgresDismissalRepository implements DismissalRepository on gorm. The
// SQL is portable, so the same code runs on the SQLite test database.
type PostgresDismissalRepository struct {
	db *gorm.DB
}

// NewPostgresDismissalRepository creates a new PostgresDismissalRepository
func NewPostgresDismissalRepository(db *gorm.DB) *PostgresDismissalRepository {
	return &PostgresDismissalRepository{db: db}
}

// ListRecent returns the user's newest dismissals, ordered by
// (dismissed_at desc, id desc).
func (r *PostgresDismissalRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.DismissedNotification, error) {
	var records []models.DismissedNotification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("dismissed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "unable to list dismissed notifications")
	}
	return records, nil
}

// Find returns the dismissal of notificationID by userID, or nil if there is none.
func (r *PostgresDismissalRepository) Find(ctx context.Context, userID, notificationID string) (*models.DismissedNotification, error) {
	var records []models.DismissedNotification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND notification_id = ?", userID, notificationID).
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrapf(err, "unable to look up dismissal of `%s`", notificationID)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// FindExisting returns the subset of notificationIDs the user already dismissed.
func (r *PostgresDismissalRepository) FindExisting(ctx context.Context, userID string, notificationIDs []string) (map[string]models.DismissedNotification, error) {
	existing := make(map[string]models.DismissedNotification, len(notificationIDs))
	if len(notificationIDs) == 0 {
		return existing, nil
	}
	var records []models.DismissedNotification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND notification_id IN ?", userID, notificationIDs).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "unable to look up existing dismissals")
	}
	for _, rec := range records {
		existing[rec.NotificationID] = rec
	}
	return existing, nil
}

// Create inserts a single dismissal. A unique conflict is reported as
// ErrDuplicateDismissal.
func (r *PostgresDismissalRepository) Create(ctx context.Context, record *models.DismissedNotification) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateDismissal
		}
		return errors.Wrap(err, "unable to save dismissed notification")
	}
	return nil
}

// CreateBatch inserts all records in one statement. Either all rows are
// written or, on a unique conflict, none are and ErrDuplicateDismissal is
// returned.
func (r *PostgresDismissalRepository) CreateBatch(ctx context.Context, records []models.DismissedNotification) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&records).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateDismissal
		}
		return errors.Wrap(err, "unable to save dismissed notifications")
	}
	return nil
}

// SelectPruneBatch returns up to batchSize ids of the user's dismissals that
// rank beyond the keepLimit newest.
func (r *PostgresDismissalRepository) SelectPruneBatch(ctx context.Context, userID string, keepLimit, batchSize int) ([]int64, error) {
	wrapMsg := fmt.Sprintf("unable to select prunable dismissals for `%s`", userID)

	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Question).
		Select("id").
		From(dismissalTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("dismissed_at DESC", "id DESC").
		Limit(uint64(batchSize)).
		Offset(uint64(keepLimit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := r.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	ids := make([]int64, 0, batchSize)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	return ids, nil
}

// DeleteByIDs deletes exactly the given dismissal ids of the user.
func (r *PostgresDismissalRepository) DeleteByIDs(ctx context.Context, userID string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	wrapMsg := fmt.Sprintf("unable to delete dismissals for `%s`", userID)

	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Question).
		Delete(dismissalTable).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	res := r.db.WithContext(ctx).Exec(statement, args...)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, wrapMsg)
	}
	return res.RowsAffected, nil
}

// ListUsersOverLimit pages, in user id order, through the users holding more
// than keepLimit dismissals.
func (r *PostgresDismissalRepository) ListUsersOverLimit(ctx context.Context, keepLimit int, afterUserID string, limit int) ([]UserDismissalCount, error) {
	wrapMsg := "unable to list users over the dismissal limit"

	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Question).
		Select("user_id", "COUNT(id) AS dismissed_count").
		From(dismissalTable).
		GroupBy("user_id").
		Having("COUNT(id) > ?", keepLimit).
		OrderBy("user_id").
		Limit(uint64(limit))
	if afterUserID != "" {
		builder = builder.Where(sq.Gt{"user_id": afterUserID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := r.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	var result []UserDismissalCount
	for rows.Next() {
		var row UserDismissalCount
		if err := rows.Scan(&row.UserID, &row.DismissedCount); err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	return result, nil
}
