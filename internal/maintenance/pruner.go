// Package maintenance trims oversized dismissal ledgers across all users in
// bounded, resumable runs.
package maintenance

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/notifyfeed/internal/repositories"
	"github.com/anonto42/nano-midea/notifyfeed/internal/services"
	"github.com/anonto42/nano-midea/notifyfeed/pkg/config"
	"github.com/sirupsen/logrus"
)

// StopReason says which bound ended a run.
type StopReason string

const (
	StopMaxUsers   StopReason = "max_users"
	StopMaxRows    StopReason = "max_rows"
	StopMaxElapsed StopReason = "max_elapsed_seconds"
	StopCompleted  StopReason = "completed"
)

// Report summarizes a run.
type Report struct {
	StartedAt    time.Time
	UsersScanned int
	UsersPruned  int
	RowsDeleted  int
	Elapsed      time.Duration
	StopReason   StopReason
}

// UserLister pages through users holding more than keepLimit dismissals.
type UserLister interface {
	ListUsersOverLimit(ctx context.Context, keepLimit int, afterUserID string, limit int) ([]repositories.UserDismissalCount, error)
}

// UserPruner prunes one user's ledger.
type UserPruner interface {
	Prune(ctx context.Context, userID string, opts services.PruneOptions) (int, error)
}

// Pruner runs the cross-user maintenance scan.
type Pruner struct {
	users  UserLister
	pruner UserPruner
	cfg    config.PruneConfig
	now    func() time.Time
	log    *logrus.Entry
}

// NewPruner creates a new Pruner
func NewPruner(users UserLister, pruner UserPruner, cfg config.PruneConfig) *Pruner {
	return &Pruner{
		users:  users,
		pruner: pruner,
		cfg:    cfg,
		now:    time.Now,
		log:    logrus.WithField("component", "dismissal_pruner"),
	}
}

// Run scans and prunes users until one of the configured bounds is reached
// or no offending users remain. A single user's failure is logged and
// skipped. Only listing failures and cancellation end the run with an error.
func (p *Pruner) Run(ctx context.Context) (Report, error) {
	started := p.now()
	report := Report{StartedAt: started}
	maxElapsed := time.Duration(p.cfg.MaxElapsedSeconds) * time.Second

	finish := func(reason StopReason) Report {
		report.StopReason = reason
		report.Elapsed = p.now().Sub(started)
		return report
	}

	stopReason := func() (StopReason, bool) {
		switch {
		case report.UsersScanned >= p.cfg.MaxUsersPerRun:
			return StopMaxUsers, true
		case report.RowsDeleted >= p.cfg.MaxRowsPerRun:
			return StopMaxRows, true
		case p.now().Sub(started) >= maxElapsed:
			return StopMaxElapsed, true
		}
		return "", false
	}

	cursor := ""
	for {
		if reason, stop := stopReason(); stop {
			return finish(reason), nil
		}

		page, err := p.users.ListUsersOverLimit(ctx, p.cfg.KeepLimit, cursor, p.cfg.UserBatchSize)
		if err != nil {
			return finish(""), err
		}
		if len(page) == 0 {
			return finish(StopCompleted), nil
		}

		for _, user := range page {
			if err := ctx.Err(); err != nil {
				return finish(""), err
			}
			if reason, stop := stopReason(); stop {
				return finish(reason), nil
			}

			cursor = user.UserID
			report.UsersScanned++

			deleted, err := p.pruner.Prune(ctx, user.UserID, services.PruneOptions{
				KeepLimit:  p.cfg.KeepLimit,
				BatchSize:  p.cfg.BatchSize,
				MaxDeleted: p.cfg.MaxRowsPerRun - report.RowsDeleted,
			})
			report.RowsDeleted += deleted
			if err != nil {
				p.log.WithFields(logrus.Fields{
					"user_id":    user.UserID,
					"deleted":    deleted,
					"elapsed_ms": p.now().Sub(started).Milliseconds(),
				}).WithError(err).Error("failed to prune dismissed notifications")
				continue
			}
			if deleted > 0 {
				report.UsersPruned++
			}
		}
	}
}
