package maintenance

import (
	"context"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/anonto42/nano-midea/notifyfeed/internal/repositories"
	"github.com/sirupsen/logrus"
)

// ReportSink receives the summary of a finished run.
type ReportSink interface {
	Record(ctx context.Context, report Report) error
}

// LogSink writes the report as a structured log line.
type LogSink struct {
	Log *logrus.Entry
}

func (s LogSink) Record(_ context.Context, report Report) error {
	log := s.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.WithFields(logrus.Fields{
		"users_scanned": report.UsersScanned,
		"users_pruned":  report.UsersPruned,
		"rows_deleted":  report.RowsDeleted,
		"elapsed_ms":    report.Elapsed.Milliseconds(),
		"stop_reason":   report.StopReason,
	}).Info("dismissed notification prune finished")
	return nil
}

// StoreSink persists the report through a PruneRunRepository.
type StoreSink struct {
	Runs      repositories.PruneRunRepository
	KeepLimit int
}

func (s StoreSink) Record(ctx context.Context, report Report) error {
	return s.Runs.CreatePruneRun(ctx, &models.PruneRun{
		StartedAt:     report.StartedAt,
		UsersScanned:  report.UsersScanned,
		UsersPruned:   report.UsersPruned,
		RowsDeleted:   report.RowsDeleted,
		ElapsedMillis: report.Elapsed.Milliseconds(),
		StopReason:    string(report.StopReason),
		KeepLimit:     s.KeepLimit,
	})
}

// MultiSink fans a report out to several sinks. Every sink is tried and the
// first error is returned.
type MultiSink []ReportSink

func (m MultiSink) Record(ctx context.Context, report Report) error {
	var first error
	for _, sink := range m {
		if err := sink.Record(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}
