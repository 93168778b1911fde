package maintenance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRuns struct {
	runs []models.PruneRun
	err  error
}

func (m *memoryRuns) CreatePruneRun(_ context.Context, run *models.PruneRun) error {
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memoryRuns) GetRecentPruneRuns(context.Context, int64) ([]models.PruneRun, error) {
	return m.runs, nil
}

func sampleReport() Report {
	return Report{
		StartedAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		UsersScanned: 4,
		UsersPruned:  3,
		RowsDeleted:  120,
		Elapsed:      1500 * time.Millisecond,
		StopReason:   StopMaxRows,
	}
}

func TestStoreSinkPersistsReport(t *testing.T) {
	runs := &memoryRuns{}
	require.NoError(t, StoreSink{Runs: runs, KeepLimit: 500}.Record(context.Background(), sampleReport()))

	require.Len(t, runs.runs, 1)
	run := runs.runs[0]
	assert.Equal(t, 4, run.UsersScanned)
	assert.Equal(t, 3, run.UsersPruned)
	assert.Equal(t, 120, run.RowsDeleted)
	assert.EqualValues(t, 1500, run.ElapsedMillis)
	assert.Equal(t, "max_rows", run.StopReason)
	assert.Equal(t, 500, run.KeepLimit)
}

func TestLogSinkWritesFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	require.NoError(t, LogSink{Log: logrus.NewEntry(logger)}.Record(context.Background(), sampleReport()))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, 120, entry.Data["rows_deleted"])
	assert.Equal(t, StopMaxRows, entry.Data["stop_reason"])
}

func TestMultiSinkTriesEverySink(t *testing.T) {
	failing := &memoryRuns{err: fmt.Errorf("mongo down")}
	working := &memoryRuns{}
	err := MultiSink{StoreSink{Runs: failing}, StoreSink{Runs: working}}.Record(context.Background(), sampleReport())

	assert.EqualError(t, err, "mongo down")
	assert.Len(t, working.runs, 1)
}
