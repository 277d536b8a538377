package jobs

import (
	"context"
	"time"

	"github.com/wonny/sas/pkg/logger"
)

// Pruner removes stale snapshot files (snapshot.Store)
type Pruner interface {
	Prune(cutoff time.Time) (int, error)
}

// SnapshotCleanupJob removes debug snapshots older than the retention period
type SnapshotCleanupJob struct {
	store     Pruner
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

// NewSnapshotCleanupJob creates a new snapshot cleanup job
func NewSnapshotCleanupJob(store Pruner, retention time.Duration, log *logger.Logger) *SnapshotCleanupJob {
	return &SnapshotCleanupJob{
		store:     store,
		retention: retention,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *SnapshotCleanupJob) Name() string {
	return "snapshot_cleanup"
}

// Schedule returns the cron schedule (daily at 03:00)
func (j *SnapshotCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the snapshot cleanup
func (j *SnapshotCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled snapshot cleanup")

	count, err := j.store.Prune(j.now().Add(-j.retention))
	if err != nil {
		return err
	}

	if count > 0 {
		j.logger.WithField("removed", count).Info("Snapshot cleanup completed")
	}

	return nil
}
