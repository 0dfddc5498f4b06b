package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/storage"
	"golang.org/x/sync/errgroup"
)

// pruneConcurrency bounds parallel artifact deletes.
const pruneConcurrency = 4

const ArchiveRetentionJob = "export_archive_retention"

// ArchiveJobs prunes archived export runs and their artifacts.
type ArchiveJobs struct {
	runRepo   export.ExportRunRepository
	storage   storage.FileStorage
	retention time.Duration
	now       func() time.Time
}

func NewArchiveJobs(runRepo export.ExportRunRepository, fileStorage storage.FileStorage, retentionDays int) *ArchiveJobs {
	return &ArchiveJobs{
		runRepo:   runRepo,
		storage:   fileStorage,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

func (j *ArchiveJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(ArchiveRetentionJob, 1*time.Hour, j.PruneExpiredExports)
}

// PruneExpiredExports deletes runs older than the retention window. A run is
// only deleted once its artifact is gone; runs whose artifact could not be
// removed stay in place and are retried on the next run.
func (j *ArchiveJobs) PruneExpiredExports(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	expired, err := j.runRepo.ListOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list expired export runs: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	var mu sync.Mutex
	removable := make([]string, 0, len(expired))
	failed := 0

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(pruneConcurrency)
	for _, run := range expired {
		g.Go(func() error {
			if run.ArtifactPath != nil {
				if err := j.storage.Delete(gCtx, *run.ArtifactPath); err != nil {
					slog.Error("Cron: failed to delete export artifact", "run_id", run.ID, "path", *run.ArtifactPath, "error", err)
					mu.Lock()
					failed++
					mu.Unlock()
					return nil
				}
			}
			mu.Lock()
			removable = append(removable, run.ID)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	deleted, err := j.runRepo.DeleteByIDs(ctx, removable)
	if err != nil {
		return fmt.Errorf("delete expired export runs: %w", err)
	}

	slog.Info("Cron: pruned expired exports", "runs", deleted, "artifact_errors", failed, "cutoff", cutoff.Format(time.RFC3339))
	return nil
}
