package export

import (
	"context"
	"time"
)

type ExportRunRepository interface {
	Create(ctx context.Context, run ExportRun) error
	GetByID(ctx context.Context, id string) (ExportRun, error)
	List(ctx context.Context, limit int) ([]ExportRun, error)

	// ListOlderThan returns runs created before cutoff, oldest first.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]ExportRun, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}
