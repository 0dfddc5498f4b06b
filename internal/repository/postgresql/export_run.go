package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const exportRunColumns = `id, format, status, requested_by, role, class_name, month, row_count,
	attempts, bytes, checksum, artifact_path, error_text, created_at`

type exportRunRepositoryImpl struct {
	db *database.DB
}

func NewExportRunRepository(db *database.DB) export.ExportRunRepository {
	return &exportRunRepositoryImpl{db: db}
}

// EnsureExportRunSchema creates the export_runs table when it does not exist.
func EnsureExportRunSchema(ctx context.Context, db *database.DB) error {
	return WithTransaction(ctx, db, func(ctx context.Context) error {
		q := GetQuerier(ctx, db)
		statements := []string{
			`CREATE TABLE IF NOT EXISTS export_runs (
				id            UUID PRIMARY KEY,
				format        TEXT NOT NULL,
				status        TEXT NOT NULL,
				requested_by  TEXT NOT NULL,
				role          TEXT NOT NULL,
				class_name    TEXT NOT NULL,
				month         TEXT NOT NULL,
				row_count     INTEGER NOT NULL DEFAULT 0,
				attempts      INTEGER NOT NULL DEFAULT 0,
				bytes         BIGINT NOT NULL DEFAULT 0,
				checksum      TEXT,
				artifact_path TEXT,
				error_text    TEXT,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS export_runs_created_at_idx ON export_runs (created_at DESC)`,
		}
		for _, stmt := range statements {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("ensure export_runs schema: %w", err)
			}
		}
		return nil
	})
}

func (r *exportRunRepositoryImpl) Create(ctx context.Context, run export.ExportRun) error {
	q := GetQuerier(ctx, r.db)
	query := `
		INSERT INTO export_runs (` + exportRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := q.Exec(ctx, query,
		run.ID, run.Format, string(run.Status), run.RequestedBy, run.Role, run.ClassName, run.Month,
		run.Rows, run.Attempts, run.Bytes, run.Checksum, run.ArtifactPath, run.ErrorText, run.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert export run: %w", err)
	}
	return nil
}

func (r *exportRunRepositoryImpl) GetByID(ctx context.Context, id string) (export.ExportRun, error) {
	q := GetQuerier(ctx, r.db)
	query := `SELECT ` + exportRunColumns + ` FROM export_runs WHERE id = $1`

	run, err := scanExportRun(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return export.ExportRun{}, export.ErrExportRunNotFound
		}
		return export.ExportRun{}, fmt.Errorf("get export run: %w", err)
	}
	return run, nil
}

func (r *exportRunRepositoryImpl) List(ctx context.Context, limit int) ([]export.ExportRun, error) {
	q := GetQuerier(ctx, r.db)
	query := `SELECT ` + exportRunColumns + ` FROM export_runs ORDER BY created_at DESC LIMIT $1`

	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list export runs: %w", err)
	}
	defer rows.Close()

	runs := make([]export.ExportRun, 0)
	for rows.Next() {
		run, err := scanExportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export runs: %w", err)
	}
	return runs, nil
}

func (r *exportRunRepositoryImpl) ListOlderThan(ctx context.Context, cutoff time.Time) ([]export.ExportRun, error) {
	q := GetQuerier(ctx, r.db)
	query := `SELECT ` + exportRunColumns + ` FROM export_runs WHERE created_at < $1 ORDER BY created_at`

	rows, err := q.Query(ctx, query, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expired export runs: %w", err)
	}
	defer rows.Close()

	var expired []export.ExportRun
	for rows.Next() {
		run, err := scanExportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired export run: %w", err)
		}
		expired = append(expired, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired export runs: %w", err)
	}
	return expired, nil
}

func (r *exportRunRepositoryImpl) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `DELETE FROM export_runs WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete export runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanExportRun(row pgx.Row) (export.ExportRun, error) {
	var run export.ExportRun
	var status string
	err := row.Scan(
		&run.ID, &run.Format, &status, &run.RequestedBy, &run.Role, &run.ClassName, &run.Month, &run.Rows,
		&run.Attempts, &run.Bytes, &run.Checksum, &run.ArtifactPath, &run.ErrorText, &run.CreatedAt,
	)
	if err != nil {
		return export.ExportRun{}, err
	}
	run.Status = export.RunStatus(status)
	return run, nil
}
