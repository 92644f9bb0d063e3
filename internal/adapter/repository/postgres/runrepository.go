package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/port"
)

// RunRepository stores terminal orchestration results in Postgres. The result
// document is kept as JSONB; only the columns the API filters on are lifted
// out.
type RunRepository struct {
	DB *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{DB: pool}
}

// Schema is the DDL the repository expects. Applied by `forge serve` on
// startup when a database is configured.
const Schema = `
CREATE TABLE IF NOT EXISTS orchestration_runs (
    job_id      TEXT PRIMARY KEY,
    success     BOOLEAN NOT NULL,
    result      JSONB NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);`

func (r *RunRepository) Migrate(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, Schema)
	return err
}

func (r *RunRepository) Save(ctx context.Context, res *domain.OrchestrationResult) error {
	if res == nil {
		return fmt.Errorf("result is required")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.DB.Exec(ctx,
		`INSERT INTO orchestration_runs (job_id, success, result, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (job_id) DO UPDATE SET success = $2, result = $3, finished_at = $5`,
		res.JobID, res.Success, payload, res.StartedAt, res.FinishedAt)
	return err
}

func (r *RunRepository) FindByJobID(ctx context.Context, jobID string) (*domain.OrchestrationResult, error) {
	var payload []byte
	err := r.DB.QueryRow(ctx,
		"SELECT result FROM orchestration_runs WHERE job_id = $1", jobID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrRunNotFound
		}
		return nil, err
	}
	var res domain.OrchestrationResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// Compile-time interface check.
var _ port.RunRepository = (*RunRepository)(nil)
