package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

const schemaLockID int64 = 2026101601

type ClaimRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *ClaimRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS claims (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	files JSONB NOT NULL DEFAULT '[]'::jsonb,
	result JSONB,
	decision_status TEXT,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
CREATE INDEX IF NOT EXISTS idx_claims_created_at ON claims(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ClaimRepository) Create(ctx context.Context, job *domain.ClaimJob) error {
	filesJSON, err := json.Marshal(job.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO claims (id, status, files, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, job.ID, string(job.Status), filesJSON, job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*domain.ClaimJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, files, result, error_message, created_at, updated_at
FROM claims
WHERE id = $1
`, id)

	var job domain.ClaimJob
	var status string
	var filesRaw, resultRaw []byte

	err := row.Scan(&job.ID, &status, &filesRaw, &resultRaw, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrClaimNotFound, "get claim", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}

	if err := json.Unmarshal(filesRaw, &job.Files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}
	if len(resultRaw) > 0 {
		var result domain.ClaimResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		job.Result = &result
	}
	job.Status = domain.ClaimJobStatus(status)
	return &job, nil
}

func (r *ClaimRepository) UpdateStatus(ctx context.Context, id string, status domain.ClaimJobStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE claims
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, r.now())
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	return requireAffected(res, "update claim status", id)
}

// SaveResult stores the result and completes the job in one statement.
func (r *ClaimRepository) SaveResult(ctx context.Context, id string, result *domain.ClaimResult) error {
	if result == nil {
		return domain.WrapError(domain.ErrInvalidInput, "save claim result", errors.New("result is nil"))
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE claims
SET status = $2, result = $3, decision_status = $4, error_message = '', updated_at = $5
WHERE id = $1
`, id, string(domain.ClaimJobCompleted), resultJSON, string(result.Decision.Status), r.now())
	if err != nil {
		return fmt.Errorf("save claim result: %w", err)
	}
	return requireAffected(res, "save claim result", id)
}

func requireAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrClaimNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
