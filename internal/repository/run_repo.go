package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epeers/mfenrich/internal/models"
)

var ErrRunNotFound = errors.New("enrichment run not found")

// EnrichmentRun is one persisted batch run, keyed by the caller's upload id.
type EnrichmentRun struct {
	ID              int64
	UploadID        string
	UserID          string
	Status          string
	DurationSeconds int
	EnrichedFunds   []models.EnrichedFund
	Quality         models.QualityReport
	CreatedAt       time.Time
}

// RunRepository handles database operations for enrichment runs. Result
// payloads are stored as JSONB since holding attribute sets vary per fund.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new RunRepository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Save records a completed batch run, replacing any earlier run for the
// same upload id.
func (r *RunRepository) Save(ctx context.Context, run *EnrichmentRun) error {
	funds, err := json.Marshal(run.EnrichedFunds)
	if err != nil {
		return fmt.Errorf("failed to marshal enriched funds: %w", err)
	}
	quality, err := json.Marshal(run.Quality)
	if err != nil {
		return fmt.Errorf("failed to marshal quality report: %w", err)
	}

	query := `
		INSERT INTO enrichment_run (upload_id, user_id, status, duration_seconds, enriched_funds, quality, created)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (upload_id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    status = EXCLUDED.status,
		    duration_seconds = EXCLUDED.duration_seconds,
		    enriched_funds = EXCLUDED.enriched_funds,
		    quality = EXCLUDED.quality,
		    created = NOW()
		RETURNING id, created
	`
	err = r.pool.QueryRow(ctx, query,
		run.UploadID, run.UserID, run.Status, run.DurationSeconds, funds, quality).
		Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save enrichment run: %w", err)
	}
	return nil
}

// GetByUploadID retrieves a persisted run.
func (r *RunRepository) GetByUploadID(ctx context.Context, uploadID string) (*EnrichmentRun, error) {
	query := `
		SELECT id, upload_id, user_id, status, duration_seconds, enriched_funds, quality, created
		FROM enrichment_run
		WHERE upload_id = $1
	`
	run := &EnrichmentRun{}
	var funds, quality []byte
	err := r.pool.QueryRow(ctx, query, uploadID).Scan(
		&run.ID, &run.UploadID, &run.UserID, &run.Status, &run.DurationSeconds, &funds, &quality, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrichment run: %w", err)
	}

	if err := json.Unmarshal(funds, &run.EnrichedFunds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enriched funds: %w", err)
	}
	if err := json.Unmarshal(quality, &run.Quality); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quality report: %w", err)
	}
	return run, nil
}
