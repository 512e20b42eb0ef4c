package signups

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dotwe/early-access/internal/common"
	"github.com/dotwe/early-access/internal/dbx"
	"github.com/dotwe/early-access/internal/server/models"
)

const recordColumns = `id, email, identity_id, signed_up_at, downloaded_at,
       download_count, last_download_at, metadata, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, email, identityID string) (*models.SignupRecord, error) {

	query := `INSERT INTO early_access_signups (email, identity_id)
	 VALUES ($1, $2)
	 ON CONFLICT (email) DO UPDATE
	     SET identity_id = EXCLUDED.identity_id, updated_at = now()
	 RETURNING ` + recordColumns

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, email, identityID))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) Get(ctx context.Context, email string) (*models.SignupRecord, error) {

	query := `SELECT ` + recordColumns + `
	 FROM early_access_signups
	 WHERE email = $1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

// RecordDownload uses a single atomic UPDATE so concurrent downloads for the
// same email never under-count.
func (r *PostgresRepository) RecordDownload(ctx context.Context, email string) (*models.SignupRecord, error) {

	query := `UPDATE early_access_signups
	 SET download_count = download_count + 1,
	     downloaded_at = now(),
	     last_download_at = now(),
	     updated_at = now()
	 WHERE email = $1
	 RETURNING ` + recordColumns

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {

	query := `SELECT count(*) FROM early_access_signups`

	var count int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func scanRecord(row *sql.Row) (*models.SignupRecord, error) {
	rec := &models.SignupRecord{}
	var metadata []byte

	err := row.Scan(&rec.ID, &rec.Email, &rec.IdentityID, &rec.SignedUpAt,
		&rec.DownloadedAt, &rec.DownloadCount, &rec.LastDownloadAt,
		&metadata, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("metadata decode error: %w", err)
		}
	}

	return rec, nil
}
