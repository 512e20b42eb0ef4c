// Package signups persists early-access signup records: the registry of who
// registered and their download activity.
package signups

import (
	"context"

	"github.com/dotwe/early-access/internal/server/models"
)

// Repository is the Signup Registry. It is the sole writer of SignupRecord.
type Repository interface {
	// Upsert inserts a record for email or, on conflict, updates identity_id.
	// Calling twice with the same arguments yields one record.
	Upsert(ctx context.Context, email, identityID string) (*models.SignupRecord, error)

	// Get returns the record for email or common.ErrorNotFound.
	Get(ctx context.Context, email string) (*models.SignupRecord, error)

	// RecordDownload atomically increments download_count and stamps
	// downloaded_at / last_download_at.
	RecordDownload(ctx context.Context, email string) (*models.SignupRecord, error)

	// Count returns the total number of records. Display/metrics only.
	Count(ctx context.Context) (int64, error)
}
