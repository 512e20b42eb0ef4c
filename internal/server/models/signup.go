package models

import "time"

// SignupRecord is one early-access registration, keyed uniquely by email.
// DownloadedAt and LastDownloadAt are set only when a download is recorded,
// never by signup itself.
type SignupRecord struct {
	ID             string
	Email          string
	IdentityID     string
	SignedUpAt     time.Time
	DownloadedAt   *time.Time
	DownloadCount  int64
	LastDownloadAt *time.Time
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
