package ports

import (
	"context"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// RecordStore is the encrypted offline buffer. Implementations seal the
// payload at rest with a key independent from the transport session key.
// Records flip to synced at most once and unsynced records are never
// deleted, by retention or by the size cap.
type RecordStore interface {
	Persist(ctx context.Context, t domain.RecordType, payload []byte, p domain.Priority) (string, error)
	Pending(ctx context.Context, limit int) ([]domain.StoredRecord, error)
	MarkSynced(ctx context.Context, ids []string) error
	SweepExpired(ctx context.Context) (int, error)
	EnforceSizeCap(ctx context.Context) (int, error)
	Stats(ctx context.Context) (StoreStats, error)
	Close() error
}

// StoreStats exposes store metadata for observability and cap checks.
type StoreStats struct {
	TotalRecords  int64
	UnsyncedCount int64
	SizeBytes     int64
}
