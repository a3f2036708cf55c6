package ports

import (
	"context"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// Uploader is the external backend collaborator. BatchUpload must be
// all-or-nothing from the caller's point of view: an error means no
// record in the batch may be marked synced. Duplicate delivery is
// acceptable; loss is not.
type Uploader interface {
	BatchUpload(ctx context.Context, records []domain.StoredRecord) error
	SendCriticalAlert(ctx context.Context, alert domain.CriticalAlert) error
}
