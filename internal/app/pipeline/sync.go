package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// Syncer drains unsynced records to the upload collaborator in bounded
// batches. Records are marked synced only after the whole batch is
// acknowledged; a failed batch stays unsynced and is retried on the next
// trigger (at-least-once, duplicates acceptable).
type Syncer struct {
	store     ports.RecordStore
	uploader  ports.Uploader
	obs       ports.Observability
	batchSize int

	trigger chan struct{}
}

func NewSyncer(store ports.RecordStore, uploader ports.Uploader, obs ports.Observability, batchSize int) *Syncer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Syncer{
		store:     store,
		uploader:  uploader,
		obs:       obs,
		batchSize: batchSize,
		trigger:   make(chan struct{}, 1),
	}
}

// Trigger requests a sync attempt. Called by the scheduler's sync task
// and by the connectivity signal; coalesces when one is already pending.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run processes triggers until ctx is done. After a failed attempt the
// next retry is delayed with exponential backoff, unbounded: records are
// never expired solely because sync keeps failing.
func (s *Syncer) Run(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 5 * time.Minute
	policy.MaxElapsedTime = 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
		}

		for {
			n, err := s.SyncOnce(ctx)
			if err != nil {
				wait := policy.NextBackOff()
				s.obs.LogError("sync_failed", err,
					ports.Field{Key: "retry_in", Value: wait.String()})
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
					continue
				}
			}
			policy.Reset()
			if n < s.batchSize {
				break // drained
			}
		}
	}
}

// SyncOnce uploads at most one batch. Returns the number of records
// marked synced.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	batch, err := s.store.Pending(ctx, s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	if err := s.uploader.BatchUpload(ctx, batch); err != nil {
		// Whole batch stays unsynced; partial success is not a thing the
		// collaborator can report.
		return 0, err
	}

	ids := make([]string, len(batch))
	for i, r := range batch {
		ids[i] = r.ID
	}
	if err := s.store.MarkSynced(ctx, ids); err != nil {
		// Upload landed but the flag flip failed; the batch will be
		// re-uploaded, which at-least-once semantics permit.
		return 0, err
	}

	s.obs.IncCounter("vitalflow_records_synced_total", float64(len(batch)))
	return len(batch), nil
}
