package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// Resilient wraps a RecordStore with an in-memory fallback: failed writes
// land in a bounded buffer and are replayed with exponential backoff.
// Storage errors degrade fidelity, never crash the pipeline.
type Resilient struct {
	inner    ports.RecordStore
	buffer   *MemBuffer
	obs      ports.Observability
	degraded atomic.Bool

	flushMax int
}

func NewResilient(inner ports.RecordStore, buffer *MemBuffer, obs ports.Observability) *Resilient {
	return &Resilient{
		inner:    inner,
		buffer:   buffer,
		obs:      obs,
		flushMax: 64,
	}
}

// Persist tries the underlying store; on failure the record is buffered
// and an empty id is returned with nil error, since the write is still
// pending rather than lost.
func (r *Resilient) Persist(ctx context.Context, t domain.RecordType, payload []byte, p domain.Priority) (string, error) {
	id, err := r.inner.Persist(ctx, t, payload, p)
	if err == nil {
		return id, nil
	}

	r.obs.LogError("store_write_failed", err)
	r.obs.IncCounter("vitalflow_store_write_failures_total", 1)
	if !r.buffer.Push(t, payload, p) {
		r.obs.RecordDrop("store_buffer_full", err)
		return "", err
	}
	r.degraded.Store(true)
	return "", nil
}

// RunFlusher replays buffered writes until ctx is done. The backoff
// resets after any successful flush.
func (r *Resilient) RunFlusher(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0 // retry forever

	for {
		wait := policy.NextBackOff()
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if r.buffer.Len() == 0 {
			if r.degraded.CompareAndSwap(true, false) {
				r.obs.LogInfo("store_recovered")
			}
			policy.Reset()
			continue
		}

		if r.flushOnce(ctx) {
			policy.Reset()
		}
	}
}

// flushOnce drains one batch into the store; returns true when any write
// landed.
func (r *Resilient) flushOnce(ctx context.Context) bool {
	batch := r.buffer.DrainBatch(r.flushMax)
	if len(batch) == 0 {
		return false
	}
	for i, rec := range batch {
		if _, err := r.inner.Persist(ctx, rec.Type, rec.Payload, rec.Priority); err != nil {
			r.buffer.Requeue(batch[i:])
			r.obs.LogError("store_flush_failed", err,
				ports.Field{Key: "remaining", Value: r.buffer.Len()})
			return i > 0
		}
	}
	return true
}

// Degraded reports whether writes are currently buffered in memory.
func (r *Resilient) Degraded() bool {
	return r.degraded.Load()
}

func (r *Resilient) Pending(ctx context.Context, limit int) ([]domain.StoredRecord, error) {
	return r.inner.Pending(ctx, limit)
}

func (r *Resilient) MarkSynced(ctx context.Context, ids []string) error {
	return r.inner.MarkSynced(ctx, ids)
}

func (r *Resilient) SweepExpired(ctx context.Context) (int, error) {
	return r.inner.SweepExpired(ctx)
}

func (r *Resilient) EnforceSizeCap(ctx context.Context) (int, error) {
	return r.inner.EnforceSizeCap(ctx)
}

func (r *Resilient) Stats(ctx context.Context) (ports.StoreStats, error) {
	return r.inner.Stats(ctx)
}

func (r *Resilient) Close() error {
	return r.inner.Close()
}

var _ ports.RecordStore = (*Resilient)(nil)
