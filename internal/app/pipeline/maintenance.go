package pipeline

import (
	"context"
	"time"

	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// Maintainer runs the retention sweep and size-cap enforcement on a
// fixed cadence and refreshes the store gauges.
type Maintainer struct {
	store    ports.RecordStore
	obs      ports.Observability
	interval time.Duration
}

func NewMaintainer(store ports.RecordStore, obs ports.Observability, interval time.Duration) *Maintainer {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Maintainer{store: store, obs: obs, interval: interval}
}

func (m *Maintainer) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

func (m *Maintainer) RunOnce(ctx context.Context) {
	if n, err := m.store.SweepExpired(ctx); err != nil {
		m.obs.LogError("retention_sweep_failed", err)
	} else if n > 0 {
		m.obs.LogInfo("retention_sweep", ports.Field{Key: "deleted", Value: n})
	}

	if n, err := m.store.EnforceSizeCap(ctx); err != nil {
		m.obs.LogError("size_cap_failed", err)
	} else if n > 0 {
		m.obs.LogInfo("size_cap_eviction", ports.Field{Key: "evicted", Value: n})
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.obs.LogError("store_stats_failed", err)
		return
	}
	m.obs.SetGauge("vitalflow_store_size_bytes", float64(stats.SizeBytes))
	m.obs.SetGauge("vitalflow_store_unsynced_records", float64(stats.UnsyncedCount))
}
