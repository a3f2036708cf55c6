package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

func testSealer(t *testing.T) *Sealer {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 3)
	}
	s, err := NewSealer(key)
	require.NoError(t, err)
	return s
}

func openTestStore(t *testing.T, cfg Config) *SQLiteStore {
	t.Helper()
	cfg.Path = filepath.Join(t.TempDir(), "records.db")
	st, err := NewSQLiteStore(cfg, testSealer(t))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPersistAndPendingRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, Config{})

	id, err := st.Persist(ctx, domain.RecordVitalSigns, []byte(`{"hr":72}`), domain.PriorityNormal)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	pending, err := st.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, domain.RecordVitalSigns, pending[0].DataType)

	// Payload is sealed at rest and opens back to the original bytes.
	plain, err := st.sealer.Open(pending[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"hr":72}`), plain)
	assert.NotEqual(t, []byte(`{"hr":72}`), pending[0].Payload)
}

func TestPendingPriorityOrdering(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, Config{})

	_, err := st.Persist(ctx, domain.RecordVitalSigns, []byte("first-normal"), domain.PriorityNormal)
	require.NoError(t, err)
	critID, err := st.Persist(ctx, domain.RecordAlert, []byte("late-critical"), domain.PriorityCritical)
	require.NoError(t, err)

	pending, err := st.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Critical records jump the queue regardless of insertion order.
	assert.Equal(t, critID, pending[0].ID)
}

func TestMarkSyncedIdempotent(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, Config{})

	id, err := st.Persist(ctx, domain.RecordBiomarkers, []byte("x"), domain.PriorityNormal)
	require.NoError(t, err)

	require.NoError(t, st.MarkSynced(ctx, []string{id}))
	require.NoError(t, st.MarkSynced(ctx, []string{id})) // second call is a no-op

	pending, err := st.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalRecords)
	assert.EqualValues(t, 0, stats.UnsyncedCount)
}

func TestSweepExpiredRetainsUnsynced(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, Config{RetentionHours: 72})

	old := time.Now().Add(-100 * time.Hour)
	st.now = func() time.Time { return old }

	syncedID, err := st.Persist(ctx, domain.RecordVitalSigns, []byte("old-synced"), domain.PriorityNormal)
	require.NoError(t, err)
	_, err = st.Persist(ctx, domain.RecordVitalSigns, []byte("old-unsynced"), domain.PriorityNormal)
	require.NoError(t, err)

	st.now = time.Now
	require.NoError(t, st.MarkSynced(ctx, []string{syncedID}))

	deleted, err := st.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// The unsynced record survives well past retention.
	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalRecords)
	assert.EqualValues(t, 1, stats.UnsyncedCount)
}

func TestEnforceSizeCapEvictsOldestSyncedFirst(t *testing.T) {
	ctx := context.Background()
	// Cap small enough that two records overflow it.
	st := openTestStore(t, Config{SizeCapBytes: 400, EvictBatch: 1})

	payload := make([]byte, 128)
	oldSynced, err := st.Persist(ctx, domain.RecordECGWaveform, payload, domain.PriorityNormal)
	require.NoError(t, err)
	_, err = st.Persist(ctx, domain.RecordECGWaveform, payload, domain.PriorityNormal)
	require.NoError(t, err)
	_, err = st.Persist(ctx, domain.RecordECGWaveform, payload, domain.PriorityNormal)
	require.NoError(t, err)

	require.NoError(t, st.MarkSynced(ctx, []string{oldSynced}))

	evicted, err := st.EnforceSizeCap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	// Over the cap still, but the rest is unsynced and must remain.
	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalRecords)
	assert.EqualValues(t, 2, stats.UnsyncedCount)
	assert.Greater(t, stats.SizeBytes, st.cfg.SizeCapBytes)
}

func TestEnforceSizeCapUnderCapIsNoop(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, Config{})

	_, err := st.Persist(ctx, domain.RecordVitalSigns, []byte("small"), domain.PriorityNormal)
	require.NoError(t, err)

	evicted, err := st.EnforceSizeCap(ctx)
	require.NoError(t, err)
	assert.Zero(t, evicted)
}

func TestSealerTamperDetection(t *testing.T) {
	s := testSealer(t)

	sealed, err := s.Seal([]byte("sensitive"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xFF

	_, err = s.Open(sealed)
	assert.ErrorIs(t, err, ErrUnsealFailed)
}

func TestPersistInsertErrorSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO records").WillReturnError(assert.AnError)

	st := newWithDB(db, Config{}, testSealer(t))
	_, err = st.Persist(context.Background(), domain.RecordVitalSigns, []byte("x"), domain.PriorityNormal)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
