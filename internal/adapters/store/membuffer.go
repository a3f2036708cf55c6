package store

import (
	"sync"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// bufferedRecord holds a write that could not reach the database yet.
type bufferedRecord struct {
	Type     domain.RecordType
	Payload  []byte
	Priority domain.Priority
}

// MemBuffer is a bounded in-memory FIFO that carries records while the
// database is unavailable, so monitoring keeps running degraded instead
// of losing writes outright. When full, the oldest normal-priority entry
// is dropped before a critical one ever is.
type MemBuffer struct {
	mu   sync.Mutex
	data []bufferedRecord
	cap  int
}

func NewMemBuffer(capacity int) *MemBuffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemBuffer{
		data: make([]bufferedRecord, 0, capacity),
		cap:  capacity,
	}
}

// Push appends a record, evicting the oldest non-critical entry when at
// capacity. Returns false only when the buffer is full of critical
// records and the incoming one is not.
func (b *MemBuffer) Push(t domain.RecordType, payload []byte, p domain.Priority) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) >= b.cap {
		idx := -1
		for i, r := range b.data {
			if r.Priority != domain.PriorityCritical {
				idx = i
				break
			}
		}
		if idx < 0 {
			if p != domain.PriorityCritical {
				return false
			}
			idx = 0
		}
		b.data = append(b.data[:idx], b.data[idx+1:]...)
	}

	b.data = append(b.data, bufferedRecord{Type: t, Payload: payload, Priority: p})
	return true
}

// DrainBatch removes and returns up to max buffered records in FIFO order.
func (b *MemBuffer) DrainBatch(max int) []bufferedRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(b.data) {
		max = len(b.data)
	}
	out := make([]bufferedRecord, max)
	copy(out, b.data[:max])
	b.data = append(b.data[:0], b.data[max:]...)
	return out
}

// Requeue returns records to the front of the buffer after a failed
// flush, preserving their original order.
func (b *MemBuffer) Requeue(records []bufferedRecord) {
	if len(records) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(records, b.data...)
	if len(b.data) > b.cap {
		b.data = b.data[:b.cap]
	}
}

func (b *MemBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
