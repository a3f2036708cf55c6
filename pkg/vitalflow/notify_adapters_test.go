package vitalflow

import (
	"testing"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

func TestCallbackNotifierInvokesFunc(t *testing.T) {
	var got []Alert
	n := NewCallbackNotifier(func(a Alert) { got = append(got, a) })

	n.Deliver(Alert{ID: "a1", Type: domain.AlertCardiac})
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("expected delivered alert a1, got %v", got)
	}
}

func TestCallbackNotifierNilFunc(t *testing.T) {
	n := NewCallbackNotifier(nil)
	n.Deliver(Alert{ID: "a1"}) // must not panic
}

func TestChannelNotifierDelivers(t *testing.T) {
	n, ch, closeFn := NewChannelNotifier(4)
	defer closeFn()

	n.Deliver(Alert{ID: "a1"})
	select {
	case a := <-ch:
		if a.ID != "a1" {
			t.Fatalf("expected a1, got %s", a.ID)
		}
	default:
		t.Fatal("expected buffered alert")
	}
}

func TestChannelNotifierDropsOldestWhenFull(t *testing.T) {
	n, ch, closeFn := NewChannelNotifier(2)
	defer closeFn()

	n.Deliver(Alert{ID: "a1"})
	n.Deliver(Alert{ID: "a2"})
	n.Deliver(Alert{ID: "a3"}) // evicts a1

	first := <-ch
	if first.ID != "a2" {
		t.Fatalf("expected oldest surviving alert a2, got %s", first.ID)
	}
	second := <-ch
	if second.ID != "a3" {
		t.Fatalf("expected a3, got %s", second.ID)
	}
}

func TestChannelNotifierClosedDeliveryIsNoop(t *testing.T) {
	n, _, closeFn := NewChannelNotifier(2)
	closeFn()
	n.Deliver(Alert{ID: "a1"}) // must not panic
	closeFn()                  // idempotent
}
