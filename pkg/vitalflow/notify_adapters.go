package vitalflow

import (
	"sync"
)

// AlertFunc handles one delivered alert.
type AlertFunc func(Alert)

// NewCallbackNotifier adapts a function into a Notifier so callers can
// react to alerts without defining structs. The function runs on the
// pipeline goroutine and must return quickly.
func NewCallbackNotifier(fn AlertFunc) Notifier {
	return &callbackNotifier{fn: fn}
}

// NewChannelNotifier exposes alerts via a channel; it returns the
// notifier, the read-only channel, and a close function for shutdown.
// Delivery never blocks: when the buffer is full the oldest pending
// alert is dropped in favor of the new one.
func NewChannelNotifier(buffer int) (Notifier, <-chan Alert, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Alert, buffer)
	n := &channelNotifier{ch: ch, closed: make(chan struct{})}
	return n, ch, func() { n.close() }
}

type callbackNotifier struct {
	fn AlertFunc
}

func (n *callbackNotifier) Deliver(a Alert) {
	if n.fn != nil {
		n.fn(a)
	}
}

type channelNotifier struct {
	ch     chan Alert
	closed chan struct{}
	once   sync.Once
}

func (n *channelNotifier) Deliver(a Alert) {
	select {
	case <-n.closed:
		return
	default:
	}

	for {
		select {
		case <-n.closed:
			return
		case n.ch <- a:
			return
		default:
			// Buffer full: drop the oldest so the newest alert wins.
			select {
			case <-n.ch:
			default:
			}
		}
	}
}

func (n *channelNotifier) close() {
	n.once.Do(func() {
		close(n.closed)
		close(n.ch)
	})
}

type nopNotifier struct{}

func (nopNotifier) Deliver(Alert) {}
