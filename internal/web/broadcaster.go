package web

import "sync"

// SnapshotBroadcaster fans fresh widget views out to connected widget
// clients. Slow listeners drop updates rather than stall the publisher; the
// next snapshot converges them anyway.
type SnapshotBroadcaster struct {
	latest    *WidgetView
	listeners []chan WidgetView
	mu        sync.RWMutex
}

func NewSnapshotBroadcaster() *SnapshotBroadcaster {
	return &SnapshotBroadcaster{}
}

func (b *SnapshotBroadcaster) Publish(view WidgetView) {
	b.mu.Lock()
	b.latest = &view
	listeners := make([]chan WidgetView, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- view:
		default:
		}
	}
}

// Subscribe returns a channel primed with the latest view, when one exists.
func (b *SnapshotBroadcaster) Subscribe() chan WidgetView {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan WidgetView, 10)
	b.listeners = append(b.listeners, ch)
	if b.latest != nil {
		ch <- *b.latest
	}
	return ch
}

func (b *SnapshotBroadcaster) Unsubscribe(ch chan WidgetView) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}
