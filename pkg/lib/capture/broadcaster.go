package capture

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Subscribe once the broadcaster has been stopped.
var ErrStopped = errors.New("broadcaster is stopped")

// Broadcaster fans every published value out to all current subscribers.
// Publishing never blocks: a full subscriber loses its oldest value.
type Broadcaster[T any] struct {
	messageReceiver chan T
	mu              sync.Mutex
	subscribers     map[chan T]struct{}
	closed          bool // messageReceiver closed
	stopped         bool // subscribers closed
}

// RunNewBroadcaster creates a Broadcaster and starts its delivery goroutine.
func RunNewBroadcaster[T any]() *Broadcaster[T] {
	broadcaster := &Broadcaster[T]{
		messageReceiver: make(chan T, 16),
		subscribers:     make(map[chan T]struct{}),
	}
	go broadcaster.start()
	return broadcaster
}

func (broadcaster *Broadcaster[T]) start() {
	for msg := range broadcaster.messageReceiver {
		// Sends are non-blocking, so delivering under the lock is cheap and
		// keeps Unsubscribe from closing a channel mid-send.
		broadcaster.mu.Lock()
		for s := range broadcaster.subscribers {
			deliver(s, msg)
		}
		broadcaster.mu.Unlock()
	}

	broadcaster.mu.Lock()
	for s := range broadcaster.subscribers {
		close(s)
	}
	broadcaster.subscribers = nil
	broadcaster.stopped = true
	broadcaster.mu.Unlock()
}

func deliver[T any](s chan T, msg T) {
	for {
		select {
		case s <- msg:
			return
		default:
		}
		// full: drop the oldest value and retry
		select {
		case <-s:
		default:
		}
	}
}

// Stop closes every subscriber channel once pending values are delivered.
// It is safe to call more than once.
func (broadcaster *Broadcaster[T]) Stop() {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if broadcaster.closed {
		return
	}
	broadcaster.closed = true
	close(broadcaster.messageReceiver)
}

// Subscribe registers a new subscriber with the given buffer capacity.
func (broadcaster *Broadcaster[T]) Subscribe(capacity int) (chan T, error) {
	if capacity < 1 {
		capacity = 1
	}
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if broadcaster.closed || broadcaster.stopped {
		return nil, ErrStopped
	}
	ch := make(chan T, capacity)
	broadcaster.subscribers[ch] = struct{}{}
	return ch, nil
}

// Unsubscribe removes and closes a subscriber channel.
func (broadcaster *Broadcaster[T]) Unsubscribe(subscriber chan T) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if _, ok := broadcaster.subscribers[subscriber]; !ok {
		return
	}
	delete(broadcaster.subscribers, subscriber)
	close(subscriber)
}

// Publish queues msg for delivery. Values published after Stop are dropped.
func (broadcaster *Broadcaster[T]) Publish(msg T) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if broadcaster.closed {
		return
	}
	deliver(broadcaster.messageReceiver, msg)
}
