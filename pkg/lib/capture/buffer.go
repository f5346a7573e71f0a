package capture

import (
	"context"
	"sync/atomic"
)

// DefaultLimit bounds the bytes a Buffer retains when no limit is given.
const DefaultLimit = 1 << 20

// node is an element of the append-only list. The node that head points to
// is a sentinel: its data has been dropped (or it never had any).
type node struct {
	data []byte
	next atomic.Pointer[node]
}

// Buffer keeps the most recent output of one process stream as a singly
// linked list of chunks. There is a single appender; readers may run
// concurrently with it and see a best-effort snapshot.
// When the retained size exceeds the limit the oldest chunks are dropped.
type Buffer struct {
	head  atomic.Pointer[node]
	tail  *node // owned by the appender
	size  atomic.Int64
	limit int64

	broadcaster *Broadcaster[struct{}]
}

// RunNewBuffer creates an empty Buffer retaining at most limit bytes
// (DefaultLimit when limit <= 0).
func RunNewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	sentinel := &node{}
	b := &Buffer{
		tail:        sentinel,
		limit:       int64(limit),
		broadcaster: RunNewBroadcaster[struct{}](),
	}
	b.head.Store(sentinel)
	return b
}

// Stop marks the end of the stream. Running subscriptions drain and close.
func (b *Buffer) Stop() {
	if b == nil {
		return
	}
	b.broadcaster.Stop()
}

// Append adds data to the end of the buffer. The slice is stored as-is.
func (b *Buffer) Append(data []byte) {
	if b == nil {
		return
	}
	newTail := &node{data: data}
	b.tail.next.Store(newTail)
	b.tail = newTail
	b.size.Add(int64(len(data)))
	b.trim()
	b.broadcaster.Publish(struct{}{})
}

// trim advances head past old chunks, always keeping the newest one.
func (b *Buffer) trim() {
	for b.size.Load() > b.limit {
		head := b.head.Load()
		next := head.next.Load()
		if next == nil || next == b.tail {
			return
		}
		b.head.Store(next)
		b.size.Add(-int64(len(next.data)))
	}
}

// Len returns the number of retained bytes.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return int(b.size.Load())
}

// ForEach iterates over retained chunks in insertion order until iter
// returns false.
func (b *Buffer) ForEach(iter func([]byte) bool) {
	if b == nil || iter == nil {
		return
	}
	for cur := b.head.Load().next.Load(); cur != nil; cur = cur.next.Load() {
		if !iter(cur.data) {
			return
		}
	}
}

// Bytes concatenates all retained chunks.
func (b *Buffer) Bytes() []byte {
	total := 0
	chunks := make([][]byte, 0, 16)
	b.ForEach(func(c []byte) bool {
		chunks = append(chunks, c)
		total += len(c)
		return true
	})
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// String returns the retained output as a string.
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Tail returns at most n bytes from the end of the retained output.
func (b *Buffer) Tail(n int) string {
	out := b.Bytes()
	if n >= 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return string(out)
}

// Subscribe replays retained chunks and then follows new ones until the
// buffer is stopped, at which point the channel is closed. Cancelling ctx
// ends the subscription early and closes the channel even when the reader
// has stopped receiving.
func (b *Buffer) Subscribe(ctx context.Context, capacity int) <-chan []byte {
	ch := make(chan []byte, capacity)
	notifier, err := b.broadcaster.Subscribe(1)
	if err != nil {
		go b.replay(ctx, ch)
	} else {
		go b.follow(ctx, notifier, ch)
	}
	return ch
}

func (b *Buffer) follow(ctx context.Context, notifier chan struct{}, ch chan []byte) {
	defer close(ch)
	defer b.broadcaster.Unsubscribe(notifier)

	prev := b.head.Load()
	for {
		current := prev.next.Load()
		if current == nil {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notifier:
				if ok {
					continue
				}
			}
			// appends that raced with Stop are still visible
			for current = prev.next.Load(); current != nil; current = current.next.Load() {
				if !send(ctx, ch, current.data) {
					return
				}
			}
			return
		}
		prev = current
		if !send(ctx, ch, current.data) {
			return
		}
	}
}

func (b *Buffer) replay(ctx context.Context, ch chan []byte) {
	defer close(ch)
	b.ForEach(func(c []byte) bool {
		return send(ctx, ch, c)
	})
}

func send(ctx context.Context, ch chan []byte, data []byte) bool {
	select {
	case ch <- data:
		return true
	case <-ctx.Done():
		return false
	}
}
