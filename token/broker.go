// Package token hands short-lived challenge tokens from the out-of-band
// capture flow to whichever template runner needs one next.
package token

import (
	"context"
	"log"
	"sync"
	"time"
)

// TTL is how long a captured token stays usable.
const TTL = 2 * time.Minute

type queuedToken struct {
	value      string
	receivedAt time.Time
}

// pending is the shared hand-off for everyone waiting on the next token:
// all current waiters resolve to the same value when Supply fires.
type pending struct {
	done  chan struct{}
	value string
}

// Broker is process-wide: one instance is shared by every template.
type Broker struct {
	mu      sync.Mutex
	queue   []queuedToken
	waiting *pending
	now     func() time.Time // swappable in tests
}

func NewBroker() *Broker {
	return &Broker{now: time.Now}
}

// Get returns a queued, unexpired token immediately (FIFO), or blocks until
// Supply delivers one or ctx is cancelled. The broker itself never times
// out; bounding the wait is the caller's job.
func (b *Broker) Get(ctx context.Context, label string) (string, error) {
	b.mu.Lock()
	b.purgeExpiredLocked()

	if len(b.queue) > 0 {
		tok := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()
		return tok.value, nil
	}

	if b.waiting == nil {
		log.Printf("TOKEN: ⏳ %q is waiting for a token.", label)
		b.waiting = &pending{done: make(chan struct{})}
	}
	p := b.waiting
	b.mu.Unlock()

	select {
	case <-p.done:
		return p.value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Supply delivers a freshly captured token: resolves the current waiters if
// any, otherwise queues it.
func (b *Broker) Supply(value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.waiting != nil {
		log.Printf("TOKEN: ✅ Token received, consumed by waiting task.")
		b.waiting.value = value
		close(b.waiting.done)
		b.waiting = nil
		return
	}

	b.queue = append(b.queue, queuedToken{value: value, receivedAt: b.now()})
	log.Printf("TOKEN: ✅ Token received. Queue size: %d", len(b.queue))
}

// Invalidate discards the oldest queued token, typically after the remote
// service rejected it.
func (b *Broker) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) > 0 {
		b.queue = b.queue[1:]
		log.Printf("TOKEN: 🔄 Invalidated token. %d left.", len(b.queue))
	}
}

// Needed reports whether some template is currently blocked waiting for a
// token. The capture flow polls this.
func (b *Broker) Needed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waiting != nil
}

// QueueSize returns the number of usable queued tokens.
func (b *Broker) QueueSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.purgeExpiredLocked()
	return len(b.queue)
}

func (b *Broker) purgeExpiredLocked() {
	now := b.now()
	kept := b.queue[:0]
	for _, t := range b.queue {
		if now.Sub(t.receivedAt) < TTL {
			kept = append(kept, t)
		}
	}
	if removed := len(b.queue) - len(kept); removed > 0 {
		log.Printf("TOKEN: 🗑️ Discarded %d expired token(s).", removed)
	}
	b.queue = kept
}
