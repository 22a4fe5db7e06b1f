// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coordinator

import (
	"sync"

	"github.com/AleutianAI/sortvis/services/sorter/sequence"
)

// broadcaster fans step snapshots out to subscribers.
//
// Each subscriber has a one-slot buffer. When the slot is full the stale
// snapshot is replaced, so publishing never blocks the worker and a reader
// always ends up with the newest step.
//
// Thread Safety: Safe for concurrent use.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan sequence.StepSnapshot
	nextID int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan sequence.StepSnapshot)}
}

// subscribe registers a new subscriber. The returned cancel function closes
// the channel and is safe to call more than once.
func (b *broadcaster) subscribe() (<-chan sequence.StepSnapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan sequence.StepSnapshot, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// publish delivers snap to every subscriber, replacing any unread snapshot.
func (b *broadcaster) publish(snap sequence.StepSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Publishers are serialized by b.mu, so after draining the slot the
		// second send cannot fail.
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// close closes every subscriber channel. Later subscriptions get a closed channel.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
