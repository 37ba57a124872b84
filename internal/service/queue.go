// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package service

import "sync/atomic"

// =============================================================================
// NOTIFICATION QUEUE
// =============================================================================

// Queue is a single-slot queue of "settings changed" notifications. Any
// number of Notify calls made while one is pending collapse into it, so the
// consumer runs one reconciliation per burst and never two at once.
type Queue struct {
	slot chan struct{}

	// received counts Notify calls; coalesced counts those absorbed.
	received  atomic.Int64
	coalesced atomic.Int64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{slot: make(chan struct{}, 1)}
}

// Notify enqueues a notification. It never blocks and reports whether the
// notification took the slot (false means it merged into a pending one).
func (q *Queue) Notify() bool {
	q.received.Add(1)
	select {
	case q.slot <- struct{}{}:
		return true
	default:
		q.coalesced.Add(1)
		return false
	}
}

// C is drained by the consumer.
func (q *Queue) C() <-chan struct{} {
	return q.slot
}

// Stats returns the notification counters.
func (q *Queue) Stats() (received, coalesced int64) {
	return q.received.Load(), q.coalesced.Load()
}
