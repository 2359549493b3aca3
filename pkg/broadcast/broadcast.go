/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package broadcast implements a lossy multi-subscriber fan-out channel.
//
// Every subscriber owns a bounded buffer. A subscriber that falls behind
// loses its oldest buffered values instead of stalling the sender, so a
// slow dashboard can never hold up robot control.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultCapacity is the per-subscriber buffer used when none is given.
const DefaultCapacity = 16

// Broadcaster fans values of type T out to every current subscriber.
type Broadcaster[T any] struct {
	mu       sync.RWMutex
	subs     map[uuid.UUID]*Subscription[T]
	capacity int
	closed   bool
}

// Subscription receives the values sent after it was created.
type Subscription[T any] struct {
	id      uuid.UUID
	ch      chan T
	owner   *Broadcaster[T]
	dropped atomic.Uint64
}

// New creates a broadcaster whose subscribers buffer up to capacity values.
func New[T any](capacity int) *Broadcaster[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Broadcaster[T]{
		subs:     make(map[uuid.UUID]*Subscription[T]),
		capacity: capacity,
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed broadcaster
// yields a subscription whose channel is already closed.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		id:    uuid.New(),
		ch:    make(chan T, b.capacity),
		owner: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub
	}

	b.subs[sub.id] = sub

	return sub
}

// Send delivers v to every subscriber and returns how many received it.
// Sending with no subscribers is not an error.
func (b *Broadcaster[T]) Send(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		sub.push(v)
	}

	return len(b.subs)
}

// Len returns the number of live subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

// Close ends every subscription. Later sends are discarded.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

func (s *Subscription[T]) push(v T) {
	select {
	case s.ch <- v:
		return
	default:
	}

	// evict the oldest value to make room
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}

	select {
	case s.ch <- v:
	default:
		s.dropped.Add(1)
	}
}

// ID identifies the subscription.
func (s *Subscription[T]) ID() uuid.UUID {
	return s.id
}

// C returns the channel values are delivered on. It is closed when the
// subscription or the broadcaster is closed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped reports how many values this subscriber lost by lagging.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription[T]) Close() {
	b := s.owner

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s.id]; !ok {
		return
	}

	delete(b.subs, s.id)
	close(s.ch)
}
