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

// Package reply provides single-use reply slots for request/response
// messages passed between goroutines.
package reply

import (
	"context"
	"errors"
	"sync"
)

// ErrNoResponse is returned to a waiter whose request was dropped before
// it could be serviced.
var ErrNoResponse = errors.New("did not receive response")

// Slot carries one value from the goroutine servicing a request back to the
// goroutine that made it. Fulfill and Drop may be called from any goroutine;
// only the first of them has an effect.
type Slot[T any] struct {
	value     chan T
	dropped   chan struct{}
	abandoned chan struct{}
	settle    sync.Once
	abandon   sync.Once
}

// New returns an empty slot.
func New[T any]() *Slot[T] {
	return &Slot[T]{
		value:     make(chan T, 1),
		dropped:   make(chan struct{}),
		abandoned: make(chan struct{}),
	}
}

// Fulfill stores v. It reports false if the slot was already settled or the
// waiter has gone away, in which case v is discarded.
func (s *Slot[T]) Fulfill(v T) bool {
	if s == nil {
		return false
	}

	select {
	case <-s.abandoned:
		return false
	default:
	}

	ok := false

	s.settle.Do(func() {
		s.value <- v
		ok = true
	})

	return ok
}

// Drop settles the slot without a value; the waiter receives ErrNoResponse.
func (s *Slot[T]) Drop() {
	if s == nil {
		return
	}

	s.settle.Do(func() {
		close(s.dropped)
	})
}

// Wait blocks until the slot is settled or ctx is done. A waiter that gives
// up abandons the slot.
func (s *Slot[T]) Wait(ctx context.Context) (T, error) {
	var zero T

	select {
	case v := <-s.value:
		return v, nil
	case <-s.dropped:
		return zero, ErrNoResponse
	case <-ctx.Done():
		s.Abandon()

		return zero, ctx.Err()
	}
}

// Abandon tells the servicing side that nobody is waiting any more.
func (s *Slot[T]) Abandon() {
	s.abandon.Do(func() {
		close(s.abandoned)
	})
}

// Error is a slot carrying only the outcome of a command.
type Error = Slot[error]

// NewError returns an empty error slot.
func NewError() *Error {
	return New[error]()
}

// Await waits on an error slot and folds the transport outcome and the
// command outcome into one error.
func Await(ctx context.Context, s *Error) error {
	err, waitErr := s.Wait(ctx)
	if waitErr != nil {
		return waitErr
	}

	return err
}
