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

// Package probe polls a single link metric with bounded silent retry.
//
// A Prober absorbs up to MaxFailures-1 consecutive failed reads without
// reporting them. The read that brings the streak to MaxFailures is
// reported and exhausts the prober for good; a successful read resets the
// streak to zero.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTimeout is the deadline given to every single read.
	DefaultTimeout = 500 * time.Millisecond
	// DefaultMaxFailures is the length of the failure streak that ends a probe.
	DefaultMaxFailures = 3
	// DefaultInterval is the minimum spacing between reads in a Stream.
	DefaultInterval = time.Second
)

var (
	// ErrExhausted is returned by Next once the prober has reported its terminal error.
	ErrExhausted = errors.New("probe exhausted")
	// ErrTimeout marks a read that did not complete within the per-attempt deadline.
	ErrTimeout = errors.New("probe timed out")
)

// ReadFunc performs one read of the probed metric.
type ReadFunc[T any] func(ctx context.Context) (T, error)

// Config tunes a prober; zero fields take the package defaults.
type Config struct {
	Timeout     time.Duration
	MaxFailures int
	Interval    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.MaxFailures <= 0 {
		c.MaxFailures = DefaultMaxFailures
	}

	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}

	return c
}

// Prober wraps a ReadFunc with the per-attempt deadline and retry policy.
// A Prober is not safe for concurrent use.
type Prober[T any] struct {
	name      string
	read      ReadFunc[T]
	cfg       Config
	failures  int
	exhausted bool
}

// New creates a prober named after the metric it reads.
func New[T any](name string, read ReadFunc[T], cfg Config) *Prober[T] {
	return &Prober[T]{
		name: name,
		read: read,
		cfg:  cfg.withDefaults(),
	}
}

// Failures returns the current consecutive-failure count.
func (p *Prober[T]) Failures() int {
	return p.failures
}

// Next reads until it gets a value or the failure streak reaches the
// threshold. It returns ctx.Err() if ctx ends first, leaving the streak as is.
func (p *Prober[T]) Next(ctx context.Context) (T, error) {
	var zero T

	for {
		if p.exhausted {
			return zero, ErrExhausted
		}

		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := p.attempt(ctx)
		if err == nil {
			p.failures = 0

			return v, nil
		}

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if done, terminal := p.fail(err); done {
			return zero, terminal
		}
	}
}

// Step performs exactly one read. ok is false when the read failed silently.
func (p *Prober[T]) Step(ctx context.Context) (v T, ok bool, err error) {
	if p.exhausted {
		return v, false, ErrExhausted
	}

	v, err = p.attempt(ctx)
	if err == nil {
		p.failures = 0

		return v, true, nil
	}

	if done, terminal := p.fail(err); done {
		return v, false, terminal
	}

	return v, false, nil
}

func (p *Prober[T]) fail(err error) (bool, error) {
	p.failures++

	if p.failures < p.cfg.MaxFailures {
		return false, nil
	}

	p.exhausted = true

	return true, fmt.Errorf("%s: %d consecutive failures: %w", p.name, p.failures, err)
}

func (p *Prober[T]) attempt(ctx context.Context) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	v, err := p.read(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return v, fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	return v, err
}

// Result is one element of a probe stream.
type Result[T any] struct {
	Value T
	Err   error
}

// Stream drives p from its own goroutine, one read per tick of the
// configured interval, and delivers results on the returned channel. The
// channel carries successful readings, then at most one terminal error,
// and is closed after the error or when ctx ends. Delivery is unbuffered:
// the prober does not read ahead of its consumer.
func Stream[T any](ctx context.Context, p *Prober[T], clock Clock) <-chan Result[T] {
	if clock == nil {
		clock = RealClock{}
	}

	out := make(chan Result[T])

	go func() {
		defer close(out)

		ticker := clock.Ticker(p.cfg.Interval)
		defer ticker.Stop()

		for {
			v, ok, err := p.Step(ctx)

			switch {
			case err != nil:
				if ctx.Err() == nil {
					select {
					case out <- Result[T]{Err: err}:
					case <-ctx.Done():
					}
				}

				return
			case ok:
				select {
				case out <- Result[T]{Value: v}:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.Chan():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
