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

package robot

import (
	"context"
	"errors"
	"sync"

	"github.com/carverauto/robotsupervisor/pkg/broadcast"
	"github.com/carverauto/robotsupervisor/pkg/reply"
)

// ErrActorStopped is returned by a Handle whose actor is no longer running.
var ErrActorStopped = errors.New("robot actor stopped")

// Handle is the sending side of an actor's mailbox. It is safe for
// concurrent use. Every method blocks until the actor has serviced the
// request or ctx ends.
type Handle struct {
	id      string
	mailbox chan Action
	done    <-chan struct{}

	mu     sync.RWMutex
	closed bool
}

// ID returns the robot's identifier.
func (h *Handle) ID() string {
	return h.id
}

// Send posts an action without waiting for its reply.
func (h *Handle) Send(ctx context.Context, act Action) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrActorStopped
	}

	select {
	case h.mailbox <- act:
		return nil
	case <-h.done:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the mailbox. The actor stops once it has handled the
// actions already queued.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true
	close(h.mailbox)
}

// Associate hands dev to the robot as its link of the given kind and waits
// until the link is configured.
func (h *Handle) Associate(ctx context.Context, kind LinkKind, dev Device) error {
	slot := reply.NewError()
	if err := h.Send(ctx, Associate{Link: kind, Device: dev, Reply: slot}); err != nil {
		return err
	}

	return reply.Await(ctx, slot)
}

// Execute runs cmd on the link of the given kind.
func (h *Handle) Execute(ctx context.Context, kind LinkKind, cmd Command) error {
	slot := reply.NewError()
	if err := h.Send(ctx, Execute{Link: kind, Command: cmd, Reply: slot}); err != nil {
		return err
	}

	return reply.Await(ctx, slot)
}

// Subscribe returns a subscription to the robot's updates. The current
// link state is replayed to it.
func (h *Handle) Subscribe(ctx context.Context) (*broadcast.Subscription[Update], error) {
	slot := reply.New[*broadcast.Subscription[Update]]()
	if err := h.Send(ctx, Subscribe{Reply: slot}); err != nil {
		return nil, err
	}

	return slot.Wait(ctx)
}

// Descriptor returns a copy of the robot's descriptor.
func (h *Handle) Descriptor(ctx context.Context) (Descriptor, error) {
	slot := reply.New[Descriptor]()
	if err := h.Send(ctx, GetDescriptor{Reply: slot}); err != nil {
		return Descriptor{}, err
	}

	return slot.Wait(ctx)
}

// Links returns the address of every associated link by kind.
func (h *Handle) Links(ctx context.Context) (map[LinkKind]string, error) {
	slot := reply.New[map[LinkKind]string]()
	if err := h.Send(ctx, GetLinks{Reply: slot}); err != nil {
		return nil, err
	}

	return slot.Wait(ctx)
}

// UploadExperiment copies software to the companion computer.
func (h *Handle) UploadExperiment(ctx context.Context, software Software) error {
	slot := reply.NewError()
	if err := h.Send(ctx, UploadExperiment{Software: software, Reply: slot}); err != nil {
		return err
	}

	return reply.Await(ctx, slot)
}

// StartExperiment runs the uploaded experiment.
func (h *Handle) StartExperiment(ctx context.Context) error {
	slot := reply.NewError()
	if err := h.Send(ctx, StartExperiment{Reply: slot}); err != nil {
		return err
	}

	return reply.Await(ctx, slot)
}

// StopExperiment terminates the running experiment.
func (h *Handle) StopExperiment(ctx context.Context) error {
	slot := reply.NewError()
	if err := h.Send(ctx, StopExperiment{Reply: slot}); err != nil {
		return err
	}

	return reply.Await(ctx, slot)
}
