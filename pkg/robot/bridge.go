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
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/robotsupervisor/pkg/logger"
)

// bridgeFunc runs one protocol bridge until it fails or ctx ends.
type bridgeFunc func(ctx context.Context, cmds <-chan request) error

// bridge is a running protocol bridge. A supervisor holds exactly one per
// bridge kind and replaces it wholesale when it exits.
type bridge struct {
	name string
	cmds chan request
	done chan struct{}
	err  error
}

// startBridge runs fn on its own goroutine after delay.
func startBridge(ctx context.Context, name string, delay time.Duration, fn bridgeFunc) *bridge {
	b := &bridge{
		name: name,
		cmds: make(chan request, commandBuffer),
		done: make(chan struct{}),
	}

	go func() {
		defer close(b.done)

		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()

			select {
			case <-t.C:
			case <-ctx.Done():
				b.err = ctx.Err()
				return
			}
		}

		b.err = fn(ctx, b.cmds)
	}()

	return b
}

// forward queues req for the bridge without waiting. A request for an
// exited bridge is dropped.
func (b *bridge) forward(req request) {
	select {
	case <-b.done:
		req.reply.Drop()
		return
	default:
	}

	offer(b.cmds, req, b.name+" bridge")
}

// restart replaces an exited bridge with a fresh one and a fresh command
// channel. A bridge that failed is restarted after delay.
func (b *bridge) restart(ctx context.Context, delay time.Duration, fn bridgeFunc, log logger.Logger) *bridge {
	drain(b.cmds)

	if b.err != nil && ctx.Err() == nil {
		log.Warn().Err(b.err).Str("bridge", b.name).Msg("Bridge exited, restarting")
	} else {
		log.Debug().Str("bridge", b.name).Msg("Bridge exited, restarting")
		delay = 0
	}

	return startBridge(ctx, b.name, delay, fn)
}

// wait blocks until the bridge goroutine has returned.
func (b *bridge) wait() {
	<-b.done
}

// inflight runs device commands off a supervisor loop, at most
// commandBuffer of them at once.
type inflight struct {
	g errgroup.Group
}

func newInflight() *inflight {
	f := &inflight{}
	f.g.SetLimit(commandBuffer)

	return f
}

// run executes fn for req on its own goroutine and settles the reply with
// its result. Past the limit req fails with ErrLinkBusy.
func (f *inflight) run(ctx context.Context, req request, fn func(context.Context) error) {
	started := f.g.TryGo(func() error {
		settle(ctx, req, fn(ctx))
		return nil
	})

	if !started {
		req.reply.Fulfill(fmt.Errorf("%s: %w", req.cmd.Name(), ErrLinkBusy))
	}
}

// wait blocks until every started command has replied.
func (f *inflight) wait() {
	_ = f.g.Wait()
}

// lossyText converts process output to valid UTF-8, replacing bad bytes.
func lossyText(data []byte) string {
	return strings.ToValidUTF8(string(data), "�")
}
