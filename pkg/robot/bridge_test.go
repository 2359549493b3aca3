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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/reply"
)

func idleBridge(started chan<- time.Time) bridgeFunc {
	return func(ctx context.Context, _ <-chan request) error {
		started <- time.Now()
		<-ctx.Done()

		return ctx.Err()
	}
}

func TestFailedBridgeRestartsAfterDelay(t *testing.T) {
	ctx := testContext(t)

	failed := startBridge(ctx, "serial", 0, func(context.Context, <-chan request) error { return errLink })
	failed.wait()

	const delay = 50 * time.Millisecond

	started := make(chan time.Time, 1)
	began := time.Now()
	next := failed.restart(ctx, delay, idleBridge(started), logger.NewTestLogger())

	select {
	case at := <-started:
		assert.GreaterOrEqual(t, at.Sub(began), delay)
	case <-time.After(waitTimeout):
		t.Fatal("bridge never restarted")
	}

	assert.Equal(t, "serial", next.name)
}

func TestCleanBridgeExitRestartsAtOnce(t *testing.T) {
	ctx := testContext(t)

	finished := startBridge(ctx, "shell", 0, func(context.Context, <-chan request) error { return nil })
	finished.wait()

	started := make(chan time.Time, 1)
	finished.restart(ctx, time.Hour, idleBridge(started), logger.NewTestLogger())

	select {
	case <-started:
	case <-time.After(waitTimeout):
		t.Fatal("bridge held back after a clean exit")
	}
}

func TestForwardToFullBridgeIsBusy(t *testing.T) {
	ctx := testContext(t)

	started := make(chan time.Time, 1)
	b := startBridge(ctx, "experiment", 0, idleBridge(started))
	<-started

	for range commandBuffer {
		b.forward(request{cmd: startExperiment{}, reply: reply.NewError()})
	}

	overflow := reply.NewError()
	b.forward(request{cmd: startExperiment{}, reply: overflow})

	require.ErrorIs(t, reply.Await(ctx, overflow), ErrLinkBusy)
}
