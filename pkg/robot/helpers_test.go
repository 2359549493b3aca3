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
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/robotsupervisor/pkg/broadcast"
	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/probe"
	"github.com/carverauto/robotsupervisor/pkg/xbee"
)

const waitTimeout = 5 * time.Second

var errLink = errors.New("link lost")

func testConfig() Config {
	return Config{
		Probe:              probe.Config{Interval: time.Hour},
		BridgeRestartDelay: -1,
		RouterAddr:         "10.0.0.1:4950",
		SerialDial: func(ctx context.Context, _ string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)

	return ctx
}

// startActor runs an actor until the test ends.
func startActor(t *testing.T, desc Descriptor, cfg Config) (*Actor, *Handle) {
	t.Helper()

	a := New(desc, cfg, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		_ = a.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	return a, a.Handle()
}

func drone(id string) Descriptor {
	return Descriptor{ID: id, Kind: KindDrone}
}

func subscribe(t *testing.T, h *Handle) *broadcast.Subscription[Update] {
	t.Helper()

	sub, err := h.Subscribe(testContext(t))
	require.NoError(t, err)

	return sub
}

// waitUpdate returns the first update of type T satisfying match, failing
// the test if the subscription ends or nothing arrives in time.
func waitUpdate[T Update](t *testing.T, sub *broadcast.Subscription[Update], match func(T) bool) T {
	t.Helper()

	deadline := time.After(waitTimeout)

	for {
		select {
		case u, ok := <-sub.C():
			require.True(t, ok, "subscription closed")

			if v, isT := u.(T); isT && (match == nil || match(v)) {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T update", zero)

			return zero
		}
	}
}

func companionMock(ctrl *gomock.Controller, addr string) *MockCompanionDevice {
	dev := NewMockCompanionDevice(ctrl)
	dev.EXPECT().Addr().Return(addr).AnyTimes()
	dev.EXPECT().Host().Return("127.0.0.1").AnyTimes()
	dev.EXPECT().LinkStrength(gomock.Any()).Return(-40, nil).AnyTimes()

	return dev
}

func radioMock(ctrl *gomock.Controller, addr string) *MockRadioDevice {
	dev := NewMockRadioDevice(ctrl)
	dev.EXPECT().Addr().Return(addr).AnyTimes()
	dev.EXPECT().Host().Return("127.0.0.1").AnyTimes()

	return dev
}

func expectRadioConfig(dev *MockRadioDevice) {
	gomock.InOrder(
		dev.EXPECT().SetPinModes(gomock.Any(), radioPinModes).Return(nil),
		dev.EXPECT().SetSCSMode(gomock.Any(), true).Return(nil),
		dev.EXPECT().SetBaudRate(gomock.Any(), 115200).Return(nil),
	)
}

func expectRadioProbes(dev *MockRadioDevice) {
	dev.EXPECT().LinkMargin(gomock.Any()).Return(30, nil).AnyTimes()
	dev.EXPECT().PinStates(gomock.Any()).Return(map[xbee.Pin]bool{xbee.DIO11: true, xbee.DIO12: false}, nil).AnyTimes()
}

// fakeProcess is a remote process whose output the test controls.
type fakeProcess struct {
	stdout chan []byte
	stderr chan []byte
	done   chan struct{}

	mu         sync.Mutex
	err        error
	exited     bool
	writes     []string
	terminated bool
	onWrite    func(p *fakeProcess, data string)
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{
		stdout: make(chan []byte, 16),
		stderr: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
}

func (p *fakeProcess) Stdout() <-chan []byte { return p.stdout }
func (p *fakeProcess) Stderr() <-chan []byte { return p.stderr }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

func (p *fakeProcess) Write(_ context.Context, data []byte) error {
	p.mu.Lock()
	p.writes = append(p.writes, string(data))
	onWrite := p.onWrite
	p.mu.Unlock()

	if onWrite != nil {
		onWrite(p, string(data))
	}

	return nil
}

func (p *fakeProcess) Terminate(context.Context) error {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()

	p.exit(errors.New("terminated"))

	return nil
}

// exit closes the output channels, then done.
func (p *fakeProcess) exit(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited {
		return
	}

	p.exited = true
	p.err = err

	close(p.stdout)
	close(p.stderr)
	close(p.done)
}

func (p *fakeProcess) wasTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.terminated
}
