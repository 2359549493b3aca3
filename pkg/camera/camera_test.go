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

package camera

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotsupervisor/pkg/fernbedienung"
	"github.com/carverauto/robotsupervisor/pkg/logger"
)

type fakeProcess struct {
	terminated atomic.Bool
}

func (*fakeProcess) Stdout() <-chan []byte               { return nil }
func (*fakeProcess) Stderr() <-chan []byte               { return nil }
func (*fakeProcess) Done() <-chan struct{}               { return nil }
func (*fakeProcess) Err() error                          { return nil }
func (*fakeProcess) Write(context.Context, []byte) error { return nil }
func (p *fakeProcess) Terminate(context.Context) error   { p.terminated.Store(true); return nil }

type fakeLauncher struct {
	mu    sync.Mutex
	specs []fernbedienung.ProcessSpec
	procs []*fakeProcess
	err   error
}

func (l *fakeLauncher) Run(_ context.Context, spec fernbedienung.ProcessSpec) (fernbedienung.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}

	p := &fakeProcess{}
	l.specs = append(l.specs, spec)
	l.procs = append(l.procs, p)

	return p, nil
}

func snapshotServer(t *testing.T, status int) (string, int, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		if r.URL.Query().Get("action") != "snapshot" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	}))
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)

	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return host, port, &hits
}

func TestStreamerSpec(t *testing.T) {
	spec := StreamerSpec(DroneCameras[2])

	assert.Equal(t, "mjpg_streamer", spec.Target)
	assert.Equal(t, []string{
		"-i", "input_uvc.so -d /dev/camera2 -r 1024x768 -n",
		"-o", "output_http.so -p 8002 -n",
	}, spec.Args)
}

func TestSnapshotURL(t *testing.T) {
	assert.Equal(t, "http://10.0.0.7:8001/?action=snapshot", SnapshotURL("10.0.0.7", 8001))
}

func TestSetDeliversFramesFromEveryCamera(t *testing.T) {
	host, port, _ := snapshotServer(t, http.StatusOK)
	launcher := &fakeLauncher{}

	cameras := []Config{
		{Device: "/dev/camera0", Width: 640, Height: 480, Port: port},
		{Device: "/dev/camera1", Width: 640, Height: 480, Port: port},
	}

	set := Start(context.Background(), host, cameras, launcher, Options{Interval: 5 * time.Millisecond}, logger.NewTestLogger())

	seen := make(map[string]bool)
	deadline := time.After(5 * time.Second)

	for len(seen) < 2 {
		select {
		case f := <-set.Frames():
			require.NoError(t, f.Err)
			assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, f.Data)
			seen[f.Camera] = true
		case <-deadline:
			t.Fatal("timed out waiting for frames")
		}
	}

	set.Stop()

	launcher.mu.Lock()
	defer launcher.mu.Unlock()

	require.Len(t, launcher.procs, 2)

	for _, p := range launcher.procs {
		assert.True(t, p.terminated.Load(), "streamer must be terminated on stop")
	}
}

func TestStreamIsRateLimited(t *testing.T) {
	host, port, hits := snapshotServer(t, http.StatusOK)

	set := Start(context.Background(), host, []Config{{Device: "/dev/camera0", Port: port}}, nil,
		Options{Interval: 100 * time.Millisecond}, logger.NewTestLogger())

	stop := time.After(350 * time.Millisecond)

	frames := 0

loop:
	for {
		select {
		case <-set.Frames():
			frames++
		case <-stop:
			break loop
		}
	}

	set.Stop()

	assert.GreaterOrEqual(t, frames, 2)
	assert.LessOrEqual(t, hits.Load(), int64(6))
}

func TestSnapshotErrorBecomesFrame(t *testing.T) {
	host, port, _ := snapshotServer(t, http.StatusServiceUnavailable)

	set := Start(context.Background(), host, []Config{{Device: "/dev/camera0", Port: port}}, nil,
		Options{Interval: time.Millisecond, SkipLaunch: true}, logger.NewTestLogger())
	defer set.Stop()

	select {
	case f := <-set.Frames():
		require.ErrorIs(t, f.Err, errStatus)
		assert.Equal(t, "/dev/camera0", f.Camera)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestLaunchFailureEndsStream(t *testing.T) {
	host, port, hits := snapshotServer(t, http.StatusOK)
	launcher := &fakeLauncher{err: errors.New("no such binary")}

	set := Start(context.Background(), host, []Config{{Device: "/dev/camera0", Port: port}}, launcher,
		Options{Interval: time.Millisecond}, logger.NewTestLogger())

	f := <-set.Frames()
	require.Error(t, f.Err)

	set.Stop()
	assert.Zero(t, hits.Load())
}

func TestNilSet(t *testing.T) {
	var set *Set

	assert.Nil(t, set.Frames())
	assert.NotPanics(t, set.Stop)
}
