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

// Package camera streams still frames from mjpg_streamer instances running
// on a robot's companion computer.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/carverauto/robotsupervisor/pkg/fernbedienung"
	"github.com/carverauto/robotsupervisor/pkg/logger"
)

const (
	// DefaultInterval is the minimum spacing between frames of one camera.
	DefaultInterval = 200 * time.Millisecond

	terminateTimeout = 2 * time.Second
	maxFrameSize     = 8 << 20
)

var errStatus = errors.New("camera: unexpected HTTP status")

// Config describes one camera and the port its streamer listens on.
type Config struct {
	Device string
	Width  int
	Height int
	Port   int
}

// DroneCameras is the camera layout of a drone's companion computer.
var DroneCameras = []Config{
	{Device: "/dev/camera0", Width: 1024, Height: 768, Port: 8000},
	{Device: "/dev/camera1", Width: 1024, Height: 768, Port: 8001},
	{Device: "/dev/camera2", Width: 1024, Height: 768, Port: 8002},
	{Device: "/dev/camera3", Width: 1024, Height: 768, Port: 8003},
}

// StreamerSpec returns the process that serves cfg's camera over HTTP.
func StreamerSpec(cfg Config) fernbedienung.ProcessSpec {
	return fernbedienung.ProcessSpec{
		Target: "mjpg_streamer",
		Args: []string{
			"-i", fmt.Sprintf("input_uvc.so -d %s -r %dx%d -n", cfg.Device, cfg.Width, cfg.Height),
			"-o", fmt.Sprintf("output_http.so -p %d -n", cfg.Port),
		},
	}
}

// Frame is one snapshot, or the error that prevented fetching it.
type Frame struct {
	Camera string
	Data   []byte
	Err    error
}

// Launcher starts processes on the companion computer.
type Launcher interface {
	Run(ctx context.Context, spec fernbedienung.ProcessSpec) (fernbedienung.Process, error)
}

// Options tune a camera set. Zero values take defaults.
type Options struct {
	Interval time.Duration
	Client   *http.Client
	// SkipLaunch polls snapshots without starting streamer processes.
	SkipLaunch bool
}

// Set is a group of running camera streams. Frames of all cameras are
// delivered on one channel.
type Set struct {
	frames chan Frame
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Start launches a streamer for every camera on host and polls each one
// for snapshots, independently rate limited.
func Start(ctx context.Context, host string, cameras []Config, launcher Launcher, opts Options, log logger.Logger) *Set {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}

	ctx, cancel := context.WithCancel(ctx)

	s := &Set{
		frames: make(chan Frame, len(cameras)),
		cancel: cancel,
	}

	for _, cfg := range cameras {
		st := &stream{
			cfg:      cfg,
			url:      SnapshotURL(host, cfg.Port),
			client:   opts.Client,
			limiter:  rate.NewLimiter(rate.Every(opts.Interval), 1),
			launcher: launcher,
			launch:   !opts.SkipLaunch && launcher != nil,
			log:      log.WithFields(map[string]interface{}{"camera": cfg.Device}),
		}

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			st.run(ctx, s.frames)
		}()
	}

	return s
}

// Frames delivers snapshots until the set is stopped.
func (s *Set) Frames() <-chan Frame {
	if s == nil {
		return nil
	}

	return s.frames
}

// Stop ends every stream and waits for the streamer processes to be told
// to exit. Stopping a nil set is a no-op.
func (s *Set) Stop() {
	if s == nil {
		return
	}

	s.cancel()
	s.wg.Wait()
}

// SnapshotURL returns the URL of a single JPEG from the streamer on port.
func SnapshotURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/?action=snapshot"
}

type stream struct {
	cfg      Config
	url      string
	client   *http.Client
	limiter  *rate.Limiter
	launcher Launcher
	launch   bool
	log      logger.Logger
}

func (st *stream) run(ctx context.Context, out chan<- Frame) {
	if st.launch {
		proc, err := st.launcher.Run(ctx, StreamerSpec(st.cfg))
		if err != nil {
			st.emit(ctx, out, Frame{Camera: st.cfg.Device, Err: fmt.Errorf("start streamer: %w", err)})
			return
		}

		defer st.terminate(proc)
	}

	for {
		if err := st.limiter.Wait(ctx); err != nil {
			return
		}

		data, err := st.snapshot(ctx)
		if ctx.Err() != nil {
			return
		}

		if !st.emit(ctx, out, Frame{Camera: st.cfg.Device, Data: data, Err: err}) {
			return
		}
	}
}

func (st *stream) emit(ctx context.Context, out chan<- Frame, f Frame) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func (st *stream) snapshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, st.url, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := st.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", errStatus, resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
}

func (st *stream) terminate(proc fernbedienung.Process) {
	ctx, cancel := context.WithTimeout(context.Background(), terminateTimeout)
	defer cancel()

	if err := proc.Terminate(ctx); err != nil {
		st.log.Debug().Err(err).Msg("Could not terminate streamer")
	}
}
