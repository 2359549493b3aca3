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

// Package fernbedienung is a client for the remote-control service running
// on a robot's companion computer. Requests and process events travel as
// CBOR messages over a single WebSocket connection.
package fernbedienung

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/carverauto/robotsupervisor/pkg/logger"
)

const (
	// Port is the default port of the remote-control service.
	Port = 17653

	writeTimeout = 5 * time.Second
	pingPeriod   = 15 * time.Second
	pongWait     = 3 * pingPeriod
)

var (
	// ErrClosed is returned for requests on a closed device.
	ErrClosed = errors.New("fernbedienung: connection closed")
	// ErrRemote wraps an error reported by the remote service.
	ErrRemote = errors.New("fernbedienung: remote error")
)

// Device is a connection to one companion computer. It is safe for
// concurrent use.
type Device struct {
	addr string
	conn *websocket.Conn
	log  logger.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	pending   map[string]chan Response
	processes map[string]*process

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial connects to the service at addr. A missing port defaults to Port.
func Dial(ctx context.Context, addr string, log logger.Logger) (*Device, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(Port))
	}

	u := url.URL{Scheme: "ws", Host: addr, Path: "/"}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	d := &Device{
		addr:      addr,
		conn:      conn,
		log:       log.WithComponent("fernbedienung"),
		pending:   make(map[string]chan Response),
		processes: make(map[string]*process),
		done:      make(chan struct{}),
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go d.readLoop()
	go d.keepalive()

	return d, nil
}

// Addr returns the service address as host:port.
func (d *Device) Addr() string {
	return d.addr
}

// Host returns the companion computer's host without the port.
func (d *Device) Host() string {
	host, _, err := net.SplitHostPort(d.addr)
	if err != nil {
		return d.addr
	}

	return host
}

// Done is closed once the connection has ended.
func (d *Device) Done() <-chan struct{} {
	return d.done
}

// Err returns why the connection ended, or nil while it is open.
func (d *Device) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

// Close ends the connection. Running processes are reported as finished
// with ErrClosed.
func (d *Device) Close() error {
	d.writeMu.Lock()
	_ = d.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	d.writeMu.Unlock()

	d.shutdown(ErrClosed)

	return nil
}

// LinkStrength returns the companion computer's Wi-Fi signal strength.
func (d *Device) LinkStrength(ctx context.Context) (int, error) {
	resp, err := d.call(ctx, Request{Kind: KindLinkStrength})
	if err != nil {
		return 0, err
	}

	return resp.LinkStrength, nil
}

// Halt powers the companion computer off.
func (d *Device) Halt(ctx context.Context) error {
	_, err := d.call(ctx, Request{Kind: KindHalt})
	return err
}

// Reboot restarts the companion computer.
func (d *Device) Reboot(ctx context.Context) error {
	_, err := d.call(ctx, Request{Kind: KindReboot})
	return err
}

// Identify makes the robot signal its presence, for example by blinking.
func (d *Device) Identify(ctx context.Context) error {
	_, err := d.call(ctx, Request{Kind: KindIdentify})
	return err
}

// CreateTempDir creates a fresh temporary directory and returns its path.
func (d *Device) CreateTempDir(ctx context.Context) (string, error) {
	resp, err := d.call(ctx, Request{Kind: KindCreateTempDir})
	if err != nil {
		return "", err
	}

	return resp.Path, nil
}

// Upload writes contents to dir/filename, compressed in transit.
func (d *Device) Upload(ctx context.Context, dir, filename string, contents []byte) error {
	_, err := d.call(ctx, Request{
		Kind: KindUpload,
		Upload: &Upload{
			Path:     dir,
			Filename: filename,
			Contents: Compress(contents),
			Encoding: EncodingZstd,
		},
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", filename, err)
	}

	return nil
}

// Run starts a process. Its output is delivered until it exits or the
// connection ends; ctx only bounds the start request.
func (d *Device) Run(ctx context.Context, spec ProcessSpec) (Process, error) {
	id := uuid.NewString()
	p := newProcess(id, d)

	d.mu.Lock()
	d.processes[id] = p
	d.mu.Unlock()

	if _, err := d.call(ctx, Request{ID: id, Kind: KindRun, Run: &spec}); err != nil {
		d.mu.Lock()
		delete(d.processes, id)
		d.mu.Unlock()

		p.finish(err)

		return nil, fmt.Errorf("run %s: %w", spec.Target, err)
	}

	return p, nil
}

func (d *Device) call(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	data, err := Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode %s request: %w", req.Kind, err)
	}

	ch := make(chan Response, 1)

	d.mu.Lock()
	select {
	case <-d.done:
		d.mu.Unlock()
		return Response{}, ErrClosed
	default:
	}
	d.pending[req.ID] = ch
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.pending, req.ID)
		d.mu.Unlock()
	}()

	if err := d.write(ctx, data); err != nil {
		return Response{}, fmt.Errorf("send %s request: %w", req.Kind, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return resp, fmt.Errorf("%w: %s: %s", ErrRemote, req.Kind, resp.Error)
		}

		return resp, nil
	case <-d.done:
		return Response{}, d.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func (d *Device) write(ctx context.Context, data []byte) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	if err := d.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return d.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (d *Device) readLoop() {
	for {
		_, data, err := d.conn.ReadMessage()
		if err != nil {
			d.shutdown(err)
			return
		}

		_ = d.conn.SetReadDeadline(time.Now().Add(pongWait))

		var resp Response
		if err := Unmarshal(data, &resp); err != nil {
			d.log.Warn().Err(err).Str("addr", d.addr).Msg("Discarding undecodable message")
			continue
		}

		if resp.Event != nil {
			d.deliver(resp.ID, *resp.Event)
			continue
		}

		d.mu.Lock()
		ch, ok := d.pending[resp.ID]
		d.mu.Unlock()

		if !ok {
			d.log.Debug().Str("id", resp.ID).Msg("Discarding response to abandoned request")
			continue
		}

		select {
		case ch <- resp:
		default:
			d.log.Debug().Str("id", resp.ID).Msg("Discarding duplicate response")
		}
	}
}

func (d *Device) deliver(id string, ev Event) {
	d.mu.Lock()
	p, ok := d.processes[id]

	if ok && ev.Exited {
		delete(d.processes, id)
	}
	d.mu.Unlock()

	if !ok {
		d.log.Debug().Str("process", id).Msg("Event for unknown process")
		return
	}

	if len(ev.Stdout) > 0 {
		p.push(p.stdout, ev.Stdout)
	}

	if len(ev.Stderr) > 0 {
		p.push(p.stderr, ev.Stderr)
	}

	if ev.Exited {
		var err error
		if ev.ExitCode != 0 {
			err = &ExitError{Code: ev.ExitCode}
		}

		p.finish(err)
	}
}

func (d *Device) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.writeMu.Lock()
			err := d.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			d.writeMu.Unlock()

			if err != nil {
				d.shutdown(fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

func (d *Device) shutdown(err error) {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.err = err
		close(d.done)
		procs := d.processes
		d.processes = make(map[string]*process)
		d.mu.Unlock()

		_ = d.conn.Close()

		for _, p := range procs {
			p.finish(ErrClosed)
		}

		d.log.Debug().Err(err).Str("addr", d.addr).Msg("Connection closed")
	})
}
