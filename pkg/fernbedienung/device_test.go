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

package fernbedienung

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotsupervisor/pkg/logger"
)

// fakeService imitates the remote-control service: a bash process echoes
// "echo" lines back on stdout and exits on "exit".
type fakeService struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []Request
	files    map[string][]byte
	failKind RequestKind
	hangKind RequestKind
	conns    []*websocket.Conn
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()

	f := &fakeService{files: make(map[string][]byte)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))

	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeService) addr() string {
	return strings.TrimPrefix(f.srv.URL, "http://")
}

func (f *fakeService) set(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fn(f)
}

func (f *fakeService) dropConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.conns {
		_ = c.Close()
	}
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.set(func(f *fakeService) { f.conns = append(f.conns, conn) })

	defer func() { _ = conn.Close() }()

	decoder, _ := zstd.NewReader(nil)
	defer decoder.Close()

	send := func(resp Response) {
		data, _ := Marshal(resp)
		_ = conn.WriteMessage(websocket.BinaryMessage, data)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := Unmarshal(data, &req); err != nil {
			return
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		failKind, hangKind := f.failKind, f.hangKind
		f.mu.Unlock()

		switch {
		case req.Kind == hangKind:
			continue
		case req.Kind == failKind:
			send(Response{ID: req.ID, Error: "not permitted"})
			continue
		}

		switch req.Kind {
		case KindLinkStrength:
			send(Response{ID: req.ID, LinkStrength: -42})
		case KindCreateTempDir:
			send(Response{ID: req.ID, Path: "/tmp/fb-1"})
		case KindUpload:
			contents, err := decoder.DecodeAll(req.Upload.Contents, nil)
			if err != nil || req.Upload.Encoding != EncodingZstd {
				send(Response{ID: req.ID, Error: "bad encoding"})
				continue
			}

			f.set(func(f *fakeService) { f.files[path.Join(req.Upload.Path, req.Upload.Filename)] = contents })
			send(Response{ID: req.ID})
		case KindRun:
			send(Response{ID: req.ID})

			if req.Run.Target == "echo" {
				send(Response{ID: req.ID, Event: &Event{Stdout: []byte(strings.Join(req.Run.Args, " ") + "\n")}})
				send(Response{ID: req.ID, Event: &Event{Exited: true}})
			}
		case KindStdin:
			send(Response{ID: req.ID})

			line := strings.TrimRight(string(req.Data), "\r\n")

			switch {
			case strings.HasPrefix(line, "echo "):
				send(Response{ID: req.Process, Event: &Event{Stdout: []byte(strings.TrimPrefix(line, "echo ") + "\r\n")}})
			case line == "exit":
				send(Response{ID: req.Process, Event: &Event{Exited: true}})
			default:
				send(Response{ID: req.Process, Event: &Event{Stderr: []byte("bash: " + line + ": command not found\n")}})
			}
		case KindTerminate:
			send(Response{ID: req.ID})
			send(Response{ID: req.Process, Event: &Event{Exited: true, ExitCode: 143}})
		default:
			send(Response{ID: req.ID})
		}
	}
}

func dial(t *testing.T, f *fakeService) *Device {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d, err := Dial(ctx, f.addr(), logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = d.Close() })

	return d
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestLinkStrength(t *testing.T) {
	d := dial(t, newFakeService(t))

	strength, err := d.LinkStrength(testContext(t))

	require.NoError(t, err)
	assert.Equal(t, -42, strength)
}

func TestRemoteError(t *testing.T) {
	f := newFakeService(t)
	f.set(func(f *fakeService) { f.failKind = KindHalt })
	d := dial(t, f)

	err := d.Halt(testContext(t))
	require.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "not permitted")

	require.NoError(t, d.Reboot(testContext(t)))
	require.NoError(t, d.Identify(testContext(t)))
}

func TestRequestHonoursContext(t *testing.T) {
	f := newFakeService(t)
	f.set(func(f *fakeService) { f.hangKind = KindIdentify })
	d := dial(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Identify(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = d.LinkStrength(testContext(t))
	require.NoError(t, err, "an abandoned request must not disturb later ones")
}

func TestUploadCompressesContents(t *testing.T) {
	f := newFakeService(t)
	d := dial(t, f)
	ctx := testContext(t)

	dir, err := d.CreateTempDir(ctx)
	require.NoError(t, err)

	contents := []byte(strings.Repeat("<argos-configuration/>\n", 64))
	require.NoError(t, d.Upload(ctx, dir, "experiment.argos", contents))

	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(t, contents, f.files["/tmp/fb-1/experiment.argos"])
}

func TestProcessOutputAndExit(t *testing.T) {
	d := dial(t, newFakeService(t))

	p, err := d.Run(testContext(t), ProcessSpec{Target: "echo", Args: []string{"hello", "world"}})
	require.NoError(t, err)

	var out []byte
	for chunk := range p.Stdout() {
		out = append(out, chunk...)
	}

	<-p.Done()

	assert.Equal(t, "hello world\n", string(out))
	assert.NoError(t, p.Err())
}

func TestInteractiveShell(t *testing.T) {
	d := dial(t, newFakeService(t))
	ctx := testContext(t)

	p, err := d.Run(ctx, ProcessSpec{Target: "bash", Args: []string{"-li"}})
	require.NoError(t, err)

	require.NoError(t, p.Write(ctx, []byte("echo hi\r")))

	select {
	case chunk := <-p.Stdout():
		assert.Equal(t, "hi\r\n", string(chunk))
	case <-ctx.Done():
		t.Fatal("no output from shell")
	}

	require.NoError(t, p.Write(ctx, []byte("nope\r")))

	select {
	case chunk := <-p.Stderr():
		assert.Contains(t, string(chunk), "command not found")
	case <-ctx.Done():
		t.Fatal("no error output from shell")
	}

	require.NoError(t, p.Terminate(ctx))

	select {
	case <-p.Done():
	case <-ctx.Done():
		t.Fatal("shell did not exit")
	}

	var exitErr *ExitError
	require.True(t, errors.As(p.Err(), &exitErr))
	assert.Equal(t, 143, exitErr.Code)
}

func TestShellExitsOnItsOwn(t *testing.T) {
	d := dial(t, newFakeService(t))
	ctx := testContext(t)

	p, err := d.Run(ctx, ProcessSpec{Target: "bash", Args: []string{"-li"}})
	require.NoError(t, err)
	require.NoError(t, p.Write(ctx, []byte("exit\r")))

	select {
	case <-p.Done():
	case <-ctx.Done():
		t.Fatal("shell did not exit")
	}

	assert.NoError(t, p.Err())
}

func TestConnectionLossFinishesProcesses(t *testing.T) {
	f := newFakeService(t)
	d := dial(t, f)
	ctx := testContext(t)

	p, err := d.Run(ctx, ProcessSpec{Target: "bash", Args: []string{"-li"}})
	require.NoError(t, err)

	f.dropConnections()

	select {
	case <-d.Done():
	case <-ctx.Done():
		t.Fatal("connection loss not detected")
	}

	<-p.Done()
	require.ErrorIs(t, p.Err(), ErrClosed)
	require.Error(t, d.Err())

	_, err = d.LinkStrength(ctx)
	require.Error(t, err)
}

func TestDialFailure(t *testing.T) {
	f := newFakeService(t)
	addr := f.addr()
	f.srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, addr, logger.NewTestLogger())
	require.Error(t, err)
}
