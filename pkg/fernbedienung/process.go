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
	"fmt"
	"sync"
)

const outputBuffer = 256

// Process is a handle to a process running on the companion computer.
type Process interface {
	// Stdout and Stderr deliver output chunks and are closed when the
	// process has finished.
	Stdout() <-chan []byte
	Stderr() <-chan []byte
	// Done is closed after Stdout and Stderr.
	Done() <-chan struct{}
	// Err is nil for a clean exit, an *ExitError for a non-zero status or
	// the connection error if the link went away.
	Err() error
	Write(ctx context.Context, data []byte) error
	Terminate(ctx context.Context) error
}

// ExitError reports a non-zero exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with status %d", e.Code)
}

type process struct {
	id  string
	dev *Device

	stdout chan []byte
	stderr chan []byte
	done   chan struct{}

	mu       sync.Mutex
	finished bool
	err      error
}

func newProcess(id string, dev *Device) *process {
	return &process{
		id:     id,
		dev:    dev,
		stdout: make(chan []byte, outputBuffer),
		stderr: make(chan []byte, outputBuffer),
		done:   make(chan struct{}),
	}
}

func (p *process) Stdout() <-chan []byte { return p.stdout }
func (p *process) Stderr() <-chan []byte { return p.stderr }
func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

// Write sends data to the process's standard input.
func (p *process) Write(ctx context.Context, data []byte) error {
	_, err := p.dev.call(ctx, Request{Kind: KindStdin, Process: p.id, Data: data})
	return err
}

// Terminate asks the remote host to stop the process.
func (p *process) Terminate(ctx context.Context) error {
	_, err := p.dev.call(ctx, Request{Kind: KindTerminate, Process: p.id})
	return err
}

func (p *process) push(ch chan []byte, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}

	select {
	case ch <- data:
	default:
		p.dev.log.Warn().Str("process", p.id).Int("bytes", len(data)).Msg("Output buffer full, dropping chunk")
	}
}

func (p *process) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}

	p.finished = true
	p.err = err

	close(p.stdout)
	close(p.stderr)
	close(p.done)
}
