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

	"github.com/carverauto/robotsupervisor/pkg/fernbedienung"
)

var shellSpec = fernbedienung.ProcessSpec{Target: "bash", Args: []string{"-li"}}

// session follows the output of one remote process. A nil session is idle.
type session struct {
	proc   fernbedienung.Process
	stdout <-chan []byte
	stderr <-chan []byte
}

func newSession(proc fernbedienung.Process) *session {
	return &session{proc: proc, stdout: proc.Stdout(), stderr: proc.Stderr()}
}

func (s *session) done() <-chan struct{} {
	if s == nil {
		return nil
	}

	return s.proc.Done()
}

func (s *session) stdoutC() <-chan []byte {
	if s == nil {
		return nil
	}

	return s.stdout
}

func (s *session) stderrC() <-chan []byte {
	if s == nil {
		return nil
	}

	return s.stderr
}

// flush hands output still buffered after the process finished to emit.
func (s *session) flush(emit func(stream OutputStream, data []byte)) {
	if s.stdout != nil {
		for data := range s.stdout {
			emit(StreamStdout, data)
		}
	}

	if s.stderr != nil {
		for data := range s.stderr {
			emit(StreamStderr, data)
		}
	}
}

// terminate stops a process left running when its bridge goes away.
func (s *session) terminate(timeout func() (context.Context, context.CancelFunc)) {
	if s == nil {
		return
	}

	ctx, cancel := timeout()
	defer cancel()

	_ = s.proc.Terminate(ctx)
}

// shellBridge runs an interactive login shell on demand. It stays up when
// the shell exits and returns only if a shell cannot be started.
func (s *companionSupervisor) shellBridge(ctx context.Context, cmds <-chan request) error {
	var sh *session

	emit := func(stream OutputStream, data []byte) {
		s.updates.Send(Output{Source: SourceShell, Stream: stream, Data: lossyText(data)})
	}

	defer func() { sh.terminate(s.cleanupContext) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-sh.stdoutC():
			if !ok {
				sh.stdout = nil
				continue
			}

			emit(StreamStdout, data)
		case data, ok := <-sh.stderrC():
			if !ok {
				sh.stderr = nil
				continue
			}

			emit(StreamStderr, data)
		case <-sh.done():
			sh.flush(emit)

			if err := sh.proc.Err(); err != nil {
				s.log.Info().Err(err).Msg("Shell exited")
			} else {
				s.log.Debug().Msg("Shell exited")
			}

			sh = nil
		case req, ok := <-cmds:
			if !ok {
				return nil
			}

			switch cmd := req.cmd.(type) {
			case ShellStart:
				if sh != nil {
					req.reply.Fulfill(ErrShellRunning)
					continue
				}

				proc, err := s.startProcess(ctx, shellSpec)
				settle(ctx, req, err)

				if err != nil {
					return err
				}

				sh = newSession(proc)
			case ShellRun:
				if sh == nil {
					req.reply.Fulfill(ErrShellNotRunning)
					continue
				}

				settle(ctx, req, s.writeInput(ctx, sh.proc, cmd.Command+"\r"))
			case ShellStop:
				if sh == nil {
					req.reply.Fulfill(ErrShellNotRunning)
					continue
				}

				settle(ctx, req, s.terminateProcess(ctx, sh.proc))
			default:
				req.reply.Fulfill(fmt.Errorf("%w: %s on shell bridge", ErrUnsupportedLink, req.cmd.Name()))
			}
		}
	}
}

func (s *companionSupervisor) startProcess(ctx context.Context, spec fernbedienung.ProcessSpec) (fernbedienung.Process, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	proc, err := s.dev.Run(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Target, err)
	}

	return proc, nil
}

func (s *companionSupervisor) writeInput(ctx context.Context, proc fernbedienung.Process, text string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	return proc.Write(ctx, []byte(text))
}

func (s *companionSupervisor) terminateProcess(ctx context.Context, proc fernbedienung.Process) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	return proc.Terminate(ctx)
}

// cleanupContext bounds requests made after the supervisor's own context
// has ended.
func (s *companionSupervisor) cleanupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.CommandTimeout)
}
