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

	"github.com/carverauto/robotsupervisor/pkg/broadcast"
	"github.com/carverauto/robotsupervisor/pkg/camera"
	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/probe"
	"github.com/carverauto/robotsupervisor/pkg/reply"
)

type companionSupervisor struct {
	dev     CompanionDevice
	desc    Descriptor
	cfg     Config
	cameras []camera.Config
	updates *broadcast.Broadcaster[Update]
	log     logger.Logger
}

func (s *companionSupervisor) run(ctx context.Context, cmds <-chan request, associated *reply.Error) error {
	associated.Fulfill(nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	strength := probe.Stream(ctx, probe.New("link strength", s.dev.LinkStrength, s.cfg.Probe), s.cfg.Clock)

	shell := startBridge(ctx, "shell", 0, s.shellBridge)

	exp := &experimentBridge{sup: s}
	experiment := startBridge(ctx, "experiment", 0, exp.run)

	var streams *camera.Set

	work := newInflight()

	defer func() {
		cancel()
		work.wait()
		streams.Stop()
		shell.wait()
		experiment.wait()
		drain(shell.cmds)
		drain(experiment.cmds)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-streams.Frames():
			s.updates.Send(CameraFrame{Camera: f.Camera, Frame: f.Data, Err: f.Err})
		case r, ok := <-strength:
			if !ok {
				return ctx.Err()
			}

			if r.Err != nil {
				return r.Err
			}

			s.updates.Send(Signal{Link: LinkCompanion, Value: r.Value})
		case req, ok := <-cmds:
			if !ok {
				return nil
			}

			if ctx.Err() != nil {
				req.reply.Drop()
				return ctx.Err()
			}

			switch cmd := req.cmd.(type) {
			case SetCameraStream:
				streams.Stop()
				streams = nil

				if cmd.Enabled && len(s.cameras) > 0 {
					streams = camera.Start(ctx, s.dev.Host(), s.cameras, s.dev, s.cfg.Camera, s.log)
				}

				req.reply.Fulfill(nil)
			case ShellStart, ShellRun, ShellStop:
				shell.forward(req)
			case uploadExperiment, startExperiment, stopExperiment:
				experiment.forward(req)
			default:
				work.run(ctx, req, func(ctx context.Context) error {
					return s.direct(ctx, req.cmd)
				})
			}
		case <-shell.done:
			shell = shell.restart(ctx, s.cfg.BridgeRestartDelay, s.shellBridge, s.log)
		case <-experiment.done:
			// the uploaded experiment outlives the bridge that uploaded it
			exp = &experimentBridge{sup: s, dir: exp.dir, config: exp.config}
			experiment = experiment.restart(ctx, s.cfg.BridgeRestartDelay, exp.run, s.log)
		}
	}
}

func (s *companionSupervisor) direct(ctx context.Context, cmd Command) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	var err error

	switch cmd.(type) {
	case Halt:
		err = s.dev.Halt(ctx)
	case Reboot:
		err = s.dev.Reboot(ctx)
	case Identify:
		err = s.dev.Identify(ctx)
	default:
		return fmt.Errorf("%w: %s on %s link", ErrUnsupportedLink, cmd.Name(), LinkCompanion)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	return nil
}
