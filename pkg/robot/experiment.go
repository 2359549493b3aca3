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
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/robotsupervisor/pkg/fernbedienung"
)

const uploadConcurrency = 4

// experimentBridge uploads, starts and stops ARGoS experiments. dir and
// config describe the last successful upload and are carried over when
// the bridge is restarted.
type experimentBridge struct {
	sup    *companionSupervisor
	dir    string
	config string
}

func (b *experimentBridge) run(ctx context.Context, cmds <-chan request) error {
	s := b.sup

	var exp *session

	emit := func(stream OutputStream, data []byte) {
		s.updates.Send(Output{Source: SourceExperiment, Stream: stream, Data: lossyText(data)})
	}

	defer func() { exp.terminate(s.cleanupContext) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-exp.stdoutC():
			if !ok {
				exp.stdout = nil
				continue
			}

			emit(StreamStdout, data)
		case data, ok := <-exp.stderrC():
			if !ok {
				exp.stderr = nil
				continue
			}

			emit(StreamStderr, data)
		case <-exp.done():
			exp.flush(emit)

			event := s.log.Info()
			if err := exp.proc.Err(); err != nil {
				event = event.Err(err)
			}

			event.Str("dir", b.dir).Msg("Experiment finished")

			exp = nil
		case req, ok := <-cmds:
			if !ok {
				return nil
			}

			switch cmd := req.cmd.(type) {
			case uploadExperiment:
				if exp != nil {
					req.reply.Fulfill(ErrExperimentRunning)
					continue
				}

				settle(ctx, req, b.upload(ctx, cmd.software))
			case startExperiment:
				switch {
				case exp != nil:
					req.reply.Fulfill(ErrExperimentRunning)
					continue
				case b.dir == "":
					req.reply.Fulfill(ErrNoExperiment)
					continue
				}

				proc, err := s.startProcess(ctx, b.spec())
				settle(ctx, req, err)

				if err != nil {
					return err
				}

				s.log.Info().Str("dir", b.dir).Str("config", b.config).Msg("Experiment started")
				exp = newSession(proc)
			case stopExperiment:
				if exp == nil {
					req.reply.Fulfill(ErrExperimentNotRunning)
					continue
				}

				settle(ctx, req, s.terminateProcess(ctx, exp.proc))
			default:
				req.reply.Fulfill(fmt.Errorf("%w: %s on experiment bridge", ErrUnsupportedLink, req.cmd.Name()))
			}
		}
	}
}

func (b *experimentBridge) spec() fernbedienung.ProcessSpec {
	s := b.sup

	args := []string{"--config", b.config}
	if s.cfg.RouterAddr != "" {
		args = append(args, "--router", s.cfg.RouterAddr)
	}

	args = append(args, "--id", s.desc.ID)

	return fernbedienung.ProcessSpec{Target: "argos3", WorkingDir: b.dir, Args: args}
}

func (b *experimentBridge) upload(ctx context.Context, software Software) error {
	config, err := software.ConfigFile()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.sup.cfg.UploadTimeout)
	defer cancel()

	dir, err := b.sup.dev.CreateTempDir(ctx)
	if err != nil {
		return fmt.Errorf("create experiment directory: %w", err)
	}

	names := make([]string, 0, len(software))
	for name := range software {
		names = append(names, name)
	}

	sort.Strings(names)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for _, name := range names {
		contents := software[name]

		g.Go(func() error {
			return b.sup.dev.Upload(gctx, dir, name, contents)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("upload experiment: %w", err)
	}

	b.dir, b.config = dir, config
	b.sup.log.Info().Str("dir", dir).Int("files", len(names)).Msg("Experiment uploaded")

	return nil
}
