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
	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/probe"
	"github.com/carverauto/robotsupervisor/pkg/reply"
	"github.com/carverauto/robotsupervisor/pkg/xbee"
)

const (
	upCorePowerPin  = xbee.DIO11
	pixhawkPowerPin = xbee.DIO12
	serialBaudRate  = 115200
)

// radioPinModes is the one-time pin setup of a drone's radio module.
var radioPinModes = []xbee.PinConfig{
	{Pin: xbee.DOUT, Mode: xbee.ModeAlternate},
	{Pin: xbee.DIN, Mode: xbee.ModeAlternate},
	{Pin: xbee.DIO6, Mode: xbee.ModeDisable},
	{Pin: xbee.DIO7, Mode: xbee.ModeDisable},
	{Pin: xbee.DIO0, Mode: xbee.ModeDigitalInput},
	{Pin: xbee.DIO1, Mode: xbee.ModeDigitalInput},
	{Pin: xbee.DIO2, Mode: xbee.ModeDigitalInput},
	{Pin: xbee.DIO3, Mode: xbee.ModeDigitalInput},
	{Pin: xbee.DIO4, Mode: xbee.ModeOutputDefaultLow},
	{Pin: upCorePowerPin, Mode: xbee.ModeOutputDefaultLow},
	{Pin: pixhawkPowerPin, Mode: xbee.ModeOutputDefaultLow},
}

type radioSupervisor struct {
	dev     RadioDevice
	cfg     Config
	updates *broadcast.Broadcaster[Update]
	log     logger.Logger
}

func (s *radioSupervisor) run(ctx context.Context, cmds <-chan request, associated *reply.Error) error {
	defer associated.Drop()

	if err := s.configure(ctx); err != nil {
		err = fmt.Errorf("%w: %w", ErrConfiguration, err)
		associated.Fulfill(err)

		return err
	}

	associated.Fulfill(nil)
	s.log.Info().Str("addr", s.dev.Addr()).Msg("Radio configured")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	margin := probe.Stream(ctx, probe.New("link margin", s.dev.LinkMargin, s.cfg.Probe), s.cfg.Clock)
	pins := probe.Stream(ctx, probe.New("pin states", s.dev.PinStates, s.cfg.Probe), s.cfg.Clock)

	serial := startBridge(ctx, "serial", 0, s.serialBridge)
	work := newInflight()

	defer func() {
		cancel()
		work.wait()
		serial.wait()
		drain(serial.cmds)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-margin:
			if !ok {
				return ctx.Err()
			}

			if r.Err != nil {
				return r.Err
			}

			s.updates.Send(Signal{Link: LinkRadio, Value: r.Value})
		case r, ok := <-pins:
			if !ok {
				return ctx.Err()
			}

			if r.Err != nil {
				return r.Err
			}

			s.powerState(r.Value)
		case req, ok := <-cmds:
			if !ok {
				return nil
			}

			if ctx.Err() != nil {
				req.reply.Drop()
				return ctx.Err()
			}

			s.handle(ctx, req, serial, work)
		case <-serial.done:
			serial = serial.restart(ctx, s.cfg.BridgeRestartDelay, s.serialBridge, s.log)
		}
	}
}

func (s *radioSupervisor) configure(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	if err := s.dev.SetPinModes(ctx, radioPinModes); err != nil {
		return fmt.Errorf("set pin modes: %w", err)
	}

	if err := s.dev.SetSCSMode(ctx, true); err != nil {
		return fmt.Errorf("enable serial communication service: %w", err)
	}

	if err := s.dev.SetBaudRate(ctx, serialBaudRate); err != nil {
		return fmt.Errorf("set baud rate: %w", err)
	}

	return nil
}

func (s *radioSupervisor) powerState(pins map[xbee.Pin]bool) {
	upCore, ok := pins[upCorePowerPin]
	if !ok {
		s.log.Warn().Str("pin", upCorePowerPin.String()).Msg("Up Core power pin missing from sample")
		return
	}

	pixhawk, ok := pins[pixhawkPowerPin]
	if !ok {
		s.log.Warn().Str("pin", pixhawkPowerPin.String()).Msg("Pixhawk power pin missing from sample")
		return
	}

	s.updates.Send(PowerState{UpCore: upCore, Pixhawk: pixhawk})
}

func (s *radioSupervisor) handle(ctx context.Context, req request, serial *bridge, work *inflight) {
	switch cmd := req.cmd.(type) {
	case SetUpCorePower:
		work.run(ctx, req, func(ctx context.Context) error {
			return s.setPower(ctx, upCorePowerPin, cmd.On)
		})
	case SetPixhawkPower:
		work.run(ctx, req, func(ctx context.Context) error {
			return s.setPower(ctx, pixhawkPowerPin, cmd.On)
		})
	case SerialRun:
		serial.forward(req)
	default:
		req.reply.Fulfill(fmt.Errorf("%w: %s on %s link", ErrUnsupportedLink, req.cmd.Name(), LinkRadio))
	}
}

func (s *radioSupervisor) setPower(ctx context.Context, pin xbee.Pin, on bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	if err := s.dev.WriteOutputs(ctx, map[xbee.Pin]bool{pin: on}); err != nil {
		return fmt.Errorf("switch %s: %w", pin, err)
	}

	return nil
}
