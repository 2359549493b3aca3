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
	"fmt"
	"io"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/minimal"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/charmbracelet/x/ansi"
)

const (
	gcsSystemID    = 255
	gcsComponentID = 190
)

var heartbeat = &minimal.MessageHeartbeat{
	Type:           minimal.MAV_TYPE_GCS,
	Autopilot:      minimal.MAV_AUTOPILOT_GENERIC,
	MavlinkVersion: 3,
}

// newFrameReadWriter speaks MAVLink v1 with the common dialect over conn,
// stamping outgoing frames with the given system and component.
func newFrameReadWriter(conn io.ReadWriter, systemID, componentID byte) (*frame.ReadWriter, error) {
	dialectRW := &dialect.ReadWriter{Dialect: common.Dialect}
	if err := dialectRW.Initialize(); err != nil {
		return nil, fmt.Errorf("mavlink dialect: %w", err)
	}

	rw := &frame.ReadWriter{
		ByteReadWriter: conn,
		DialectRW:      dialectRW,
		OutVersion:     frame.V1,
		OutSystemID:    systemID,
		OutComponentID: componentID,
	}
	if err := rw.Initialize(); err != nil {
		return nil, fmt.Errorf("mavlink framing: %w", err)
	}

	return rw, nil
}

// trackedConn remembers the last read error of the underlying connection,
// telling transport failures apart from malformed frames.
type trackedConn struct {
	net.Conn
	readErr error
}

func (c *trackedConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if err != nil {
		c.readErr = err
	}

	return n, err
}

// serialBridge speaks MAVLink to the flight controller through the radio
// module's TCP serial service.
func (s *radioSupervisor) serialBridge(ctx context.Context, cmds <-chan request) error {
	raw, err := s.cfg.SerialDial(ctx, s.dev.Host())
	if err != nil {
		return fmt.Errorf("connect serial bridge: %w", err)
	}
	defer func() { _ = raw.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = raw.Close() })
	defer stop()

	conn := &trackedConn{Conn: raw}

	rw, err := newFrameReadWriter(conn, gcsSystemID, gcsComponentID)
	if err != nil {
		return err
	}

	readErr := make(chan error, 1)

	go func() {
		readErr <- s.readTelemetry(rw, conn)
	}()

	ticker := s.cfg.Clock.Ticker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return fmt.Errorf("serial bridge read: %w", err)
		case <-ticker.Chan():
			if err := rw.WriteMessage(heartbeat); err != nil {
				return err
			}
		case req, ok := <-cmds:
			if !ok {
				return nil
			}

			run, isRun := req.cmd.(SerialRun)
			if !isRun {
				req.reply.Fulfill(fmt.Errorf("%w: %s on serial bridge", ErrUnsupportedLink, req.cmd.Name()))
				continue
			}

			err := rw.WriteMessage(serialCommand(run.Command))
			settle(ctx, req, err)

			if err != nil {
				return err
			}
		}
	}
}

func serialCommand(text string) *common.MessageSerialControl {
	msg := &common.MessageSerialControl{
		Device: common.SERIAL_CONTROL_DEV_SHELL,
		Flags: common.SERIAL_CONTROL_FLAG_EXCLUSIVE |
			common.SERIAL_CONTROL_FLAG_RESPOND |
			common.SERIAL_CONTROL_FLAG_MULTI,
	}

	msg.Count = uint8(copy(msg.Data[:], text))

	return msg
}

func (s *radioSupervisor) readTelemetry(rw *frame.ReadWriter, conn *trackedConn) error {
	for {
		fr, err := rw.Read()
		if err != nil {
			if conn.readErr == nil {
				s.log.Warn().Err(err).Msg("Skipping MAVLink frame")
				continue
			}

			if errors.Is(conn.readErr, io.EOF) {
				return io.ErrUnexpectedEOF
			}

			return conn.readErr
		}

		switch m := fr.GetMessage().(type) {
		case *minimal.MessageHeartbeat:
			s.log.Debug().Uint8("system", fr.GetSystemID()).Uint8("component", fr.GetComponentID()).Msg("Heartbeat")
		case *common.MessageBatteryStatus:
			s.updates.Send(Battery{Percent: BatteryPercent(m.Voltages[0])})
		case *common.MessageSerialControl:
			n := min(int(m.Count), len(m.Data))
			s.log.Info().Str("output", consoleText(m.Data[:n])).Msg("Serial console")
		}
	}
}

// consoleText keeps the valid UTF-8 prefix of data and strips terminal
// escape sequences.
func consoleText(data []byte) string {
	valid := data

	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			valid = data[:i]
			break
		}

		i += size
	}

	return strings.TrimSpace(ansi.Strip(string(valid)))
}
