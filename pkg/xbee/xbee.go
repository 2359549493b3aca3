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

// Package xbee talks to XBee Wi-Fi radio modules using remote AT commands
// carried over the module's UDP application service.
package xbee

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/carverauto/robotsupervisor/pkg/logger"
)

const (
	// Port is the UDP port of the XBee application service.
	Port = 3054
	// DefaultTimeout bounds a command when the caller's context has no deadline.
	DefaultTimeout = time.Second

	number1        = 0x4242
	cmdRemoteAT    = 0x02
	cmdRemoteATRes = 0x82
	applyChanges   = 0x02
	headerLen      = 8
	responseLen    = headerLen + 4
	maxDatagram    = 1500
)

// AT command status codes.
const (
	StatusOK               byte = 0
	StatusError            byte = 1
	StatusInvalidCommand   byte = 2
	StatusInvalidParameter byte = 3
)

var (
	// ErrCommandFailed is returned when the module answers with a non-zero status.
	ErrCommandFailed = errors.New("xbee: command failed")
	// ErrMalformedResponse is returned for a response that cannot be parsed.
	ErrMalformedResponse = errors.New("xbee: malformed response")
	errUnknownPin        = errors.New("xbee: unknown pin")
	errBadCommand        = errors.New("xbee: AT command must be two characters")
)

// Baud rates accepted by SetBaudRate and their BD parameter values.
var baudRates = map[int]byte{
	1200: 0, 2400: 1, 4800: 2, 9600: 3, 19200: 4, 38400: 5, 57600: 6, 115200: 7, 230400: 8,
}

// Device is a radio module reachable over UDP. Commands are serialised;
// a Device may be shared by the goroutines of one link supervisor.
type Device struct {
	addr    string
	conn    *net.UDPConn
	log     logger.Logger
	mu      sync.Mutex
	frameID byte
}

// Dial opens a UDP association with the module at addr. A missing port
// defaults to Port.
func Dial(addr string, log logger.Logger) (*Device, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, fmt.Sprint(Port))
	}

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &Device{
		addr: addr,
		conn: conn,
		log:  log.WithComponent("xbee"),
	}, nil
}

// Addr returns the module address as host:port.
func (d *Device) Addr() string {
	return d.addr
}

// Host returns the module's host without the port.
func (d *Device) Host() string {
	host, _, err := net.SplitHostPort(d.addr)
	if err != nil {
		return d.addr
	}

	return host
}

// Close releases the socket.
func (d *Device) Close() error {
	return d.conn.Close()
}

// Command sends an AT command with optional parameter bytes, applies it,
// and returns the response data.
func (d *Device) Command(ctx context.Context, at string, param []byte) ([]byte, error) {
	if len(at) != 2 {
		return nil, fmt.Errorf("%w: %q", errBadCommand, at)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.frameID++
	if d.frameID == 0 {
		d.frameID = 1
	}

	id := d.frameID

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultTimeout)
	}

	if err := d.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = d.conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := d.conn.Write(encodeRequest(id, at, param)); err != nil {
		return nil, d.ioError(ctx, at, err)
	}

	buf := make([]byte, maxDatagram)

	for {
		n, err := d.conn.Read(buf)
		if err != nil {
			return nil, d.ioError(ctx, at, err)
		}

		res, err := decodeResponse(buf[:n])
		if err != nil {
			d.log.Debug().Err(err).Msg("Discarding datagram")
			continue
		}

		if res.frameID != id || res.command != at {
			d.log.Trace().Uint8("frame_id", res.frameID).Str("command", res.command).Msg("Discarding stale response")
			continue
		}

		if res.status != StatusOK {
			return nil, fmt.Errorf("%w: %s status %d", ErrCommandFailed, at, res.status)
		}

		return res.data, nil
	}
}

func (d *Device) ioError(ctx context.Context, at string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", at, ctxErr)
	}

	// the socket deadline can fire just ahead of the context timer
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return fmt.Errorf("%s: %w", at, context.DeadlineExceeded)
	}

	return fmt.Errorf("%s: %w", at, err)
}

// LinkMargin returns the link margin of the last received packet in dB.
func (d *Device) LinkMargin(ctx context.Context) (int, error) {
	data, err := d.Command(ctx, "LM", nil)
	if err != nil {
		return 0, err
	}

	if len(data) != 1 {
		return 0, fmt.Errorf("%w: LM returned %d bytes", ErrMalformedResponse, len(data))
	}

	return int(data[0]), nil
}

// SetPinModes assigns each pin its mode.
func (d *Device) SetPinModes(ctx context.Context, configs []PinConfig) error {
	for _, cfg := range configs {
		at, err := cfg.Pin.command()
		if err != nil {
			return err
		}

		if _, err := d.Command(ctx, at, []byte{byte(cfg.Mode)}); err != nil {
			return fmt.Errorf("set %s mode: %w", cfg.Pin, err)
		}
	}

	return nil
}

// SetSCSMode selects the serial communication service protocol: TCP when
// tcp is set, UDP otherwise.
func (d *Device) SetSCSMode(ctx context.Context, tcp bool) error {
	var mode byte
	if tcp {
		mode = 1
	}

	_, err := d.Command(ctx, "IP", []byte{mode})

	return err
}

// SetBaudRate sets the UART baud rate.
func (d *Device) SetBaudRate(ctx context.Context, baud int) error {
	code, ok := baudRates[baud]
	if !ok {
		return fmt.Errorf("%w: unsupported baud rate %d", ErrCommandFailed, baud)
	}

	_, err := d.Command(ctx, "BD", []byte{code})

	return err
}

// PinStates samples the digital pins that are configured as inputs or
// outputs and returns their levels.
func (d *Device) PinStates(ctx context.Context) (map[Pin]bool, error) {
	data, err := d.Command(ctx, "IS", nil)
	if err != nil {
		return nil, err
	}

	return parseSample(data)
}

// WriteOutputs drives each pin high or low by reprogramming its output mode.
func (d *Device) WriteOutputs(ctx context.Context, levels map[Pin]bool) error {
	configs := make([]PinConfig, 0, len(levels))

	for pin, high := range levels {
		mode := ModeOutputDefaultLow
		if high {
			mode = ModeOutputDefaultHigh
		}

		configs = append(configs, PinConfig{Pin: pin, Mode: mode})
	}

	return d.SetPinModes(ctx, configs)
}

// parseSample decodes an IS response: sample set count, digital mask,
// analog mask, digital levels, analog readings.
func parseSample(data []byte) (map[Pin]bool, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: IS returned %d bytes", ErrMalformedResponse, len(data))
	}

	mask := binary.BigEndian.Uint16(data[1:3])
	states := make(map[Pin]bool)

	if mask == 0 {
		return states, nil
	}

	if len(data) < 6 {
		return nil, fmt.Errorf("%w: IS digital sample missing", ErrMalformedResponse)
	}

	levels := binary.BigEndian.Uint16(data[4:6])

	for pin := DIO0; pin <= DIN; pin++ {
		bit := uint16(1) << uint(pin)
		if mask&bit != 0 {
			states[pin] = levels&bit != 0
		}
	}

	return states, nil
}

func encodeRequest(frameID byte, at string, param []byte) []byte {
	buf := make([]byte, headerLen, headerLen+4+len(param))
	binary.BigEndian.PutUint16(buf[0:], number1)
	binary.BigEndian.PutUint16(buf[2:], number1^0x4242)
	buf[6] = cmdRemoteAT
	buf = append(buf, frameID, applyChanges, at[0], at[1])

	return append(buf, param...)
}

type response struct {
	frameID byte
	command string
	status  byte
	data    []byte
}

func decodeResponse(b []byte) (response, error) {
	if len(b) < responseLen {
		return response{}, fmt.Errorf("%w: %d bytes", ErrMalformedResponse, len(b))
	}

	n1 := binary.BigEndian.Uint16(b[0:])
	n2 := binary.BigEndian.Uint16(b[2:])

	if n1^n2 != 0x4242 || b[6] != cmdRemoteATRes {
		return response{}, fmt.Errorf("%w: unexpected header", ErrMalformedResponse)
	}

	return response{
		frameID: b[headerLen],
		command: string(b[headerLen+1 : headerLen+3]),
		status:  b[headerLen+3],
		data:    append([]byte(nil), b[responseLen:]...),
	}, nil
}
