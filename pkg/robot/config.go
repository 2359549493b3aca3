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
	"net"
	"strconv"
	"time"

	"github.com/carverauto/robotsupervisor/pkg/camera"
	"github.com/carverauto/robotsupervisor/pkg/probe"
)

const (
	// SerialPort is the radio module's TCP serial bridge port.
	SerialPort = 9750

	DefaultCommandTimeout     = 5 * time.Second
	DefaultUploadTimeout      = 60 * time.Second
	DefaultHeartbeatInterval  = 500 * time.Millisecond
	DefaultBridgeRestartDelay = time.Second
	DefaultSerialDialTimeout  = time.Second

	commandBuffer = 8
)

// SerialDialer opens the serial bridge connection to a radio module host.
type SerialDialer func(ctx context.Context, host string) (net.Conn, error)

// Config tunes an actor and the supervisors it spawns. Zero fields take
// defaults.
type Config struct {
	Probe probe.Config
	Clock probe.Clock

	// CommandTimeout bounds a single device command.
	CommandTimeout time.Duration
	// UploadTimeout bounds an experiment upload.
	UploadTimeout time.Duration
	// HeartbeatInterval is the period of the serial bridge keep-alive.
	HeartbeatInterval time.Duration
	// BridgeRestartDelay holds back a bridge replacing one that failed, so
	// an unreachable service is not redialled in a hot loop. Bridges that
	// exit cleanly restart at once. A negative value disables the backoff.
	BridgeRestartDelay time.Duration

	// RouterAddr is passed to experiments as their message router.
	RouterAddr string

	SerialDial SerialDialer

	// Cameras overrides the camera layout implied by the robot kind.
	Cameras []camera.Config
	Camera  camera.Options

	// UpdateCapacity is the per-subscriber update buffer.
	UpdateCapacity int
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = probe.RealClock{}
	}

	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}

	if c.UploadTimeout <= 0 {
		c.UploadTimeout = DefaultUploadTimeout
	}

	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}

	if c.BridgeRestartDelay < 0 {
		c.BridgeRestartDelay = 0
	} else if c.BridgeRestartDelay == 0 {
		c.BridgeRestartDelay = DefaultBridgeRestartDelay
	}

	if c.SerialDial == nil {
		c.SerialDial = dialSerial
	}

	return c
}

func (c Config) cameras(kind Kind) []camera.Config {
	if c.Cameras != nil {
		return c.Cameras
	}

	if kind == KindDrone {
		return camera.DroneCameras
	}

	return nil
}

func dialSerial(ctx context.Context, host string) (net.Conn, error) {
	d := net.Dialer{Timeout: DefaultSerialDialTimeout}

	return d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(SerialPort)))
}
