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

//go:generate mockgen -destination=mock_devices.go -package=robot github.com/carverauto/robotsupervisor/pkg/robot RadioDevice,CompanionDevice

package robot

import (
	"context"

	"github.com/carverauto/robotsupervisor/pkg/fernbedienung"
	"github.com/carverauto/robotsupervisor/pkg/xbee"
)

// Device is a reachable hardware link endpoint.
type Device interface {
	// Addr is the endpoint's network address, reported in Connected updates.
	Addr() string
	// Host is the address without a port.
	Host() string
}

// RadioDevice is the radio module on a drone. *xbee.Device implements it.
type RadioDevice interface {
	Device
	SetPinModes(ctx context.Context, configs []xbee.PinConfig) error
	SetSCSMode(ctx context.Context, tcp bool) error
	SetBaudRate(ctx context.Context, baud int) error
	LinkMargin(ctx context.Context) (int, error)
	PinStates(ctx context.Context) (map[xbee.Pin]bool, error)
	WriteOutputs(ctx context.Context, levels map[xbee.Pin]bool) error
}

// CompanionDevice is the remote-control service on a robot's companion
// computer. *fernbedienung.Device implements it.
type CompanionDevice interface {
	Device
	LinkStrength(ctx context.Context) (int, error)
	Halt(ctx context.Context) error
	Reboot(ctx context.Context) error
	Identify(ctx context.Context) error
	CreateTempDir(ctx context.Context) (string, error)
	Upload(ctx context.Context, dir, filename string, contents []byte) error
	Run(ctx context.Context, spec fernbedienung.ProcessSpec) (fernbedienung.Process, error)
}

var (
	_ RadioDevice     = (*xbee.Device)(nil)
	_ CompanionDevice = (*fernbedienung.Device)(nil)
)
