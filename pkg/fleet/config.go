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

package fleet

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/robotsupervisor/pkg/camera"
	"github.com/carverauto/robotsupervisor/pkg/journal"
	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/models"
	"github.com/carverauto/robotsupervisor/pkg/probe"
	"github.com/carverauto/robotsupervisor/pkg/robot"
)

const defaultReconnectDelay = 2 * time.Second

var (
	errNoRobots    = errors.New("at least one robot must be configured")
	errDuplicateID = errors.New("duplicate robot id")
	errNegative    = errors.New("must not be negative")
)

// Config is the supervisor configuration file.
type Config struct {
	Logging        *logger.Config     `json:"logging" yaml:"logging"`
	RouterAddr     string             `json:"router_addr" yaml:"router_addr"`
	ReconnectDelay models.Duration    `json:"reconnect_delay" yaml:"reconnect_delay"`
	CameraInterval models.Duration    `json:"camera_interval" yaml:"camera_interval"`
	Journal        journal.Config     `json:"journal" yaml:"journal"`
	Probe          ProbeConfig        `json:"probe" yaml:"probe"`
	Robots         []robot.Descriptor `json:"robots" yaml:"robots"`
}

// ProbeConfig tunes link health probing.
type ProbeConfig struct {
	Interval    models.Duration `json:"interval" yaml:"interval"`
	Timeout     models.Duration `json:"timeout" yaml:"timeout"`
	MaxFailures int             `json:"max_failures" yaml:"max_failures"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Robots) == 0 {
		return errNoRobots
	}

	seen := make(map[string]struct{}, len(c.Robots))

	for _, desc := range c.Robots {
		if err := desc.Validate(); err != nil {
			return err
		}

		if _, ok := seen[desc.ID]; ok {
			return fmt.Errorf("%w: %s", errDuplicateID, desc.ID)
		}

		seen[desc.ID] = struct{}{}
	}

	if c.Probe.MaxFailures < 0 {
		return fmt.Errorf("probe.max_failures %w", errNegative)
	}

	if c.ReconnectDelay < 0 {
		return fmt.Errorf("reconnect_delay %w", errNegative)
	}

	return c.Journal.Validate()
}

func (c *Config) actorConfig() robot.Config {
	return robot.Config{
		Probe: probe.Config{
			Interval:    time.Duration(c.Probe.Interval),
			Timeout:     time.Duration(c.Probe.Timeout),
			MaxFailures: c.Probe.MaxFailures,
		},
		RouterAddr: c.RouterAddr,
		Camera:     camera.Options{Interval: time.Duration(c.CameraInterval)},
	}
}
