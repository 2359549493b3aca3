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
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrConfiguration marks a failed one-time link setup. The association
	// it belonged to did not take effect.
	ErrConfiguration = errors.New("link configuration failed")
	// ErrLinkNotAssociated is returned for commands aimed at a link with no
	// running supervisor.
	ErrLinkNotAssociated = errors.New("link not associated")
	// ErrLinkBusy is returned when a link already has a full queue of
	// outstanding commands.
	ErrLinkBusy = errors.New("link busy")
	// ErrUnsupportedLink is returned when a robot has no link of the
	// requested kind, or a command does not belong to the link it was sent to.
	ErrUnsupportedLink = errors.New("unsupported link")
	// ErrShellNotRunning is returned for shell input or stop while no shell is open.
	ErrShellNotRunning = errors.New("shell not running")
	// ErrShellRunning is returned when starting a shell while one is open.
	ErrShellRunning = errors.New("shell already running")
	// ErrNoExperiment is returned when starting an experiment before uploading one.
	ErrNoExperiment = errors.New("no experiment uploaded")
	// ErrExperimentRunning is returned when uploading or starting while an experiment runs.
	ErrExperimentRunning = errors.New("experiment already running")
	// ErrExperimentNotRunning is returned when stopping an experiment that is not running.
	ErrExperimentNotRunning = errors.New("experiment not running")
	// ErrInvalidSoftware is returned for an upload without exactly one ARGoS configuration.
	ErrInvalidSoftware = errors.New("invalid experiment software")
)

// LinkKind names one of a robot's hardware links.
type LinkKind string

const (
	// LinkRadio is the XBee radio link used for power control and the serial console.
	LinkRadio LinkKind = "xbee"
	// LinkCompanion is the network link to the onboard companion computer.
	LinkCompanion LinkKind = "fernbedienung"
)

func (k LinkKind) String() string {
	return string(k)
}

// Kind is the type of robot.
type Kind string

const (
	KindDrone  Kind = "drone"
	KindPiPuck Kind = "pipuck"
)

// Links returns the link kinds a robot of this kind carries.
func (k Kind) Links() []LinkKind {
	switch k {
	case KindDrone:
		return []LinkKind{LinkRadio, LinkCompanion}
	case KindPiPuck:
		return []LinkKind{LinkCompanion}
	default:
		return nil
	}
}

// HasLink reports whether robots of this kind carry link.
func (k Kind) HasLink(link LinkKind) bool {
	for _, l := range k.Links() {
		if l == link {
			return true
		}
	}

	return false
}

// Descriptor is the static identity of a robot.
type Descriptor struct {
	ID            string `json:"id" yaml:"id"`
	Kind          Kind   `json:"kind" yaml:"kind"`
	RadioMAC      string `json:"radio_mac,omitempty" yaml:"radio_mac,omitempty"`
	CompanionMAC  string `json:"companion_mac,omitempty" yaml:"companion_mac,omitempty"`
	RadioAddr     string `json:"radio_addr,omitempty" yaml:"radio_addr,omitempty"`
	CompanionAddr string `json:"companion_addr,omitempty" yaml:"companion_addr,omitempty"`
	OptitrackID   *int   `json:"optitrack_id,omitempty" yaml:"optitrack_id,omitempty"`
	AprilTagID    *int   `json:"apriltag_id,omitempty" yaml:"apriltag_id,omitempty"`
}

var (
	errMissingID   = errors.New("robot id is required")
	errUnknownKind = errors.New("unknown robot kind")
)

// Validate checks the descriptor for use by an actor.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return errMissingID
	}

	if len(d.Kind.Links()) == 0 {
		return fmt.Errorf("%w: %q", errUnknownKind, d.Kind)
	}

	if d.RadioAddr != "" && !d.Kind.HasLink(LinkRadio) {
		return fmt.Errorf("robot %s: %w: %s has no radio", d.ID, ErrUnsupportedLink, d.Kind)
	}

	return nil
}

// clone returns a copy that shares no memory with d.
func (d Descriptor) clone() Descriptor {
	if d.OptitrackID != nil {
		v := *d.OptitrackID
		d.OptitrackID = &v
	}

	if d.AprilTagID != nil {
		v := *d.AprilTagID
		d.AprilTagID = &v
	}

	return d
}

// Software is an experiment: file names mapped to their contents.
type Software map[string][]byte

// ConfigFile returns the name of the single ARGoS configuration file.
func (s Software) ConfigFile() (string, error) {
	var found []string

	for name := range s {
		if strings.HasSuffix(name, ".argos") {
			found = append(found, name)
		}
	}

	if len(found) != 1 {
		return "", fmt.Errorf("%w: want one .argos file, have %d", ErrInvalidSoftware, len(found))
	}

	return found[0], nil
}

// Validate checks that the software can be uploaded.
func (s Software) Validate() error {
	for name := range s {
		if name == "" || path.Base(name) != name {
			return fmt.Errorf("%w: bad file name %q", ErrInvalidSoftware, name)
		}
	}

	_, err := s.ConfigFile()

	return err
}
