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
	"github.com/carverauto/robotsupervisor/pkg/reply"
)

// Action is a message in a robot actor's mailbox.
type Action interface {
	action() string
}

// Associate hands a freshly discovered device to the robot. Reply receives
// nil once the link is configured, or the configuration error.
type Associate struct {
	Link   LinkKind
	Device Device
	Reply  *reply.Error
}

// Execute runs a command on one link.
type Execute struct {
	Link    LinkKind
	Command Command
	Reply   *reply.Error
}

// Subscribe asks for a subscription to the robot's updates.
type Subscribe struct {
	Reply *reply.Slot[*broadcast.Subscription[Update]]
}

// GetDescriptor asks for a copy of the robot's descriptor.
type GetDescriptor struct {
	Reply *reply.Slot[Descriptor]
}

// GetLinks asks for the address of every associated link.
type GetLinks struct {
	Reply *reply.Slot[map[LinkKind]string]
}

// UploadExperiment copies software to the companion computer.
type UploadExperiment struct {
	Software Software
	Reply    *reply.Error
}

// StartExperiment runs the most recently uploaded experiment.
type StartExperiment struct {
	Reply *reply.Error
}

// StopExperiment terminates the running experiment.
type StopExperiment struct {
	Reply *reply.Error
}

func (Associate) action() string        { return "associate" }
func (Execute) action() string          { return "execute" }
func (Subscribe) action() string        { return "subscribe" }
func (GetDescriptor) action() string    { return "get_descriptor" }
func (GetLinks) action() string         { return "get_links" }
func (UploadExperiment) action() string { return "upload_experiment" }
func (StartExperiment) action() string  { return "start_experiment" }
func (StopExperiment) action() string   { return "stop_experiment" }

// Command is an operation carried out by a link supervisor.
type Command interface {
	// Link is the link kind that services the command.
	Link() LinkKind
	Name() string
}

// SetUpCorePower switches the companion computer's power rail.
type SetUpCorePower struct {
	On bool
}

// SetPixhawkPower switches the flight controller's power rail.
type SetPixhawkPower struct {
	On bool
}

// SerialRun sends a line to the flight controller's shell over MAVLink.
type SerialRun struct {
	Command string
}

// SetCameraStream starts or stops streaming all of the robot's cameras.
type SetCameraStream struct {
	Enabled bool
}

// Halt powers the companion computer off.
type Halt struct{}

// Reboot restarts the companion computer.
type Reboot struct{}

// Identify makes the robot signal its presence.
type Identify struct{}

// ShellStart opens an interactive login shell.
type ShellStart struct{}

// ShellRun writes one line to the open shell.
type ShellRun struct {
	Command string
}

// ShellStop terminates the open shell.
type ShellStop struct{}

type uploadExperiment struct {
	software Software
}

type startExperiment struct{}

type stopExperiment struct{}

func (SetUpCorePower) Link() LinkKind   { return LinkRadio }
func (SetPixhawkPower) Link() LinkKind  { return LinkRadio }
func (SerialRun) Link() LinkKind        { return LinkRadio }
func (SetCameraStream) Link() LinkKind  { return LinkCompanion }
func (Halt) Link() LinkKind             { return LinkCompanion }
func (Reboot) Link() LinkKind           { return LinkCompanion }
func (Identify) Link() LinkKind         { return LinkCompanion }
func (ShellStart) Link() LinkKind       { return LinkCompanion }
func (ShellRun) Link() LinkKind         { return LinkCompanion }
func (ShellStop) Link() LinkKind        { return LinkCompanion }
func (uploadExperiment) Link() LinkKind { return LinkCompanion }
func (startExperiment) Link() LinkKind  { return LinkCompanion }
func (stopExperiment) Link() LinkKind   { return LinkCompanion }

func (SetUpCorePower) Name() string   { return "set_upcore_power" }
func (SetPixhawkPower) Name() string  { return "set_pixhawk_power" }
func (SerialRun) Name() string        { return "serial_run" }
func (SetCameraStream) Name() string  { return "set_camera_stream" }
func (Halt) Name() string             { return "halt" }
func (Reboot) Name() string           { return "reboot" }
func (Identify) Name() string         { return "identify" }
func (ShellStart) Name() string       { return "shell_start" }
func (ShellRun) Name() string         { return "shell_run" }
func (ShellStop) Name() string        { return "shell_stop" }
func (uploadExperiment) Name() string { return "upload_experiment" }
func (startExperiment) Name() string  { return "start_experiment" }
func (stopExperiment) Name() string   { return "stop_experiment" }

// request is a command travelling from the actor to a supervisor or bridge.
type request struct {
	cmd   Command
	reply *reply.Error
}

// drain drops every request left in a command channel whose consumer has
// exited. Only call it once nothing can send on cmds any more.
func drain(cmds chan request) {
	for {
		select {
		case req := <-cmds:
			req.reply.Drop()
		default:
			return
		}
	}
}

// offer queues req on cmds without waiting. A full queue fails req with
// ErrLinkBusy.
func offer(cmds chan<- request, req request, target string) {
	select {
	case cmds <- req:
	default:
		req.reply.Fulfill(fmt.Errorf("%s: %w: %s", req.cmd.Name(), ErrLinkBusy, target))
	}
}

// settle answers req with err. A failure caused by ctx ending drops the
// reply instead, so the caller sees reply.ErrNoResponse.
func settle(ctx context.Context, req request, err error) {
	if err != nil && ctx.Err() != nil {
		req.reply.Drop()
		return
	}

	req.reply.Fulfill(err)
}
