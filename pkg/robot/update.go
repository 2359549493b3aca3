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

// Update is an observable change in a robot's state.
type Update interface {
	UpdateType() string
}

// Connected reports a newly associated link.
type Connected struct {
	Link LinkKind
	Addr string
}

// Disconnected reports that a link's supervisor has ended.
type Disconnected struct {
	Link LinkKind
}

// Signal is a link quality reading: the radio's link margin or the
// companion computer's Wi-Fi signal strength.
type Signal struct {
	Link  LinkKind
	Value int
}

// Battery is the remaining charge in percent.
type Battery struct {
	Percent int
}

// PowerState reports the power rails switched by the radio module.
type PowerState struct {
	UpCore  bool
	Pixhawk bool
}

// CameraFrame is one JPEG snapshot, or the error fetching it.
type CameraFrame struct {
	Camera string
	Frame  []byte
	Err    error
}

// OutputSource names the process an output chunk came from.
type OutputSource string

const (
	SourceShell      OutputSource = "shell"
	SourceExperiment OutputSource = "experiment"
)

// OutputStream distinguishes standard output from standard error.
type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// Output is a chunk of text printed by a remote process.
type Output struct {
	Source OutputSource
	Stream OutputStream
	Data   string
}

// DescriptorInfo carries the robot's descriptor to new subscribers.
type DescriptorInfo struct {
	Descriptor Descriptor
}

func (Connected) UpdateType() string      { return "connected" }
func (Disconnected) UpdateType() string   { return "disconnected" }
func (Signal) UpdateType() string         { return "signal" }
func (Battery) UpdateType() string        { return "battery" }
func (PowerState) UpdateType() string     { return "power_state" }
func (CameraFrame) UpdateType() string    { return "camera_frame" }
func (Output) UpdateType() string         { return "output" }
func (DescriptorInfo) UpdateType() string { return "descriptor" }
