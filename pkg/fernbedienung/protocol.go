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

package fernbedienung

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// RequestKind names a remote operation.
type RequestKind string

const (
	KindLinkStrength  RequestKind = "link_strength"
	KindHalt          RequestKind = "halt"
	KindReboot        RequestKind = "reboot"
	KindIdentify      RequestKind = "identify"
	KindCreateTempDir RequestKind = "create_temp_dir"
	KindUpload        RequestKind = "upload"
	KindRun           RequestKind = "run"
	KindStdin         RequestKind = "stdin"
	KindTerminate     RequestKind = "terminate"
)

// EncodingZstd marks upload contents compressed with zstd.
const EncodingZstd = "zstd"

// Request is one client to server message.
type Request struct {
	ID      string       `cbor:"id"`
	Kind    RequestKind  `cbor:"kind"`
	Process string       `cbor:"process,omitempty"`
	Run     *ProcessSpec `cbor:"run,omitempty"`
	Upload  *Upload      `cbor:"upload,omitempty"`
	Data    []byte       `cbor:"data,omitempty"`
}

// ProcessSpec describes a process to start on the remote host.
type ProcessSpec struct {
	Target     string   `cbor:"target"`
	WorkingDir string   `cbor:"working_dir,omitempty"`
	Args       []string `cbor:"args,omitempty"`
}

// Upload writes one file on the remote host.
type Upload struct {
	Path     string `cbor:"path"`
	Filename string `cbor:"filename"`
	Contents []byte `cbor:"contents"`
	Encoding string `cbor:"encoding,omitempty"`
}

// Response answers a request, or carries a process event when Event is set.
// For events ID is the ID of the request that started the process.
type Response struct {
	ID           string `cbor:"id"`
	Error        string `cbor:"error,omitempty"`
	LinkStrength int    `cbor:"link_strength,omitempty"`
	Path         string `cbor:"path,omitempty"`
	Event        *Event `cbor:"event,omitempty"`
}

// Event reports output or termination of a remote process.
type Event struct {
	Stdout   []byte `cbor:"stdout,omitempty"`
	Stderr   []byte `cbor:"stderr,omitempty"`
	Exited   bool   `cbor:"exited,omitempty"`
	ExitCode int    `cbor:"exit_code,omitempty"`
}

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fernbedienung: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("fernbedienung: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("fernbedienung: zstd encoder initialization failed: " + err.Error())
	}
}

// Marshal encodes a protocol message.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes a protocol message.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Compress zstd-compresses upload contents.
func Compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, nil)
}
