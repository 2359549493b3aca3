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

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{name: "string duration", input: `"5s"`, expected: Duration(5 * time.Second)},
		{name: "numeric duration (nanoseconds)", input: `5000000000`, expected: Duration(5 * time.Second)},
		{name: "complex duration string", input: `"1h30m45s"`, expected: Duration(time.Hour + 30*time.Minute + 45*time.Second)},
		{name: "invalid duration string", input: `"invalid"`, wantErr: true},
		{name: "invalid type", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var cfg struct {
		Interval Duration `yaml:"interval"`
		Timeout  Duration `yaml:"timeout"`
	}

	err := yaml.Unmarshal([]byte("interval: 250ms\ntimeout: 1000\n"), &cfg)
	require.NoError(t, err)

	assert.Equal(t, Duration(250*time.Millisecond), cfg.Interval)
	assert.Equal(t, Duration(1000), cfg.Timeout)
}

func TestDuration_OrDefault(t *testing.T) {
	assert.Equal(t, time.Second, Duration(0).OrDefault(time.Second))
	assert.Equal(t, 2*time.Second, Duration(2*time.Second).OrDefault(time.Second))
}
