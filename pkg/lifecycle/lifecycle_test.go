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

package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotsupervisor/pkg/logger"
)

var errBoom = errors.New("boom")

type serviceFunc func(ctx context.Context) error

func (f serviceFunc) Run(ctx context.Context) error { return f(ctx) }

func TestSetupLogger(t *testing.T) {
	log, err := SetupLogger("supervisor", &logger.Config{Level: "error"})

	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestSetupLoggerRejectsBadLevel(t *testing.T) {
	_, err := SetupLogger("supervisor", &logger.Config{Level: "loud"})

	require.Error(t, err)
}

func TestRunUntilSignalReturnsServiceError(t *testing.T) {
	err := RunUntilSignal(context.Background(), serviceFunc(func(context.Context) error {
		return errBoom
	}), logger.NewTestLogger())

	require.ErrorIs(t, err, errBoom)
}

func TestRunUntilSignalParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunUntilSignal(ctx, serviceFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), logger.NewTestLogger())

	require.NoError(t, err)
}
