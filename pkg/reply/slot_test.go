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

package reply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCommand = errors.New("command failed")

func TestSlotFulfillOnce(t *testing.T) {
	s := New[int]()

	assert.True(t, s.Fulfill(1))
	assert.False(t, s.Fulfill(2))

	v, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSlotDrop(t *testing.T) {
	s := New[string]()
	s.Drop()

	assert.False(t, s.Fulfill("late"))

	_, err := s.Wait(context.Background())
	require.ErrorIs(t, err, ErrNoResponse)
}

func TestSlotAbandonedByWaiter(t *testing.T) {
	s := New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.False(t, s.Fulfill(3), "fulfilling an abandoned slot must report failure")
}

func TestSlotFulfillFromOtherGoroutine(t *testing.T) {
	s := NewError()

	go s.Fulfill(errCommand)

	require.ErrorIs(t, Await(context.Background(), s), errCommand)
}

func TestNilSlotIsInert(t *testing.T) {
	var s *Slot[int]

	assert.False(t, s.Fulfill(1))
	s.Drop()
}
