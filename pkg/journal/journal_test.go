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

package journal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/robotsupervisor/pkg/broadcast"
	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/robot"
)

var errPublish = errors.New("no responders")

func TestPublishWrapsChunkInCloudEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)

	f := NewForwarder(pub, "robots.output.", logger.NewTestLogger())
	stamp := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	f.now = func() time.Time { return stamp }

	var published []byte

	pub.EXPECT().
		Publish(gomock.Any(), "robots.output.drone1.experiment", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
			published = data
			return &jetstream.PubAck{Stream: defaultStream, Sequence: 1}, nil
		})

	err := f.Publish(context.Background(), "drone1", robot.Output{
		Source: robot.SourceExperiment,
		Stream: robot.StreamStderr,
		Data:   "[INFO] step 1\n",
	})
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(published, &event))

	assert.Equal(t, "1.0", event.SpecVersion)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, eventType, event.Type)
	assert.Equal(t, "robots.output.drone1.experiment", event.Subject)
	assert.True(t, stamp.Equal(event.Time))
	assert.Equal(t, Chunk{
		RobotID: "drone1",
		Source:  "experiment",
		Stream:  "stderr",
		Data:    []byte("[INFO] step 1\n"),
	}, event.Data)
}

func TestPublishRequiresRobotID(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := NewForwarder(NewMockPublisher(ctrl), "", logger.NewTestLogger())

	err := f.Publish(context.Background(), "", robot.Output{Source: robot.SourceShell})
	require.ErrorIs(t, err, errEmptyRobotID)
}

func TestPublishReportsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errPublish)

	f := NewForwarder(pub, "", logger.NewTestLogger())

	err := f.Publish(context.Background(), "drone1", robot.Output{Source: robot.SourceShell})
	require.ErrorIs(t, err, errPublish)
}

func TestFollowForwardsOutputOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)

	gomock.InOrder(
		pub.EXPECT().Publish(gomock.Any(), "robots.output.pipuck1.shell", gomock.Any(), gomock.Any()).Return(nil, errPublish),
		pub.EXPECT().Publish(gomock.Any(), "robots.output.pipuck1.experiment", gomock.Any(), gomock.Any()).Return(&jetstream.PubAck{}, nil),
	)

	f := NewForwarder(pub, "", logger.NewTestLogger())

	updates := broadcast.New[robot.Update](8)
	sub := updates.Subscribe()

	updates.Send(robot.Battery{Percent: 80})
	updates.Send(robot.Output{Source: robot.SourceShell, Stream: robot.StreamStdout, Data: "ls\n"})
	updates.Send(robot.Signal{Link: robot.LinkCompanion, Value: -40})
	updates.Send(robot.Output{Source: robot.SourceExperiment, Stream: robot.StreamStdout, Data: "done\n"})
	updates.Close()

	require.NoError(t, f.Follow(context.Background(), "pipuck1", sub))
}

func TestFollowStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := NewForwarder(NewMockPublisher(ctrl), "", logger.NewTestLogger())

	updates := broadcast.New[robot.Update](8)
	sub := updates.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, f.Follow(ctx, "drone1", sub), context.Canceled)
	assert.Zero(t, updates.Len(), "subscription is released")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, (&Config{}).Validate())
	require.ErrorIs(t, (&Config{Enabled: true}).Validate(), errNatsURLRequired)
	require.NoError(t, (&Config{Enabled: true, NatsURL: "nats://127.0.0.1:4222"}).Validate())

	cfg := Config{SubjectPrefix: "lab.output."}
	assert.Equal(t, "lab.output", cfg.subjectPrefix())
	assert.Equal(t, defaultStream, cfg.stream())
}

func TestTLSConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := (&TLSConfig{CAFile: filepath.Join(dir, "missing.pem")}).build()
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o600))

	_, err = (&TLSConfig{CAFile: bad}).build()
	require.ErrorIs(t, err, errCAParsingFailed)
}

type fakeStreams struct {
	getErr  error
	created []jetstream.StreamConfig
}

func (f *fakeStreams) Stream(context.Context, string) (jetstream.Stream, error) {
	return nil, f.getErr
}

func (f *fakeStreams) CreateOrUpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.created = append(f.created, cfg)
	return nil, nil
}

func TestEnsureStreamCreatesMissingStream(t *testing.T) {
	js := &fakeStreams{getErr: jetstream.ErrStreamNotFound}

	require.NoError(t, ensureStream(context.Background(), js, "ROBOT_OUTPUT", "robots.output.>"))
	require.Len(t, js.created, 1)
	assert.Equal(t, "ROBOT_OUTPUT", js.created[0].Name)
	assert.Equal(t, []string{"robots.output.>"}, js.created[0].Subjects)
}

func TestEnsureStreamReportsLookupFailure(t *testing.T) {
	js := &fakeStreams{getErr: errPublish}

	require.ErrorIs(t, ensureStream(context.Background(), js, "ROBOT_OUTPUT", "robots.output.>"), errPublish)
	assert.Empty(t, js.created)
}

func TestEnsureSubjectList(t *testing.T) {
	tests := []struct {
		name     string
		subjects []string
		subject  string
		want     []string
	}{
		{
			name:    "adds subject when list empty",
			subject: "robots.output.>",
			want:    []string{"robots.output.>"},
		},
		{
			name:     "keeps list when wildcard covers subject",
			subjects: []string{"robots.>"},
			subject:  "robots.output.>",
			want:     []string{"robots.>"},
		},
		{
			name:     "appends when single token wildcard cannot cover tail",
			subjects: []string{"robots.output.*"},
			subject:  "robots.output.>",
			want:     []string{"robots.output.*", "robots.output.>"},
		},
		{
			name:     "appends when unmatched",
			subjects: []string{"events.>"},
			subject:  "robots.output.>",
			want:     []string{"events.>", "robots.output.>"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ensureSubjectList(append([]string(nil), tc.subjects...), tc.subject)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchesSubject(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"robots.output.drone1.shell", "robots.output.drone1.shell", true},
		{"robots.*.drone1.shell", "robots.output.drone1.shell", true},
		{"robots.>", "robots.output.drone1.shell", true},
		{"robots.>", "robots", false},
		{"robots.output", "robots.output.drone1", false},
		{"robots.output.drone1.shell", "robots.output", false},
		{"robots.output.>", "robots.output.>", true},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, matchesSubject(tc.pattern, tc.subject), "%s ~ %s", tc.pattern, tc.subject)
	}
}
