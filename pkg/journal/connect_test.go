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
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/robot"
)

func TestConnectPublishesToJetStream(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv := runJetStreamServer(t)

	cfg := &Config{Enabled: true, NatsURL: srv.ClientURL(), SubjectPrefix: "lab.output."}

	fwd, nc, err := Connect(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	require.Equal(t, nats.CONNECTED, nc.Status())

	err = fwd.Publish(ctx, "pipuck3", robot.Output{
		Source: robot.SourceShell,
		Stream: robot.StreamStdout,
		Data:   "nsh> ",
	})
	require.NoError(t, err)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.Stream(ctx, defaultStream)
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lab.output.>"}, info.Config.Subjects)

	msg, err := stream.GetLastMsgForSubject(ctx, "lab.output.pipuck3.shell")
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(msg.Data, &event))

	assert.Equal(t, eventType, event.Type)
	assert.Equal(t, event.ID, msg.Header.Get(jetstream.MsgIDHeader))
	assert.Equal(t, Chunk{
		RobotID: "pipuck3",
		Source:  "shell",
		Stream:  "stdout",
		Data:    []byte("nsh> "),
	}, event.Data)
}

func TestConnectExtendsExistingStream(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv := runJetStreamServer(t)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{Name: "ARENA", Subjects: []string{"arena.tracking.>"}})
	require.NoError(t, err)

	cfg := &Config{Enabled: true, NatsURL: srv.ClientURL(), Stream: "ARENA"}

	_, journalConn, err := Connect(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(journalConn.Close)

	stream, err := js.Stream(ctx, "ARENA")
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"arena.tracking.>", defaultSubjectPrefix + ".>"}, info.Config.Subjects)
}

func TestConnectFailsWithoutServer(t *testing.T) {
	t.Parallel()

	cfg := &Config{Enabled: true, NatsURL: "nats://127.0.0.1:1"}

	_, _, err := Connect(context.Background(), cfg, logger.NewTestLogger(), nats.Timeout(100*time.Millisecond))
	require.Error(t, err)
}

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	t.Cleanup(srv.Shutdown)

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	return srv
}
