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

// Package journal relays process output from robots to NATS JetStream.
package journal

//go:generate mockgen -destination=mock_publisher.go -package=journal github.com/carverauto/robotsupervisor/pkg/journal Publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/robotsupervisor/pkg/broadcast"
	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/robot"
)

const (
	eventSource      = "robotsupervisor"
	eventType        = "com.carverauto.robotsupervisor.output"
	eventSpecVersion = "1.0"

	defaultSubjectPrefix = "robots.output"
	defaultStream        = "ROBOT_OUTPUT"
	defaultPublishWait   = 5 * time.Second
)

var errEmptyRobotID = errors.New("robot id is required")

// Publisher is the subset of jetstream.JetStream used to publish chunks.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Chunk is one piece of output printed by a process on a robot.
type Chunk struct {
	RobotID string `json:"robot_id"`
	Source  string `json:"source"`
	Stream  string `json:"stream"`
	Data    []byte `json:"data"`
}

// Event is the CloudEvents envelope a chunk is published in.
type Event struct {
	SpecVersion     string    `json:"specversion"`
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	Type            string    `json:"type"`
	DataContentType string    `json:"datacontenttype"`
	Subject         string    `json:"subject"`
	Time            time.Time `json:"time"`
	Data            Chunk     `json:"data"`
}

// Forwarder publishes output updates of robots as events.
type Forwarder struct {
	pub    Publisher
	prefix string
	log    logger.Logger
	now    func() time.Time
}

// NewForwarder creates a forwarder publishing below subjectPrefix.
func NewForwarder(pub Publisher, subjectPrefix string, log logger.Logger) *Forwarder {
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}

	return &Forwarder{
		pub:    pub,
		prefix: strings.TrimSuffix(subjectPrefix, "."),
		log:    log.WithComponent("journal"),
		now:    time.Now,
	}
}

// Subject returns the subject chunks of robotID from source are published on.
func (f *Forwarder) Subject(robotID string, source robot.OutputSource) string {
	return fmt.Sprintf("%s.%s.%s", f.prefix, robotID, source)
}

// Publish sends one output chunk.
func (f *Forwarder) Publish(ctx context.Context, robotID string, out robot.Output) error {
	if robotID == "" {
		return errEmptyRobotID
	}

	subject := f.Subject(robotID, out.Source)

	event := Event{
		SpecVersion:     eventSpecVersion,
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            f.now().UTC(),
		Data: Chunk{
			RobotID: robotID,
			Source:  string(out.Source),
			Stream:  string(out.Stream),
			Data:    []byte(out.Data),
		},
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal output event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishWait)
	defer cancel()

	if _, err := f.pub.Publish(ctx, subject, payload, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("failed to publish output event: %w", err)
	}

	return nil
}

// Follow publishes every Output update received on sub until the
// subscription ends or ctx is cancelled. Publish failures are logged and
// do not stop the forwarder.
func (f *Forwarder) Follow(ctx context.Context, robotID string, sub *broadcast.Subscription[robot.Update]) error {
	defer sub.Close()

	log := f.log.WithFields(map[string]interface{}{"robot": robotID})

	var dropped uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-sub.C():
			if !ok {
				return nil
			}

			if n := sub.Dropped(); n > dropped {
				log.Warn().Uint64("dropped", n-dropped).Msg("Journal fell behind, output lost")
				dropped = n
			}

			out, isOutput := u.(robot.Output)
			if !isOutput {
				continue
			}

			if err := f.Publish(ctx, robotID, out); err != nil {
				log.Error().Err(err).Str("source", string(out.Source)).Msg("Failed to journal output")
			}
		}
	}
}
