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
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/robotsupervisor/pkg/logger"
)

var errNatsURLRequired = errors.New("journal nats_url is required")

// Config selects the NATS server and stream the journal writes to.
type Config struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	NatsURL       string `json:"nats_url" yaml:"nats_url"`
	Stream        string `json:"stream" yaml:"stream"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
	// Domain selects a JetStream domain, as used by leaf node deployments.
	Domain string     `json:"domain" yaml:"domain"`
	TLS    *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// Validate checks an enabled journal configuration.
func (c *Config) Validate() error {
	if c.Enabled && c.NatsURL == "" {
		return errNatsURLRequired
	}

	return nil
}

func (c *Config) stream() string {
	if c.Stream == "" {
		return defaultStream
	}

	return c.Stream
}

func (c *Config) subjectPrefix() string {
	if c.SubjectPrefix == "" {
		return defaultSubjectPrefix
	}

	return strings.TrimSuffix(c.SubjectPrefix, ".")
}

// Connect dials NATS, makes sure the journal stream captures the output
// subjects and returns a forwarder publishing to it. The caller closes the
// returned connection.
func Connect(ctx context.Context, cfg *Config, log logger.Logger, extraOpts ...nats.Option) (*Forwarder, *nats.Conn, error) {
	opts := append([]nats.Option{
		nats.Name("robotsupervisor"),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}, extraOpts...)

	if cfg.TLS != nil {
		tlsConf, err := cfg.TLS.build()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	nc, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := newJetStream(nc, cfg.Domain)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg.stream(), cfg.subjectPrefix()+".>"); err != nil {
		nc.Close()
		return nil, nil, err
	}

	return NewForwarder(js, cfg.subjectPrefix(), log), nc, nil
}

func newJetStream(nc *nats.Conn, domain string) (jetstream.JetStream, error) {
	if domain != "" {
		return jetstream.NewWithDomain(nc, domain)
	}

	return jetstream.New(nc)
}

// streamManager is the subset of jetstream.JetStream used to set up the stream.
type streamManager interface {
	Stream(ctx context.Context, stream string) (jetstream.Stream, error)
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

func ensureStream(ctx context.Context, js streamManager, name, subject string) error {
	cfg := jetstream.StreamConfig{Name: name}

	stream, err := js.Stream(ctx, name)

	switch {
	case err == nil:
		info, infoErr := stream.Info(ctx)
		if infoErr != nil {
			return fmt.Errorf("failed to read stream %s: %w", name, infoErr)
		}

		if containsMatch(info.Config.Subjects, subject) {
			return nil
		}

		cfg = info.Config
	case !errors.Is(err, jetstream.ErrStreamNotFound):
		return fmt.Errorf("failed to get stream %s: %w", name, err)
	}

	cfg.Subjects = ensureSubjectList(cfg.Subjects, subject)

	if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to create or update stream %s: %w", name, err)
	}

	return nil
}

// ensureSubjectList appends subject unless a pattern in subjects already
// covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	if containsMatch(subjects, subject) {
		return subjects
	}

	return append(subjects, subject)
}

func containsMatch(patterns []string, subject string) bool {
	for _, p := range patterns {
		if matchesSubject(p, subject) {
			return true
		}
	}

	return false
}

// matchesSubject reports whether the NATS subject pattern covers subject.
// subject may itself end in the ">" wildcard.
func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if st[i] == ">" || (tok != "*" && tok != st[i]) {
			return false
		}
	}

	return len(pt) == len(st)
}
