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

// Package fleet runs one actor per configured robot and keeps their
// statically configured links associated.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/robotsupervisor/pkg/broadcast"
	"github.com/carverauto/robotsupervisor/pkg/fernbedienung"
	"github.com/carverauto/robotsupervisor/pkg/journal"
	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/robot"
	"github.com/carverauto/robotsupervisor/pkg/xbee"
)

// linkCheckInterval is how often a keeper confirms its link is still
// associated, covering Disconnected updates lost to a slow subscription.
const linkCheckInterval = 5 * time.Second

var errSubscriptionEnded = errors.New("update subscription ended")

// linkDevice is a device the fleet dialed and must close.
type linkDevice interface {
	robot.Device
	io.Closer
}

type dialFunc func(ctx context.Context, addr string, log logger.Logger) (linkDevice, error)

func dialRadio(_ context.Context, addr string, log logger.Logger) (linkDevice, error) {
	dev, err := xbee.Dial(addr, log)
	if err != nil {
		return nil, err
	}

	return dev, nil
}

func dialCompanion(ctx context.Context, addr string, log logger.Logger) (linkDevice, error) {
	dev, err := fernbedienung.Dial(ctx, addr, log)
	if err != nil {
		return nil, err
	}

	return dev, nil
}

type member struct {
	actor *robot.Actor
	desc  robot.Descriptor
}

// Fleet owns the actors of all configured robots.
type Fleet struct {
	members        []member
	handles        map[string]*robot.Handle
	journal        *journal.Forwarder
	reconnectDelay time.Duration
	linkCheck      time.Duration
	dial           map[robot.LinkKind]dialFunc
	log            logger.Logger
}

// New creates an actor per robot in cfg. fwd may be nil to run without a
// journal.
func New(cfg *Config, fwd *journal.Forwarder, log logger.Logger) *Fleet {
	f := &Fleet{
		handles:        make(map[string]*robot.Handle, len(cfg.Robots)),
		journal:        fwd,
		reconnectDelay: cfg.ReconnectDelay.OrDefault(defaultReconnectDelay),
		linkCheck:      linkCheckInterval,
		dial: map[robot.LinkKind]dialFunc{
			robot.LinkRadio:     dialRadio,
			robot.LinkCompanion: dialCompanion,
		},
		log: log.WithComponent("fleet"),
	}

	actorCfg := cfg.actorConfig()

	for _, desc := range cfg.Robots {
		a := robot.New(desc, actorCfg, log)
		f.members = append(f.members, member{actor: a, desc: desc})
		f.handles[desc.ID] = a.Handle()
	}

	return f
}

// Handle returns the handle of the robot with the given id.
func (f *Fleet) Handle(id string) (*robot.Handle, bool) {
	h, ok := f.handles[id]
	return h, ok
}

// IDs lists the robots in the fleet in sorted order.
func (f *Fleet) IDs() []string {
	ids := make([]string, 0, len(f.handles))
	for id := range f.handles {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Run runs every actor, the journal forwarders and the link keepers until
// ctx is cancelled or one of them fails.
func (f *Fleet) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, m := range f.members {
		h := m.actor.Handle()

		g.Go(func() error {
			return m.actor.Run(gctx)
		})

		if f.journal != nil {
			g.Go(func() error {
				sub, err := h.Subscribe(gctx)
				if err != nil {
					return ignoreStopped(gctx, err)
				}

				return f.journal.Follow(gctx, m.desc.ID, sub)
			})
		}

		for kind, addr := range staticLinks(m.desc) {
			g.Go(func() error {
				return f.keepLink(gctx, h, kind, addr)
			})
		}
	}

	f.log.Info().Int("robots", len(f.members)).Bool("journal", f.journal != nil).Msg("Fleet started")

	return g.Wait()
}

func staticLinks(desc robot.Descriptor) map[robot.LinkKind]string {
	links := make(map[robot.LinkKind]string, 2)

	if desc.RadioAddr != "" {
		links[robot.LinkRadio] = desc.RadioAddr
	}

	if desc.CompanionAddr != "" {
		links[robot.LinkCompanion] = desc.CompanionAddr
	}

	return links
}

// keepLink associates the device at addr with the robot and dials it again
// whenever the link drops.
func (f *Fleet) keepLink(ctx context.Context, h *robot.Handle, kind robot.LinkKind, addr string) error {
	log := f.log.WithFields(map[string]interface{}{"robot": h.ID(), "link": string(kind), "addr": addr})

	sub, err := h.Subscribe(ctx)
	if err != nil {
		return ignoreStopped(ctx, err)
	}
	defer sub.Close()

	for {
		err := f.associate(ctx, h, kind, addr, sub, log)

		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, robot.ErrActorStopped), errors.Is(err, errSubscriptionEnded):
			return nil
		case err != nil:
			log.Warn().Err(err).Dur("retry_in", f.reconnectDelay).Msg("Link unavailable")
		default:
			log.Warn().Dur("retry_in", f.reconnectDelay).Msg("Link lost")
		}

		t := time.NewTimer(f.reconnectDelay)

		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// associate runs one connection of a link: dial, associate and wait for the
// link's supervisor to end. It returns nil when an established link drops.
func (f *Fleet) associate(
	ctx context.Context, h *robot.Handle, kind robot.LinkKind, addr string,
	sub *broadcast.Subscription[robot.Update], log logger.Logger,
) error {
	dev, err := f.dial[kind](ctx, addr, log)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = dev.Close() }()

	err = h.Associate(ctx, kind, dev)

	switch {
	case err == nil:
		log.Info().Msg("Link associated")
	case errors.Is(err, robot.ErrConfiguration):
		// the failed supervisor still reports its exit
		if waitErr := f.waitDisconnected(ctx, h, sub, kind, dev.Addr()); waitErr != nil {
			return waitErr
		}

		return err
	default:
		return err
	}

	return f.waitDisconnected(ctx, h, sub, kind, dev.Addr())
}

// waitDisconnected returns once the link of kind to addr is gone, either
// reported on sub or found missing from the robot's associated links.
func (f *Fleet) waitDisconnected(
	ctx context.Context, h *robot.Handle, sub *broadcast.Subscription[robot.Update], kind robot.LinkKind, addr string,
) error {
	ticker := time.NewTicker(f.linkCheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			links, err := h.Links(ctx)
			if err != nil {
				return err
			}

			if links[kind] != addr {
				return nil
			}
		case u, ok := <-sub.C():
			if !ok {
				return errSubscriptionEnded
			}

			if d, isDisconnect := u.(robot.Disconnected); isDisconnect && d.Link == kind {
				return nil
			}
		}
	}
}

func ignoreStopped(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, robot.ErrActorStopped) {
		return nil
	}

	return err
}
