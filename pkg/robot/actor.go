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

// Package robot implements the per-robot actor: it owns a robot's link
// associations, supervises a task per link and fans state changes out to
// subscribers.
package robot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/carverauto/robotsupervisor/pkg/broadcast"
	"github.com/carverauto/robotsupervisor/pkg/logger"
	"github.com/carverauto/robotsupervisor/pkg/reply"
)

const mailboxSize = 16

// supervisor is the task that owns one associated link.
type supervisor interface {
	run(ctx context.Context, cmds <-chan request, associated *reply.Error) error
}

// link is the actor's record of an associated link.
type link struct {
	kind   LinkKind
	addr   string
	gen    uint64
	cmds   chan request
	cancel context.CancelFunc
	done   chan struct{}
}

type supervisorExit struct {
	kind LinkKind
	gen  uint64
	err  error
}

// Actor is the task owning one robot. Create it with New, start Run on its
// own goroutine and talk to it through a Handle.
type Actor struct {
	desc    Descriptor
	cfg     Config
	log     logger.Logger
	mailbox chan Action
	updates *broadcast.Broadcaster[Update]
	exits   chan supervisorExit
	done    chan struct{}

	links map[LinkKind]*link
	gen   uint64
	live  atomic.Int32
	wg    sync.WaitGroup

	handle *Handle
}

// New creates the actor for desc.
func New(desc Descriptor, cfg Config, log logger.Logger) *Actor {
	cfg = cfg.withDefaults()

	a := &Actor{
		desc:    desc.clone(),
		cfg:     cfg,
		log:     log.WithFields(map[string]interface{}{"robot": desc.ID, "kind": string(desc.Kind)}),
		mailbox: make(chan Action, mailboxSize),
		updates: broadcast.New[Update](cfg.UpdateCapacity),
		exits:   make(chan supervisorExit),
		done:    make(chan struct{}),
		links:   make(map[LinkKind]*link),
	}

	a.handle = &Handle{id: desc.ID, mailbox: a.mailbox, done: a.done}

	return a
}

// ID returns the robot's identifier.
func (a *Actor) ID() string {
	return a.desc.ID
}

// Handle returns the actor's mailbox handle.
func (a *Actor) Handle() *Handle {
	return a.handle
}

// Run services the mailbox until it is closed or ctx ends. On return every
// supervisor has been cancelled and has exited, and every subscription
// is closed.
func (a *Actor) Run(ctx context.Context) error {
	a.log.Info().Msg("Robot actor started")

	defer a.shutdown()

	for {
		select {
		case act, ok := <-a.mailbox:
			if !ok {
				a.log.Info().Msg("Mailbox closed, stopping robot actor")
				return nil
			}

			a.dispatch(ctx, act)
		case exit := <-a.exits:
			a.supervisorExited(exit)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *Actor) shutdown() {
	close(a.done)

	links := make([]*link, 0, len(a.links))

	for kind, l := range a.links {
		l.cancel()
		links = append(links, l)
		delete(a.links, kind)
	}

	a.wg.Wait()

	for _, l := range links {
		drain(l.cmds)
	}

	a.handle.Close()

	for act := range a.mailbox {
		dropAction(act)
	}

	a.updates.Close()
}

func (a *Actor) dispatch(ctx context.Context, act Action) {
	switch act := act.(type) {
	case Associate:
		a.associate(ctx, act)
	case Execute:
		a.execute(act.Link, act.Command, act.Reply)
	case Subscribe:
		a.subscribe(act)
	case GetDescriptor:
		act.Reply.Fulfill(a.desc.clone())
	case GetLinks:
		links := make(map[LinkKind]string, len(a.links))
		for kind, l := range a.links {
			links[kind] = l.addr
		}

		act.Reply.Fulfill(links)
	case UploadExperiment:
		if err := act.Software.Validate(); err != nil {
			act.Reply.Fulfill(err)
			return
		}

		a.execute(LinkCompanion, uploadExperiment{software: act.Software}, act.Reply)
	case StartExperiment:
		a.execute(LinkCompanion, startExperiment{}, act.Reply)
	case StopExperiment:
		a.execute(LinkCompanion, stopExperiment{}, act.Reply)
	default:
		a.log.Warn().Str("action", fmt.Sprintf("%T", act)).Msg("Ignoring unknown action")
	}
}

func (a *Actor) associate(ctx context.Context, act Associate) {
	sup, err := a.newSupervisor(act.Link, act.Device)
	if err != nil {
		act.Reply.Fulfill(err)
		return
	}

	if old, ok := a.links[act.Link]; ok {
		a.log.Info().Str("link", act.Link.String()).Str("addr", old.addr).Msg("Replacing link association")
		old.cancel()

		go func() {
			<-old.done
			drain(old.cmds)
		}()
	}

	a.gen++

	sctx, cancel := context.WithCancel(ctx)
	l := &link{
		kind:   act.Link,
		addr:   act.Device.Addr(),
		gen:    a.gen,
		cmds:   make(chan request, commandBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	a.links[act.Link] = l

	a.log.Info().Str("link", act.Link.String()).Str("addr", l.addr).Msg("Link associated")
	a.updates.Send(Connected{Link: act.Link, Addr: l.addr})

	a.live.Add(1)
	a.wg.Add(1)

	go func() {
		defer a.wg.Done()

		err := sup.run(sctx, l.cmds, act.Reply)

		cancel()
		a.live.Add(-1)
		close(l.done)

		select {
		case a.exits <- supervisorExit{kind: l.kind, gen: l.gen, err: err}:
		case <-a.done:
		}
	}()
}

func (a *Actor) newSupervisor(kind LinkKind, dev Device) (supervisor, error) {
	if !a.desc.Kind.HasLink(kind) {
		return nil, fmt.Errorf("%w: %s has no %s link", ErrUnsupportedLink, a.desc.Kind, kind)
	}

	log := a.log.WithFields(map[string]interface{}{"link": kind.String()})

	switch kind {
	case LinkRadio:
		radio, ok := dev.(RadioDevice)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a radio device", ErrUnsupportedLink, dev)
		}

		return &radioSupervisor{dev: radio, cfg: a.cfg, updates: a.updates, log: log}, nil
	case LinkCompanion:
		companion, ok := dev.(CompanionDevice)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a companion device", ErrUnsupportedLink, dev)
		}

		return &companionSupervisor{
			dev:     companion,
			desc:    a.desc,
			cfg:     a.cfg,
			cameras: a.cfg.cameras(a.desc.Kind),
			updates: a.updates,
			log:     log,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLink, kind)
	}
}

func (a *Actor) execute(kind LinkKind, cmd Command, slot *reply.Error) {
	if cmd == nil || cmd.Link() != kind {
		slot.Fulfill(fmt.Errorf("%w: command not serviced by %s link", ErrUnsupportedLink, kind))
		return
	}

	l, ok := a.links[kind]
	if !ok {
		slot.Fulfill(fmt.Errorf("%s: %w: %s", cmd.Name(), ErrLinkNotAssociated, kind))
		return
	}

	select {
	case <-l.done:
		slot.Drop()
		return
	default:
	}

	offer(l.cmds, request{cmd: cmd, reply: slot}, kind.String())
}

func (a *Actor) subscribe(act Subscribe) {
	sub := a.updates.Subscribe()

	if !act.Reply.Fulfill(sub) {
		sub.Close()
		return
	}

	for _, kind := range a.desc.Kind.Links() {
		if l, ok := a.links[kind]; ok {
			a.updates.Send(Connected{Link: kind, Addr: l.addr})
		}
	}

	a.updates.Send(DescriptorInfo{Descriptor: a.desc.clone()})
}

func (a *Actor) supervisorExited(exit supervisorExit) {
	l, ok := a.links[exit.kind]
	if !ok || l.gen != exit.gen {
		a.log.Debug().Str("link", exit.kind.String()).Uint64("generation", exit.gen).Msg("Ignoring exit of replaced supervisor")
		return
	}

	delete(a.links, exit.kind)
	drain(l.cmds)

	event := a.log.Info()
	if exit.err != nil && !errors.Is(exit.err, context.Canceled) {
		event = a.log.Warn().Err(exit.err)
	}

	event.Str("link", exit.kind.String()).Str("addr", l.addr).Msg("Link disconnected")

	a.updates.Send(Disconnected{Link: exit.kind})
}

func dropAction(act Action) {
	switch act := act.(type) {
	case Associate:
		act.Reply.Drop()
	case Execute:
		act.Reply.Drop()
	case Subscribe:
		act.Reply.Drop()
	case GetDescriptor:
		act.Reply.Drop()
	case GetLinks:
		act.Reply.Drop()
	case UploadExperiment:
		act.Reply.Drop()
	case StartExperiment:
		act.Reply.Drop()
	case StopExperiment:
		act.Reply.Drop()
	}
}
