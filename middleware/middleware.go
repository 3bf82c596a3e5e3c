// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package middleware implements the central event loop: it reads upstream
// events, applies address-prefix routing, feeds the feature data layer, and
// emits MQTT events; symmetrically, it reads command events from the cloud
// and routes them to device sinks.
package middleware

import (
	"context"
	"log/slog"

	"github.com/absmach/opcua-agent/address"
	"github.com/absmach/opcua-agent/datalayer"
	"github.com/absmach/opcua-agent/routing"
)

// Update is one observed change: an address, its resolved channel, its
// value, and any extension tags. Updates are immutable after construction
// by the middleware.
type Update struct {
	Address    address.Address
	Channel    string
	Value      any
	Extensions map[string]any
}

// New builds an Update with no extensions, mirroring the original's
// Update::new convenience constructor.
func New(addr address.Address, channel string, value any) Update {
	return Update{Address: addr, Channel: channel, Value: value, Extensions: map[string]any{}}
}

func (u Update) toRouting() routing.Update {
	return routing.Update{Address: u.Address, Channel: u.Channel, Value: u.Value, Extensions: u.Extensions}
}

func (u Update) toDataLayer() datalayer.Update {
	return datalayer.Update{Address: u.Address, Channel: u.Channel, Value: u.Value, Extensions: u.Extensions}
}

func fromRouting(r routing.Update) Update {
	return Update{Address: r.Address, Channel: r.Channel, Value: r.Value, Extensions: r.Extensions}
}

// Event is a batch of updates delivered atomically to the middleware. An
// empty batch is a no-op.
type Event struct {
	Updates []Update
}

// MQTTEvent is an outbound event bound for the cloud: a channel and a
// payload shaped {"features": {...}} by the data layer.
type MQTTEvent struct {
	Channel string
	Payload map[string]any
}

// Engine is the core routing/compaction loop: it owns the sources and sinks
// routing tables and the feature data layer, none of which are shared
// outside the Engine.
type Engine struct {
	sources  routing.Table
	sinks    routing.Table
	data     datalayer.Layer
	logger   *slog.Logger
	observer Observer
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithObserver attaches an Observer that is notified of each processed
// batch, used by LoggingObserver and MetricsObserver to log and count Run's
// work per batch instead of decorating Run as a whole the way lora's
// decorators wrap each RPC (Run is one long call, not many short ones).
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine builds an Engine. data selects the compaction mode
// (datalayer.NewDelta or datalayer.NewFullState) once for the lifetime of
// the Engine.
func NewEngine(sources, sinks routing.Table, data datalayer.Layer, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{sources: sources, sinks: sinks, data: data, logger: logger, observer: NopObserver{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run reads events and commandsIn until events closes, dispatching
// compacted MQTT events to cloudOut and routed command batches to
// deviceOut. Run returns nil on a clean shutdown (events closed); it never
// blocks holding a lock, and it processes one batch to completion before
// selecting the next.
func (e *Engine) Run(
	ctx context.Context,
	events <-chan Event,
	cloudOut chan<- MQTTEvent,
	commandsIn <-chan Event,
	deviceOut chan<- Event,
) error {
	defer close(cloudOut)
	defer close(deviceOut)

	e.observer.RunStarted()
	var runErr error
	defer func() { e.observer.RunStopped(runErr) }()

	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			return runErr

		case ev, ok := <-events:
			if !ok {
				e.logger.Info("exiting middleware loop: upstream events closed")
				return nil
			}
			if err := e.handleEvent(ctx, ev, cloudOut); err != nil {
				runErr = err
				return err
			}

		case cmd, ok := <-commandsIn:
			if !ok {
				commandsIn = nil
				continue
			}
			if err := e.handleCommand(ctx, cmd, deviceOut); err != nil {
				runErr = err
				return err
			}
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev Event, cloudOut chan<- MQTTEvent) error {
	surviving := make([]datalayer.Update, 0, len(ev.Updates))
	for _, u := range ev.Updates {
		routed, keep := e.sources.Apply(u.toRouting())
		if !keep {
			continue
		}
		surviving = append(surviving, fromRouting(routed).toDataLayer())
	}

	out := e.data.Update(surviving)
	e.observer.NorthboundBatch(len(ev.Updates), len(ev.Updates)-len(surviving), len(out))

	for _, mqttEv := range out {
		select {
		case cloudOut <- MQTTEvent{Channel: mqttEv.Channel, Payload: mqttEv.Payload}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (e *Engine) handleCommand(ctx context.Context, cmd Event, deviceOut chan<- Event) error {
	surviving := make([]Update, 0, len(cmd.Updates))
	for _, u := range cmd.Updates {
		routed, keep := e.sinks.Apply(u.toRouting())
		if !keep {
			continue
		}
		surviving = append(surviving, fromRouting(routed))
	}

	e.observer.SouthboundBatch(len(cmd.Updates), len(cmd.Updates)-len(surviving))

	select {
	case deviceOut <- Event{Updates: surviving}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
