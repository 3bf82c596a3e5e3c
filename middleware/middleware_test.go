// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/opcua-agent/address"
	"github.com/absmach/opcua-agent/datalayer"
	"github.com/absmach/opcua-agent/middleware"
	"github.com/absmach/opcua-agent/routing"
	"github.com/stretchr/testify/require"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func TestEngineSingleUpdateDefaultChannel(t *testing.T) {
	e := middleware.NewEngine(routing.NewTable(nil), routing.NewTable(nil), datalayer.NewDelta(), nopLogger())

	events := make(chan middleware.Event, 1)
	cloudOut := make(chan middleware.MQTTEvent, 1)
	commandsIn := make(chan middleware.Event)
	deviceOut := make(chan middleware.Event, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, events, cloudOut, commandsIn, deviceOut) }()

	events <- middleware.Event{Updates: []middleware.Update{
		{Address: address.New("a", "b", "x"), Channel: "ch1", Value: 1.0},
	}}

	select {
	case out := <-cloudOut:
		require.Equal(t, "ch1", out.Channel)
		features := out.Payload["features"].(map[string]any)
		require.Equal(t, 1.0, features["x"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mqtt event")
	}

	close(events)
	require.NoError(t, <-done)
}

func TestEngineChannelOverrideByPrefix(t *testing.T) {
	sources := routing.NewTable(map[string]routing.Rule{
		"a":   {Channel: ptr("ch-A")},
		"a/b": {Channel: ptr("ch-B")},
	})
	e := middleware.NewEngine(sources, routing.NewTable(nil), datalayer.NewDelta(), nopLogger())

	events := make(chan middleware.Event, 1)
	cloudOut := make(chan middleware.MQTTEvent, 1)
	commandsIn := make(chan middleware.Event)
	deviceOut := make(chan middleware.Event, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, events, cloudOut, commandsIn, deviceOut) }()

	events <- middleware.Event{Updates: []middleware.Update{
		{Address: address.New("a", "b", "x"), Channel: "orig", Value: 5.0},
	}}

	out := <-cloudOut
	require.Equal(t, "ch-B", out.Channel)
	close(events)
	require.NoError(t, <-done)
}

func TestEngineDropBySpecificPrefix(t *testing.T) {
	sources := routing.NewTable(map[string]routing.Rule{
		"a":   {Channel: ptr("c")},
		"a/b": {Drop: ptr(true)},
	})
	e := middleware.NewEngine(sources, routing.NewTable(nil), datalayer.NewDelta(), nopLogger())

	events := make(chan middleware.Event, 1)
	cloudOut := make(chan middleware.MQTTEvent, 2)
	commandsIn := make(chan middleware.Event)
	deviceOut := make(chan middleware.Event, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, events, cloudOut, commandsIn, deviceOut) }()

	events <- middleware.Event{Updates: []middleware.Update{
		{Address: address.New("a", "b", "x"), Channel: "orig", Value: 1.0},
		{Address: address.New("a", "c", "y"), Channel: "orig", Value: 2.0},
	}}

	out := <-cloudOut
	require.Equal(t, "c", out.Channel)
	features := out.Payload["features"].(map[string]any)
	require.Equal(t, 2.0, features["y"])

	select {
	case extra := <-cloudOut:
		t.Fatalf("unexpected extra event: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}

	close(events)
	require.NoError(t, <-done)
}

func TestEngineCommandRoundTrip(t *testing.T) {
	e := middleware.NewEngine(routing.NewTable(nil), routing.NewTable(nil), datalayer.NewDelta(), nopLogger())

	events := make(chan middleware.Event)
	cloudOut := make(chan middleware.MQTTEvent, 1)
	commandsIn := make(chan middleware.Event, 1)
	deviceOut := make(chan middleware.Event, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, events, cloudOut, commandsIn, deviceOut) }()

	commandsIn <- middleware.Event{Updates: []middleware.Update{{
		Address:    address.New("cloud", "commands", "plc"),
		Channel:    "plc",
		Value:      true,
		Extensions: map[string]any{"nodeId": "ns=2;s=Foo"},
	}}}

	out := <-deviceOut
	require.Len(t, out.Updates, 1)
	require.Equal(t, "plc", out.Updates[0].Channel)
	require.Equal(t, "ns=2;s=Foo", out.Updates[0].Extensions["nodeId"])

	close(events)
	require.NoError(t, <-done)
}

func TestEngineExitsCleanlyOnEventsClose(t *testing.T) {
	e := middleware.NewEngine(routing.NewTable(nil), routing.NewTable(nil), datalayer.NewDelta(), nopLogger())

	events := make(chan middleware.Event)
	cloudOut := make(chan middleware.MQTTEvent)
	commandsIn := make(chan middleware.Event)
	deviceOut := make(chan middleware.Event)

	close(events)
	err := e.Run(context.Background(), events, cloudOut, commandsIn, deviceOut)
	require.NoError(t, err)

	_, ok := <-cloudOut
	require.False(t, ok, "cloudOut should be closed on clean shutdown")
}
