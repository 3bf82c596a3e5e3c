// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main wires the OPC UA connectors, the middleware engine, and the
// MQTT cloud adapter into one process, mirroring the teacher's
// cmd/<service>/main.go shape: env-driven config, a shared cancellable
// context, an errgroup.Group running every goroutine, and
// internal/server.StopSignalHandler for orderly shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v7"
	"golang.org/x/sync/errgroup"

	"github.com/absmach/opcua-agent/cloudmqtt"
	"github.com/absmach/opcua-agent/codec"
	agentconfig "github.com/absmach/opcua-agent/config"
	"github.com/absmach/opcua-agent/internal/agentlog"
	"github.com/absmach/opcua-agent/internal/metrics"
	"github.com/absmach/opcua-agent/internal/server"
	"github.com/absmach/opcua-agent/middleware"
	"github.com/absmach/opcua-agent/opcuaadapter"
)

const (
	svcName          = "opcua-agent"
	eventQueueSize   = 1000
	deviceQueueSize  = 1000
	metricsNamespace = "opcua_agent"
	metricsSubsystem = "middleware"
)

func main() {
	var exitCode int
	defer func() { os.Exit(exitCode) }()

	envCfg := agentconfig.Env{}
	if err := env.Parse(&envCfg); err != nil {
		log.Fatalf("failed to load %s environment: %s", svcName, err)
	}

	logger, err := agentlog.New(os.Stdout, envCfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %s", err)
	}

	if err := run(envCfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(fmt.Sprintf("%s terminated: %s", svcName, err))
		exitCode = 1
	}
}

func run(envCfg agentconfig.Env, logger *slog.Logger) error {
	cfg, err := agentconfig.Load(envCfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	payloadCodec, err := buildCodec(cfg.Cloud)
	if err != nil {
		return fmt.Errorf("build payload codec: %w", err)
	}

	cloud := cloudmqtt.NewAdapter(cfg.Cloud, payloadCodec, logger)
	cloudOut, commandsFromCloud, err := cloud.Start(ctx)
	if err != nil {
		return fmt.Errorf("start cloud adapter: %w", err)
	}

	events := make(chan middleware.Event, eventQueueSize)
	deviceOut := make(chan middleware.Event, deviceQueueSize)

	commandSinks, err := startConnectors(ctx, cfg, logger, events)
	if err != nil {
		return fmt.Errorf("start opc ua connectors: %w", err)
	}

	counters := metrics.MakeEventMetrics(metricsNamespace, metricsSubsystem)
	observer := middleware.MultiObserver{
		middleware.NewLoggingObserver(logger),
		middleware.NewMetricsObserver(counters.Received, counters.Dropped, counters.Emitted),
	}

	engine := middleware.NewEngine(
		cfg.Middleware.SourcesTable(),
		cfg.Middleware.SinksTable(),
		cfg.Middleware.DataLayer(),
		logger,
		middleware.WithObserver(observer),
	)

	g.Go(func() error {
		err := engine.Run(ctx, events, cloudOut, commandsFromCloud, deviceOut)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return dispatchDeviceCommands(ctx, deviceOut, commandSinks)
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName)
	})

	return g.Wait()
}

func buildCodec(cfg cloudmqtt.Configuration) (codec.Codec, error) {
	if cfg.GroupSessionPickle == "" {
		return codec.Identity{}, nil
	}
	return codec.NewGroupSession(cfg.GroupSessionPickle)
}

func startConnectors(ctx context.Context, cfg agentconfig.Configuration, logger *slog.Logger, events chan<- middleware.Event) (map[string]chan<- middleware.Update, error) {
	sinks := make(map[string]chan<- middleware.Update, len(cfg.OPCUA.Connections))
	for id, connCfg := range cfg.OPCUA.Connections {
		connector := opcuaadapter.NewConnector(id, connCfg, logger)
		sink, err := connector.Start(ctx, events)
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", id, err)
		}
		sinks[id] = sink
	}
	return sinks, nil
}

// dispatchDeviceCommands routes each routed southbound Update to the OPC UA
// connector named by its channel (the connection id), matching spec's
// "command_sink" fan-out per connection.
func dispatchDeviceCommands(ctx context.Context, deviceOut <-chan middleware.Event, sinks map[string]chan<- middleware.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-deviceOut:
			if !ok {
				return nil
			}
			for _, u := range ev.Updates {
				sink, ok := sinks[u.Channel]
				if !ok {
					continue
				}
				select {
				case sink <- u:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
