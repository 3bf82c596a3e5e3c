// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package metrics builds the go-kit + Prometheus counters the agent exposes,
// adapted from the teacher's internal.MakeMetrics and lora/api/metrics.go.
package metrics

import (
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// EventCounters groups the three counters middleware.MetricsObserver needs
// to track northbound/southbound batch accounting, each labeled by
// "direction".
type EventCounters struct {
	Received *kitprometheus.Counter
	Dropped  *kitprometheus.Counter
	Emitted  *kitprometheus.Counter
}

// MakeEventMetrics builds the batch counters for the middleware engine.
func MakeEventMetrics(namespace, subsystem string) EventCounters {
	return EventCounters{
		Received: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "updates_received_total",
			Help:      "Number of updates received by the middleware engine.",
		}, []string{"direction"}),
		Dropped: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "updates_dropped_total",
			Help:      "Number of updates dropped by routing rules.",
		}, []string{"direction"}),
		Emitted: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_emitted_total",
			Help:      "Number of compacted events emitted northbound.",
		}, []string{"direction"}),
	}
}
