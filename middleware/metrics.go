// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import "github.com/go-kit/kit/metrics"

var _ Observer = (*MetricsObserver)(nil)

// MetricsObserver tracks batch counters the way lora/api/metrics.go tracks
// request counts, with "direction" (northbound/southbound) in place of
// "method".
type MetricsObserver struct {
	received metrics.Counter
	dropped  metrics.Counter
	emitted  metrics.Counter
}

// NewMetricsObserver returns an Observer backed by the given counters.
func NewMetricsObserver(received, dropped, emitted metrics.Counter) *MetricsObserver {
	return &MetricsObserver{received: received, dropped: dropped, emitted: emitted}
}

func (m *MetricsObserver) RunStarted()      {}
func (m *MetricsObserver) RunStopped(error) {}

func (m *MetricsObserver) NorthboundBatch(received, dropped, emitted int) {
	m.received.With("direction", "northbound").Add(float64(received))
	m.dropped.With("direction", "northbound").Add(float64(dropped))
	m.emitted.With("direction", "northbound").Add(float64(emitted))
}

func (m *MetricsObserver) SouthboundBatch(received, dropped int) {
	m.received.With("direction", "southbound").Add(float64(received))
	m.dropped.With("direction", "southbound").Add(float64(dropped))
}
