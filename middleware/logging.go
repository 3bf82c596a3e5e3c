// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"log/slog"
	"time"
)

var _ Observer = (*LoggingObserver)(nil)

// LoggingObserver logs Engine.Run's lifecycle and per-batch throughput, the
// way lora/api/logging.go logs each Service call.
type LoggingObserver struct {
	logger *slog.Logger
	start  time.Time
}

// NewLoggingObserver returns an Observer that logs through logger.
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

func (l *LoggingObserver) RunStarted() {
	l.start = time.Now()
	l.logger.Info("middleware run started")
}

func (l *LoggingObserver) RunStopped(err error) {
	fields := []any{"took", time.Since(l.start)}
	if err != nil {
		l.logger.Warn("middleware run stopped with error", append(fields, "error", err)...)
		return
	}
	l.logger.Info("middleware run stopped", fields...)
}

func (l *LoggingObserver) NorthboundBatch(received, dropped, emitted int) {
	l.logger.Debug("northbound batch processed", "received", received, "dropped", dropped, "emitted", emitted)
}

func (l *LoggingObserver) SouthboundBatch(received, dropped int) {
	l.logger.Debug("southbound batch processed", "received", received, "dropped", dropped)
}
