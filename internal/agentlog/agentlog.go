// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package agentlog builds the agent's structured logger, adapted from the
// teacher's services constructing a *slog.Logger from a LOG_LEVEL env var
// at startup (see cmd/lora/main.go's mglog.New(os.Stdout, cfg.LogLevel)).
package agentlog

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// New builds a JSON *slog.Logger writing to out at the given level
// ("debug", "info", "warn", or "error"; case-insensitive).
func New(out io.Writer, level string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("agentlog: unknown log level %q", level)
	}
}
