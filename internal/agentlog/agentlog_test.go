// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package agentlog_test

import (
	"bytes"
	"testing"

	"github.com/absmach/opcua-agent/internal/agentlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := agentlog.New(&buf, "warn")
	require.NoError(t, err)

	logger.Info("should not appear")
	assert.Empty(t, buf.String())

	logger.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestNewDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := agentlog.New(&buf, "")
	require.NoError(t, err)

	logger.Info("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := agentlog.New(&bytes.Buffer{}, "verbose")
	assert.Error(t, err)
}
