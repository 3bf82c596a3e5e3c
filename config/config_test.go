// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/opcua-agent/config"
	"github.com/absmach/opcua-agent/datalayer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
opcua:
  connections:
    plc1:
      url: opc.tcp://localhost:4840
      securityPolicy: None
      securityMode: none
      subscriptions:
        sub1:
          nodes:
            - "ns=2;s=Foo"
middleware:
  sources:
    "opcua/plc1/subscriptions/sub1/Foo":
      channel: telemetry
  sinks: {}
  mode: fullState
cloud:
  host: broker.example.com
  port: 8883
  application: app1
  device: device1
  password: secret
`

func TestLoadParsesFullDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "opc.tcp://localhost:4840", cfg.OPCUA.Connections["plc1"].URL)
	assert.Equal(t, "broker.example.com", cfg.Cloud.Host)
	assert.Equal(t, config.DataLayerFullState, cfg.Middleware.Mode)

	_, isFullState := cfg.Middleware.DataLayer().(*datalayer.FullState)
	assert.True(t, isFullState)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestMiddlewareDefaultsToDelta(t *testing.T) {
	var m config.Middleware
	_, isDelta := m.DataLayer().(*datalayer.Delta)
	assert.True(t, isDelta)
}
