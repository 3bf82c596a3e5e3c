// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package config loads the agent's on-disk YAML configuration and the
// handful of environment variables that locate it, mirroring the original's
// serde_yaml::from_reader(File::open(CONFIG_FILE)) startup sequence.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/absmach/opcua-agent/cloudmqtt"
	"github.com/absmach/opcua-agent/datalayer"
	opcuaconfig "github.com/absmach/opcua-agent/opcuaadapter/config"
	"github.com/absmach/opcua-agent/routing"
)

// Env is the environment-variable surface every teacher service exposes via
// internal/env: where to find the config file and PKI material, and at what
// level to log.
type Env struct {
	ConfigFile string `env:"CONFIG_FILE" envDefault:"/etc/opcua-agent/config.yaml"`
	PKIDir     string `env:"PKI_DIR" envDefault:"/tmp/opcua-agent/pki"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// DataLayerMode selects the feature data layer's compaction strategy.
type DataLayerMode string

const (
	DataLayerDelta     DataLayerMode = "delta"
	DataLayerFullState DataLayerMode = "fullState"
)

// Middleware is the middleware section of the YAML file: the source and
// sink routing tables, plus the compaction mode.
type Middleware struct {
	Sources map[string]routing.Rule `yaml:"sources"`
	Sinks   map[string]routing.Rule `yaml:"sinks"`
	Mode    DataLayerMode           `yaml:"mode"`
}

// SourcesTable builds the northbound routing table.
func (m Middleware) SourcesTable() routing.Table {
	return routing.NewTable(m.Sources)
}

// SinksTable builds the southbound routing table.
func (m Middleware) SinksTable() routing.Table {
	return routing.NewTable(m.Sinks)
}

// DataLayer builds the configured feature data layer, defaulting to Delta.
func (m Middleware) DataLayer() datalayer.Layer {
	if m.Mode == DataLayerFullState {
		return datalayer.NewFullState()
	}
	return datalayer.NewDelta()
}

// Configuration is the top-level shape of the agent's YAML file.
type Configuration struct {
	OPCUA      opcuaconfig.Configuration `yaml:"opcua"`
	Middleware Middleware                `yaml:"middleware"`
	Cloud      cloudmqtt.Configuration   `yaml:"cloud"`
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (Configuration, error) {
	var cfg Configuration

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}
