// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package config holds the YAML-driven OPC UA connection and subscription
// configuration, mirrored from the original opcua/config.rs.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the opcua.connections section of the agent's YAML file.
type Configuration struct {
	Connections map[string]Connection `yaml:"connections"`
}

// SecurityMode is the OPC UA message security mode.
type SecurityMode string

const (
	SecurityModeNone           SecurityMode = "none"
	SecurityModeSign           SecurityMode = "sign"
	SecurityModeSignAndEncrypt SecurityMode = "signAndEncrypt"
)

// Validate rejects any mode outside {none, sign, signAndEncrypt}.
func (m SecurityMode) Validate() error {
	switch m {
	case SecurityModeNone, SecurityModeSign, SecurityModeSignAndEncrypt:
		return nil
	default:
		return fmt.Errorf("invalid security mode %q: must be none, sign, or signAndEncrypt", m)
	}
}

// Connection describes one configured OPC UA server endpoint.
type Connection struct {
	URL                          string                  `yaml:"url"`
	SecurityPolicy               string                  `yaml:"securityPolicy"`
	SecurityMode                 SecurityMode            `yaml:"securityMode"`
	AutoAcceptServerCertificate  bool                    `yaml:"autoAcceptServerCertificate"`
	CreateSampleKeypair          bool                    `yaml:"createSampleKeypair"`
	SessionTimeout               time.Duration           `yaml:"sessionTimeout"`
	SessionRetryLimit            int                     `yaml:"sessionRetryLimit"`
	Credentials                  Credentials             `yaml:"credentials"`
	Subscriptions                map[string]Subscription `yaml:"subscriptions"`
}

// SessionTimeoutOrDefault returns the configured session timeout, or 15s.
func (c Connection) SessionTimeoutOrDefault() time.Duration {
	if c.SessionTimeout <= 0 {
		return 15 * time.Second
	}
	return c.SessionTimeout
}

// SessionRetryLimitOrDefault returns the configured retry limit, or 3.
func (c Connection) SessionRetryLimitOrDefault() int {
	if c.SessionRetryLimit <= 0 {
		return 3
	}
	return c.SessionRetryLimit
}

// Credentials is either anonymous (the zero value) or a username/password
// pair.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Anonymous reports whether no credentials were configured.
func (c Credentials) Anonymous() bool {
	return c.Username == "" && c.Password == ""
}

// Timestamps selects which DataValue timestamps the server should return.
type Timestamps string

const (
	TimestampsNone   Timestamps = "None"
	TimestampsSource Timestamps = "Source"
	TimestampsServer Timestamps = "Server"
	TimestampsBoth   Timestamps = "Both"
)

// Subscription describes one OPC UA subscription: its publish interval and
// the nodes it monitors.
type Subscription struct {
	PublishInterval time.Duration `yaml:"publishInterval"`
	Nodes           []Node        `yaml:"nodes"`
	Timestamps      Timestamps    `yaml:"timestamps"`
}

// PublishIntervalOrDefault returns the configured interval, or 1s.
func (s Subscription) PublishIntervalOrDefault() time.Duration {
	if s.PublishInterval <= 0 {
		return time.Second
	}
	return s.PublishInterval
}

// TimestampsOrDefault returns the configured timestamp policy, or Source.
func (s Subscription) TimestampsOrDefault() Timestamps {
	if s.Timestamps == "" {
		return TimestampsSource
	}
	return s.Timestamps
}

// Node is either a bare node-id string or a {id, alias} object; the YAML
// config accepts both forms (untagged union in the original).
type Node struct {
	ID    string `yaml:"id"`
	Alias string `yaml:"alias,omitempty"`
}

// UnmarshalYAML accepts either a scalar string (the node id) or a mapping
// with "id" and optional "alias" fields.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		n.ID = s
		return nil
	}

	type nodeAlias Node
	var full nodeAlias
	if err := value.Decode(&full); err != nil {
		return err
	}
	*n = Node(full)
	return nil
}
