// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package cloudmqtt implements the cloud-facing MQTT adapter: it publishes
// compacted feature events and consumes inbound write commands over one
// long-lived eclipse/paho.mqtt.golang session, mirroring the original's
// MqttCloudConnector.
package cloudmqtt

import "time"

// Configuration is the cloud section of the agent's YAML file.
type Configuration struct {
	ClientID           string        `yaml:"clientId"`
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	TLS                *bool         `yaml:"tls"`
	Application        string        `yaml:"application"`
	Device             string        `yaml:"device"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	KeepAlive          time.Duration `yaml:"keepAlive"`
	GroupSessionPickle string        `yaml:"groupSessionPickle"`
}

// TLSOrDefault returns the configured TLS flag, defaulting to on.
func (c Configuration) TLSOrDefault() bool {
	if c.TLS == nil {
		return true
	}
	return *c.TLS
}

// ExplicitCredentials reports whether a username/password pair was
// configured directly, as opposed to being derived from device+application.
func (c Configuration) ExplicitCredentials() bool {
	return c.Username != ""
}
