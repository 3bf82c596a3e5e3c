// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package datalayer implements the feature data layer: the per-channel
// stateful compactor that folds bursts of value updates into at most one
// outbound MQTT event per channel.
package datalayer

import "github.com/absmach/opcua-agent/address"

// Update is the subset of middleware.Update the data layer needs to derive
// a feature name and a value. middleware converts its own Update into this
// struct before handing a batch to a Layer.
type Update struct {
	Address    address.Address
	Channel    string
	Value      any
	Extensions map[string]any
}

// Event is a compacted outbound MQTT event: payload is always
// {"features": {...}} once built by a Layer.
type Event struct {
	Channel string
	Payload map[string]any
}

// Layer reduces a batch of updates into at most one event per channel
// touched by the batch. Two implementations exist (Delta, FullState);
// selection is a deployment choice fixed once at startup and must not leak
// across calls.
type Layer interface {
	Update(updates []Update) []Event
}

// feature derives the feature name for an update: the extensions["feature"]
// string if present, otherwise the address's last segment, otherwise the
// update has no resolvable feature and is discarded by the data layer.
func feature(u Update) (string, bool) {
	if f, ok := u.Extensions["feature"]; ok {
		if s, ok := f.(string); ok {
			return s, true
		}
	}
	return u.Address.Last()
}
