// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package opcuaadapter

import (
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/absmach/opcua-agent/middleware"
	"github.com/absmach/opcua-agent/opcuaadapter/project"
)

// connectionStateUpdate reports the connector's own health at
// opcua/<conn>/connection, matching the original's synthetic "connection"
// feature.
func connectionStateUpdate(conn string, connected bool, cause *ua.StatusCode) middleware.Update {
	props := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"connected": connected,
	}
	if cause != nil {
		props["cause"] = cause.Error()
	}
	return middleware.New(addr("opcua", conn, "connection"), conn, props)
}

// subscriptionFailedUpdate reports a monitored item that could not be
// subscribed (or was lost when the session closed) at
// opcua/<conn>/subscriptions/<sub>/<node>.
func subscriptionFailedUpdate(conn, sub, nodeID string, status ua.StatusCode) middleware.Update {
	return middleware.New(
		addr("opcua", conn, "subscriptions", sub, nodeID),
		conn,
		map[string]any{
			"subscribed": false,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"status":     status.Error(),
		},
	)
}

// dataChangeUpdate projects one reported DataValue into an Update at
// opcua/<conn>/subscriptions/<sub>/<node>.
func dataChangeUpdate(conn string, node monitoredNode, dv *ua.DataValue) middleware.Update {
	feature := node.alias
	if feature == "" {
		feature = node.nodeID
	}
	u := middleware.New(addr("opcua", conn, "subscriptions", node.subscription, feature), conn, project.ToJSON(dv))
	u.Extensions = map[string]any{"nodeId": node.nodeID}
	return u
}

// projectValue converts a canonical JSON command value (decoded from an
// inbound MQTT payload) into the OPC UA Variant to write.
func projectValue(v any) *ua.Variant {
	return project.ToVariant(v)
}
