// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package opcuaadapter

import (
	"context"
	"fmt"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/absmach/opcua-agent/middleware"
	"github.com/absmach/opcua-agent/opcuaadapter/config"
)

// subscribeAll creates one OPC UA subscription per configured subscription
// block and monitors every node in it. Nodes that fail to subscribe produce
// a synthetic subscribed:false update immediately; successful nodes produce
// no event until their first sample arrives.
func (c *Connector) subscribeAll(ctx context.Context, client *opcua.Client, notifyCh chan *opcua.PublishNotificationData, eventTx chan<- middleware.Event) ([]*opcua.Subscription, error) {
	subs := make([]*opcua.Subscription, 0, len(c.cfg.Subscriptions))

	var handle uint32
	for name, subCfg := range c.cfg.Subscriptions {
		sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
			Interval: subCfg.PublishIntervalOrDefault(),
		}, notifyCh)
		if err != nil {
			return nil, fmt.Errorf("create subscription %s: %w", name, err)
		}
		subs = append(subs, sub)

		requests := make([]*ua.MonitoredItemCreateRequest, 0, len(subCfg.Nodes))
		pending := make([]monitoredNode, 0, len(subCfg.Nodes))
		for _, node := range subCfg.Nodes {
			id, err := ua.ParseNodeID(node.ID)
			if err != nil {
				c.emit(ctx, eventTx, []middleware.Update{
					subscriptionFailedUpdate(c.id, name, node.ID, ua.StatusBadNodeIDInvalid),
				})
				continue
			}
			handle++
			requests = append(requests, opcua.NewMonitoredItemCreateRequestWithDefaults(id, ua.AttributeIDValue, handle))
			pending = append(pending, monitoredNode{subscription: name, nodeID: node.ID, alias: node.Alias})
		}

		if len(requests) == 0 {
			continue
		}

		res, err := sub.Monitor(ctx, timestampsToReturn(subCfg.TimestampsOrDefault()), requests...)
		if err != nil {
			return nil, fmt.Errorf("monitor nodes for subscription %s: %w", name, err)
		}

		var failed []middleware.Update
		c.mu.Lock()
		for i, result := range res.Results {
			req := requests[i]
			node := pending[i]
			if result.StatusCode.IsGood() {
				c.nodes[req.RequestedParameters.ClientHandle] = node
				continue
			}
			failed = append(failed, subscriptionFailedUpdate(c.id, name, node.nodeID, result.StatusCode))
		}
		c.mu.Unlock()
		c.emit(ctx, eventTx, failed)
	}

	return subs, nil
}

func timestampsToReturn(t config.Timestamps) ua.TimestampsToReturn {
	switch t {
	case config.TimestampsNone:
		return ua.TimestampsToReturnNeither
	case config.TimestampsServer:
		return ua.TimestampsToReturnServer
	case config.TimestampsBoth:
		return ua.TimestampsToReturnBoth
	default:
		return ua.TimestampsToReturnSource
	}
}
