// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package opcuaadapter bridges one configured OPC UA server connection into
// the middleware engine's event/command streams. Each connection gets its
// own Connector and its own dedicated goroutine driving the subscription
// notification loop, mirroring the original's one-worker-per-session model.
package opcuaadapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/absmach/opcua-agent/address"
	"github.com/absmach/opcua-agent/middleware"
	"github.com/absmach/opcua-agent/opcuaadapter/config"
)

// eventBatchSize bounds how many updates a single callback batches before
// handing them to the event bus, purely a sizing hint for slice
// preallocation.
const eventBatchSize = 16

// sessionHandle guards the live client used by the command-write goroutine
// (a read lock held for the duration of each Write call); set takes the
// write lock. The notification loop is handed the client directly and does
// not go through the handle. Mirrors the original's Arc<RwLock<Session>>.
type sessionHandle struct {
	mu     sync.RWMutex
	client *opcua.Client
}

func (h *sessionHandle) set(c *opcua.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.client = c
}

func (h *sessionHandle) withClient(fn func(*opcua.Client) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.client == nil {
		return fmt.Errorf("opcuaadapter: session not established")
	}
	return fn(h.client)
}

// monitoredNode is a node under active subscription, keyed by the client
// handle assigned to its monitored item so data-change notifications can be
// mapped back to an address and alias.
type monitoredNode struct {
	subscription string
	nodeID       string
	alias        string
}

// Connector owns one configured OPC UA connection.
type Connector struct {
	id     string
	cfg    config.Connection
	logger *slog.Logger

	session *sessionHandle

	mu    sync.Mutex
	nodes map[uint32]monitoredNode
}

// NewConnector builds a Connector for the connection named id.
func NewConnector(id string, cfg config.Connection, logger *slog.Logger) *Connector {
	return &Connector{
		id:      id,
		cfg:     cfg,
		logger:  logger.With("connection", id),
		session: &sessionHandle{},
		nodes:   map[uint32]monitoredNode{},
	}
}

// Start connects to the configured endpoint, establishes subscriptions, and
// spawns the dedicated worker goroutine driving the notification loop. It
// returns a command sink accepting routed Updates to apply as OPC UA writes;
// the sink is serviced by its own goroutine for the lifetime of ctx.
func (c *Connector) Start(ctx context.Context, eventTx chan<- middleware.Event) (chan<- middleware.Update, error) {
	client, err := opcua.NewClient(c.cfg.URL, c.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcuaadapter: build client for %s: %w", c.id, err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcuaadapter: connect %s: %w", c.id, err)
	}
	c.session.set(client)

	c.emit(ctx, eventTx, []middleware.Update{connectionStateUpdate(c.id, true, nil)})

	notifyCh := make(chan *opcua.PublishNotificationData, 1000)
	subs, err := c.subscribeAll(ctx, client, notifyCh, eventTx)
	if err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("opcuaadapter: subscribe %s: %w", c.id, err)
	}

	commandSink := make(chan middleware.Update)

	go c.runNotificationLoop(ctx, client, subs, notifyCh, eventTx)
	go c.runCommandLoop(ctx, commandSink)

	return commandSink, nil
}

func (c *Connector) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.ApplicationName("opcua-agent"),
		opcua.ApplicationURI("urn:opcua-agent"),
		opcua.SecurityPolicy(c.cfg.SecurityPolicy),
		opcua.SecurityModeString(string(c.cfg.SecurityMode)),
		opcua.AutoReconnect(true),
		opcua.SessionTimeout(c.cfg.SessionTimeoutOrDefault()),
	}
	if c.cfg.AutoAcceptServerCertificate {
		opts = append(opts, opcua.AutoAcceptServerCerts(true))
	}
	if c.cfg.CreateSampleKeypair {
		opts = append(opts, opcua.GenerateCert("", 2048, 0))
	}
	if c.cfg.Credentials.Anonymous() {
		opts = append(opts, opcua.AuthAnonymous())
	} else {
		opts = append(opts, opcua.AuthUsername(c.cfg.Credentials.Username, c.cfg.Credentials.Password))
	}
	return opts
}

// runNotificationLoop drives the long-lived subscription loop for the
// lifetime of ctx. Returning from this function is treated as the session
// reaching a terminal, Closed state: the outbound channel is signaled closed
// via a final synthetic update, matching spec's state machine.
func (c *Connector) runNotificationLoop(ctx context.Context, client *opcua.Client, subs []*opcua.Subscription, notifyCh chan *opcua.PublishNotificationData, eventTx chan<- middleware.Event) {
	defer func() {
		c.logger.Warn("session loop exited")
		c.emit(ctx, eventTx, c.closedUpdates())
		_ = client.Close(ctx)
	}()

	for _, sub := range subs {
		go sub.Run(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-notifyCh:
			if !ok {
				return
			}
			if res.Error != nil {
				c.logger.Warn("subscription notification error", "error", res.Error)
				continue
			}
			c.handleNotification(ctx, res, eventTx)
		}
	}
}

func (c *Connector) handleNotification(ctx context.Context, res *opcua.PublishNotificationData, eventTx chan<- middleware.Event) {
	change, ok := res.Value.(*ua.DataChangeNotification)
	if !ok {
		return
	}

	updates := make([]middleware.Update, 0, eventBatchSize)
	c.mu.Lock()
	for _, item := range change.MonitoredItems {
		node, ok := c.nodes[item.ClientHandle]
		if !ok {
			continue
		}
		updates = append(updates, dataChangeUpdate(c.id, node, item.Value))
	}
	c.mu.Unlock()

	if len(updates) > 0 {
		c.emit(ctx, eventTx, updates)
	}
}

// closedUpdates synthesizes one subscribed:false update per node the
// connector last knew about, plus the terminal connection-state update.
func (c *Connector) closedUpdates() []middleware.Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	closed := ua.StatusBadConnectionClosed
	updates := make([]middleware.Update, 0, len(c.nodes)+1)
	updates = append(updates, connectionStateUpdate(c.id, false, &closed))
	for _, node := range c.nodes {
		updates = append(updates, subscriptionFailedUpdate(c.id, node.subscription, node.nodeID, closed))
	}
	return updates
}

func (c *Connector) emit(ctx context.Context, eventTx chan<- middleware.Event, updates []middleware.Update) {
	if len(updates) == 0 {
		return
	}
	select {
	case eventTx <- middleware.Event{Updates: updates}:
	case <-ctx.Done():
	default:
		c.logger.Warn("event bus full, dropping batch", "size", len(updates))
	}
}

// runCommandLoop services routed command writes for the lifetime of ctx or
// until sink is closed by the caller.
func (c *Connector) runCommandLoop(ctx context.Context, sink <-chan middleware.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-sink:
			if !ok {
				return
			}
			c.handleCommand(u)
		}
	}
}

func (c *Connector) handleCommand(u middleware.Update) {
	nodeID := commandNodeID(u)
	if nodeID == "" {
		c.logger.Warn("command missing nodeId", "address", u.Address.String())
		return
	}

	id, err := ua.ParseNodeID(nodeID)
	if err != nil {
		c.logger.Warn("invalid nodeId in command", "nodeId", nodeID, "error", err)
		return
	}

	variant := projectValue(u.Value)

	err = c.session.withClient(func(client *opcua.Client) error {
		req := &ua.WriteRequest{
			NodesToWrite: []*ua.WriteValue{
				{
					NodeID:      id,
					AttributeID: ua.AttributeIDValue,
					Value: &ua.DataValue{
						EncodingMask: ua.DataValueValue,
						Value:        variant,
					},
				},
			},
		}
		resp, err := client.Write(context.Background(), req)
		if err != nil {
			return err
		}
		for _, code := range resp.Results {
			if !code.IsGood() {
				return fmt.Errorf("write rejected: %s", code.Error())
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("command write failed", "nodeId", nodeID, "error", err)
	}
}

func commandNodeID(u middleware.Update) string {
	if v, ok := u.Extensions["nodeId"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if last, ok := u.Address.Last(); ok {
		return last
	}
	return ""
}

func addr(parts ...string) address.Address {
	return address.New(parts...)
}
