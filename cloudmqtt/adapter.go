// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cloudmqtt

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/absmach/opcua-agent/address"
	"github.com/absmach/opcua-agent/codec"
	"github.com/absmach/opcua-agent/middleware"
)

const (
	commandTopic = "command/inbox//#"
	writeTopic   = "command/inbox//write"

	clientIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	clientIDLength   = 20

	// eventQueueSize mirrors the original's bounded futures::channel::mpsc
	// queues between the middleware and the broker session.
	eventQueueSize   = 1000
	commandQueueSize = 1000
)

// Adapter owns one long-lived MQTT broker session used both to publish
// compacted telemetry and to receive inbound write commands.
type Adapter struct {
	cfg    Configuration
	codec  codec.Codec
	logger *slog.Logger

	client mqtt.Client
}

// NewAdapter builds an Adapter. codec defaults to codec.Identity{} when nil.
func NewAdapter(cfg Configuration, c codec.Codec, logger *slog.Logger) *Adapter {
	if c == nil {
		c = codec.Identity{}
	}
	return &Adapter{cfg: cfg, codec: c, logger: logger}
}

// Start opens the broker session and returns an event sink to publish
// compacted MQTT events and a stream of command events decoded from
// inbound write topics. The session is disconnected and the command stream
// closed when ctx is canceled or the caller closes the event sink; the
// event sink itself is closed by the caller, never by the Adapter.
func (a *Adapter) Start(ctx context.Context) (chan<- middleware.MQTTEvent, <-chan middleware.Event, error) {
	commandsOut := make(chan middleware.Event, commandQueueSize)

	opts, err := a.buildOptions(commandsOut)
	if err != nil {
		return nil, nil, fmt.Errorf("cloudmqtt: build options: %w", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("cloudmqtt: connect: %w", err)
	}
	a.client = client

	eventsIn := make(chan middleware.MQTTEvent, eventQueueSize)

	go a.runPublishLoop(ctx, eventsIn, commandsOut)

	return eventsIn, commandsOut, nil
}

func (a *Adapter) buildOptions(commandsOut chan<- middleware.Event) (*mqtt.ClientOptions, error) {
	scheme := "tcp"
	opts := mqtt.NewClientOptions()

	if a.cfg.TLSOrDefault() {
		scheme = "ssl"
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			return nil, fmt.Errorf("load platform trust store: %w", err)
		}
		opts.SetTLSConfig(&tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12})
	}

	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, a.cfg.Host, a.cfg.Port))

	clientID := a.cfg.ClientID
	if clientID == "" {
		clientID = randomClientID()
	}
	opts.SetClientID(clientID)

	username, password := a.credentials()
	opts.SetUsername(username)
	opts.SetPassword(password)

	opts.SetCleanSession(true)
	if a.cfg.KeepAlive > 0 {
		opts.SetKeepAlive(a.cfg.KeepAlive)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		a.onConnect(client, commandsOut)
	})

	return opts, nil
}

func (a *Adapter) credentials() (string, string) {
	if a.cfg.ExplicitCredentials() {
		return a.cfg.Username, a.cfg.Password
	}
	// Every byte of the device name that is not an ASCII letter or digit is
	// percent-encoded.
	var device strings.Builder
	for i := 0; i < len(a.cfg.Device); i++ {
		b := a.cfg.Device[i]
		if ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9') {
			device.WriteByte(b)
		} else {
			fmt.Fprintf(&device, "%%%02X", b)
		}
	}
	return device.String() + "@" + a.cfg.Application, a.cfg.Password
}

// onConnect subscribes to the command inbox. Clean session is always true,
// so every ConnAck carries session_present=false; the original resubscribes
// on every such ConnAck "to be safe", which here is simply every connect.
func (a *Adapter) onConnect(client mqtt.Client, commandsOut chan<- middleware.Event) {
	token := client.Subscribe(commandTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		a.handleCommand(msg, commandsOut)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		a.logger.Warn("failed to subscribe to commands", "error", err)
	}
}

type writeCommand struct {
	Connection string `json:"connection"`
	Value      any    `json:"value"`
	NodeID     string `json:"nodeId"`
}

func (a *Adapter) handleCommand(msg mqtt.Message, commandsOut chan<- middleware.Event) {
	if msg.Topic() != writeTopic {
		a.logger.Debug("ignoring unrecognized command topic", "topic", msg.Topic())
		return
	}

	var cmd writeCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		a.logger.Info("invalid command payload", "error", err)
		return
	}

	update := middleware.New(address.New("cloud", "commands", cmd.Connection), cmd.Connection, cmd.Value)
	update.Extensions["nodeId"] = cmd.NodeID

	select {
	case commandsOut <- middleware.Event{Updates: []middleware.Update{update}}:
	default:
		a.logger.Warn("command queue full, dropping command", "connection", cmd.Connection)
	}
}

func (a *Adapter) runPublishLoop(ctx context.Context, eventsIn <-chan middleware.MQTTEvent, commandsOut chan middleware.Event) {
	defer close(commandsOut)
	defer a.client.Disconnect(250)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-eventsIn:
			if !ok {
				return
			}
			a.publish(ev)
		}
	}
}

// publish serializes ev.Payload as-is: the data layer already shapes it as
// {"features": {...}} (datalayer.Delta/FullState), so this must not re-wrap
// it in another "features" envelope.
func (a *Adapter) publish(ev middleware.MQTTEvent) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		a.logger.Warn("failed to marshal event", "channel", ev.Channel, "error", err)
		return
	}

	payload, err = a.codec.Encode(payload)
	if err != nil {
		a.logger.Warn("failed to encode payload", "channel", ev.Channel, "error", err)
		return
	}

	// Publish failures are only logged here, not surfaced to the event
	// sink's caller; see DESIGN.md for why.
	token := a.client.Publish(ev.Channel, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		a.logger.Warn("publish failed", "channel", ev.Channel, "error", err)
	}
}

func randomClientID() string {
	buf := make([]byte, clientIDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read failing means the system entropy source is
		// broken; fall back to a fixed id rather than panicking.
		return "opcua-agent"
	}
	b := make([]byte, clientIDLength)
	for i, v := range buf {
		b[i] = clientIDAlphabet[int(v)%len(clientIDAlphabet)]
	}
	return string(b)
}
