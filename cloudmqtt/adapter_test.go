// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cloudmqtt

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/opcua-agent/codec"
	"github.com/absmach/opcua-agent/middleware"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestCredentialsExplicit(t *testing.T) {
	a := &Adapter{cfg: Configuration{Username: "u", Password: "p"}}
	user, pass := a.credentials()
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)
}

func TestCredentialsDerivedFromIdentity(t *testing.T) {
	a := &Adapter{cfg: Configuration{Device: "device one", Application: "app1", Password: "secret"}}
	user, pass := a.credentials()
	assert.Equal(t, "device%20one@app1", user)
	assert.Equal(t, "secret", pass)
}

func TestHandleCommandParsesWriteTopic(t *testing.T) {
	a := &Adapter{logger: slog.Default()}
	out := make(chan middleware.Event, 1)

	a.handleCommand(fakeMessage{
		topic:   writeTopic,
		payload: []byte(`{"connection":"plc1","value":1.5,"nodeId":"ns=2;s=Foo"}`),
	}, out)

	require.Len(t, out, 1)
	ev := <-out
	require.Len(t, ev.Updates, 1)
	u := ev.Updates[0]
	assert.Equal(t, "plc1", u.Channel)
	assert.Equal(t, []string{"cloud", "commands", "plc1"}, u.Address.Segments())
	assert.Equal(t, "ns=2;s=Foo", u.Extensions["nodeId"])
	assert.Equal(t, 1.5, u.Value)
}

func TestHandleCommandIgnoresOtherTopics(t *testing.T) {
	a := &Adapter{logger: slog.Default()}
	out := make(chan middleware.Event, 1)

	a.handleCommand(fakeMessage{topic: "command/inbox//other", payload: []byte(`{}`)}, out)

	assert.Len(t, out, 0)
}

func TestHandleCommandDropsMalformedPayload(t *testing.T) {
	a := &Adapter{logger: slog.Default()}
	out := make(chan middleware.Event, 1)

	a.handleCommand(fakeMessage{topic: writeTopic, payload: []byte("not json")}, out)

	assert.Len(t, out, 0)
}

func TestRandomClientIDLength(t *testing.T) {
	id := randomClientID()
	assert.Len(t, id, clientIDLength)
}

// fakeToken is a Token that completes immediately with no error.
type fakeToken struct{}

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (fakeToken) Error() error                   { return nil }

// fakePublishClient records the topic and payload of its last Publish call.
// It embeds mqtt.Client so it satisfies the interface without stubbing
// methods publish never calls.
type fakePublishClient struct {
	mqtt.Client
	topic   string
	payload []byte
}

func (c *fakePublishClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.topic = topic
	switch p := payload.(type) {
	case []byte:
		c.payload = p
	case string:
		c.payload = []byte(p)
	}
	return fakeToken{}
}

func TestPublishDoesNotDoubleWrapFeatures(t *testing.T) {
	client := &fakePublishClient{}
	a := &Adapter{logger: slog.Default(), codec: codec.Identity{}, client: client}

	a.publish(middleware.MQTTEvent{
		Channel: "plc1",
		Payload: map[string]any{"features": map[string]any{"x": 1.0}},
	})

	require.Equal(t, "plc1", client.topic)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(client.payload, &decoded))

	features, ok := decoded["features"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, features["x"])
	assert.NotContains(t, features, "features", "payload must not be wrapped in a second features envelope")
}

func TestTLSOrDefault(t *testing.T) {
	var cfg Configuration
	assert.True(t, cfg.TLSOrDefault())

	disabled := false
	cfg.TLS = &disabled
	assert.False(t, cfg.TLSOrDefault())
}
