// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package routing_test

import (
	"testing"

	"github.com/absmach/opcua-agent/address"
	"github.com/absmach/opcua-agent/routing"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestApplyNoRules(t *testing.T) {
	table := routing.NewTable(nil)
	u := routing.Update{Address: address.New("a", "b", "x"), Channel: "ch1", Value: 1}

	out, keep := table.Apply(u)
	assert.True(t, keep)
	assert.Equal(t, "ch1", out.Channel)
}

func TestChannelOverrideByLongestPrefix(t *testing.T) {
	table := routing.NewTable(map[string]routing.Rule{
		"a":   {Channel: ptr("ch-A")},
		"a/b": {Channel: ptr("ch-B")},
	})

	out, keep := table.Apply(routing.Update{Address: address.New("a", "b", "x"), Channel: "orig", Value: 5})
	assert.True(t, keep)
	assert.Equal(t, "ch-B", out.Channel)
}

func TestDropBySpecificPrefix(t *testing.T) {
	table := routing.NewTable(map[string]routing.Rule{
		"a":   {Channel: ptr("c")},
		"a/b": {Drop: ptr(true)},
	})

	_, keep := table.Apply(routing.Update{Address: address.New("a", "b", "x"), Channel: "orig", Value: 1})
	assert.False(t, keep)

	out, keep := table.Apply(routing.Update{Address: address.New("a", "c", "y"), Channel: "orig", Value: 2})
	assert.True(t, keep)
	assert.Equal(t, "c", out.Channel)
}

func TestDropFlippedBackByLessSpecificButLaterLogicalOverride(t *testing.T) {
	// the most specific rule that sets drop wins: the root sets drop=true,
	// "a" sets drop=false, and "a/b" leaves drop unset, so "a/b/x" is kept.
	table := routing.NewTable(map[string]routing.Rule{
		"":    {Drop: ptr(true)},
		"a":   {Drop: ptr(false)},
		"a/b": {},
	})

	_, keep := table.Apply(routing.Update{Address: address.New("a", "b", "x"), Channel: "c", Value: 1})
	assert.True(t, keep, "most specific non-nil drop (false, set on \"a\") wins over the root's true")
}

func TestExtensionsAccumulateLeastToMostSpecific(t *testing.T) {
	table := routing.NewTable(map[string]routing.Rule{
		"a":   {Extensions: map[string]any{"tag": "outer", "only-outer": 1}},
		"a/b": {Extensions: map[string]any{"tag": "inner"}},
	})

	out, keep := table.Apply(routing.Update{
		Address:    address.New("a", "b", "x"),
		Channel:    "c",
		Extensions: map[string]any{"own": true},
	})
	assert.True(t, keep)
	assert.Equal(t, "inner", out.Extensions["tag"])
	assert.Equal(t, 1, out.Extensions["only-outer"])
	assert.Equal(t, true, out.Extensions["own"])
}

func TestFeatureExtensionPreserved(t *testing.T) {
	table := routing.NewTable(nil)
	out, keep := table.Apply(routing.Update{
		Address:    address.New("sensor", "01"),
		Channel:    "ch",
		Value:      22,
		Extensions: map[string]any{"feature": "temp"},
	})
	assert.True(t, keep)
	assert.Equal(t, "temp", out.Extensions["feature"])
}

func TestApplyIsIdempotent(t *testing.T) {
	table := routing.NewTable(map[string]routing.Rule{
		"a": {Channel: ptr("ch-A"), Extensions: map[string]any{"k": "v"}},
	})

	u := routing.Update{Address: address.New("a", "b"), Channel: "orig"}
	once, keep1 := table.Apply(u)
	require := assert.New(t)
	require.True(keep1)

	twice, keep2 := table.Apply(once)
	require.True(keep2)
	require.Equal(once.Channel, twice.Channel)
	require.Equal(once.Extensions, twice.Extensions)
}

func TestRootRuleMatchesZeroLengthAddress(t *testing.T) {
	table := routing.NewTable(map[string]routing.Rule{
		"": {Drop: ptr(true)},
	})

	_, keep := table.Apply(routing.Update{Address: address.New(), Channel: "c"})
	assert.False(t, keep)
}
