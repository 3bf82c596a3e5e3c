// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package routing implements the address-prefix-scoped override tables that
// steer northbound (sources) and southbound (sinks) traffic.
package routing

import "github.com/absmach/opcua-agent/address"

// Rule is a routing override attached to an address prefix.
type Rule struct {
	Drop       *bool          `yaml:"drop,omitempty"`
	Channel    *string        `yaml:"channel,omitempty"`
	Extensions map[string]any `yaml:"extensions,omitempty"`
}

// Table is a configuration-driven map from address prefixes to override
// rules, keyed by the prefix's canonical Key(). A zero Table has no rules
// and Apply is the identity function.
type Table struct {
	rules map[string]Rule
}

// NewTable builds a Table from rules keyed by address wire form (e.g.
// "a/b"), the shape YAML naturally produces for a map<Address, Rule>
// section. Each key is normalized through address.Parse so that
// differently-escaped renderings of the same address collide correctly.
func NewTable(rules map[string]Rule) Table {
	t := Table{rules: make(map[string]Rule, len(rules))}
	for key, rule := range rules {
		t.rules[address.Parse(key).Key()] = rule
	}
	return t
}

// Update is one observed change carrying routing metadata. It mirrors
// middleware.Update without importing that package, since routing is lower
// in the dependency graph; middleware converts to/from this shape.
type Update struct {
	Address    address.Address
	Channel    string
	Value      any
	Extensions map[string]any
}

// Apply resolves u against the table, walking prefixes of u.Address from
// least to most specific. It returns the updated Update and whether to keep
// it (false means the update was dropped by a matching rule).
func (t Table) Apply(u Update) (Update, bool) {
	matches := t.matchingRules(u.Address)

	if drop := lastNonNilBool(matches); drop != nil && *drop {
		return Update{}, false
	}

	if channel := lastNonNilString(matches); channel != nil {
		u.Channel = *channel
	}

	merged := make(map[string]any, len(u.Extensions))
	for k, v := range u.Extensions {
		merged[k] = v
	}
	for _, rule := range matches {
		for k, v := range rule.Extensions {
			merged[k] = v
		}
	}
	u.Extensions = merged

	return u, true
}

// matchingRules collects the rules for every prefix of addr, from the root
// (least specific) to addr itself (most specific). Prefixes with no
// configured rule are skipped.
func (t Table) matchingRules(addr address.Address) []Rule {
	var matches []Rule
	for i := 0; i <= addr.Len(); i++ {
		prefix := addr.Prefix(i)
		if rule, ok := t.rules[prefix.Key()]; ok {
			matches = append(matches, rule)
		}
	}
	return matches
}

func lastNonNilBool(rules []Rule) *bool {
	var last *bool
	for _, r := range rules {
		if r.Drop != nil {
			last = r.Drop
		}
	}
	return last
}

func lastNonNilString(rules []Rule) *string {
	var last *string
	for _, r := range rules {
		if r.Channel != nil {
			last = r.Channel
		}
	}
	return last
}
