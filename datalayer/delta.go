// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package datalayer

var _ Layer = (*Delta)(nil)

// Delta is the data layer based on the channel/feature model that retains
// no state across calls: each input batch builds a local compacted map and
// emits one event per touched channel containing only the features touched
// in that batch.
type Delta struct{}

// NewDelta returns a stateless Delta data layer.
func NewDelta() *Delta {
	return &Delta{}
}

// Update implements Layer.
func (d *Delta) Update(updates []Update) []Event {
	order := make([]string, 0, len(updates))
	compacted := make(map[string]map[string]any, len(updates))

	for _, u := range updates {
		f, ok := feature(u)
		if !ok {
			continue
		}

		features, seen := compacted[u.Channel]
		if !seen {
			features = map[string]any{}
			compacted[u.Channel] = features
			order = append(order, u.Channel)
		}
		features[f] = u.Value
	}

	events := make([]Event, 0, len(order))
	for _, channel := range order {
		events = append(events, Event{
			Channel: channel,
			Payload: map[string]any{"features": compacted[channel]},
		})
	}
	return events
}
