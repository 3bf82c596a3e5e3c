// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package datalayer

import "sync"

var _ Layer = (*FullState)(nil)

// FullState is the data layer based on the channel/feature model that
// retains a per-channel features map across calls: every touched channel
// emits its entire retained map, not just the features touched in the
// current batch. FullState is single-owner inside middleware.Engine, but
// the mutex keeps it safe if ever shared, matching the original's
// channel-never-destroyed lifecycle.
type FullState struct {
	mu       sync.Mutex
	channels map[string]map[string]any
}

// NewFullState returns a FullState data layer with no retained channels.
func NewFullState() *FullState {
	return &FullState{channels: map[string]map[string]any{}}
}

// Update implements Layer.
func (f *FullState) Update(updates []Update) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	order := make([]string, 0, len(updates))
	touched := make(map[string]bool, len(updates))

	for _, u := range updates {
		feat, ok := feature(u)
		if !ok {
			continue
		}

		features, exists := f.channels[u.Channel]
		if !exists {
			features = map[string]any{}
			f.channels[u.Channel] = features
		}
		features[feat] = u.Value

		if !touched[u.Channel] {
			touched[u.Channel] = true
			order = append(order, u.Channel)
		}
	}

	events := make([]Event, 0, len(order))
	for _, channel := range order {
		snapshot := make(map[string]any, len(f.channels[channel]))
		for k, v := range f.channels[channel] {
			snapshot[k] = v
		}
		events = append(events, Event{Channel: channel, Payload: map[string]any{"features": snapshot}})
	}
	return events
}
