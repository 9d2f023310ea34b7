// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "github.com/Thermoquad/ergostat/pkg/session"

// Broker topics.
const (
	TopicGear  = "gear"
	TopicState = "state"
)

// GearEvent is published on TopicGear whenever the gear changes.
type GearEvent struct {
	Gear int `json:"gear"`
}

// Subscribe returns a channel receiving events for topics: GearEvent on
// TopicGear and session.Snapshot on TopicState. Slow subscribers miss events
// rather than stall the bridge.
func (b *Bridge) Subscribe(topics ...string) chan interface{} {
	return b.broker.Sub(topics...)
}

// Unsubscribe detaches ch from every topic; the broker closes it once
// detached. The subscriber must keep draining ch until it is closed.
func (b *Bridge) Unsubscribe(ch chan interface{}) {
	b.broker.Unsub(ch)
}

func (b *Bridge) publishGear(gear int) {
	b.broker.TryPub(GearEvent{Gear: gear}, TopicGear)
}

func (b *Bridge) publishState() {
	b.broker.TryPub(b.state.Snapshot(), TopicState)
}

// Snapshot is a convenience accessor for subscribers that need the current
// state on attach.
func (b *Bridge) Snapshot() session.Snapshot {
	return b.state.Snapshot()
}
