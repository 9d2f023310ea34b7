// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "sync"

// Sink receives encoded records for one wireless characteristic.
type Sink interface {
	Notify(value []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(value []byte) error

func (f SinkFunc) Notify(value []byte) error { return f(value) }

// Notifier holds at most one registered Sink. An empty notifier is a valid
// state: Notify reports false and does nothing.
type Notifier struct {
	mu   sync.RWMutex
	sink Sink
}

// Set registers s, replacing any previous sink.
func (n *Notifier) Set(s Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sink = s
}

// Clear removes the registered sink.
func (n *Notifier) Clear() {
	n.Set(nil)
}

// Active reports whether a sink is registered.
func (n *Notifier) Active() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sink != nil
}

// Notify delivers value to the sink. It reports whether delivery succeeded.
func (n *Notifier) Notify(value []byte) bool {
	n.mu.RLock()
	sink := n.sink
	n.mu.RUnlock()

	if sink == nil {
		return false
	}
	return sink.Notify(value) == nil
}
