// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session holds the single authoritative trainer session record
// shared by the serial and wireless sides of the bridge.
package session

import (
	"sync"

	"github.com/Thermoquad/ergostat/pkg/kettler"
)

// Mode is the trainer operating mode selected through the control point
type Mode int

// Operating modes
const (
	ModeStandard Mode = iota
	ModeConstantPower
	ModeSimulation
)

// String returns the short mode name used in logs and overlays
func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "STD"
	case ModeConstantPower:
		return "ERG"
	case ModeSimulation:
		return "SIM"
	}
	return "UNKNOWN"
}

// Conditions are the simulated ride conditions written by the control point.
type Conditions struct {
	WindSpeed float64 // m/s, positive is headwind
	Grade     float64 // percent
	Crr       float64 // rolling resistance coefficient
	CdA       float64 // drag coefficient times frontal area, m²
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	Power               int
	Cadence             int
	TargetPower         int
	PreviousTargetPower int
	SimulatedPower      int
	Gear                int
	Mode                Mode
	Connected           bool
	Busy                bool
	Conditions          Conditions
}

// State is the mutable session record. All access goes through its methods.
type State struct {
	mu sync.RWMutex
	s  Snapshot
}

// New creates a session with all-zero values, standard mode and the
// mid-range gear.
func New() *State {
	return &State{
		s: Snapshot{
			Gear: kettler.DefaultGear,
			Mode: ModeStandard,
		},
	}
}

// Snapshot returns a copy of the current session.
func (st *State) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// SetMetrics stores the measured cadence and power.
func (st *State) SetMetrics(cadence, power int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Cadence = cadence
	st.s.Power = power
}

// SetCadence stores the measured cadence alone.
func (st *State) SetCadence(cadence int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Cadence = cadence
}

// SetPower stores the measured power alone.
func (st *State) SetPower(power int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Power = power
}

// SetTargetPower records a new target and keeps the old one for trend
// detection. Returns the previous target.
func (st *State) SetTargetPower(watts int) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.s.TargetPower
	st.s.PreviousTargetPower = prev
	st.s.TargetPower = watts
	return prev
}

// SetSimulatedPower memoizes a physics result and reports whether it changed.
func (st *State) SetSimulatedPower(watts int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.SimulatedPower == watts {
		return false
	}
	st.s.SimulatedPower = watts
	return true
}

// SetGear stores gear clamped to the valid range and returns the stored value.
func (st *State) SetGear(gear int) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Gear = kettler.ClampGear(gear)
	return st.s.Gear
}

// ShiftGear moves the gear by delta within the valid range. It returns the
// new gear and whether it changed.
func (st *State) ShiftGear(delta int) (int, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	next := kettler.ClampGear(st.s.Gear + delta)
	changed := next != st.s.Gear
	st.s.Gear = next
	return next, changed
}

// SetMode switches the operating mode and returns the previous one. Values
// outside the enumeration are ignored.
func (st *State) SetMode(m Mode) Mode {
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.s.Mode
	switch m {
	case ModeStandard, ModeConstantPower, ModeSimulation:
		st.s.Mode = m
	}
	return prev
}

// SetConditions replaces the simulated ride conditions.
func (st *State) SetConditions(c Conditions) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Conditions = c
}

// SetConnected records whether the serial handshake has completed.
func (st *State) SetConnected(connected bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Connected = connected
}

// SetBusy mirrors the serial traffic lock.
func (st *State) SetBusy(busy bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Busy = busy
}

// Busy reports whether a command sequence is in flight.
func (st *State) Busy() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Busy
}
