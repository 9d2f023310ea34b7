// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge is the control logic between the trainer and the wireless
// side. It interprets control point writes, drives the mode state machine,
// turns simulation parameters into power and gear commands, and pushes
// telemetry records to the registered sinks.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cskr/pubsub"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/ergostat/pkg/ftms"
	"github.com/Thermoquad/ergostat/pkg/kettler"
	"github.com/Thermoquad/ergostat/pkg/physics"
	"github.com/Thermoquad/ergostat/pkg/session"
)

// Commander issues serialized command sequences to the trainer.
type Commander interface {
	Sequence(cmds ...string)
}

// GearPolicy selects which source of gear changes is authoritative.
type GearPolicy int

const (
	// GearCommanded takes the gear from the simulation parameters write.
	GearCommanded GearPolicy = iota
	// GearAuto shifts on cadence thresholds and target power trend.
	GearAuto
)

func (p GearPolicy) String() string {
	switch p {
	case GearCommanded:
		return "commanded"
	case GearAuto:
		return "auto"
	}
	return "unknown"
}

// ParseGearPolicy maps a flag value to a policy.
func ParseGearPolicy(s string) (GearPolicy, error) {
	switch s {
	case "commanded":
		return GearCommanded, nil
	case "auto":
		return GearAuto, nil
	}
	return GearCommanded, fmt.Errorf("unknown gear policy %q (want commanded or auto)", s)
}

// Auto gear cadence thresholds in rpm.
const (
	ShiftUpCadence   = 55
	ShiftDownCadence = 45
)

// Timing holds the bridge loop intervals.
type Timing struct {
	SimulationInterval time.Duration
	AutoGearInterval   time.Duration
}

// DefaultTiming returns the standard loop intervals.
func DefaultTiming() Timing {
	return Timing{
		SimulationInterval: 500 * time.Millisecond,
		AutoGearInterval:   2 * time.Second,
	}
}

// Config configures a Bridge. Zero fields take defaults.
type Config struct {
	Policy GearPolicy
	// GearCommands appends a brake level command to simulation sequences and
	// sends one on every gear change.
	GearCommands bool
	Model        *physics.Model
	Timing       Timing
	Log          *logrus.Entry
}

// Bridge owns the session state and everything that mutates it from the
// wireless side.
type Bridge struct {
	cfg   Config
	log   *logrus.Entry
	state *session.State
	cmd   Commander
	model *physics.Model

	broker *pubsub.PubSub

	BikeData     Notifier
	Gear         Notifier
	ControlPoint Notifier

	// trend detection for the auto policy
	mu         sync.Mutex
	lastTarget int
	trendDir   int
}

// New creates a bridge around st that sends commands through cmd.
func New(cfg Config, st *session.State, cmd Commander) *Bridge {
	if cfg.Model == nil {
		cfg.Model = physics.NewModel(physics.DefaultParams())
	}
	if cfg.Timing == (Timing{}) {
		cfg.Timing = DefaultTiming()
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if st == nil {
		st = session.New()
	}

	return &Bridge{
		cfg:    cfg,
		log:    cfg.Log.WithField("component", "bridge"),
		state:  st,
		cmd:    cmd,
		model:  cfg.Model,
		broker: pubsub.New(32),
	}
}

// State returns the session the bridge owns.
func (b *Bridge) State() *session.State {
	return b.state
}

// Policy returns the configured gear policy.
func (b *Bridge) Policy() GearPolicy {
	return b.cfg.Policy
}

// Close shuts down the event broker. Subscriber channels are closed.
func (b *Bridge) Close() {
	b.broker.Shutdown()
}

// IndoorBikeData encodes the current status record.
func (b *Bridge) IndoorBikeData() []byte {
	snap := b.state.Snapshot()
	return ftms.EncodeIndoorBikeData(snap.Cadence, snap.Power)
}

// GearRecord encodes the current gear record.
func (b *Bridge) GearRecord() []byte {
	return ftms.EncodeGear(b.state.Snapshot().Gear)
}

// HandleFrame applies one parsed trainer frame.
func (b *Bridge) HandleFrame(f *kettler.Frame) {
	if f == nil {
		return
	}

	if f.Kind == kettler.FrameKey {
		b.log.WithField("key", f.KeyCode).Info("Trainer key pressed")
		return
	}

	if f.HasCadence {
		b.state.SetCadence(f.Cadence)
	}
	if f.HasPower {
		b.state.SetPower(f.Power)
	}

	if b.cfg.Policy == GearAuto {
		b.checkTrend()
	}

	b.BikeData.Notify(b.IndoorBikeData())
	b.publishState()
}

// Run drives the periodic loops until ctx ends: simulation adjustment and,
// under GearAuto, the cadence gear check.
func (b *Bridge) Run(ctx context.Context) {
	simTicker := time.NewTicker(b.cfg.Timing.SimulationInterval)
	defer simTicker.Stop()

	var gearTick <-chan time.Time
	if b.cfg.Policy == GearAuto {
		gearTicker := time.NewTicker(b.cfg.Timing.AutoGearInterval)
		defer gearTicker.Stop()
		gearTick = gearTicker.C
	}

	b.log.WithField("gear_policy", b.cfg.Policy).Debug("Bridge loops started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-simTicker.C:
			b.adjustSimulation()
		case <-gearTick:
			b.checkCadence()
		}
	}
}

// adjustSimulation recomputes the physics target with the latest cadence and
// sends it only when it moved.
func (b *Bridge) adjustSimulation() {
	snap := b.state.Snapshot()
	if snap.Mode != session.ModeSimulation || !snap.Connected {
		return
	}

	watts, changed := b.simulate()
	if changed {
		b.cmd.Sequence(kettler.CmdComputerMode, kettler.PowerCommand(watts))
	}
}

// checkCadence shifts one gear when cadence leaves the comfort band.
func (b *Bridge) checkCadence() {
	snap := b.state.Snapshot()
	if snap.Mode != session.ModeSimulation {
		return
	}

	switch {
	case snap.Cadence > ShiftUpCadence:
		b.shiftGear(1)
	case snap.Cadence < ShiftDownCadence:
		b.shiftGear(-1)
	}
}

// checkTrend shifts one gear when the target power reverses direction while
// simulating. Each new target is evaluated once.
func (b *Bridge) checkTrend() {
	snap := b.state.Snapshot()
	if snap.Mode != session.ModeSimulation {
		return
	}

	b.mu.Lock()
	if snap.TargetPower == b.lastTarget {
		b.mu.Unlock()
		return
	}
	b.lastTarget = snap.TargetPower

	dir := sign(snap.TargetPower - snap.PreviousTargetPower)
	reversed := dir != 0 && b.trendDir != 0 && dir != b.trendDir
	if dir != 0 {
		b.trendDir = dir
	}
	b.mu.Unlock()

	if reversed {
		b.shiftGear(dir)
	}
}

func (b *Bridge) shiftGear(delta int) {
	gear, changed := b.state.ShiftGear(delta)
	if !changed {
		return
	}
	b.log.WithField("gear", gear).Info("Gear shifted")
	b.gearChanged(gear)
	if b.cfg.GearCommands {
		b.cmd.Sequence(kettler.CmdComputerMode, kettler.GearCommand(gear))
	}
}

// setGear stores gear (clamped) and reports whether it changed. Sending the
// brake level is left to the caller.
func (b *Bridge) setGear(gear int) bool {
	prev := b.state.Snapshot().Gear
	next := b.state.SetGear(gear)
	if next == prev {
		return false
	}
	b.gearChanged(next)
	return true
}

func (b *Bridge) gearChanged(gear int) {
	b.Gear.Notify(ftms.EncodeGear(gear))
	b.publishGear(gear)
}

// simulate runs the physics model against the current state and memoizes
// the result. The derived value also becomes the target power.
func (b *Bridge) simulate() (int, bool) {
	snap := b.state.Snapshot()
	watts := b.model.TargetPower(physics.Input{
		Grade:     snap.Conditions.Grade,
		WindSpeed: snap.Conditions.WindSpeed,
		Crr:       snap.Conditions.Crr,
		CdA:       snap.Conditions.CdA,
		Gear:      snap.Gear,
		Cadence:   snap.Cadence,
	})

	if !b.state.SetSimulatedPower(watts) {
		return watts, false
	}
	b.state.SetTargetPower(watts)
	b.log.WithField("watts", watts).Debug("Simulated power changed")
	return watts, true
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
