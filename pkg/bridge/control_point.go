// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/ergostat/pkg/ftms"
	"github.com/Thermoquad/ergostat/pkg/kettler"
	"github.com/Thermoquad/ergostat/pkg/session"
)

// HandleControlPoint interprets one control point write and returns the
// response, which is also indicated through the ControlPoint notifier.
//
// Every write is acknowledged with success. Malformed payloads are logged and
// leave the state untouched; unknown opcodes are ignored. An empty write has
// no opcode to echo and returns nil.
func (b *Bridge) HandleControlPoint(data []byte) []byte {
	op, err := ftms.Opcode(data)
	if err != nil {
		b.log.WithError(err).Warn("Control point write rejected")
		return nil
	}

	log := b.log.WithField("opcode", ftms.FormatOpcode(op))

	switch op {
	case ftms.OpRequestControl, ftms.OpReset:
		b.setMode(session.ModeStandard)

	case ftms.OpSetTargetPower:
		watts, err := ftms.ParseTargetPower(data)
		if err != nil {
			log.WithError(err).Warn("Malformed control point payload")
			break
		}
		b.setTargetPower(watts)

	case ftms.OpStartResume:
		b.startSimulation()

	case ftms.OpSetSimulationParams:
		sim, err := ftms.ParseSimulation(data)
		if err != nil {
			log.WithError(err).Warn("Malformed control point payload")
			break
		}
		b.applySimulation(sim)

	default:
		log.Debug("Unsupported opcode ignored")
	}

	resp := ftms.Response(op, ftms.ResultSuccess)
	b.ControlPoint.Notify(resp)
	b.publishState()
	return resp
}

func (b *Bridge) setMode(m session.Mode) {
	if prev := b.state.SetMode(m); prev != m {
		b.log.WithField("mode", m).Info("Mode changed")
	}
}

// setTargetPower enters constant power and commands watts, clamped to the
// advertised range.
func (b *Bridge) setTargetPower(watts int) {
	switch {
	case watts < ftms.MinTargetPower:
		watts = ftms.MinTargetPower
	case watts > ftms.MaxTargetPower:
		watts = ftms.MaxTargetPower
	}

	b.setMode(session.ModeConstantPower)
	b.state.SetTargetPower(watts)
	b.log.WithField("watts", watts).Info("Target power set")

	b.cmd.Sequence(kettler.CmdComputerMode, kettler.PowerCommand(watts))
}

// startSimulation enters simulation and, when the mode actually changed,
// sends the current physics output so the trainer drops any ERG target.
func (b *Bridge) startSimulation() {
	if b.state.SetMode(session.ModeSimulation) == session.ModeSimulation {
		return
	}
	b.log.WithField("mode", session.ModeSimulation).Info("Mode changed")

	watts, changed := b.simulate()
	if !changed && b.state.Snapshot().TargetPower != watts {
		b.state.SetTargetPower(watts)
	}
	b.cmd.Sequence(b.simulationCommands(watts)...)
}

// simulationCommands builds the sequence that puts watts (and the current
// gear, when enabled) on the trainer.
func (b *Bridge) simulationCommands(watts int) []string {
	cmds := []string{kettler.CmdComputerMode, kettler.PowerCommand(watts)}
	if b.cfg.GearCommands {
		cmds = append(cmds, kettler.GearCommand(b.state.Snapshot().Gear))
	}
	return cmds
}

// applySimulation stores the conditions, enters simulation, runs the model
// and commands the trainer when anything the trainer sees has changed.
func (b *Bridge) applySimulation(sim ftms.Simulation) {
	b.state.SetConditions(session.Conditions{
		WindSpeed: sim.WindSpeed,
		Grade:     sim.Grade,
		Crr:       sim.Crr,
		CdA:       sim.CdA,
	})

	entered := b.state.SetMode(session.ModeSimulation) != session.ModeSimulation
	if entered {
		b.log.WithField("mode", session.ModeSimulation).Info("Mode changed")
	}

	gearChanged := false
	if b.cfg.Policy == GearCommanded {
		switch {
		case sim.HasGear:
			gearChanged = b.setGear(sim.Gear)
		case entered:
			gearChanged = b.setGear(kettler.DefaultGear)
		}
	}

	watts, powerChanged := b.simulate()
	if !entered && !gearChanged && !powerChanged {
		return
	}

	b.cmd.Sequence(b.simulationCommands(watts)...)
}

// ErrUnknownCommand is returned by Submit for an unrecognized operation.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a high level request from a local client.
type Command struct {
	Op    string  `json:"op"`
	Watts int     `json:"watts,omitempty"`
	Grade float64 `json:"grade,omitempty"`
	Gear  int     `json:"gear,omitempty"`
}

// Submit translates cmd into a control point write and handles it exactly as
// if it came from the wireless peer.
func (b *Bridge) Submit(cmd Command) ([]byte, error) {
	payload, err := b.encodeCommand(cmd)
	if err != nil {
		return nil, err
	}
	return b.HandleControlPoint(payload), nil
}

func (b *Bridge) encodeCommand(cmd Command) ([]byte, error) {
	current := b.state.Snapshot().Conditions
	sim := ftms.Simulation{
		WindSpeed: current.WindSpeed,
		Grade:     current.Grade,
		Crr:       current.Crr,
		CdA:       current.CdA,
	}

	switch cmd.Op {
	case "control":
		return []byte{ftms.OpRequestControl}, nil
	case "reset":
		return []byte{ftms.OpReset}, nil
	case "start":
		return []byte{ftms.OpStartResume}, nil
	case "erg":
		return ftms.EncodeTargetPower(cmd.Watts), nil
	case "grade":
		sim.Grade = cmd.Grade
		return ftms.EncodeSimulation(sim), nil
	case "gear":
		sim.Gear = cmd.Gear
		sim.HasGear = true
		return ftms.EncodeSimulation(sim), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Op)
}
