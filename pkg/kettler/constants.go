// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package kettler implements the Kettler trainer serial line protocol.
//
// The protocol is ASCII: the host sends two-letter commands, optionally
// followed by a decimal argument, terminated by CR LF. The trainer answers a
// status request with a single line of whitespace- or tab-delimited numeric
// fields whose exact layout depends on the firmware dialect.
package kettler

// Line framing
const (
	Terminator = "\r\n"

	// MaxLineLength bounds a single inbound line. Longer input is noise.
	MaxLineLength = 256
)

// Commands (host → trainer)
const (
	CmdReset        = "RS"
	CmdComputerMode = "CM"
	CmdPower        = "PW"
	CmdBrakeLevel   = "BL"
	CmdStatus       = "ST"
)

// Gear range addressed through the brake level command. BL takes 100+gear.
const (
	MinGear        = 1
	MaxGear        = 16
	DefaultGear    = 8
	BrakeLevelBase = 100
)

// KeyFrameFields is the field count of a button-press line.
const KeyFrameFields = 4

// Dialect describes how a firmware variant lays out its status line.
type Dialect struct {
	Name string

	// Tabs selects tab-delimited fields instead of arbitrary whitespace.
	Tabs bool

	// MinFields is the field count a status frame must exceed.
	MinFields int

	// HalfCadence is set when the firmware reports cadence in half-rpm steps.
	HalfCadence bool
}

// Known firmware dialects
var (
	// DialectRacer matches the Racer 9 firmware: space separated, half cadence.
	DialectRacer = Dialect{Name: "racer", Tabs: false, MinFields: 7, HalfCadence: true}

	// DialectClassic matches the older tab-delimited ergometer firmware.
	DialectClassic = Dialect{Name: "classic", Tabs: true, MinFields: 7, HalfCadence: false}
)

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, bool) {
	switch name {
	case DialectRacer.Name:
		return DialectRacer, true
	case DialectClassic.Name:
		return DialectClassic, true
	}
	return Dialect{}, false
}

// FrameKind distinguishes the inbound line types.
type FrameKind int

// Frame kinds
const (
	FrameStatus FrameKind = iota
	FrameKey
)
