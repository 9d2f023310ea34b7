// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package overlay

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/ergostat/pkg/session"
)

// Status is the session snapshot as sent to WebSocket clients. Integer keys
// keep the CBOR encoding compact.
type Status struct {
	Mode           string  `cbor:"1,keyasint" json:"mode"`
	Cadence        int     `cbor:"2,keyasint" json:"cadence"`
	Power          int     `cbor:"3,keyasint" json:"power"`
	TargetPower    int     `cbor:"4,keyasint" json:"target_power"`
	SimulatedPower int     `cbor:"5,keyasint" json:"simulated_power"`
	Gear           int     `cbor:"6,keyasint" json:"gear"`
	Connected      bool    `cbor:"7,keyasint" json:"connected"`
	Busy           bool    `cbor:"8,keyasint" json:"busy"`
	Grade          float64 `cbor:"9,keyasint" json:"grade"`
	WindSpeed      float64 `cbor:"10,keyasint" json:"wind_speed"`
}

// StatusFromSnapshot projects a session snapshot.
func StatusFromSnapshot(s session.Snapshot) Status {
	return Status{
		Mode:           s.Mode.String(),
		Cadence:        s.Cadence,
		Power:          s.Power,
		TargetPower:    s.TargetPower,
		SimulatedPower: s.SimulatedPower,
		Gear:           s.Gear,
		Connected:      s.Connected,
		Busy:           s.Busy,
		Grade:          s.Conditions.Grade,
		WindSpeed:      s.Conditions.WindSpeed,
	}
}

// EncodeStatus encodes a status as CBOR.
func EncodeStatus(s Status) ([]byte, error) {
	data, err := cbor.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode status: %w", err)
	}
	return data, nil
}

// DecodeStatus decodes a CBOR status message.
func DecodeStatus(data []byte) (Status, error) {
	if len(data) == 0 {
		return Status{}, fmt.Errorf("empty CBOR payload")
	}

	var s Status
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Status{}, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	return s, nil
}
