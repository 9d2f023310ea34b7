// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ftms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortPayload is returned when a record is shorter than its layout.
var ErrShortPayload = errors.New("payload too short")

// ErrEmptyWrite is returned for a zero-length control point write.
var ErrEmptyWrite = errors.New("empty control point write")

// Simulation holds decoded indoor bike simulation parameters.
type Simulation struct {
	WindSpeed float64 // m/s
	Grade     float64 // percent
	Crr       float64
	CdA       float64
	Gear      int // vendor extension, valid when HasGear
	HasGear   bool
}

// Opcode returns the first byte of a control point write.
func Opcode(data []byte) (byte, error) {
	if len(data) == 0 {
		return 0, ErrEmptyWrite
	}
	return data[0], nil
}

// Response builds the 3-byte control point response.
func Response(opcode, result byte) []byte {
	return []byte{OpResponseCode, opcode, result}
}

// ParseTargetPower reads the signed 16-bit watts at offset 1.
func ParseTargetPower(data []byte) (int, error) {
	if len(data) < 3 {
		return 0, fmt.Errorf("%w: set target power needs 3 bytes, got %d", ErrShortPayload, len(data))
	}
	return int(int16(binary.LittleEndian.Uint16(data[1:3]))), nil
}

// ParseSimulation decodes a set-simulation-parameters write:
//
//	[1:3] wind speed  int16  0.001 m/s
//	[3:5] grade       int16  0.01 %
//	[5]   crr         uint8  0.0001
//	[6]   cw / CdA    uint8  0.01 kg/m
//	[7]   gear        uint8  optional
func ParseSimulation(data []byte) (Simulation, error) {
	if len(data) < 7 {
		return Simulation{}, fmt.Errorf("%w: simulation parameters need 7 bytes, got %d", ErrShortPayload, len(data))
	}

	sim := Simulation{
		WindSpeed: float64(int16(binary.LittleEndian.Uint16(data[1:3]))) * WindSpeedResolution,
		Grade:     float64(int16(binary.LittleEndian.Uint16(data[3:5]))) * GradeResolution,
		Crr:       float64(data[5]) * CrrResolution,
		CdA:       float64(data[6]) * CdAResolution,
	}
	if len(data) >= 8 {
		sim.Gear = int(data[7])
		sim.HasGear = true
	}
	return sim, nil
}

// EncodeTargetPower builds a set-target-power write.
func EncodeTargetPower(watts int) []byte {
	buf := make([]byte, 3)
	buf[0] = OpSetTargetPower
	binary.LittleEndian.PutUint16(buf[1:3], uint16(clampInt16(watts)))
	return buf
}

// EncodeSimulation builds a set-simulation-parameters write. The gear byte is
// appended only when sim.HasGear is set.
func EncodeSimulation(sim Simulation) []byte {
	buf := make([]byte, 7, 8)
	buf[0] = OpSetSimulationParams
	binary.LittleEndian.PutUint16(buf[1:3], uint16(clampInt16(int(math.Round(sim.WindSpeed/WindSpeedResolution)))))
	binary.LittleEndian.PutUint16(buf[3:5], uint16(clampInt16(int(math.Round(sim.Grade/GradeResolution)))))
	buf[5] = clampUint8(math.Round(sim.Crr / CrrResolution))
	buf[6] = clampUint8(math.Round(sim.CdA / CdAResolution))
	if sim.HasGear {
		buf = append(buf, clampUint8(float64(sim.Gear)))
	}
	return buf
}

// FormatOpcode returns the human-readable name for a control point opcode
func FormatOpcode(op byte) string {
	switch op {
	case OpRequestControl:
		return "REQUEST_CONTROL"
	case OpReset:
		return "RESET"
	case OpSetTargetPower:
		return "SET_TARGET_POWER"
	case OpStartResume:
		return "START_RESUME"
	case OpSetSimulationParams:
		return "SET_SIMULATION_PARAMETERS"
	case OpResponseCode:
		return "RESPONSE"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", op)
}

func clampUint8(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
