// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettler

import (
	"strconv"
	"strings"
)

// Command builders return the command text without the line terminator.
// The transport appends Terminator when writing.

// PowerCommand builds PW<watts>. Negative targets are sent as 0.
func PowerCommand(watts int) string {
	if watts < 0 {
		watts = 0
	}
	return CmdPower + strconv.Itoa(watts)
}

// GearCommand builds BL<100+gear>, clamping gear to [MinGear, MaxGear].
func GearCommand(gear int) string {
	return CmdBrakeLevel + strconv.Itoa(BrakeLevelBase+ClampGear(gear))
}

// ClampGear restricts gear to [MinGear, MaxGear].
func ClampGear(gear int) int {
	if gear < MinGear {
		return MinGear
	}
	if gear > MaxGear {
		return MaxGear
	}
	return gear
}

// EncodeCommand appends the line terminator to cmd.
func EncodeCommand(cmd string) []byte {
	return []byte(cmd + Terminator)
}

// CommandName strips the numeric argument: "PW200" is "PW".
func CommandName(cmd string) string {
	return strings.TrimRight(cmd, "0123456789")
}
