// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettler

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp.Format("15:04:05.000")

	switch f.Kind {
	case FrameStatus:
		result := fmt.Sprintf("[%s] STATUS fields=%d\n", timestamp, len(f.Fields))
		result += fmt.Sprintf("  Cadence: %s, Power: %s\n",
			formatOptional(f.Cadence, f.HasCadence, "rpm"),
			formatOptional(f.Power, f.HasPower, "W"))
		result += "  Raw: " + strings.Join(f.Fields, " ") + "\n"
		return result

	case FrameKey:
		return fmt.Sprintf("[%s] KEY code=%s\n", timestamp, f.KeyCode)
	}

	return fmt.Sprintf("[%s] UNKNOWN %q\n", timestamp, f.Raw)
}

// FormatCommand returns the human-readable name for an outbound command
func FormatCommand(cmd string) string {
	if len(cmd) < 2 {
		return "UNKNOWN"
	}

	arg := cmd[2:]
	switch cmd[:2] {
	case CmdReset:
		return "RESET"
	case CmdComputerMode:
		return "COMPUTER_MODE"
	case CmdStatus:
		return "STATUS_REQUEST"
	case CmdPower:
		return fmt.Sprintf("SET_POWER %sW", arg)
	case CmdBrakeLevel:
		return "SET_BRAKE_LEVEL " + arg
	}

	return "UNKNOWN"
}

func formatOptional(v int, ok bool, unit string) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%d %s", v, unit)
}
