// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Ergostat - Kettler serial trainer to FTMS bridge
//
// Polls and commands a Kettler trainer over its serial line protocol and
// exposes it to training applications as a Bluetooth Fitness Machine.

package main

import (
	"os"

	"github.com/Thermoquad/ergostat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
