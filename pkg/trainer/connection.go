// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package trainer

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Port is the byte channel to the trainer.
type Port = io.ReadWriteCloser

// Opener opens the trainer port. Tests substitute an in-memory port.
type Opener func(path string, baud int) (Port, error)

// SerialOpener opens a serial device at 8N1.
func SerialOpener(path string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	return port, nil
}

// ListPorts returns the serial devices present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
