// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/ergostat/pkg/kettler"
)

var (
	// Serial connection flags
	portName    string
	baudRate    int
	dialectName string

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ergostat",
	Short: "Kettler serial trainer to FTMS bridge",
	Long: `Ergostat - Bridges a Kettler trainer's serial protocol to a Bluetooth LE
Fitness Machine, so training applications can read power and cadence and
control the trainer in ERG and simulation modes.

Commands:
  run      Run the bridge (serial + BLE + overlay feeds)
  raw_log  Log trainer frames in human-readable form
  monitor  Terminal dashboard for a running bridge
  ping     Check that a running bridge is answering
  ports    List serial ports

Serial: --port /dev/ttyUSB0 [--baud 57600] [--dialect racer|classic]`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: configureLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "/dev/ttyUSB0", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 57600, "Baud rate")
	rootCmd.PersistentFlags().StringVar(&dialectName, "dialect", kettler.DialectRacer.Name, "Trainer firmware dialect (racer, classic)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func configureLogging(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	return nil
}

// selectedDialect resolves --dialect.
func selectedDialect() (kettler.Dialect, error) {
	d, ok := kettler.DialectByName(dialectName)
	if !ok {
		return kettler.Dialect{}, fmt.Errorf("unknown dialect %q (want racer or classic)", dialectName)
	}
	return d, nil
}

// componentLog returns the shared logger.
func componentLog() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}
