// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ergostat/pkg/kettler"
	"github.com/Thermoquad/ergostat/pkg/session"
	"github.com/Thermoquad/ergostat/pkg/trainer"
)

var (
	statsInterval int
	showKeys      bool
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display trainer frames in human-readable format",
	Long: `Connect to the trainer, put it in computer mode and display every status
frame as it arrives.

Frames that fail the plausibility checks (cadence > 250 rpm, power > 2500 W,
negative values) are logged as warnings. A statistics summary is printed
periodically and on exit.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().IntVar(&statsInterval, "stats-interval", 30, "Statistics interval in seconds (0 to disable)")
	rawLogCmd.Flags().BoolVar(&showKeys, "show-keys", true, "Show key press frames")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	dialect, err := selectedDialect()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr := trainer.New(trainer.Config{
		Path:    portName,
		Baud:    baudRate,
		Dialect: dialect,
		Log:     componentLog(),
	}, session.New())

	tr.OnFrame(func(f *kettler.Frame) {
		if f.Kind == kettler.FrameKey && !showKeys {
			return
		}
		fmt.Print(kettler.FormatFrame(f))
	})

	fmt.Printf("Ergostat - Raw Frame Log\n")
	fmt.Printf("Serial: %s @ %d baud (%s)\n", portName, baudRate, tr.Dialect().Name)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if statsInterval > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(statsInterval) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					stats := tr.Stats()
					fmt.Println()
					fmt.Print(stats.String())
					fmt.Println()
				}
			}
		}()
	}

	tr.Run(ctx)

	stats := tr.Stats()
	fmt.Println()
	fmt.Print(stats.String())
	return nil
}
