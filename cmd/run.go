// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/ergostat/pkg/bridge"
	"github.com/Thermoquad/ergostat/pkg/overlay"
	"github.com/Thermoquad/ergostat/pkg/peripheral"
	"github.com/Thermoquad/ergostat/pkg/session"
	"github.com/Thermoquad/ergostat/pkg/trainer"
)

var (
	deviceName   string
	gearPolicy   string
	gearCommands bool
	overlayAddr  string
	httpAddr     string
	noBLE        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trainer bridge",
	Long: `Connect to the trainer, advertise it as a Bluetooth LE fitness machine and
serve the overlay feeds.

The serial side retries until the trainer appears and reconnects when the
cable is bumped. Control point writes from the training application select
ERG (target power) or simulation (grade, wind, rolling resistance, drag) mode.

Gear policies:
  commanded  gear comes from the simulation parameters write (default)
  auto       gear shifts on cadence and on target power reversals

Overlay feeds:
  --overlay-addr  line-delimited JSON gear updates over TCP
  --http-addr     /ws CBOR status stream and JSON commands, /status, /command`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&deviceName, "name", "KettlerRacer9", "Advertised device name")
	runCmd.Flags().StringVar(&gearPolicy, "gear-policy", bridge.GearCommanded.String(), "Gear policy (commanded, auto)")
	runCmd.Flags().BoolVar(&gearCommands, "gear-commands", true, "Send brake level commands for gear changes")
	runCmd.Flags().StringVar(&overlayAddr, "overlay-addr", ":9999", "TCP overlay listen address (empty to disable)")
	runCmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP/WebSocket listen address (empty to disable)")
	runCmd.Flags().BoolVar(&noBLE, "no-ble", false, "Run without the Bluetooth peripheral")
}

func runBridge(cmd *cobra.Command, args []string) error {
	dialect, err := selectedDialect()
	if err != nil {
		return err
	}
	policy, err := bridge.ParseGearPolicy(gearPolicy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := componentLog()
	st := session.New()

	tr := trainer.New(trainer.Config{
		Path:    portName,
		Baud:    baudRate,
		Dialect: dialect,
		Log:     log,
	}, st)

	b := bridge.New(bridge.Config{
		Policy:       policy,
		GearCommands: gearCommands,
		Log:          log,
	}, st, tr)
	defer b.Close()

	tr.OnFrame(b.HandleFrame)
	tr.OnConnected(b.Run)

	if !noBLE {
		if err := peripheral.New(peripheral.Config{Name: deviceName, Log: log}, b).Start(); err != nil {
			return err
		}
	}

	errs := make(chan error, 3)

	if overlayAddr != "" {
		tcp := overlay.NewTCPServer(overlayAddr, log)
		if err := tcp.Listen(); err != nil {
			return err
		}
		go tcp.Forward(ctx, b.Subscribe(bridge.TopicGear))
		go func() { errs <- tcp.Serve(ctx) }()
	}

	if httpAddr != "" {
		srv := overlay.NewHTTPServer(httpAddr, b, log)
		go func() { errs <- srv.ListenAndServe(ctx) }()
	}

	fmt.Printf("Ergostat - Trainer Bridge\n")
	fmt.Printf("Serial: %s @ %d baud (%s)\n", portName, baudRate, tr.Dialect().Name)
	fmt.Printf("Gear policy: %s\n", b.Policy())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	go func() { errs <- tr.Run(ctx) }()

	notifySystemd(log, daemon.SdNotifyReady)
	defer notifySystemd(log, daemon.SdNotifyStopping)
	go runWatchdog(ctx, log)

	select {
	case <-ctx.Done():
		stats := tr.Stats()
		fmt.Println()
		fmt.Print(stats.String())
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
