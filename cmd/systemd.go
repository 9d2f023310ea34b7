// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/sirupsen/logrus"
)

// notifySystemd sends state to the service manager. Outside a systemd unit
// NOTIFY_SOCKET is unset and this does nothing.
func notifySystemd(log *logrus.Entry, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.WithError(err).Warn("sd_notify failed")
		return
	}
	if sent {
		log.WithField("state", state).Debug("sd_notify")
	}
}

// runWatchdog pings the systemd watchdog at half the configured interval
// until ctx is done. It returns at once when WatchdogSec is not set.
func runWatchdog(ctx context.Context, log *logrus.Entry) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.WithError(err).Warn("Invalid watchdog configuration")
		return
	}
	if interval == 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			notifySystemd(log, daemon.SdNotifyWatchdog)
		}
	}
}
