// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/ergostat/pkg/bridge"
	"github.com/Thermoquad/ergostat/pkg/overlay"
)

var (
	monitorURL  string
	noSSLVerify bool
	useTUI      bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Terminal dashboard for a running bridge",
	Long: `Connect to a running bridge's WebSocket feed and display live power,
cadence, gear and mode.

Commands typed at the prompt are sent to the bridge as if they came from the
training application:
  erg <watts>     constant power
  grade <percent> simulation grade
  gear <n>        select gear (1-16)
  start           enter simulation mode
  reset           return to standard mode

The dashboard reconnects automatically when the bridge restarts. When stdout
is not a terminal, status lines are printed instead.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVarP(&monitorURL, "url", "u", "ws://localhost:8080/ws", "Bridge WebSocket URL (ws:// or wss://)")
	monitorCmd.Flags().BoolVar(&noSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, err := OpenMonitorConnection(monitorURL, noSSLVerify)
	if err != nil {
		return err
	}

	if !useTUI || !term.IsTerminal(int(os.Stdout.Fd())) {
		defer conn.Close()
		return runMonitorText(conn)
	}

	cm := &monitorManager{
		conn: conn,
		done: make(chan struct{}),
	}

	p := tea.NewProgram(initialMonitorModel(monitorURL, cm.send), tea.WithAltScreen())
	cm.p = p

	go cm.readerLoop()

	_, err = p.Run()
	close(cm.done)
	cm.getConn().Close()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runMonitorText prints one line per status change.
func runMonitorText(conn *MonitorConnection) error {
	fmt.Printf("Ergostat - Monitor\n")
	fmt.Printf("Connection: %s\n", monitorURL)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	var last overlay.Status
	for {
		status, err := conn.ReadStatus()
		if err != nil {
			if err == ErrConnectionClosed {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		if status == last {
			continue
		}
		last = status
		fmt.Println(formatStatusLine(time.Now(), status))
	}
}

func formatStatusLine(ts time.Time, s overlay.Status) string {
	link := "offline"
	if s.Connected {
		link = "online"
	}
	return fmt.Sprintf("[%s] %s %4dW %3drpm gear %2d target %4dW grade %+.1f%% trainer %s",
		ts.Format("15:04:05.000"), s.Mode, s.Power, s.Cadence, s.Gear, s.TargetPower, s.Grade, link)
}

// parseCommand turns a prompt line into a bridge command.
func parseCommand(line string) (bridge.Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return bridge.Command{}, fmt.Errorf("empty command")
	}

	op := fields[0]
	needArg := func() (string, error) {
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: %s <value>", op)
		}
		return fields[1], nil
	}

	switch op {
	case "reset", "start", "control":
		if len(fields) != 1 {
			return bridge.Command{}, fmt.Errorf("usage: %s", op)
		}
		return bridge.Command{Op: op}, nil

	case "erg":
		arg, err := needArg()
		if err != nil {
			return bridge.Command{}, err
		}
		watts, err := strconv.Atoi(arg)
		if err != nil {
			return bridge.Command{}, fmt.Errorf("invalid watts %q", arg)
		}
		return bridge.Command{Op: op, Watts: watts}, nil

	case "grade":
		arg, err := needArg()
		if err != nil {
			return bridge.Command{}, err
		}
		grade, err := strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 64)
		if err != nil {
			return bridge.Command{}, fmt.Errorf("invalid grade %q", arg)
		}
		return bridge.Command{Op: op, Grade: grade}, nil

	case "gear":
		arg, err := needArg()
		if err != nil {
			return bridge.Command{}, err
		}
		gear, err := strconv.Atoi(arg)
		if err != nil {
			return bridge.Command{}, fmt.Errorf("invalid gear %q", arg)
		}
		return bridge.Command{Op: op, Gear: gear}, nil
	}

	return bridge.Command{}, fmt.Errorf("unknown command %q", op)
}

// monitorManager owns the WebSocket and reconnects it when the bridge goes
// away.
type monitorManager struct {
	conn *MonitorConnection
	mu   sync.RWMutex
	p    *tea.Program
	done chan struct{}
}

func (cm *monitorManager) getConn() *MonitorConnection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *monitorManager) setConn(conn *MonitorConnection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
}

func (cm *monitorManager) send(cmd bridge.Command) error {
	return cm.getConn().Send(cmd)
}

// readerLoop forwards status messages to the TUI until shutdown
func (cm *monitorManager) readerLoop() {
	for {
		status, err := cm.getConn().ReadStatus()
		if err == nil {
			cm.p.Send(statusMsg{status: status})
			continue
		}

		select {
		case <-cm.done:
			return
		default:
		}

		cm.p.Send(connectionLostMsg{err: err})
		if !cm.reconnect() {
			return
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *monitorManager) reconnect() bool {
	cm.getConn().Close()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		conn, err := OpenMonitorConnection(monitorURL, noSSLVerify)
		if err == nil {
			cm.setConn(conn)
			cm.p.Send(reconnectedMsg{})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
