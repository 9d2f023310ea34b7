// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/ergostat/pkg/bridge"
	"github.com/Thermoquad/ergostat/pkg/overlay"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// TUI model
type monitorModel struct {
	url           string
	send          func(bridge.Command) error
	status        *overlay.Status
	lastUpdate    time.Time
	connectedAt   time.Time
	online        bool
	eventLog      []eventLogEntry
	maxLogEntries int
	input         textinput.Model
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type statusMsg struct {
	status overlay.Status
}
type connectionLostMsg struct {
	err error
}
type reconnectedMsg struct{}

// formatUptime formats a duration to a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	parts := []string{}
	for _, p := range []struct {
		n    int64
		unit string
	}{{days, "day"}, {hours, "hour"}, {minutes, "minute"}, {seconds, "second"}} {
		switch {
		case p.n == 1:
			parts = append(parts, "1 "+p.unit)
		case p.n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", p.n, p.unit))
		}
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialMonitorModel(url string, send func(bridge.Command) error) monitorModel {
	input := textinput.New()
	input.Placeholder = "erg 200 | grade 4.5 | gear 10 | start | reset"
	input.Prompt = "> "
	input.CharLimit = 32
	input.Focus()

	return monitorModel{
		url:           url,
		send:          send,
		connectedAt:   time.Now(),
		online:        true,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		input:         input,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		textinput.Blink,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit(m.input.Value())
			m.input.SetValue("")
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()

	case statusMsg:
		m.applyStatus(msg.status)
		return m, nil

	case connectionLostMsg:
		m.online = false
		m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
		return m, nil

	case reconnectedMsg:
		m.online = true
		m.connectedAt = time.Now()
		m.addLogEntry("Reconnected", false)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *monitorModel) submit(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	command, err := parseCommand(line)
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return
	}
	if !m.online {
		m.addLogEntry("Not connected, command dropped", true)
		return
	}
	if err := m.send(command); err != nil {
		m.addLogEntry(fmt.Sprintf("Send failed: %v", err), true)
		return
	}
	m.addLogEntry("Sent: "+strings.TrimSpace(line), false)
}

// applyStatus records a status and logs the transitions worth noticing.
func (m *monitorModel) applyStatus(s overlay.Status) {
	prev := m.status
	m.status = &s
	m.lastUpdate = time.Now()

	if prev == nil {
		m.addLogEntry(fmt.Sprintf("Bridge online: mode %s, gear %d", s.Mode, s.Gear), false)
		return
	}
	if prev.Connected != s.Connected {
		if s.Connected {
			m.addLogEntry("Trainer connected", false)
		} else {
			m.addLogEntry("Trainer disconnected", true)
		}
	}
	if prev.Mode != s.Mode {
		m.addLogEntry(fmt.Sprintf("Mode %s -> %s", prev.Mode, s.Mode), false)
	}
	if prev.Gear != s.Gear {
		m.addLogEntry(fmt.Sprintf("Gear %d -> %d", prev.Gear, s.Gear), false)
	}
	if prev.TargetPower != s.TargetPower && s.Mode == "ERG" {
		m.addLogEntry(fmt.Sprintf("Target %dW", s.TargetPower), false)
	}
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("ERGOSTAT - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Bridge: %s | Esc to quit", m.url)))
	s.WriteString("\n\n")

	if !m.online {
		s.WriteString(errorStyle.Render("✗ Bridge unreachable, reconnecting..."))
		s.WriteString("\n\n")
	} else if m.status == nil {
		s.WriteString(warningStyle.Render("⏳ Waiting for status..."))
		s.WriteString("\n\n")
	} else {
		st := m.status
		trainer := valueStyle.Render("✓ Trainer connected")
		if !st.Connected {
			trainer = warningStyle.Render("⏳ Waiting for trainer")
		}
		s.WriteString(trainer)
		s.WriteString(headerStyle.Render(fmt.Sprintf("  (bridge link up %s)", formatUptime(time.Since(m.connectedAt)))))
		s.WriteString("\n\n")

		content := strings.Builder{}
		content.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Power:"), valueStyle.Render(fmt.Sprintf("%d W", st.Power)),
			labelStyle.Render("Cadence:"), valueStyle.Render(fmt.Sprintf("%d rpm", st.Cadence)),
			labelStyle.Render("Gear:"), valueStyle.Render(fmt.Sprintf("%d", st.Gear)),
		))

		busy := ""
		if st.Busy {
			busy = warningStyle.Render("  [busy]")
		}
		content.WriteString(fmt.Sprintf("%s %s   %s %s%s\n",
			labelStyle.Render("Mode:"), valueStyle.Render(st.Mode),
			labelStyle.Render("Target:"), valueStyle.Render(fmt.Sprintf("%d W", st.TargetPower)),
			busy,
		))

		if st.Mode == "SIM" {
			content.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
				labelStyle.Render("Grade:"), valueStyle.Render(fmt.Sprintf("%+.1f %%", st.Grade)),
				labelStyle.Render("Wind:"), valueStyle.Render(fmt.Sprintf("%+.1f m/s", st.WindSpeed)),
				labelStyle.Render("Simulated:"), valueStyle.Render(fmt.Sprintf("%d W", st.SimulatedPower)),
			))
		} else {
			content.WriteString(headerStyle.Render(fmt.Sprintf("Last update %s ago", time.Since(m.lastUpdate).Truncate(time.Second))))
		}

		s.WriteString(boxStyle.Render(content.String()))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 17 // Reserve space for header, status and prompt
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))
	s.WriteString("\n")
	s.WriteString(m.input.View())

	return s.String()
}
