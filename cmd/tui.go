// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/JordanHiggins/RPi-FPV/pkg/osd"
	"github.com/JordanHiggins/RPi-FPV/pkg/pilot"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// TUI model
type model struct {
	connInfo      string
	session       *monitorSession
	showAll       bool
	stats         *hub.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	synchronized  bool
	skippedBytes  uint64
	width         int
	height        int
	quitting      bool
	closed        bool
	state         *osd.State
	pulse         uint16
	sensors       table.Model
}

type tickMsg time.Time

var sensorColumns = []table.Column{
	{Title: "Sensor", Width: 14},
	{Title: "ID", Width: 4},
	{Title: "Raw", Width: 6},
	{Title: "Decoded", Width: 28},
}

// formatUptime formats a duration in milliseconds to a human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	parts := []string{}
	for _, p := range []struct {
		n    uint64
		unit string
	}{
		{days, "day"},
		{hours, "hour"},
		{minutes, "minute"},
	} {
		if p.n == 1 {
			parts = append(parts, "1 "+p.unit)
		} else if p.n > 1 {
			parts = append(parts, fmt.Sprintf("%d %ss", p.n, p.unit))
		}
	}
	if seconds > 0 || len(parts) == 0 {
		if seconds == 1 {
			parts = append(parts, "1 second")
		} else {
			parts = append(parts, fmt.Sprintf("%d seconds", seconds))
		}
	}

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

// sensorRows lists every sensor slot that has reported, in id order
func sensorRows(s hub.Snapshot) []table.Row {
	active := s.Active()
	rows := make([]table.Row, 0, len(active))
	for _, id := range active {
		value := s.Raw(id)
		rows = append(rows, table.Row{
			hub.SensorName(id),
			fmt.Sprintf("%02X", id),
			fmt.Sprintf("%d", value),
			strings.TrimSpace(hub.FormatValue(id, value)),
		})
	}
	return rows
}

func initialModel(connInfo string, session *monitorSession, showAll bool) model {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12"))

	sensors := table.New(
		table.WithColumns(sensorColumns),
		table.WithHeight(8),
		table.WithFocused(true),
		table.WithStyles(styles),
	)

	return model{
		connInfo:      connInfo,
		session:       session,
		showAll:       showAll,
		stats:         hub.NewStatistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
		sensors:       sensors,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.sensors, cmd = m.sensors.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		m.sensors.SetRows(sensorRows(m.session.telemetry.Snapshot()))
		return m, tickCmd()

	case framesMsg:
		m.applyFrames(msg)

	case pilotMsg:
		m.pulse = msg.value
		switch {
		case msg.err != nil:
			m.addLogEntry(fmt.Sprintf("RECORDING ERROR: %v", msg.err), true)
		case msg.action == pilot.ActionStart:
			m.addLogEntry(fmt.Sprintf("Recording %s (pulse %d us)", msg.path, msg.value), false)
		case msg.action == pilot.ActionStop:
			m.addLogEntry(fmt.Sprintf("Recording stopped (pulse %d us)", msg.value), false)
		}

	case closedMsg:
		m.closed = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
		} else {
			m.addLogEntry("Connection closed", false)
		}
	}

	return m, nil
}

func (m *model) applyFrames(msg framesMsg) {
	for _, f := range msg.frames {
		if !m.synchronized {
			m.synchronized = true
			m.skippedBytes = msg.counters.Discarded
			if m.skippedBytes > 0 {
				m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d bytes", m.skippedBytes), false)
			} else {
				m.addLogEntry("Synchronized", false)
			}
		}

		m.stats.Update(f.frame, f.errors)
		if len(f.errors) > 0 {
			name := hub.SensorName(f.frame.ID())
			for _, err := range f.errors {
				m.addLogEntry(fmt.Sprintf("%s: %s", name, err.Message), true)
			}
		} else if m.showAll {
			m.addLogEntry(fmt.Sprintf("%s = %d", hub.SensorName(f.frame.ID()), f.frame.Value()), false)
		}
	}
	m.stats.Sync(msg.counters)

	if msg.state != nil {
		m.state = msg.state
	}
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func levelStyle(l osd.Level) lipgloss.Style {
	switch l {
	case osd.LevelCritical:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	case osd.LevelWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
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
	s.WriteString(titleStyle.Render("HUBSCOPE - MONITOR"))
	s.WriteString("\n")
	mode := "Anomalies only"
	if m.showAll {
		mode = "All frames"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Press 'q' to quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.closed:
		s.WriteString(errorStyle.Render("✗ Connection closed"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.skippedBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d bytes)", m.skippedBytes)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	m.stats.CalculateRates()
	var changedPercent float64
	if m.stats.TotalFrames > 0 {
		changedPercent = float64(m.stats.ChangedFrames) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Changed:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ChangedFrames, changedPercent)),
		statsLabelStyle.Render("Anomalies:"), func() string {
			if m.stats.Anomalies > 0 {
				return warningStyle.Render(fmt.Sprintf("%d", m.stats.Anomalies))
			}
			return statsValueStyle.Render("0")
		}(),
	))

	if m.stats.DiscardedBytes > 0 || m.stats.Resyncs > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Discarded:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.DiscardedBytes)),
			statsLabelStyle.Render("Resyncs:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Resyncs)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Byte Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f B/s", m.stats.ByteRate)),
		statsLabelStyle.Render("Uptime:"), statsValueStyle.Render(formatUptime(uint64(time.Since(m.stats.StartTime).Milliseconds()))),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// On-screen display, only once a frame has updated it
	if m.state != nil {
		t := m.session.thresholds
		style := levelStyle(m.state.Level(t))

		osdContent := strings.Builder{}
		osdContent.WriteString(statsValueStyle.Render(m.state.AltitudeLine()))
		osdContent.WriteString("\n")
		osdContent.WriteString(style.Render(m.state.BatteryLine()))
		osdContent.WriteString("\n")
		osdContent.WriteString(statsValueStyle.Render(m.state.HeadingLine()))
		if banner := m.state.Banner(t); banner != "" {
			osdContent.WriteString("\n")
			osdContent.WriteString(errorStyle.Render(banner))
		}

		s.WriteString(statsLabelStyle.Render("On-Screen Display:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(osdContent.String()))
		s.WriteString("\n\n")
	}

	// Recording
	if m.session.controller != nil {
		rec := headerStyle.Render(fmt.Sprintf("idle, next slot %d", m.session.controller.NextSlot()))
		if m.session.recording() {
			rec = errorStyle.Render(fmt.Sprintf("● REC %s", m.session.recorder.Path()))
		}
		s.WriteString(fmt.Sprintf("%s %s   %s %s\n\n",
			statsLabelStyle.Render("Recording:"), rec,
			statsLabelStyle.Render("Pulse:"), statsValueStyle.Render(fmt.Sprintf("%d us", m.pulse)),
		))
	}

	// Sensor table
	s.WriteString(statsLabelStyle.Render("Sensors:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.sensors.View()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 30
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
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

	return s.String()
}
