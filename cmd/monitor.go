// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/JordanHiggins/RPi-FPV/pkg/capture"
	"github.com/JordanHiggins/RPi-FPV/pkg/config"
	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/JordanHiggins/RPi-FPV/pkg/osd"
	"github.com/JordanHiggins/RPi-FPV/pkg/pilot"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
	usePilot      bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow the telemetry stream and drive the on-screen display",
	Long: `Decode the hub stream, keep the sensor table and show the OSD lines
(altitude, battery, heading) whenever a frame updates them.

Each frame is checked for values no hub sensor produces (unknown ids,
hundredths above 99, headings above 359, cell indexes above 11). By default
only these are displayed. Use --show-all to display every frame.

With --pilot the RC switch on the configured GPIO line starts and stops
recordings of the raw stream into numbered slot files in capture.directory.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just anomalies)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	monitorCmd.Flags().BoolVar(&usePilot, "pilot", false, "Record on the pilot switch (overrides pilot.enabled)")
}

// Messages produced by the monitor loop. The TUI receives them through
// Program.Send, text mode through a channel.
type framesMsg struct {
	frames   []monitorFrame
	updates  uint8
	counters hub.Counters
	state    *osd.State // set when updates > 0
}

type monitorFrame struct {
	frame  *hub.Frame
	errors []hub.ValidationError
}

type pilotMsg struct {
	value  uint16
	action pilot.Action
	path   string
	err    error
}

type closedMsg struct {
	err error
}

// monitorSession owns the telemetry table and the optional recording chain
type monitorSession struct {
	telemetry  *hub.Shared
	thresholds osd.Thresholds

	pilotSource     pilotSource
	pilotThresholds pilot.Thresholds
	lastPulse       uint16
	recorder        *capture.FileRecorder
	controller      *capture.Controller
}

func newMonitorSession(c *config.Config) *monitorSession {
	t := hub.New()
	t.SetInvert(c.Serial.Invert)
	return &monitorSession{
		telemetry:       hub.NewShared(t),
		thresholds:      osd.Thresholds{LowCell: c.Display.LowCellMv, WarnCell: c.Display.WarnCellMv},
		pilotThresholds: pilot.Thresholds{Start: c.Pilot.StartUs, Stop: c.Pilot.StopUs},
	}
}

// enableRecording attaches the pilot switch and a recorder for the raw stream
func (m *monitorSession) enableRecording(c *config.Config, source pilotSource) error {
	recorder := capture.NewFileRecorder()
	controller, err := capture.NewController(recorder, c.Capture.Directory, c.Capture.Extension)
	if err != nil {
		return err
	}
	m.pilotSource = source
	m.recorder = recorder
	m.controller = controller
	return nil
}

func (m *monitorSession) recording() bool {
	return m.controller != nil && m.controller.Recording()
}

func (m *monitorSession) state() osd.State {
	return osd.FromSnapshot(m.telemetry.Snapshot(), m.recording())
}

// feed applies one chunk of the stream. The raw bytes go to the recorder
// first so a recording holds exactly what was received.
func (m *monitorSession) feed(chunk []byte) framesMsg {
	if m.recorder != nil {
		if _, err := m.recorder.Write(chunk); err != nil {
			log.Printf("Recording error: %v", err)
		}
	}

	var msg framesMsg
	msg.updates = m.telemetry.FeedFunc(chunk, func(f *hub.Frame) {
		msg.frames = append(msg.frames, monitorFrame{frame: f, errors: hub.ValidateFrame(f)})
	})
	msg.counters = m.telemetry.Counters()
	if msg.updates > 0 {
		s := m.state()
		msg.state = &s
	}
	return msg
}

// pollPilot samples the switch and applies the resulting action. ok is false
// when nothing changed since the last poll.
func (m *monitorSession) pollPilot() (msg pilotMsg, ok bool) {
	value := m.pilotSource.Filter().Value()
	action := m.pilotThresholds.Decide(value, m.controller.Recording())
	if action == pilot.ActionNone && value == m.lastPulse {
		return pilotMsg{}, false
	}
	m.lastPulse = value

	path, err := m.controller.Apply(action)
	return pilotMsg{value: value, action: action, path: path, err: err}, true
}

// run reads conn until ctx is done or the stream ends, emitting a message for
// every chunk and every pilot change
func (m *monitorSession) run(ctx context.Context, conn Connection, emit func(tea.Msg)) {
	data := make(chan []byte, 16)
	var readErr error
	go func() {
		readErr = readStream(ctx, conn, func(chunk []byte) {
			buf := make([]byte, len(chunk))
			copy(buf, chunk)
			select {
			case data <- buf:
			case <-ctx.Done():
			}
		})
		close(data)
	}()

	var pilotTick <-chan time.Time
	if m.pilotSource != nil {
		ticker := time.NewTicker(pilotPollInterval)
		defer ticker.Stop()
		pilotTick = ticker.C
	}

	for {
		select {
		case chunk, ok := <-data:
			if !ok {
				emit(closedMsg{err: readErr})
				return
			}
			emit(m.feed(chunk))

		case <-pilotTick:
			if msg, ok := m.pollPilot(); ok {
				emit(msg)
			}

		case <-ctx.Done():
			return
		}
	}
}

// Close stops a running recording and releases the pilot line
func (m *monitorSession) Close() error {
	var errs []error
	if m.controller != nil {
		if _, err := m.controller.Apply(pilot.ActionStop); err != nil {
			errs = append(errs, err)
		}
	}
	if m.pilotSource != nil {
		if err := m.pilotSource.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	session := newMonitorSession(cfg)
	if cmd.Flags().Changed("pilot") {
		cfg.Pilot.Enabled = usePilot
	}
	if cfg.Pilot.Enabled {
		source, err := openPilotSource(cfg)
		if err != nil {
			return err
		}
		if err := session.enableRecording(cfg, source); err != nil {
			source.Close()
			return err
		}
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("%v", err)
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	if useTUI {
		return runTUIMode(ctx, conn, connInfo, session)
	}
	return runTextMode(ctx, conn, connInfo, session)
}

// runTUIMode runs the monitor with the terminal dashboard
func runTUIMode(ctx context.Context, conn Connection, connInfo string, session *monitorSession) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(connInfo, session, showAll)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.run(ctx, conn, p.Send)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode prints anomalies, OSD changes and periodic statistics
func runTextMode(ctx context.Context, conn Connection, connInfo string, session *monitorSession) error {
	fmt.Printf("hubscope - Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Anomalies only\n")
	}
	if session.controller != nil {
		fmt.Printf("Recording: pilot switch, next slot %d\n", session.controller.NextSlot())
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := hub.NewStatistics()
	synchronized := false
	lastLines := ""

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	ctx, cancel := context.WithCancel(ctx)
	events := make(chan tea.Msg, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		session.run(ctx, conn, func(msg tea.Msg) {
			select {
			case events <- msg:
			case <-ctx.Done():
			}
		})
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		select {
		case msg := <-events:
			switch msg := msg.(type) {
			case framesMsg:
				for _, f := range msg.frames {
					if !synchronized {
						synchronized = true
						if msg.counters.Discarded > 0 {
							fmt.Printf("[SYNC] Synchronized after skipping %d bytes\n\n", msg.counters.Discarded)
						} else {
							fmt.Printf("[SYNC] Synchronized\n\n")
						}
					}

					stats.Update(f.frame, f.errors)
					if len(f.errors) > 0 {
						printValidationErrors(f.frame, f.errors)
					} else if showAll {
						fmt.Print(hub.FormatFrame(f.frame))
					}
				}
				stats.Sync(msg.counters)

				if msg.state != nil {
					lines := formatOSD(*msg.state, session.thresholds)
					if lines != lastLines {
						fmt.Println(lines)
						lastLines = lines
					}
				}

			case pilotMsg:
				printPilot(msg)

			case closedMsg:
				fmt.Println()
				fmt.Print(stats.String())
				return msg.err
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case <-ctx.Done():
			return nil
		}
	}
}

// formatOSD renders the OSD text lines on one terminal line, colored by
// battery level
func formatOSD(s osd.State, t osd.Thresholds) string {
	line := "[OSD] " + strings.Join(s.Lines(), " | ")
	if s.Recording {
		line += " | REC"
	}

	switch s.Level(t) {
	case osd.LevelCritical:
		return "\033[1;31m" + line + " | " + s.Banner(t) + "\033[0m"
	case osd.LevelWarning:
		return "\033[1;33m" + line + "\033[0m"
	}
	return line
}

// printValidationErrors prints the anomalies found in a frame
func printValidationErrors(frame *hub.Frame, issues []hub.ValidationError) {
	timestamp := frame.Timestamp().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m %s (0x%02X) value=%d\n",
		timestamp, hub.SensorName(frame.ID()), frame.ID(), frame.Value())
	for i, err := range issues {
		switch err.Type {
		case hub.AnomalyUnknownSensor:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
		default:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
		}
	}
	fmt.Println()
}

func printPilot(msg pilotMsg) {
	timestamp := time.Now().Format("15:04:05.000")
	switch {
	case msg.err != nil:
		fmt.Printf("[%s] \033[1;31mRECORDING ERROR:\033[0m %v\n", timestamp, msg.err)
	case msg.action == pilot.ActionStart:
		fmt.Printf("[%s] \033[1;32mRECORDING\033[0m %s (pulse %d us)\n", timestamp, msg.path, msg.value)
	case msg.action == pilot.ActionStop:
		fmt.Printf("[%s] \033[1;33mSTOPPED\033[0m (pulse %d us)\n", timestamp, msg.value)
	}
}
