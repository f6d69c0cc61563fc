// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/mitp/pkg/config"
	"github.com/Thermoquad/mitp/pkg/logging"
	"github.com/Thermoquad/mitp/pkg/mitp"
	"github.com/Thermoquad/mitp/pkg/service"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling a heat pump",
	Long: `Control a heat pump via an interactive terminal UI.

This command runs the bridge against the heat pump and shows everything it
publishes, connected via WebSocket or UART (direct connection).

Features:
  - Connect handshake and capability discovery
  - Live climate state and sensors
  - Power, mode, fan, setpoint, vane and temperature source control
  - Filter reset
  - Link statistics and event log
  - Automatic reconnection on connection loss

Tab switches between the control list and the setpoint input. Enter activates
the highlighted control; letter shortcuts are shown in the header.

The heat pump link comes from --port/--url or from the configuration file.
A thermostat configured in the file is bridged as well.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// controlRunner keeps a service running for the TUI, reopening the links
// when they fail
type controlRunner struct {
	cfg  *config.Config
	p    *tea.Program
	log  *logrus.Entry
	done chan struct{}
}

func runControl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	connInfo := service.ChannelOptions(cfg.HeatPump).Describe()

	// Create TUI program with alt screen and mouse support
	p := tea.NewProgram(initialControlModel(connInfo), tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Log lines go to the event log instead of the terminal
	logger.SetOutput(io.Discard)
	hook := newProgramHook(p)
	logger.AddHook(hook)
	go hook.forward()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runner := &controlRunner{
		cfg:  cfg,
		p:    p,
		log:  logging.Component(logger, "control"),
		done: make(chan struct{}),
	}
	go runner.run(ctx)

	_, err = p.Run()
	cancel()
	<-runner.done
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// run opens the service and drives it, retrying with exponential backoff
func (r *controlRunner) run(ctx context.Context) {
	defer close(r.done)

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		svc, err := service.Open(r.cfg, programSink{p: r.p}, nil, r.log)
		if err == nil {
			backoff = 1 * time.Second
			r.p.Send(serviceReadyMsg{hub: svc.Hub()})

			err = svc.Run(ctx)
			svc.Close()
			if ctx.Err() != nil {
				return
			}
		}
		if err == nil {
			err = errors.New("service stopped")
		}
		r.p.Send(connectionLostMsg{err: err})

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// programSink forwards published entity states to the TUI
type programSink struct {
	p *tea.Program
}

func (s programSink) PublishSensor(name string, value float32) {
	s.p.Send(sensorMsg{name: name, value: value})
}

func (s programSink) PublishText(name, value string) {
	s.p.Send(textMsg{name: name, value: value})
}

func (s programSink) PublishSelect(name, option string) {
	s.p.Send(selectMsg{name: name, option: option})
}

func (s programSink) PublishClimate(state mitp.ClimateState) {
	s.p.Send(climateMsg(state))
}

// programHook copies log entries into the TUI event log. Entries are queued
// so logging from the TUI goroutine itself never blocks on the program.
type programHook struct {
	p       *tea.Program
	entries chan logMsg
}

func newProgramHook(p *tea.Program) *programHook {
	return &programHook{p: p, entries: make(chan logMsg, 64)}
}

func (h *programHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
}

func (h *programHook) Fire(entry *logrus.Entry) error {
	select {
	case h.entries <- logMsg{timestamp: entry.Time, message: entry.Message, isError: entry.Level <= logrus.WarnLevel}:
	default:
	}
	return nil
}

func (h *programHook) forward() {
	for msg := range h.entries {
		h.p.Send(msg)
	}
}
