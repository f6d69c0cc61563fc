// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/mitp/pkg/itp"
	"github.com/Thermoquad/mitp/pkg/transport"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed packets and errors",
	Long: `Track packet errors, malformed data, and anomalous values with statistics.

This command validates each packet and detects:
  - Checksum errors and framing failures
  - Malformed packets (payloads too short for their kind)
  - Anomalous values (unknown modes or fan speeds, implausible temperatures,
    compressor frequency or input power)
  - Statistics and trends (frame rate, error rate)

By default, only errors are displayed. Use --show-all to display valid packets too.

The link is monitored passively; run it next to the unit's own thermostat to
watch their conversation.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all packets (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events := readFrames(ctx, conn, itp.Context{Source: itp.SourceHeatPump})
	if useTUI {
		return runTUIMode(connInfo, events)
	}
	return runTextMode(connInfo, events)
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(frame *itp.RawFrame, errs []itp.ValidationError) {
	timestamp := frame.Timestamp.Format("15:04:05.000")
	packetType := itp.FormatPacketType(frame.Type)

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (0x%02X) command 0x%02X\n",
		timestamp, packetType, frame.Type, frame.Command())
	fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")

	for i, err := range errs {
		switch err.Type {
		case itp.AnomalyLengthMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			fmt.Printf("    Length: received=%d\n", len(frame.Payload))

		case itp.AnomalyInvalidTemp:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		case itp.AnomalyUnknownPacket:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
			fmt.Printf("    Payload: % X\n", frame.Payload)

		default:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
		}
	}

	fmt.Printf("  >>> PACKET FLAGGED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(connInfo string, events <-chan frameEvent) error {
	p := tea.NewProgram(initialModel(connInfo, statsInterval, showAll))

	// Decoder events feed the TUI
	go func() {
		for ev := range events {
			if ev.readErr != nil {
				p.Send(connectionLostMsg{err: ev.readErr})
				return
			}
			p.Send(frameMsg(ev))
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(connInfo string, events <-chan frameEvent) error {
	fmt.Printf("mitp - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All packets\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := newPacketStats()
	var readings telemetry

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case ev := <-events:
			if ev.readErr != nil {
				fmt.Print(stats.String())
				if errors.Is(ev.readErr, transport.ErrConnectionClosed) {
					return nil
				}
				return fmt.Errorf("read error: %w", ev.readErr)
			}

			errs, synced := stats.record(ev)
			if synced {
				if stats.presync > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", stats.presync)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}

			switch {
			case ev.frame == nil:
				if stats.synchronized {
					printDecodeError(ev.err)
				}
			case len(errs) > 0:
				printValidationErrors(ev.frame, errs)
			default:
				readings.update(ev.packet)
				if ev.packet.Kind() == itp.KindErrorInfoGetResponse {
					// Always print unit error reports
					fmt.Print(itp.FormatPacket(ev.packet))
				} else if showAll {
					fmt.Print(itp.FormatPacket(ev.packet))
				}
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			for _, line := range readings.lines() {
				fmt.Printf("%-11s %s\n", line.label, line.value)
			}
			fmt.Println()
		}
	}
}
