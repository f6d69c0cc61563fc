// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/mitp/pkg/itp"
	"github.com/Thermoquad/mitp/pkg/transport"
)

var rawLogHex bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw packet log in human-readable format",
	Long: `Continuously decode and display heat pump protocol packets as they arrive.

Each packet is shown with timestamp, packet kind, and decoded payload fields.
Use --hex to also print the wire bytes of every frame.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogHex, "hex", false, "Print the wire bytes of each frame")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	fmt.Printf("mitp - Raw Packet Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for ev := range readFrames(ctx, conn, itp.Context{Source: itp.SourceHeatPump}) {
		switch {
		case ev.readErr != nil:
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if errors.Is(ev.readErr, transport.ErrConnectionClosed) {
				log.Printf("Connection closed")
				return nil
			}
			return fmt.Errorf("read error: %w", ev.readErr)
		case ev.err != nil:
			fmt.Printf("[ERROR] %v\n", ev.err)
		default:
			fmt.Print(itp.FormatPacket(ev.packet))
			if rawLogHex {
				fmt.Printf("  %s\n", itp.FormatFrame(ev.frame))
			}
		}
	}
	return nil
}
