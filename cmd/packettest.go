// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/mitp/pkg/itp"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid packet",
	Long: `Wait for a valid protocol frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
frame. It ignores invalid bytes and waits for a complete frame whose checksum
verifies. The link is passive; nothing is sent.

Exit codes:
  0 - Packet received before timeout
  1 - Timeout reached without receiving a valid packet
  2 - Connection error

Useful for checking wiring and parity settings while a thermostat or another
controller is talking to the heat pump.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a packet")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	fmt.Printf("mitp - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for a valid frame...\n\n")

	events := readFrames(ctx, conn, itp.Context{Source: itp.SourceHeatPump})
	timeout := time.After(time.Duration(packetTestTimeout) * time.Second)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				os.Exit(2)
			}
			if ev.readErr != nil {
				fmt.Fprintf(os.Stderr, "Read error: %v\n", ev.readErr)
				os.Exit(2)
			}
			if ev.frame == nil {
				continue
			}
			if ev.skipped > 0 {
				fmt.Printf("(skipped %d invalid bytes before sync)\n", ev.skipped)
			}
			fmt.Printf("SUCCESS: Received valid frame\n")
			fmt.Printf("  Type: %s (0x%02X)\n", itp.FormatPacketType(ev.frame.Type), ev.frame.Type)
			if ev.packet != nil {
				fmt.Printf("  Kind: %s\n", ev.packet.Kind())
			}
			fmt.Printf("  Length: %d bytes\n", len(ev.frame.Payload))
			fmt.Printf("  Checksum: 0x%02X\n", ev.frame.Checksum)
			os.Exit(0)

		case <-timeout:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid packet received within %d seconds\n", packetTestTimeout)
			os.Exit(1)
		}
	}
}
