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
	"github.com/Thermoquad/mitp/pkg/mitp"
)

var capabilitiesTimeout int

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Connect to a heat pump and show what it supports",
	Long: `Perform the connect handshake and request the unit's capabilities.

The command sends CONNECT_REQUEST, waits for CONNECT_RESPONSE, then sends
CAPABILITIES_REQUEST and prints the decoded capability flags together with the
modes, fan speeds and temperature range a controller would offer.

Run it with the heat pump's own thermostat disconnected; only one controller
may talk to the unit at a time.

Exit codes:
  0 - Capabilities received
  1 - Handshake or capabilities request timed out
  2 - Connection error`,
	RunE: runCapabilities,
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
	capabilitiesCmd.Flags().IntVar(&capabilitiesTimeout, "timeout", 5, "Timeout in seconds for each response")
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	fmt.Printf("mitp - Capabilities\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", capabilitiesTimeout)

	events := readFrames(ctx, conn, itp.Context{Source: itp.SourceHeatPump})
	timeout := time.Duration(capabilitiesTimeout) * time.Second

	fmt.Printf("Sending CONNECT_REQUEST...\n")
	if err := sendPacket(conn, itp.NewConnectRequest()); err != nil {
		fmt.Printf("SEND FAILED: %v\n", err)
		os.Exit(2)
	}
	if _, err := awaitKind(events, itp.KindConnectResponse, timeout); err != nil {
		exitAwait("CONNECT_RESPONSE", err)
	}
	fmt.Printf("Connected\n")

	fmt.Printf("Sending CAPABILITIES_REQUEST...\n")
	if err := sendPacket(conn, itp.NewCapabilitiesRequest()); err != nil {
		fmt.Printf("SEND FAILED: %v\n", err)
		os.Exit(2)
	}
	packet, err := awaitKind(events, itp.KindCapabilitiesResponse, timeout)
	if err != nil {
		exitAwait("CAPABILITIES_RESPONSE", err)
	}
	caps := packet.(*itp.CapabilitiesResponse)

	fmt.Printf("\n--- Capabilities ---\n")
	fmt.Printf("%s\n", caps)
	fmt.Printf("\n--- Offered traits ---\n")
	fmt.Printf("%s\n", mitp.CapabilitiesToTraits(caps))
	return nil
}

// exitAwait reports a failed wait and exits with the matching code
func exitAwait(what string, err error) {
	if err == errTimeout {
		fmt.Printf("TIMEOUT: no %s received\n", what)
		os.Exit(1)
	}
	fmt.Printf("READ FAILED: %v\n", err)
	os.Exit(2)
}
