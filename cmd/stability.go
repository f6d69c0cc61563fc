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

var stabilityCmd = &cobra.Command{
	Use:   "stability",
	Short: "Test connection stability without sending anything",
	Long: `Listen on the connection for a fixed time without transmitting.

Every decoded frame is logged with its wire bytes and every rejected frame with
its reason. Useful for debugging flaky WebSocket bridges and noisy serial lines.

Exit codes:
  0 - Test completed normally
  1 - Connection dropped during the test
  2 - Connection error`,
	RunE: runStability,
}

var stabilityDuration int

func init() {
	rootCmd.AddCommand(stabilityCmd)
	stabilityCmd.Flags().IntVar(&stabilityDuration, "duration", 30, "Test duration in seconds")
}

func runStability(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	fmt.Printf("mitp - Connection Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", stabilityDuration)

	events := readFrames(ctx, conn, itp.Context{Source: itp.SourceHeatPump})
	startTime := time.Now()
	endTime := startTime.Add(time.Duration(stabilityDuration) * time.Second)
	framesReceived := 0
	framesRejected := 0
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	fmt.Printf("Listening for data...\n\n")

	results := func(result string) {
		fmt.Printf("\n--- Test Results ---\n")
		fmt.Printf("Duration: %v\n", time.Since(startTime).Round(time.Second))
		fmt.Printf("Frames received: %d\n", framesReceived)
		fmt.Printf("Frames rejected: %d\n", framesRejected)
		fmt.Printf("Result: %s\n", result)
	}

	for time.Now().Before(endTime) {
		select {
		case ev := <-events:
			stamp := time.Now().Format("15:04:05.000")
			switch {
			case ev.readErr != nil:
				fmt.Printf("\n[%s] Connection error: %v\n", stamp, ev.readErr)
				results("FAILED (connection error)")
				os.Exit(1)
			case ev.frame == nil:
				framesRejected++
				fmt.Printf("[%s] Rejected: %v\n", stamp, ev.err)
			default:
				framesReceived++
				fmt.Printf("[%s] %s\n", stamp, itp.FormatFrame(ev.frame))
			}

		case <-heartbeat.C:
			// Just a heartbeat to show the test is running
			fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), time.Until(endTime).Seconds())
		}
	}

	results("PASSED (connection stable)")
	return nil
}
