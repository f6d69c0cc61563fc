// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// mitp - Heat Pump Serial Protocol Bridge
//
// Bridges a heat pump's indoor unit serial protocol to MQTT, InfluxDB and
// Prometheus, with diagnostic tools for the serial link.

package main

import (
	"os"

	"github.com/Thermoquad/mitp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
