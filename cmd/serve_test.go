// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/mitp/pkg/config"
	"github.com/Thermoquad/mitp/pkg/mitp"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestOpenSinks_NoneEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.MQTT.Enabled = false
	cfg.InfluxDB.Enabled = false
	cfg.Metrics.Enabled = false

	sinks, cleanup, err := openSinks(cfg, quietLogger())
	defer cleanup()
	if err != nil {
		t.Fatalf("openSinks: %v", err)
	}
	if len(sinks.all) != 1 {
		t.Fatalf("expected the log fallback sink, got %d sinks", len(sinks.all))
	}
	if _, ok := sinks.all[0].(logSink); !ok {
		t.Errorf("fallback sink is %T, want logSink", sinks.all[0])
	}

	// The fallback must accept every publish
	sinks.all.PublishSensor("compressor_frequency", 42)
	sinks.all.PublishText("error_code", "none")
	sinks.all.PublishSelect(mitp.SelectVanePosition, "Auto")
	sinks.all.PublishClimate(mitp.ClimateState{Mode: mitp.ClimateModeHeat})
}

func TestOpenSinks_MetricsOnly(t *testing.T) {
	cfg := config.Default()
	cfg.MQTT.Enabled = false
	cfg.InfluxDB.Enabled = false
	cfg.Metrics.Enabled = true

	sinks, cleanup, err := openSinks(cfg, quietLogger())
	defer cleanup()
	if err != nil {
		t.Fatalf("openSinks: %v", err)
	}
	if sinks.metrics == nil {
		t.Fatal("metrics exporter not created")
	}
	if sinks.mqtt != nil || sinks.influx != nil {
		t.Error("disabled sinks were opened")
	}
	if len(sinks.all) != 1 {
		t.Errorf("expected only the exporter, got %d sinks", len(sinks.all))
	}
}
