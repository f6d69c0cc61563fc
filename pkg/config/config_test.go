// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mitp.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
heatpump:
  port: /dev/ttyUSB0
thermostat:
  url: ws://bridge.local/serial
  username: admin
bridge:
  update_interval: 2s
  passthrough: true
temperature_source:
  sources: [Bedroom, Office]
  timeout: 5m
  echo_interval: 30s
mqtt:
  enabled: true
  topic_prefix: hvac/living
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HeatPump.Port != "/dev/ttyUSB0" || cfg.HeatPump.Baud != 2400 {
		t.Errorf("heatpump = %+v", cfg.HeatPump)
	}
	if !cfg.Thermostat.Enabled() || cfg.Thermostat.Username != "admin" {
		t.Errorf("thermostat = %+v", cfg.Thermostat)
	}
	if cfg.Bridge.UpdateInterval != 2*time.Second || !cfg.Bridge.Passthrough {
		t.Errorf("bridge = %+v", cfg.Bridge)
	}
	if cfg.Bridge.LoopInterval != 10*time.Millisecond {
		t.Errorf("default loop interval lost: %s", cfg.Bridge.LoopInterval)
	}
	ts := cfg.TemperatureSource
	if len(ts.Sources) != 2 || ts.Timeout != 5*time.Minute || ts.EchoInterval != 30*time.Second {
		t.Errorf("temperature_source = %+v", ts)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.TopicPrefix != "hvac/living" || cfg.MQTT.QoS != 1 {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "heatpump:\n  port: /dev/ttyUSB0\n")
	t.Setenv("MITP_HEATPUMP_PORT", "/dev/ttyAMA0")
	t.Setenv("MITP_BRIDGE_PASSTHROUGH", "true")
	t.Setenv("MITP_TEMPERATURE_SOURCES", "Kitchen,Hall")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HeatPump.Port != "/dev/ttyAMA0" {
		t.Errorf("port = %s", cfg.HeatPump.Port)
	}
	if !cfg.Bridge.Passthrough {
		t.Error("passthrough not enabled from environment")
	}
	if strings.Join(cfg.TemperatureSource.Sources, ",") != "Kitchen,Hall" {
		t.Errorf("sources = %v", cfg.TemperatureSource.Sources)
	}
}

func TestLoad_BadEnvironmentBool(t *testing.T) {
	t.Setenv("MITP_HEATPUMP_PORT", "/dev/ttyUSB0")
	t.Setenv("MITP_MQTT_ENABLED", "maybe")

	if _, err := Load(""); err == nil {
		t.Error("invalid boolean accepted")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := Load(writeConfig(t, "heatpump: [not a map")); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestRead_SkipsValidation(t *testing.T) {
	cfg, err := Read("")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if cfg.HeatPump.Enabled() {
		t.Fatal("default heat pump channel should be empty")
	}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Validate() = %v, want ErrInvalid", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"websocket heat pump", func(c *Config) { c.HeatPump = ChannelConfig{URL: "wss://host/serial"} }, ""},
		{"no heat pump", func(c *Config) { c.HeatPump = ChannelConfig{} }, "heatpump.port"},
		{"bad url scheme", func(c *Config) { c.Thermostat.URL = "http://host" }, "thermostat.url"},
		{"fast update", func(c *Config) { c.Bridge.UpdateInterval = 100 * time.Millisecond }, "update_interval"},
		{"zero timeout", func(c *Config) { c.TemperatureSource.Timeout = 0 }, "temperature_source.timeout"},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"influx without bucket", func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.Bucket = ""
		}, "influxdb"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.HeatPump.Port = "/dev/ttyUSB0"
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
