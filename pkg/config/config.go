// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the bridge configuration: defaults, then a YAML file,
// then MITP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the root configuration
type Config struct {
	HeatPump          ChannelConfig           `yaml:"heatpump"`
	Thermostat        ChannelConfig           `yaml:"thermostat"`
	Bridge            BridgeConfig            `yaml:"bridge"`
	TemperatureSource TemperatureSourceConfig `yaml:"temperature_source"`
	MQTT              MQTTConfig              `yaml:"mqtt"`
	InfluxDB          InfluxDBConfig          `yaml:"influxdb"`
	Store             StoreConfig             `yaml:"store"`
	Metrics           MetricsConfig           `yaml:"metrics"`
	Logging           LoggingConfig           `yaml:"logging"`
}

// ChannelConfig describes one serial link, local or over WebSocket
type ChannelConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// Enabled reports whether the channel points at a device
func (c ChannelConfig) Enabled() bool {
	return c.Port != "" || c.URL != ""
}

// BridgeConfig controls the hub's update cycle
type BridgeConfig struct {
	UpdateInterval time.Duration `yaml:"update_interval"`
	LoopInterval   time.Duration `yaml:"loop_interval"`
	Passthrough    bool          `yaml:"passthrough"`
}

// TemperatureSourceConfig controls remote temperature handling
type TemperatureSourceConfig struct {
	Sources      []string      `yaml:"sources"`
	Timeout      time.Duration `yaml:"timeout"`
	EchoInterval time.Duration `yaml:"echo_interval"`
}

// MQTTConfig configures entity publishing
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

// InfluxDBConfig configures sensor history
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// StoreConfig configures the preference store
type StoreConfig struct {
	Path string `yaml:"path"`
	Key  string `yaml:"key"`
}

// MetricsConfig configures the HTTP metrics and state endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		HeatPump:   ChannelConfig{Baud: 2400},
		Thermostat: ChannelConfig{Baud: 2400},
		Bridge: BridgeConfig{
			UpdateInterval: 5 * time.Second,
			LoopInterval:   10 * time.Millisecond,
		},
		TemperatureSource: TemperatureSourceConfig{
			Timeout: 8 * time.Minute,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "mitp",
			QoS:         1,
			Retain:      true,
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "mitp",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Store: StoreConfig{
			Path: "./data/mitp.db",
		},
		Metrics: MetricsConfig{
			Listen: ":9380",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads the configuration and validates it
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads path over the defaults and applies environment overrides
// without validating, so callers can apply flags first. An empty path skips
// the file.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies MITP_SECTION_KEY variables
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"MITP_HEATPUMP_PORT":     &cfg.HeatPump.Port,
		"MITP_HEATPUMP_URL":      &cfg.HeatPump.URL,
		"MITP_HEATPUMP_USERNAME": &cfg.HeatPump.Username,
		"MITP_HEATPUMP_PASSWORD": &cfg.HeatPump.Password,
		"MITP_THERMOSTAT_PORT":   &cfg.Thermostat.Port,
		"MITP_THERMOSTAT_URL":    &cfg.Thermostat.URL,
		"MITP_MQTT_BROKER":       &cfg.MQTT.Broker,
		"MITP_MQTT_USERNAME":     &cfg.MQTT.Username,
		"MITP_MQTT_PASSWORD":     &cfg.MQTT.Password,
		"MITP_INFLUXDB_URL":      &cfg.InfluxDB.URL,
		"MITP_INFLUXDB_TOKEN":    &cfg.InfluxDB.Token,
		"MITP_STORE_PATH":        &cfg.Store.Path,
		"MITP_METRICS_LISTEN":    &cfg.Metrics.Listen,
		"MITP_LOGGING_LEVEL":     &cfg.Logging.Level,
		"MITP_LOGGING_FORMAT":    &cfg.Logging.Format,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"MITP_BRIDGE_PASSTHROUGH": &cfg.Bridge.Passthrough,
		"MITP_MQTT_ENABLED":       &cfg.MQTT.Enabled,
		"MITP_INFLUXDB_ENABLED":   &cfg.InfluxDB.Enabled,
		"MITP_METRICS_ENABLED":    &cfg.Metrics.Enabled,
	}
	for key, dst := range bools {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}

	if v := os.Getenv("MITP_TEMPERATURE_SOURCES"); v != "" {
		cfg.TemperatureSource.Sources = strings.Split(v, ",")
	}
	return nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	var errs []string

	if !c.HeatPump.Enabled() {
		errs = append(errs, "heatpump.port or heatpump.url is required")
	}
	channels := []struct {
		name string
		ch   ChannelConfig
	}{{"heatpump", c.HeatPump}, {"thermostat", c.Thermostat}}
	for _, channel := range channels {
		name, ch := channel.name, channel.ch
		if ch.Baud < 0 {
			errs = append(errs, name+".baud must be positive")
		}
		if ch.URL != "" && !strings.HasPrefix(ch.URL, "ws://") && !strings.HasPrefix(ch.URL, "wss://") {
			errs = append(errs, name+".url must start with ws:// or wss://")
		}
	}
	if c.Bridge.UpdateInterval < time.Second {
		errs = append(errs, "bridge.update_interval must be at least 1s")
	}
	if c.Bridge.LoopInterval <= 0 {
		errs = append(errs, "bridge.loop_interval must be positive")
	}
	if c.TemperatureSource.Timeout <= 0 {
		errs = append(errs, "temperature_source.timeout must be positive")
	}
	if c.TemperatureSource.EchoInterval < 0 {
		errs = append(errs, "temperature_source.echo_interval must not be negative")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics are enabled")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, "logging.format must be text or json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}
