// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mqtt publishes hub entities to an MQTT broker and turns command
// topics into hub commands.
package mqtt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/mitp/pkg/config"
	"github.com/Thermoquad/mitp/pkg/mitp"
)

// Client is an MQTT connection that also serves as a mitp.Sink. Publishing
// never blocks the caller.
type Client struct {
	client    pahomqtt.Client
	cfg       config.MQTTConfig
	topics    Topics
	log       *logrus.Entry
	connected atomic.Bool

	mu        sync.Mutex
	commander Commander
}

var _ mitp.Sink = (*Client)(nil)

// Connect connects to the broker in cfg and marks the bridge online
func Connect(cfg config.MQTTConfig, log *logrus.Entry) (*Client, error) {
	c := newClient(cfg, log)
	opts := buildClientOptions(cfg, clientID(cfg))
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.connected.Store(false)
		c.log.WithError(err).Warn("MQTT connection lost")
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.connected.Store(true)
	c.log.Infof("Connected to MQTT broker %s", cfg.Broker)
	return c, nil
}

func newClient(cfg config.MQTTConfig, log *logrus.Entry) *Client {
	return &Client{
		cfg:    cfg,
		topics: Topics{Prefix: cfg.TopicPrefix},
		log:    log.WithField("component", "mqtt"),
	}
}

// handleConnect runs on every connect and reconnect
func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, payloadOnline)

	c.mu.Lock()
	commander := c.commander
	c.mu.Unlock()
	if commander != nil {
		if err := c.subscribe(commander); err != nil {
			c.log.WithError(err).Warn("Could not restore command subscription")
		}
	}
}

// IsConnected reports whether the broker connection is up
func (c *Client) IsConnected() bool {
	return c.client != nil && c.connected.Load() && c.client.IsConnected()
}

// Topics returns the topic layout in use
func (c *Client) Topics() Topics { return c.topics }

// Close marks the bridge offline and disconnects
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, payloadOffline)
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// publish sends payload without waiting for the broker. Failures are logged
// from a separate goroutine.
func (c *Client) publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, byte(c.cfg.QoS), c.cfg.Retain, payload)
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			c.log.Warnf("%v: %s timed out", ErrPublishFailed, topic)
			return
		}
		if err := token.Error(); err != nil {
			c.log.WithError(err).Warnf("%v: %s", ErrPublishFailed, topic)
		}
	}()
	return nil
}

func (c *Client) publishLogged(topic string, payload []byte) {
	if err := c.publish(topic, payload); err != nil {
		c.log.WithError(err).Debugf("Dropped %s", topic)
	}
}

func (c *Client) PublishSensor(name string, value float32) {
	c.publishLogged(c.topics.Sensor(name), []byte(FormatSensorValue(value)))
}

func (c *Client) PublishText(name, value string) {
	c.publishLogged(c.topics.Text(name), []byte(value))
}

func (c *Client) PublishSelect(name, option string) {
	c.publishLogged(c.topics.Select(name), []byte(option))
}

func (c *Client) PublishClimate(state mitp.ClimateState) {
	payload, err := ClimatePayload(state)
	if err != nil {
		c.log.WithError(err).Warn("Could not encode climate state")
		return
	}
	c.publishLogged(c.topics.Climate(), payload)
}

// FormatSensorValue renders a sensor reading; unknown readings are empty
func FormatSensorValue(v float32) string {
	if math.IsNaN(float64(v)) {
		return ""
	}
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

// climateJSON is the climate state as published
type climateJSON struct {
	Power                    bool     `json:"power"`
	Mode                     string   `json:"mode"`
	FanMode                  string   `json:"fan_mode"`
	Vane                     string   `json:"vane,omitempty"`
	HorizontalVane           string   `json:"horizontal_vane,omitempty"`
	TargetTemperature        *float32 `json:"target_temperature"`
	CurrentTemperature       *float32 `json:"current_temperature"`
	Action                   string   `json:"action"`
	UsingInternalTemperature bool     `json:"using_internal_temperature"`
	ServiceFilter            bool     `json:"service_filter"`
}

// ClimatePayload encodes state as JSON. Unknown temperatures become null.
func ClimatePayload(state mitp.ClimateState) ([]byte, error) {
	known := func(v float32) *float32 {
		if math.IsNaN(float64(v)) {
			return nil
		}
		return &v
	}
	return json.Marshal(climateJSON{
		Power:                    state.Power,
		Mode:                     string(state.Mode),
		FanMode:                  string(state.FanMode),
		Vane:                     state.Vane,
		HorizontalVane:           state.HorizontalVane,
		TargetTemperature:        known(state.TargetTemperature),
		CurrentTemperature:       known(state.CurrentTemperature),
		Action:                   string(state.Action),
		UsingInternalTemperature: state.UsingInternalTemperature,
		ServiceFilter:            state.ServiceFilter,
	})
}
