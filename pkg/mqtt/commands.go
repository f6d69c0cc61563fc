// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Thermoquad/mitp/pkg/mitp"
)

// Command names under <prefix>/set/
const (
	CommandMode              = "mode"
	CommandFanMode           = "fan_mode"
	CommandTargetTemperature = "target_temperature"
	CommandPower             = "power"
	CommandFilterReset       = "filter_reset"
	commandSelect            = "select/"
	commandTemperature       = "temperature/"
)

// Commander runs commands on the hub goroutine; *mitp.Hub implements it
type Commander interface {
	Submit(fn func(*mitp.Hub)) bool
}

// Subscribe forwards command topics to commander. The subscription is
// restored after every reconnect.
func (c *Client) Subscribe(commander Commander) error {
	c.mu.Lock()
	c.commander = commander
	c.mu.Unlock()
	return c.subscribe(commander)
}

func (c *Client) subscribe(commander Commander) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Subscribe(c.topics.Commands(), byte(c.cfg.QoS), func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.handleCommand(commander, msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout", ErrSubscribeFailed)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

func (c *Client) handleCommand(commander Commander, topic string, payload []byte) {
	fn, err := ParseCommand(c.topics, topic, payload)
	if err != nil {
		c.log.WithError(err).Warnf("Ignoring command on %s", topic)
		return
	}
	if !commander.Submit(fn) {
		c.log.Warnf("Command on %s dropped", topic)
	}
}

// ParseCommand turns a message on a command topic into a hub command
func ParseCommand(topics Topics, topic string, payload []byte) (func(*mitp.Hub), error) {
	name, ok := topics.command(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, topic)
	}
	value := strings.TrimSpace(string(payload))

	switch {
	case name == CommandMode:
		mode := mitp.ClimateMode(value)
		return func(h *mitp.Hub) { h.SetMode(mode) }, nil

	case name == CommandFanMode:
		fan := mitp.FanMode(value)
		return func(h *mitp.Hub) { h.SetFanMode(fan) }, nil

	case name == CommandTargetTemperature:
		v, err := parseTemperature(value)
		if err != nil {
			return nil, err
		}
		return func(h *mitp.Hub) { h.SetTargetTemperature(v) }, nil

	case name == CommandPower:
		on, err := parsePower(value)
		if err != nil {
			return nil, err
		}
		return func(h *mitp.Hub) { h.SetPower(on) }, nil

	case name == CommandFilterReset:
		return func(h *mitp.Hub) { h.ResetFilterStatus() }, nil

	case strings.HasPrefix(name, commandSelect):
		selectName := strings.TrimPrefix(name, commandSelect)
		return func(h *mitp.Hub) { h.Select(selectName, value) }, nil

	case strings.HasPrefix(name, commandTemperature):
		source := strings.TrimPrefix(name, commandTemperature)
		v, err := parseTemperature(value)
		if err != nil {
			return nil, err
		}
		return func(h *mitp.Hub) { h.TemperatureSourceReport(source, v) }, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

func parseTemperature(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: temperature %q", ErrInvalidPayload, s)
	}
	return float32(v), nil
}

func parsePower(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "ON", "TRUE", "1":
		return true, nil
	case "OFF", "FALSE", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: power %q", ErrInvalidPayload, s)
}
