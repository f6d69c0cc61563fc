// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mqtt

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Thermoquad/mitp/pkg/config"
	"github.com/Thermoquad/mitp/pkg/mitp"
)

type nullPort struct{ writes int }

func (p *nullPort) ReadAvailable([]byte) (int, error) { return 0, nil }
func (p *nullPort) Write(b []byte) (int, error) {
	p.writes++
	return len(b), nil
}

func newTestHub(t *testing.T, sources ...string) *mitp.Hub {
	t.Helper()
	logger, _ := test.NewNullLogger()
	h := mitp.NewHub(&nullPort{}, mitp.HubConfig{TemperatureSources: sources}, logrus.NewEntry(logger))
	h.Register(mitp.NewTemperatureSourceSelect(mitp.NopSink{}, sources, h.SelectTemperatureSource))
	return h
}

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "hvac/living"}
	tests := []struct {
		got, want string
	}{
		{topics.Status(), "hvac/living/status"},
		{topics.Sensor(mitp.SensorOutdoorTemperature), "hvac/living/sensor/outdoor_temperature"},
		{topics.Text(mitp.SensorErrorCode), "hvac/living/text/error_code"},
		{topics.Select(mitp.SelectVanePosition), "hvac/living/select/vane_position"},
		{topics.Climate(), "hvac/living/climate"},
		{topics.Command(CommandMode), "hvac/living/set/mode"},
		{topics.Commands(), "hvac/living/set/#"},
		{topics.TemperatureReport("Bedroom"), "hvac/living/set/temperature/Bedroom"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %s, want %s", tt.got, tt.want)
		}
	}
}

func TestFormatSensorValue(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{21.5, "21.5"},
		{-3, "-3"},
		{1234, "1234"},
		{float32(math.NaN()), ""},
	}
	for _, tt := range tests {
		if got := FormatSensorValue(tt.in); got != tt.want {
			t.Errorf("FormatSensorValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClimatePayload(t *testing.T) {
	state := mitp.ClimateState{
		Power:              true,
		Mode:               mitp.ClimateModeHeat,
		FanMode:            mitp.FanModeAuto,
		TargetTemperature:  22,
		CurrentTemperature: float32(math.NaN()),
		Action:             mitp.ActionHeating,
	}
	payload, err := ClimatePayload(state)
	if err != nil {
		t.Fatalf("ClimatePayload failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatal(err)
	}
	if got["mode"] != "heat" || got["action"] != "heating" || got["power"] != true {
		t.Errorf("payload = %s", payload)
	}
	if got["target_temperature"] != 22.0 {
		t.Errorf("target_temperature = %v", got["target_temperature"])
	}
	if v, ok := got["current_temperature"]; !ok || v != nil {
		t.Errorf("current_temperature = %v, want null", v)
	}
}

func TestParseCommand_Errors(t *testing.T) {
	topics := Topics{Prefix: "mitp"}
	tests := []struct {
		name    string
		topic   string
		payload string
		want    error
	}{
		{"outside prefix", "other/set/mode", "heat", ErrUnknownCommand},
		{"unknown command", "mitp/set/turbo", "on", ErrUnknownCommand},
		{"bad target", "mitp/set/target_temperature", "warm", ErrInvalidPayload},
		{"bad power", "mitp/set/power", "maybe", ErrInvalidPayload},
		{"bad report", "mitp/set/temperature/Bedroom", "", ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := ParseCommand(topics, tt.topic, []byte(tt.payload))
			if !errors.Is(err, tt.want) || fn != nil {
				t.Errorf("ParseCommand = %v, %v; want %v", fn != nil, err, tt.want)
			}
		})
	}
}

func TestParseCommand_Accepted(t *testing.T) {
	topics := Topics{Prefix: "mitp"}
	tests := []struct {
		topic   string
		payload string
	}{
		{topics.Command(CommandMode), "cool"},
		{topics.Command(CommandFanMode), "high"},
		{topics.Command(CommandTargetTemperature), " 21.5 "},
		{topics.Command(CommandPower), "ON"},
		{topics.Command(CommandPower), "off"},
		{topics.Command(CommandFilterReset), ""},
		{topics.Command("select/" + mitp.SelectVanePosition), "Auto"},
		{topics.TemperatureReport("Bedroom"), "19.5"},
	}
	for _, tt := range tests {
		if fn, err := ParseCommand(topics, tt.topic, []byte(tt.payload)); err != nil || fn == nil {
			t.Errorf("ParseCommand(%s, %q) = %v", tt.topic, tt.payload, err)
		}
	}
}

func TestParseCommand_TemperatureSource(t *testing.T) {
	topics := Topics{Prefix: "mitp"}
	h := newTestHub(t, "Bedroom")

	selectSource, err := ParseCommand(topics, topics.Command("select/"+mitp.SelectTemperatureSource), []byte("Bedroom"))
	if err != nil {
		t.Fatal(err)
	}
	selectSource(h)
	if h.SelectedTemperatureSource() != "Bedroom" {
		t.Fatalf("selected = %s", h.SelectedTemperatureSource())
	}

	report, err := ParseCommand(topics, topics.TemperatureReport("Bedroom"), []byte("20.5"))
	if err != nil {
		t.Fatal(err)
	}
	report(h)
	if h.Climate().UsingInternalTemperature {
		t.Error("hub still on internal temperature after a report from the selected source")
	}
}

// submitter records submitted commands instead of queueing them on a hub
type submitter struct {
	accept    bool
	submitted int
}

func (s *submitter) Submit(func(*mitp.Hub)) bool {
	s.submitted++
	return s.accept
}

func TestClient_HandleCommand(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := newClient(config.MQTTConfig{TopicPrefix: "mitp"}, logrus.NewEntry(logger))

	s := &submitter{accept: true}
	c.handleCommand(s, "mitp/set/power", []byte("on"))
	c.handleCommand(s, "mitp/set/power", []byte("sideways"))
	if s.submitted != 1 {
		t.Errorf("submitted %d commands, want 1", s.submitted)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Error("rejected payload was not logged")
	}

	hook.Reset()
	full := &submitter{}
	c.handleCommand(full, "mitp/set/filter_reset", nil)
	if len(hook.Entries) != 1 {
		t.Errorf("full queue logged %d entries, want 1", len(hook.Entries))
	}
}

func TestClient_NotConnected(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := newClient(config.MQTTConfig{TopicPrefix: "mitp"}, logrus.NewEntry(logger))

	if c.IsConnected() {
		t.Fatal("unconnected client reports connected")
	}
	if err := c.publish("mitp/sensor/x", []byte("1")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("publish err = %v", err)
	}
	if err := c.Subscribe(&submitter{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe err = %v", err)
	}
	// Sink methods drop silently while offline
	c.PublishSensor(mitp.SensorRuntimeMinutes, 5)
	c.PublishClimate(mitp.ClimateState{})
	if err := c.Close(); err != nil {
		t.Errorf("Close err = %v", err)
	}
}

func TestConnect_UnreachableBroker(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := config.Default().MQTT
	cfg.Broker = "tcp://127.0.0.1:1"

	_, err := Connect(cfg, logrus.NewEntry(logger))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("err = %v, want ErrConnectionFailed", err)
	}
}

func TestClientID(t *testing.T) {
	if got := clientID(config.MQTTConfig{ClientID: "living-room"}); got != "living-room" {
		t.Errorf("clientID = %s", got)
	}
	a, b := clientID(config.MQTTConfig{}), clientID(config.MQTTConfig{})
	if a == b || len(a) != len("mitp-")+8 {
		t.Errorf("generated ids %s, %s", a, b)
	}
}
