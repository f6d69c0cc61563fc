// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Thermoquad/mitp/pkg/mitp"
)

func TestNextOption(t *testing.T) {
	modes := []mitp.ClimateMode{mitp.ClimateModeHeat, mitp.ClimateModeCool, mitp.ClimateModeOff}
	tests := []struct {
		name    string
		current mitp.ClimateMode
		want    mitp.ClimateMode
	}{
		{"advances", mitp.ClimateModeHeat, mitp.ClimateModeCool},
		{"wraps", mitp.ClimateModeOff, mitp.ClimateModeHeat},
		{"unknown starts at first", mitp.ClimateModeDry, mitp.ClimateModeHeat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nextOption(modes, tt.current)
			if !ok || got != tt.want {
				t.Errorf("nextOption(%s) = %s, %v; want %s", tt.current, got, ok, tt.want)
			}
		})
	}

	if _, ok := nextOption([]string{}, "x"); ok {
		t.Error("empty options returned a value")
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func lastLog(m controlModel) errorLogEntry {
	if len(m.errorLog) == 0 {
		return errorLogEntry{}
	}
	return m.errorLog[len(m.errorLog)-1]
}

func TestControlModel_CommandsWithoutHub(t *testing.T) {
	m := initialControlModel("test")

	updated, _ := m.Update(key("p"))
	m = updated.(controlModel)

	entry := lastLog(m)
	if !entry.isError || !strings.Contains(entry.message, "not connected") {
		t.Errorf("last log = %+v, want not connected error", entry)
	}
}

func TestControlModel_ServiceLifecycle(t *testing.T) {
	m := initialControlModel("test")

	updated, _ := m.Update(connectionLostMsg{err: errors.New("port unplugged")})
	m = updated.(controlModel)
	if !m.connectionLost || m.hub != nil {
		t.Error("connection loss not recorded")
	}
	if entry := lastLog(m); !entry.isError || !strings.Contains(entry.message, "port unplugged") {
		t.Errorf("last log = %+v", entry)
	}
}

func TestControlModel_StateMessages(t *testing.T) {
	m := initialControlModel("test")

	msgs := []tea.Msg{
		climateMsg(mitp.ClimateState{
			Power:             true,
			Mode:              mitp.ClimateModeCool,
			FanMode:           mitp.FanModeAuto,
			TargetTemperature: 23.5,
		}),
		selectMsg{name: mitp.SelectVanePosition, option: "swing"},
		sensorMsg{name: "compressor_frequency", value: 42},
		textMsg{name: "error_code", value: "none"},
	}
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(controlModel)
	}

	if m.climate == nil || m.climate.Mode != mitp.ClimateModeCool {
		t.Fatalf("climate = %+v", m.climate)
	}
	if m.sensors["compressor_frequency"] != 42 || m.texts["error_code"] != "none" {
		t.Error("sensor or text state not stored")
	}

	values := make(map[string]string)
	for _, item := range m.controlItems() {
		values[item.key] = item.value
	}
	want := map[string]string{
		controlPower:  "on",
		controlMode:   "cool",
		controlTarget: "23.5°C",
		controlVane:   "swing",
		controlHVane:  "unknown",
	}
	for k, v := range want {
		if values[k] != v {
			t.Errorf("%s = %q, want %q", k, values[k], v)
		}
	}
}

func TestControlModel_SetpointInput(t *testing.T) {
	m := initialControlModel("test")

	updated, _ := m.Update(key("t"))
	m = updated.(controlModel)
	if m.focusedField != focusTargetInput {
		t.Fatal("setpoint shortcut did not focus the input")
	}

	// q types into the input instead of quitting
	updated, _ = m.Update(key("q"))
	m = updated.(controlModel)
	if m.quitting {
		t.Fatal("q quit while the input was focused")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(controlModel)
	if entry := lastLog(m); !entry.isError || !strings.Contains(entry.message, "Invalid setpoint") {
		t.Errorf("last log = %+v, want invalid setpoint", entry)
	}
	if m.focusedField != focusTargetInput {
		t.Error("invalid setpoint left the input")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(controlModel)
	if m.focusedField != focusControls {
		t.Error("esc did not return focus to the controls")
	}
}

func TestControlModel_LogTrimmed(t *testing.T) {
	m := initialControlModel("test")
	m.maxLogEntries = 3
	for i := 0; i < 5; i++ {
		updated, _ := m.Update(logMsg{message: "entry"})
		m = updated.(controlModel)
	}
	if len(m.errorLog) != 3 {
		t.Errorf("log length = %d, want 3", len(m.errorLog))
	}
}

func TestFormatTemperature(t *testing.T) {
	if got := formatTemperature(float32(math.NaN())); got != "unknown" {
		t.Errorf("NaN = %q", got)
	}
	if got := formatTemperature(21.5); got != "21.5°C" {
		t.Errorf("21.5 = %q", got)
	}
}
