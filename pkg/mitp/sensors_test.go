// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"testing"

	"github.com/Thermoquad/mitp/pkg/itp"
)

type published struct {
	name  string
	value any
}

// recordingSink remembers everything published to it
type recordingSink struct {
	events   []published
	climates []ClimateState
}

func (r *recordingSink) PublishSensor(name string, value float32) {
	r.events = append(r.events, published{name, value})
}

func (r *recordingSink) PublishText(name, value string) {
	r.events = append(r.events, published{name, value})
}

func (r *recordingSink) PublishSelect(name, option string) {
	r.events = append(r.events, published{name, option})
}

func (r *recordingSink) PublishClimate(state ClimateState) {
	r.climates = append(r.climates, state)
}

func (r *recordingSink) count(name string) int {
	n := 0
	for _, e := range r.events {
		if e.name == name {
			n++
		}
	}
	return n
}

func (r *recordingSink) last(name string) any {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].name == name {
			return r.events[i].value
		}
	}
	return nil
}

func TestSensor_PublishesOnlyChanges(t *testing.T) {
	sink := &recordingSink{}
	s := NewCompressorFrequencySensor(sink)

	s.Publish()
	if sink.count(SensorCompressorFrequency) != 0 {
		t.Fatal("published before any reading")
	}

	status := itp.NewStatusGetResponse()
	status.SetCompressorFrequency(42)
	s.ProcessStatus(status)
	s.Publish()
	s.ProcessStatus(status)
	s.Publish()

	if sink.count(SensorCompressorFrequency) != 1 {
		t.Errorf("published %d times, want 1", sink.count(SensorCompressorFrequency))
	}
	if s.Value() != 42 || s.Unit() != "Hz" {
		t.Errorf("value = %v %s", s.Value(), s.Unit())
	}

	status.SetCompressorFrequency(50)
	s.ProcessStatus(status)
	s.Publish()
	if sink.last(SensorCompressorFrequency) != float32(50) {
		t.Errorf("last = %v, want 50", sink.last(SensorCompressorFrequency))
	}
}

func TestSensor_StatusAndCurrentTemp(t *testing.T) {
	sink := &recordingSink{}
	watts := NewInputWattsSensor(sink)
	energy := NewLifetimeKWhSensor(sink)
	outdoor := NewOutdoorTemperatureSensor(sink)
	runtime := NewRuntimeSensor(sink)

	status := itp.NewStatusGetResponse()
	status.SetInputWatts(1250)
	status.SetLifetimeKWh(12.5)
	watts.ProcessStatus(status)
	energy.ProcessStatus(status)

	temp := itp.NewCurrentTempGetResponse()
	temp.SetOutdoorTemp(-3.5)
	temp.SetRuntimeMinutes(90)
	outdoor.ProcessCurrentTemp(temp)
	runtime.ProcessCurrentTemp(temp)

	for _, s := range []Sensor{watts, energy, outdoor, runtime} {
		s.Publish()
	}

	tests := []struct {
		name string
		want float32
	}{
		{SensorInputWatts, 1250},
		{SensorLifetimeKWh, 12.5},
		{SensorOutdoorTemperature, -3.5},
		{SensorRuntimeMinutes, 90},
	}
	for _, tt := range tests {
		if got := sink.last(tt.name); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestThermostatTemperatureSensor_ForcePublish(t *testing.T) {
	sink := &recordingSink{}
	s := NewThermostatTemperatureSensor(sink)

	report := itp.NewRemoteTemperatureSetRequest().SetRemoteTemperature(21)
	report.SetContext(itp.Context{Source: itp.SourceThermostat, Association: itp.AssociationThermostat})

	for i := 0; i < 3; i++ {
		s.ProcessRemoteTemperatureSet(report)
		s.Publish()
	}
	s.Publish()

	if sink.count(SensorThermostatTemperature) != 3 {
		t.Errorf("published %d times, want one per report", sink.count(SensorThermostatTemperature))
	}

	// Our own requests to the heat pump are not thermostat readings
	own := itp.NewRemoteTemperatureSetRequest().SetRemoteTemperature(30)
	s.ProcessRemoteTemperatureSet(own)
	s.Publish()
	if s.Value() != 21 {
		t.Errorf("value = %v, want 21", s.Value())
	}
}

func TestErrorCodeSensor(t *testing.T) {
	sink := &recordingSink{}
	s := NewErrorCodeSensor(sink)

	s.ProcessErrorInfo(itp.NewErrorInfoGetResponse())
	s.Publish()
	if s.Value() != "none" {
		t.Errorf("healthy unit shows %q", s.Value())
	}

	fault := itp.NewErrorInfoGetResponse()
	fault.SetErrorCode(0x1234)
	fault.SetShortCode(0x23)
	s.ProcessErrorInfo(fault)
	s.Publish()
	if s.Value() != "E3" {
		t.Errorf("error code = %q, want E3", s.Value())
	}
	if sink.count(SensorErrorCode) != 2 {
		t.Errorf("published %d times, want 2", sink.count(SensorErrorCode))
	}
}

func TestThermostatHumiditySensor(t *testing.T) {
	sink := &recordingSink{}
	s := NewThermostatHumiditySensor(sink)

	status := itp.NewThermostatSensorStatus()
	status.SetIndoorHumidityPercent(45)
	s.ProcessThermostatSensorStatus(status)
	s.Publish()

	if s.Value() != 45 || s.Unit() != "%" {
		t.Errorf("humidity = %v%s", s.Value(), s.Unit())
	}
}

// ============================================================
// Select Tests
// ============================================================

func TestVaneSelect_MirrorsEquipment(t *testing.T) {
	sink := &recordingSink{}
	var requested []string
	s := NewVaneSelect(sink, func(option string) bool {
		requested = append(requested, option)
		return true
	})

	settings := itp.NewSettingsGetResponse()
	settings.SetVane(itp.VaneSwing)
	s.ProcessSettings(settings)
	s.Publish()

	want := itp.FormatVane(itp.VaneSwing)
	if s.Current() != want || sink.last(SelectVanePosition) != want {
		t.Errorf("current = %q, want %q", s.Current(), want)
	}

	if !s.Select(itp.FormatVane(itp.Vane3)) || len(requested) != 1 {
		t.Fatal("selection not forwarded")
	}
	s.Publish()
	if s.Current() != itp.FormatVane(itp.Vane3) {
		t.Errorf("selection not published")
	}
}

func TestSelect_RejectedOptionUnchanged(t *testing.T) {
	sink := &recordingSink{}
	s := NewHorizontalVaneSelect(sink, func(string) bool { return false })

	if s.Select("sideways") {
		t.Fatal("rejected option reported as applied")
	}
	s.Publish()
	if sink.count(SelectHorizontalVanePosition) != 0 {
		t.Errorf("rejected option was published")
	}
}

func TestTemperatureSourceSelect_Options(t *testing.T) {
	sink := &recordingSink{}
	s := NewTemperatureSourceSelect(sink, []string{"Bedroom", TemperatureSourceInternal, "Bedroom"}, func(string) bool { return true })

	if got := s.Options(); len(got) != 2 || got[0] != TemperatureSourceInternal || got[1] != "Bedroom" {
		t.Fatalf("options = %v", got)
	}

	s.Setup(true)
	s.Setup(true)
	if got := s.Options(); len(got) != 3 || got[2] != TemperatureSourceThermostat {
		t.Errorf("options after setup = %v", got)
	}

	s.Publish()
	if s.Current() != TemperatureSourceInternal {
		t.Errorf("initial source = %q, want Internal", s.Current())
	}
}
