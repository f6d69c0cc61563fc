// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"math"

	"github.com/Thermoquad/mitp/pkg/itp"
)

// Sensor names as published
const (
	SensorCompressorFrequency   = "compressor_frequency"
	SensorInputWatts            = "input_power"
	SensorLifetimeKWh           = "lifetime_energy"
	SensorOutdoorTemperature    = "outdoor_temperature"
	SensorRuntimeMinutes        = "runtime"
	SensorThermostatHumidity    = "thermostat_humidity"
	SensorThermostatTemperature = "thermostat_temperature"
	SensorErrorCode             = "error_code"
	SensorThermostatModel       = "thermostat_model"
	SensorThermostatSerial      = "thermostat_serial"
	SensorThermostatVersion     = "thermostat_version"
)

// Sensor is a numeric entity fed by packets
type Sensor interface {
	Listener
	Name() string
	Unit() string
	Value() float32
}

// sensor publishes its pending value when it is known and differs from the
// last published value.
type sensor struct {
	BaseListener
	name      string
	unit      string
	sink      Sink
	pending   float32
	published float32
}

func newSensor(name, unit string, sink Sink) sensor {
	nan := float32(math.NaN())
	return sensor{name: name, unit: unit, sink: sink, pending: nan, published: nan}
}

func (s *sensor) Name() string   { return s.name }
func (s *sensor) Unit() string   { return s.unit }
func (s *sensor) Value() float32 { return s.published }

func (s *sensor) Publish() {
	if math.IsNaN(float64(s.pending)) || s.pending == s.published {
		return
	}
	s.published = s.pending
	s.sink.PublishSensor(s.name, s.published)
}

type CompressorFrequencySensor struct{ sensor }

func NewCompressorFrequencySensor(sink Sink) *CompressorFrequencySensor {
	return &CompressorFrequencySensor{newSensor(SensorCompressorFrequency, "Hz", sink)}
}

func (s *CompressorFrequencySensor) ProcessStatus(p *itp.StatusGetResponse) {
	s.pending = float32(p.CompressorFrequency())
}

type InputWattsSensor struct{ sensor }

func NewInputWattsSensor(sink Sink) *InputWattsSensor {
	return &InputWattsSensor{newSensor(SensorInputWatts, "W", sink)}
}

func (s *InputWattsSensor) ProcessStatus(p *itp.StatusGetResponse) {
	s.pending = float32(p.InputWatts())
}

type LifetimeKWhSensor struct{ sensor }

func NewLifetimeKWhSensor(sink Sink) *LifetimeKWhSensor {
	return &LifetimeKWhSensor{newSensor(SensorLifetimeKWh, "kWh", sink)}
}

func (s *LifetimeKWhSensor) ProcessStatus(p *itp.StatusGetResponse) {
	s.pending = p.LifetimeKWh()
}

type OutdoorTemperatureSensor struct{ sensor }

func NewOutdoorTemperatureSensor(sink Sink) *OutdoorTemperatureSensor {
	return &OutdoorTemperatureSensor{newSensor(SensorOutdoorTemperature, "°C", sink)}
}

func (s *OutdoorTemperatureSensor) ProcessCurrentTemp(p *itp.CurrentTempGetResponse) {
	s.pending = p.OutdoorTemp()
}

type RuntimeSensor struct{ sensor }

func NewRuntimeSensor(sink Sink) *RuntimeSensor {
	return &RuntimeSensor{newSensor(SensorRuntimeMinutes, "min", sink)}
}

func (s *RuntimeSensor) ProcessCurrentTemp(p *itp.CurrentTempGetResponse) {
	s.pending = float32(p.RuntimeMinutes())
}

type ThermostatHumiditySensor struct{ sensor }

func NewThermostatHumiditySensor(sink Sink) *ThermostatHumiditySensor {
	return &ThermostatHumiditySensor{newSensor(SensorThermostatHumidity, "%", sink)}
}

func (s *ThermostatHumiditySensor) ProcessThermostatSensorStatus(p *itp.ThermostatSensorStatus) {
	s.pending = float32(p.IndoorHumidityPercent())
}

// ThermostatTemperatureSensor publishes after every report, even an unchanged
// one, so the thermostat's reporting rate stays visible.
type ThermostatTemperatureSensor struct {
	sensor
	force bool
}

func NewThermostatTemperatureSensor(sink Sink) *ThermostatTemperatureSensor {
	return &ThermostatTemperatureSensor{sensor: newSensor(SensorThermostatTemperature, "°C", sink)}
}

func (s *ThermostatTemperatureSensor) ProcessRemoteTemperatureSet(p *itp.RemoteTemperatureSetRequest) {
	if p.Context().Source != itp.SourceThermostat || p.UsesInternalTemperature() {
		return
	}
	s.pending = p.RemoteTemperature()
	s.force = true
}

func (s *ThermostatTemperatureSensor) Publish() {
	if math.IsNaN(float64(s.pending)) || (s.pending == s.published && !s.force) {
		return
	}
	s.force = false
	s.published = s.pending
	s.sink.PublishSensor(s.name, s.published)
}

// textSensor publishes a string when it changes
type textSensor struct {
	BaseListener
	name      string
	sink      Sink
	pending   string
	published string
}

func (s *textSensor) Name() string  { return s.name }
func (s *textSensor) Value() string { return s.published }

func (s *textSensor) Publish() {
	if s.pending == "" || s.pending == s.published {
		return
	}
	s.published = s.pending
	s.sink.PublishText(s.name, s.published)
}

// ErrorCodeSensor shows the unit's active fault as its remote-controller code
type ErrorCodeSensor struct{ textSensor }

func NewErrorCodeSensor(sink Sink) *ErrorCodeSensor {
	return &ErrorCodeSensor{textSensor{name: SensorErrorCode, sink: sink}}
}

func (s *ErrorCodeSensor) ProcessErrorInfo(p *itp.ErrorInfoGetResponse) {
	if !p.HasError() {
		s.pending = "none"
		return
	}
	s.pending = p.ShortCodeString()
}

// ThermostatIdentity exposes the model, serial and firmware version an
// attached thermostat announces.
type ThermostatIdentity struct {
	model, serial, version textSensor
}

func NewThermostatIdentity(sink Sink) *ThermostatIdentity {
	return &ThermostatIdentity{
		model:   textSensor{name: SensorThermostatModel, sink: sink},
		serial:  textSensor{name: SensorThermostatSerial, sink: sink},
		version: textSensor{name: SensorThermostatVersion, sink: sink},
	}
}

func (t *ThermostatIdentity) ProcessThermostatHello(p *itp.ThermostatHello) {
	t.model.pending = p.Model()
	t.serial.pending = p.Serial()
	t.version.pending = p.Version()
}

func (t *ThermostatIdentity) Publish() {
	t.model.Publish()
	t.serial.Publish()
	t.version.Publish()
}

func (t *ThermostatIdentity) Setup(bool)                    {}
func (t *ThermostatIdentity) UsingInternalTemperature(bool) {}

// Model returns the last published model code
func (t *ThermostatIdentity) Model() string { return t.model.published }

// Serial returns the last published serial number
func (t *ThermostatIdentity) Serial() string { return t.serial.published }

// Version returns the last published firmware version
func (t *ThermostatIdentity) Version() string { return t.version.published }
