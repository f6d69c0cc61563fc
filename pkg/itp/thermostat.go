// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import "fmt"

// Thermostat identity strings are packed as 6-bit characters
const (
	thermostatCharBits    = 6
	thermostatModelChars  = 4
	thermostatSerialChars = 12
)

// ThermostatHello is sent by a wall thermostat when it attaches.
type ThermostatHello struct {
	packet
}

// NewThermostatHello builds an empty hello
func NewThermostatHello() *ThermostatHello {
	return &ThermostatHello{newRequest(KindThermostatHello, TypeSetRequest, SetThermostatHello)}
}

// Model decodes the 4-character model code from payload[1..3]
func (t *ThermostatHello) Model() string {
	return DecodeNBitString(t.payload[min(1, len(t.payload)):], thermostatModelChars, thermostatCharBits)
}

// Serial decodes the 12-character serial number from payload[4..12]
func (t *ThermostatHello) Serial() string {
	return DecodeNBitString(t.payload[min(4, len(t.payload)):], thermostatSerialChars, thermostatCharBits)
}

// Version returns the firmware version from payload[13..15]
func (t *ThermostatHello) Version() string {
	return fmt.Sprintf("%02X.%02X.%02X", t.at(13), t.at(14), t.at(15))
}

func (t *ThermostatHello) String() string {
	return fmt.Sprintf("Thermostat hello: model=%s serial=%s version=%s", t.Model(), t.Serial(), t.Version())
}

// ThermostatSensorStatus reports readings from the thermostat's own sensors.
type ThermostatSensorStatus struct {
	packet
}

// NewThermostatSensorStatus builds an empty sensor status
func NewThermostatSensorStatus() *ThermostatSensorStatus {
	return &ThermostatSensorStatus{newRequest(KindThermostatSensorStatus, TypeSetRequest, SetThermostatSensorStatus)}
}

func (t *ThermostatSensorStatus) IndoorHumidityPercent() uint8 { return t.at(5) }
func (t *ThermostatSensorStatus) BatteryLevel() uint8          { return t.at(6) }

func (t *ThermostatSensorStatus) SetIndoorHumidityPercent(h uint8) { t.set(5, h) }
func (t *ThermostatSensorStatus) SetBatteryLevel(b uint8)          { t.set(6, b) }

func (t *ThermostatSensorStatus) String() string {
	return fmt.Sprintf("Thermostat sensor status: humidity=%d%% battery=%d",
		t.IndoorHumidityPercent(), t.BatteryLevel())
}
