// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import (
	"fmt"
	"math"
)

// GetRequest asks the heat pump for one block of state, selected by Command.
type GetRequest struct {
	packet
}

// NewGetRequest builds a get request for one of the Get* sub-commands
func NewGetRequest(command uint8) *GetRequest {
	return &GetRequest{newRequest(KindGetRequest, TypeGetRequest, command)}
}

func (g *GetRequest) String() string {
	return fmt.Sprintf("Get request: %s", FormatGetCommand(g.Command()))
}

// SettingsGetResponse carries power, mode, setpoint, fan and vane settings.
type SettingsGetResponse struct {
	packet
}

// NewSettingsGetResponse builds an empty settings response
func NewSettingsGetResponse() *SettingsGetResponse {
	return &SettingsGetResponse{newRequest(KindSettingsGetResponse, TypeGetResponse, GetSettings)}
}

func (s *SettingsGetResponse) Power() bool { return s.at(3) != 0 }
func (s *SettingsGetResponse) Mode() uint8 { return s.at(4) }
func (s *SettingsGetResponse) Fan() uint8  { return s.at(6) }
func (s *SettingsGetResponse) Vane() uint8 { return s.at(7) }

// HorizontalVane returns the horizontal vane position without its flag bit
func (s *SettingsGetResponse) HorizontalVane() uint8 { return s.at(10) &^ hVaneMSB }

// HorizontalVaneMSB reports the flag bit some units set alongside the position
func (s *SettingsGetResponse) HorizontalVaneMSB() bool { return s.flag(10, hVaneMSB) }

// TargetTemp prefers the scale A setpoint and falls back to the legacy byte
// on units that leave it zero.
func (s *SettingsGetResponse) TargetTemp() float32 {
	if b := s.at(11); b != 0 {
		return TempScaleAToDegC(b)
	}
	return LegacyTargetTempToDegC(s.at(5))
}

func (s *SettingsGetResponse) SetPower(on bool)   { s.setBool(3, on) }
func (s *SettingsGetResponse) SetMode(mode uint8) { s.set(4, mode) }
func (s *SettingsGetResponse) SetFan(fan uint8)   { s.set(6, fan) }
func (s *SettingsGetResponse) SetVane(vane uint8) { s.set(7, vane) }
func (s *SettingsGetResponse) SetHorizontalVane(hvane uint8) {
	s.set(10, hvane&^hVaneMSB|s.at(10)&hVaneMSB)
}
func (s *SettingsGetResponse) SetTargetTemp(v float32) {
	s.set(5, DegCToLegacyTargetTemp(v))
	s.set(11, DegCToTempScaleA(v))
}

func (s *SettingsGetResponse) String() string {
	return fmt.Sprintf("Settings: power=%t mode=%s target=%.1f fan=%s vane=%s hvane=%s",
		s.Power(), FormatMode(s.Mode()), s.TargetTemp(), FormatFan(s.Fan()),
		FormatVane(s.Vane()), FormatHorizontalVane(s.HorizontalVane()))
}

// CurrentTempGetResponse carries room and outdoor temperatures and compressor runtime.
type CurrentTempGetResponse struct {
	packet
}

// NewCurrentTempGetResponse builds an empty current-temperature response
func NewCurrentTempGetResponse() *CurrentTempGetResponse {
	return &CurrentTempGetResponse{newRequest(KindCurrentTempGetResponse, TypeGetResponse, GetCurrentTemp)}
}

// CurrentTemp returns the room temperature measured by the heat pump, preferring
// the scale A byte when present.
func (c *CurrentTempGetResponse) CurrentTemp() float32 {
	if b := c.at(6); b != 0 {
		return TempScaleAToDegC(b)
	}
	return LegacyHPRoomTempToDegC(c.at(3))
}

// OutdoorTemp returns NaN when the unit has no outdoor sensor.
func (c *CurrentTempGetResponse) OutdoorTemp() float32 {
	b := c.at(5)
	if b == 0 {
		return float32(math.NaN())
	}
	return TempScaleAToDegC(b)
}

// RuntimeMinutes returns the cumulative compressor runtime
func (c *CurrentTempGetResponse) RuntimeMinutes() uint32 {
	return c.uint24At(11)
}

func (c *CurrentTempGetResponse) SetCurrentTemp(v float32) {
	c.set(3, DegCToLegacyHPRoomTemp(v))
	c.set(6, DegCToTempScaleA(v))
}
func (c *CurrentTempGetResponse) SetOutdoorTemp(v float32) { c.set(5, DegCToTempScaleA(v)) }
func (c *CurrentTempGetResponse) SetRuntimeMinutes(m uint32) {
	c.set(11, uint8(m>>16))
	c.set(12, uint8(m>>8))
	c.set(13, uint8(m))
}

func (c *CurrentTempGetResponse) String() string {
	return fmt.Sprintf("Current temp: room=%.1f outdoor=%.1f runtime=%dmin",
		c.CurrentTemp(), c.OutdoorTemp(), c.RuntimeMinutes())
}

// ErrorInfoGetResponse reports the unit's active fault, if any.
type ErrorInfoGetResponse struct {
	packet
}

// NewErrorInfoGetResponse builds a response reporting no error
func NewErrorInfoGetResponse() *ErrorInfoGetResponse {
	e := &ErrorInfoGetResponse{newRequest(KindErrorInfoGetResponse, TypeGetResponse, GetErrorInfo)}
	e.SetErrorCode(NoErrorCode)
	return e
}

func (e *ErrorInfoGetResponse) ErrorCode() uint16 { return e.uint16At(4) }
func (e *ErrorInfoGetResponse) ShortCode() uint8  { return e.at(6) }
func (e *ErrorInfoGetResponse) HasError() bool    { return e.ErrorCode() != NoErrorCode }

func (e *ErrorInfoGetResponse) SetErrorCode(code uint16) {
	e.set(4, uint8(code>>8))
	e.set(5, uint8(code))
}
func (e *ErrorInfoGetResponse) SetShortCode(code uint8) { e.set(6, code) }

// ShortCodeString renders the two-character code shown on remote controllers:
// the high nibble selects a letter, the low nibble a hex digit.
func (e *ErrorInfoGetResponse) ShortCodeString() string {
	const letters = "AbEFJLPU"
	code := e.ShortCode()
	return fmt.Sprintf("%c%X", letters[(code>>4)&0x07], code&0x0F)
}

func (e *ErrorInfoGetResponse) String() string {
	if !e.HasError() {
		return "Error info: none"
	}
	return fmt.Sprintf("Error info: code=0x%04X short=%s", e.ErrorCode(), e.ShortCodeString())
}

// StatusGetResponse carries compressor and power telemetry.
type StatusGetResponse struct {
	packet
}

// NewStatusGetResponse builds an empty status response
func NewStatusGetResponse() *StatusGetResponse {
	return &StatusGetResponse{newRequest(KindStatusGetResponse, TypeGetResponse, GetStatus)}
}

func (s *StatusGetResponse) CompressorFrequency() uint8 { return s.at(3) }
func (s *StatusGetResponse) Operating() bool            { return s.at(4) != 0 }
func (s *StatusGetResponse) InputWatts() uint16         { return s.uint16At(5) }

// LifetimeKWh returns total energy use; the wire value counts tenths of a kWh.
func (s *StatusGetResponse) LifetimeKWh() float32 {
	return float32(s.uint16At(7)) / 10
}

func (s *StatusGetResponse) SetCompressorFrequency(hz uint8) { s.set(3, hz) }
func (s *StatusGetResponse) SetOperating(on bool)            { s.setBool(4, on) }
func (s *StatusGetResponse) SetInputWatts(w uint16) {
	s.set(5, uint8(w>>8))
	s.set(6, uint8(w))
}
func (s *StatusGetResponse) SetLifetimeKWh(kwh float32) {
	tenths := uint16(math.Round(float64(kwh) * 10))
	s.set(7, uint8(tenths>>8))
	s.set(8, uint8(tenths))
}

func (s *StatusGetResponse) String() string {
	return fmt.Sprintf("Status: compressor=%dHz operating=%t input=%dW lifetime=%.1fkWh",
		s.CompressorFrequency(), s.Operating(), s.InputWatts(), s.LifetimeKWh())
}

// RunStateGetResponse carries filter, defrost and standby flags. Not every
// unit answers this request.
type RunStateGetResponse struct {
	packet
}

// NewRunStateGetResponse builds an empty run-state response
func NewRunStateGetResponse() *RunStateGetResponse {
	return &RunStateGetResponse{newRequest(KindRunStateGetResponse, TypeGetResponse, GetRunState)}
}

func (r *RunStateGetResponse) ServiceFilter() bool     { return r.at(3) != 0 }
func (r *RunStateGetResponse) InDefrost() bool         { return r.at(4) != 0 }
func (r *RunStateGetResponse) InPreheat() bool         { return r.at(5) != 0 }
func (r *RunStateGetResponse) InStandby() bool         { return r.at(6) != 0 }
func (r *RunStateGetResponse) ActualFan() uint8        { return r.at(7) }
func (r *RunStateGetResponse) AutoMode() uint8         { return r.at(8) }
func (r *RunStateGetResponse) SetServiceFilter(v bool) { r.setBool(3, v) }
func (r *RunStateGetResponse) SetInDefrost(v bool)     { r.setBool(4, v) }
func (r *RunStateGetResponse) SetInPreheat(v bool)     { r.setBool(5, v) }
func (r *RunStateGetResponse) SetInStandby(v bool)     { r.setBool(6, v) }

func (r *RunStateGetResponse) String() string {
	return fmt.Sprintf("Run state: filter=%t defrost=%t preheat=%t standby=%t fan=%s auto_mode=0x%02X",
		r.ServiceFilter(), r.InDefrost(), r.InPreheat(), r.InStandby(), FormatFan(r.ActualFan()), r.AutoMode())
}
