// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import (
	"fmt"
	"strings"
)

// Settings set flags: payload[1] and payload[2] select which fields apply
const (
	settingsFlagPower = 0x01
	settingsFlagMode  = 0x02
	settingsFlagTemp  = 0x04
	settingsFlagFan   = 0x08
	settingsFlagVane  = 0x10

	settingsFlag2HVane = 0x01
)

// SettingsSetRequest changes one or more settings. Only fields whose flag is
// set are applied by the heat pump.
type SettingsSetRequest struct {
	packet
}

// NewSettingsSetRequest builds a settings request with no fields selected
func NewSettingsSetRequest() *SettingsSetRequest {
	return &SettingsSetRequest{newRequest(KindSettingsSetRequest, TypeSetRequest, SetSettings)}
}

func (s *SettingsSetRequest) SetPower(on bool) *SettingsSetRequest {
	s.setFlag(1, settingsFlagPower, true)
	s.setBool(3, on)
	return s
}

func (s *SettingsSetRequest) SetMode(mode uint8) *SettingsSetRequest {
	s.setFlag(1, settingsFlagMode, true)
	s.set(4, mode)
	return s
}

// SetTargetTemperature writes both the legacy and the scale A setpoint bytes.
func (s *SettingsSetRequest) SetTargetTemperature(v float32) *SettingsSetRequest {
	s.setFlag(1, settingsFlagTemp, true)
	s.set(5, DegCToLegacyTargetTemp(v))
	s.set(14, DegCToTempScaleA(v))
	return s
}

func (s *SettingsSetRequest) SetFan(fan uint8) *SettingsSetRequest {
	s.setFlag(1, settingsFlagFan, true)
	s.set(6, fan)
	return s
}

func (s *SettingsSetRequest) SetVane(vane uint8) *SettingsSetRequest {
	s.setFlag(1, settingsFlagVane, true)
	s.set(7, vane)
	return s
}

func (s *SettingsSetRequest) SetHorizontalVane(hvane uint8) *SettingsSetRequest {
	s.setFlag(2, settingsFlag2HVane, true)
	s.set(13, hvane)
	return s
}

func (s *SettingsSetRequest) HasPower() bool          { return s.flag(1, settingsFlagPower) }
func (s *SettingsSetRequest) HasMode() bool           { return s.flag(1, settingsFlagMode) }
func (s *SettingsSetRequest) HasTargetTemp() bool     { return s.flag(1, settingsFlagTemp) }
func (s *SettingsSetRequest) HasFan() bool            { return s.flag(1, settingsFlagFan) }
func (s *SettingsSetRequest) HasVane() bool           { return s.flag(1, settingsFlagVane) }
func (s *SettingsSetRequest) HasHorizontalVane() bool { return s.flag(2, settingsFlag2HVane) }

func (s *SettingsSetRequest) Power() bool           { return s.at(3) != 0 }
func (s *SettingsSetRequest) Mode() uint8           { return s.at(4) }
func (s *SettingsSetRequest) Fan() uint8            { return s.at(6) }
func (s *SettingsSetRequest) Vane() uint8           { return s.at(7) }
func (s *SettingsSetRequest) HorizontalVane() uint8 { return s.at(13) }

// TargetTemp prefers the scale A byte and falls back to the legacy byte
func (s *SettingsSetRequest) TargetTemp() float32 {
	if b := s.at(14); b != 0 {
		return TempScaleAToDegC(b)
	}
	return LegacyTargetTempToDegC(s.at(5))
}

func (s *SettingsSetRequest) String() string {
	var fields []string
	if s.HasPower() {
		fields = append(fields, fmt.Sprintf("power=%t", s.Power()))
	}
	if s.HasMode() {
		fields = append(fields, "mode="+FormatMode(s.Mode()))
	}
	if s.HasTargetTemp() {
		fields = append(fields, fmt.Sprintf("target=%.1f", s.TargetTemp()))
	}
	if s.HasFan() {
		fields = append(fields, "fan="+FormatFan(s.Fan()))
	}
	if s.HasVane() {
		fields = append(fields, "vane="+FormatVane(s.Vane()))
	}
	if s.HasHorizontalVane() {
		fields = append(fields, "hvane="+FormatHorizontalVane(s.HorizontalVane()))
	}
	return "Settings set: " + strings.Join(fields, " ")
}

const remoteTempFlagRemote = 0x01

// RemoteTemperatureSetRequest either supplies an external room temperature or
// tells the heat pump to go back to its own sensor. The two are mutually exclusive.
type RemoteTemperatureSetRequest struct {
	packet
}

// NewRemoteTemperatureSetRequest builds a request selecting the internal sensor
func NewRemoteTemperatureSetRequest() *RemoteTemperatureSetRequest {
	return &RemoteTemperatureSetRequest{newRequest(KindRemoteTemperatureSetRequest, TypeSetRequest, SetRemoteTemperature)}
}

// SetRemoteTemperature selects the remote sensor with the given reading.
func (r *RemoteTemperatureSetRequest) SetRemoteTemperature(v float32) *RemoteTemperatureSetRequest {
	r.set(1, remoteTempFlagRemote)
	r.set(2, DegCToLegacyTSRoomTemp(v))
	r.set(3, DegCToTempScaleA(v))
	return r
}

// UseInternalTemperature clears any remote reading and selects the internal sensor.
func (r *RemoteTemperatureSetRequest) UseInternalTemperature() *RemoteTemperatureSetRequest {
	r.set(1, 0)
	r.set(2, 0)
	r.set(3, 0)
	return r
}

func (r *RemoteTemperatureSetRequest) UsesInternalTemperature() bool {
	return !r.flag(1, remoteTempFlagRemote)
}

// RemoteTemperature returns the supplied reading, preferring scale A.
func (r *RemoteTemperatureSetRequest) RemoteTemperature() float32 {
	if b := r.at(3); b != 0 {
		return TempScaleAToDegC(b)
	}
	return LegacyTSRoomTempToDegC(r.at(2))
}

func (r *RemoteTemperatureSetRequest) String() string {
	if r.UsesInternalTemperature() {
		return "Remote temperature set: use internal"
	}
	return fmt.Sprintf("Remote temperature set: %.1f", r.RemoteTemperature())
}

const runStateFlagFilterReset = 0x01

// SetRunStateRequest changes run-state flags such as the filter reminder.
type SetRunStateRequest struct {
	packet
}

// NewSetRunStateRequest builds a run-state request with no flags selected
func NewSetRunStateRequest() *SetRunStateRequest {
	return &SetRunStateRequest{newRequest(KindSetRunStateRequest, TypeSetRequest, SetRunState)}
}

func (r *SetRunStateRequest) SetFilterReset(reset bool) *SetRunStateRequest {
	r.setFlag(1, runStateFlagFilterReset, reset)
	r.setBool(3, reset)
	return r
}

func (r *SetRunStateRequest) FilterReset() bool {
	return r.flag(1, runStateFlagFilterReset) && r.at(3) != 0
}

func (r *SetRunStateRequest) String() string {
	return fmt.Sprintf("Run state set: filter_reset=%t", r.FilterReset())
}

// SetResponse acknowledges any set request.
type SetResponse struct {
	packet
}

// NewSetResponse builds an acknowledgement for the given set sub-command
func NewSetResponse(command uint8) *SetResponse {
	return &SetResponse{newRequest(KindSetResponse, TypeSetResponse, command)}
}

func (s *SetResponse) String() string {
	return fmt.Sprintf("Set response: %s", FormatSetCommand(s.Command()))
}
