// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import "fmt"

// Capability flag bytes and masks
const (
	capFlags1 = 7
	capFlags2 = 8
	capFlags3 = 9

	capHeatDisabled   = 0x02 // flags1
	capHVane          = 0x04 // flags1
	capFanBit2        = 0x10 // flags1
	capVane           = 0x20 // flags1
	capVaneSwing      = 0x40 // flags1
	capDryDisabled    = 0x01 // flags2
	capFanDisabled    = 0x02 // flags2
	capExtendedRange  = 0x04 // flags2
	capFanBit1        = 0x08 // flags2
	capAutoFanDisable = 0x10 // flags2
	capNoStatusDisp   = 0x01 // flags3
	capFanBit0        = 0x02 // flags3

	capMinCoolDry = 10
	capMaxCoolDry = 11
	capMinHeat    = 12
	capMaxHeat    = 13
	capMinAuto    = 14
	capMaxAuto    = 15
)

// CapabilitiesResponse is the heat pump's feature advertisement.
type CapabilitiesResponse struct {
	packet
}

// NewCapabilitiesResponse builds an advertisement with no flags set, which
// decodes as three fan speeds and no vane control.
func NewCapabilitiesResponse() *CapabilitiesResponse {
	return &CapabilitiesResponse{newRequest(KindCapabilitiesResponse, TypeCapabilitiesResponse, CapabilitiesCommand)}
}

func (c *CapabilitiesResponse) IsHeatDisabled() bool         { return c.flag(capFlags1, capHeatDisabled) }
func (c *CapabilitiesResponse) SupportsHorizontalVane() bool { return c.flag(capFlags1, capHVane) }
func (c *CapabilitiesResponse) SupportsVane() bool           { return c.flag(capFlags1, capVane) }
func (c *CapabilitiesResponse) SupportsVaneSwing() bool      { return c.flag(capFlags1, capVaneSwing) }
func (c *CapabilitiesResponse) IsDryDisabled() bool          { return c.flag(capFlags2, capDryDisabled) }
func (c *CapabilitiesResponse) IsFanDisabled() bool          { return c.flag(capFlags2, capFanDisabled) }
func (c *CapabilitiesResponse) HasExtendedTemperatureRange() bool {
	return c.flag(capFlags2, capExtendedRange)
}
func (c *CapabilitiesResponse) IsAutoFanSpeedDisabled() bool {
	return c.flag(capFlags2, capAutoFanDisable)
}
func (c *CapabilitiesResponse) SupportsStatusDisplay() bool {
	return !c.flag(capFlags3, capNoStatusDisp)
}

// RawFanSpeedBits returns the three scattered fan-speed bits packed as b2 b1 b0.
func (c *CapabilitiesResponse) RawFanSpeedBits() uint8 {
	return (c.at(capFlags1)&capFanBit2)>>2 |
		(c.at(capFlags2)&capFanBit1)>>2 |
		(c.at(capFlags3)&capFanBit0)>>1
}

// SupportedFanSpeeds decodes the number of manual fan speeds. An unrecognised
// bit pattern yields 0.
func (c *CapabilitiesResponse) SupportedFanSpeeds() uint8 {
	switch c.RawFanSpeedBits() {
	case 0:
		return 3
	case 1:
		return 1
	case 2:
		return 2
	case 4:
		return 4
	case 6:
		return 5
	default:
		return 0
	}
}

func (c *CapabilitiesResponse) MinCoolDrySetpoint() float32 {
	return TempScaleAToDegC(c.at(capMinCoolDry))
}
func (c *CapabilitiesResponse) MaxCoolDrySetpoint() float32 {
	return TempScaleAToDegC(c.at(capMaxCoolDry))
}
func (c *CapabilitiesResponse) MinHeatingSetpoint() float32 {
	return TempScaleAToDegC(c.at(capMinHeat))
}
func (c *CapabilitiesResponse) MaxHeatingSetpoint() float32 {
	return TempScaleAToDegC(c.at(capMaxHeat))
}
func (c *CapabilitiesResponse) MinAutoSetpoint() float32 {
	return TempScaleAToDegC(c.at(capMinAuto))
}
func (c *CapabilitiesResponse) MaxAutoSetpoint() float32 {
	return TempScaleAToDegC(c.at(capMaxAuto))
}

// Builder setters, used to fake units in tests and tooling.

func (c *CapabilitiesResponse) SetHeatDisabled(v bool)   { c.setFlag(capFlags1, capHeatDisabled, v) }
func (c *CapabilitiesResponse) SetHorizontalVane(v bool) { c.setFlag(capFlags1, capHVane, v) }
func (c *CapabilitiesResponse) SetVane(v bool)           { c.setFlag(capFlags1, capVane, v) }
func (c *CapabilitiesResponse) SetVaneSwing(v bool)      { c.setFlag(capFlags1, capVaneSwing, v) }
func (c *CapabilitiesResponse) SetDryDisabled(v bool)    { c.setFlag(capFlags2, capDryDisabled, v) }
func (c *CapabilitiesResponse) SetFanDisabled(v bool)    { c.setFlag(capFlags2, capFanDisabled, v) }
func (c *CapabilitiesResponse) SetAutoFanSpeedDisabled(v bool) {
	c.setFlag(capFlags2, capAutoFanDisable, v)
}

// SetSupportedFanSpeeds encodes a fan speed count of 1-5. Other counts write
// the reserved pattern 0b111.
func (c *CapabilitiesResponse) SetSupportedFanSpeeds(count uint8) {
	var bits uint8
	switch count {
	case 1:
		bits = 1
	case 2:
		bits = 2
	case 3:
		bits = 0
	case 4:
		bits = 4
	case 5:
		bits = 6
	default:
		bits = 7
	}
	c.setFlag(capFlags1, capFanBit2, bits&0x04 != 0)
	c.setFlag(capFlags2, capFanBit1, bits&0x02 != 0)
	c.setFlag(capFlags3, capFanBit0, bits&0x01 != 0)
}

// SetSetpointLimits writes the cool/dry and heat setpoint limits.
func (c *CapabilitiesResponse) SetSetpointLimits(minCoolDry, maxCoolDry, minHeat, maxHeat float32) {
	c.set(capMinCoolDry, DegCToTempScaleA(minCoolDry))
	c.set(capMaxCoolDry, DegCToTempScaleA(maxCoolDry))
	c.set(capMinHeat, DegCToTempScaleA(minHeat))
	c.set(capMaxHeat, DegCToTempScaleA(maxHeat))
}

func (c *CapabilitiesResponse) String() string {
	return fmt.Sprintf("Capabilities: heat_disabled=%t dry_disabled=%t fan_disabled=%t vane=%t hvane=%t swing=%t fan_speeds=%d auto_fan_disabled=%t cool/dry=[%.1f,%.1f] heat=[%.1f,%.1f] auto=[%.1f,%.1f] extended_range=%t status_display=%t",
		c.IsHeatDisabled(), c.IsDryDisabled(), c.IsFanDisabled(),
		c.SupportsVane(), c.SupportsHorizontalVane(), c.SupportsVaneSwing(),
		c.SupportedFanSpeeds(), c.IsAutoFanSpeedDisabled(),
		c.MinCoolDrySetpoint(), c.MaxCoolDrySetpoint(),
		c.MinHeatingSetpoint(), c.MaxHeatingSetpoint(),
		c.MinAutoSetpoint(), c.MaxAutoSetpoint(),
		c.HasExtendedTemperatureRange(), c.SupportsStatusDisplay())
}
