// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"math"

	"github.com/Thermoquad/mitp/pkg/itp"
)

// ClimateAction is what the unit is currently doing
type ClimateAction string

const (
	ActionOff        ClimateAction = "off"
	ActionIdle       ClimateAction = "idle"
	ActionHeating    ClimateAction = "heating"
	ActionCooling    ClimateAction = "cooling"
	ActionDrying     ClimateAction = "drying"
	ActionFan        ClimateAction = "fan"
	ActionPreheating ClimateAction = "preheating"
	ActionDefrosting ClimateAction = "defrosting"
)

// ClimateState is the published thermostat view of the unit
type ClimateState struct {
	Power                    bool
	Mode                     ClimateMode
	FanMode                  FanMode
	Vane                     string
	HorizontalVane           string
	TargetTemperature        float32
	CurrentTemperature       float32
	Action                   ClimateAction
	UsingInternalTemperature bool
	ServiceFilter            bool
}

// equal compares states, treating unknown (NaN) temperatures as equal
func (c ClimateState) equal(o ClimateState) bool {
	sameTemp := func(a, b float32) bool {
		return a == b || (math.IsNaN(float64(a)) && math.IsNaN(float64(b)))
	}
	if !sameTemp(c.TargetTemperature, o.TargetTemperature) || !sameTemp(c.CurrentTemperature, o.CurrentTemperature) {
		return false
	}
	c.TargetTemperature, o.TargetTemperature = 0, 0
	c.CurrentTemperature, o.CurrentTemperature = 0, 0
	return c == o
}

func newClimateState() ClimateState {
	nan := float32(math.NaN())
	return ClimateState{
		Mode:                     ClimateModeOff,
		Action:                   ActionOff,
		TargetTemperature:        nan,
		CurrentTemperature:       nan,
		UsingInternalTemperature: true,
	}
}

var wireModes = []struct {
	wire   uint8
	mode   ClimateMode
	recall int
}{
	{itp.ModeHeat, ClimateModeHeat, RecallHeat},
	{itp.ModeDry, ClimateModeDry, RecallDry},
	{itp.ModeCool, ClimateModeCool, RecallCool},
	{itp.ModeFan, ClimateModeFanOnly, RecallFan},
	{itp.ModeAuto, ClimateModeAuto, RecallAuto},
}

func modeFromWire(b uint8) (ClimateMode, int, bool) {
	for _, m := range wireModes {
		if m.wire == b {
			return m.mode, m.recall, true
		}
	}
	return "", 0, false
}

func modeToWire(mode ClimateMode) (uint8, int, bool) {
	for _, m := range wireModes {
		if m.mode == mode {
			return m.wire, m.recall, true
		}
	}
	return 0, 0, false
}

var wireFans = []struct {
	wire uint8
	fan  FanMode
}{
	{itp.FanAuto, FanModeAuto},
	{itp.FanQuiet, FanModeQuiet},
	{itp.Fan1, FanModeLow},
	{itp.Fan2, FanModeMedium},
	{itp.Fan3, FanModeHigh},
	{itp.Fan4, FanModeVeryHigh},
}

func fanFromWire(b uint8) FanMode {
	for _, f := range wireFans {
		if f.wire == b {
			return f.fan
		}
	}
	return ""
}

func fanToWire(fan FanMode) (uint8, bool) {
	for _, f := range wireFans {
		if f.fan == fan {
			return f.wire, true
		}
	}
	return 0, false
}

// Setpoint limits used until the unit reports its capabilities
const (
	defaultMinSetpoint = 16
	defaultMaxSetpoint = 31
)

// runState holds the run-state flags that shape the climate action
type runState struct {
	operating bool
	defrost   bool
	preheat   bool
	standby   bool
}

func (h *Hub) ProcessSettings(p *itp.SettingsGetResponse) {
	c := h.climate
	c.Power = p.Power()
	c.FanMode = fanFromWire(p.Fan())
	c.Vane = itp.FormatVane(p.Vane())
	c.HorizontalVane = itp.FormatHorizontalVane(p.HorizontalVane())
	c.TargetTemperature = p.TargetTemp()

	mode, recall, known := modeFromWire(p.Mode())
	if !known {
		h.log.Warnf("Unknown mode 0x%02X", p.Mode())
	}
	h.wireMode = mode
	if !c.Power {
		c.Mode = ClimateModeOff
	} else if known {
		c.Mode = mode
		if c.TargetTemperature > 0 {
			h.modeRecall[recall] = c.TargetTemperature
		}
	}
	h.setClimate(c)
}

func (h *Hub) ProcessCurrentTemp(p *itp.CurrentTempGetResponse) {
	c := h.climate
	c.CurrentTemperature = p.CurrentTemp()
	h.setClimate(c)
}

func (h *Hub) ProcessStatus(p *itp.StatusGetResponse) {
	h.run.operating = p.Operating()
	h.setClimate(h.climate)
}

func (h *Hub) ProcessRunState(p *itp.RunStateGetResponse) {
	h.runStateReceived = true
	h.run.defrost = p.InDefrost()
	h.run.preheat = p.InPreheat()
	h.run.standby = p.InStandby()
	c := h.climate
	c.ServiceFilter = p.ServiceFilter()
	h.setClimate(c)
}

func (h *Hub) ProcessErrorInfo(p *itp.ErrorInfoGetResponse) {
	if p.ErrorCode() == h.lastErrorCode {
		return
	}
	h.lastErrorCode = p.ErrorCode()
	if p.HasError() {
		h.log.Errorf("Heat pump reports error %s (0x%04X)", p.ShortCodeString(), p.ErrorCode())
	} else {
		h.log.Info("Heat pump error cleared")
	}
}

// setClimate stores c with a fresh action and marks it for publishing when
// anything changed.
func (h *Hub) setClimate(c ClimateState) {
	c.Action = h.action(c)
	if !c.equal(h.climate) {
		h.climate = c
		h.publishOnUpdate = true
	}
}

func (h *Hub) action(c ClimateState) ClimateAction {
	switch {
	case !c.Power:
		return ActionOff
	case h.run.defrost:
		return ActionDefrosting
	case h.run.preheat:
		return ActionPreheating
	case h.run.standby || !h.run.operating:
		return ActionIdle
	}
	switch c.Mode {
	case ClimateModeHeat:
		return ActionHeating
	case ClimateModeCool:
		return ActionCooling
	case ClimateModeDry:
		return ActionDrying
	case ClimateModeFanOnly:
		return ActionFan
	case ClimateModeAuto:
		if c.CurrentTemperature > c.TargetTemperature {
			return ActionCooling
		}
		return ActionHeating
	}
	return ActionIdle
}

// SetMode switches the operating mode, restoring the setpoint last used in
// that mode. ClimateModeOff powers the unit down.
func (h *Hub) SetMode(mode ClimateMode) bool {
	if mode == ClimateModeOff {
		return h.SetPower(false)
	}
	wire, recall, ok := modeToWire(mode)
	if !ok || (h.traits != nil && mode != ClimateModeAuto && !h.traits.SupportsMode(mode)) {
		h.log.Warnf("Unsupported mode %s", mode)
		return false
	}

	req := itp.NewSettingsSetRequest().SetPower(true).SetMode(wire)
	if sp := h.modeRecall[recall]; sp > 0 {
		req.SetTargetTemperature(sp)
	}
	h.hp.Send(req)
	return true
}

// SetFanMode changes the fan speed
func (h *Hub) SetFanMode(fan FanMode) bool {
	wire, ok := fanToWire(fan)
	if !ok || (h.traits != nil && !h.traits.SupportsFanMode(fan)) {
		h.log.Warnf("Unsupported fan mode %s", fan)
		return false
	}
	h.hp.Send(itp.NewSettingsSetRequest().SetFan(wire))
	return true
}

// SetTargetTemperature changes the setpoint and remembers it for the current mode
func (h *Hub) SetTargetTemperature(v float32) bool {
	lo, hi := float32(defaultMinSetpoint), float32(defaultMaxSetpoint)
	if h.traits != nil {
		lo, hi = h.traits.VisualMinTemperature, h.traits.VisualMaxTemperature
	}
	if math.IsNaN(float64(v)) || v < lo || v > hi {
		h.log.Warnf("Target temperature %.1f outside [%.1f, %.1f]", v, lo, hi)
		return false
	}

	if _, recall, ok := modeToWire(h.wireMode); ok {
		h.modeRecall[recall] = v
		h.publishOnUpdate = true
	}
	h.hp.Send(itp.NewSettingsSetRequest().SetTargetTemperature(v))
	return true
}

// SetPower turns the unit on or off
func (h *Hub) SetPower(on bool) bool {
	h.hp.Send(itp.NewSettingsSetRequest().SetPower(on))
	return true
}

// Climate returns the current climate state
func (h *Hub) Climate() ClimateState {
	return h.climate
}

// ModeRecallSetpoints returns the remembered setpoint of every mode
func (h *Hub) ModeRecallSetpoints() [RecallModeCount]float32 {
	return h.modeRecall
}
