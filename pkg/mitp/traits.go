// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Thermoquad/mitp/pkg/itp"
)

// ClimateMode is an operating mode offered to users
type ClimateMode string

const (
	ClimateModeOff     ClimateMode = "off"
	ClimateModeHeat    ClimateMode = "heat"
	ClimateModeDry     ClimateMode = "dry"
	ClimateModeCool    ClimateMode = "cool"
	ClimateModeFanOnly ClimateMode = "fan_only"
	ClimateModeAuto    ClimateMode = "auto"
)

// SwingMode is a vane swing option
type SwingMode string

const (
	SwingOff        SwingMode = "off"
	SwingVertical   SwingMode = "vertical"
	SwingHorizontal SwingMode = "horizontal"
	SwingBoth       SwingMode = "both"
)

// FanMode is a fan speed option
type FanMode string

const (
	FanModeAuto   FanMode = "auto"
	FanModeQuiet  FanMode = "quiet"
	FanModeLow    FanMode = "low"
	FanModeMedium FanMode = "medium"
	FanModeHigh   FanMode = "high"

	// FanModeVeryHigh is the custom mode for units with five fan speeds
	FanModeVeryHigh FanMode = "Very High"
)

// IsCustom reports whether f has no standard climate equivalent
func (f FanMode) IsCustom() bool {
	return f == FanModeVeryHigh
}

// Traits describes what a unit supports, derived from its capabilities
type Traits struct {
	Modes                []ClimateMode
	SwingModes           []SwingMode
	FanModes             []FanMode
	VisualMinTemperature float32
	VisualMaxTemperature float32
}

// fanModesBySpeedCount maps the advertised number of manual fan speeds to the
// offered fan modes. Counts without an entry offer no manual fan modes.
var fanModesBySpeedCount = map[uint8][]FanMode{
	1: {FanModeHigh},
	2: {FanModeLow, FanModeHigh},
	3: {FanModeLow, FanModeMedium, FanModeHigh},
	4: {FanModeQuiet, FanModeLow, FanModeMedium, FanModeHigh},
	5: {FanModeQuiet, FanModeLow, FanModeMedium, FanModeHigh, FanModeVeryHigh},
}

// CapabilitiesToTraits derives the supported modes, swing modes, fan modes
// and temperature range from a capabilities response.
func CapabilitiesToTraits(c *itp.CapabilitiesResponse) Traits {
	t := Traits{
		Modes: []ClimateMode{ClimateModeCool, ClimateModeOff},
	}

	if !c.IsHeatDisabled() {
		t.Modes = append(t.Modes, ClimateModeHeat)
	}
	if !c.IsDryDisabled() {
		t.Modes = append(t.Modes, ClimateModeDry)
	}
	if !c.IsFanDisabled() {
		t.Modes = append(t.Modes, ClimateModeFanOnly)
	}

	if c.SupportsVaneSwing() {
		t.SwingModes = append(t.SwingModes, SwingOff)
		if c.SupportsVane() {
			t.SwingModes = append(t.SwingModes, SwingVertical)
		}
		if c.SupportsHorizontalVane() {
			t.SwingModes = append(t.SwingModes, SwingHorizontal)
		}
		if c.SupportsVane() && c.SupportsHorizontalVane() {
			t.SwingModes = append(t.SwingModes, SwingBoth)
		}
	}

	t.VisualMinTemperature = min(c.MinCoolDrySetpoint(), c.MinHeatingSetpoint())
	t.VisualMaxTemperature = max(c.MaxCoolDrySetpoint(), c.MaxHeatingSetpoint())

	t.FanModes = append(t.FanModes, fanModesBySpeedCount[c.SupportedFanSpeeds()]...)
	if !c.IsAutoFanSpeedDisabled() {
		t.FanModes = append(t.FanModes, FanModeAuto)
	}

	return t
}

// SupportsMode reports whether m is offered
func (t Traits) SupportsMode(m ClimateMode) bool {
	return slices.Contains(t.Modes, m)
}

// SupportsFanMode reports whether f is offered
func (t Traits) SupportsFanMode(f FanMode) bool {
	return slices.Contains(t.FanModes, f)
}

func (t Traits) String() string {
	join := func(n int, at func(i int) string) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = at(i)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("modes=[%s] swing=[%s] fan=[%s] visual=[%.1f,%.1f]",
		join(len(t.Modes), func(i int) string { return string(t.Modes[i]) }),
		join(len(t.SwingModes), func(i int) string { return string(t.SwingModes[i]) }),
		join(len(t.FanModes), func(i int) string { return string(t.FanModes[i]) }),
		t.VisualMinTemperature, t.VisualMaxTemperature)
}
