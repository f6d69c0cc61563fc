// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"slices"
	"testing"

	"github.com/Thermoquad/mitp/pkg/itp"
)

func TestCapabilitiesToTraits_Modes(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *itp.CapabilitiesResponse)
		want  []ClimateMode
	}{
		{
			name:  "everything enabled",
			setup: func(c *itp.CapabilitiesResponse) {},
			want:  []ClimateMode{ClimateModeCool, ClimateModeOff, ClimateModeHeat, ClimateModeDry, ClimateModeFanOnly},
		},
		{
			name:  "heat disabled",
			setup: func(c *itp.CapabilitiesResponse) { c.SetHeatDisabled(true) },
			want:  []ClimateMode{ClimateModeCool, ClimateModeOff, ClimateModeDry, ClimateModeFanOnly},
		},
		{
			name: "cool only",
			setup: func(c *itp.CapabilitiesResponse) {
				c.SetHeatDisabled(true)
				c.SetDryDisabled(true)
				c.SetFanDisabled(true)
			},
			want: []ClimateMode{ClimateModeCool, ClimateModeOff},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := itp.NewCapabilitiesResponse()
			tt.setup(c)
			got := CapabilitiesToTraits(c).Modes
			if !slices.Equal(got, tt.want) {
				t.Errorf("modes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCapabilitiesToTraits_FanModes(t *testing.T) {
	tests := []struct {
		speeds      uint8
		autoDisable bool
		want        []FanMode
	}{
		{1, false, []FanMode{FanModeHigh, FanModeAuto}},
		{2, false, []FanMode{FanModeLow, FanModeHigh, FanModeAuto}},
		{3, false, []FanMode{FanModeLow, FanModeMedium, FanModeHigh, FanModeAuto}},
		{4, false, []FanMode{FanModeQuiet, FanModeLow, FanModeMedium, FanModeHigh, FanModeAuto}},
		{5, false, []FanMode{FanModeQuiet, FanModeLow, FanModeMedium, FanModeHigh, FanModeVeryHigh, FanModeAuto}},
		{3, true, []FanMode{FanModeLow, FanModeMedium, FanModeHigh}},
		// Reserved pattern: no manual speeds
		{7, false, []FanMode{FanModeAuto}},
	}

	for _, tt := range tests {
		c := itp.NewCapabilitiesResponse()
		c.SetSupportedFanSpeeds(tt.speeds)
		c.SetAutoFanSpeedDisabled(tt.autoDisable)

		got := CapabilitiesToTraits(c).FanModes
		if !slices.Equal(got, tt.want) {
			t.Errorf("speeds=%d autoDisabled=%t: fan modes = %v, want %v", tt.speeds, tt.autoDisable, got, tt.want)
		}
	}
}

func TestCapabilitiesToTraits_SwingModes(t *testing.T) {
	tests := []struct {
		name              string
		swing, vane, hvan bool
		want              []SwingMode
	}{
		{"no swing support", false, true, true, nil},
		{"swing without vanes", true, false, false, []SwingMode{SwingOff}},
		{"vertical only", true, true, false, []SwingMode{SwingOff, SwingVertical}},
		{"horizontal only", true, false, true, []SwingMode{SwingOff, SwingHorizontal}},
		{"both vanes", true, true, true, []SwingMode{SwingOff, SwingVertical, SwingHorizontal, SwingBoth}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := itp.NewCapabilitiesResponse()
			c.SetVaneSwing(tt.swing)
			c.SetVane(tt.vane)
			c.SetHorizontalVane(tt.hvan)
			got := CapabilitiesToTraits(c).SwingModes
			if !slices.Equal(got, tt.want) {
				t.Errorf("swing modes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCapabilitiesToTraits_TemperatureRange(t *testing.T) {
	c := itp.NewCapabilitiesResponse()
	c.SetSetpointLimits(16, 31, 10, 28)

	traits := CapabilitiesToTraits(c)
	if traits.VisualMinTemperature != 10 || traits.VisualMaxTemperature != 31 {
		t.Errorf("visual range = [%.1f, %.1f], want [10, 31]",
			traits.VisualMinTemperature, traits.VisualMaxTemperature)
	}
}

func TestTraits_Supports(t *testing.T) {
	c := itp.NewCapabilitiesResponse()
	c.SetHeatDisabled(true)
	c.SetSupportedFanSpeeds(5)
	traits := CapabilitiesToTraits(c)

	if traits.SupportsMode(ClimateModeHeat) {
		t.Error("heat reported as supported")
	}
	if !traits.SupportsMode(ClimateModeCool) {
		t.Error("cool not supported")
	}
	if !traits.SupportsFanMode(FanModeVeryHigh) || !FanModeVeryHigh.IsCustom() {
		t.Error("five speed unit should offer the custom very high fan mode")
	}
	if FanModeHigh.IsCustom() {
		t.Error("high is a standard fan mode")
	}
}
