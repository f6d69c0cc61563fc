// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"slices"

	"github.com/Thermoquad/mitp/pkg/itp"
)

// Select names as published
const (
	SelectVanePosition           = "vane_position"
	SelectHorizontalVanePosition = "horizontal_vane_position"
	SelectTemperatureSource      = "temperature_source"
)

// Select is an enumerated setting users can change
type Select interface {
	Listener
	Name() string
	Options() []string
	Current() string
	// Select applies option. Unknown options are rejected without effect.
	Select(option string) bool
}

// selectEntity mirrors the equipment's reported option and forwards user
// choices to an action.
type selectEntity struct {
	BaseListener
	name      string
	options   []string
	sink      Sink
	action    func(option string) bool
	pending   string
	published string
}

func (s *selectEntity) Name() string      { return s.name }
func (s *selectEntity) Options() []string { return s.options }
func (s *selectEntity) Current() string   { return s.published }

func (s *selectEntity) Select(option string) bool {
	if !s.action(option) {
		return false
	}
	s.pending = option
	return true
}

func (s *selectEntity) Publish() {
	if s.pending == "" || s.pending == s.published {
		return
	}
	s.published = s.pending
	s.sink.PublishSelect(s.name, s.published)
}

// VaneSelect controls the vertical vane position
type VaneSelect struct{ selectEntity }

// NewVaneSelect creates the select; action is normally Hub.SelectVanePosition
func NewVaneSelect(sink Sink, action func(string) bool) *VaneSelect {
	return &VaneSelect{selectEntity{
		name:    SelectVanePosition,
		options: itp.VaneOptions(),
		sink:    sink,
		action:  action,
	}}
}

func (s *VaneSelect) ProcessSettings(p *itp.SettingsGetResponse) {
	s.pending = itp.FormatVane(p.Vane())
}

// HorizontalVaneSelect controls the horizontal vane position
type HorizontalVaneSelect struct{ selectEntity }

// NewHorizontalVaneSelect creates the select; action is normally
// Hub.SelectHorizontalVanePosition
func NewHorizontalVaneSelect(sink Sink, action func(string) bool) *HorizontalVaneSelect {
	return &HorizontalVaneSelect{selectEntity{
		name:    SelectHorizontalVanePosition,
		options: itp.HorizontalVaneOptions(),
		sink:    sink,
		action:  action,
	}}
}

func (s *HorizontalVaneSelect) ProcessSettings(p *itp.SettingsGetResponse) {
	s.pending = itp.FormatHorizontalVane(p.HorizontalVane())
}

// TemperatureSourceSelect chooses which temperature reading the heat pump
// regulates on.
type TemperatureSourceSelect struct {
	selectEntity
}

// NewTemperatureSourceSelect creates the select with Internal plus the
// configured sources. Thermostat is added during Setup when one is attached.
func NewTemperatureSourceSelect(sink Sink, sources []string, action func(string) bool) *TemperatureSourceSelect {
	options := []string{TemperatureSourceInternal}
	for _, src := range sources {
		if !slices.Contains(options, src) {
			options = append(options, src)
		}
	}
	return &TemperatureSourceSelect{selectEntity{
		name:    SelectTemperatureSource,
		options: options,
		sink:    sink,
		action:  action,
		pending: TemperatureSourceInternal,
	}}
}

func (s *TemperatureSourceSelect) Setup(thermostatPresent bool) {
	if thermostatPresent && !slices.Contains(s.options, TemperatureSourceThermostat) {
		s.options = append(s.options, TemperatureSourceThermostat)
	}
}
