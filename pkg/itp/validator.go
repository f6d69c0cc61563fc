// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import (
	"fmt"
	"math"
)

// AnomalyType represents different types of packet anomalies
type AnomalyType int

const (
	AnomalyLengthMismatch AnomalyType = iota
	AnomalyInvalidMode
	AnomalyInvalidFan
	AnomalyInvalidVane
	AnomalyInvalidTemp
	AnomalyInvalidValue
	AnomalyUnknownPacket
)

// ValidationError represents a packet validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// Plausibility limits for telemetry values
const (
	maxCompressorHz  = 150
	maxInputWatts    = 10000
	minPlausibleTemp = -40
	maxPlausibleTemp = 60
)

// ValidatePacket checks decoded fields for values a healthy unit never reports.
// Returns a slice of validation errors (empty if packet is valid)
func ValidatePacket(p Packet) []ValidationError {
	errors := []ValidationError{}

	if len(p.Payload()) < StandardPayloadSize && p.Kind() != KindConnectRequest &&
		p.Kind() != KindConnectResponse && p.Kind() != KindCapabilitiesRequest &&
		p.Kind() != KindSetResponse && p.Kind() != KindUnknown {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("%s payload too short (expected %d bytes)", p.Kind(), StandardPayloadSize),
			Details: map[string]interface{}{"length": len(p.Payload()), "expected": StandardPayloadSize},
		})
		return errors
	}

	switch pkt := p.(type) {
	case *SettingsGetResponse:
		errors = append(errors, validateSettings(pkt.Mode(), pkt.Fan(), pkt.Vane(), pkt.HorizontalVane())...)
		errors = append(errors, validateTemp("target temperature", pkt.TargetTemp())...)
	case *SettingsSetRequest:
		if pkt.HasMode() {
			errors = append(errors, validateSettings(pkt.Mode(), FanAuto, VaneAuto, HVaneAuto)...)
		}
		if pkt.HasFan() {
			errors = append(errors, validateSettings(ModeAuto, pkt.Fan(), VaneAuto, HVaneAuto)...)
		}
		if pkt.HasVane() {
			errors = append(errors, validateSettings(ModeAuto, FanAuto, pkt.Vane(), HVaneAuto)...)
		}
		if pkt.HasHorizontalVane() {
			errors = append(errors, validateSettings(ModeAuto, FanAuto, VaneAuto, pkt.HorizontalVane())...)
		}
	case *CurrentTempGetResponse:
		errors = append(errors, validateTemp("room temperature", pkt.CurrentTemp())...)
		if outdoor := pkt.OutdoorTemp(); !math.IsNaN(float64(outdoor)) {
			errors = append(errors, validateTemp("outdoor temperature", outdoor)...)
		}
	case *StatusGetResponse:
		if pkt.CompressorFrequency() > maxCompressorHz {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Compressor frequency %dHz (max %d)", pkt.CompressorFrequency(), maxCompressorHz),
				Details: map[string]interface{}{"frequency": pkt.CompressorFrequency(), "max": maxCompressorHz},
			})
		}
		if pkt.InputWatts() > maxInputWatts {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Input power %dW (max %d)", pkt.InputWatts(), maxInputWatts),
				Details: map[string]interface{}{"watts": pkt.InputWatts(), "max": maxInputWatts},
			})
		}
	case *UnknownPacket:
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownPacket,
			Message: fmt.Sprintf("Unknown packet type 0x%02X command 0x%02X", pkt.Type(), pkt.Command()),
			Details: map[string]interface{}{"type": pkt.Type(), "command": pkt.Command()},
		})
	}

	return errors
}

func validateSettings(mode, fan, vane, hvane uint8) []ValidationError {
	errors := []ValidationError{}

	switch mode {
	case ModeHeat, ModeDry, ModeCool, ModeFan, ModeAuto:
	default:
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidMode,
			Message: fmt.Sprintf("Invalid mode 0x%02X", mode),
			Details: map[string]interface{}{"mode": mode},
		})
	}

	switch fan {
	case FanAuto, FanQuiet, Fan1, Fan2, Fan3, Fan4:
	default:
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidFan,
			Message: fmt.Sprintf("Invalid fan speed 0x%02X", fan),
			Details: map[string]interface{}{"fan": fan},
		})
	}

	if _, ok := optionValue(vaneOptions, FormatVane(vane)); !ok {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidVane,
			Message: fmt.Sprintf("Invalid vane position 0x%02X", vane),
			Details: map[string]interface{}{"vane": vane},
		})
	}
	if _, ok := optionValue(horizontalVaneOptions, FormatHorizontalVane(hvane)); !ok {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidVane,
			Message: fmt.Sprintf("Invalid horizontal vane position 0x%02X", hvane),
			Details: map[string]interface{}{"hvane": hvane},
		})
	}

	return errors
}

func validateTemp(name string, v float32) []ValidationError {
	if v >= minPlausibleTemp && v <= maxPlausibleTemp {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyInvalidTemp,
		Message: fmt.Sprintf("%s out of range (%.1f°C, valid: %d to %d°C)", name, v, minPlausibleTemp, maxPlausibleTemp),
		Details: map[string]interface{}{"value": v, "min": minPlausibleTemp, "max": maxPlausibleTemp},
	}}
}
