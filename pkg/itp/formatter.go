// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import "fmt"

// FormatPacket formats a packet into a human-readable log line
func FormatPacket(p Packet) string {
	timestamp := p.Timestamp().Format("15:04:05.000")
	return fmt.Sprintf("[%s] %-10s %s (0x%02X) len=%d\n  %s\n",
		timestamp, p.Context(), p.Kind(), p.Type(), len(p.Payload()), p.String())
}

// FormatFrame formats a raw frame as wire hex
func FormatFrame(f *RawFrame) string {
	return fmt.Sprintf("% X", f.Bytes())
}

// FormatPacketType returns the human-readable name for a packet type
func FormatPacketType(packetType uint8) string {
	switch packetType {
	case TypeSetRequest:
		return "SET_REQUEST"
	case TypeGetRequest:
		return "GET_REQUEST"
	case TypeConnectRequest:
		return "CONNECT_REQUEST"
	case TypeCapabilitiesRequest:
		return "CAPABILITIES_REQUEST"
	case TypeSetResponse:
		return "SET_RESPONSE"
	case TypeGetResponse:
		return "GET_RESPONSE"
	case TypeConnectResponse:
		return "CONNECT_RESPONSE"
	case TypeCapabilitiesResponse:
		return "CAPABILITIES_RESPONSE"
	default:
		return fmt.Sprintf("UNKNOWN_0x%02X", packetType)
	}
}

// FormatGetCommand returns the name of a get sub-command
func FormatGetCommand(command uint8) string {
	switch command {
	case GetSettings:
		return "SETTINGS"
	case GetCurrentTemp:
		return "CURRENT_TEMP"
	case GetErrorInfo:
		return "ERROR_INFO"
	case GetStatus:
		return "STATUS"
	case GetRunState:
		return "RUN_STATE"
	default:
		return fmt.Sprintf("0x%02X", command)
	}
}

// FormatSetCommand returns the name of a set sub-command
func FormatSetCommand(command uint8) string {
	switch command {
	case SetSettings:
		return "SETTINGS"
	case SetRemoteTemperature:
		return "REMOTE_TEMPERATURE"
	case SetRunState:
		return "RUN_STATE"
	case SetThermostatSensorStatus:
		return "THERMOSTAT_SENSOR_STATUS"
	case SetThermostatHello:
		return "THERMOSTAT_HELLO"
	default:
		return fmt.Sprintf("0x%02X", command)
	}
}

// FormatMode returns the name of an operating mode byte
func FormatMode(mode uint8) string {
	switch mode {
	case ModeHeat:
		return "HEAT"
	case ModeDry:
		return "DRY"
	case ModeCool:
		return "COOL"
	case ModeFan:
		return "FAN"
	case ModeAuto:
		return "AUTO"
	default:
		return fmt.Sprintf("0x%02X", mode)
	}
}

// FormatFan returns the name of a fan speed byte
func FormatFan(fan uint8) string {
	switch fan {
	case FanAuto:
		return "AUTO"
	case FanQuiet:
		return "QUIET"
	case Fan1:
		return "1"
	case Fan2:
		return "2"
	case Fan3:
		return "3"
	case Fan4:
		return "4"
	default:
		return fmt.Sprintf("0x%02X", fan)
	}
}

type option struct {
	name  string
	value uint8
}

var vaneOptions = []option{
	{"Auto", VaneAuto},
	{"1", Vane1},
	{"2", Vane2},
	{"3", Vane3},
	{"4", Vane4},
	{"5", Vane5},
	{"Swing", VaneSwing},
}

var horizontalVaneOptions = []option{
	{"Auto", HVaneAuto},
	{"<<", HVaneLeftFull},
	{"<", HVaneLeft},
	{"|", HVaneCenter},
	{">", HVaneRight},
	{">>", HVaneRightFull},
	{"<>", HVaneSplit},
	{"Swing", HVaneSwing},
}

func optionNames(options []option) []string {
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.name
	}
	return names
}

func optionValue(options []option, name string) (uint8, bool) {
	for _, o := range options {
		if o.name == name {
			return o.value, true
		}
	}
	return 0, false
}

func optionName(options []option, value uint8) string {
	for _, o := range options {
		if o.value == value {
			return o.name
		}
	}
	return fmt.Sprintf("0x%02X", value)
}

// VaneOptions lists the selectable vertical vane positions in display order
func VaneOptions() []string { return optionNames(vaneOptions) }

// VaneFromOption maps a vane option name to its wire value
func VaneFromOption(name string) (uint8, bool) { return optionValue(vaneOptions, name) }

// FormatVane returns the option name of a vane byte
func FormatVane(vane uint8) string { return optionName(vaneOptions, vane) }

// HorizontalVaneOptions lists the selectable horizontal vane positions in display order
func HorizontalVaneOptions() []string { return optionNames(horizontalVaneOptions) }

// HorizontalVaneFromOption maps a horizontal vane option name to its wire value
func HorizontalVaneFromOption(name string) (uint8, bool) {
	return optionValue(horizontalVaneOptions, name)
}

// FormatHorizontalVane returns the option name of a horizontal vane byte
func FormatHorizontalVane(hvane uint8) string { return optionName(horizontalVaneOptions, hvane) }
