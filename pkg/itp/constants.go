// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package itp implements the serial protocol spoken by split-system heat pumps
// on their indoor-unit connector, and by the wall thermostats that attach to it.
//
// Frames are fixed-header, length-prefixed and protected by an 8-bit additive
// checksum. This package provides frame encoding/decoding with resynchronisation,
// the closed set of typed packet variants, and the byte/temperature scale
// conversions used by their fields.
package itp

// Protocol framing bytes
const (
	StartByte   = 0xFC
	HeaderByte2 = 0x01
	HeaderByte3 = 0x30
)

// Frame size limits
const (
	HeaderSize     = 5 // start, type, 0x01, 0x30, length
	MaxPayloadSize = 32
	MaxFrameSize   = HeaderSize + MaxPayloadSize + 1

	// StandardPayloadSize is the payload length of get/set requests and responses.
	StandardPayloadSize = 16
)

// Packet types - requests (controller → heat pump)
const (
	TypeSetRequest          = 0x41
	TypeGetRequest          = 0x42
	TypeConnectRequest      = 0x5A
	TypeCapabilitiesRequest = 0x5B
)

// Packet types - responses (heat pump → controller)
const (
	TypeSetResponse          = 0x61
	TypeGetResponse          = 0x62
	TypeConnectResponse      = 0x7A
	TypeCapabilitiesResponse = 0x7B
)

// responseOffset is added to a request type to obtain its response type.
const responseOffset = 0x20

// Get request sub-commands (payload[0])
const (
	GetSettings    = 0x02
	GetCurrentTemp = 0x03
	GetErrorInfo   = 0x04
	GetStatus      = 0x06
	GetRunState    = 0x09
)

// Set request sub-commands (payload[0])
const (
	SetSettings                = 0x01
	SetRemoteTemperature       = 0x07
	SetRunState                = 0x08
	SetThermostatSensorStatus  = 0xA6
	SetThermostatHello         = 0xA7
	CapabilitiesCommand        = 0xC9
	connectRequestCommand      = 0xCA
	connectRequestProtocolByte = 0x01
)

// Operating modes carried by settings packets
const (
	ModeHeat = 0x01
	ModeDry  = 0x02
	ModeCool = 0x03
	ModeFan  = 0x07
	ModeAuto = 0x08
)

// Fan speeds carried by settings packets
const (
	FanAuto  = 0x00
	FanQuiet = 0x01
	Fan1     = 0x02
	Fan2     = 0x03
	Fan3     = 0x05
	Fan4     = 0x06
)

// Vertical vane positions
const (
	VaneAuto  = 0x00
	Vane1     = 0x01
	Vane2     = 0x02
	Vane3     = 0x03
	Vane4     = 0x04
	Vane5     = 0x05
	VaneSwing = 0x07
)

// Horizontal vane positions
const (
	HVaneAuto      = 0x00
	HVaneLeftFull  = 0x01
	HVaneLeft      = 0x02
	HVaneCenter    = 0x03
	HVaneRight     = 0x04
	HVaneRightFull = 0x05
	HVaneSplit     = 0x08
	HVaneSwing     = 0x0C

	hVaneMSB = 0x80
)

// NoErrorCode is the error-info code reported by a healthy unit.
const NoErrorCode = 0x8000

// Source identifies the physical link a frame was received on.
type Source uint8

const (
	SourceHeatPump Source = iota
	SourceThermostat
)

func (s Source) String() string {
	if s == SourceThermostat {
		return "thermostat"
	}
	return "heatpump"
}

// Association identifies which controller a frame logically belongs to.
// Frames exchanged on the heat pump link on behalf of an attached thermostat
// carry AssociationThermostat.
type Association uint8

const (
	AssociationController Association = iota
	AssociationThermostat
)

func (a Association) String() string {
	if a == AssociationThermostat {
		return "thermostat"
	}
	return "controller"
}

// Context is the channel context attached to every frame.
type Context struct {
	Source      Source
	Association Association
}

func (c Context) String() string {
	return c.Source.String() + "/" + c.Association.String()
}
