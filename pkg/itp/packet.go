// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import (
	"fmt"
	"time"
)

// Kind discriminates the closed set of packet variants.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConnectRequest
	KindConnectResponse
	KindCapabilitiesRequest
	KindCapabilitiesResponse
	KindGetRequest
	KindSettingsGetResponse
	KindCurrentTempGetResponse
	KindErrorInfoGetResponse
	KindStatusGetResponse
	KindRunStateGetResponse
	KindSettingsSetRequest
	KindRemoteTemperatureSetRequest
	KindSetRunStateRequest
	KindThermostatSensorStatus
	KindThermostatHello
	KindSetResponse

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:                     "UNKNOWN",
	KindConnectRequest:              "CONNECT_REQUEST",
	KindConnectResponse:             "CONNECT_RESPONSE",
	KindCapabilitiesRequest:         "CAPABILITIES_REQUEST",
	KindCapabilitiesResponse:        "CAPABILITIES_RESPONSE",
	KindGetRequest:                  "GET_REQUEST",
	KindSettingsGetResponse:         "SETTINGS_GET_RESPONSE",
	KindCurrentTempGetResponse:      "CURRENT_TEMP_GET_RESPONSE",
	KindErrorInfoGetResponse:        "ERROR_INFO_GET_RESPONSE",
	KindStatusGetResponse:           "STATUS_GET_RESPONSE",
	KindRunStateGetResponse:         "RUN_STATE_GET_RESPONSE",
	KindSettingsSetRequest:          "SETTINGS_SET_REQUEST",
	KindRemoteTemperatureSetRequest: "REMOTE_TEMPERATURE_SET_REQUEST",
	KindSetRunStateRequest:          "SET_RUN_STATE_REQUEST",
	KindThermostatSensorStatus:      "THERMOSTAT_SENSOR_STATUS",
	KindThermostatHello:             "THERMOSTAT_HELLO",
	KindSetResponse:                 "SET_RESPONSE",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("KIND_%d", uint8(k))
}

// Kinds returns every known variant kind, KindUnknown included.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := KindUnknown; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Packet is a typed view over one frame's payload.
type Packet interface {
	Kind() Kind
	Type() uint8
	Payload() []byte

	// Frame encodes the packet with a fresh checksum.
	Frame() *RawFrame

	// ExpectsResponse reports whether a bridge must wait for a reply after sending.
	ExpectsResponse() bool

	Context() Context
	Timestamp() time.Time
	String() string
}

// packet holds the wire fields shared by every variant. Variants read and write
// their fields directly in payload, so encoding a decoded packet reproduces its
// payload byte for byte.
type packet struct {
	kind       Kind
	packetType uint8
	payload    []byte
	ctx        Context
	timestamp  time.Time
}

func newPacket(kind Kind, packetType uint8, payload []byte) packet {
	return packet{
		kind:       kind,
		packetType: packetType,
		payload:    payload,
		timestamp:  time.Now(),
	}
}

func newRequest(kind Kind, packetType, command uint8) packet {
	payload := make([]byte, StandardPayloadSize)
	payload[0] = command
	return newPacket(kind, packetType, payload)
}

func fromFrame(kind Kind, f *RawFrame) packet {
	return packet{
		kind:       kind,
		packetType: f.Type,
		payload:    f.Payload,
		ctx:        f.Context,
		timestamp:  f.Timestamp,
	}
}

// Kind returns the variant discriminator
func (p *packet) Kind() Kind {
	return p.kind
}

// Type returns the wire packet type
func (p *packet) Type() uint8 {
	return p.packetType
}

// Payload returns the raw payload bytes
func (p *packet) Payload() []byte {
	return p.payload
}

// Command returns payload[0]
func (p *packet) Command() uint8 {
	return p.at(0)
}

// Frame encodes the packet into a checksum-correct frame
func (p *packet) Frame() *RawFrame {
	f := NewFrame(p.packetType, p.payload)
	f.Context = p.ctx
	return f
}

// ExpectsResponse is true for every packet type a controller sends
func (p *packet) ExpectsResponse() bool {
	return IsRequestType(p.packetType)
}

// Context returns the channel context the packet was received on or is bound for
func (p *packet) Context() Context {
	return p.ctx
}

// SetContext rebinds the packet to another channel context, used when
// forwarding between links.
func (p *packet) SetContext(ctx Context) {
	p.ctx = ctx
}

// Timestamp returns the receive or build time
func (p *packet) Timestamp() time.Time {
	return p.timestamp
}

func (p *packet) String() string {
	return fmt.Sprintf("%s (0x%02X) [% X]", p.kind, p.packetType, p.payload)
}

// at returns payload[i], or 0 when the payload is shorter
func (p *packet) at(i int) uint8 {
	if i < len(p.payload) {
		return p.payload[i]
	}
	return 0
}

// set writes payload[i], growing the payload when needed
func (p *packet) set(i int, v uint8) {
	for len(p.payload) <= i {
		p.payload = append(p.payload, 0)
	}
	p.payload[i] = v
}

func (p *packet) setBool(i int, v bool) {
	var b uint8
	if v {
		b = 1
	}
	p.set(i, b)
}

func (p *packet) flag(i int, mask uint8) bool {
	return p.at(i)&mask != 0
}

func (p *packet) setFlag(i int, mask uint8, on bool) {
	if on {
		p.set(i, p.at(i)|mask)
	} else {
		p.set(i, p.at(i)&^mask)
	}
}

func (p *packet) uint16At(i int) uint16 {
	return uint16(p.at(i))<<8 | uint16(p.at(i+1))
}

func (p *packet) uint24At(i int) uint32 {
	return uint32(p.at(i))<<16 | uint32(p.at(i+1))<<8 | uint32(p.at(i+2))
}

// UnknownPacket carries a frame whose type/command combination is not modelled.
type UnknownPacket struct {
	packet
}

// NewUnknownPacket wraps a frame as an UnknownPacket
func NewUnknownPacket(f *RawFrame) *UnknownPacket {
	return &UnknownPacket{fromFrame(KindUnknown, f)}
}
