// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import (
	"fmt"
	"time"
)

// RawFrame is one checksum-validated frame as it appears on the wire.
type RawFrame struct {
	Type     uint8
	Payload  []byte
	Checksum uint8

	// Context is set by the Link that received the frame.
	Context   Context
	Timestamp time.Time
}

// NewFrame builds a frame for the given type and payload with a correct checksum.
func NewFrame(packetType uint8, payload []byte) *RawFrame {
	f := &RawFrame{
		Type:      packetType,
		Payload:   append([]byte(nil), payload...),
		Timestamp: time.Now(),
	}
	f.Checksum = CalculateChecksum(f.header())
	return f
}

// header returns the checksummed portion of the frame: everything but the checksum.
func (f *RawFrame) header() []byte {
	data := make([]byte, 0, HeaderSize+len(f.Payload))
	data = append(data, StartByte, f.Type, HeaderByte2, HeaderByte3, uint8(len(f.Payload)))
	return append(data, f.Payload...)
}

// Bytes returns the wire representation of the frame. The checksum is always
// recomputed so the output is valid even if Payload was edited in place.
func (f *RawFrame) Bytes() []byte {
	data := f.header()
	return append(data, CalculateChecksum(data))
}

// Command returns payload[0], the sub-command of get/set frames, or 0 when the
// payload is empty.
func (f *RawFrame) Command() uint8 {
	if len(f.Payload) == 0 {
		return 0
	}
	return f.Payload[0]
}

// ResponseType returns the type of the frame that answers this one.
func ResponseType(requestType uint8) uint8 {
	return requestType + responseOffset
}

// IsRequestType reports whether packetType is sent by a controller.
func IsRequestType(packetType uint8) bool {
	return packetType < TypeSetResponse
}

// EncodeFrame serialises a packet type and payload into wire bytes.
func EncodeFrame(packetType uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrLength, len(payload), MaxPayloadSize)
	}
	return NewFrame(packetType, payload).Bytes(), nil
}
