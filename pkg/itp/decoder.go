// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import (
	"bytes"
	"fmt"
	"time"
)

// Decoder turns a byte stream into frames.
//
// Bytes are buffered until a complete frame is available. Any frame that fails
// header, length or checksum validation costs exactly its start byte: scanning
// resumes at the next StartByte, so a real frame hidden inside a corrupted one
// is still found.
type Decoder struct {
	buffer    []byte
	discarded int
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		buffer: make([]byte, 0, MaxFrameSize*2),
	}
}

// Reset drops all buffered bytes
func (d *Decoder) Reset() {
	d.buffer = d.buffer[:0]
}

// Buffered returns the number of bytes waiting for a complete frame
func (d *Decoder) Buffered() int {
	return len(d.buffer)
}

// Discarded returns the total number of bytes dropped while resynchronising
func (d *Decoder) Discarded() int {
	return d.discarded
}

// Feed appends received bytes to the decoder buffer
func (d *Decoder) Feed(data []byte) {
	d.buffer = append(d.buffer, data...)
}

// Next returns the next complete frame from the buffer.
// Returns (nil, nil) when more bytes are needed.
// Returns an error when a candidate frame was rejected; call Next again to
// continue scanning the remaining bytes.
func (d *Decoder) Next() (*RawFrame, error) {
	start := bytes.IndexByte(d.buffer, StartByte)
	if start < 0 {
		d.drop(len(d.buffer))
		return nil, nil
	}
	d.drop(start)

	if len(d.buffer) < HeaderSize {
		return nil, nil
	}

	if d.buffer[2] != HeaderByte2 || d.buffer[3] != HeaderByte3 {
		err := fmt.Errorf("%w: % X", ErrHeader, d.buffer[1:4])
		d.drop(1)
		return nil, err
	}

	length := int(d.buffer[4])
	if length > MaxPayloadSize {
		d.drop(1)
		return nil, fmt.Errorf("%w: %d (max %d)", ErrLength, length, MaxPayloadSize)
	}

	total := HeaderSize + length + 1
	if len(d.buffer) < total {
		return nil, nil
	}

	expected := CalculateChecksum(d.buffer[:total-1])
	got := d.buffer[total-1]
	if expected != got {
		d.drop(1)
		return nil, fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrChecksum, expected, got)
	}

	frame := &RawFrame{
		Type:      d.buffer[1],
		Payload:   append([]byte(nil), d.buffer[HeaderSize:total-1]...),
		Checksum:  got,
		Timestamp: time.Now(),
	}
	d.consume(total)
	return frame, nil
}

// drop discards n bytes that were not part of a valid frame
func (d *Decoder) drop(n int) {
	d.discarded += n
	d.consume(n)
}

func (d *Decoder) consume(n int) {
	if n <= 0 {
		return
	}
	remaining := copy(d.buffer, d.buffer[n:])
	d.buffer = d.buffer[:remaining]
}
