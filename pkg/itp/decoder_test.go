// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import (
	"bytes"
	"errors"
	"testing"
)

// connectFrame is the handshake request as captured on the wire
var connectFrame = []byte{0xFC, 0x5A, 0x01, 0x30, 0x02, 0xCA, 0x01, 0xA8}

// decodeAll feeds data and drains every frame and error
func decodeAll(d *Decoder, data []byte) ([]*RawFrame, []error) {
	d.Feed(data)
	var frames []*RawFrame
	var errs []error
	for {
		f, err := d.Next()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if f == nil {
			return frames, errs
		}
		frames = append(frames, f)
	}
}

// ============================================================
// Checksum Tests
// ============================================================

func TestCalculateChecksum_KnownFrame(t *testing.T) {
	got := CalculateChecksum(connectFrame[:len(connectFrame)-1])
	if got != 0xA8 {
		t.Errorf("checksum = 0x%02X, want 0xA8", got)
	}
}

func TestEncodeFrame_ConnectRequest(t *testing.T) {
	got := NewConnectRequest().Frame().Bytes()
	if !bytes.Equal(got, connectFrame) {
		t.Errorf("connect request encoded as % X, want % X", got, connectFrame)
	}
}

func TestEncodeFrame_TooLarge(t *testing.T) {
	_, err := EncodeFrame(TypeSetRequest, make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrLength) {
		t.Errorf("expected ErrLength, got %v", err)
	}
}

// ============================================================
// Decoder Tests
// ============================================================

func TestDecoder_SingleFrame(t *testing.T) {
	frames, errs := decodeAll(NewDecoder(), connectFrame)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	f := frames[0]
	if f.Type != TypeConnectRequest {
		t.Errorf("type = 0x%02X, want 0x%02X", f.Type, TypeConnectRequest)
	}
	if !bytes.Equal(f.Payload, []byte{0xCA, 0x01}) {
		t.Errorf("payload = % X", f.Payload)
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	d := NewDecoder()
	for i, b := range connectFrame {
		d.Feed([]byte{b})
		f, err := d.Next()
		if err != nil {
			t.Fatalf("byte %d: unexpected error %v", i, err)
		}
		if i < len(connectFrame)-1 && f != nil {
			t.Fatalf("frame completed early at byte %d", i)
		}
		if i == len(connectFrame)-1 && f == nil {
			t.Fatalf("frame not completed at last byte")
		}
	}
	if d.Buffered() != 0 {
		t.Errorf("expected empty buffer, got %d bytes", d.Buffered())
	}
}

func TestDecoder_LeadingGarbage(t *testing.T) {
	data := append([]byte{0x00, 0x13, 0x37}, connectFrame...)
	d := NewDecoder()
	frames, errs := decodeAll(d, data)
	if len(errs) != 0 || len(frames) != 1 {
		t.Fatalf("frames=%d errs=%v", len(frames), errs)
	}
	if d.Discarded() != 3 {
		t.Errorf("discarded = %d, want 3", d.Discarded())
	}
}

func TestDecoder_ChecksumMismatch(t *testing.T) {
	bad := append([]byte(nil), connectFrame...)
	bad[len(bad)-1] ^= 0xFF

	frames, errs := decodeAll(NewDecoder(), bad)
	if len(frames) != 0 {
		t.Fatalf("corrupted frame was accepted")
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrChecksum) {
		t.Fatalf("expected one ErrChecksum, got %v", errs)
	}
}

func TestDecoder_BadHeader(t *testing.T) {
	bad := append([]byte(nil), connectFrame...)
	bad[3] = 0x31

	_, errs := decodeAll(NewDecoder(), bad)
	if len(errs) != 1 || !errors.Is(errs[0], ErrHeader) {
		t.Fatalf("expected one ErrHeader, got %v", errs)
	}
}

func TestDecoder_BadLength(t *testing.T) {
	_, errs := decodeAll(NewDecoder(), []byte{0xFC, 0x41, 0x01, 0x30, MaxPayloadSize + 1})
	if len(errs) != 1 || !errors.Is(errs[0], ErrLength) {
		t.Fatalf("expected one ErrLength, got %v", errs)
	}
}

func TestDecoder_ResyncInsideCorruptFrame(t *testing.T) {
	// A truncated frame whose declared length swallows a complete valid frame
	truncated := []byte{0xFC, 0x62, 0x01, 0x30, 0x10, 0x02}
	data := append(truncated, connectFrame...)
	data = append(data, make([]byte, 16)...)

	frames, errs := decodeAll(NewDecoder(), data)
	if len(frames) != 1 || frames[0].Type != TypeConnectRequest {
		t.Fatalf("expected the embedded connect request, got %d frames", len(frames))
	}
	if len(errs) == 0 || !errors.Is(errs[0], ErrChecksum) {
		t.Errorf("expected checksum error for the truncated frame, got %v", errs)
	}
}

func TestDecoder_PartialFrameKept(t *testing.T) {
	d := NewDecoder()
	frames, _ := decodeAll(d, connectFrame[:4])
	if len(frames) != 0 {
		t.Fatalf("partial frame decoded")
	}
	if d.Buffered() != 4 {
		t.Fatalf("buffered = %d, want 4", d.Buffered())
	}
	frames, _ = decodeAll(d, connectFrame[4:])
	if len(frames) != 1 {
		t.Fatalf("frame not completed after remaining bytes")
	}
}

func TestDecoder_BackToBackFrames(t *testing.T) {
	status := NewStatusGetResponse()
	status.SetInputWatts(1234)
	data := append(append([]byte(nil), connectFrame...), status.Frame().Bytes()...)

	frames, errs := decodeAll(NewDecoder(), data)
	if len(errs) != 0 || len(frames) != 2 {
		t.Fatalf("frames=%d errs=%v", len(frames), errs)
	}
	if frames[1].Type != TypeGetResponse || frames[1].Command() != GetStatus {
		t.Errorf("second frame = 0x%02X/0x%02X", frames[1].Type, frames[1].Command())
	}
}

func TestDecoder_StartByteInPayload(t *testing.T) {
	// 0xFC is a legal scale A temperature byte (62°C)
	ct := NewCurrentTempGetResponse()
	ct.SetOutdoorTemp(62)
	if ct.Payload()[5] != StartByte {
		t.Fatalf("test setup: outdoor byte = 0x%02X", ct.Payload()[5])
	}

	frames, errs := decodeAll(NewDecoder(), ct.Frame().Bytes())
	if len(errs) != 0 || len(frames) != 1 {
		t.Fatalf("frames=%d errs=%v", len(frames), errs)
	}
}
