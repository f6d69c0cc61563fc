// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import "math"

// BitSlice extracts the inclusive bit range [start, end] from data and returns it
// right-aligned. Bit 0 is the most significant bit of data[0], so the result does
// not depend on host byte order. Ranges of 65 bits or more return 0. Bits past
// the end of data read as zero.
func BitSlice(data []byte, start, end uint) uint64 {
	if end < start || end-start >= 64 {
		return 0
	}

	var v uint64
	for i := start; i <= end; i++ {
		var bit byte
		if idx := i / 8; idx < uint(len(data)) {
			bit = (data[idx] >> (7 - i%8)) & 0x01
		}
		v = v<<1 | uint64(bit)
	}
	return v
}

// DecodeNBitString decodes chars consecutive wordSize-bit groups from data into a
// string. Group values at or below 0x1F are shifted up by 0x40 into the letter range.
func DecodeNBitString(data []byte, chars, wordSize uint) string {
	out := make([]byte, 0, chars)
	for i := uint(0); i < chars; i++ {
		v := BitSlice(data, i*wordSize, (i+1)*wordSize-1)
		if v <= 0x1F {
			v += 0x40
		}
		out = append(out, byte(v))
	}
	return string(out)
}

// TempScaleAToDegC decodes a half-degree temperature offset by 128.
func TempScaleAToDegC(b uint8) float32 {
	return (float32(b) - 128) / 2
}

// DegCToTempScaleA encodes a temperature with half-degree resolution,
// saturating to 0x00 below -64 and 0xFF above 63.5.
func DegCToTempScaleA(v float32) uint8 {
	switch {
	case v < -64 || math.IsNaN(float64(v)):
		return 0x00
	case v > 63.5:
		return 0xFF
	}
	return uint8(int(math.Round(float64(v)*2)) + 128)
}

// LegacyTargetTempToDegC decodes the inverted-nibble target temperature used by
// older units: the low nibble counts down from 31 and any high bit adds 0.5.
func LegacyTargetTempToDegC(b uint8) float32 {
	v := float32(31 - (b & 0x0F))
	if b&0xF0 > 0 {
		v += 0.5
	}
	return v
}

// DegCToLegacyTargetTemp encodes a target temperature in the legacy format.
// Below 16 saturates to 0x0F (16.0) and above 31.5 saturates to 0x10 (31.5).
func DegCToLegacyTargetTemp(v float32) uint8 {
	switch {
	case v < 16 || math.IsNaN(float64(v)):
		return 0x0F
	case v > 31.5:
		return 0x10
	}
	whole := uint8(v)
	half := uint8(int(v*2)%2) << 4
	return ((31 - whole) & 0x0F) + half
}

// LegacyHPRoomTempToDegC decodes the whole-degree room temperature reported by
// the heat pump's own sensor on older units.
func LegacyHPRoomTempToDegC(b uint8) float32 {
	return float32(b) + 10
}

// DegCToLegacyHPRoomTemp encodes a room temperature in the legacy heat pump
// format, saturating to [10, 41].
func DegCToLegacyHPRoomTemp(v float32) uint8 {
	switch {
	case v < 10 || math.IsNaN(float64(v)):
		return 0x00
	case v > 41:
		return 0x1F
	}
	return uint8(v) - 10
}

// LegacyTSRoomTempToDegC decodes the half-degree room temperature used by
// thermostats on older units.
func LegacyTSRoomTempToDegC(b uint8) float32 {
	return 8 + float32(b)*0.5
}

// DegCToLegacyTSRoomTemp encodes a room temperature in the legacy thermostat
// format, saturating to [8, 39.5].
func DegCToLegacyTSRoomTemp(v float32) uint8 {
	switch {
	case v < 8 || math.IsNaN(float64(v)):
		return 0x00
	case v > 39.5:
		return 0x3F
	}
	return uint8(2*v) - 16
}
