// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import "errors"

// Frame and packet errors. Use errors.Is to test for them.
var (
	// ErrChecksum is returned when a complete frame fails checksum validation.
	ErrChecksum = errors.New("itp: checksum mismatch")

	// ErrHeader is returned when the fixed header bytes after the start byte are wrong.
	ErrHeader = errors.New("itp: invalid header")

	// ErrLength is returned when a frame declares a payload larger than MaxPayloadSize.
	ErrLength = errors.New("itp: invalid length")

	// ErrShortPayload is returned when a known packet variant arrives with fewer
	// payload bytes than its fields need.
	ErrShortPayload = errors.New("itp: payload too short")
)

// IsFrameError reports whether err means received bytes were discarded by the decoder
func IsFrameError(err error) bool {
	return errors.Is(err, ErrChecksum) || errors.Is(err, ErrHeader) || errors.Is(err, ErrLength)
}
