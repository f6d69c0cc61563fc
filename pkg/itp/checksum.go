// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

// CalculateChecksum computes the frame checksum over every byte that precedes it
// (start byte, header, length and payload).
func CalculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return StartByte - sum
}
