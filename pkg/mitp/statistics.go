// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/mitp/pkg/itp"
)

// Statistics tracks link counters for one bridge. Counters are atomic so
// exporters may read them while the bridge is running.
type Statistics struct {
	StartTime time.Time

	FramesReceived   atomic.Uint64
	ChecksumErrors   atomic.Uint64
	FramingErrors    atomic.Uint64
	UnknownPackets   atomic.Uint64
	PacketsSent      atomic.Uint64
	WriteErrors      atomic.Uint64
	QueueDrops       atomic.Uint64
	ResponseTimeouts atomic.Uint64
	ResponsesMatched atomic.Uint64
}

// StatisticsSnapshot is a point-in-time copy of Statistics with derived rates
type StatisticsSnapshot struct {
	Elapsed          time.Duration
	FramesReceived   uint64
	ChecksumErrors   uint64
	FramingErrors    uint64
	UnknownPackets   uint64
	PacketsSent      uint64
	WriteErrors      uint64
	QueueDrops       uint64
	ResponseTimeouts uint64
	ResponsesMatched uint64

	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// RecordDecodeError counts a rejected frame by its cause
func (s *Statistics) RecordDecodeError(err error) {
	if errors.Is(err, itp.ErrChecksum) {
		s.ChecksumErrors.Add(1)
		return
	}
	s.FramingErrors.Add(1)
}

// Snapshot copies the counters and calculates rates
func (s *Statistics) Snapshot() StatisticsSnapshot {
	snap := StatisticsSnapshot{
		Elapsed:          time.Since(s.StartTime),
		FramesReceived:   s.FramesReceived.Load(),
		ChecksumErrors:   s.ChecksumErrors.Load(),
		FramingErrors:    s.FramingErrors.Load(),
		UnknownPackets:   s.UnknownPackets.Load(),
		PacketsSent:      s.PacketsSent.Load(),
		WriteErrors:      s.WriteErrors.Load(),
		QueueDrops:       s.QueueDrops.Load(),
		ResponseTimeouts: s.ResponseTimeouts.Load(),
		ResponsesMatched: s.ResponsesMatched.Load(),
	}
	if secs := snap.Elapsed.Seconds(); secs > 0 {
		snap.FrameRate = float64(snap.FramesReceived) / secs
		snap.ErrorRate = float64(snap.Errors()) / secs
	}
	return snap
}

// Errors returns the number of rejected frames
func (s StatisticsSnapshot) Errors() uint64 {
	return s.ChecksumErrors + s.FramingErrors
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	var checksumPercent, framingPercent, unknownPercent float64
	if total := snap.FramesReceived + snap.Errors(); total > 0 {
		checksumPercent = float64(snap.ChecksumErrors) * 100.0 / float64(total)
		framingPercent = float64(snap.FramingErrors) * 100.0 / float64(total)
	}
	if snap.FramesReceived > 0 {
		unknownPercent = float64(snap.UnknownPackets) * 100.0 / float64(snap.FramesReceived)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\n", snap.Elapsed.Seconds())
	fmt.Fprintf(&b, "Frames Received: %8d\n", snap.FramesReceived)
	if snap.ChecksumErrors > 0 {
		fmt.Fprintf(&b, "Checksum Errors: %8d (%.1f%%)\n", snap.ChecksumErrors, checksumPercent)
	}
	if snap.FramingErrors > 0 {
		fmt.Fprintf(&b, "Framing Errors:  %8d (%.1f%%)\n", snap.FramingErrors, framingPercent)
	}
	if snap.UnknownPackets > 0 {
		fmt.Fprintf(&b, "Unknown Packets: %8d (%.1f%%)\n", snap.UnknownPackets, unknownPercent)
	}
	fmt.Fprintf(&b, "Packets Sent:    %8d\n", snap.PacketsSent)
	fmt.Fprintf(&b, "Responses:       %8d\n", snap.ResponsesMatched)
	if snap.ResponseTimeouts > 0 {
		fmt.Fprintf(&b, "Timeouts:        %8d\n", snap.ResponseTimeouts)
	}
	if snap.QueueDrops > 0 {
		fmt.Fprintf(&b, "Queue Drops:     %8d\n", snap.QueueDrops)
	}
	if snap.WriteErrors > 0 {
		fmt.Fprintf(&b, "Write Errors:    %8d\n", snap.WriteErrors)
	}
	fmt.Fprintf(&b, "Frame Rate:      %8.1f frames/sec\n", snap.FrameRate)
	fmt.Fprintf(&b, "Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	b.WriteString("================================\n")
	return b.String()
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.StartTime = time.Now()
	for _, c := range []*atomic.Uint64{
		&s.FramesReceived, &s.ChecksumErrors, &s.FramingErrors, &s.UnknownPackets,
		&s.PacketsSent, &s.WriteErrors, &s.QueueDrops, &s.ResponseTimeouts, &s.ResponsesMatched,
	} {
		c.Store(0)
	}
}
