// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Thermoquad/mitp/pkg/itp"
	"github.com/Thermoquad/mitp/pkg/mitp"
)

var anomalyLabels = map[itp.AnomalyType]string{
	itp.AnomalyLengthMismatch: "length mismatch",
	itp.AnomalyInvalidMode:    "invalid mode",
	itp.AnomalyInvalidFan:     "invalid fan",
	itp.AnomalyInvalidVane:    "invalid vane",
	itp.AnomalyInvalidTemp:    "invalid temp",
	itp.AnomalyInvalidValue:   "implausible value",
	itp.AnomalyUnknownPacket:  "unknown packet",
}

// packetStats extends the link counters with validation results
type packetStats struct {
	link      *mitp.Statistics
	valid     uint64
	anomalous uint64
	anomalies map[itp.AnomalyType]uint64

	// Rejected frames are only counted once the first frame decoded
	synchronized bool
	presync      int
}

func newPacketStats() *packetStats {
	return &packetStats{
		link:      mitp.NewStatistics(),
		anomalies: make(map[itp.AnomalyType]uint64),
	}
}

// record counts one decoder event and returns its validation errors.
// The first decoded frame reports synced=true.
func (s *packetStats) record(ev frameEvent) (errs []itp.ValidationError, synced bool) {
	if ev.frame == nil {
		if !s.synchronized {
			s.presync++
			return nil, false
		}
		s.link.RecordDecodeError(ev.err)
		return nil, false
	}

	if !s.synchronized {
		s.synchronized = true
		s.presync += ev.skipped
		synced = true
	}
	s.link.FramesReceived.Add(1)

	if ev.packet == nil {
		errs = []itp.ValidationError{{
			Type:    itp.AnomalyLengthMismatch,
			Message: ev.err.Error(),
		}}
	} else {
		if ev.packet.Kind() == itp.KindUnknown {
			s.link.UnknownPackets.Add(1)
		}
		errs = itp.ValidatePacket(ev.packet)
	}

	if len(errs) == 0 {
		s.valid++
		return nil, synced
	}
	s.anomalous++
	for _, e := range errs {
		s.anomalies[e.Type]++
	}
	return errs, synced
}

// anomalySummary lists anomaly counts in a stable order
func (s *packetStats) anomalySummary() string {
	types := make([]int, 0, len(s.anomalies))
	for t := range s.anomalies {
		types = append(types, int(t))
	}
	sort.Ints(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s: %d", anomalyLabels[itp.AnomalyType(t)], s.anomalies[itp.AnomalyType(t)]))
	}
	return strings.Join(parts, ", ")
}

// String returns the link statistics followed by validation results
func (s *packetStats) String() string {
	var b strings.Builder
	b.WriteString(s.link.String())
	fmt.Fprintf(&b, "Valid Packets:   %8d\n", s.valid)
	if s.anomalous > 0 {
		fmt.Fprintf(&b, "Anomalous:       %8d (%s)\n", s.anomalous, s.anomalySummary())
	}
	return b.String()
}

// telemetry keeps the latest heat pump readings seen on the wire
type telemetry struct {
	updated   time.Time
	settings  *itp.SettingsGetResponse
	temps     *itp.CurrentTempGetResponse
	status    *itp.StatusGetResponse
	runState  *itp.RunStateGetResponse
	errorInfo *itp.ErrorInfoGetResponse
}

// update stores p if it carries readings
func (t *telemetry) update(p itp.Packet) bool {
	switch pkt := p.(type) {
	case *itp.SettingsGetResponse:
		t.settings = pkt
	case *itp.CurrentTempGetResponse:
		t.temps = pkt
	case *itp.StatusGetResponse:
		t.status = pkt
	case *itp.RunStateGetResponse:
		t.runState = pkt
	case *itp.ErrorInfoGetResponse:
		t.errorInfo = pkt
	default:
		return false
	}
	t.updated = p.Timestamp()
	return true
}

type telemetryLine struct {
	label string
	value string
}

// lines renders the readings received so far
func (t *telemetry) lines() []telemetryLine {
	var lines []telemetryLine
	if s := t.settings; s != nil {
		power := "off"
		if s.Power() {
			power = "on"
		}
		lines = append(lines,
			telemetryLine{"Power:", power},
			telemetryLine{"Mode:", itp.FormatMode(s.Mode())},
			telemetryLine{"Fan:", itp.FormatFan(s.Fan())},
			telemetryLine{"Target:", fmt.Sprintf("%.1f°C", s.TargetTemp())},
			telemetryLine{"Vane:", fmt.Sprintf("%s / %s", itp.FormatVane(s.Vane()), itp.FormatHorizontalVane(s.HorizontalVane()))},
		)
	}
	if c := t.temps; c != nil {
		lines = append(lines, telemetryLine{"Room:", fmt.Sprintf("%.1f°C", c.CurrentTemp())})
		if outdoor := c.OutdoorTemp(); !math.IsNaN(float64(outdoor)) {
			lines = append(lines, telemetryLine{"Outdoor:", fmt.Sprintf("%.1f°C", outdoor)})
		}
		lines = append(lines, telemetryLine{"Runtime:", formatUptime(uint64(c.RuntimeMinutes()) * 60 * 1000)})
	}
	if s := t.status; s != nil {
		lines = append(lines,
			telemetryLine{"Compressor:", fmt.Sprintf("%d Hz", s.CompressorFrequency())},
			telemetryLine{"Input:", fmt.Sprintf("%d W", s.InputWatts())},
			telemetryLine{"Energy:", fmt.Sprintf("%.1f kWh", s.LifetimeKWh())},
		)
	}
	if r := t.runState; r != nil {
		var flags []string
		for _, f := range []struct {
			on   bool
			name string
		}{
			{r.InDefrost(), "defrost"},
			{r.InPreheat(), "preheat"},
			{r.InStandby(), "standby"},
			{r.ServiceFilter(), "filter"},
		} {
			if f.on {
				flags = append(flags, f.name)
			}
		}
		if len(flags) == 0 {
			flags = append(flags, "normal")
		}
		lines = append(lines, telemetryLine{"Run State:", strings.Join(flags, ", ")})
	}
	if e := t.errorInfo; e != nil {
		value := "none"
		if e.HasError() {
			value = fmt.Sprintf("%s (0x%04X)", e.ShortCodeString(), e.ErrorCode())
		}
		lines = append(lines, telemetryLine{"Error:", value})
	}
	return lines
}

// formatUptime formats a duration in milliseconds to a human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24
	months := days / 30
	years := months / 12

	seconds %= 60
	minutes %= 60
	hours %= 24
	days %= 30
	months %= 12

	parts := []string{}
	for _, unit := range []struct {
		n    uint64
		name string
	}{
		{years, "year"},
		{months, "month"},
		{days, "day"},
		{hours, "hour"},
		{minutes, "minute"},
	} {
		if unit.n == 1 {
			parts = append(parts, "1 "+unit.name)
		} else if unit.n > 1 {
			parts = append(parts, fmt.Sprintf("%d %ss", unit.n, unit.name))
		}
	}
	if seconds > 0 || len(parts) == 0 {
		if seconds == 1 {
			parts = append(parts, "1 second")
		} else {
			parts = append(parts, fmt.Sprintf("%d seconds", seconds))
		}
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}
