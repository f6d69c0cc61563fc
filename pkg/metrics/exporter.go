// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes bridge counters and entity states over HTTP
package metrics

import (
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Thermoquad/mitp/pkg/mitp"
)

const namespace = "mitp"

// Exporter is a mitp.Sink that mirrors every published state into
// Prometheus gauges and a JSON snapshot. It is safe for concurrent use.
type Exporter struct {
	registry *prometheus.Registry

	sensors  *prometheus.GaugeVec
	selects  *prometheus.GaugeVec
	climate  *prometheus.GaugeVec
	climInfo *prometheus.GaugeVec

	mu    sync.RWMutex
	state State
}

// State is the latest published value of every entity
type State struct {
	Sensors map[string]float32 `json:"sensors"`
	Texts   map[string]string  `json:"texts"`
	Selects map[string]string  `json:"selects"`
	Climate *ClimateView       `json:"climate,omitempty"`
}

// ClimateView is the JSON form of mitp.ClimateState
type ClimateView struct {
	Power                    bool     `json:"power"`
	Mode                     string   `json:"mode"`
	FanMode                  string   `json:"fan_mode"`
	Vane                     string   `json:"vane,omitempty"`
	HorizontalVane           string   `json:"horizontal_vane,omitempty"`
	TargetTemperature        *float32 `json:"target_temperature"`
	CurrentTemperature       *float32 `json:"current_temperature"`
	Action                   string   `json:"action"`
	UsingInternalTemperature bool     `json:"using_internal_temperature"`
	ServiceFilter            bool     `json:"service_filter"`
}

var _ mitp.Sink = (*Exporter)(nil)

// NewExporter creates an exporter with its own registry
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		sensors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor",
			Help:      "Latest value of each numeric sensor.",
		}, []string{"name"}),
		selects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "select_info",
			Help:      "Selected option of each select, as a constant 1.",
		}, []string{"name", "option"}),
		climate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "climate",
			Help:      "Numeric climate state fields.",
		}, []string{"field"}),
		climInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "climate_info",
			Help:      "Current mode, fan mode and action, as a constant 1.",
		}, []string{"mode", "fan_mode", "action"}),
		state: State{
			Sensors: make(map[string]float32),
			Texts:   make(map[string]string),
			Selects: make(map[string]string),
		},
	}
	e.registry.MustRegister(e.sensors, e.selects, e.climate, e.climInfo)
	return e
}

// Registry returns the registry holding every exporter metric
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// AddBridge exports the link counters of a bridge under the given name
func (e *Exporter) AddBridge(name string, stats *mitp.Statistics) {
	e.registry.MustRegister(newBridgeCollector(name, stats))
}

// State returns a copy of the latest published states
func (e *Exporter) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := State{
		Sensors: make(map[string]float32, len(e.state.Sensors)),
		Texts:   make(map[string]string, len(e.state.Texts)),
		Selects: make(map[string]string, len(e.state.Selects)),
	}
	for k, v := range e.state.Sensors {
		s.Sensors[k] = v
	}
	for k, v := range e.state.Texts {
		s.Texts[k] = v
	}
	for k, v := range e.state.Selects {
		s.Selects[k] = v
	}
	if e.state.Climate != nil {
		c := *e.state.Climate
		s.Climate = &c
	}
	return s
}

func (e *Exporter) PublishSensor(name string, value float32) {
	e.mu.Lock()
	e.state.Sensors[name] = value
	e.mu.Unlock()
	e.sensors.WithLabelValues(name).Set(float64(value))
}

func (e *Exporter) PublishText(name, value string) {
	e.mu.Lock()
	e.state.Texts[name] = value
	e.mu.Unlock()
}

func (e *Exporter) PublishSelect(name, option string) {
	e.mu.Lock()
	e.state.Selects[name] = option
	e.mu.Unlock()

	e.selects.DeletePartialMatch(prometheus.Labels{"name": name})
	e.selects.WithLabelValues(name, option).Set(1)
}

func (e *Exporter) PublishClimate(state mitp.ClimateState) {
	view := climateView(state)
	e.mu.Lock()
	e.state.Climate = &view
	e.mu.Unlock()

	e.climate.WithLabelValues("power").Set(boolGauge(state.Power))
	e.climate.WithLabelValues("using_internal_temperature").Set(boolGauge(state.UsingInternalTemperature))
	e.climate.WithLabelValues("service_filter").Set(boolGauge(state.ServiceFilter))
	e.climate.WithLabelValues("target_temperature").Set(float64(state.TargetTemperature))
	e.climate.WithLabelValues("current_temperature").Set(float64(state.CurrentTemperature))

	e.climInfo.Reset()
	e.climInfo.WithLabelValues(string(state.Mode), string(state.FanMode), string(state.Action)).Set(1)
}

func climateView(state mitp.ClimateState) ClimateView {
	known := func(v float32) *float32 {
		if math.IsNaN(float64(v)) {
			return nil
		}
		return &v
	}
	return ClimateView{
		Power:                    state.Power,
		Mode:                     string(state.Mode),
		FanMode:                  string(state.FanMode),
		Vane:                     state.Vane,
		HorizontalVane:           state.HorizontalVane,
		TargetTemperature:        known(state.TargetTemperature),
		CurrentTemperature:       known(state.CurrentTemperature),
		Action:                   string(state.Action),
		UsingInternalTemperature: state.UsingInternalTemperature,
		ServiceFilter:            state.ServiceFilter,
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// bridgeCollector reads a bridge's atomic counters at scrape time
type bridgeCollector struct {
	stats *mitp.Statistics
	descs []*prometheus.Desc
}

var bridgeCounters = []struct {
	name  string
	help  string
	value func(mitp.StatisticsSnapshot) uint64
}{
	{"frames_received_total", "Frames received and accepted.", func(s mitp.StatisticsSnapshot) uint64 { return s.FramesReceived }},
	{"checksum_errors_total", "Frames rejected for a bad checksum.", func(s mitp.StatisticsSnapshot) uint64 { return s.ChecksumErrors }},
	{"framing_errors_total", "Frames rejected for a bad header or length.", func(s mitp.StatisticsSnapshot) uint64 { return s.FramingErrors }},
	{"unknown_packets_total", "Frames of an unknown packet type.", func(s mitp.StatisticsSnapshot) uint64 { return s.UnknownPackets }},
	{"packets_sent_total", "Packets written to the link.", func(s mitp.StatisticsSnapshot) uint64 { return s.PacketsSent }},
	{"write_errors_total", "Packets dropped because the write failed.", func(s mitp.StatisticsSnapshot) uint64 { return s.WriteErrors }},
	{"queue_drops_total", "Packets dropped because the send queue was full.", func(s mitp.StatisticsSnapshot) uint64 { return s.QueueDrops }},
	{"response_timeouts_total", "Requests that were never answered.", func(s mitp.StatisticsSnapshot) uint64 { return s.ResponseTimeouts }},
	{"responses_matched_total", "Responses matched to an in-flight request.", func(s mitp.StatisticsSnapshot) uint64 { return s.ResponsesMatched }},
}

// newBridgeCollector labels every counter with bridge=name so both bridges
// share metric names.
func newBridgeCollector(name string, stats *mitp.Statistics) *bridgeCollector {
	c := &bridgeCollector{stats: stats}
	for _, bc := range bridgeCounters {
		c.descs = append(c.descs, prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bridge", bc.name), bc.help,
			nil, prometheus.Labels{"bridge": name}))
	}
	return c
}

func (c *bridgeCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *bridgeCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()
	for i, bc := range bridgeCounters {
		ch <- prometheus.MustNewConstMetric(c.descs[i], prometheus.CounterValue, float64(bc.value(snap)))
	}
}
