// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

// Sink receives published entity states. Publishing happens on the update
// tick, never while a frame is being processed.
type Sink interface {
	PublishSensor(name string, value float32)
	PublishText(name, value string)
	PublishSelect(name, option string)
	PublishClimate(state ClimateState)
}

// Sinks fans every publish out to each sink in order
type Sinks []Sink

func (s Sinks) PublishSensor(name string, value float32) {
	for _, sink := range s {
		sink.PublishSensor(name, value)
	}
}

func (s Sinks) PublishText(name, value string) {
	for _, sink := range s {
		sink.PublishText(name, value)
	}
}

func (s Sinks) PublishSelect(name, option string) {
	for _, sink := range s {
		sink.PublishSelect(name, option)
	}
}

func (s Sinks) PublishClimate(state ClimateState) {
	for _, sink := range s {
		sink.PublishClimate(state)
	}
}

// NopSink discards everything
type NopSink struct{}

func (NopSink) PublishSensor(string, float32) {}
func (NopSink) PublishText(string, string)    {}
func (NopSink) PublishSelect(string, string)  {}
func (NopSink) PublishClimate(ClimateState)   {}
