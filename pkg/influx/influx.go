// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package influx records published entity states as InfluxDB points
package influx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/mitp/pkg/config"
	"github.com/Thermoquad/mitp/pkg/mitp"
)

var ErrConnectionFailed = errors.New("influxdb: connection failed")

const (
	defaultConnectTimeout = 10 * time.Second
	millisecondsPerSecond = 1000

	measurementSensor  = "sensor"
	measurementText    = "text"
	measurementSelect  = "select"
	measurementClimate = "climate"
)

// Sink writes every published state as a point. Writes are batched and
// never block the caller.
type Sink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	now      func() time.Time
	log      *logrus.Entry
	done     chan struct{}
}

var _ mitp.Sink = (*Sink)(nil)

// Connect pings the server in cfg and returns a sink writing to its bucket
func Connect(cfg config.InfluxDBConfig, log *logrus.Entry) (*Sink, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond))

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	s := &Sink{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		now:      time.Now,
		log:      log.WithField("component", "influxdb"),
		done:     make(chan struct{}),
	}
	go s.logWriteErrors(s.writeAPI.Errors())
	s.log.Infof("Writing to InfluxDB %s bucket %s", cfg.URL, cfg.Bucket)
	return s, nil
}

func (s *Sink) logWriteErrors(errs <-chan error) {
	for {
		select {
		case err := <-errs:
			s.log.WithError(err).Warn("InfluxDB write failed")
		case <-s.done:
			return
		}
	}
}

// Close flushes pending points and closes the client
func (s *Sink) Close() error {
	s.writeAPI.Flush()
	s.client.Close()
	close(s.done)
	return nil
}

func (s *Sink) PublishSensor(name string, value float32) {
	if math.IsNaN(float64(value)) {
		return
	}
	s.write(measurementSensor, map[string]string{"name": name},
		map[string]any{"value": float64(value)})
}

func (s *Sink) PublishText(name, value string) {
	s.write(measurementText, map[string]string{"name": name},
		map[string]any{"value": value})
}

func (s *Sink) PublishSelect(name, option string) {
	s.write(measurementSelect, map[string]string{"name": name},
		map[string]any{"option": option})
}

func (s *Sink) PublishClimate(state mitp.ClimateState) {
	s.write(measurementClimate, map[string]string{
		"mode":     string(state.Mode),
		"fan_mode": string(state.FanMode),
		"action":   string(state.Action),
	}, climateFields(state))
}

func (s *Sink) write(measurement string, tags map[string]string, fields map[string]any) {
	s.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, s.now()))
}

func climateFields(state mitp.ClimateState) map[string]any {
	fields := map[string]any{
		"power":                      state.Power,
		"using_internal_temperature": state.UsingInternalTemperature,
		"service_filter":             state.ServiceFilter,
	}
	if !math.IsNaN(float64(state.TargetTemperature)) {
		fields["target_temperature"] = float64(state.TargetTemperature)
	}
	if !math.IsNaN(float64(state.CurrentTemperature)) {
		fields["current_temperature"] = float64(state.CurrentTemperature)
	}
	return fields
}
