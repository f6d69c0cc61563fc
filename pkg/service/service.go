// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package service wires a hub to its links and drives it: a fast loop tick
// for frame handling and a scheduled update tick for polling.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/mitp/pkg/config"
	"github.com/Thermoquad/mitp/pkg/itp"
	"github.com/Thermoquad/mitp/pkg/mitp"
	"github.com/Thermoquad/mitp/pkg/transport"
)

// ErrNotConnected is reported by Healthy until the heat pump answers
var ErrNotConnected = errors.New("heat pump not connected")

// Service owns a hub and the goroutine that runs it
type Service struct {
	cfg     *config.Config
	hub     *mitp.Hub
	streams []*transport.Stream
	log     *logrus.Entry

	connected atomic.Bool
}

// ChannelOptions converts a configured channel into transport options
func ChannelOptions(ch config.ChannelConfig) transport.Options {
	return transport.Options{
		Port:        ch.Port,
		Baud:        ch.Baud,
		URL:         ch.URL,
		Username:    ch.Username,
		Password:    ch.Password,
		NoSSLVerify: ch.NoSSLVerify,
	}
}

// Open connects the configured heat pump and optional thermostat links and
// builds the hub on top of them.
func Open(cfg *config.Config, sink mitp.Sink, store mitp.BlobStore, log *logrus.Entry) (*Service, error) {
	hpOpts := ChannelOptions(cfg.HeatPump)
	hpConn, err := transport.Open(hpOpts)
	if err != nil {
		return nil, fmt.Errorf("opening heat pump link: %w", err)
	}
	hp := transport.NewStream(hpConn)
	log.Infof("Heat pump on %s", hpOpts.Describe())

	var ts *transport.Stream
	if cfg.Thermostat.Enabled() {
		tsOpts := ChannelOptions(cfg.Thermostat)
		tsConn, err := transport.Open(tsOpts)
		if err != nil {
			hp.Close()
			return nil, fmt.Errorf("opening thermostat link: %w", err)
		}
		ts = transport.NewStream(tsConn)
		log.Infof("Thermostat on %s", tsOpts.Describe())
	}

	var s *Service
	if ts != nil {
		s = New(cfg, hp, ts, sink, store, log)
		s.streams = []*transport.Stream{hp, ts}
	} else {
		s = New(cfg, hp, nil, sink, store, log)
		s.streams = []*transport.Stream{hp}
	}
	return s, nil
}

// New builds a service over already open ports. tsPort may be nil.
func New(cfg *config.Config, hpPort, tsPort itp.Port, sink mitp.Sink, store mitp.BlobStore, log *logrus.Entry) *Service {
	opts := []mitp.HubOption{mitp.WithSink(sink)}
	if store != nil {
		opts = append(opts, mitp.WithPreferences(mitp.NewPreferences(store, cfg.Store.Key)))
	}
	if tsPort != nil {
		opts = append(opts, mitp.WithThermostat(tsPort))
	}

	hub := mitp.NewHub(hpPort, mitp.HubConfig{
		TemperatureSourceTimeout: cfg.TemperatureSource.Timeout,
		EchoInterval:             cfg.TemperatureSource.EchoInterval,
		Passthrough:              cfg.Bridge.Passthrough,
		TemperatureSources:       cfg.TemperatureSource.Sources,
	}, log, opts...)
	RegisterEntities(hub, sink, cfg.TemperatureSource.Sources, tsPort != nil)

	return &Service{cfg: cfg, hub: hub, log: log.WithField("component", "service")}
}

// RegisterEntities adds the sensors and selects every bridge publishes
func RegisterEntities(hub *mitp.Hub, sink mitp.Sink, sources []string, thermostat bool) {
	hub.Register(mitp.NewCompressorFrequencySensor(sink))
	hub.Register(mitp.NewInputWattsSensor(sink))
	hub.Register(mitp.NewLifetimeKWhSensor(sink))
	hub.Register(mitp.NewOutdoorTemperatureSensor(sink))
	hub.Register(mitp.NewRuntimeSensor(sink))
	hub.Register(mitp.NewErrorCodeSensor(sink))
	hub.Register(mitp.NewVaneSelect(sink, hub.SelectVanePosition))
	hub.Register(mitp.NewHorizontalVaneSelect(sink, hub.SelectHorizontalVanePosition))
	hub.Register(mitp.NewTemperatureSourceSelect(sink, sources, hub.SelectTemperatureSource))
	if thermostat {
		hub.Register(mitp.NewThermostatTemperatureSensor(sink))
		hub.Register(mitp.NewThermostatHumiditySensor(sink))
		hub.Register(mitp.NewThermostatIdentity(sink))
	}
}

// Hub returns the hub. Outside Run's goroutine it may only be used through
// Hub.Submit.
func (s *Service) Hub() *mitp.Hub { return s.hub }

// Healthy reports an error until the heat pump has answered the handshake
func (s *Service) Healthy() error {
	if !s.connected.Load() {
		return ErrNotConnected
	}
	return nil
}

// Run drives the hub until ctx is cancelled or a link fails
func (s *Service) Run(ctx context.Context) error {
	s.hub.Init(ctx)

	g, ctx := errgroup.WithContext(ctx)

	scheduler := cron.New()
	schedule := fmt.Sprintf("@every %s", s.cfg.Bridge.UpdateInterval)
	if _, err := scheduler.AddFunc(schedule, func() { s.requestUpdate(ctx) }); err != nil {
		return fmt.Errorf("scheduling updates: %w", err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// The first update runs right away instead of one interval in
	s.requestUpdate(ctx)

	g.Go(func() error { return s.loop(ctx) })
	for _, st := range s.streams {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			case <-st.Done():
				return fmt.Errorf("link lost: %w", st.Err())
			}
		})
	}
	return g.Wait()
}

func (s *Service) requestUpdate(ctx context.Context) {
	if !s.hub.Submit(func(h *mitp.Hub) { h.Update(ctx) }) {
		s.log.Warn("Update skipped, hub busy")
	}
}

func (s *Service) loop(ctx context.Context) error {
	interval := s.cfg.Bridge.LoopInterval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.hub.Loop()
			s.connected.Store(s.hub.Connected())
		}
	}
}

// Close closes every link opened by Open
func (s *Service) Close() error {
	var errs []error
	for _, st := range s.streams {
		errs = append(errs, st.Close())
	}
	return errors.Join(errs...)
}
