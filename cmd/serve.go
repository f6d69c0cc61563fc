// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/mitp/pkg/config"
	"github.com/Thermoquad/mitp/pkg/influx"
	"github.com/Thermoquad/mitp/pkg/logging"
	"github.com/Thermoquad/mitp/pkg/metrics"
	"github.com/Thermoquad/mitp/pkg/mitp"
	"github.com/Thermoquad/mitp/pkg/mqtt"
	"github.com/Thermoquad/mitp/pkg/service"
	"github.com/Thermoquad/mitp/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the heat pump bridge",
	Long: `Run the bridge between a heat pump and an optional wall thermostat.

The heat pump is connected and polled on the configured update interval. Its
state is published to every enabled sink:
  - MQTT: entity states, plus command topics for mode, fan, setpoint,
    power, selects, filter reset and remote temperature reports
  - InfluxDB: sensor and climate history
  - Prometheus: /metrics, /healthz and /state on the metrics listener

Settings come from --config, then MITP_* environment variables, then the
connection flags (--port/--url replace the heat pump link).

Selected temperature source and setpoints are kept in the preference store
across restarts.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	log := logging.Component(logger, "serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var prefs mitp.BlobStore
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		prefs = st
		log.Infof("Preferences in %s", st.Path())
	}

	sinks, cleanup, err := openSinks(cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	svc, err := service.Open(cfg, sinks.all, prefs, logging.Component(logger, "hub"))
	if err != nil {
		return err
	}
	defer svc.Close()

	if sinks.mqtt != nil {
		if err := sinks.mqtt.Subscribe(svc.Hub()); err != nil {
			log.WithError(err).Warn("MQTT commands unavailable until reconnect")
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })

	if sinks.metrics != nil {
		hub := svc.Hub()
		sinks.metrics.AddBridge("heatpump", hub.HeatPumpBridge().Statistics())
		if ts := hub.ThermostatBridge(); ts != nil {
			sinks.metrics.AddBridge("thermostat", ts.Statistics())
		}
		handler := metrics.Router(sinks.metrics, svc.Healthy)
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.Metrics.Listen, handler, logging.Component(logger, "metrics"))
		})
	}

	log.Info("Bridge running")
	if err := g.Wait(); err != nil {
		return fmt.Errorf("bridge stopped: %w", err)
	}
	log.Info("Bridge stopped")
	return nil
}

// serveSinks holds the enabled sinks and their fan-out
type serveSinks struct {
	all     mitp.Sinks
	mqtt    *mqtt.Client
	influx  *influx.Sink
	metrics *metrics.Exporter
}

// openSinks connects every enabled sink. cleanup closes whatever was opened
// and is safe to call when err is not nil.
func openSinks(cfg *config.Config, logger *logrus.Logger) (*serveSinks, func(), error) {
	s := &serveSinks{}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.WithError(err).Warn("Closing sink failed")
			}
		}
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT, logging.Component(logger, "mqtt"))
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, client.Close)
		s.mqtt = client
		s.all = append(s.all, client)
	}

	if cfg.InfluxDB.Enabled {
		sink, err := influx.Connect(cfg.InfluxDB, logging.Component(logger, "influxdb"))
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, sink.Close)
		s.influx = sink
		s.all = append(s.all, sink)
	}

	if cfg.Metrics.Enabled {
		s.metrics = metrics.NewExporter()
		s.all = append(s.all, s.metrics)
	}

	if len(s.all) == 0 {
		logger.Warn("No sinks enabled; state is only logged")
		s.all = append(s.all, logSink{log: logging.Component(logger, "state")})
	}
	return s, cleanup, nil
}

// logSink writes published states to the log at debug level
type logSink struct {
	log *logrus.Entry
}

func (s logSink) PublishSensor(name string, value float32) {
	s.log.WithField("sensor", name).Debugf("%v", value)
}

func (s logSink) PublishText(name, value string) {
	s.log.WithField("text", name).Debug(value)
}

func (s logSink) PublishSelect(name, option string) {
	s.log.WithField("select", name).Debug(option)
}

func (s logSink) PublishClimate(state mitp.ClimateState) {
	s.log.WithFields(logrus.Fields{
		"power":  state.Power,
		"mode":   state.Mode,
		"fan":    state.FanMode,
		"target": state.TargetTemperature,
		"action": state.Action,
	}).Debug("Climate")
}
