// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/mitp/pkg/itp"
)

// Temperature sources every hub knows about
const (
	TemperatureSourceInternal   = "Internal"
	TemperatureSourceThermostat = "Thermostat"
)

const (
	// DefaultTemperatureSourceTimeout reverts to the internal sensor when the
	// selected source stops reporting.
	DefaultTemperatureSourceTimeout = 8 * time.Minute

	// discoveryUpdateLimit is how many update cycles probe for run-state support
	discoveryUpdateLimit = 5

	commandQueueSize = 32
)

// Temperature limits representable on the wire
const (
	minReportTemperature = -64
	maxReportTemperature = 63.5
)

// HubConfig configures temperature handling and thermostat forwarding
type HubConfig struct {
	// TemperatureSourceTimeout is how long the selected remote source may stay
	// silent before the heat pump is switched back to its internal sensor.
	TemperatureSourceTimeout time.Duration
	// EchoInterval resends the last remote temperature this often; 0 disables it.
	EchoInterval time.Duration
	// Passthrough forwards thermostat requests to the heat pump.
	Passthrough bool
	// TemperatureSources are extra selectable sources besides Internal and Thermostat.
	TemperatureSources []string
}

type temperatureReport struct {
	value float32
	at    time.Time
}

// Hub owns the heat pump bridge, the optional thermostat bridge and the
// listeners. It runs on a single goroutine; other goroutines reach it through
// Submit.
type Hub struct {
	BaseListener

	hp         *Bridge
	ts         *Bridge
	tsPort     itp.Port
	dispatcher *Dispatcher
	cfg        HubConfig
	sink       Sink
	prefs      *Preferences
	now        func() time.Time
	log        *logrus.Entry
	commands   chan func(*Hub)

	connected             bool
	capabilitiesRequested bool
	capabilities          *itp.CapabilitiesResponse
	traits                *Traits
	inDiscovery           bool
	discoveryUpdates      int
	runStateReceived      bool

	selectedSource string
	sourceTimedOut bool
	reports        map[string]temperatureReport
	echoLast       time.Time

	climate         ClimateState
	wireMode        ClimateMode
	run             runState
	modeRecall      [RecallModeCount]float32
	publishOnUpdate bool
	lastErrorCode   uint16

	// last heat pump answer per get command, served to a thermostat when
	// requests are not forwarded
	responseCache map[uint8]itp.Packet
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithThermostat attaches a thermostat on port
func WithThermostat(port itp.Port) HubOption {
	return func(h *Hub) { h.tsPort = port }
}

// WithSink publishes climate state to sink
func WithSink(sink Sink) HubOption {
	return func(h *Hub) { h.sink = sink }
}

// WithPreferences persists mode recall setpoints
func WithPreferences(prefs *Preferences) HubOption {
	return func(h *Hub) { h.prefs = prefs }
}

// WithHubClock replaces the wall clock for the hub and its bridges
func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

// NewHub creates a hub talking to the heat pump on hpPort
func NewHub(hpPort itp.Port, cfg HubConfig, log *logrus.Entry, opts ...HubOption) *Hub {
	if cfg.TemperatureSourceTimeout <= 0 {
		cfg.TemperatureSourceTimeout = DefaultTemperatureSourceTimeout
	}
	h := &Hub{
		dispatcher:     NewDispatcher(log),
		cfg:            cfg,
		sink:           NopSink{},
		now:            time.Now,
		log:            log.WithField("component", "hub"),
		commands:       make(chan func(*Hub), commandQueueSize),
		inDiscovery:    true,
		selectedSource: TemperatureSourceInternal,
		reports:        make(map[string]temperatureReport),
		climate:        newClimateState(),
		responseCache:  make(map[uint8]itp.Packet),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.hp = NewBridge(hpPort, itp.Context{Source: itp.SourceHeatPump, Association: itp.AssociationController},
		ModeActive, h, log, WithClock(h.now))
	if h.tsPort != nil {
		h.ts = NewBridge(h.tsPort, itp.Context{Source: itp.SourceThermostat, Association: itp.AssociationThermostat},
			ModePassive, h, log, WithClock(h.now))
	}
	h.dispatcher.Register(h)
	return h
}

// Register adds a listener. Listeners must be registered before Init.
func (h *Hub) Register(l Listener) {
	h.dispatcher.Register(l)
}

// Init sets up every listener and restores saved preferences
func (h *Hub) Init(ctx context.Context) {
	for _, l := range h.dispatcher.Listeners() {
		l.Setup(h.ts != nil)
	}
	h.restorePreferences(ctx)
}

func (h *Hub) restorePreferences(ctx context.Context) {
	if h.prefs == nil {
		return
	}
	rec, ok, err := h.prefs.Load(ctx)
	if err != nil {
		h.log.WithError(err).Warn("Could not restore preferences")
		return
	}
	if ok {
		h.modeRecall = rec.ModeRecallSetpoints
		h.log.Info("Loaded mode recall setpoints.")
	}
}

// Submit queues fn to run on the hub goroutine at the start of the next Loop.
// It returns false when the command queue is full.
func (h *Hub) Submit(fn func(*Hub)) bool {
	select {
	case h.commands <- fn:
		return true
	default:
		h.log.Warn("Command queue full, command dropped")
		return false
	}
}

// ClassifyAndBroadcast delivers a received frame to the listeners, then routes
// it between the heat pump and thermostat.
func (h *Hub) ClassifyAndBroadcast(f *itp.RawFrame) (itp.Packet, error) {
	p, err := h.dispatcher.ClassifyAndBroadcast(f)
	if err != nil {
		return nil, err
	}
	h.route(p)
	return p, nil
}

// Loop runs one high-frequency tick
func (h *Hub) Loop() {
	h.drainCommands()

	h.hp.Loop()
	if h.ts != nil {
		h.ts.Loop()
	}

	h.superviseTemperatureSource()
}

func (h *Hub) drainCommands() {
	for {
		select {
		case fn := <-h.commands:
			fn(h)
		default:
			return
		}
	}
}

func (h *Hub) superviseTemperatureSource() {
	if h.sourceTimedOut || h.selectedSource == TemperatureSourceInternal {
		return
	}
	now := h.now()
	report := h.reports[h.selectedSource]

	if now.Sub(report.at) > h.cfg.TemperatureSourceTimeout {
		h.log.Warnf("No temperature received from %s for %s, reverting to Internal source",
			h.selectedSource, h.cfg.TemperatureSourceTimeout)
		// The selection is kept; only the heat pump goes back to its own sensor
		h.alertInternalTemperature(true)
		h.sourceTimedOut = true
		h.hp.Send(itp.NewRemoteTemperatureSetRequest().UseInternalTemperature())
		return
	}

	if h.cfg.EchoInterval > 0 && now.Sub(h.echoLast) > h.cfg.EchoInterval {
		if !math.IsNaN(float64(report.value)) {
			h.log.Debug("Echoing last received temperature")
			h.hp.Send(itp.NewRemoteTemperatureSetRequest().SetRemoteTemperature(report.value))
			h.echoLast = now
		}
	}
}

// Update runs one coarse tick: connect, publish pending state and poll the
// heat pump.
func (h *Hub) Update(ctx context.Context) {
	if !h.connected {
		h.hp.Send(itp.NewConnectRequest())
		return
	}

	if !h.capabilitiesRequested {
		h.hp.Send(itp.NewCapabilitiesRequest())
		h.capabilitiesRequested = true
	}

	for _, l := range h.dispatcher.Listeners() {
		l.Publish()
	}
	if h.publishOnUpdate {
		h.doPublish(ctx)
		h.publishOnUpdate = false
	}

	// Settings first so the mode is known when status arrives
	h.hp.Send(itp.NewGetRequest(itp.GetSettings))
	if h.inDiscovery || h.runStateReceived {
		h.hp.Send(itp.NewGetRequest(itp.GetRunState))
	}
	h.hp.Send(itp.NewGetRequest(itp.GetStatus))
	h.hp.Send(itp.NewGetRequest(itp.GetCurrentTemp))
	h.hp.Send(itp.NewGetRequest(itp.GetErrorInfo))

	if h.inDiscovery {
		previous := h.discoveryUpdates
		h.discoveryUpdates++
		if previous > discoveryUpdateLimit || h.runStateReceived {
			h.log.Debug("Discovery complete.")
			h.inDiscovery = false
			if !h.runStateReceived {
				h.log.Info("RunState packets not supported.")
			}
		}
	}
}

func (h *Hub) doPublish(ctx context.Context) {
	h.sink.PublishClimate(h.climate)
	if h.prefs == nil {
		return
	}
	if err := h.prefs.Save(ctx, PreferenceRecord{ModeRecallSetpoints: h.modeRecall}); err != nil {
		h.log.WithError(err).Warn("Could not save preferences")
	}
}

// TemperatureSources lists the selectable temperature sources
func (h *Hub) TemperatureSources() []string {
	sources := []string{TemperatureSourceInternal}
	if h.ts != nil {
		sources = append(sources, TemperatureSourceThermostat)
	}
	for _, src := range h.cfg.TemperatureSources {
		if !slices.Contains(sources, src) {
			sources = append(sources, src)
		}
	}
	return sources
}

// SelectedTemperatureSource returns the source the user selected
func (h *Hub) SelectedTemperatureSource() string {
	return h.selectedSource
}

// SelectTemperatureSource switches the temperature the heat pump regulates on
func (h *Hub) SelectTemperatureSource(source string) bool {
	if !slices.Contains(h.TemperatureSources(), source) {
		h.log.Warnf("Unknown temperature source %s", source)
		return false
	}
	h.selectedSource = source
	h.sourceTimedOut = false

	if source == TemperatureSourceInternal {
		h.alertInternalTemperature(true)
		h.hp.Send(itp.NewRemoteTemperatureSetRequest().UseInternalTemperature())
		return true
	}

	now := h.now()
	report, ok := h.reports[source]
	if ok && now.Sub(report.at) < h.cfg.TemperatureSourceTimeout && !math.IsNaN(float64(report.value)) {
		h.hp.Send(itp.NewRemoteTemperatureSetRequest().SetRemoteTemperature(report.value))
		h.alertInternalTemperature(false)
		return true
	}

	// No fresh reading yet; start the timeout from now
	h.reports[source] = temperatureReport{value: float32(math.NaN()), at: now}
	return true
}

// TemperatureSourceReport records a temperature reading from source and,
// when source is selected, forwards it to the heat pump.
func (h *Hub) TemperatureSourceReport(source string, v float32) {
	h.log.Infof("Received temperature from %s of %.1f. (Current source: %s)", source, v, h.selectedSource)

	if math.IsNaN(float64(v)) || v < minReportTemperature || v > maxReportTemperature {
		h.log.Warnf("Temperature %.1f from %s is out of range and will be ignored.", v, source)
		return
	}

	now := h.now()
	h.reports[source] = temperatureReport{value: v, at: now}

	if source != h.selectedSource {
		return
	}
	h.sourceTimedOut = false
	h.hp.Send(itp.NewRemoteTemperatureSetRequest().SetRemoteTemperature(v))
	if h.cfg.EchoInterval > 0 {
		h.echoLast = now
	}
	h.alertInternalTemperature(false)
}

func (h *Hub) alertInternalTemperature(usingInternal bool) {
	for _, l := range h.dispatcher.Listeners() {
		l.UsingInternalTemperature(usingInternal)
	}
	c := h.climate
	c.UsingInternalTemperature = usingInternal
	h.setClimate(c)
}

// SelectVanePosition sets the vertical vane to a named option
func (h *Hub) SelectVanePosition(option string) bool {
	vane, ok := itp.VaneFromOption(option)
	if !ok {
		h.log.Warnf("Unknown vane position %s", option)
		return false
	}
	h.hp.Send(itp.NewSettingsSetRequest().SetVane(vane))
	return true
}

// SelectHorizontalVanePosition sets the horizontal vane to a named option
func (h *Hub) SelectHorizontalVanePosition(option string) bool {
	hvane, ok := itp.HorizontalVaneFromOption(option)
	if !ok {
		h.log.Warnf("Unknown horizontal vane position %s", option)
		return false
	}
	h.hp.Send(itp.NewSettingsSetRequest().SetHorizontalVane(hvane))
	return true
}

// ResetFilterStatus clears the service filter indicator
func (h *Hub) ResetFilterStatus() {
	h.log.Info("Received a request to reset the filter status.")
	h.hp.Send(itp.NewSetRunStateRequest().SetFilterReset(true))
}

func (h *Hub) ProcessConnectResponse(p *itp.ConnectResponse) {
	if p.Context().Association == itp.AssociationThermostat {
		return
	}
	if !h.connected {
		h.log.Info("Heat pump connected.")
	}
	h.connected = true
}

func (h *Hub) ProcessCapabilities(p *itp.CapabilitiesResponse) {
	traits := CapabilitiesToTraits(p)
	h.capabilities = p
	h.traits = &traits
	h.log.Infof("Discovered capabilities: %s", p)
	h.log.Infof("Traits: %s", traits)
}

func (h *Hub) ProcessRemoteTemperatureSet(p *itp.RemoteTemperatureSetRequest) {
	if p.Context().Source != itp.SourceThermostat || p.UsesInternalTemperature() {
		return
	}
	h.TemperatureSourceReport(TemperatureSourceThermostat, p.RemoteTemperature())
}

func (h *Hub) ProcessThermostatHello(p *itp.ThermostatHello) {
	h.log.Infof("Thermostat attached: model=%s serial=%s version=%s", p.Model(), p.Serial(), p.Version())
}

// route forwards packets between the two channels
func (h *Hub) route(p itp.Packet) {
	ctx := p.Context()
	switch {
	case ctx.Source == itp.SourceThermostat:
		h.handleThermostatRequest(p)
	case ctx.Association == itp.AssociationThermostat:
		// heat pump answer to a forwarded thermostat request
		if h.ts != nil {
			h.ts.Send(p)
		}
	case p.Type() == itp.TypeGetResponse:
		h.responseCache[p.Frame().Command()] = p
	}
}

func (h *Hub) handleThermostatRequest(p itp.Packet) {
	if h.ts == nil || !p.ExpectsResponse() {
		return
	}

	// Remote temperatures are reported above and always answered here, so the
	// selected source decides what reaches the heat pump.
	if p.Kind() == itp.KindRemoteTemperatureSetRequest {
		h.ts.Send(itp.NewSetResponse(itp.SetRemoteTemperature))
		return
	}

	if h.cfg.Passthrough {
		h.hp.Send(p)
		return
	}

	switch pkt := p.(type) {
	case *itp.ConnectRequest:
		h.ts.Send(itp.NewConnectResponse())
	case *itp.CapabilitiesRequest:
		if h.capabilities != nil {
			h.ts.Send(h.capabilities)
		}
	case *itp.GetRequest:
		if cached, ok := h.responseCache[pkt.Command()]; ok {
			h.ts.Send(cached)
		}
	case *itp.SettingsSetRequest:
		// Apply the thermostat's change as our own request
		own := itp.NewSettingsSetRequest()
		copy(own.Payload(), pkt.Payload())
		h.hp.Send(own)
		h.ts.Send(itp.NewSetResponse(itp.SetSettings))
	default:
		if p.Type() == itp.TypeSetRequest {
			h.ts.Send(itp.NewSetResponse(p.Frame().Command()))
		}
	}
}

// Connected reports whether the heat pump answered the connect request
func (h *Hub) Connected() bool { return h.connected }

// InDiscovery reports whether run-state support is still being probed
func (h *Hub) InDiscovery() bool { return h.inDiscovery }

// Traits returns the traits derived from the capabilities, if received
func (h *Hub) Traits() (Traits, bool) {
	if h.traits == nil {
		return Traits{}, false
	}
	return *h.traits, true
}

// HeatPumpBridge returns the equipment-facing bridge
func (h *Hub) HeatPumpBridge() *Bridge { return h.hp }

// ThermostatBridge returns the thermostat-facing bridge, or nil
func (h *Hub) ThermostatBridge() *Bridge { return h.ts }

// Listeners returns every registered listener, the hub first
func (h *Hub) Listeners() []Listener { return h.dispatcher.Listeners() }

// Select applies option to the registered select called name
func (h *Hub) Select(name, option string) bool {
	for _, l := range h.dispatcher.Listeners() {
		if s, ok := l.(Select); ok && s.Name() == name {
			return s.Select(option)
		}
	}
	h.log.Warnf("No select named %s", name)
	return false
}

// Publish is a no-op; the hub publishes its climate state from Update
func (h *Hub) Publish() {}
