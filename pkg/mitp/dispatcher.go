// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/mitp/pkg/itp"
)

type handler func(itp.Packet)

// binding ties a packet kind to the processor interface that receives it
type binding struct {
	kind itp.Kind
	bind func(l Listener) (handler, bool)
}

// processorFor returns a handler calling method on l when l implements T
func processorFor[T any, P itp.Packet](l Listener, method func(T, P)) (handler, bool) {
	proc, ok := l.(T)
	if !ok {
		return nil, false
	}
	return func(p itp.Packet) {
		if pkt, ok := p.(P); ok {
			method(proc, pkt)
		}
	}, true
}

var bindings = []binding{
	{itp.KindConnectRequest, func(l Listener) (handler, bool) {
		return processorFor(l, ConnectRequestProcessor.ProcessConnectRequest)
	}},
	{itp.KindConnectResponse, func(l Listener) (handler, bool) {
		return processorFor(l, ConnectResponseProcessor.ProcessConnectResponse)
	}},
	{itp.KindCapabilitiesRequest, func(l Listener) (handler, bool) {
		return processorFor(l, CapabilitiesRequestProcessor.ProcessCapabilitiesRequest)
	}},
	{itp.KindCapabilitiesResponse, func(l Listener) (handler, bool) {
		return processorFor(l, CapabilitiesProcessor.ProcessCapabilities)
	}},
	{itp.KindGetRequest, func(l Listener) (handler, bool) {
		return processorFor(l, GetRequestProcessor.ProcessGetRequest)
	}},
	{itp.KindSettingsGetResponse, func(l Listener) (handler, bool) {
		return processorFor(l, SettingsProcessor.ProcessSettings)
	}},
	{itp.KindCurrentTempGetResponse, func(l Listener) (handler, bool) {
		return processorFor(l, CurrentTempProcessor.ProcessCurrentTemp)
	}},
	{itp.KindErrorInfoGetResponse, func(l Listener) (handler, bool) {
		return processorFor(l, ErrorInfoProcessor.ProcessErrorInfo)
	}},
	{itp.KindStatusGetResponse, func(l Listener) (handler, bool) {
		return processorFor(l, StatusProcessor.ProcessStatus)
	}},
	{itp.KindRunStateGetResponse, func(l Listener) (handler, bool) {
		return processorFor(l, RunStateProcessor.ProcessRunState)
	}},
	{itp.KindSettingsSetRequest, func(l Listener) (handler, bool) {
		return processorFor(l, SettingsSetProcessor.ProcessSettingsSet)
	}},
	{itp.KindRemoteTemperatureSetRequest, func(l Listener) (handler, bool) {
		return processorFor(l, RemoteTemperatureSetProcessor.ProcessRemoteTemperatureSet)
	}},
	{itp.KindSetRunStateRequest, func(l Listener) (handler, bool) {
		return processorFor(l, SetRunStateProcessor.ProcessSetRunState)
	}},
	{itp.KindThermostatSensorStatus, func(l Listener) (handler, bool) {
		return processorFor(l, ThermostatSensorStatusProcessor.ProcessThermostatSensorStatus)
	}},
	{itp.KindThermostatHello, func(l Listener) (handler, bool) {
		return processorFor(l, ThermostatHelloProcessor.ProcessThermostatHello)
	}},
	{itp.KindSetResponse, func(l Listener) (handler, bool) {
		return processorFor(l, SetResponseProcessor.ProcessSetResponse)
	}},
	{itp.KindUnknown, func(l Listener) (handler, bool) {
		return processorFor(l, UnknownPacketProcessor.ProcessUnknown)
	}},
}

// Dispatcher classifies frames and delivers each packet to the listeners
// registered for its kind.
type Dispatcher struct {
	listeners []Listener
	handlers  map[itp.Kind][]handler
	log       *logrus.Entry
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[itp.Kind][]handler),
		log:      log.WithField("component", "dispatcher"),
	}
}

// Register adds l and binds it to every packet kind it can process
func (d *Dispatcher) Register(l Listener) {
	d.listeners = append(d.listeners, l)
	for _, b := range bindings {
		if h, ok := b.bind(l); ok {
			d.handlers[b.kind] = append(d.handlers[b.kind], h)
		}
	}
}

// Listeners returns the registered listeners in registration order
func (d *Dispatcher) Listeners() []Listener {
	return d.listeners
}

// Interested reports whether any listener processes kind
func (d *Dispatcher) Interested(kind itp.Kind) bool {
	return len(d.handlers[kind]) > 0
}

// ClassifyAndBroadcast decodes f and synchronously delivers it to the
// interested listeners. Frames that cannot be decoded are returned as errors
// and not delivered.
func (d *Dispatcher) ClassifyAndBroadcast(f *itp.RawFrame) (itp.Packet, error) {
	p, err := itp.Classify(f)
	if err != nil {
		return nil, err
	}
	d.Broadcast(p)
	return p, nil
}

// Broadcast delivers an already decoded packet
func (d *Dispatcher) Broadcast(p itp.Packet) {
	for _, h := range d.handlers[p.Kind()] {
		h(p)
	}
}
