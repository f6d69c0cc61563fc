// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import "github.com/Thermoquad/mitp/pkg/itp"

// Listener consumes decoded packets. Which packets a listener receives is
// decided once, at registration, by the processor interfaces it implements.
type Listener interface {
	// Publish is called once per update cycle. Implementations publish only
	// when their state changed.
	Publish()
	// Setup is called once before the first tick
	Setup(thermostatPresent bool)
	// UsingInternalTemperature is called whenever the heat pump switches
	// between its internal sensor and a remote temperature source.
	UsingInternalTemperature(usingInternal bool)
}

// BaseListener provides no-op Setup and UsingInternalTemperature for embedding
type BaseListener struct{}

func (BaseListener) Setup(bool)                    {}
func (BaseListener) UsingInternalTemperature(bool) {}

// Packet processors. Process methods run inside the bridge tick and must
// only record state.

type ConnectRequestProcessor interface {
	ProcessConnectRequest(p *itp.ConnectRequest)
}

type ConnectResponseProcessor interface {
	ProcessConnectResponse(p *itp.ConnectResponse)
}

type CapabilitiesRequestProcessor interface {
	ProcessCapabilitiesRequest(p *itp.CapabilitiesRequest)
}

type CapabilitiesProcessor interface {
	ProcessCapabilities(p *itp.CapabilitiesResponse)
}

type GetRequestProcessor interface {
	ProcessGetRequest(p *itp.GetRequest)
}

type SettingsProcessor interface {
	ProcessSettings(p *itp.SettingsGetResponse)
}

type CurrentTempProcessor interface {
	ProcessCurrentTemp(p *itp.CurrentTempGetResponse)
}

type ErrorInfoProcessor interface {
	ProcessErrorInfo(p *itp.ErrorInfoGetResponse)
}

type StatusProcessor interface {
	ProcessStatus(p *itp.StatusGetResponse)
}

type RunStateProcessor interface {
	ProcessRunState(p *itp.RunStateGetResponse)
}

type SettingsSetProcessor interface {
	ProcessSettingsSet(p *itp.SettingsSetRequest)
}

type RemoteTemperatureSetProcessor interface {
	ProcessRemoteTemperatureSet(p *itp.RemoteTemperatureSetRequest)
}

type SetRunStateProcessor interface {
	ProcessSetRunState(p *itp.SetRunStateRequest)
}

type ThermostatSensorStatusProcessor interface {
	ProcessThermostatSensorStatus(p *itp.ThermostatSensorStatus)
}

type ThermostatHelloProcessor interface {
	ProcessThermostatHello(p *itp.ThermostatHello)
}

type SetResponseProcessor interface {
	ProcessSetResponse(p *itp.SetResponse)
}

type UnknownPacketProcessor interface {
	ProcessUnknown(p *itp.UnknownPacket)
}
