// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import "fmt"

// Classify decodes a validated frame into its packet variant. Type and command
// combinations that are not modelled become an UnknownPacket. An error is only
// returned when a known variant is too short to hold its fields.
func Classify(f *RawFrame) (Packet, error) {
	switch f.Type {
	case TypeConnectRequest:
		return &ConnectRequest{fromFrame(KindConnectRequest, f)}, nil
	case TypeConnectResponse:
		return &ConnectResponse{fromFrame(KindConnectResponse, f)}, nil
	case TypeCapabilitiesRequest:
		return &CapabilitiesRequest{fromFrame(KindCapabilitiesRequest, f)}, nil
	case TypeCapabilitiesResponse:
		if f.Command() != CapabilitiesCommand {
			return NewUnknownPacket(f), nil
		}
		if err := requirePayload(f, StandardPayloadSize); err != nil {
			return nil, err
		}
		return &CapabilitiesResponse{fromFrame(KindCapabilitiesResponse, f)}, nil
	case TypeGetRequest:
		if err := requirePayload(f, 1); err != nil {
			return nil, err
		}
		return &GetRequest{fromFrame(KindGetRequest, f)}, nil
	case TypeGetResponse:
		return classifyGetResponse(f)
	case TypeSetRequest:
		return classifySetRequest(f)
	case TypeSetResponse:
		return &SetResponse{fromFrame(KindSetResponse, f)}, nil
	}
	return NewUnknownPacket(f), nil
}

func classifyGetResponse(f *RawFrame) (Packet, error) {
	var kind Kind
	switch f.Command() {
	case GetSettings:
		kind = KindSettingsGetResponse
	case GetCurrentTemp:
		kind = KindCurrentTempGetResponse
	case GetErrorInfo:
		kind = KindErrorInfoGetResponse
	case GetStatus:
		kind = KindStatusGetResponse
	case GetRunState:
		kind = KindRunStateGetResponse
	default:
		return NewUnknownPacket(f), nil
	}
	if err := requirePayload(f, StandardPayloadSize); err != nil {
		return nil, err
	}

	p := fromFrame(kind, f)
	switch kind {
	case KindSettingsGetResponse:
		return &SettingsGetResponse{p}, nil
	case KindCurrentTempGetResponse:
		return &CurrentTempGetResponse{p}, nil
	case KindErrorInfoGetResponse:
		return &ErrorInfoGetResponse{p}, nil
	case KindStatusGetResponse:
		return &StatusGetResponse{p}, nil
	default:
		return &RunStateGetResponse{p}, nil
	}
}

func classifySetRequest(f *RawFrame) (Packet, error) {
	var kind Kind
	switch f.Command() {
	case SetSettings:
		kind = KindSettingsSetRequest
	case SetRemoteTemperature:
		kind = KindRemoteTemperatureSetRequest
	case SetRunState:
		kind = KindSetRunStateRequest
	case SetThermostatSensorStatus:
		kind = KindThermostatSensorStatus
	case SetThermostatHello:
		kind = KindThermostatHello
	default:
		return NewUnknownPacket(f), nil
	}
	if err := requirePayload(f, StandardPayloadSize); err != nil {
		return nil, err
	}

	p := fromFrame(kind, f)
	switch kind {
	case KindSettingsSetRequest:
		return &SettingsSetRequest{p}, nil
	case KindRemoteTemperatureSetRequest:
		return &RemoteTemperatureSetRequest{p}, nil
	case KindSetRunStateRequest:
		return &SetRunStateRequest{p}, nil
	case KindThermostatSensorStatus:
		return &ThermostatSensorStatus{p}, nil
	default:
		return &ThermostatHello{p}, nil
	}
}

func requirePayload(f *RawFrame, n int) error {
	if len(f.Payload) < n {
		return fmt.Errorf("%w: type 0x%02X command 0x%02X has %d bytes (need %d)",
			ErrShortPayload, f.Type, f.Command(), len(f.Payload), n)
	}
	return nil
}

// IsResponseTo reports whether frame answers request: its type must be the
// request type's response type, and get responses must echo the sub-command.
func IsResponseTo(request Packet, frame *RawFrame) bool {
	if frame.Type != ResponseType(request.Type()) {
		return false
	}
	if request.Type() == TypeGetRequest {
		return len(request.Payload()) > 0 && frame.Command() == request.Payload()[0]
	}
	return true
}
