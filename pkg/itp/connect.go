// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

// ConnectRequest opens a session with the heat pump.
type ConnectRequest struct {
	packet
}

// NewConnectRequest builds the handshake request
func NewConnectRequest() *ConnectRequest {
	return &ConnectRequest{newPacket(KindConnectRequest, TypeConnectRequest,
		[]byte{connectRequestCommand, connectRequestProtocolByte})}
}

// ConnectResponse acknowledges a ConnectRequest.
type ConnectResponse struct {
	packet
}

// NewConnectResponse builds the acknowledgement sent to a thermostat that connects to us
func NewConnectResponse() *ConnectResponse {
	return &ConnectResponse{newPacket(KindConnectResponse, TypeConnectResponse, []byte{0x00})}
}

// CapabilitiesRequest asks the heat pump to advertise its feature set.
type CapabilitiesRequest struct {
	packet
}

// NewCapabilitiesRequest builds the capabilities request
func NewCapabilitiesRequest() *CapabilitiesRequest {
	return &CapabilitiesRequest{newPacket(KindCapabilitiesRequest, TypeCapabilitiesRequest,
		[]byte{CapabilitiesCommand})}
}
