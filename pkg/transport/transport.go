// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport opens the byte links a bridge talks over: a local serial
// port or a remote serial port exposed over WebSocket.
package transport

import (
	"errors"
	"fmt"
	"io"
)

// Connection is a byte link to one device
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned once a connection has failed or been closed
var ErrConnectionClosed = errors.New("connection closed")

// Options selects and configures a connection. URL takes precedence over Port.
type Options struct {
	// Serial
	Port string
	Baud int

	// WebSocket
	URL         string
	Username    string
	Password    string
	NoSSLVerify bool
}

// Describe returns a human readable name for the connection
func (o Options) Describe() string {
	if o.URL != "" {
		return fmt.Sprintf("WebSocket: %s", o.URL)
	}
	return fmt.Sprintf("Serial: %s @ %d baud", o.Port, o.Baud)
}

// Open opens either a WebSocket or a serial connection
func Open(o Options) (Connection, error) {
	if o.URL != "" {
		conn, err := OpenWebSocket(o.URL, o.Username, o.Password, o.NoSSLVerify)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	if o.Port != "" {
		conn, err := OpenSerial(o.Port, o.Baud)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return nil, errors.New("either a serial port or a WebSocket URL must be specified")
}
