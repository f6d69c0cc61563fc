// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import (
	"fmt"
)

// Port is a byte link to one device. ReadAvailable must return immediately with
// whatever bytes are already buffered, possibly none.
type Port interface {
	ReadAvailable(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Link frames bytes on one Port. It is not safe for concurrent use.
type Link struct {
	port    Port
	context Context
	decoder *Decoder
	readBuf []byte

	// OnError, when set, is called for every rejected frame and read/write failure.
	OnError func(err error)
}

// NewLink creates a link that tags every received frame with ctx
func NewLink(port Port, ctx Context) *Link {
	return &Link{
		port:    port,
		context: ctx,
		decoder: NewDecoder(),
		readBuf: make([]byte, MaxFrameSize*2),
	}
}

// Context returns the channel context of the link
func (l *Link) Context() Context {
	return l.context
}

// TryReceive returns at most one complete frame without blocking. Bytes of a
// partial frame stay buffered for the next call; malformed data is discarded.
func (l *Link) TryReceive() (*RawFrame, bool) {
	n, err := l.port.ReadAvailable(l.readBuf)
	if err != nil {
		l.report(fmt.Errorf("read: %w", err))
	}
	if n > 0 {
		l.decoder.Feed(l.readBuf[:n])
	}

	for {
		frame, err := l.decoder.Next()
		if err != nil {
			l.report(err)
			continue
		}
		if frame == nil {
			return nil, false
		}
		frame.Context = l.context
		return frame, true
	}
}

// WriteFrame writes the wire representation of frame. Transport failures are
// reported through OnError and returned, but never retried.
func (l *Link) WriteFrame(frame *RawFrame) error {
	if _, err := l.port.Write(frame.Bytes()); err != nil {
		err = fmt.Errorf("write: %w", err)
		l.report(err)
		return err
	}
	return nil
}

func (l *Link) report(err error) {
	if l.OnError != nil {
		l.OnError(err)
	}
}
