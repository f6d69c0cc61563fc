// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Thermoquad/mitp/pkg/itp"
	"github.com/Thermoquad/mitp/pkg/transport"
)

// frameEvent is one decoder result: a classified frame, a rejected frame, or
// the read error that ended the stream.
type frameEvent struct {
	frame   *itp.RawFrame
	packet  itp.Packet
	err     error // frame rejected or payload too short
	readErr error // connection failed; no more events follow
	skipped int   // bytes discarded before this frame
}

// readFrames decodes conn on a goroutine until a read fails or ctx is done.
// Once ctx is done pending events are abandoned, so the goroutine exits after
// the next read returns even when nobody drains the channel.
func readFrames(ctx context.Context, conn io.Reader, channel itp.Context) <-chan frameEvent {
	events := make(chan frameEvent, 64)
	go func() {
		defer close(events)
		send := func(ev frameEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		decoder := itp.NewDecoder()
		buf := make([]byte, 128)
		discarded := 0

		for {
			n, err := conn.Read(buf)
			if err != nil {
				send(frameEvent{readErr: err})
				return
			}
			decoder.Feed(buf[:n])

			for {
				frame, err := decoder.Next()
				if err != nil {
					if !send(frameEvent{err: err}) {
						return
					}
					continue
				}
				if frame == nil {
					break
				}
				frame.Context = channel
				skipped := decoder.Discarded() - discarded
				discarded = decoder.Discarded()

				packet, err := itp.Classify(frame)
				if !send(frameEvent{frame: frame, packet: packet, err: err, skipped: skipped}) {
					return
				}
			}
		}
	}()
	return events
}

// errTimeout is returned by awaitKind when no matching packet arrives in time
var errTimeout = errors.New("timeout")

// awaitKind waits for the next packet of kind, ignoring everything else
func awaitKind(events <-chan frameEvent, kind itp.Kind, timeout time.Duration) (itp.Packet, error) {
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil, transport.ErrConnectionClosed
			}
			if ev.readErr != nil {
				return nil, ev.readErr
			}
			if ev.packet != nil && ev.packet.Kind() == kind {
				return ev.packet, nil
			}
		case <-deadline:
			return nil, errTimeout
		}
	}
}

// sendPacket writes p to conn as one frame
func sendPacket(conn io.Writer, p itp.Packet) error {
	_, err := conn.Write(p.Frame().Bytes())
	return err
}
