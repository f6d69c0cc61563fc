// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/mitp/pkg/itp"
)

// Mode selects how a bridge treats its traffic
type Mode int

const (
	// ModeActive issues requests and waits for their responses
	ModeActive Mode = iota
	// ModePassive forwards mostly unsolicited frames and never waits
	ModePassive
)

func (m Mode) String() string {
	if m == ModePassive {
		return "passive"
	}
	return "active"
}

// FrameHandler classifies received frames and delivers them to listeners
type FrameHandler interface {
	ClassifyAndBroadcast(f *itp.RawFrame) (itp.Packet, error)
}

// Sender queues packets for transmission
type Sender interface {
	Send(p itp.Packet)
}

// Bridge owns one serial channel: it receives and classifies frames, and
// sends queued packets one request at a time.
type Bridge struct {
	link    *itp.Link
	mode    Mode
	handler FrameHandler
	machine machine
	stats   *Statistics
	now     func() time.Time
	log     *logrus.Entry
}

// BridgeOption configures a Bridge
type BridgeOption func(*Bridge)

// WithClock replaces the wall clock used for response timeouts
func WithClock(now func() time.Time) BridgeOption {
	return func(b *Bridge) { b.now = now }
}

// WithStatistics shares a statistics tracker with the bridge
func WithStatistics(stats *Statistics) BridgeOption {
	return func(b *Bridge) { b.stats = stats }
}

// NewBridge creates a bridge on port. Every received frame is tagged with ctx
// and handed to handler.
func NewBridge(port itp.Port, ctx itp.Context, mode Mode, handler FrameHandler, log *logrus.Entry, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		link:    itp.NewLink(port, ctx),
		mode:    mode,
		handler: handler,
		stats:   NewStatistics(),
		now:     time.Now,
		log:     log.WithFields(logrus.Fields{"component": "bridge", "channel": ctx.Source.String()}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.link.OnError = func(err error) {
		if itp.IsFrameError(err) {
			b.stats.RecordDecodeError(err)
			b.log.WithError(err).Debug("Frame rejected")
			return
		}
		b.log.WithError(err).Debug("Link error")
	}
	return b
}

// Send queues p. A full queue drops the packet with a warning.
func (b *Bridge) Send(p itp.Packet) {
	if !b.machine.enqueue(p) {
		b.stats.QueueDrops.Add(1)
		b.log.Warnf("Packet queue full! %s packet not sent.", p.Kind())
	}
}

// Loop runs one tick: receive, then response timeout, then send.
func (b *Bridge) Loop() {
	b.receive()
	b.checkTimeout()
	b.sendNext()
}

func (b *Bridge) receive() {
	frame, ok := b.link.TryReceive()
	if !ok {
		return
	}
	b.stats.FramesReceived.Add(1)

	matched := b.mode == ModeActive && b.machine.match(frame)
	if matched {
		// Responses inherit the association of the request they answer
		frame.Context.Association = b.machine.inFlight.Context().Association
	}

	p, err := b.handler.ClassifyAndBroadcast(frame)
	switch {
	case err != nil:
		b.stats.FramingErrors.Add(1)
		b.log.WithError(err).Warn("Could not classify frame")
	case p.Kind() == itp.KindUnknown:
		b.stats.UnknownPackets.Add(1)
		b.log.Debugf("Unknown packet: %s", itp.FormatFrame(frame))
	default:
		b.log.Debugf("Received %s", p)
	}

	if matched {
		b.machine.complete()
		b.stats.ResponsesMatched.Add(1)
	}
}

func (b *Bridge) checkTimeout() {
	if p, expired := b.machine.expire(b.now()); expired {
		b.stats.ResponseTimeouts.Add(1)
		b.log.Warnf("Timeout waiting for response to %s packet.", p.Kind())
	}
}

func (b *Bridge) sendNext() {
	p, ok := b.machine.next()
	if !ok {
		return
	}
	if err := b.link.WriteFrame(p.Frame()); err != nil {
		b.stats.WriteErrors.Add(1)
		b.log.WithError(err).Warnf("Could not send %s packet", p.Kind())
		return
	}
	b.stats.PacketsSent.Add(1)
	b.log.Debugf("Sent %s", p)
	if b.mode == ModeActive {
		b.machine.sent(p, b.now())
	}
}

// Mode returns the bridge mode
func (b *Bridge) Mode() Mode { return b.mode }

// Context returns the channel context of the bridge
func (b *Bridge) Context() itp.Context { return b.link.Context() }

// State returns the current request/response state
func (b *Bridge) State() State { return b.machine.state }

// QueueLen returns the number of packets waiting to be sent
func (b *Bridge) QueueLen() int { return len(b.machine.queue) }

// InFlight returns the request awaiting a response, if any
func (b *Bridge) InFlight() itp.Packet { return b.machine.inFlight }

// Statistics returns the bridge's link counters
func (b *Bridge) Statistics() *Statistics { return b.stats }
