// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"time"

	"github.com/Thermoquad/mitp/pkg/itp"
)

const (
	// MaxQueueSize is the number of packets a bridge holds for sending.
	// Equipment can answer slowly enough for requests to pile up.
	MaxQueueSize = 8

	// ResponseTimeout is how long a request waits for its response
	ResponseTimeout = 3000 * time.Millisecond
)

// State of a bridge's request/response cycle
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	if s == StateAwaitingResponse {
		return "AWAITING_RESPONSE"
	}
	return "IDLE"
}

// machine holds the queue and in-flight slot of a bridge. It performs no I/O;
// every transition takes the current time as input.
type machine struct {
	state    State
	queue    []itp.Packet
	inFlight itp.Packet
	sentAt   time.Time
}

// enqueue appends p unless the queue is full
func (m *machine) enqueue(p itp.Packet) bool {
	if len(m.queue) >= MaxQueueSize {
		return false
	}
	m.queue = append(m.queue, p)
	return true
}

// match reports whether f answers the in-flight request
func (m *machine) match(f *itp.RawFrame) bool {
	return m.state == StateAwaitingResponse && itp.IsResponseTo(m.inFlight, f)
}

// complete clears the in-flight slot and returns to idle
func (m *machine) complete() itp.Packet {
	p := m.inFlight
	m.inFlight = nil
	m.sentAt = time.Time{}
	m.state = StateIdle
	return p
}

// expire drops the in-flight request once it has waited longer than
// ResponseTimeout. The request is not re-queued.
func (m *machine) expire(now time.Time) (itp.Packet, bool) {
	if m.state != StateAwaitingResponse || now.Sub(m.sentAt) <= ResponseTimeout {
		return nil, false
	}
	return m.complete(), true
}

// next dequeues the head packet when idle
func (m *machine) next() (itp.Packet, bool) {
	if m.state != StateIdle || len(m.queue) == 0 {
		return nil, false
	}
	p := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return p, true
}

// sent records p as in flight when it expects a response
func (m *machine) sent(p itp.Packet, now time.Time) {
	if !p.ExpectsResponse() {
		return
	}
	m.inFlight = p
	m.sentAt = now
	m.state = StateAwaitingResponse
}
