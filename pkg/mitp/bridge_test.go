// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Thermoquad/mitp/pkg/itp"
)

// fakePort hands out injected bytes and decodes everything written to it
type fakePort struct {
	inbound []byte
	decoder *itp.Decoder
	written []*itp.RawFrame
}

func newFakePort() *fakePort {
	return &fakePort{decoder: itp.NewDecoder()}
}

func (p *fakePort) ReadAvailable(b []byte) (int, error) {
	n := copy(b, p.inbound)
	p.inbound = p.inbound[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.decoder.Feed(b)
	for {
		f, err := p.decoder.Next()
		if err != nil || f == nil {
			break
		}
		p.written = append(p.written, f)
	}
	return len(b), nil
}

// inject queues a packet as if the remote end had sent it
func (p *fakePort) inject(pkt itp.Packet) {
	p.inbound = append(p.inbound, pkt.Frame().Bytes()...)
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// recordingHandler classifies frames and remembers them
type recordingHandler struct {
	packets []itp.Packet
}

func (r *recordingHandler) ClassifyAndBroadcast(f *itp.RawFrame) (itp.Packet, error) {
	p, err := itp.Classify(f)
	if err == nil {
		r.packets = append(r.packets, p)
	}
	return p, err
}

func newTestLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

func countLevel(hook *test.Hook, level logrus.Level) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

type bridgeFixture struct {
	bridge  *Bridge
	port    *fakePort
	clock   *fakeClock
	handler *recordingHandler
	hook    *test.Hook
}

func newBridgeFixture(mode Mode) *bridgeFixture {
	log, hook := newTestLogger()
	f := &bridgeFixture{
		port:    newFakePort(),
		clock:   newFakeClock(),
		handler: &recordingHandler{},
		hook:    hook,
	}
	f.bridge = NewBridge(f.port, itp.Context{Source: itp.SourceHeatPump}, mode, f.handler, log,
		WithClock(f.clock.Now))
	return f
}

// ============================================================
// Queue Tests
// ============================================================

func TestBridge_QueueCapacity(t *testing.T) {
	f := newBridgeFixture(ModeActive)

	for i := 0; i < MaxQueueSize+1; i++ {
		f.bridge.Send(itp.NewSetResponse(uint8(i)))
	}

	if f.bridge.QueueLen() != MaxQueueSize {
		t.Fatalf("queue length = %d, want %d", f.bridge.QueueLen(), MaxQueueSize)
	}
	if got := f.bridge.Statistics().QueueDrops.Load(); got != 1 {
		t.Errorf("queue drops = %d, want 1", got)
	}
	if countLevel(f.hook, logrus.WarnLevel) != 1 {
		t.Errorf("expected one warning for the dropped packet")
	}

	// Packets that expect no response drain one per tick, in order
	for i := 0; i < MaxQueueSize; i++ {
		f.bridge.Loop()
	}
	if len(f.port.written) != MaxQueueSize {
		t.Fatalf("written = %d, want %d", len(f.port.written), MaxQueueSize)
	}
	for i, w := range f.port.written {
		if w.Command() != uint8(i) {
			t.Errorf("packet %d has command %d, FIFO order broken", i, w.Command())
		}
	}
}

func TestBridge_NoResponseExpectedStaysIdle(t *testing.T) {
	f := newBridgeFixture(ModeActive)
	f.bridge.Send(itp.NewSetResponse(itp.SetSettings))
	f.bridge.Loop()

	if f.bridge.State() != StateIdle {
		t.Errorf("state = %s, want IDLE", f.bridge.State())
	}
}

// ============================================================
// Response / Timeout Tests
// ============================================================

func TestBridge_OneRequestInFlight(t *testing.T) {
	f := newBridgeFixture(ModeActive)
	f.bridge.Send(itp.NewConnectRequest())
	f.bridge.Send(itp.NewCapabilitiesRequest())

	f.bridge.Loop()
	f.bridge.Loop()

	if len(f.port.written) != 1 {
		t.Fatalf("written = %d, want 1 while awaiting response", len(f.port.written))
	}
	if f.bridge.State() != StateAwaitingResponse {
		t.Errorf("state = %s, want AWAITING_RESPONSE", f.bridge.State())
	}
}

func TestBridge_ResponseTimeout(t *testing.T) {
	f := newBridgeFixture(ModeActive)
	f.bridge.Send(itp.NewGetRequest(itp.GetStatus))
	f.bridge.Send(itp.NewGetRequest(itp.GetSettings))
	f.bridge.Loop()

	f.clock.Advance(ResponseTimeout)
	f.bridge.Loop()
	if f.bridge.State() != StateAwaitingResponse || len(f.port.written) != 1 {
		t.Fatalf("timed out at exactly %s", ResponseTimeout)
	}

	f.clock.Advance(time.Millisecond)
	f.bridge.Loop()

	// The next packet goes out in the same tick that expired the first
	if len(f.port.written) != 2 || f.port.written[1].Command() != itp.GetSettings {
		t.Fatalf("next packet not sent after timeout, written=%d", len(f.port.written))
	}
	if got := f.bridge.Statistics().ResponseTimeouts.Load(); got != 1 {
		t.Errorf("timeouts = %d, want 1", got)
	}
	if f.bridge.QueueLen() != 0 {
		t.Errorf("timed out request was re-queued")
	}
}

func TestBridge_ResponseJustBeforeTimeout(t *testing.T) {
	f := newBridgeFixture(ModeActive)
	f.bridge.Send(itp.NewGetRequest(itp.GetStatus))
	f.bridge.Send(itp.NewGetRequest(itp.GetSettings))
	f.bridge.Loop()

	f.clock.Advance(2999 * time.Millisecond)
	f.port.inject(itp.NewStatusGetResponse())
	f.bridge.Loop()

	if len(f.handler.packets) != 1 || f.handler.packets[0].Kind() != itp.KindStatusGetResponse {
		t.Fatalf("response not broadcast")
	}
	if len(f.port.written) != 2 {
		t.Fatalf("next packet not sent immediately after response")
	}
	if f.bridge.Statistics().ResponsesMatched.Load() != 1 || f.bridge.Statistics().ResponseTimeouts.Load() != 0 {
		t.Errorf("stats = %s", f.bridge.Statistics())
	}
}

func TestBridge_MismatchedResponseKeepsWaiting(t *testing.T) {
	f := newBridgeFixture(ModeActive)
	f.bridge.Send(itp.NewGetRequest(itp.GetStatus))
	f.bridge.Loop()

	f.port.inject(itp.NewSettingsGetResponse())
	f.bridge.Loop()

	if f.bridge.State() != StateAwaitingResponse {
		t.Errorf("unrelated response cleared the in-flight request")
	}
	if len(f.handler.packets) != 1 {
		t.Errorf("unrelated response not broadcast")
	}
}

func TestBridge_ResponseInheritsAssociation(t *testing.T) {
	f := newBridgeFixture(ModeActive)
	req := itp.NewGetRequest(itp.GetStatus)
	req.SetContext(itp.Context{Source: itp.SourceThermostat, Association: itp.AssociationThermostat})
	f.bridge.Send(req)
	f.bridge.Loop()

	f.port.inject(itp.NewStatusGetResponse())
	f.bridge.Loop()

	got := f.handler.packets[0].Context()
	want := itp.Context{Source: itp.SourceHeatPump, Association: itp.AssociationThermostat}
	if got != want {
		t.Errorf("context = %s, want %s", got, want)
	}
}

func TestBridge_PassiveNeverWaits(t *testing.T) {
	f := newBridgeFixture(ModePassive)
	f.bridge.Send(itp.NewConnectRequest())
	f.bridge.Send(itp.NewConnectRequest())
	f.bridge.Loop()
	f.bridge.Loop()

	if len(f.port.written) != 2 {
		t.Errorf("passive bridge waited for a response")
	}
	if f.bridge.State() != StateIdle {
		t.Errorf("state = %s", f.bridge.State())
	}
}

func TestBridge_CountsRejectedFrames(t *testing.T) {
	f := newBridgeFixture(ModeActive)
	bad := itp.NewConnectResponse().Frame().Bytes()
	bad[len(bad)-1] ^= 0xFF
	f.port.inbound = append(bad, []byte{0xFC, 0x41, 0x01, 0x31}...)
	f.port.inject(itp.NewUnknownPacket(itp.NewFrame(0x7C, []byte{0xAA})))

	for i := 0; i < 3; i++ {
		f.bridge.Loop()
	}

	stats := f.bridge.Statistics()
	if stats.ChecksumErrors.Load() != 1 {
		t.Errorf("checksum errors = %d, want 1", stats.ChecksumErrors.Load())
	}
	if stats.UnknownPackets.Load() != 1 {
		t.Errorf("unknown packets = %d, want 1", stats.UnknownPackets.Load())
	}
}

// ============================================================
// State Machine Tests
// ============================================================

func TestMachine_Transitions(t *testing.T) {
	var m machine
	now := newFakeClock().Now()

	if _, ok := m.next(); ok {
		t.Fatalf("empty queue produced a packet")
	}

	req := itp.NewGetRequest(itp.GetStatus)
	m.enqueue(req)
	p, ok := m.next()
	if !ok || p != req {
		t.Fatalf("next did not return the queued packet")
	}
	m.sent(p, now)
	if m.state != StateAwaitingResponse {
		t.Fatalf("state = %s after sending a request", m.state)
	}

	m.enqueue(itp.NewGetRequest(itp.GetSettings))
	if _, ok := m.next(); ok {
		t.Errorf("dequeued while awaiting a response")
	}

	if _, expired := m.expire(now.Add(ResponseTimeout)); expired {
		t.Errorf("expired at exactly the timeout")
	}
	if dropped, expired := m.expire(now.Add(ResponseTimeout + time.Nanosecond)); !expired || dropped != req {
		t.Errorf("request not expired after the timeout")
	}
	if m.state != StateIdle || m.inFlight != nil {
		t.Errorf("machine not reset after expiry")
	}
}
