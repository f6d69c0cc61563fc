// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Thermoquad/mitp/pkg/itp"
	"github.com/Thermoquad/mitp/pkg/transport"
)

func drain(events <-chan frameEvent) []frameEvent {
	var all []frameEvent
	for ev := range events {
		all = append(all, ev)
	}
	return all
}

func TestReadFrames_DecodesAndEnds(t *testing.T) {
	channel := itp.Context{Source: itp.SourceHeatPump}

	var wire bytes.Buffer
	wire.Write([]byte{0x00, 0x11})
	wire.Write(itp.NewConnectRequest().Frame().Bytes())
	bad := itp.NewConnectResponse().Frame().Bytes()
	bad[len(bad)-1] ^= 0xFF
	wire.Write(bad)

	events := drain(readFrames(context.Background(), &wire, channel))
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}

	first := events[0]
	if first.packet == nil || first.packet.Kind() != itp.KindConnectRequest {
		t.Fatalf("first event = %+v, want connect request", first)
	}
	if first.skipped != 2 {
		t.Errorf("skipped = %d, want 2", first.skipped)
	}
	if first.frame.Context != channel {
		t.Errorf("context = %v, want %v", first.frame.Context, channel)
	}

	if !errors.Is(events[1].err, itp.ErrChecksum) || events[1].frame != nil {
		t.Errorf("second event = %+v, want checksum rejection", events[1])
	}
	if !errors.Is(events[2].readErr, io.EOF) {
		t.Errorf("last event = %+v, want EOF", events[2])
	}
}

// endlessFrames yields a connect request on every read
type endlessFrames struct{}

func (endlessFrames) Read(p []byte) (int, error) {
	return copy(p, itp.NewConnectRequest().Frame().Bytes()), nil
}

func TestReadFrames_StopsWhenAbandoned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := readFrames(ctx, endlessFrames{}, itp.Context{})

	// Let the buffer fill with nobody reading
	time.Sleep(20 * time.Millisecond)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("reader goroutine still running after cancel")
		}
	}
}

func TestAwaitKind(t *testing.T) {
	events := make(chan frameEvent, 4)
	events <- classified(t, itp.NewConnectRequest(), 0)
	events <- frameEvent{err: itp.ErrChecksum}
	events <- classified(t, itp.NewConnectResponse(), 0)

	p, err := awaitKind(events, itp.KindConnectResponse, time.Second)
	if err != nil {
		t.Fatalf("awaitKind: %v", err)
	}
	if p.Kind() != itp.KindConnectResponse {
		t.Errorf("kind = %s, want %s", p.Kind(), itp.KindConnectResponse)
	}
}

func TestAwaitKind_Timeout(t *testing.T) {
	events := make(chan frameEvent)
	if _, err := awaitKind(events, itp.KindConnectResponse, 10*time.Millisecond); !errors.Is(err, errTimeout) {
		t.Errorf("expected errTimeout, got %v", err)
	}
}

func TestAwaitKind_Closed(t *testing.T) {
	readErr := errors.New("port unplugged")
	events := make(chan frameEvent, 1)
	events <- frameEvent{readErr: readErr}
	if _, err := awaitKind(events, itp.KindConnectResponse, time.Second); !errors.Is(err, readErr) {
		t.Errorf("expected read error, got %v", err)
	}

	closed := make(chan frameEvent)
	close(closed)
	if _, err := awaitKind(closed, itp.KindConnectResponse, time.Second); !errors.Is(err, transport.ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestSendPacket(t *testing.T) {
	var buf bytes.Buffer
	req := itp.NewConnectRequest()
	if err := sendPacket(&buf, req); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), req.Frame().Bytes()) {
		t.Errorf("wrote % X", buf.Bytes())
	}
}
