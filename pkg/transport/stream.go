// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"sync"
)

const (
	readChunkSize = 256

	// maxBuffered bounds the bytes held for a bridge that stopped polling.
	// The oldest bytes are dropped first; the decoder resynchronises.
	maxBuffered = 4096
)

// Stream turns a blocking Connection into the non-blocking byte source a
// bridge polls. A background goroutine reads the connection into a buffer.
type Stream struct {
	conn Connection

	mu      sync.Mutex
	buf     []byte
	err     error
	dropped int

	done chan struct{}
}

// NewStream starts reading conn in the background
func NewStream(conn Connection) *Stream {
	s := &Stream{
		conn: conn,
		done: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Stream) pump() {
	defer close(s.done)
	chunk := make([]byte, readChunkSize)
	for {
		n, err := s.conn.Read(chunk)
		s.mu.Lock()
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
			if over := len(s.buf) - maxBuffered; over > 0 {
				s.buf = s.buf[over:]
				s.dropped += over
			}
		}
		if err != nil {
			if !errors.Is(err, ErrConnectionClosed) {
				err = fmt.Errorf("%w: %w", ErrConnectionClosed, err)
			}
			s.err = err
		}
		s.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// ReadAvailable copies buffered bytes into p without blocking. Once the
// connection has failed and the buffer is drained it returns the failure.
func (s *Stream) ReadAvailable(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		return 0, s.err
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.conn.Write(p)
}

// Err returns the error that stopped the reader, if any
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns how many unread bytes were discarded
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Done is closed when the background reader stops
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close closes the connection and waits for the reader to stop
func (s *Stream) Close() error {
	err := s.conn.Close()
	<-s.done
	return err
}
