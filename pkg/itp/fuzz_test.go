// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itp

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomFrame builds a valid frame with a random type and payload
func randomFrame(rng *rand.Rand) *RawFrame {
	payload := make([]byte, rng.Intn(MaxPayloadSize+1))
	rng.Read(payload)
	return NewFrame(uint8(rng.Intn(256)), payload)
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash and never holds more than one frame of bytes
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		decodeAll(d, data)
		if d.Buffered() >= MaxFrameSize {
			t.Fatalf("Round %d: decoder holds %d bytes after draining", i, d.Buffered())
		}
	}
}

// TestFuzzDecoder_RandomFrames round-trips random valid frames
func TestFuzzDecoder_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		want := randomFrame(rng)
		frames, errs := decodeAll(NewDecoder(), want.Bytes())
		if len(errs) != 0 {
			t.Errorf("Round %d: unexpected errors: %v", i, errs)
			continue
		}
		if len(frames) != 1 {
			t.Errorf("Round %d: expected 1 frame, got %d", i, len(frames))
			continue
		}
		got := frames[0]
		if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) || got.Checksum != want.Checksum {
			t.Errorf("Round %d: frame mismatch: got % X, want % X", i, got.Bytes(), want.Bytes())
		}
	}
}

// TestFuzzDecoder_GarbageBetweenFrames checks that a valid frame is always
// recovered after arbitrary noise that contains no start byte
func TestFuzzDecoder_GarbageBetweenFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		noise := make([]byte, rng.Intn(64))
		for j := range noise {
			noise[j] = uint8(rng.Intn(StartByte))
		}
		want := randomFrame(rng)
		data := append(noise, want.Bytes()...)

		frames, _ := decodeAll(NewDecoder(), data)
		if len(frames) != 1 || !bytes.Equal(frames[0].Bytes(), want.Bytes()) {
			t.Errorf("Round %d: frame not recovered after %d noise bytes", i, len(noise))
		}
	}
}

// TestFuzzDecoder_CorruptedFrames corrupts one byte of a frame and checks
// that the decoder never returns the corrupted frame as valid
func TestFuzzDecoder_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		original := randomFrame(rng)
		data := original.Bytes()

		// Corrupt a random byte after the start byte
		idx := rng.Intn(len(data)-1) + 1
		data[idx] ^= byte(rng.Intn(255) + 1)

		frames, _ := decodeAll(NewDecoder(), data)
		for _, f := range frames {
			if f.Type == original.Type && bytes.Equal(f.Payload, original.Payload) && idx != len(data)-1 {
				t.Errorf("Round %d: corrupted byte %d went unnoticed", i, idx)
			}
			if CalculateChecksum(f.Bytes()[:len(f.Bytes())-1]) != f.Checksum {
				t.Errorf("Round %d: decoder returned frame with bad checksum", i)
			}
		}
	}
}

// TestFuzzClassify_NeverPanics classifies random frames
func TestFuzzClassify_NeverPanics(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	types := []uint8{TypeSetRequest, TypeGetRequest, TypeConnectRequest, TypeCapabilitiesRequest,
		TypeSetResponse, TypeGetResponse, TypeConnectResponse, TypeCapabilitiesResponse}

	for i := 0; i < rounds; i++ {
		f := randomFrame(rng)
		f.Type = types[rng.Intn(len(types))]

		p, err := Classify(f)
		if err != nil {
			continue
		}
		_ = p.String()
		_ = ValidatePacket(p)
		if !bytes.Equal(p.Frame().Bytes(), f.Bytes()) {
			t.Errorf("Round %d: %s did not re-encode identically", i, p.Kind())
		}
	}
}
