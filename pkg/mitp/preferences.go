// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// BlobStore persists opaque records by key
type BlobStore interface {
	// Load returns the stored blob, or false when key was never saved
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, blob []byte) error
}

// DefaultPreferenceKey is the store key used when none is configured
const DefaultPreferenceKey = "mitp/preferences"

// Mode recall slots, one per operating mode
const (
	RecallHeat = iota
	RecallDry
	RecallCool
	RecallFan
	RecallAuto
	RecallModeCount
)

// PreferenceRecord is the state kept across restarts
type PreferenceRecord struct {
	ModeRecallSetpoints [RecallModeCount]float32 `cbor:"1,keyasint"`
}

// valid reports whether any setpoint was ever recorded
func (r PreferenceRecord) valid() bool {
	for _, sp := range r.ModeRecallSetpoints {
		if sp > 0 {
			return true
		}
	}
	return false
}

// Preferences loads and saves the PreferenceRecord as CBOR
type Preferences struct {
	store     BlobStore
	key       string
	lastSaved []byte
}

// NewPreferences creates preferences stored under key
func NewPreferences(store BlobStore, key string) *Preferences {
	if key == "" {
		key = DefaultPreferenceKey
	}
	return &Preferences{store: store, key: key}
}

// Load returns the saved record. A missing record, or one without any
// recalled setpoint, is reported as absent.
func (p *Preferences) Load(ctx context.Context) (PreferenceRecord, bool, error) {
	var rec PreferenceRecord
	blob, ok, err := p.store.Load(ctx, p.key)
	if err != nil {
		return rec, false, fmt.Errorf("failed to load preferences: %w", err)
	}
	if !ok {
		return rec, false, nil
	}
	if err := cbor.Unmarshal(blob, &rec); err != nil {
		return rec, false, fmt.Errorf("failed to decode preferences: %w", err)
	}
	p.lastSaved = blob
	if !rec.valid() {
		return PreferenceRecord{}, false, nil
	}
	return rec, true, nil
}

// Save stores rec. Saving a record identical to the last one is a no-op.
func (p *Preferences) Save(ctx context.Context, rec PreferenceRecord) error {
	blob, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if bytes.Equal(blob, p.lastSaved) {
		return nil
	}
	if err := p.store.Save(ctx, p.key, blob); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	p.lastSaved = blob
	return nil
}

// MemoryStore is a BlobStore kept in memory
type MemoryStore struct {
	blobs map[string][]byte
	saves int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	blob, ok := m.blobs[key]
	return blob, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, blob []byte) error {
	m.blobs[key] = append([]byte(nil), blob...)
	m.saves++
	return nil
}

// Saves returns how many times Save was called
func (m *MemoryStore) Saves() int { return m.saves }
