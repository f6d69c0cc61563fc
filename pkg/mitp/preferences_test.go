// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mitp

import (
	"context"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

type failingStore struct{}

func (failingStore) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func TestPreferences_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prefs := NewPreferences(store, "")

	rec := PreferenceRecord{}
	rec.ModeRecallSetpoints[RecallHeat] = 21.5
	rec.ModeRecallSetpoints[RecallCool] = 24
	if err := prefs.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, ok, err := NewPreferences(store, DefaultPreferenceKey).Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if got != rec {
		t.Errorf("loaded %+v, want %+v", got, rec)
	}
}

func TestPreferences_UnchangedSaveIsNoop(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	prefs := NewPreferences(store, "")

	rec := PreferenceRecord{}
	rec.ModeRecallSetpoints[RecallDry] = 22
	for i := 0; i < 3; i++ {
		if err := prefs.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if store.Saves() != 1 {
		t.Errorf("store written %d times, want 1", store.Saves())
	}

	rec.ModeRecallSetpoints[RecallDry] = 23
	if err := prefs.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if store.Saves() != 2 {
		t.Errorf("changed record not written")
	}
}

func TestPreferences_LoadedRecordNotRewritten(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := PreferenceRecord{}
	rec.ModeRecallSetpoints[RecallAuto] = 20
	if err := NewPreferences(store, "").Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	prefs := NewPreferences(store, "")
	loaded, _, err := prefs.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := prefs.Save(ctx, loaded); err != nil {
		t.Fatal(err)
	}
	if store.Saves() != 1 {
		t.Errorf("saving the loaded record wrote to the store")
	}
}

func TestPreferences_Absent(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := NewPreferences(NewMemoryStore(), "").Load(ctx)
		if ok || err != nil {
			t.Errorf("Load = %v, %v; want absent", ok, err)
		}
	})

	t.Run("no setpoints recorded", func(t *testing.T) {
		store := NewMemoryStore()
		blob, err := cbor.Marshal(PreferenceRecord{})
		if err != nil {
			t.Fatal(err)
		}
		_ = store.Save(ctx, DefaultPreferenceKey, blob)

		_, ok, err := NewPreferences(store, "").Load(ctx)
		if ok || err != nil {
			t.Errorf("Load = %v, %v; want absent", ok, err)
		}
	})

	t.Run("corrupt blob", func(t *testing.T) {
		store := NewMemoryStore()
		_ = store.Save(ctx, DefaultPreferenceKey, []byte{0xFF, 0x00})

		if _, _, err := NewPreferences(store, "").Load(ctx); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestPreferences_StoreErrors(t *testing.T) {
	ctx := context.Background()
	prefs := NewPreferences(failingStore{}, "")

	if _, _, err := prefs.Load(ctx); err == nil {
		t.Error("Load swallowed the store error")
	}
	rec := PreferenceRecord{}
	rec.ModeRecallSetpoints[RecallHeat] = 20
	if err := prefs.Save(ctx, rec); err == nil {
		t.Error("Save swallowed the store error")
	}
}
