package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func TestFileProfileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	store := NewFileProfileStore(path)
	ctx := context.Background()

	if err := store.SaveProfile(ctx, "0xaaa", []byte(`{"apr":1}`)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveProfile(ctx, "0xbbb", []byte(`{"apr":2}`)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	// Overwrite keeps one payload per address.
	if err := store.SaveProfile(ctx, "0xaaa", []byte(`{"apr":3}`)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	profiles, err := store.LoadProfiles(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if !bytes.Equal(profiles["0xaaa"], []byte(`{"apr":3}`)) {
		t.Fatalf("payload mismatch: %s", profiles["0xaaa"])
	}
}

func TestFileProfileStoreMissingFile(t *testing.T) {
	store := NewFileProfileStore(filepath.Join(t.TempDir(), "absent.json"))

	profiles, err := store.LoadProfiles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(profiles))
	}
}
