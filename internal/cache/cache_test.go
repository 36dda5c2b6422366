package cache

import (
	"context"
	"testing"
	"time"
)

func TestLookupStates(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	c := New(store, DefaultTTL)
	ctx := context.Background()

	key := Key{Feature: "tips", SubjectID: "petX"}

	// Empty store: miss.
	if _, state, err := c.Lookup(ctx, key); err != nil || state != StateMiss {
		t.Fatalf("expected miss on empty store, got state=%v err=%v", state, err)
	}

	// Entry aged 23h under a 24h TTL is still fresh.
	if err := store.Set(ctx, key.String(), []byte(`{"v":1}`), time.Now().Add(-23*time.Hour)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, state, err := c.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if state != StateFresh {
		t.Fatalf("expected fresh at 23h, got %v", state)
	}
	if string(data) != `{"v":1}` {
		t.Fatalf("unexpected data: %s", data)
	}

	// At 25h the same entry is stale but still returned.
	if err := store.Set(ctx, key.String(), []byte(`{"v":1}`), time.Now().Add(-25*time.Hour)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, state, err = c.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if state != StateStale {
		t.Fatalf("expected stale at 25h, got %v", state)
	}
	if string(data) != `{"v":1}` {
		t.Fatalf("stale data must still be served, got %s", data)
	}
}

func TestPutThenLookupRoundtrip(t *testing.T) {
	t.Parallel()

	c := New(NewMemoryStore(), time.Hour)
	ctx := context.Background()
	key := Key{Feature: "status", SubjectID: "pet42"}

	if err := c.Put(ctx, key, []byte(`{"status":"healthy"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, state, err := c.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if state != StateFresh {
		t.Fatalf("expected fresh right after Put, got %v", state)
	}
	if string(data) != `{"status":"healthy"}` {
		t.Fatalf("unexpected data: %s", data)
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("original")
	if err := store.Set(ctx, "k", buf, time.Now()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	buf[0] = 'X'

	entry, ok, err := store.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(entry.Data) != "original" {
		t.Fatalf("store must copy the caller's buffer, got %q", entry.Data)
	}
}

func TestKeyRoundtrip(t *testing.T) {
	t.Parallel()

	key := Key{Feature: "reminders", SubjectID: "pet-7"}
	parsed, ok := ParseKey(key.String())
	if !ok {
		t.Fatalf("ParseKey failed for %q", key.String())
	}
	if parsed != key {
		t.Fatalf("roundtrip mismatch: %#v != %#v", parsed, key)
	}

	if _, ok := ParseKey("bogus"); ok {
		t.Fatalf("ParseKey should reject malformed keys")
	}
}
