// ABOUTME: Tests for the bounded recording store
// ABOUTME: Covers upsert, eviction order, partial failure and detached writes
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock hands out strictly increasing timestamps
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// flakyBackend fails deletes for selected ids
type flakyBackend struct {
	*MemoryBackend
	failDelete map[string]bool
	deletes    []string
}

func (f *flakyBackend) Delete(ctx context.Context, id string) error {
	f.deletes = append(f.deletes, id)
	if f.failDelete[id] {
		return errors.New("disk full")
	}
	return f.MemoryBackend.Delete(ctx, id)
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	if err := s.Put(ctx, "conv-1-mixed", []byte("RIFF")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	blob, ok, err := s.Get(ctx, "conv-1-mixed")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(blob) != "RIFF" {
		t.Errorf("unexpected blob %q", blob)
	}
}

func TestGetMissing(t *testing.T) {
	blob, ok, err := New(NewMemoryBackend()).Get(context.Background(), "nope")

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if ok || blob != nil {
		t.Errorf("expected not found, got ok=%v blob=%v", ok, blob)
	}
}

func TestPutEmptyID(t *testing.T) {
	err := New(NewMemoryBackend()).Put(context.Background(), "", nil)
	if !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}
}

func TestPutUpsert(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), WithClock(newFakeClock().Now))

	s.Put(ctx, "a", []byte("one"))
	s.Put(ctx, "a", []byte("two"))

	entries, _ := s.List(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	blob, _, _ := s.Get(ctx, "a")
	if string(blob) != "two" {
		t.Errorf("expected replaced blob, got %q", blob)
	}
}

func TestPutEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), WithClock(newFakeClock().Now))

	for i := 0; i < 12; i++ {
		if err := s.Put(ctx, fmt.Sprintf("rec-%02d", i), []byte{byte(i)}); err != nil {
			t.Fatalf("put %d failed: %v", i, err)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != DefaultCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultCapacity, len(entries))
	}
	if entries[0].ID != "rec-11" || entries[9].ID != "rec-02" {
		t.Errorf("unexpected order %v", ids(entries))
	}

	for _, gone := range []string{"rec-00", "rec-01"} {
		if _, ok, _ := s.Get(ctx, gone); ok {
			t.Errorf("expected %s evicted", gone)
		}
	}
}

func TestPutEleventhEvictsOnlyOldest(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	s := New(backend, WithClock(newFakeClock().Now))

	for i := 1; i <= 10; i++ {
		if err := s.Put(ctx, fmt.Sprintf("rec-%02d", i), []byte{byte(i)}); err != nil {
			t.Fatalf("put %d failed: %v", i, err)
		}
	}
	if len(backend.deletes) != 0 {
		t.Fatalf("expected no evictions at capacity, got %v", backend.deletes)
	}

	if err := s.Put(ctx, "rec-11", []byte{11}); err != nil {
		t.Fatalf("put 11 failed: %v", err)
	}
	if len(backend.deletes) != 1 || backend.deletes[0] != "rec-01" {
		t.Fatalf("expected only rec-01 evicted, got %v", backend.deletes)
	}

	entries, _ := s.List(ctx)
	if len(entries) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(entries))
	}
	for i := 2; i <= 11; i++ {
		if _, ok, _ := s.Get(ctx, fmt.Sprintf("rec-%02d", i)); !ok {
			t.Errorf("rec-%02d should still be stored", i)
		}
	}
}

func TestPutKeepsNewEntryWithClockTies(t *testing.T) {
	ctx := context.Background()
	fixed := time.Unix(1700000000, 0)
	s := New(NewMemoryBackend(), WithCapacity(2), WithClock(func() time.Time { return fixed }))

	for _, id := range []string{"b", "c", "a"} {
		s.Put(ctx, id, nil)
	}

	if _, ok, _ := s.Get(ctx, "a"); !ok {
		t.Error("just-inserted entry must survive eviction")
	}
	entries, _ := s.List(ctx)
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %v", ids(entries))
	}
}

func TestPutPartialEvictionFailure(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{
		MemoryBackend: NewMemoryBackend(),
		failDelete:    map[string]bool{"old-0": true},
	}
	s := New(backend, WithCapacity(2), WithClock(newFakeClock().Now))

	s.Put(ctx, "old-0", nil)
	s.Put(ctx, "old-1", nil)
	err := s.Put(ctx, "new", nil)

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if storeErr.Op != "evict" {
		t.Errorf("expected evict op, got %q", storeErr.Op)
	}

	if _, ok, _ := s.Get(ctx, "new"); !ok {
		t.Error("put must stand despite eviction failure")
	}
	if _, ok, _ := s.Get(ctx, "old-1"); !ok {
		t.Error("expected old-1 to be kept")
	}
	for _, id := range backend.deletes {
		if id == "new" {
			t.Error("just-inserted entry must never be deleted")
		}
	}
}

func TestPutAsync(t *testing.T) {
	backend := NewMemoryBackend()
	s := New(backend)

	ctx, cancel := context.WithCancel(context.Background())
	errc := s.PutAsync(ctx, "detached", []byte("data"))
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("detached put did not finish")
	}

	if _, ok, _ := s.Get(context.Background(), "detached"); !ok {
		t.Error("expected detached write to land")
	}
	if _, open := <-errc; open {
		t.Error("expected channel closed after result")
	}
}

func TestStoreErrorMessage(t *testing.T) {
	err := &StoreError{Op: "get", ID: "x", Err: errors.New("boom")}
	if err.Error() != `store get "x": boom` {
		t.Errorf("unexpected message %q", err.Error())
	}

	err = &StoreError{Op: "list", Err: errors.New("boom")}
	if err.Error() != "store list: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
