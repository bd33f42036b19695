// ABOUTME: Bounded recording store
// ABOUTME: Upsert with eviction beyond capacity and detached writes
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultCapacity is the number of recordings retained
const DefaultCapacity = 10

// ErrEmptyID is returned when a recording has no id
var ErrEmptyID = errors.New("recording id is empty")

// Recording is a stored blob
type Recording struct {
	ID         string
	InsertedAt time.Time
	Blob       []byte
}

// Entry describes a stored recording without its blob
type Entry struct {
	ID         string    `json:"id"`
	InsertedAt time.Time `json:"inserted_at"`
	Size       int       `json:"size"`
}

// Backend is the persistence boundary; every call is atomic on its own
type Backend interface {
	Put(ctx context.Context, rec Recording) error
	Get(ctx context.Context, id string) (Recording, bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Entry, error)
}

// Recorder receives store events
type Recorder interface {
	RecordingStored()
	RecordingEvicted()
	StoreFailed()
}

// StoreError reports a failed backend operation
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Option configures a Store
type Option func(*Store)

// WithCapacity sets the number of recordings retained
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock overrides the insertion timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithRecorder reports store events to r
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Store is a bounded history of recordings
type Store struct {
	backend  Backend
	capacity int
	now      func() time.Time
	recorder Recorder
	logger   *slog.Logger

	// serializes put+evict so concurrent writers trim consistently
	mu sync.Mutex
}

// New creates a store over backend
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		capacity: DefaultCapacity,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s
}

// Capacity returns the retention limit
func (s *Store) Capacity() int {
	return s.capacity
}

// Put stores blob under id and evicts entries beyond capacity. Eviction
// failures are returned joined in a *StoreError; the put itself stands.
func (s *Store) Put(ctx context.Context, id string, blob []byte) error {
	if id == "" {
		return &StoreError{Op: "put", Err: ErrEmptyID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Recording{ID: id, InsertedAt: s.now(), Blob: blob}
	if err := s.backend.Put(ctx, rec); err != nil {
		s.failed()
		return &StoreError{Op: "put", ID: id, Err: err}
	}
	if s.recorder != nil {
		s.recorder.RecordingStored()
	}
	s.logger.Debug("recording stored", "id", id, "bytes", len(blob))

	return s.evict(ctx, id)
}

// evict deletes everything beyond capacity except keep
func (s *Store) evict(ctx context.Context, keep string) error {
	entries, err := s.backend.List(ctx)
	if err != nil {
		s.failed()
		return &StoreError{Op: "list", Err: err}
	}

	others := entries[:0]
	for _, e := range entries {
		if e.ID != keep {
			others = append(others, e)
		}
	}
	sortNewestFirst(others)

	// keep occupies one slot
	if len(others) <= s.capacity-1 {
		return nil
	}

	var errs []error
	for _, victim := range others[s.capacity-1:] {
		if err := s.backend.Delete(ctx, victim.ID); err != nil {
			s.failed()
			s.logger.Warn("eviction failed", "id", victim.ID, "error", err)
			errs = append(errs, fmt.Errorf("delete %q: %w", victim.ID, err))
			continue
		}
		if s.recorder != nil {
			s.recorder.RecordingEvicted()
		}
		s.logger.Debug("recording evicted", "id", victim.ID)
	}

	if len(errs) > 0 {
		return &StoreError{Op: "evict", ID: keep, Err: errors.Join(errs...)}
	}
	return nil
}

func (s *Store) failed() {
	if s.recorder != nil {
		s.recorder.StoreFailed()
	}
}

// Get returns the blob for id; a missing id is (nil, false, nil)
func (s *Store) Get(ctx context.Context, id string) ([]byte, bool, error) {
	rec, ok, err := s.backend.Get(ctx, id)
	if err != nil {
		s.failed()
		return nil, false, &StoreError{Op: "get", ID: id, Err: err}
	}
	if !ok {
		return nil, false, nil
	}
	return rec.Blob, true, nil
}

// List returns stored entries newest first
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.backend.List(ctx)
	if err != nil {
		s.failed()
		return nil, &StoreError{Op: "list", Err: err}
	}
	sortNewestFirst(entries)
	return entries, nil
}

// PutAsync writes in a detached goroutine. Cancelling ctx does not abort
// the write. The returned channel yields the result once and is closed.
func (s *Store) PutAsync(ctx context.Context, id string, blob []byte) <-chan error {
	ch := make(chan error, 1)
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer close(ch)
		err := s.Put(ctx, id, blob)
		if err != nil {
			s.logger.Warn("detached put failed", "id", id, "error", err)
		}
		ch <- err
	}()

	return ch
}

// sortNewestFirst orders by insertion time descending, then id ascending
func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].InsertedAt.Equal(entries[j].InsertedAt) {
			return entries[i].InsertedAt.After(entries[j].InsertedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}
