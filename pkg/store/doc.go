// ABOUTME: Recording store package for recent call history
// ABOUTME: Bounded keyed storage of WAV blobs with oldest-first eviction
// Package store keeps a small, bounded history of exported recordings.
//
// Put upserts a blob under an id stamped with the current time, then
// trims the history to the newest Capacity entries (10 by default). Each
// eviction is its own backend call; a failed delete is logged and
// reported but never undoes the put, and the entry just written is never
// evicted. Get reports a missing id as (nil, false, nil).
//
// Backends:
//   - MemoryBackend: in-process map, for tests and ephemeral sessions
//   - FileBackend: one .wav and one .json metadata file per id in a directory
//
// Example:
//
//	backend, err := store.NewFileBackend("/var/lib/speechbridge/recordings")
//	s := store.New(backend)
//	err = s.Put(ctx, "conv-42-mixed", blob.Data)
//	data, ok, err := s.Get(ctx, "conv-42-mixed")
package store
