// ABOUTME: Playback error types
// ABOUTME: Closed-engine sentinel and per-item decode failure
package playback

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Enqueue once the engine is closing
var ErrClosed = errors.New("playback engine closed")

// DecodeError rejects a single item whose bytes could not be decoded
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode audio: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
