// ABOUTME: Playback engine package for synthesized speech
// ABOUTME: Queued, cancellable, strictly sequential player over an output device
// Package playback plays queued audio payloads one at a time.
//
// Payloads are WAV files or headerless mu-law (8 kHz mono). Each Enqueue
// returns a Ticket that resolves when the item finishes playing, is
// cancelled, or fails. A decode failure rejects only that ticket with a
// *DecodeError; the queue keeps draining.
//
// States:
//
//	Idle -> Playing -> Idle
//	any  -> Closing (absorbing)
//
// When the output device reports itself suspended the engine asks its own
// Debouncer to resume it, so a burst of queued items produces a single
// wake-up call.
//
// Example:
//
//	engine := playback.New(dev, playback.WithObserver(func(buf audio.PCMBuffer) {
//	    recorder.AddAgent(time.Now(), buf)
//	}))
//	ticket, err := engine.Enqueue(payload)
//	err = ticket.Wait(ctx)
//
//	engine.CancelAll() // barge-in
//	engine.Close()
package playback
