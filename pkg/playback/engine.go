// ABOUTME: Sequential playback engine
// ABOUTME: FIFO queue drained by one goroutine with cancellation and teardown
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/output"
	"github.com/speechbridge/speechbridge-go/pkg/audio/wav"
)

// State of the engine
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Recorder receives playback events
type Recorder interface {
	ItemPlayed()
	ItemFailed()
	ItemsCancelled(n int)
	QueueDepth(n int)
}

// Stats is a snapshot of engine counters
type Stats struct {
	Enqueued  uint64
	Played    uint64
	Failed    uint64
	Cancelled uint64
}

// Option configures an Engine
type Option func(*Engine)

// WithObserver registers fn to receive each item's decoded PCM just
// before it starts playing. fn runs on the engine goroutine and must not
// modify the buffer; it may call CancelAll or Close.
func WithObserver(fn func(audio.PCMBuffer)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithResumeDebounce sets the quiet window for coalescing resumes
func WithResumeDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

// WithAssumedFormat sets the format headerless payloads are wrapped as
func WithAssumedFormat(f audio.Format) Option {
	return func(e *Engine) {
		e.assumed = f
	}
}

// WithRecorder reports engine events to r
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

type item struct {
	payload []byte
	ticket  *Ticket
}

// Engine plays queued payloads strictly one at a time
type Engine struct {
	dev       output.Device
	assumed   audio.Format
	observer  func(audio.PCMBuffer)
	recorder  Recorder
	logger    *slog.Logger
	debounce  time.Duration
	debouncer *Debouncer

	mu          sync.Mutex
	state       State
	queue       []*item
	current     *item
	voice       output.Voice
	draining    bool
	callbacks   int
	epoch       context.Context
	cancelEpoch context.CancelFunc
	stats       Stats

	releaseOnce sync.Once
	released    chan struct{}
	closeErr    error
}

// New creates an engine that exclusively owns dev
func New(dev output.Device, opts ...Option) *Engine {
	e := &Engine{
		dev:      dev,
		assumed:  wav.MuLaw8kMono,
		logger:   slog.Default(),
		debounce: DefaultResumeDebounce,
		released: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("component", "playback")
	e.debouncer = NewDebouncer(e.debounce, dev.Resume)
	e.epoch, e.cancelEpoch = context.WithCancel(context.Background())

	return e
}

// Enqueue appends payload to the queue. The engine takes ownership of
// payload. It never blocks on playback.
func (e *Engine) Enqueue(payload []byte) (*Ticket, error) {
	e.mu.Lock()
	if e.state == StateClosing {
		e.mu.Unlock()
		return nil, ErrClosed
	}

	t := newTicket()
	e.queue = append(e.queue, &item{payload: payload, ticket: t})
	e.stats.Enqueued++
	depth := len(e.queue)

	if !e.draining {
		e.draining = true
		go e.drain()
	}
	e.mu.Unlock()

	if e.recorder != nil {
		e.recorder.QueueDepth(depth)
	}
	return t, nil
}

// drain is the single consumer of the queue
func (e *Engine) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 || e.state == StateClosing {
			e.draining = false
			closing := e.state == StateClosing
			if !closing {
				e.state = StateIdle
			}
			e.mu.Unlock()

			if closing {
				e.release()
			}
			return
		}

		it := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.current = it
		e.state = StatePlaying
		epoch := e.epoch
		depth := len(e.queue)
		e.mu.Unlock()

		if e.recorder != nil {
			e.callback(func() { e.recorder.QueueDepth(depth) })
		}

		e.play(epoch, it)

		e.mu.Lock()
		if e.current == it {
			e.current = nil
			e.voice = nil
		}
		e.mu.Unlock()
	}
}

// play runs one item to completion; ctx ends when CancelAll is called
func (e *Engine) play(ctx context.Context, it *item) {
	if e.dev.Suspended() {
		if err := e.debouncer.Resume(ctx); err != nil {
			if ctx.Err() != nil {
				e.cancelled(it)
				return
			}
			e.fail(it, fmt.Errorf("failed to resume output: %w", err))
			return
		}
	}

	buf, err := e.dev.Decode(ctx, wav.ToDecodable(it.payload, e.assumed))
	if ctx.Err() != nil {
		e.cancelled(it)
		return
	}
	if err != nil {
		e.fail(it, &DecodeError{Err: err})
		return
	}

	e.notify(buf)
	if ctx.Err() != nil {
		e.cancelled(it)
		return
	}

	voice, err := e.dev.Start(buf)
	if err != nil {
		e.fail(it, fmt.Errorf("failed to start playback: %w", err))
		return
	}

	e.mu.Lock()
	if ctx.Err() != nil {
		e.mu.Unlock()
		voice.Stop()
		e.cancelled(it)
		return
	}
	e.voice = voice
	e.mu.Unlock()

	select {
	case <-voice.Done():
		if ctx.Err() != nil {
			e.cancelled(it)
			return
		}
		if it.ticket.resolve(nil) {
			e.mu.Lock()
			e.stats.Played++
			e.mu.Unlock()
			if e.recorder != nil {
				e.callback(e.recorder.ItemPlayed)
			}
		}
	case <-ctx.Done():
		voice.Stop()
		e.cancelled(it)
	}
}

// notify hands buf to the observer outside the lock
func (e *Engine) notify(buf audio.PCMBuffer) {
	if e.observer == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("observer panicked", "panic", r)
		}
	}()

	e.callback(func() { e.observer(buf) })
}

// callback runs fn on the drain goroutine. While it runs, Close does not
// wait for the drain goroutine to exit.
func (e *Engine) callback(fn func()) {
	e.mu.Lock()
	e.callbacks++
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.callbacks--
		e.mu.Unlock()
	}()

	fn()
}

func (e *Engine) fail(it *item, err error) {
	if !it.ticket.resolve(err) {
		return
	}
	e.logger.Warn("playback item failed", "error", err)

	e.mu.Lock()
	e.stats.Failed++
	e.mu.Unlock()
	if e.recorder != nil {
		e.callback(e.recorder.ItemFailed)
	}
}

func (e *Engine) cancelled(it *item) {
	if !it.ticket.resolve(nil) {
		return
	}
	e.mu.Lock()
	e.stats.Cancelled++
	e.mu.Unlock()
	if e.recorder != nil {
		e.callback(func() { e.recorder.ItemsCancelled(1) })
	}
}

// CancelAll stops the playing item and resolves it and every queued item
// without error. It is safe to call from any goroutine, including an
// observer or a ticket waiter.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	pending := e.queue
	e.queue = nil
	current := e.current
	voice := e.voice
	e.current, e.voice = nil, nil

	e.cancelEpoch()
	e.epoch, e.cancelEpoch = context.WithCancel(context.Background())

	if e.state != StateClosing {
		e.state = StateIdle
	}
	e.mu.Unlock()

	// Tickets settle before the voice stops so completion is not
	// mistaken for a natural finish
	n := 0
	if current != nil && current.ticket.resolve(nil) {
		n++
	}
	for _, it := range pending {
		if it.ticket.resolve(nil) {
			n++
		}
	}
	if voice != nil {
		voice.Stop()
	}

	e.mu.Lock()
	e.stats.Cancelled += uint64(n)
	e.mu.Unlock()

	if n > 0 {
		e.logger.Debug("playback cancelled", "items", n)
	}
	if e.recorder != nil {
		if n > 0 {
			e.recorder.ItemsCancelled(n)
		}
		e.recorder.QueueDepth(0)
	}
}

// Close cancels everything and releases the device. Further Enqueue calls
// return ErrClosed. Called while an observer or Recorder callback runs it
// returns at once and the device is released when the callback returns.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.state == StateClosing {
		e.mu.Unlock()
		return nil
	}
	e.state = StateClosing
	draining := e.draining
	reentrant := e.callbacks > 0
	e.mu.Unlock()

	e.CancelAll()
	e.debouncer.Stop()

	if !draining {
		e.release()
		return e.closeErr
	}
	if reentrant {
		return nil
	}

	<-e.released
	return e.closeErr
}

// release closes the device exactly once
func (e *Engine) release() {
	e.releaseOnce.Do(func() {
		if err := e.dev.Close(); err != nil {
			e.closeErr = fmt.Errorf("failed to close output device: %w", err)
			e.logger.Warn("output device close failed", "error", err)
		}
		close(e.released)
	})
}

// Released is closed once the device has been closed
func (e *Engine) Released() <-chan struct{} {
	return e.released
}

// State returns the current state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Pending returns the number of queued items not yet started
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Stats returns a snapshot of the counters
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ResumeCalls returns how many device resumes have been issued
func (e *Engine) ResumeCalls() int {
	return e.debouncer.Calls()
}
