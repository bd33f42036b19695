// ABOUTME: Call session joining microphone, transport and speaker
// ABOUTME: Batches caller audio, plays agent audio and persists recordings
package speechbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/decode"
	"github.com/speechbridge/speechbridge-go/pkg/audio/output"
	"github.com/speechbridge/speechbridge-go/pkg/audio/resample"
	"github.com/speechbridge/speechbridge-go/pkg/audio/wav"
	"github.com/speechbridge/speechbridge-go/pkg/playback"
	"github.com/speechbridge/speechbridge-go/pkg/recording"
	"github.com/speechbridge/speechbridge-go/pkg/store"
	"github.com/speechbridge/speechbridge-go/pkg/transport"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFlushInterval batches microphone frames before sending
	DefaultFlushInterval = 40 * time.Millisecond

	// DefaultCaptureSampleRate is the microphone rate
	DefaultCaptureSampleRate = 16000

	// finalFlushTimeout bounds the last send when the session ends
	finalFlushTimeout = time.Second
)

// Recording id suffixes
const (
	LegCaller = "caller"
	LegAgent  = "agent"
	LegMixed  = "mixed"
)

// State of a session
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateEnding    State = "ending"
	StateEnded     State = "ended"
)

// ErrNotStarted is returned by End before Start
var ErrNotStarted = errors.New("session not started")

// SessionConfig holds session configuration
type SessionConfig struct {
	// ConversationID names the stored recordings (default: random uuid)
	ConversationID string

	// Call is the open transport call; the session closes it in End
	Call transport.Call

	// Capture supplies encoded microphone frames (optional)
	Capture FrameSource

	// Device plays agent audio; the session's engine owns and closes it
	Device output.Device

	// PlaybackOptions are passed to the engine before the agent tap
	PlaybackOptions []playback.Option

	// Store receives recordings when the session ends (optional)
	Store *store.Store

	// CaptureSampleRate is the microphone rate (default: 16000)
	CaptureSampleRate int

	// MixSampleRate is the recording timeline rate (default: 16000)
	MixSampleRate int

	// FlushInterval batches microphone frames (default: 40ms)
	FlushInterval time.Duration

	// Logger for session events (default: slog.Default())
	Logger *slog.Logger

	// OnStateChange is called when the session state changes
	OnStateChange func(State)

	// OnError is called for transport, capture and playback failures
	OnError func(error)
}

// FrameSource is the control side of a capture processor
type FrameSource interface {
	Frames() <-chan []byte
	Errors() <-chan error
	Encoding() audio.Encoding
}

// Stats contains session counters
type Stats struct {
	FramesCaptured uint64
	ChunksSent     uint64
	BytesSent      uint64
	ChunksReceived uint64
	Playback       playback.Stats
}

// Session is one call
type Session struct {
	config   SessionConfig
	id       string
	call     transport.Call
	engine   *playback.Engine
	timeline *recording.Timeline
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	tap     *resample.Resampler
	tapRate int
	pending map[string]<-chan error

	group      *errgroup.Group
	cancel     context.CancelFunc
	sendDone   chan struct{}
	remoteDone chan struct{}
	remoteOnce sync.Once
	endOnce    sync.Once
	recordings recording.Recordings
	endErr     error

	framesCaptured atomic.Uint64
	chunksSent     atomic.Uint64
	bytesSent      atomic.Uint64
	chunksReceived atomic.Uint64
}

// NewSession creates a session; nothing runs until Start
func NewSession(config SessionConfig) (*Session, error) {
	if config.Call == nil {
		return nil, fmt.Errorf("session requires a call")
	}
	if config.Device == nil {
		return nil, fmt.Errorf("session requires an output device")
	}
	if config.ConversationID == "" {
		config.ConversationID = uuid.NewString()
	}
	if config.CaptureSampleRate <= 0 {
		config.CaptureSampleRate = DefaultCaptureSampleRate
	}
	if config.MixSampleRate <= 0 {
		config.MixSampleRate = recording.DefaultSampleRate
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Session{
		config:     config,
		id:         config.ConversationID,
		call:       config.Call,
		timeline:   recording.NewTimeline(config.MixSampleRate),
		logger:     config.Logger.With("component", "session", "conversation", config.ConversationID),
		state:      StateIdle,
		pending:    make(map[string]<-chan error),
		sendDone:   make(chan struct{}),
		remoteDone: make(chan struct{}),
	}

	opts := append([]playback.Option{}, config.PlaybackOptions...)
	opts = append(opts, playback.WithObserver(s.tapAgent), playback.WithLogger(s.logger))
	s.engine = playback.New(config.Device, opts...)

	return s, nil
}

// ID returns the conversation id
func (s *Session) ID() string {
	return s.id
}

// Engine returns the playback engine
func (s *Session) Engine() *playback.Engine {
	return s.engine
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins streaming; the timeline starts now
func (s *Session) Start(ctx context.Context) error {
	// the transition holds mu so concurrent Start and End calls see the
	// loops either fully started or not at all
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session already %s", state)
	}

	s.timeline.Start(time.Now())

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.group = &errgroup.Group{}

	if s.config.Capture != nil {
		s.group.Go(func() error { return s.sendLoop(loopCtx) })
		s.group.Go(func() error { return s.forwardErrors(loopCtx, s.config.Capture.Errors(), "capture") })
	} else {
		close(s.sendDone)
	}
	s.group.Go(func() error { return s.receiveLoop(loopCtx) })
	s.group.Go(func() error { return s.forwardErrors(loopCtx, s.call.Errors(), "transport") })

	s.state = StateStreaming
	s.mu.Unlock()

	if s.config.OnStateChange != nil {
		s.config.OnStateChange(StateStreaming)
	}
	s.logger.Info("session started")
	return nil
}

// sendLoop batches captured frames and sends them every flush interval
func (s *Session) sendLoop(ctx context.Context) error {
	defer close(s.sendDone)

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	var batch []byte
	flush := func(ctx context.Context) bool {
		if len(batch) == 0 {
			return true
		}
		data := batch
		batch = nil

		if err := s.call.Send(ctx, data); err != nil {
			if errors.Is(err, transport.ErrCallClosed) {
				return false
			}
			s.notifyError(fmt.Errorf("send failed: %w", err))
			return true
		}
		s.chunksSent.Add(1)
		s.bytesSent.Add(uint64(len(data)))
		return true
	}

	finish := func() error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
		defer cancel()
		flush(ctx)
		return nil
	}

	frames := s.config.Capture.Frames()
	for {
		select {
		case <-ctx.Done():
			return finish()

		case frame, ok := <-frames:
			if !ok {
				return finish()
			}
			s.framesCaptured.Add(1)
			s.recordCaller(time.Now(), frame)
			batch = append(batch, frame...)

		case <-ticker.C:
			if !flush(ctx) {
				return nil
			}
		}
	}
}

// recordCaller stamps a microphone frame on the timeline as PCM16
func (s *Session) recordCaller(at time.Time, frame []byte) {
	var samples []int16
	if s.config.Capture.Encoding() == audio.EncodingMuLaw {
		samples = decode.MuLawChunk(frame)
	} else {
		samples = audio.BytesToInt16(frame)
	}
	if s.config.CaptureSampleRate != s.config.MixSampleRate {
		samples = s.convertRate(samples, s.config.CaptureSampleRate)
	}
	s.timeline.AddCaller(at, audio.Int16ToBytes(samples))
}

// receiveLoop queues agent audio for playback
func (s *Session) receiveLoop(ctx context.Context) error {
	audioCh := s.call.Audio()
	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-audioCh:
			if !ok {
				s.logger.Info("agent audio stream ended")
				s.remoteOnce.Do(func() { close(s.remoteDone) })
				return nil
			}
			s.chunksReceived.Add(1)

			ticket, err := s.engine.Enqueue(chunk)
			if err != nil {
				if errors.Is(err, playback.ErrClosed) {
					return nil
				}
				s.notifyError(err)
				continue
			}
			go s.watchTicket(ticket)
		}
	}
}

// watchTicket reports a failed item; cancelled items resolve without error
func (s *Session) watchTicket(t *playback.Ticket) {
	<-t.Done()
	if err := t.Err(); err != nil {
		s.notifyError(fmt.Errorf("playback: %w", err))
	}
}

func (s *Session) forwardErrors(ctx context.Context, errs <-chan error, source string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			s.logger.Warn("call error", "source", source, "error", err)
			s.notifyError(err)
		}
	}
}

// tapAgent runs on the engine goroutine just before an item plays
func (s *Session) tapAgent(buf audio.PCMBuffer) {
	samples := mono(buf)
	if len(samples) == 0 {
		return
	}
	at := time.Now()
	samples = s.convertRate(samples, buf.Format.SampleRate)
	s.timeline.AddAgent(at, samples)
}

// convertRate brings samples to the mix rate. Integer ratios duplicate
// samples; anything else goes through a linear resampler kept per rate.
func (s *Session) convertRate(samples []int16, rate int) []int16 {
	mix := s.config.MixSampleRate
	if rate <= 0 || rate == mix {
		return samples
	}
	if mix > rate && mix%rate == 0 {
		return resample.Duplicate(samples, mix/rate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tap == nil || s.tapRate != rate {
		s.tap = resample.New(rate, mix, 1)
		s.tapRate = rate
	}
	return s.tap.Resample(samples)
}

// mono folds interleaved PCM16 down to one channel
func mono(buf audio.PCMBuffer) []int16 {
	samples := buf.Samples()
	ch := buf.Format.Channels
	if ch <= 1 {
		return samples
	}
	out := make([]int16, len(samples)/ch)
	for i := range out {
		var sum int32
		for c := 0; c < ch; c++ {
			sum += int32(samples[i*ch+c])
		}
		out[i] = int16(sum / int32(ch))
	}
	return out
}

// Finished is closed when the service ends the agent audio stream
func (s *Session) Finished() <-chan struct{} {
	return s.remoteDone
}

// BargeIn stops agent playback immediately
func (s *Session) BargeIn() {
	s.logger.Info("barge-in")
	s.engine.CancelAll()
}

// SetMuted mutes the output device when it supports it
func (s *Session) SetMuted(muted bool) bool {
	m, ok := s.config.Device.(interface{ SetMuted(bool) })
	if ok {
		m.SetMuted(muted)
	}
	return ok
}

// SetVolume sets the output volume (0-100) when the device supports it
func (s *Session) SetVolume(volume int) bool {
	v, ok := s.config.Device.(interface{ SetVolume(int) })
	if ok {
		v.SetVolume(volume)
	}
	return ok
}

// End stops the call, builds the recordings and starts persisting them.
// It is safe to call more than once; later calls return the first result.
func (s *Session) End(ctx context.Context) (recording.Recordings, error) {
	s.mu.Lock()
	started := s.state != StateIdle
	s.mu.Unlock()
	if !started {
		return recording.Recordings{}, ErrNotStarted
	}

	s.endOnce.Do(func() {
		s.setState(StateEnding)
		s.recordings, s.endErr = s.end(ctx)
		s.setState(StateEnded)
	})
	return s.recordings, s.endErr
}

func (s *Session) end(ctx context.Context) (recording.Recordings, error) {
	var errs []error

	// stop capture first so the last batch goes out before the half-close
	s.cancel()
	<-s.sendDone

	if err := s.call.CloseSend(ctx); err != nil && !errors.Is(err, transport.ErrCallClosed) {
		errs = append(errs, fmt.Errorf("close send: %w", err))
	}

	s.engine.CancelAll()
	if err := s.call.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close call: %w", err))
	}
	if err := s.group.Wait(); err != nil {
		errs = append(errs, err)
	}
	if err := s.engine.Close(); err != nil {
		errs = append(errs, err)
	}

	recs := s.timeline.Recordings()
	s.persist(ctx, recs)

	caller, agent := s.timeline.Counts()
	s.logger.Info("session ended", "caller_segments", caller, "agent_segments", agent)

	return recs, errors.Join(errs...)
}

// persist starts one detached write per recording
func (s *Session) persist(ctx context.Context, recs recording.Recordings) {
	if s.config.Store == nil {
		return
	}

	legs := []struct {
		name string
		blob []byte
	}{
		{LegCaller, blobData(recs.Caller)},
		{LegAgent, blobData(recs.Agent)},
		{LegMixed, blobData(recs.Mixed)},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, leg := range legs {
		if leg.blob == nil {
			continue
		}
		id := RecordingID(s.id, leg.name)
		s.pending[id] = s.config.Store.PutAsync(ctx, id, leg.blob)
	}
}

// Wait blocks until the recordings handed to the store are written.
// Write failures are joined; ctx only bounds the wait.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	pending := make(map[string]<-chan error, len(s.pending))
	for id, ch := range s.pending {
		pending[id] = ch
	}
	s.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for id, ch := range pending {
		g.Go(func() error {
			select {
			case err := <-ch:
				if err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("persist %s: %w", id, err))
					mu.Unlock()
				}
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Stats returns a snapshot of the session counters
func (s *Session) Stats() Stats {
	return Stats{
		FramesCaptured: s.framesCaptured.Load(),
		ChunksSent:     s.chunksSent.Load(),
		BytesSent:      s.bytesSent.Load(),
		ChunksReceived: s.chunksReceived.Load(),
		Playback:       s.engine.Stats(),
	}
}

// RecordingID names one leg of a conversation in the store
func RecordingID(conversationID, leg string) string {
	return conversationID + "-" + leg
}

func blobData(b *wav.Blob) []byte {
	if b == nil {
		return nil
	}
	return b.Data
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if s.config.OnStateChange != nil {
		s.config.OnStateChange(state)
	}
}

func (s *Session) notifyError(err error) {
	if s.config.OnError != nil {
		s.config.OnError(err)
	}
}
