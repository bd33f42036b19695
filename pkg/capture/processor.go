// ABOUTME: Real-time capture processor
// ABOUTME: Float to int16 conversion with non-blocking hand-off and fault isolation
package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/encode"
)

const (
	// DefaultQueueSize is the number of frames buffered toward the control side
	DefaultQueueSize = 64

	errorQueueSize = 16
)

// Recorder receives capture events; implementations must not block
type Recorder interface {
	FrameEmitted(bytes int)
	FrameDropped()
	CaptureFault()
}

// Config holds processor configuration
type Config struct {
	Encoding  audio.Encoding
	QueueSize int
	Recorder  Recorder
}

// Host runs a callback on the real-time audio thread
type Host interface {
	Start(cb func([][]float32) bool) error
}

// Stats is a snapshot of processor counters
type Stats struct {
	Emitted uint64
	Dropped uint64
	Invalid uint64
	Faults  uint64
}

// Processor converts audio callbacks to encoded frames
type Processor struct {
	encoding audio.Encoding
	recorder Recorder
	frames   chan []byte
	errors   chan error
	disabled bool

	emitted atomic.Uint64
	dropped atomic.Uint64
	invalid atomic.Uint64
	faults  atomic.Uint64
}

// New creates a processor
func New(cfg Config) (*Processor, error) {
	if cfg.Encoding == "" {
		cfg.Encoding = audio.EncodingLinear16
	}
	if !cfg.Encoding.Valid() {
		return nil, fmt.Errorf("unsupported encoding: %s", cfg.Encoding)
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("invalid queue size: %d", cfg.QueueSize)
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	return &Processor{
		encoding: cfg.Encoding,
		recorder: cfg.Recorder,
		frames:   make(chan []byte, cfg.QueueSize),
		errors:   make(chan error, errorQueueSize),
	}, nil
}

// Register constructs a processor and binds it to host. A construction
// failure does not fail registration: a disabled processor is bound
// instead and the failure is delivered as an *InitializationError on
// Errors(). Only a host start failure is returned.
func Register(host Host, cfg Config) (*Processor, error) {
	p, err := New(cfg)
	if err != nil {
		p = &Processor{
			recorder: cfg.Recorder,
			frames:   make(chan []byte),
			errors:   make(chan error, errorQueueSize),
			disabled: true,
		}
		p.report(&InitializationError{Err: err})
	}

	if err := host.Start(p.Process); err != nil {
		return p, fmt.Errorf("failed to start capture host: %w", err)
	}
	return p, nil
}

// Process handles one render quantum. It always returns true.
func (p *Processor) Process(inputs [][]float32) (keepAlive bool) {
	defer func() {
		if r := recover(); r != nil {
			p.faults.Add(1)
			if p.recorder != nil {
				p.recorder.CaptureFault()
			}
			p.report(&ProcessingError{Cause: r})
			keepAlive = true
		}
	}()

	if p.disabled {
		return true
	}

	if len(inputs) == 0 || len(inputs[0]) == 0 {
		p.invalid.Add(1)
		return true
	}

	frame := p.convert(inputs[0])

	select {
	case p.frames <- frame:
		p.emitted.Add(1)
		if p.recorder != nil {
			p.recorder.FrameEmitted(len(frame))
		}
	default:
		p.dropped.Add(1)
		if p.recorder != nil {
			p.recorder.FrameDropped()
		}
	}

	return true
}

// convert produces a freshly allocated frame the receiver owns
func (p *Processor) convert(samples []float32) []byte {
	if p.encoding == audio.EncodingMuLaw {
		out := make([]byte, len(samples))
		for i, s := range samples {
			out[i] = encode.MuLaw(audio.FloatToInt16(s))
		}
		return out
	}

	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := uint16(audio.FloatToInt16(s))
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// report delivers err without blocking; excess errors are discarded
func (p *Processor) report(err error) {
	select {
	case p.errors <- err:
	default:
	}
}

// Frames returns the channel encoded frames are delivered on
func (p *Processor) Frames() <-chan []byte {
	return p.frames
}

// Errors returns the channel asynchronous failures are delivered on
func (p *Processor) Errors() <-chan error {
	return p.errors
}

// Encoding returns the output encoding
func (p *Processor) Encoding() audio.Encoding {
	return p.encoding
}

// Stats returns a snapshot of the counters
func (p *Processor) Stats() Stats {
	return Stats{
		Emitted: p.emitted.Load(),
		Dropped: p.dropped.Load(),
		Invalid: p.invalid.Load(),
		Faults:  p.faults.Load(),
	}
}
