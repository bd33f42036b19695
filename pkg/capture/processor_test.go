// ABOUTME: Tests for the capture processor
// ABOUTME: Covers conversion, hand-off, invalid input and fault isolation
package capture

import (
	"errors"
	"testing"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/decode"
)

type fakeHost struct {
	cb  func([][]float32) bool
	err error
}

func (h *fakeHost) Start(cb func([][]float32) bool) error {
	h.cb = cb
	return h.err
}

type panickingRecorder struct{}

func (panickingRecorder) FrameEmitted(int) { panic("recorder exploded") }
func (panickingRecorder) FrameDropped()    {}
func (panickingRecorder) CaptureFault()    {}

func TestProcessLinear16(t *testing.T) {
	p, err := New(Config{})
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}

	if !p.Process([][]float32{{0, 1.0, -1.0, 0.5, -0.5, 2.0}}) {
		t.Fatal("expected Process to return true")
	}

	frame := <-p.Frames()
	got := audio.BytesToInt16(frame)
	want := []int16{0, 32767, -32768, 16383, -16384, 32767}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestProcessFullScaleQuantum(t *testing.T) {
	p, err := New(Config{})
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}

	in := make([]float32, 128)
	for i := range in {
		in[i] = 1.0
	}
	p.Process([][]float32{in})

	frame := <-p.Frames()
	if len(frame) != 256 {
		t.Fatalf("expected 256 bytes, got %d", len(frame))
	}
	for i, s := range audio.BytesToInt16(frame) {
		if s != 32767 {
			t.Fatalf("sample %d: expected 32767, got %d", i, s)
		}
	}
}

func TestProcessReadsFirstChannelOnly(t *testing.T) {
	p, _ := New(Config{})

	p.Process([][]float32{{0.5}, {-1.0, -1.0}})

	frame := <-p.Frames()
	if len(frame) != 2 {
		t.Fatalf("expected 2 bytes, got %d", len(frame))
	}
	if got := audio.BytesToInt16(frame)[0]; got != 16383 {
		t.Errorf("expected 16383, got %d", got)
	}
}

func TestProcessMuLaw(t *testing.T) {
	p, err := New(Config{Encoding: audio.EncodingMuLaw})
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}

	p.Process([][]float32{{0, 1.0, -1.0}})

	frame := <-p.Frames()
	if len(frame) != 3 {
		t.Fatalf("expected 3 bytes, got %d", len(frame))
	}
	samples := decode.MuLawChunk(frame)
	if samples[0] != 0 || samples[1] != 32124 || samples[2] != -32124 {
		t.Errorf("unexpected decoded samples %v", samples)
	}
}

func TestProcessInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		inputs [][]float32
	}{
		{"nil", nil},
		{"no channels", [][]float32{}},
		{"empty channel", [][]float32{{}}},
		{"nil channel", [][]float32{nil, {0.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := New(Config{})

			if !p.Process(tt.inputs) {
				t.Error("expected Process to return true")
			}
			if len(p.Frames()) != 0 {
				t.Error("expected no frame")
			}
			if p.Stats().Invalid != 1 {
				t.Errorf("expected 1 invalid frame, got %d", p.Stats().Invalid)
			}
		})
	}
}

func TestProcessDropsWhenFull(t *testing.T) {
	p, _ := New(Config{QueueSize: 2})

	for i := 0; i < 5; i++ {
		if !p.Process([][]float32{{0.1}}) {
			t.Fatal("expected Process to return true")
		}
	}

	stats := p.Stats()
	if stats.Emitted != 2 {
		t.Errorf("expected 2 emitted, got %d", stats.Emitted)
	}
	if stats.Dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", stats.Dropped)
	}
}

func TestProcessFramesAreIndependent(t *testing.T) {
	p, _ := New(Config{})
	input := [][]float32{{0.25}}

	p.Process(input)
	first := <-p.Frames()
	input[0][0] = -0.25
	p.Process(input)
	second := <-p.Frames()

	if audio.BytesToInt16(first)[0] == audio.BytesToInt16(second)[0] {
		t.Error("expected frames to own separate storage")
	}
}

func TestProcessRecoversFault(t *testing.T) {
	p, _ := New(Config{Recorder: panickingRecorder{}})

	if !p.Process([][]float32{{0.5}}) {
		t.Fatal("expected Process to return true after fault")
	}

	select {
	case err := <-p.Errors():
		var procErr *ProcessingError
		if !errors.As(err, &procErr) {
			t.Fatalf("expected ProcessingError, got %T", err)
		}
		if procErr.Cause != "recorder exploded" {
			t.Errorf("unexpected cause %v", procErr.Cause)
		}
	default:
		t.Fatal("expected an error notification")
	}

	if p.Stats().Faults != 1 {
		t.Errorf("expected 1 fault, got %d", p.Stats().Faults)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		errorMsg string
	}{
		{"bad encoding", Config{Encoding: "opus"}, "unsupported encoding: opus"},
		{"negative queue", Config{QueueSize: -1}, "invalid queue size: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.errorMsg {
				t.Errorf("expected %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestRegister(t *testing.T) {
	host := &fakeHost{}

	p, err := Register(host, Config{})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if host.cb == nil {
		t.Fatal("expected callback to be bound")
	}

	host.cb([][]float32{{0.5}})
	if len(p.Frames()) != 1 {
		t.Errorf("expected 1 frame, got %d", len(p.Frames()))
	}
}

func TestRegisterReportsInitializationError(t *testing.T) {
	host := &fakeHost{}

	p, err := Register(host, Config{Encoding: "flac"})
	if err != nil {
		t.Fatalf("construction failure must not fail registration: %v", err)
	}

	var initErr *InitializationError
	select {
	case e := <-p.Errors():
		if !errors.As(e, &initErr) {
			t.Fatalf("expected InitializationError, got %T", e)
		}
	default:
		t.Fatal("expected async initialization error")
	}

	if !host.cb([][]float32{{0.5}}) {
		t.Error("disabled processor must keep the host running")
	}
}

func TestRegisterHostFailure(t *testing.T) {
	host := &fakeHost{err: errors.New("no device")}

	_, err := Register(host, Config{})
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "failed to start capture host: no device" {
		t.Errorf("unexpected error: %v", err)
	}
}

func BenchmarkProcess(b *testing.B) {
	p, _ := New(Config{QueueSize: 1})
	frame := [][]float32{make([]float32, 128)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Process(frame)
		select {
		case <-p.Frames():
		default:
		}
	}
}
