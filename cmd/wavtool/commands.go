// ABOUTME: wavtool command implementations
// ABOUTME: File-level play, mix, convert and recording export helpers
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/encode"
	"github.com/speechbridge/speechbridge-go/pkg/audio/output"
	"github.com/speechbridge/speechbridge-go/pkg/audio/resample"
	"github.com/speechbridge/speechbridge-go/pkg/audio/wav"
	"github.com/speechbridge/speechbridge-go/pkg/playback"
	"github.com/speechbridge/speechbridge-go/pkg/recording"
	"github.com/speechbridge/speechbridge-go/pkg/store"
)

// segmentSpec is one mix input: a file placed offsetMs into the output
type segmentSpec struct {
	path     string
	offsetMs float64
}

// parseSegment parses "file.wav@1500"; a missing offset means 0
func parseSegment(arg string) (segmentSpec, error) {
	i := strings.LastIndex(arg, "@")
	if i < 0 {
		return segmentSpec{path: arg}, nil
	}
	path, offset := arg[:i], arg[i+1:]
	if path == "" {
		return segmentSpec{}, fmt.Errorf("missing file in %q", arg)
	}
	ms, err := strconv.ParseFloat(offset, 64)
	if err != nil {
		return segmentSpec{}, fmt.Errorf("invalid offset in %q: %w", arg, err)
	}
	return segmentSpec{path: path, offsetMs: ms}, nil
}

// readWav decodes a WAV file to mono PCM16 at rate; rate 0 keeps the source rate
func readWav(path string, rate int) ([]int16, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	buf, err := wav.Decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}

	samples := downmix(buf.Samples(), buf.Format.Channels)
	if rate <= 0 || rate == buf.Format.SampleRate {
		return samples, buf.Format.SampleRate, nil
	}
	if rate%buf.Format.SampleRate == 0 {
		return resample.Duplicate(samples, rate/buf.Format.SampleRate), rate, nil
	}
	return resample.New(buf.Format.SampleRate, rate, 1).Resample(samples), rate, nil
}

// downmix averages interleaved channels into one
func downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, len(samples)/channels)
	for i := range out {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		out[i] = int16(sum / int32(channels))
	}
	return out
}

// mixFiles overlays every segment into one PCM16 WAV at rate
func mixFiles(out string, segments []segmentSpec, rate int) (int, error) {
	mixer := recording.NewMixer(rate)
	for _, seg := range segments {
		samples, _, err := readWav(seg.path, rate)
		if err != nil {
			return 0, err
		}
		if err := mixer.AddSegment(seg.offsetMs, samples); err != nil {
			return 0, fmt.Errorf("%s: %w", seg.path, err)
		}
	}

	blob := mixer.ToWav()
	if err := os.WriteFile(out, blob.Data, 0o644); err != nil {
		return 0, err
	}
	return mixer.Len(), nil
}

// convertFile re-encodes in as PCM16 or mu-law mono and writes it to out
func convertFile(in, out, to string, rate int) (wav.Header, error) {
	var format audio.Format
	switch to {
	case "pcm", string(audio.EncodingLinear16):
		format = audio.Format{Codec: audio.CodecPCM, Channels: 1, BitDepth: 16}
	case "mulaw", "ulaw":
		format = audio.Format{Codec: audio.CodecMuLaw, Channels: 1, BitDepth: 8}
	default:
		return wav.Header{}, fmt.Errorf("unknown target encoding: %s", to)
	}

	samples, srcRate, err := readWav(in, rate)
	if err != nil {
		return wav.Header{}, err
	}
	format.SampleRate = srcRate

	enc, err := encode.New(format)
	if err != nil {
		return wav.Header{}, err
	}
	defer enc.Close()

	payload, err := enc.Encode(samples)
	if err != nil {
		return wav.Header{}, err
	}

	blob := wav.Wrap(payload, format)
	if err := os.WriteFile(out, blob.Data, 0o644); err != nil {
		return wav.Header{}, err
	}
	return blob.Header, nil
}

// playFile plays one WAV file and returns when it finishes or ctx ends
func playFile(ctx context.Context, path, backend string, volume int, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	h, err := wav.ParseHeader(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	dev, err := output.New(backend, h.SampleRate, h.Channels)
	if err != nil {
		return err
	}
	if v, ok := dev.(interface{ SetVolume(int) }); ok {
		v.SetVolume(volume)
	}

	engine := playback.New(dev, playback.WithLogger(logger))
	defer engine.Close()

	ticket, err := engine.Enqueue(data)
	if err != nil {
		return err
	}
	logger.Info("playing", "file", path, "rate", h.SampleRate, "channels", h.Channels)

	if err := ticket.Wait(ctx); err != nil {
		engine.CancelAll()
		return err
	}
	return nil
}

// openStore opens the recording directory without changing its capacity
func openStore(dir string) (*store.Store, error) {
	backend, err := store.NewFileBackend(dir)
	if err != nil {
		return nil, err
	}
	return store.New(backend), nil
}

// listRecordings prints stored recordings, newest first
func listRecordings(ctx context.Context, w io.Writer, dir string) error {
	s, err := openStore(dir)
	if err != nil {
		return err
	}
	entries, err := s.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTORED\tSIZE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.ID, e.InsertedAt.Format("2006-01-02 15:04:05"), e.Size)
	}
	return tw.Flush()
}

// exportRecording writes the stored blob for id to out
func exportRecording(ctx context.Context, dir, id, out string) error {
	s, err := openStore(dir)
	if err != nil {
		return err
	}
	blob, ok, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("recording not found: %s", id)
	}
	return os.WriteFile(out, blob, 0o644)
}
