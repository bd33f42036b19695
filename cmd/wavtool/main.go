// ABOUTME: Entry point for wavtool, the offline WAV utility
// ABOUTME: Dispatches play, mix, convert and recordings subcommands
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/speechbridge/speechbridge-go/internal/config"
	"github.com/speechbridge/speechbridge-go/internal/version"
	"github.com/speechbridge/speechbridge-go/pkg/audio/output"
	"github.com/speechbridge/speechbridge-go/pkg/recording"
	"github.com/spf13/pflag"
)

const usage = `usage: wavtool <command> [flags] [args]

commands:
  play <file.wav>                      play a WAV file through the speaker
  mix <out.wav> <in.wav@ms>...         overlay files at millisecond offsets
  convert <in.wav> <out.wav>           re-encode a WAV file (--to pcm|mulaw)
  recordings list                      list stored call recordings
  recordings export <id> <out.wav>     copy a stored recording to a file
  version                              print the version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "play":
		err = runPlay(ctx, args)
	case "mix":
		err = runMix(args)
	case "convert":
		err = runConvert(args)
	case "recordings":
		err = runRecordings(ctx, args)
	case "version":
		fmt.Printf("wavtool %s\n", version.Version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "wavtool %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet("wavtool "+name, pflag.ExitOnError)
	logLevel := fs.String("log-level", "warn", "Log level: debug, info, warn, error")
	return fs, logLevel
}

func runPlay(ctx context.Context, args []string) error {
	fs, logLevel := newFlagSet("play")
	backend := fs.String("output", output.BackendOto, "Output backend: oto or malgo")
	volume := fs.Int("volume", 100, "Playback volume (0-100)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one file, got %d", fs.NArg())
	}

	logger := config.SetupLogging(config.LoggingConfig{Level: *logLevel, Format: "text"}, os.Stderr)
	return playFile(ctx, fs.Arg(0), *backend, *volume, logger)
}

func runMix(args []string) error {
	fs, logLevel := newFlagSet("mix")
	rate := fs.Int("rate", recording.DefaultSampleRate, "Output sample rate")
	fs.Parse(args)
	if fs.NArg() < 2 {
		return fmt.Errorf("expected an output file and at least one input")
	}

	logger := config.SetupLogging(config.LoggingConfig{Level: *logLevel, Format: "text"}, os.Stderr)
	segments := make([]segmentSpec, 0, fs.NArg()-1)
	for _, arg := range fs.Args()[1:] {
		seg, err := parseSegment(arg)
		if err != nil {
			return err
		}
		segments = append(segments, seg)
	}

	n, err := mixFiles(fs.Arg(0), segments, *rate)
	if err != nil {
		return err
	}
	logger.Info("mixed", "out", fs.Arg(0), "inputs", len(segments), "samples", n)
	return nil
}

func runConvert(args []string) error {
	fs, logLevel := newFlagSet("convert")
	to := fs.String("to", "pcm", "Target encoding: pcm or mulaw")
	rate := fs.Int("rate", 0, "Target sample rate (default: keep)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("expected input and output files")
	}

	logger := config.SetupLogging(config.LoggingConfig{Level: *logLevel, Format: "text"}, os.Stderr)
	h, err := convertFile(fs.Arg(0), fs.Arg(1), *to, *rate)
	if err != nil {
		return err
	}
	logger.Info("converted", "out", fs.Arg(1), "format_tag", h.FormatTag, "rate", h.SampleRate, "bytes", h.DataLength)
	return nil
}

func runRecordings(ctx context.Context, args []string) error {
	fs, _ := newFlagSet("recordings")
	dir := fs.String("dir", "recordings", "Recording store directory")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("expected list or export")
	}

	switch fs.Arg(0) {
	case "list":
		return listRecordings(ctx, os.Stdout, *dir)
	case "export":
		if fs.NArg() != 3 {
			return fmt.Errorf("usage: recordings export <id> <out.wav>")
		}
		return exportRecording(ctx, *dir, fs.Arg(1), fs.Arg(2))
	default:
		return fmt.Errorf("unknown recordings command: %s", fs.Arg(0))
	}
}
