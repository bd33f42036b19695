// ABOUTME: Configuration loading for the speechbridge client
// ABOUTME: Defaults, yaml file, .env, SPEECHBRIDGE_ environment and flags via viper
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration for the call client.
type Config struct {
	Transport TransportConfig `mapstructure:"transport"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Recording RecordingConfig `mapstructure:"recording"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	UI        UIConfig        `mapstructure:"ui"`
}

// TransportConfig selects and configures the call transport.
type TransportConfig struct {
	Kind      string        `mapstructure:"kind"` // "websocket" or "grpc"
	URL       string        `mapstructure:"url"`
	Token     string        `mapstructure:"token"` // may be "${VAR}"
	Host      string        `mapstructure:"host"`
	Method    string        `mapstructure:"method"`
	Deadline  time.Duration `mapstructure:"deadline"`
	CloseMode string        `mapstructure:"close_mode"` // "complete" or "callEnd"
	TLS       bool          `mapstructure:"tls"`
}

// AudioConfig holds capture and playback settings.
type AudioConfig struct {
	CaptureSampleRate  int           `mapstructure:"capture_sample_rate"`
	Encoding           string        `mapstructure:"encoding"` // "linear16" or "mulaw"
	CaptureQueue       int           `mapstructure:"capture_queue"`
	FlushInterval      time.Duration `mapstructure:"flush_interval"`
	PlaybackSampleRate int           `mapstructure:"playback_sample_rate"`
	Output             string        `mapstructure:"output"` // "oto" or "malgo"
	Volume             int           `mapstructure:"volume"`
	ResumeDebounce     time.Duration `mapstructure:"resume_debounce"`
}

// RecordingConfig holds recording and history settings.
type RecordingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SampleRate int    `mapstructure:"sample_rate"`
	Dir        string `mapstructure:"dir"` // empty keeps recordings in memory
	Capacity   int    `mapstructure:"capacity"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	File   string `mapstructure:"file"`
}

// UIConfig toggles the terminal call monitor.
type UIConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// flagKeys maps command-line flags to config keys
var flagKeys = map[string]string{
	"transport":    "transport.kind",
	"url":          "transport.url",
	"token":        "transport.token",
	"close-mode":   "transport.close_mode",
	"encoding":     "audio.encoding",
	"output":       "audio.output",
	"volume":       "audio.volume",
	"recordings":   "recording.dir",
	"metrics-addr": "metrics.addr",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"log-file":     "logging.file",
	"tui":          "ui.enabled",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("transport.kind", "websocket")
	v.SetDefault("transport.url", "ws://localhost:3001/ws")
	v.SetDefault("transport.token", "${SPEECHBRIDGE_TOKEN}")
	v.SetDefault("transport.host", "")
	v.SetDefault("transport.method", "/speech.v1.SpeechOrchestrator/StreamSpeech")
	v.SetDefault("transport.deadline", "10m")
	v.SetDefault("transport.close_mode", "complete")
	v.SetDefault("transport.tls", false)
	v.SetDefault("audio.capture_sample_rate", 16000)
	v.SetDefault("audio.encoding", "linear16")
	v.SetDefault("audio.capture_queue", 64)
	v.SetDefault("audio.flush_interval", "40ms")
	v.SetDefault("audio.playback_sample_rate", 8000)
	v.SetDefault("audio.output", "oto")
	v.SetDefault("audio.volume", 100)
	v.SetDefault("audio.resume_debounce", "250ms")
	v.SetDefault("recording.enabled", true)
	v.SetDefault("recording.sample_rate", 16000)
	v.SetDefault("recording.dir", "")
	v.SetDefault("recording.capacity", 10)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "speechbridge.log")
	v.SetDefault("ui.enabled", true)
}

// RegisterFlags adds the client's command-line flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Config file (default: ./speechbridge.yaml, ./configs, /etc/speechbridge)")
	fs.String("transport", "websocket", "Call transport: websocket or grpc")
	fs.String("url", "ws://localhost:3001/ws", "Speech service URL")
	fs.String("token", "", "Bearer token (or ${VAR})")
	fs.String("close-mode", "complete", "How the call ends upstream: complete or callEnd")
	fs.String("encoding", "linear16", "Microphone encoding: linear16 or mulaw")
	fs.String("output", "oto", "Audio output backend: oto or malgo")
	fs.Int("volume", 100, "Playback volume (0-100)")
	fs.String("recordings", "", "Directory for recent recordings (empty: in memory)")
	fs.String("metrics-addr", ":9090", "Prometheus listen address")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "text", "Log format: json or text")
	fs.String("log-file", "speechbridge.log", "Log file path")
	fs.Bool("tui", true, "Show the terminal call monitor")
}

// Load reads the configuration from defaults, an optional config file,
// a .env file, environment variables and flags, in increasing priority.
// If configFile is empty the standard search order applies:
// ./speechbridge.yaml, ./configs/speechbridge.yaml, /etc/speechbridge/speechbridge.yaml.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("speechbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/speechbridge")
	}

	// SPEECHBRIDGE_TRANSPORT_URL, SPEECHBRIDGE_AUDIO_ENCODING, etc.
	v.SetEnvPrefix("SPEECHBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Transport.Token = resolveEnvRef(cfg.Transport.Token)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a call.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport.Kind {
	case "websocket", "grpc":
	default:
		errs = append(errs, fmt.Errorf("transport.kind: unknown transport %q", c.Transport.Kind))
	}
	switch c.Transport.CloseMode {
	case "complete", "callEnd":
	default:
		errs = append(errs, fmt.Errorf("transport.close_mode: unknown mode %q", c.Transport.CloseMode))
	}
	switch c.Audio.Encoding {
	case "linear16", "mulaw":
	default:
		errs = append(errs, fmt.Errorf("audio.encoding: unsupported encoding %q", c.Audio.Encoding))
	}
	switch c.Audio.Output {
	case "oto", "malgo":
	default:
		errs = append(errs, fmt.Errorf("audio.output: unknown backend %q", c.Audio.Output))
	}
	if c.Audio.CaptureSampleRate <= 0 || c.Audio.PlaybackSampleRate <= 0 || c.Recording.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rates must be positive"))
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		errs = append(errs, fmt.Errorf("audio.volume: %d out of range 0-100", c.Audio.Volume))
	}
	if c.Recording.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("recording.capacity: must be positive, got %d", c.Recording.Capacity))
	}

	return errors.Join(errs...)
}

// resolveEnvRef replaces "${VAR_NAME}" with the variable's value. An
// unset variable resolves to the empty string.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// SetupLogging installs a slog logger writing to w as the default.
func SetupLogging(cfg LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
