package engine

import (
	"log"
	"os"
	"time"

	"github.com/h2x/engine/frame"
)

// Logger is the ambient logging contract, shaped exactly like
// fasthttp.Logger so callers can pass a *log.Logger or a fasthttp logger
// interchangeably.
type Logger interface {
	Printf(format string, args ...interface{})
}

// defaultLogger mirrors the teacher's package-level logger: stdout, a
// "[HTTP/2] " prefix, standard flags.
var defaultLogger Logger = log.New(os.Stdout, "[HTTP/2] ", log.LstdFlags)

// Config carries everything spec.md §6 lists under "Configuration
// options", plus the ambient/supplemented knobs from SPEC_FULL.md §2/§9.
type Config struct {
	// Settings is emitted in the connection's initial SETTINGS frame.
	// Settings absent from the map fall back to the defaults in withDefaults.
	Settings Settings

	// PrefaceTimeout bounds how long the client has to complete the
	// connection preface (default 5s).
	PrefaceTimeout time.Duration
	// SettingsTimeout bounds how long the engine waits for a SETTINGS
	// ack after sending local settings (default 5s).
	SettingsTimeout time.Duration
	// IdleTimeout closes a connection after this much inactivity
	// (default 60s).
	IdleTimeout time.Duration

	// MaxRequestTimeout, when non-zero, resets any stream whose handler
	// hasn't produced a terminal response within this duration of the
	// stream's HEADERS frame. Zero disables the limit. Supplemented from
	// the teacher's maxRequestTimer; not present in spec.md.
	MaxRequestTimeout time.Duration

	// PingInterval, when non-zero, makes the engine proactively send a
	// keepalive PING on this cadence, jittered by up to 10% so many
	// connections opened together don't all ping in lockstep. Zero
	// disables keepalive pings. Supplemented from the teacher's
	// pingTimer; not present in spec.md.
	PingInterval time.Duration

	// Debug gates verbose lifecycle logging through Logger.
	Debug bool
	// Logger receives debug/error output. Defaults to a stdout logger
	// with an "[HTTP/2] " prefix, matching the teacher's package logger.
	Logger Logger
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.PrefaceTimeout <= 0 {
		out.PrefaceTimeout = 5 * time.Second
	}
	if out.SettingsTimeout <= 0 {
		out.SettingsTimeout = 5 * time.Second
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = 60 * time.Second
	}
	if out.Logger == nil {
		out.Logger = defaultLogger
	}
	out.Settings = out.Settings.withDefaults()
	return &out
}

// Settings is a sparse map of SETTINGS values, keyed by RFC 7540 setting
// identifier. Accessors fall back to the protocol defaults when a key is
// absent, following the teacher's Settings type in settings.go.
type Settings map[frame.SettingID]uint32

func (s Settings) withDefaults() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	if _, ok := out[frame.SettingHeaderTableSize]; !ok {
		out[frame.SettingHeaderTableSize] = frame.DefaultHeaderTableSize
	}
	if _, ok := out[frame.SettingMaxConcurrentStreams]; !ok {
		out[frame.SettingMaxConcurrentStreams] = frame.DefaultMaxConcurrentStreams
	}
	if _, ok := out[frame.SettingMaxFrameSize]; !ok {
		out[frame.SettingMaxFrameSize] = frame.DefaultMaxFrameSize
	}
	if _, ok := out[frame.SettingInitialWindowSize]; !ok {
		out[frame.SettingInitialWindowSize] = frame.DefaultInitialWindowSize
	}
	return out
}

// MaxFrameSize returns SETTINGS_MAX_FRAME_SIZE, defaulting to 16384.
func (s Settings) MaxFrameSize() uint32 {
	if v, ok := s[frame.SettingMaxFrameSize]; ok && v != 0 {
		return v
	}
	return frame.DefaultMaxFrameSize
}

// HeaderTableSize returns SETTINGS_HEADER_TABLE_SIZE, defaulting to 4096.
func (s Settings) HeaderTableSize() uint32 {
	if v, ok := s[frame.SettingHeaderTableSize]; ok {
		return v
	}
	return frame.DefaultHeaderTableSize
}

// MaxConcurrentStreams returns SETTINGS_MAX_CONCURRENT_STREAMS, defaulting to 100.
func (s Settings) MaxConcurrentStreams() uint32 {
	if v, ok := s[frame.SettingMaxConcurrentStreams]; ok {
		return v
	}
	return frame.DefaultMaxConcurrentStreams
}

// AsFrameSettings renders s as the slice golang.org/x/net/http2.Framer.WriteSettings expects.
func (s Settings) AsFrameSettings() []frame.Setting {
	out := make([]frame.Setting, 0, len(s))
	for id, v := range s {
		out = append(out, frame.Setting{ID: id, Val: v})
	}
	return out
}
