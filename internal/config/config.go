// SPDX-License-Identifier: MIT
package config

// Core constants that define the boundaries and defaults for the
// spectrum engine.
const (
	// Spectrum defaults. 64 bands spread logarithmically across the
	// audible range, scaled into a -60..0 dB window.
	DefaultBandCount   = 64
	DefaultMinFreq     = 20.0
	DefaultMaxFreq     = 20000.0
	DefaultSensitivity = 1.5
	DefaultFloorDB     = -60.0
	DefaultCeilingDB   = 0.0

	// Smoothing defaults. Attack is deliberately faster than decay so
	// onsets register immediately while falls stay graceful.
	DefaultAttack = 0.3
	DefaultDecay  = 0.1

	// Analysis defaults. FFT size 2048 with a 1024 hop gives 50% overlap,
	// ~46ms frames and ~43 updates/s at 44.1kHz.
	DefaultFFTSize = 2048
	DefaultHopSize = 1024
	DefaultWindow  = "Hann"

	// Audio device defaults.
	DefaultChannels        = 1
	DefaultDeviceID        = MinDeviceID
	DefaultSampleRate      = 44100
	DefaultLowLatency      = false
	DefaultFramesPerBuffer = 512

	// Hardware and processing limits.
	MinDeviceID   = -1     // -1 represents the system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxFFTSize    = 8192   // Maximum FFT size (power of 2)

	// Capture restart policy after mid-stream device loss.
	DefaultMaxRestartAttempts = 5
)

// SpectrumConfig holds the analysis tunables. All values are fixed at
// startup; there is no runtime reconfiguration surface.
type SpectrumConfig struct {
	Bands       int     `yaml:"bands"`        // Number of logarithmic frequency bands.
	MinFreq     float64 `yaml:"min_freq"`     // Lower edge of the analyzed range (Hz).
	MaxFreq     float64 `yaml:"max_freq"`     // Upper edge of the analyzed range (Hz).
	FFTSize     int     `yaml:"fft_size"`     // FFT size in samples (power of 2).
	HopSize     int     `yaml:"hop_size"`     // Samples advanced between frames.
	Window      string  `yaml:"window"`       // Window function name (e.g. "Hann").
	Sensitivity float64 `yaml:"sensitivity"`  // Global gain applied to scaled loudness.
	FloorDB     float64 `yaml:"floor_db"`     // Normalization floor in dBFS.
	CeilingDB   float64 `yaml:"ceiling_db"`   // Normalization ceiling in dBFS.
	Attack      float64 `yaml:"attack"`       // Smoothing factor for rising values (0,1].
	Decay       float64 `yaml:"decay"`        // Smoothing factor for falling values (0,1].
	SilenceMS   int     `yaml:"silence_ms"`   // Silence duration before smoother reset (0 disables).
	SilenceGate float64 `yaml:"silence_gate"` // Peak amplitude below which input counts as silence.
}

// AudioConfig holds settings for the capture device.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (0 = device native rate).
	InputChannels   int     `yaml:"input_channels"`    // Channels to capture; downmixed to mono.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Samples per capture callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	MaxRestarts     int     `yaml:"max_restarts"`      // Reopen attempts after mid-stream device loss.
}

// TransportConfig holds settings for publishing band frames.
type TransportConfig struct {
	WebSocketAddr   string `yaml:"websocket_addr"`   // Listen address for the websocket server (":8080").
	UDPEnabled      bool   `yaml:"udp_enabled"`      // Enable the binary UDP publisher.
	UDPTargetAddr   string `yaml:"udp_target_addr"`  // Target address for UDP packets.
	UDPIntervalMS   int    `yaml:"udp_interval_ms"`  // Interval between UDP packets.
	BroadcastBuffer int    `yaml:"broadcast_buffer"` // Frames queued before drop-on-full kicks in.
}

// RecordingConfig holds settings for the optional WAV tap of the input.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record the captured input to a WAV file.
	OutputFile string `yaml:"output_file"` // Destination path; auto-generated when empty.
}

// Config is the root configuration, loaded once at startup from defaults,
// an optional YAML file, environment overrides and CLI flags, in that order.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Spectrum  SpectrumConfig  `yaml:"spectrum"`
	Transport TransportConfig `yaml:"transport"`
	Recording RecordingConfig `yaml:"recording"`

	// Runtime fields populated by the CLI, never from YAML.
	Command string `yaml:"-"` // One-off command ("list", "devices") instead of running the engine.
	Verbose bool   `yaml:"-"`
}
