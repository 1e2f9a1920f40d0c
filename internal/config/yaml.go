// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"spectra/pkg/bitint"
)

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches default locations ("config.yaml"). If no file is
// found, it uses built-in defaults. After loading, environment variable
// overrides are applied and the final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      0, // 0 = use the device's native rate.
			InputChannels:   DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			MaxRestarts:     DefaultMaxRestartAttempts,
		},
		Spectrum: SpectrumConfig{
			Bands:       DefaultBandCount,
			MinFreq:     DefaultMinFreq,
			MaxFreq:     DefaultMaxFreq,
			FFTSize:     DefaultFFTSize,
			HopSize:     DefaultHopSize,
			Window:      DefaultWindow,
			Sensitivity: DefaultSensitivity,
			FloorDB:     DefaultFloorDB,
			CeilingDB:   DefaultCeilingDB,
			Attack:      DefaultAttack,
			Decay:       DefaultDecay,
			SilenceMS:   2000,
			SilenceGate: 0.001,
		},
		Transport: TransportConfig{
			WebSocketAddr:   ":8080",
			UDPEnabled:      false,
			UDPTargetAddr:   "127.0.0.1:9090",
			UDPIntervalMS:   33, // ~30Hz
			BroadcastBuffer: 8,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
		},
	}

	if path == "" {
		candidates := []string{"config.yaml"}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	s := &c.Spectrum

	if s.Bands <= 0 {
		return fmt.Errorf("spectrum.bands must be positive, got %d", s.Bands)
	}
	if s.MinFreq <= 0 {
		return fmt.Errorf("spectrum.min_freq must be positive, got %g", s.MinFreq)
	}
	if s.MaxFreq <= s.MinFreq {
		return fmt.Errorf("spectrum.max_freq (%g) must exceed min_freq (%g)", s.MaxFreq, s.MinFreq)
	}
	if !bitint.IsPowerOfTwo(s.FFTSize) || s.FFTSize > MaxFFTSize {
		return fmt.Errorf("spectrum.fft_size must be a power of 2 up to %d, got %d", MaxFFTSize, s.FFTSize)
	}
	if s.HopSize <= 0 || s.HopSize > s.FFTSize {
		return fmt.Errorf("spectrum.hop_size must be in 1..fft_size, got %d", s.HopSize)
	}
	if s.Attack <= 0 || s.Attack > 1 {
		return fmt.Errorf("spectrum.attack must be in (0,1], got %g", s.Attack)
	}
	if s.Decay <= 0 || s.Decay > 1 {
		return fmt.Errorf("spectrum.decay must be in (0,1], got %g", s.Decay)
	}
	if s.CeilingDB <= s.FloorDB {
		return fmt.Errorf("spectrum.ceiling_db (%g) must exceed floor_db (%g)", s.CeilingDB, s.FloorDB)
	}
	if s.Sensitivity <= 0 {
		return fmt.Errorf("spectrum.sensitivity must be positive, got %g", s.Sensitivity)
	}

	a := &c.Audio
	if a.SampleRate != 0 && (a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate) {
		return fmt.Errorf("audio.sample_rate must be 0 or in %d..%d, got %g", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be at least 1, got %d", a.InputChannels)
	}
	if a.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive, got %d", a.FramesPerBuffer)
	}
	if a.MaxRestarts < 0 {
		return fmt.Errorf("audio.max_restarts must not be negative, got %d", a.MaxRestarts)
	}

	if c.Transport.BroadcastBuffer <= 0 {
		return fmt.Errorf("transport.broadcast_buffer must be positive, got %d", c.Transport.BroadcastBuffer)
	}

	return nil
}

// applyEnvOverrides applies SPECTRA_* environment variables on top of the
// loaded configuration.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRA_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("SPECTRA_WS_ADDR"); ok {
		cfg.Transport.WebSocketAddr = val
	}
	if val, ok := os.LookupEnv("SPECTRA_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRA_UDP_TARGET_ADDR"); ok {
		cfg.Transport.UDPTargetAddr = val
	}
	if val, ok := os.LookupEnv("SPECTRA_SENSITIVITY"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Spectrum.Sensitivity = fVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRA_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = iVal
		}
	}
}
