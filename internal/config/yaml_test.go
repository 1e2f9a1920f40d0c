// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Spectrum.Bands != DefaultBandCount {
		t.Errorf("expected %d default bands, got %d", DefaultBandCount, cfg.Spectrum.Bands)
	}
	if cfg.Spectrum.Attack != DefaultAttack || cfg.Spectrum.Decay != DefaultDecay {
		t.Errorf("expected default smoothing %g/%g, got %g/%g",
			DefaultAttack, DefaultDecay, cfg.Spectrum.Attack, cfg.Spectrum.Decay)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
spectrum:
  bands: 32
  fft_size: 1024
  hop_size: 512
  sensitivity: 2.0
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Spectrum.Bands != 32 || cfg.Spectrum.FFTSize != 1024 {
		t.Errorf("file values not applied: %+v", cfg.Spectrum)
	}
	if cfg.Spectrum.MinFreq != DefaultMinFreq {
		t.Errorf("untouched fields should keep defaults, got min_freq=%g", cfg.Spectrum.MinFreq)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SPECTRA_SENSITIVITY", "2.5")
	path := writeTempConfig(t, "spectrum:\n  sensitivity: 1.0\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Spectrum.Sensitivity != 2.5 {
		t.Errorf("env override should win over file, got %g", cfg.Spectrum.Sensitivity)
	}
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero bands", func(c *Config) { c.Spectrum.Bands = 0 }, "spectrum.bands"},
		{"non-pow2 fft", func(c *Config) { c.Spectrum.FFTSize = 1000 }, "spectrum.fft_size"},
		{"oversized fft", func(c *Config) { c.Spectrum.FFTSize = MaxFFTSize * 2 }, "spectrum.fft_size"},
		{"hop above fft", func(c *Config) { c.Spectrum.HopSize = c.Spectrum.FFTSize * 2 }, "spectrum.hop_size"},
		{"attack above one", func(c *Config) { c.Spectrum.Attack = 1.5 }, "spectrum.attack"},
		{"zero decay", func(c *Config) { c.Spectrum.Decay = 0 }, "spectrum.decay"},
		{"inverted range", func(c *Config) { c.Spectrum.MaxFreq = c.Spectrum.MinFreq / 2 }, "spectrum.max_freq"},
		{"inverted db window", func(c *Config) { c.Spectrum.CeilingDB = c.Spectrum.FloorDB - 1 }, "spectrum.ceiling_db"},
		{"bad sample rate", func(c *Config) { c.Audio.SampleRate = 100 }, "audio.sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			if err != nil {
				t.Fatalf("default config should load: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
