// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"spectra/internal/config"
	"spectra/pkg/build"
)

// ParseArgs parses the command line and returns the final configuration:
// built-in defaults, then the YAML file, then environment overrides, then
// explicitly set flags, in that order.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	var (
		cfg *config.Config

		configPath string

		deviceID        int
		sampleRate      float64
		channels        int
		framesPerBuffer int
		lowLatency      bool

		bands       int
		fftSize     int
		hopSize     int
		sensitivity float64

		wsAddr    string
		udpTarget string

		record     bool
		outputFile string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio spectrum engine",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded

			// Only explicitly set flags override the file and environment.
			flags := cmd.Flags()
			if flags.Changed("device") {
				cfg.Audio.InputDevice = deviceID
			}
			if flags.Changed("sample-rate") {
				cfg.Audio.SampleRate = sampleRate
			}
			if flags.Changed("channels") {
				cfg.Audio.InputChannels = channels
			}
			if flags.Changed("frames-per-buffer") {
				cfg.Audio.FramesPerBuffer = framesPerBuffer
			}
			if flags.Changed("low-latency") {
				cfg.Audio.LowLatency = lowLatency
			}
			if flags.Changed("bands") {
				cfg.Spectrum.Bands = bands
			}
			if flags.Changed("fft-size") {
				cfg.Spectrum.FFTSize = fftSize
			}
			if flags.Changed("hop") {
				cfg.Spectrum.HopSize = hopSize
			}
			if flags.Changed("sensitivity") {
				cfg.Spectrum.Sensitivity = sensitivity
			}
			if flags.Changed("ws-addr") {
				cfg.Transport.WebSocketAddr = wsAddr
			}
			if flags.Changed("udp-target") {
				cfg.Transport.UDPEnabled = true
				cfg.Transport.UDPTargetAddr = udpTarget
			}
			if flags.Changed("record") {
				cfg.Recording.Enabled = record
			}
			if flags.Changed("output") {
				cfg.Recording.OutputFile = outputFile
			}
			cfg.Verbose = verbose

			if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
				cfg.Recording.OutputFile = "recording-" +
					time.Now().UTC().Format("02-01-2006-150405") + ".wav"
			}

			// Flag overrides can invalidate a previously valid configuration.
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil // run the engine
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Browse capture devices interactively",
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Command = "devices"
		},
	}
	rootCmd.AddCommand(devicesCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (default: ./config.yaml if present)")

	// Capture device.
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", 0,
		"Sample rate in Hz (0 = the device's native rate)")
	rootCmd.PersistentFlags().IntVarP(&channels, "channels", "c", config.DefaultChannels,
		"Channels to capture; multi-channel input is downmixed to mono")
	rootCmd.PersistentFlags().IntVarP(&framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Samples per capture callback (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&lowLatency, "low-latency", "l", false,
		"Request low latency settings from the device")

	// Analysis geometry.
	rootCmd.PersistentFlags().IntVar(&bands, "bands", config.DefaultBandCount,
		"Number of logarithmic frequency bands")
	rootCmd.PersistentFlags().IntVar(&fftSize, "fft-size", config.DefaultFFTSize,
		"FFT size in samples (power of 2)")
	rootCmd.PersistentFlags().IntVar(&hopSize, "hop", config.DefaultHopSize,
		"Samples advanced between frames")
	rootCmd.PersistentFlags().Float64Var(&sensitivity, "sensitivity", config.DefaultSensitivity,
		"Gain applied to scaled loudness values")

	// Transports.
	rootCmd.PersistentFlags().StringVar(&wsAddr, "ws-addr", ":8080",
		"Listen address for the spectrum websocket server")
	rootCmd.PersistentFlags().StringVar(&udpTarget, "udp-target", "",
		"Enable the binary UDP publisher and send to this host:port")

	// Recording.
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the captured input to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Recording file name (default: recording-DD-MM-YYYY-HHMMSS.wav)")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return cfg, nil
}
