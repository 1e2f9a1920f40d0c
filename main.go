// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"spectra/cmd"
	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/ring"
	"spectra/internal/transport"
	"spectra/internal/transport/udp"
	"spectra/internal/tui"
	"spectra/pkg/build"
)

// main runs in three phases:
//
// 1. Startup: build info, PortAudio, CLI parsing, one-off commands.
// 2. Concurrent: capture callback feeding the ring, the analysis worker
//    publishing band frames, transports fanning them out.
// 3. Shutdown: on SIGINT/SIGTERM, tear down in reverse order so no stage
//    publishes into a closed consumer.
func main() {
	if err := build.Initialize(); err != nil {
		// Development builds run without ldflags; keep going with defaults.
		applog.Warnf("Build info unavailable: %v", err)
	}

	// One thread for the capture callback, one for analysis and I/O.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		return // help or version output
	}

	if cfg.Verbose {
		applog.SetLevel(applog.LevelDebug)
	} else if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	if cfg.Command != "" {
		if err := executeCommand(cfg); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	// The ring holds four analysis frames of slack so a delayed worker tick
	// never costs samples.
	rb := ring.New(cfg.Spectrum.FFTSize * 4)

	engine, err := audio.NewEngine(cfg, rb)
	if err != nil {
		return err
	}

	var sink transport.Transport
	var ws *transport.WebSocketTransport
	if cfg.Transport.WebSocketAddr != "" {
		ws = transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr, cfg.Transport.BroadcastBuffer)
		sink = ws
	} else {
		sink = transport.NewLoggingTransport()
	}

	pipeline, err := analysis.NewPipeline(cfg, engine.SampleRate(), rb, sink)
	if err != nil {
		sink.Close()
		return err
	}

	var publisher *udp.Publisher
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddr)
		if err != nil {
			sink.Close()
			return err
		}
		publisher, err = udp.NewPublisher(
			time.Duration(cfg.Transport.UDPIntervalMS)*time.Millisecond, sender, pipeline)
		if err != nil {
			sender.Close()
			sink.Close()
			return err
		}
		defer sender.Close()
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	pipeline.Start()
	if err := engine.Start(); err != nil {
		pipeline.Stop()
		sink.Close()
		return err
	}
	if publisher != nil {
		publisher.Start()
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			applog.Errorf("Recording failed to start: %v", err)
		}
	}

	applog.Infof("Spectrum engine running, Ctrl+C to stop")
	<-done

	// Reverse order: stop the producer, then the worker, then the fan-out.
	if publisher != nil {
		publisher.Stop()
	}
	if err := engine.Close(); err != nil {
		applog.Errorf("Error closing audio engine: %v", err)
	}
	if cfg.Recording.Enabled {
		applog.Infof("Recording saved to %s", cfg.Recording.OutputFile)
	}
	if err := pipeline.Stop(); err != nil {
		applog.Errorf("Error stopping analysis: %v", err)
	}
	if err := sink.Close(); err != nil {
		applog.Errorf("Error closing transport: %v", err)
	}

	if overruns := rb.Overruns(); overruns > 0 {
		applog.Debugf("Capture ring overwrote unread samples %d times", overruns)
	}
	if faults := pipeline.Faults(); faults > 0 {
		applog.Warnf("Zero-substituted %d frames with non-finite samples", faults)
	}
	applog.Infof("Published %d frames", pipeline.Published())
	return nil
}

// executeCommand handles one-off commands that never start the engine.
func executeCommand(cfg *config.Config) error {
	switch cfg.Command {
	case "list":
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices()
	case "devices":
		return tui.StartDevicePickerUI(cfg.Spectrum.FFTSize, cfg.Spectrum.HopSize)
	}
	return nil
}
