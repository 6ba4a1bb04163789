// Command rackd runs the audio dispatch engine against the default audio
// output device.
//
// Usage:
//
//	rackd [flags]
//
// The engine input is fed by a test signal (audio.input in the
// configuration). Processor layouts come from the configured patches and
// are hot-swapped from the keyboard; a MIDI input device can drive the
// trigger and CV lines.
//
// Examples:
//
//	rackd
//	rackd -config rackd.yaml
//	rackd -config rackd.yaml -debug
//	rackd -list-midi
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cwbudde/algo-rack/control/midi"
	"github.com/cwbudde/algo-rack/dsp/processors"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/internal/config"
	"github.com/cwbudde/algo-rack/telemetry"
)

// logger is the process-wide structured logger. Safe to use before
// initLogger is called; defaults to slog.Default().
var logger = slog.Default()

// console is where log output goes. It translates newlines while the
// keyboard holds the terminal in raw mode.
var console = &consoleWriter{w: os.Stderr}

// initLogger configures the shared slog logger and calls slog.SetDefault so
// the stdlib log package also routes through the same handler.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (built-in defaults if empty)")
	debug := flag.Bool("debug", false, "enable debug logging")
	list := flag.Bool("list-midi", false, "list MIDI input devices and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rackd [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the audio dispatch engine on the default output device.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys:\n%s", keyHelp)
	}
	flag.Parse()

	if *list {
		if err := listMIDIDevices(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "rackd: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rackd: %v\n", err)
			os.Exit(1)
		}
	}

	initLogger(*debug || cfg.Debug)

	if err := run(cfg); err != nil {
		logger.Error("rackd stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m, err := cfg.MIDIMap()
	if err != nil {
		return err
	}
	controls, err := midi.New(m)
	if err != nil {
		return err
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	slots := rack.NewSlots(logger.With("component", "slots"))
	opts = append(opts,
		rack.WithSlots(slots),
		rack.WithControlSource(controls),
		rack.WithLogger(logger.With("component", "engine")))

	var (
		ring     *telemetry.Ring
		analyzer *telemetry.Analyzer
	)
	if cfg.Telemetry.Enabled {
		ring, err = telemetry.NewRing(cfg.Telemetry.Ring, 2*cfg.Audio.BlockSize)
		if err != nil {
			return err
		}
		ac, err := cfg.AnalyzerConfig()
		if err != nil {
			return err
		}
		analyzer, err = telemetry.NewAnalyzer(ac)
		if err != nil {
			return err
		}
		opts = append(opts, rack.WithSink(ring))
	}

	engine, err := rack.NewEngine(opts...)
	if err != nil {
		return err
	}

	host := processors.NewHost(processors.DefaultRegistry(), engine.Config(), slots,
		logger.With("component", "host"))
	defer func() {
		if err := host.Close(context.Background()); err != nil {
			logger.Warn("host close failed", "err", err)
		}
	}()

	patches := newRig(host, cfg.Patches, logger.With("component", "rig"))
	if err := patches.load(ctx, 0); err != nil {
		return err
	}

	src, err := newSource(cfg.Audio.Input, engine.Config().SampleRate)
	if err != nil {
		return err
	}
	reader := newBlockReader(engine, src)

	player, err := openOutput(cfg.Audio, reader)
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	defer func() {
		if err := player.Close(); err != nil {
			logger.Warn("audio player close failed", "err", err)
		}
	}()

	var wg sync.WaitGroup
	if cfg.MIDI.Enabled {
		wg.Go(func() {
			if err := runMIDI(ctx, cfg.MIDI.Device, controls); err != nil {
				logger.Error("midi input stopped", "err", err)
			}
		})
	}
	if ring != nil {
		wg.Go(func() {
			runTelemetry(ctx, ring, analyzer, engine, cfg.Telemetry.Interval)
		})
	}

	kb := &keyboard{
		engine:   engine,
		controls: controls,
		reader:   reader,
		rig:      patches,
		quit:     cancel,
		out:      console,
		pulseLen: triggerPulse,
	}
	restore := startKeyboard(ctx, kb)
	defer restore()

	logger.Info("rackd running",
		"sample_rate", cfg.Audio.SampleRate,
		"block_size", cfg.Audio.BlockSize,
		"input", cfg.Audio.Input.Source,
		"patches", len(cfg.Patches),
		"midi", cfg.MIDI.Enabled,
		"telemetry", cfg.Telemetry.Enabled)

	<-ctx.Done()
	cancel()
	wg.Wait()

	stats := engine.Monitor().Stats()
	logger.Info("rackd shutting down",
		"blocks", stats.Blocks,
		"overruns", stats.Overruns,
		"worst", stats.Worst)

	return nil
}
