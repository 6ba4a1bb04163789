package main

import (
	"context"
	"time"

	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/telemetry"
)

const telemetryDrain = 5 * time.Millisecond

// runTelemetry drains the metrics ring into the analyzer and logs a summary
// every interval.
func runTelemetry(ctx context.Context, ring *telemetry.Ring, an *telemetry.Analyzer, e *rack.Engine, interval time.Duration) {
	drain := time.NewTicker(telemetryDrain)
	defer drain.Stop()
	report := time.NewTicker(interval)
	defer report.Stop()

	var scratch telemetry.Frame
	for {
		select {
		case <-ctx.Done():
			return
		case <-drain.C:
			if _, err := an.Drain(ring, &scratch); err != nil {
				logger.Error("telemetry analysis failed", "err", err)
				return
			}
		case <-report.C:
			logger.Info("telemetry", summary(ring, an, e.Monitor().Stats())...)
		}
	}
}

func summary(ring *telemetry.Ring, an *telemetry.Analyzer, stats rack.DeadlineStats) []any {
	var last telemetry.Level
	if levels := an.Levels(); len(levels) > 0 {
		last = levels[len(levels)-1]
	}
	hz, amp := an.Peak()

	return []any{
		"input_level", last.Input,
		"output_level", last.Output,
		"peak_hz", hz,
		"peak_amp", amp,
		"tone", an.Tone(),
		"warnings", an.Warnings(),
		"overruns", stats.Overruns,
		"worst", stats.Worst,
		"dropped", ring.Dropped(),
	}
}
