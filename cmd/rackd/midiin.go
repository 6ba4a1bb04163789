package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rakyll/portmidi"

	"github.com/cwbudde/algo-rack/control/midi"
)

const midiPoll = time.Millisecond

// listMIDIDevices prints every MIDI input device with its portmidi ID.
func listMIDIDevices(w io.Writer) error {
	if err := portmidi.Initialize(); err != nil {
		return fmt.Errorf("portmidi: %w", err)
	}
	defer portmidi.Terminate()

	def := portmidi.DefaultInputDeviceID()
	for i := range portmidi.CountDevices() {
		id := portmidi.DeviceID(i)
		info := portmidi.Info(id)
		if info == nil || !info.IsInputAvailable {
			continue
		}
		mark := " "
		if id == def {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %2d  %s (%s)\n", mark, i, info.Name, info.Interface)
	}
	return nil
}

// runMIDI feeds events from a MIDI input device into controls until ctx
// ends. A negative device selects the system default.
func runMIDI(ctx context.Context, device int, controls *midi.Controls) error {
	if err := portmidi.Initialize(); err != nil {
		return fmt.Errorf("portmidi: %w", err)
	}
	defer portmidi.Terminate()

	id := portmidi.DefaultInputDeviceID()
	if device >= 0 {
		id = portmidi.DeviceID(device)
	}
	if id < 0 {
		return errors.New("no MIDI input device")
	}

	in, err := portmidi.NewInputStream(id, 1024)
	if err != nil {
		return fmt.Errorf("open MIDI device %d: %w", id, err)
	}
	defer in.Close()

	name := ""
	if info := portmidi.Info(id); info != nil {
		name = info.Name
	}
	logger.Info("midi input opened", "device", int(id), "name", name)

	t := time.NewTicker(midiPoll)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			handled, ignored := controls.Stats()
			logger.Info("midi input closed", "handled", handled, "ignored", ignored)
			return nil
		case <-t.C:
		}

		ok, err := in.Poll()
		if err != nil {
			return fmt.Errorf("poll MIDI device: %w", err)
		}
		if !ok {
			continue
		}

		events, err := in.Read(1024)
		if err != nil {
			return fmt.Errorf("read MIDI device: %w", err)
		}
		for _, ev := range events {
			if !controls.HandleRaw(byte(ev.Status), byte(ev.Data1), byte(ev.Data2)) {
				logger.Debug("midi event ignored", "status", ev.Status, "data1", ev.Data1, "data2", ev.Data2)
			}
		}
	}
}
