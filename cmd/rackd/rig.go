package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-rack/dsp/processors"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/internal/config"
)

// rig switches between the configured patches. Each switch builds fresh
// instances, swaps them into the slots in one step and releases the
// instances of the previous patch.
type rig struct {
	host    *processors.Host
	patches []config.Patch
	log     *slog.Logger

	mu      sync.Mutex
	current int
	ids     []uuid.UUID
}

func newRig(host *processors.Host, patches []config.Patch, log *slog.Logger) *rig {
	return &rig{host: host, patches: patches, log: log, current: -1}
}

// Current returns the index of the active patch, or -1.
func (r *rig) Current() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *rig) load(ctx context.Context, i int) error {
	if i < 0 || i >= len(r.patches) {
		return fmt.Errorf("no patch %d", i+1)
	}
	p := r.patches[i]

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(p.Slots))
	bindings := make([]processors.Binding, 0, len(p.Slots))
	for j, s := range p.Slots {
		mask, err := s.ChannelMask()
		if err != nil {
			r.release(ids)
			return fmt.Errorf("patch %q slot %d: %w", p.Name, j, err)
		}
		id, err := r.host.Create(s.Type, s.ProcessorParams())
		if err != nil {
			r.release(ids)
			return fmt.Errorf("patch %q slot %d: %w", p.Name, j, err)
		}
		ids = append(ids, id)
		bindings = append(bindings, processors.Binding{ID: id, Mask: mask})
	}

	if err := r.host.Apply(ctx, true, bindings...); err != nil {
		// Partial edits stay applied; fall back to an empty rack.
		if uerr := r.host.Unbind(ctx, rack.MaskBoth); uerr != nil {
			r.log.Warn("clearing slots failed", "err", uerr)
		}
		r.release(ids)
		r.release(r.ids)
		r.ids, r.current = nil, -1
		return fmt.Errorf("patch %q: %w", p.Name, err)
	}

	old := r.ids
	r.ids, r.current = ids, i
	r.release(old)

	r.log.Info("patch loaded", "patch", p.Name, "index", i+1, "slots", len(p.Slots))
	return nil
}

func (r *rig) release(ids []uuid.UUID) {
	for _, id := range ids {
		if err := r.host.Release(id); err != nil {
			r.log.Warn("release failed", "id", id, "err", err)
		}
	}
}
