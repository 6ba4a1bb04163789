package processors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
)

var (
	// ErrUnknownInstance is returned for an ID the host does not own.
	ErrUnknownInstance = errors.New("processors: unknown instance")
	// ErrInstanceBound is returned when releasing an instance that a slot
	// still references.
	ErrInstanceBound = errors.New("processors: instance is bound")
)

// Info describes one live instance.
type Info struct {
	ID     uuid.UUID
	Type   string
	Stereo bool
	Bound  rack.Mask
}

// Binding assigns an instance to channels.
type Binding struct {
	ID   uuid.UUID
	Mask rack.Mask
}

type instance struct {
	typ   string
	p     rack.Processor
	bound rack.Mask
}

// Host owns processor instances and is the only path through which they
// are bound to slots. An instance can only be released once no slot
// references it, so the audio goroutine never runs a released processor.
//
// Host is safe for concurrent use by control-plane goroutines.
type Host struct {
	mu        sync.Mutex
	reg       *Registry
	cfg       core.ProcessorConfig
	slots     *rack.Slots
	instances map[uuid.UUID]*instance
	log       *slog.Logger
}

// NewHost returns a host that builds processors from reg for the given
// engine configuration and binds them into slots. logger may be nil.
func NewHost(reg *Registry, cfg core.ProcessorConfig, slots *rack.Slots, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Host{
		reg:       reg,
		cfg:       cfg,
		slots:     slots,
		instances: make(map[uuid.UUID]*instance),
		log:       logger,
	}
}

// Create builds a new instance and returns its ID.
func (h *Host) Create(typ string, params Params) (uuid.UUID, error) {
	p, err := h.reg.New(typ, h.cfg, params)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()

	h.mu.Lock()
	h.instances[id] = &instance{typ: typ, p: p}
	h.mu.Unlock()

	h.log.Info("processor created", "id", id, "type", typ, "stereo", p.Stereo())

	return id, nil
}

// Get returns the processor with the given ID.
func (h *Host) Get(id uuid.UUID) (rack.Processor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inst, ok := h.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstance, id)
	}
	return inst.p, nil
}

// Set changes a runtime parameter of an instance.
func (h *Host) Set(id uuid.UUID, name string, v float64) error {
	p, err := h.Get(id)
	if err != nil {
		return err
	}
	return SetParam(p, name, v)
}

// Bind binds an instance to the channels in mask.
func (h *Host) Bind(ctx context.Context, id uuid.UUID, mask rack.Mask) error {
	return h.Apply(ctx, false, Binding{ID: id, Mask: mask})
}

// Unbind clears the channels in mask.
func (h *Host) Unbind(ctx context.Context, mask rack.Mask) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.slots.Update(ctx, func(tx *rack.SlotTx) error {
		defer h.sync(tx)
		return tx.Unbind(mask)
	})
	if err != nil {
		return err
	}

	h.log.Info("slots cleared", "mask", mask.String())

	return nil
}

// Apply binds several instances under one exclusive acquisition of the
// slot guard, so the audio goroutine sees either the old or the new
// routing. With replace set both slots are cleared first.
func (h *Host) Apply(ctx context.Context, replace bool, bindings ...Binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	procs := make([]rack.Processor, len(bindings))
	for i, b := range bindings {
		inst, ok := h.instances[b.ID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownInstance, b.ID)
		}
		procs[i] = inst.p
	}

	err := h.slots.Update(ctx, func(tx *rack.SlotTx) error {
		defer h.sync(tx)

		if replace {
			if err := tx.Unbind(rack.MaskBoth); err != nil {
				return err
			}
		}
		for i, b := range bindings {
			if err := tx.Bind(b.Mask, procs[i]); err != nil {
				return fmt.Errorf("bind %s to %s: %w", b.ID, b.Mask, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("processors: apply: %w", err)
	}

	for _, b := range bindings {
		h.log.Info("processor bound", "id", b.ID, "type", h.instances[b.ID].typ, "mask", b.Mask.String())
	}

	return nil
}

// sync recomputes which instances are bound after an edit.
func (h *Host) sync(tx *rack.SlotTx) {
	left := tx.Get(rack.Channel0)
	right := tx.Get(rack.Channel1)

	for _, inst := range h.instances {
		inst.bound = rack.MaskNone
		if left != nil && inst.p == left {
			inst.bound |= rack.MaskLeft
		}
		if right != nil && inst.p == right {
			inst.bound |= rack.MaskRight
		}
	}
}

// Release destroys an unbound instance.
func (h *Host) Release(id uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	inst, ok := h.instances[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInstance, id)
	}
	if inst.bound != rack.MaskNone {
		return fmt.Errorf("%w: %s on %s", ErrInstanceBound, id, inst.bound)
	}

	delete(h.instances, id)

	if c, ok := inst.p.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("processors: release %s: %w", id, err)
		}
	}

	h.log.Info("processor released", "id", id, "type", inst.typ)

	return nil
}

// Instances lists the live instances ordered by ID.
func (h *Host) Instances() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Info, 0, len(h.instances))
	for id, inst := range h.instances {
		out = append(out, Info{ID: id, Type: inst.typ, Stereo: inst.p.Stereo(), Bound: inst.bound})
	}
	slices.SortFunc(out, func(a, b Info) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

// Close unbinds everything and releases all instances.
func (h *Host) Close(ctx context.Context) error {
	if err := h.Unbind(ctx, rack.MaskBoth); err != nil {
		return err
	}

	var errs []error
	for _, info := range h.Instances() {
		if err := h.Release(info.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
