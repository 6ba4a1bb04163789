package telemetry

import (
	"sync"
	"testing"

	"github.com/cwbudde/algo-rack/dsp/rack"
)

func TestNewRingValidation(t *testing.T) {
	if _, err := NewRing(0, 64); err == nil {
		t.Fatal("expected error for zero capacity")
	}
	if _, err := NewRing(4, 0); err == nil {
		t.Fatal("expected error for zero block length")
	}

	r, err := NewRing(5, 64)
	if err != nil {
		t.Fatalf("NewRing() error = %v", err)
	}
	if r.Cap() != 8 {
		t.Fatalf("Cap() = %d, want 8", r.Cap())
	}
}

func TestRingFIFO(t *testing.T) {
	r, err := NewRing(4, 4)
	if err != nil {
		t.Fatalf("NewRing() error = %v", err)
	}

	for i := range 3 {
		r.Push(rack.Metrics{InputLevel: float64(i)}, []float64{float64(i), 0, 0, 0})
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}

	var f Frame
	for i := range 3 {
		if !r.Pop(&f) {
			t.Fatalf("Pop() %d returned false", i)
		}
		if f.Seq != uint64(i+1) || f.Metrics.InputLevel != float64(i) || f.Block[0] != float64(i) {
			t.Fatalf("frame %d = %+v", i, f)
		}
	}
	if r.Pop(&f) {
		t.Fatal("Pop() on empty ring returned true")
	}
}

func TestRingDropsWhenFull(t *testing.T) {
	r, err := NewRing(2, 2)
	if err != nil {
		t.Fatalf("NewRing() error = %v", err)
	}

	for range 5 {
		r.Push(rack.Metrics{}, []float64{1, 1})
	}
	if r.Dropped() != 3 {
		t.Fatalf("Dropped() = %d, want 3", r.Dropped())
	}

	var f Frame
	r.Pop(&f)
	if f.Seq != 1 {
		t.Fatalf("first Seq = %d, want 1", f.Seq)
	}
	r.Pop(&f)
	if f.Seq != 2 {
		t.Fatalf("second Seq = %d, want 2", f.Seq)
	}

	// Sequence numbers keep counting dropped frames.
	r.Push(rack.Metrics{}, []float64{1, 1})
	r.Pop(&f)
	if f.Seq != 6 {
		t.Fatalf("Seq after drops = %d, want 6", f.Seq)
	}
}

func TestRingTruncatesLongBlocks(t *testing.T) {
	r, err := NewRing(1, 2)
	if err != nil {
		t.Fatalf("NewRing() error = %v", err)
	}

	r.Push(rack.Metrics{}, []float64{1, 2, 3, 4})

	var f Frame
	if !r.Pop(&f) {
		t.Fatal("Pop() returned false")
	}
	if len(f.Block) != 2 || f.Block[0] != 1 || f.Block[1] != 2 {
		t.Fatalf("Block = %v, want [1 2]", f.Block)
	}
}

func TestRingConcurrentProducerConsumer(t *testing.T) {
	const total = 20000

	r, err := NewRing(64, 2)
	if err != nil {
		t.Fatalf("NewRing() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range total {
			r.Push(rack.Metrics{}, []float64{float64(i), float64(i)})
		}
	}()

	var (
		f    Frame
		got  int
		last uint64
	)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		if r.Pop(&f) {
			if f.Seq <= last {
				t.Fatalf("Seq went backwards: %d after %d", f.Seq, last)
			}
			if f.Block[0] != float64(f.Seq-1) || f.Block[1] != f.Block[0] {
				t.Fatalf("frame %d carries %v", f.Seq, f.Block)
			}
			last = f.Seq
			got++
			continue
		}
		select {
		case <-done:
			if r.Len() != 0 {
				continue
			}
			if uint64(got)+r.Dropped() != total {
				t.Fatalf("popped %d + dropped %d != %d", got, r.Dropped(), total)
			}
			return
		default:
		}
	}
}

func TestRingAsEngineSink(t *testing.T) {
	r, err := NewRing(8, 64)
	if err != nil {
		t.Fatalf("NewRing() error = %v", err)
	}

	e, err := rack.NewEngine(rack.WithSink(r))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	buf := make([]float64, 64)
	for range 3 {
		e.Process(buf, nil)
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
}
