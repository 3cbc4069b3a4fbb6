package led

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type opRecord struct {
	index int
	op    Op
}

// recorder is shared by the fake outputs of one bank. It logs every write
// and counts writes that overlapped with another write in flight.
type recorder struct {
	mu       sync.Mutex
	ops      []opRecord
	inFlight atomic.Int32
	overlaps atomic.Int32
}

func (r *recorder) record(index int, op Op) {
	if r.inFlight.Add(1) > 1 {
		r.overlaps.Add(1)
	}
	defer r.inFlight.Add(-1)

	r.mu.Lock()
	r.ops = append(r.ops, opRecord{index: index, op: op})
	r.mu.Unlock()
}

func (r *recorder) snapshot() []opRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]opRecord, len(r.ops))
	copy(out, r.ops)
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

var errFakeDevice = errors.New("fake device failure")

// fakeOutput is an in-memory Output with optional fault injection.
type fakeOutput struct {
	index int
	rec   *recorder

	mu         sync.Mutex
	on         bool
	failOn     bool
	failOff    bool
	panicOnTgl bool
}

func (f *fakeOutput) On() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn {
		return errFakeDevice
	}
	f.on = true
	f.rec.record(f.index, OpOn)
	return nil
}

func (f *fakeOutput) Off() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOff {
		return errFakeDevice
	}
	f.on = false
	f.rec.record(f.index, OpOff)
	return nil
}

func (f *fakeOutput) Toggle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnTgl {
		panic("toggle exploded")
	}
	f.on = !f.on
	f.rec.record(f.index, OpToggle)
	return nil
}

func (f *fakeOutput) IsOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

func newFakeBank(n int) (*Bank, []*fakeOutput, *recorder) {
	rec := &recorder{}
	fakes := make([]*fakeOutput, n)
	outputs := make([]Output, n)
	for i := range fakes {
		fakes[i] = &fakeOutput{index: i, rec: rec}
		outputs[i] = fakes[i]
	}
	return NewBank(outputs...), fakes, rec
}

func allOff(states []bool) bool {
	for _, on := range states {
		if on {
			return false
		}
	}
	return true
}

func onIndices(states []bool) []int {
	var idx []int
	for i, on := range states {
		if on {
			idx = append(idx, i)
		}
	}
	return idx
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
