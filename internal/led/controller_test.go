package led

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/ledpanel/internal/events"
)

// slowPeriod keeps paced presets parked in their first sleep, which makes
// the exact write sequence deterministic. Sleeps are cancellable.
const slowPeriod = time.Hour

func newTestController(bank *Bank, period time.Duration) *Controller {
	return NewController(bank, Options{Period: period, Logger: testLogger()})
}

func haltOrFail(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Halt(ctx); err != nil {
		t.Fatalf("Halt() returned error: %v", err)
	}
}

func TestController_StartRunsPong(t *testing.T) {
	bank, _, _ := newFakeBank(10)
	c := newTestController(bank, slowPeriod)
	defer haltOrFail(t, c)

	if err := c.Start(PatternPong); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	waitFor(t, "pong initial frame", func() bool {
		return reflect.DeepEqual(onIndices(bank.States()), []int{0})
	})

	status := c.Status()
	if status.State != StateRunning || status.Pattern != PatternPong {
		t.Errorf("Status() = %+v, want running pong", status)
	}
	if status.StartedAt.IsZero() {
		t.Error("StartedAt should be set")
	}
}

func TestController_StartClearsBankFirst(t *testing.T) {
	bank, _, _ := newFakeBank(10)
	if err := bank.AllOn(); err != nil {
		t.Fatal(err)
	}
	c := newTestController(bank, slowPeriod)
	defer haltOrFail(t, c)

	if err := c.Start(PatternPingPong); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	waitFor(t, "pingpong initial frame", func() bool {
		return reflect.DeepEqual(onIndices(bank.States()), []int{0, 9})
	})
}

func TestController_ReplaceJoinsPreviousWorker(t *testing.T) {
	bank, _, rec := newFakeBank(10)
	c := newTestController(bank, slowPeriod)
	defer haltOrFail(t, c)

	if err := c.Start(PatternTrailing); err != nil {
		t.Fatalf("Start(trailing) returned error: %v", err)
	}
	waitFor(t, "trailing first toggle", func() bool { return bank.States()[0] })

	if err := c.Start(PatternPong); err != nil {
		t.Fatalf("Start(pong) returned error: %v", err)
	}

	// trailing wrote its entry all-off, one toggle and its cleanup all-off,
	// all of which Start waited for before spawning pong.
	if n := rec.len(); n < 21 {
		t.Fatalf("Start returned after only %d trailing writes, want 21", n)
	}

	waitFor(t, "pong initial frame", func() bool { return rec.len() >= 32 })
	ops := rec.snapshot()

	for i, r := range ops[:10] {
		if r != (opRecord{index: i, op: OpOff}) {
			t.Fatalf("trailing entry write %d = %v, want off(%d)", i, r, i)
		}
	}
	if ops[10] != (opRecord{index: 0, op: OpToggle}) {
		t.Fatalf("trailing first step = %v, want toggle(0)", ops[10])
	}
	for i, r := range ops[11:21] {
		if r != (opRecord{index: i, op: OpOff}) {
			t.Fatalf("trailing cleanup write %d = %v, want off(%d)", i, r, i)
		}
	}
	for i, r := range ops[21:31] {
		if r != (opRecord{index: i, op: OpOff}) {
			t.Fatalf("pong entry write %d = %v, want off(%d)", i, r, i)
		}
	}
	if ops[31] != (opRecord{index: 0, op: OpOn}) {
		t.Errorf("pong first frame = %v, want on(0)", ops[31])
	}
	if len(ops) != 32 {
		t.Errorf("recorded %d writes, want 32: %v", len(ops), ops[32:])
	}
}

func TestController_NoConcurrentWorkers(t *testing.T) {
	bank, _, rec := newFakeBank(10)
	c := newTestController(bank, time.Millisecond)

	patterns := []Pattern{PatternBlinking, PatternTrailing, PatternPong, PatternPingPong}
	for i := range 40 {
		if err := c.Start(patterns[i%len(patterns)]); err != nil {
			t.Fatalf("Start() returned error: %v", err)
		}
		time.Sleep(200 * time.Microsecond)
	}
	haltOrFail(t, c)

	if n := rec.overlaps.Load(); n != 0 {
		t.Errorf("observed %d overlapping writes from concurrent workers", n)
	}
	if !allOff(bank.States()) {
		t.Errorf("outputs on after Halt: %v", onIndices(bank.States()))
	}
}

func TestController_ConcurrentStartsFromManyCallers(t *testing.T) {
	bank, _, rec := newFakeBank(10)
	c := newTestController(bank, time.Millisecond)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 10 {
				p := Patterns()[(i+j)%4]
				if err := c.StartPattern(p); err != nil {
					t.Errorf("StartPattern(%s) returned error: %v", p, err)
				}
			}
		}()
	}
	wg.Wait()
	haltOrFail(t, c)

	if n := rec.overlaps.Load(); n != 0 {
		t.Errorf("observed %d overlapping writes from concurrent workers", n)
	}
	if c.Status().State != StateIdle {
		t.Errorf("State = %s after Halt, want idle", c.Status().State)
	}
}

func TestController_StopLeavesAllOff(t *testing.T) {
	for _, p := range []Pattern{PatternTrailing, PatternBlinking, PatternPong, PatternPingPong} {
		t.Run(string(p), func(t *testing.T) {
			bank, _, _ := newFakeBank(10)
			c := newTestController(bank, time.Millisecond)

			if err := c.Start(p); err != nil {
				t.Fatalf("Start() returned error: %v", err)
			}
			time.Sleep(15 * time.Millisecond)

			if err := c.Stop(); err != nil {
				t.Fatalf("Stop() returned error: %v", err)
			}

			waitFor(t, "worker exit", func() bool { return c.Status().State == StateIdle })
			if !allOff(bank.States()) {
				t.Errorf("outputs on after Stop: %v", onIndices(bank.States()))
			}
		})
	}
}

func TestController_StopWhenIdle(t *testing.T) {
	bank, _, _ := newFakeBank(4)
	if err := bank.AllOn(); err != nil {
		t.Fatal(err)
	}
	c := newTestController(bank, slowPeriod)

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() returned error: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop() returned error: %v", err)
	}
	if !allOff(bank.States()) {
		t.Errorf("outputs on after Stop: %v", onIndices(bank.States()))
	}
	if c.Status().State != StateIdle {
		t.Errorf("State = %s, want idle", c.Status().State)
	}
}

func TestController_StopReportsDeviceError(t *testing.T) {
	bank, fakes, _ := newFakeBank(3)
	fakes[1].failOff = true
	obs := &fakeObserver{}
	c := NewController(bank, Options{Period: slowPeriod, Logger: testLogger(), Observer: obs})

	if err := c.Stop(); !errors.Is(err, errFakeDevice) {
		t.Fatalf("Stop() = %v, want device failure", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.errors != 1 {
		t.Errorf("device errors = %d, want 1", obs.errors)
	}
}

func TestController_RapidStartStartStop(t *testing.T) {
	bank, _, _ := newFakeBank(10)
	c := newTestController(bank, 5*time.Millisecond)

	if err := c.Start(PatternTrailing); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(PatternBlinking); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}

	haltOrFail(t, c)
	if c.Status().State != StateIdle {
		t.Errorf("State = %s, want idle", c.Status().State)
	}
	if !allOff(bank.States()) {
		t.Errorf("outputs on: %v", onIndices(bank.States()))
	}
}

func TestController_InvalidPatternChangesNothing(t *testing.T) {
	bank, _, rec := newFakeBank(10)
	c := newTestController(bank, slowPeriod)
	defer haltOrFail(t, c)

	if err := c.Start(PatternPong); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pong initial frame", func() bool {
		return reflect.DeepEqual(onIndices(bank.States()), []int{0})
	})
	writes := rec.len()

	err := c.StartPattern("bogus")
	if !errors.Is(err, ErrUnknownPattern) || !IsValidation(err) {
		t.Fatalf("StartPattern(bogus) error = %v, want validation error", err)
	}

	if rec.len() != writes {
		t.Errorf("bank was written %d times after invalid request", rec.len()-writes)
	}
	if status := c.Status(); status.State != StateRunning || status.Pattern != PatternPong {
		t.Errorf("Status() = %+v, want pong still running", status)
	}

	if err := c.Start(Pattern("bogus")); !errors.Is(err, ErrUnknownPattern) {
		t.Errorf("Start(bogus) error = %v, want ErrUnknownPattern", err)
	}
}

func TestController_EmptyBank(t *testing.T) {
	c := newTestController(NewBank(), slowPeriod)
	if err := c.Start(PatternTrailing); !errors.Is(err, ErrEmptyBank) {
		t.Errorf("Start() on empty bank error = %v, want ErrEmptyBank", err)
	}
}

func TestController_ToggleOneHaltsPreset(t *testing.T) {
	bank, _, _ := newFakeBank(10)
	c := newTestController(bank, slowPeriod)

	if err := c.Start(PatternPingPong); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pingpong initial frame", func() bool { return bank.CountOn() == 2 })

	on, err := c.ToggleOne(context.Background(), 3)
	if err != nil {
		t.Fatalf("ToggleOne() returned error: %v", err)
	}
	if !on {
		t.Error("ToggleOne(3) = false, want true")
	}
	if got := onIndices(bank.States()); !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("outputs on = %v, want [3]", got)
	}
	if c.Status().State != StateIdle {
		t.Errorf("State = %s, want idle", c.Status().State)
	}

	on, err = c.ToggleOne(context.Background(), 3)
	if err != nil || on {
		t.Errorf("second ToggleOne(3) = %v, %v; want false, nil", on, err)
	}
}

func TestController_ToggleOneInvalidIndexKeepsPreset(t *testing.T) {
	bank, _, _ := newFakeBank(10)
	c := newTestController(bank, slowPeriod)
	defer haltOrFail(t, c)

	if err := c.Start(PatternPong); err != nil {
		t.Fatal(err)
	}

	_, err := c.ToggleOne(context.Background(), 10)
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("ToggleOne(10) error = %v, want ErrIndexOutOfRange", err)
	}
	if c.Status().State != StateRunning {
		t.Errorf("State = %s, want running", c.Status().State)
	}
}

func TestController_AllOnHaltsPreset(t *testing.T) {
	bank, _, _ := newFakeBank(10)
	c := newTestController(bank, time.Millisecond)

	if err := c.Start(PatternBlinking); err != nil {
		t.Fatal(err)
	}
	if err := c.AllOn(context.Background()); err != nil {
		t.Fatalf("AllOn() returned error: %v", err)
	}

	if got := bank.CountOn(); got != 10 {
		t.Errorf("CountOn() = %d, want 10", got)
	}
	// The worker is gone, so nothing may change the bank any more.
	time.Sleep(10 * time.Millisecond)
	if got := bank.CountOn(); got != 10 {
		t.Errorf("CountOn() after wait = %d, want 10", got)
	}
}

func TestController_SetAllDoesNotStop(t *testing.T) {
	bank, _, _ := newFakeBank(4)
	c := newTestController(bank, slowPeriod)
	defer haltOrFail(t, c)

	if err := c.Start(PatternPong); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pong initial frame", func() bool { return bank.States()[0] })

	if err := c.SetAll(true); err != nil {
		t.Fatalf("SetAll(true) returned error: %v", err)
	}
	if c.Status().State != StateRunning {
		t.Errorf("State = %s, want running", c.Status().State)
	}
}

func TestController_DeviceFaultEndsWorker(t *testing.T) {
	bank, fakes, _ := newFakeBank(4)
	fakes[0].failOn = true
	c := newTestController(bank, slowPeriod)

	if err := c.Start(PatternPong); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "worker exit", func() bool { return c.Status().State == StateIdle })

	status := c.Status()
	if !errors.Is(status.LastError, errFakeDevice) {
		t.Errorf("LastError = %v, want device failure", status.LastError)
	}

	// A later Start must not be blocked by the dead worker.
	fakes[0].mu.Lock()
	fakes[0].failOn = false
	fakes[0].mu.Unlock()

	if err := c.Start(PatternPong); err != nil {
		t.Fatalf("Start() after fault returned error: %v", err)
	}
	waitFor(t, "pong initial frame", func() bool { return bank.States()[0] })
	haltOrFail(t, c)
}

func TestController_PanicInWorkerStillCleansUp(t *testing.T) {
	bank, fakes, _ := newFakeBank(4)
	fakes[2].panicOnTgl = true
	c := newTestController(bank, time.Millisecond)

	if err := c.Start(PatternTrailing); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "worker exit", func() bool { return c.Status().State == StateIdle })

	if err := c.Status().LastError; err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Errorf("LastError = %v, want panic report", err)
	}
	if !allOff(bank.States()) {
		t.Errorf("outputs on after panic: %v", onIndices(bank.States()))
	}
}

func TestController_HaltRespectsContext(t *testing.T) {
	bank, _, _ := newFakeBank(2)
	c := newTestController(bank, slowPeriod)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// No worker: nothing to wait for.
	if err := c.Halt(ctx); err != nil {
		t.Errorf("Halt() with no worker returned %v", err)
	}
}

func TestController_CloseLeavesAllOff(t *testing.T) {
	bank, _, _ := newFakeBank(6)
	c := newTestController(bank, slowPeriod)

	if err := c.Start(PatternPingPong); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pingpong initial frame", func() bool { return bank.CountOn() == 2 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if !allOff(bank.States()) || c.Status().State != StateIdle {
		t.Errorf("after Close: on=%v state=%s", onIndices(bank.States()), c.Status().State)
	}
}

type fakeObserver struct {
	mu      sync.Mutex
	started []string
	stopped []string
	steps   int
	errors  int
}

func (o *fakeObserver) PresetStarted(p string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, p)
}

func (o *fakeObserver) PresetStopped(p string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped = append(o.stopped, p)
}

func (o *fakeObserver) PresetStepped(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps++
}

func (o *fakeObserver) DeviceError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors++
}

func TestController_ObserverAndEvents(t *testing.T) {
	bank, _, _ := newFakeBank(5)
	bus := events.New()
	obs := &fakeObserver{}
	c := NewController(bank, Options{
		Period:   slowPeriod,
		Logger:   testLogger(),
		EventBus: bus,
		Observer: obs,
	})

	states := make(chan events.AnimationStateChangedEvent, 10)
	unsub := bus.Subscribe(func(e events.AnimationStateChangedEvent) { states <- e })
	defer unsub()

	if err := c.Start(PatternPong); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pong initial frame", func() bool { return bank.States()[0] })
	haltOrFail(t, c)

	var got []string
	for range 3 {
		select {
		case e := <-states:
			if e.Preset != "pong" {
				t.Errorf("event preset = %q, want pong", e.Preset)
			}
			got = append(got, e.State)
		case <-time.After(time.Second):
			t.Fatalf("missing state events, got %v", got)
		}
	}
	if want := []string{"running", "stopping", "idle"}; !reflect.DeepEqual(got, want) {
		t.Errorf("state events = %v, want %v", got, want)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if !reflect.DeepEqual(obs.started, []string{"pong"}) || !reflect.DeepEqual(obs.stopped, []string{"pong"}) {
		t.Errorf("observer started=%v stopped=%v", obs.started, obs.stopped)
	}
	if obs.steps != 1 {
		t.Errorf("observer steps = %d, want 1", obs.steps)
	}
}
