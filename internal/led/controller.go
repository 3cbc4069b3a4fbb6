package led

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/ledpanel/internal/events"
)

// DefaultPeriod is the pause between two steps of the paced presets.
const DefaultPeriod = 500 * time.Millisecond

// State is the lifecycle state of the animation worker.
type State string

// Controller states.
const (
	StateIdle     State = "idle"     // No worker
	StateRunning  State = "running"  // Worker animating a preset
	StateStopping State = "stopping" // Cancellation requested, cleanup in flight
)

// Status is a snapshot of the controller.
type Status struct {
	State     State
	Pattern   Pattern
	StartedAt time.Time
	LastError error
}

// Observer receives animation activity, e.g. for metrics.
type Observer interface {
	PresetStarted(preset string)
	PresetStopped(preset string)
	PresetStepped(preset string)
	DeviceError()
}

// Options configures a Controller.
type Options struct {
	// Period between steps of paced presets. Zero means DefaultPeriod.
	Period   time.Duration
	Logger   *slog.Logger
	EventBus *events.Bus
	Observer Observer
}

// Controller owns the bank and the single animation worker.
//
// mu serialises every operation that can spawn, cancel or join the worker,
// or write the bank from the caller's goroutine. The worker itself never
// takes mu; it only touches stateMu, so Start can hold mu while it joins.
type Controller struct {
	bank     *Bank
	period   time.Duration
	logger   *slog.Logger
	bus      *events.Bus
	observer Observer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	stateMu sync.Mutex
	gen     uint64
	status  Status
}

// NewController creates a controller for the given bank.
func NewController(bank *Bank, opts Options) *Controller {
	period := opts.Period
	if period <= 0 {
		period = DefaultPeriod
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Controller{
		bank:     bank,
		period:   period,
		logger:   logger,
		bus:      opts.EventBus,
		observer: opts.Observer,
		status:   Status{State: StateIdle},
	}
}

// Bank returns the controlled bank.
func (c *Controller) Bank() *Bank {
	return c.bank
}

// Period returns the base step period.
func (c *Controller) Period() time.Duration {
	return c.period
}

// States returns a snapshot of every LED state.
func (c *Controller) States() []bool {
	return c.bank.States()
}

// Status returns the current controller state.
func (c *Controller) Status() Status {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.status
}

// Start runs pattern p in the background until it is stopped or replaced.
// A running worker is cancelled and joined, including its cleanup, before
// the new one is spawned, so two workers never write the bank together.
func (c *Controller) Start(p Pattern) error {
	if _, err := ParsePattern(string(p)); err != nil {
		return err
	}
	if c.bank.Len() == 0 {
		return NewError(ErrCodeEmptyBank, "cannot animate", ErrEmptyBank)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Start waits as long as the previous worker needs; steps are short.
	if err := c.joinLocked(context.Background()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	c.stateMu.Lock()
	c.gen++
	gen := c.gen
	c.status = Status{State: StateRunning, Pattern: p, StartedAt: time.Now(), LastError: c.status.LastError}
	c.stateMu.Unlock()

	c.logger.Info("Starting preset", "preset", p, "period", p.Delay(c.period))
	c.publishState(StateRunning, p, nil)
	if c.observer != nil {
		c.observer.PresetStarted(string(p))
	}

	go c.run(ctx, gen, p, done)
	return nil
}

// Stop cancels the worker, if any, and forces every output off without
// waiting for the worker. The worker still runs its own cleanup afterwards.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.markStopping()
	}

	if err := c.bank.AllOff(); err != nil {
		c.deviceError(err)
		return err
	}
	return nil
}

// Halt cancels the worker and waits for it to finish its cleanup.
// Manual writes must only follow a Halt. Returns ctx.Err() if ctx ends first;
// the worker keeps shutting down in that case.
func (c *Controller) Halt(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joinLocked(ctx)
}

// Close halts the worker and leaves the bank off. Used on process shutdown.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	haltErr := c.joinLocked(ctx)
	return errors.Join(haltErr, c.bank.AllOff())
}

// SetAll writes every output directly. It does not stop a running preset;
// callers that need exclusive access use AllOn or Halt first.
func (c *Controller) SetAll(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setAllLocked(on)
}

// StartPattern validates name and starts that preset. An unknown name is
// rejected before any state changes.
func (c *Controller) StartPattern(name string) error {
	p, err := ParsePattern(name)
	if err != nil {
		return err
	}
	return c.Start(p)
}

// StopAll stops any preset and switches every LED off.
func (c *Controller) StopAll() error {
	if err := c.Stop(); err != nil {
		return err
	}
	c.bus.Publish(events.BankChangedEvent{On: false, Count: c.bank.Len(), Timestamp: now()})
	return nil
}

// AllOn stops any preset and switches every LED on.
func (c *Controller) AllOn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.joinLocked(ctx); err != nil {
		return err
	}
	return c.setAllLocked(true)
}

// ToggleOne stops any preset and toggles LED index, returning its new state.
func (c *Controller) ToggleOne(ctx context.Context, index int) (bool, error) {
	if _, err := c.bank.Get(index); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.joinLocked(ctx); err != nil {
		return false, err
	}

	on, err := c.bank.Toggle(index)
	if err != nil {
		c.deviceError(err)
		return on, err
	}
	c.logger.Debug("Toggled LED", "index", index, "on", on)
	c.bus.Publish(events.LEDChangedEvent{Index: index, On: on, Timestamp: now()})
	return on, nil
}

// joinLocked cancels the current worker and waits for it to exit. Must hold mu.
func (c *Controller) joinLocked(ctx context.Context) error {
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	c.markStopping()

	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.cancel = nil
	c.done = nil
	return nil
}

func (c *Controller) setAllLocked(on bool) error {
	var err error
	if on {
		err = c.bank.AllOn()
	} else {
		err = c.bank.AllOff()
	}
	if err != nil {
		c.deviceError(err)
		return err
	}
	c.bus.Publish(events.BankChangedEvent{On: on, Count: c.bank.Len(), Timestamp: now()})
	return nil
}

// run is the worker. Its deferred cleanup switches the bank off on every
// exit path: cancellation, device fault or panic.
func (c *Controller) run(ctx context.Context, gen uint64, p Pattern, done chan struct{}) {
	var runErr error
	defer close(done)
	defer func() {
		c.cleanup(gen, p, runErr)
	}()
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("preset %s panicked: %v", p, r)
		}
	}()

	logger := c.logger.With("preset", p)

	if err := c.bank.AllOff(); err != nil {
		runErr = err
		return
	}

	seq := NewSequence(p, c.bank.Len())
	delay := p.Delay(c.period)

	for ctx.Err() == nil {
		for _, m := range seq.Next() {
			if err := c.bank.Apply(m); err != nil {
				runErr = err
				return
			}
		}
		if c.observer != nil {
			c.observer.PresetStepped(string(p))
		}
		if !sleep(ctx, delay) {
			break
		}
	}

	logger.Debug("Preset cancelled", "steps", seq.Step())
}

func (c *Controller) cleanup(gen uint64, p Pattern, runErr error) {
	if runErr != nil {
		c.deviceError(runErr)
		c.logger.Error("Preset worker failed", "preset", p, "error", runErr)
	}

	if err := c.bank.AllOff(); err != nil {
		c.deviceError(err)
		c.logger.Error("Failed to switch LEDs off after preset", "preset", p, "error", err)
	}

	c.stateMu.Lock()
	if c.gen == gen {
		c.status.State = StateIdle
		c.status.Pattern = ""
		if runErr != nil {
			c.status.LastError = runErr
		}
	}
	c.stateMu.Unlock()

	c.logger.Info("Preset stopped", "preset", p)
	c.publishState(StateIdle, p, runErr)
	if c.observer != nil {
		c.observer.PresetStopped(string(p))
	}
}

func (c *Controller) markStopping() {
	c.stateMu.Lock()
	if c.status.State != StateRunning {
		c.stateMu.Unlock()
		return
	}
	c.status.State = StateStopping
	p := c.status.Pattern
	c.stateMu.Unlock()

	c.publishState(StateStopping, p, nil)
}

func (c *Controller) deviceError(err error) {
	c.logger.Warn("LED device error", "error", err)
	if c.observer != nil {
		c.observer.DeviceError()
	}
}

func (c *Controller) publishState(state State, p Pattern, err error) {
	ev := events.AnimationStateChangedEvent{
		State:     string(state),
		Preset:    string(p),
		Timestamp: now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.bus.Publish(ev)
}

// sleep waits for d or until ctx is cancelled. It reports whether the
// worker should keep going.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
