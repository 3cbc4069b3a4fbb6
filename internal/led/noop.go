package led

import (
	"log/slog"
	"sync/atomic"
)

// noop implements Output in memory for systems without LED hardware.
// State is tracked so the API still reflects what a real bank would show.
type noop struct {
	index  int
	logger *slog.Logger
	on     atomic.Bool
}

// newNoop creates a new in-memory output
func newNoop(index int, logger *slog.Logger) *noop {
	return &noop{
		index:  index,
		logger: logger,
	}
}

// On records the new state but performs no actual LED control
func (n *noop) On() error {
	n.set(true)
	return nil
}

// Off records the new state but performs no actual LED control
func (n *noop) Off() error {
	n.set(false)
	return nil
}

// Toggle flips the recorded state
func (n *noop) Toggle() error {
	n.set(!n.on.Load())
	return nil
}

// IsOn returns the recorded state
func (n *noop) IsOn() bool {
	return n.on.Load()
}

func (n *noop) set(on bool) {
	if n.on.Swap(on) != on && n.logger != nil {
		n.logger.Debug("LED control not available (no-op)", "index", n.index, "on", on)
	}
}
