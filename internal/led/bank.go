package led

import (
	"errors"
	"fmt"
	"io"
)

// Output is a single binary device addressed by its index in a Bank.
// Implementations must tolerate IsOn being called concurrently with writes.
type Output interface {
	On() error
	Off() error
	Toggle() error
	IsOn() bool
}

// Bank is the fixed, ordered collection of outputs. It owns no locking;
// the Controller guarantees there is at most one writer at a time.
type Bank struct {
	outputs []Output
}

// NewBank creates a bank over the given outputs. Indices follow argument order.
func NewBank(outputs ...Output) *Bank {
	return &Bank{outputs: outputs}
}

// Len returns the number of outputs.
func (b *Bank) Len() int {
	return len(b.outputs)
}

// Get returns the output at index i.
func (b *Bank) Get(i int) (Output, error) {
	if i < 0 || i >= len(b.outputs) {
		return nil, NewError(ErrCodeIndexOutOfRange,
			fmt.Sprintf("no LED at index %d (bank has %d)", i, len(b.outputs)), ErrIndexOutOfRange)
	}
	return b.outputs[i], nil
}

// AllOff switches every output off in index order. A failing output does not
// prevent the remaining ones from being attempted.
func (b *Bank) AllOff() error {
	return b.each(Output.Off)
}

// AllOn switches every output on in index order.
func (b *Bank) AllOn() error {
	return b.each(Output.On)
}

// Toggle flips output i and returns its new state.
func (b *Bank) Toggle(i int) (bool, error) {
	out, err := b.Get(i)
	if err != nil {
		return false, err
	}
	if err := out.Toggle(); err != nil {
		return out.IsOn(), deviceFault(i, err)
	}
	return out.IsOn(), nil
}

// Apply performs a single pattern mutation.
func (b *Bank) Apply(m Mutation) error {
	out, err := b.Get(m.Index)
	if err != nil {
		return err
	}

	switch m.Op {
	case OpOn:
		err = out.On()
	case OpOff:
		err = out.Off()
	case OpToggle:
		err = out.Toggle()
	default:
		return fmt.Errorf("unknown mutation op %d", m.Op)
	}
	if err != nil {
		return deviceFault(m.Index, err)
	}
	return nil
}

// States returns a snapshot of every output state.
func (b *Bank) States() []bool {
	states := make([]bool, len(b.outputs))
	for i, out := range b.outputs {
		states[i] = out.IsOn()
	}
	return states
}

// CountOn returns how many outputs are currently on.
func (b *Bank) CountOn() int {
	n := 0
	for _, out := range b.outputs {
		if out.IsOn() {
			n++
		}
	}
	return n
}

// Close releases outputs that hold hardware resources.
func (b *Bank) Close() error {
	var errs []error
	for i, out := range b.outputs {
		if c, ok := out.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("output %d: %w", i, err))
			}
		}
	}
	return errors.Join(errs...)
}

// closeOutputs releases outputs opened before a later one failed.
func closeOutputs(outputs []Output) error {
	return NewBank(outputs...).Close()
}

func (b *Bank) each(fn func(Output) error) error {
	var errs []error
	for i, out := range b.outputs {
		if err := fn(out); err != nil {
			errs = append(errs, deviceFault(i, err))
		}
	}
	return errors.Join(errs...)
}

func deviceFault(index int, err error) error {
	return NewError(ErrCodeDeviceFault, fmt.Sprintf("output %d", index), err)
}
