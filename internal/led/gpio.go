package led

import (
	"errors"
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// gpioOutput implements Output on a periph.io GPIO pin driven push-pull.
type gpioOutput struct {
	pin gpio.PinIO
	on  atomic.Bool
}

// newGPIOOutput configures pin as an output, initially low.
func newGPIOOutput(pin gpio.PinIO) (*gpioOutput, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to configure %s as output: %w", pin, err)
	}
	return &gpioOutput{pin: pin}, nil
}

// openGPIOPins initialises the host drivers and opens every BCM pin number.
func openGPIOPins(pins []int) ([]Output, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise GPIO host: %w", err)
	}
	return openPins(pins, gpioreg.ByName)
}

// openPins opens pins through lookup. On failure the pins opened so far are
// driven low and released.
func openPins(pins []int, lookup func(name string) gpio.PinIO) ([]Output, error) {
	outputs := make([]Output, 0, len(pins))
	for _, n := range pins {
		name := fmt.Sprintf("GPIO%d", n)
		pin := lookup(name)
		if pin == nil {
			return nil, errors.Join(fmt.Errorf("GPIO pin %s not found", name), closeOutputs(outputs))
		}
		out, err := newGPIOOutput(pin)
		if err != nil {
			return nil, errors.Join(err, closeOutputs(outputs))
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// On drives the pin high
func (g *gpioOutput) On() error {
	return g.write(true)
}

// Off drives the pin low
func (g *gpioOutput) Off() error {
	return g.write(false)
}

// Toggle inverts the last driven level
func (g *gpioOutput) Toggle() error {
	return g.write(!g.on.Load())
}

// IsOn returns the last driven level
func (g *gpioOutput) IsOn() bool {
	return g.on.Load()
}

// Close drives the pin low and releases it.
func (g *gpioOutput) Close() error {
	if err := g.write(false); err != nil {
		return err
	}
	return g.pin.Halt()
}

func (g *gpioOutput) write(on bool) error {
	if err := g.pin.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("%s: %w", g.pin, err)
	}
	g.on.Store(on)
	return nil
}
