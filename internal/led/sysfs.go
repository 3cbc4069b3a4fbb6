package led

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Output using the Linux sysfs LED interface.
type sysfs struct {
	name           string
	brightnessPath string
	on             atomic.Bool
}

// newSysfs takes manual control of the named LED under root.
// The trigger is set to "none" so the kernel stops driving it.
func newSysfs(root, name string) (*sysfs, error) {
	ledPath := filepath.Join(root, name)

	// Check if LED exists
	if _, err := os.Stat(ledPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("LED %q not found at %s", name, ledPath)
	}

	triggerPath := filepath.Join(ledPath, "trigger")
	if err := os.WriteFile(triggerPath, []byte("none"), 0644); err != nil {
		return nil, fmt.Errorf("failed to set LED trigger to none: %w", err)
	}

	s := &sysfs{
		name:           name,
		brightnessPath: filepath.Join(ledPath, "brightness"),
	}

	data, err := os.ReadFile(s.brightnessPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read LED brightness: %w", err)
	}
	s.on.Store(strings.TrimSpace(string(data)) != "0")

	return s, nil
}

// On sets brightness to 1
func (s *sysfs) On() error {
	return s.write(true)
}

// Off sets brightness to 0
func (s *sysfs) Off() error {
	return s.write(false)
}

// Toggle inverts the last written brightness
func (s *sysfs) Toggle() error {
	return s.write(!s.on.Load())
}

// IsOn returns the last written state
func (s *sysfs) IsOn() bool {
	return s.on.Load()
}

// Close leaves the LED off. The trigger stays "none".
func (s *sysfs) Close() error {
	return s.write(false)
}

func (s *sysfs) write(on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	if err := os.WriteFile(s.brightnessPath, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to set LED %s brightness: %w", s.name, err)
	}
	s.on.Store(on)
	return nil
}
