// Package cmd holds the ledpanel subcommands.
package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/ledpanel/internal/config"
	"github.com/smazurov/ledpanel/internal/led"
	"github.com/spf13/cobra"
)

// Defaults shared by the server and the subcommands.
const (
	DefaultPins   = "4,17,27,22,5,6,13,19,26,21"
	DefaultPeriod = "500ms"
)

// BankOptions are the LED settings every command needs. Field names match
// the server flags so config.LoadConfig applies the same precedence.
type BankOptions struct {
	Config          string
	LedsPins        string `toml:"leds.pins" env:"LEDS_PINS"`
	LedsDriver      string `toml:"leds.driver" env:"LEDS_DRIVER"`
	LedsSysfsNames  string `toml:"leds.sysfs_names" env:"LEDS_SYSFS_NAMES"`
	AnimationPeriod string `toml:"animation.period" env:"ANIMATION_PERIOD"`
}

// BankConfig validates the options and converts them for led.New.
func (o BankOptions) BankConfig(logger *slog.Logger) (led.BankConfig, error) {
	cfg := led.BankConfig{
		Driver:     o.LedsDriver,
		SysfsNames: config.SplitList(o.LedsSysfsNames),
		Logger:     logger,
	}

	if cfg.Driver == led.DriverSysfs {
		if len(cfg.SysfsNames) == 0 {
			return cfg, fmt.Errorf("sysfs driver needs at least one LED name")
		}
		return cfg, nil
	}

	pins, err := config.ParsePins(o.LedsPins)
	if err != nil {
		return cfg, err
	}
	cfg.Pins = pins
	return cfg, nil
}

// Period parses the animation period.
func (o BankOptions) Period() (time.Duration, error) {
	d, err := time.ParseDuration(o.AnimationPeriod)
	if err != nil {
		return 0, fmt.Errorf("invalid animation period %q: %w", o.AnimationPeriod, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("animation period must be positive, got %s", d)
	}
	return d, nil
}

func addBankFlags(cmd *cobra.Command, opts *BankOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.Config, "config", "c", "config.toml", "Path to configuration file")
	f.StringVar(&opts.LedsPins, "leds-pins", DefaultPins, "Comma-separated BCM pin numbers, in bank order")
	f.StringVar(&opts.LedsDriver, "leds-driver", led.DriverAuto, "LED driver (auto, gpio, sysfs, noop)")
	f.StringVar(&opts.LedsSysfsNames, "leds-sysfs-names", "", "Comma-separated /sys/class/leds names for the sysfs driver")
	f.StringVar(&opts.AnimationPeriod, "animation-period", DefaultPeriod, "Step period of paced presets")
}
