package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/smazurov/ledpanel/internal/config"
	"github.com/smazurov/ledpanel/internal/led"
	"github.com/smazurov/ledpanel/internal/logging"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// CreatePresetCmd creates the preset command.
func CreatePresetCmd() *cobra.Command {
	var opts BankOptions
	var duration time.Duration

	cmd := &cobra.Command{
		Use:       "preset <name>",
		Short:     "Run an animation preset in the foreground",
		Long:      `Runs one preset on the configured LED bank until interrupted (or until --duration elapses), then switches every LED off.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: led.Patterns(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadConfig(&opts, cmd); err != nil {
				return err
			}
			logging.Initialize(config.LoadLoggingConfig(opts.Config))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runPreset(ctx, opts, args[0], duration)
		},
	}

	addBankFlags(cmd, &opts)
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}

func runPreset(ctx context.Context, opts BankOptions, name string, duration time.Duration) (err error) {
	logger := logging.GetLogger("leds")

	pattern, err := led.ParsePattern(name)
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(led.Patterns(), ", "))
	}

	cfg, err := opts.BankConfig(logger)
	if err != nil {
		return err
	}
	period, err := opts.Period()
	if err != nil {
		return err
	}

	bank, err := led.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, bank.Close())
	}()

	controller := led.NewController(bank, led.Options{Period: period, Logger: logger})
	if err := controller.Start(pattern); err != nil {
		return err
	}

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	<-ctx.Done()

	logger.Info("Stopping preset", "preset", pattern)
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := controller.Close(closeCtx); err != nil {
		return err
	}
	if last := controller.Status().LastError; last != nil {
		return fmt.Errorf("preset %s failed: %w", pattern, last)
	}
	return nil
}
