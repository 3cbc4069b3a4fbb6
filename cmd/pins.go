package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smazurov/ledpanel/internal/config"
	"github.com/smazurov/ledpanel/internal/led"
	"github.com/smazurov/ledpanel/internal/logging"
	"github.com/spf13/cobra"
)

// CreatePinsCmd creates the pins command.
func CreatePinsCmd() *cobra.Command {
	var opts BankOptions

	cmd := &cobra.Command{
		Use:   "pins",
		Short: "Show the configured LED bank",
		Long:  `Prints the board model, the LED driver that would be used and the output behind every bank index. No output is touched.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadConfig(&opts, cmd); err != nil {
				return err
			}
			logging.Initialize(config.LoadLoggingConfig(opts.Config))
			return printPins(cmd.OutOrStdout(), opts)
		},
	}

	addBankFlags(cmd, &opts)
	return cmd
}

func printPins(out io.Writer, opts BankOptions) error {
	logger := logging.GetLogger("leds")

	cfg, err := opts.BankConfig(logger)
	if err != nil {
		return err
	}

	driver, board := led.DetectDriver(logger)
	if cfg.Driver != "" && cfg.Driver != led.DriverAuto {
		driver = cfg.Driver
	}

	fmt.Fprintf(out, "board:  %s\n", board)
	fmt.Fprintf(out, "driver: %s\n\n", driver)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tOUTPUT")
	if driver == led.DriverSysfs {
		for i, name := range cfg.SysfsNames {
			fmt.Fprintf(w, "%d\t%s\n", i, name)
		}
	} else {
		for i, pin := range cfg.Pins {
			fmt.Fprintf(w, "%d\tGPIO%d\n", i, pin)
		}
	}
	return w.Flush()
}
