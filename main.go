package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/ledpanel/cmd"
	"github.com/smazurov/ledpanel/internal/config"
	"github.com/smazurov/ledpanel/internal/logging"
	"github.com/smazurov/ledpanel/internal/version"
	"github.com/spf13/cobra"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// LED settings
	LedsPins        string `help:"Comma-separated BCM pin numbers, in bank order" default:"4,17,27,22,5,6,13,19,26,21" toml:"leds.pins" env:"LEDS_PINS"`
	LedsDriver      string `help:"LED driver (auto, gpio, sysfs, noop)" default:"auto" toml:"leds.driver" env:"LEDS_DRIVER"`
	LedsSysfsNames  string `help:"Comma-separated /sys/class/leds names for the sysfs driver" default:"" toml:"leds.sysfs_names" env:"LEDS_SYSFS_NAMES"`
	AnimationPeriod string `help:"Step period of paced presets" default:"500ms" toml:"animation.period" env:"ANIMATION_PERIOD"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesMetrics bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"features.metrics_enabled" env:"FEATURES_METRICS"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingLeds   string `help:"LED controller logging level" default:"info" toml:"logging.leds" env:"LOGGING_LEDS"`
	LoggingAPI    string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP   string `help:"HTTP access logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func (o *Options) bankOptions() cmd.BankOptions {
	return cmd.BankOptions{
		Config:          o.Config,
		LedsPins:        o.LedsPins,
		LedsDriver:      o.LedsDriver,
		LedsSysfsNames:  o.LedsSysfsNames,
		AnimationPeriod: o.AnimationPeriod,
	}
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Error("Failed to load config", "error", loadErr)
			os.Exit(1)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"leds": opts.LoggingLeds,
				"api":  opts.LoggingAPI,
				"http": opts.LoggingHTTP,
			},
		})

		a := &app{opts: opts, logger: logging.GetLogger("main")}

		hooks.OnStart(func() {
			if startErr := a.start(); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				a.logger.Error("Failed to start ledpanel", "error", startErr)
				a.stop()
				os.Exit(1)
			}
		})

		hooks.OnStop(a.stop)
	})

	root := cli.Root()
	root.Use = "ledpanel"
	root.Version = version.String()
	root.AddCommand(cmd.CreatePinsCmd(), cmd.CreatePresetCmd(), versionCmd())

	cli.Run()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, _ []string) {
			info := version.Get()
			c.Printf("ledpanel %s\n", info.Version)
			c.Printf("  commit:   %s\n", info.GitCommit)
			c.Printf("  built:    %s\n", info.BuildDate)
			c.Printf("  go:       %s\n", info.GoVersion)
			c.Printf("  platform: %s\n", info.Platform)
		},
	}
}
