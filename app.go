package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/ledpanel/internal/api"
	"github.com/smazurov/ledpanel/internal/events"
	"github.com/smazurov/ledpanel/internal/led"
	"github.com/smazurov/ledpanel/internal/logging"
	"github.com/smazurov/ledpanel/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// app owns the server's components. Hardware is only opened in start, so
// subcommands sharing the root flags never touch the pins.
type app struct {
	opts   *Options
	logger *slog.Logger

	mu         sync.Mutex
	bank       *led.Bank
	controller *led.Controller
	server     *api.Server
	unwatch    func()
}

// start builds the LED stack and serves HTTP until stop is called.
func (a *app) start() error {
	server, err := a.build()
	if err != nil {
		return err
	}

	a.logger.Info("Starting HTTP server", "port", a.opts.Port)
	return server.Start(a.opts.Port)
}

func (a *app) build() (*api.Server, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ledLogger := logging.GetLogger("leds")

	bankOpts := a.opts.bankOptions()
	bankConfig, err := bankOpts.BankConfig(ledLogger)
	if err != nil {
		return nil, err
	}
	period, err := bankOpts.Period()
	if err != nil {
		return nil, err
	}

	bank, err := led.New(bankConfig)
	if err != nil {
		return nil, err
	}
	a.bank = bank

	// Create event bus for in-process event handling
	eventBus := events.New()

	ledOpts := led.Options{
		Period:   period,
		Logger:   ledLogger,
		EventBus: eventBus,
	}

	var recorder *metrics.Recorder
	if a.opts.FeaturesMetrics {
		recorder = metrics.New(bank)
		a.unwatch = recorder.Watch(eventBus)
		ledOpts.Observer = recorder
	}

	a.controller = led.NewController(bank, ledOpts)

	apiOpts := &api.Options{
		AuthUsername: a.opts.AuthUsername,
		AuthPassword: a.opts.AuthPassword,
		LEDs:         a.controller,
		EventBus:     eventBus,
	}
	if recorder != nil {
		apiOpts.MetricsHandler = recorder.Handler()
	}

	a.server = api.NewServer(apiOpts)
	a.logger.Info("LED panel ready", "leds", bank.Len(), "period", period, "metrics", recorder != nil)
	return a.server, nil
}

// stop closes the HTTP server, halts any preset, leaves every LED off and
// releases the outputs. Safe to call more than once.
func (a *app) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("Shutting down server")

	if a.server != nil {
		if err := a.server.Stop(); err != nil {
			a.logger.Error("Error stopping HTTP server", "error", err)
		}
		a.server = nil
	}

	if a.controller != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.controller.Close(ctx); err != nil {
			a.logger.Error("Failed to switch LEDs off", "error", err)
		}
		a.controller = nil
	}

	if a.bank != nil {
		if err := a.bank.Close(); err != nil {
			a.logger.Error("Failed to release LED outputs", "error", err)
		}
		a.bank = nil
	}

	if a.unwatch != nil {
		a.unwatch()
		a.unwatch = nil
	}
}
