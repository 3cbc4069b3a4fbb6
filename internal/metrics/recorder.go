// Package metrics exposes LED bank and preset activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/ledpanel/internal/events"
)

const namespace = "ledpanel"

// LEDCounter reports how many LEDs are lit.
type LEDCounter interface {
	CountOn() int
}

// Recorder owns a private registry and implements led.Observer.
type Recorder struct {
	registry *prometheus.Registry

	presetStarts  *prometheus.CounterVec
	presetSteps   *prometheus.CounterVec
	presetActive  *prometheus.GaugeVec
	deviceErrors  prometheus.Counter
	manualChanges *prometheus.CounterVec
}

// New creates a recorder. ledsOn is sampled on every scrape; nil skips the gauge.
func New(ledsOn LEDCounter) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	r := &Recorder{
		registry: registry,
		presetStarts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preset_starts_total",
			Help:      "Number of times each preset was started",
		}, []string{"preset"}),
		presetSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preset_steps_total",
			Help:      "Animation steps applied per preset",
		}, []string{"preset"}),
		presetActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "preset_active",
			Help:      "1 while the preset worker is running",
		}, []string{"preset"}),
		deviceErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_errors_total",
			Help:      "Failed writes to LED outputs",
		}),
		manualChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_changes_total",
			Help:      "Manual LED changes by kind (toggle, all_on, all_off)",
		}, []string{"kind"}),
	}

	if ledsOn != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leds_on",
			Help:      "Number of LEDs currently lit",
		}, func() float64 {
			return float64(ledsOn.CountOn())
		})
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PresetStarted implements led.Observer.
func (r *Recorder) PresetStarted(preset string) {
	r.presetStarts.WithLabelValues(preset).Inc()
	r.presetActive.WithLabelValues(preset).Set(1)
}

// PresetStopped implements led.Observer.
func (r *Recorder) PresetStopped(preset string) {
	r.presetActive.WithLabelValues(preset).Set(0)
}

// PresetStepped implements led.Observer.
func (r *Recorder) PresetStepped(preset string) {
	r.presetSteps.WithLabelValues(preset).Inc()
}

// DeviceError implements led.Observer.
func (r *Recorder) DeviceError() {
	r.deviceErrors.Inc()
}

// Watch counts manual changes published on bus until the returned function is called.
func (r *Recorder) Watch(bus *events.Bus) func() {
	if bus == nil {
		return func() {}
	}
	unsubs := []func(){
		bus.Subscribe(func(events.LEDChangedEvent) {
			r.manualChanges.WithLabelValues("toggle").Inc()
		}),
		bus.Subscribe(func(e events.BankChangedEvent) {
			kind := "all_off"
			if e.On {
				kind = "all_on"
			}
			r.manualChanges.WithLabelValues(kind).Inc()
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
