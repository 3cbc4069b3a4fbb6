package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/ledpanel/internal/api/models"
	"github.com/smazurov/ledpanel/internal/led"
)

// LEDService is the part of led.Controller the HTTP handlers use.
type LEDService interface {
	StartPattern(name string) error
	StopAll() error
	AllOn(ctx context.Context) error
	ToggleOne(ctx context.Context, index int) (bool, error)
	States() []bool
	Status() led.Status
	Period() time.Duration
}

func (s *Server) registerLEDRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "Get LEDs",
		Description: "Get the state of every LED and of the animation controller",
		Tags:        []string{"leds"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.BankResponse, error) {
		return &models.BankResponse{Body: s.bankData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "leds-on",
		Method:      http.MethodPost,
		Path:        "/api/leds/on",
		Summary:     "Switch LEDs on",
		Description: "Without a preset, stop any animation and switch every LED on. " +
			"With a preset, replace any running animation with that preset.",
		Tags:     []string{"leds"},
		Security: withAuth(),
		Errors:   []int{400, 401, 500},
	}, func(ctx context.Context, input *models.LEDsOnRequest) (*models.MessageResponse, error) {
		var preset string
		if input.Body != nil {
			preset = input.Body.Preset
		}
		if preset == "" {
			if err := s.leds.AllOn(ctx); err != nil {
				return nil, s.mapLEDError(err)
			}
			return &models.MessageResponse{Body: models.MessageData{Message: "All LEDs on"}}, nil
		}

		if err := s.leds.StartPattern(preset); err != nil {
			return nil, s.mapLEDError(err)
		}
		return &models.MessageResponse{
			Body: models.MessageData{
				Message: fmt.Sprintf("Preset %s started", preset),
				Preset:  preset,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "leds-off",
		Method:      http.MethodPost,
		Path:        "/api/leds/off",
		Summary:     "Switch LEDs off",
		Description: "Stop any animation and switch every LED off",
		Tags:        []string{"leds"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(_ context.Context, _ *struct{}) (*models.MessageResponse, error) {
		if err := s.leds.StopAll(); err != nil {
			return nil, s.mapLEDError(err)
		}
		return &models.MessageResponse{Body: models.MessageData{Message: "All LEDs off"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "toggle-led",
		Method:      http.MethodPost,
		Path:        "/api/leds/{index}/toggle",
		Summary:     "Toggle LED",
		Description: "Stop any animation and flip a single LED",
		Tags:        []string{"leds"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 500},
	}, func(ctx context.Context, input *models.ToggleRequest) (*models.ToggleResponse, error) {
		on, err := s.leds.ToggleOne(ctx, input.Index)
		if err != nil {
			return nil, s.mapLEDError(err)
		}

		msg := "LED off"
		if on {
			msg = "LED on"
		}
		return &models.ToggleResponse{
			Body: models.ToggleData{Index: input.Index, On: on, Message: msg},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-presets",
		Method:      http.MethodGet,
		Path:        "/api/presets",
		Summary:     "List presets",
		Description: "List the animation presets and the one currently running",
		Tags:        []string{"leds"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.PresetsResponse, error) {
		status := s.leds.Status()
		return &models.PresetsResponse{
			Body: models.PresetsData{
				Presets:  led.Patterns(),
				Active:   string(status.Pattern),
				PeriodMs: s.leds.Period().Milliseconds(),
			},
		}, nil
	})
}

func (s *Server) bankData() models.BankData {
	states := s.leds.States()
	status := s.leds.Status()

	data := models.BankData{
		LEDs:   make([]models.LEDState, len(states)),
		Count:  len(states),
		State:  string(status.State),
		Preset: string(status.Pattern),
	}
	for i, on := range states {
		data.LEDs[i] = models.LEDState{Index: i, On: on}
		if on {
			data.LitCount++
		}
	}
	if !status.StartedAt.IsZero() && status.State != led.StateIdle {
		data.StartedAt = status.StartedAt.Format(time.RFC3339)
	}
	if status.LastError != nil {
		data.LastError = status.LastError.Error()
	}
	return data
}

// mapLEDError maps domain errors to HTTP errors
func (s *Server) mapLEDError(err error) error {
	var ledErr *led.Error
	if !errors.As(err, &ledErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return huma.Error503ServiceUnavailable("animation did not stop in time", err)
		}
		s.logger.Error("LED operation failed", "error", err)
		return huma.Error500InternalServerError("internal server error", err)
	}

	switch ledErr.Code {
	case led.ErrCodeIndexOutOfRange:
		return huma.Error400BadRequest("No LED found", err)
	case led.ErrCodeInvalidPattern, led.ErrCodeEmptyBank:
		return huma.Error400BadRequest(ledErr.Message, err)
	case led.ErrCodeDeviceFault:
		s.logger.Error("LED device fault", "error", err)
		return huma.Error500InternalServerError("LED device fault", err)
	default:
		return huma.Error500InternalServerError(ledErr.Message, err)
	}
}
