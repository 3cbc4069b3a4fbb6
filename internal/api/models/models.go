package models

import "github.com/smazurov/ledpanel/internal/logging"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"v1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// LED models
type LEDState struct {
	Index int  `json:"index" example:"0" doc:"LED index in the bank"`
	On    bool `json:"on" example:"true" doc:"Whether the LED is lit"`
}

type BankData struct {
	LEDs      []LEDState `json:"leds" doc:"Every LED in index order"`
	Count     int        `json:"count" example:"10" doc:"Number of LEDs"`
	LitCount  int        `json:"lit_count" example:"2" doc:"Number of LEDs currently on"`
	State     string     `json:"state" example:"running" enum:"idle,running,stopping" doc:"Animation controller state"`
	Preset    string     `json:"preset,omitempty" example:"pong" doc:"Active preset, if any"`
	StartedAt string     `json:"started_at,omitempty" example:"2025-01-27T10:30:00Z" doc:"When the active preset started"`
	LastError string     `json:"last_error,omitempty" doc:"Last fault reported by a preset worker"`
}

type BankResponse struct {
	Body BankData
}

type LEDsOnBody struct {
	Preset string `json:"preset,omitempty" required:"false" example:"pong" doc:"Preset to start; omit to switch every LED on"`
}

// LEDsOnRequest takes an optional body; a missing body means plain all-on.
type LEDsOnRequest struct {
	Body *LEDsOnBody
}

type ToggleRequest struct {
	Index int `path:"index" example:"3" doc:"LED index in the bank"`
}

type ToggleData struct {
	Index   int    `json:"index" example:"3" doc:"LED index in the bank"`
	On      bool   `json:"on" example:"true" doc:"New LED state"`
	Message string `json:"message" example:"LED on" doc:"Result message"`
}

type ToggleResponse struct {
	Body ToggleData
}

type MessageData struct {
	Message string `json:"message" example:"All LEDs off" doc:"Result message"`
	Preset  string `json:"preset,omitempty" example:"pong" doc:"Preset started by the request"`
}

type MessageResponse struct {
	Body MessageData
}

// Preset models
type PresetsData struct {
	Presets  []string `json:"presets" doc:"Available presets"`
	Active   string   `json:"active,omitempty" example:"pong" doc:"Running preset, if any"`
	PeriodMs int64    `json:"period_ms" example:"500" doc:"Step period of paced presets in milliseconds"`
}

type PresetsResponse struct {
	Body PresetsData
}

// Log models
type LogsRequest struct {
	Limit  int    `query:"limit" default:"100" minimum:"0" maximum:"1000" doc:"Maximum number of entries; 0 returns all"`
	Module string `query:"module" doc:"Only return entries from this module"`
}

type LogsData struct {
	Entries []logging.Entry `json:"entries" doc:"Log entries, oldest first"`
	Count   int             `json:"count" example:"42" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
