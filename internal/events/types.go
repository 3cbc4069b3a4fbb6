package events

// Event type constants for kelindar/event.
const (
	TypeAnimationStateChanged uint32 = iota + 1
	TypeLEDChanged
	TypeBankChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// AnimationStateChangedEvent is published whenever the preset worker starts,
// is asked to stop, or has fully exited.
type AnimationStateChangedEvent struct {
	State     string `json:"state" example:"running" doc:"Controller state: idle, running, stopping"`
	Preset    string `json:"preset,omitempty" example:"pong" doc:"Preset the state refers to"`
	Error     string `json:"error,omitempty" doc:"Fault that terminated the worker, if any"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AnimationStateChangedEvent.
func (e AnimationStateChangedEvent) Type() uint32 { return TypeAnimationStateChanged }

// LEDChangedEvent represents a manual change of a single LED.
type LEDChangedEvent struct {
	Index     int    `json:"index" example:"3" doc:"LED index in the bank"`
	On        bool   `json:"on" example:"true" doc:"New LED state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LEDChangedEvent.
func (e LEDChangedEvent) Type() uint32 { return TypeLEDChanged }

// BankChangedEvent represents a manual change applied to every LED at once.
type BankChangedEvent struct {
	On        bool   `json:"on" example:"false" doc:"State every LED was set to"`
	Count     int    `json:"count" example:"10" doc:"Number of LEDs in the bank"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BankChangedEvent.
func (e BankChangedEvent) Type() uint32 { return TypeBankChanged }
