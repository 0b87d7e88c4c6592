package orientation

import (
	"time"
)

// State is a discrete device orientation.
type State int

const (
	Portrait State = iota
	PortraitUpsideDown
	LandscapeLeft
	LandscapeRight
)

var stateNames = map[State]string{
	Portrait:           "portrait",
	PortraitUpsideDown: "portrait_upside_down",
	LandscapeLeft:      "landscape_left",
	LandscapeRight:     "landscape_right",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Vector returns the canonical unit vector for the state, in the screen
// plane: x grows to the device's right, y grows downward-to-up such that
// gravity in upright portrait reads (0, -1).
func (s State) Vector() Vector {
	switch s {
	case Portrait:
		return Vector{0, -1}
	case PortraitUpsideDown:
		return Vector{0, 1}
	case LandscapeRight:
		return Vector{-1, 0}
	default:
		return Vector{1, 0}
	}
}

// IsLandscape reports whether the state belongs to the landscape family.
func (s State) IsLandscape() bool {
	return s == LandscapeLeft || s == LandscapeRight
}

// Vector is a gravity reading projected onto the screen plane, with
// components roughly in [-1, 1].
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GravityReading is one raw 3-axis sample from a motion sensor, in g.
type GravityReading struct {
	Timestamp time.Time `json:"ts"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
}

// PlaneVector projects the reading onto the screen plane.
func (g GravityReading) PlaneVector() Vector {
	return Vector{X: g.X, Y: g.Y}
}

// Transition records one published orientation change.
type Transition struct {
	Timestamp time.Time `json:"ts"`
	State     State     `json:"-"`
	StateName string    `json:"state"`
	Vector    Vector    `json:"vector"`
}

// MotionSensor is the external collaborator that produces gravity readings.
// Implementations push readings to every registered listener at roughly
// fixed intervals while started.
type MotionSensor interface {
	// Available reports whether motion sensing can be started at all.
	Available() bool

	// Start begins hardware sampling. Listeners registered before or after
	// Start receive readings until Stop.
	Start() error

	// Stop halts hardware sampling. Listener registrations survive a Stop.
	Stop()

	// AddListener registers fn and returns a token for RemoveListener.
	AddListener(fn func(GravityReading)) string

	// RemoveListener deregisters the listener. After it returns, fn is
	// never invoked again.
	RemoveListener(token string)
}

// Config holds pipeline tuning.
type Config struct {
	// Debounce is the minimum spacing between processed samples; readings
	// arriving inside the window are coalesced into the next one.
	Debounce time.Duration

	// Bias multiplies the distance to a candidate whose orientation family
	// is opposite to the previously published state.
	Bias float64

	// HistorySize bounds the retained sample and transition history.
	HistorySize int

	// QueueSize bounds the raw sample queue feeding the worker.
	QueueSize int

	// FilterTau is the gravity low-pass time constant in seconds; zero
	// disables filtering.
	FilterTau float64
}

func DefaultConfig() Config {
	return Config{
		Debounce:    100 * time.Millisecond,
		Bias:        4.0,
		HistorySize: 128,
		QueueSize:   64,
		FilterTau:   0.2,
	}
}
