package orientation

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimulatedSensor is a MotionSensor backed by a scripted gravity source.
// In rotation mode it sweeps the gravity vector around the screen plane at
// a fixed rate, which exercises every orientation in order; readings can
// also be injected manually with Emit.
type SimulatedSensor struct {
	interval time.Duration
	period   time.Duration // full rotation time; zero disables the sweep

	mu        sync.Mutex
	running   bool
	listeners map[string]func(GravityReading)
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewSimulatedSensor creates a sensor that emits every interval. When
// period is nonzero the gravity vector completes one full rotation per
// period, starting upright.
func NewSimulatedSensor(interval, period time.Duration) *SimulatedSensor {
	return &SimulatedSensor{
		interval:  interval,
		period:    period,
		listeners: make(map[string]func(GravityReading)),
	}
}

// Available always reports true.
func (s *SimulatedSensor) Available() bool { return true }

// Start begins the sweep goroutine. No-op without a rotation period;
// manual Emit still works either way.
func (s *SimulatedSensor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.done = make(chan struct{})

	if s.period > 0 {
		s.wg.Add(1)
		go s.sweep(s.done)
	}
	log.Printf("[Sim] Sensor started (interval=%s period=%s)", s.interval, s.period)
	return nil
}

// Stop halts the sweep.
func (s *SimulatedSensor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	log.Printf("[Sim] Sensor stopped")
}

// Running reports whether the sensor is started.
func (s *SimulatedSensor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// AddListener registers fn for readings.
func (s *SimulatedSensor) AddListener(fn func(GravityReading)) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.listeners[token] = fn
	s.mu.Unlock()
	return token
}

// RemoveListener deregisters a listener.
func (s *SimulatedSensor) RemoveListener(token string) {
	s.mu.Lock()
	delete(s.listeners, token)
	s.mu.Unlock()
}

// Emit pushes a reading to all listeners from the caller's goroutine.
func (s *SimulatedSensor) Emit(r GravityReading) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	s.mu.Lock()
	fns := make([]func(GravityReading), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(r)
	}
}

func (s *SimulatedSensor) sweep(done chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case now := <-ticker.C:
			// Angle 0 is upright portrait, gravity (0, -1); sweep counter
			// clockwise through landscape left, upside down, landscape right.
			frac := float64(now.Sub(start)%s.period) / float64(s.period)
			angle := frac * 2 * math.Pi
			s.Emit(GravityReading{
				Timestamp: now,
				X:         math.Sin(angle),
				Y:         -math.Cos(angle),
				Z:         0,
			})
		case <-done:
			return
		}
	}
}
