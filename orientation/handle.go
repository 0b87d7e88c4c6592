package orientation

import (
	"fmt"
	"log"
	"sync"
)

// Process-wide default sensor handle. Pipelines constructed without their
// own sensor share it: the hardware is started when the reference count
// goes 0 to 1 and stopped when it returns to 0. One lock guards the count,
// the handle, and the start/stop calls as a single critical section.
var shared struct {
	mu     sync.Mutex
	sensor MotionSensor
	refs   int
}

// SetDefaultSensor installs the shared sensor handle used by pipelines that
// were not given one. It fails while any pipeline still holds a reference.
func SetDefaultSensor(s MotionSensor) error {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.refs > 0 {
		return fmt.Errorf("orientation: default sensor busy (%d active references)", shared.refs)
	}
	shared.sensor = s
	return nil
}

// acquireShared registers fn with the shared handle and starts the hardware
// on the first reference. Returns ok=false when no usable sensor exists,
// which callers treat as a silent no-op.
func acquireShared(fn func(GravityReading)) (string, bool) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.sensor == nil || !shared.sensor.Available() {
		return "", false
	}

	token := shared.sensor.AddListener(fn)
	shared.refs++
	if shared.refs == 1 {
		if err := shared.sensor.Start(); err != nil {
			log.Printf("[Orient] Shared sensor failed to start: %v", err)
			shared.sensor.RemoveListener(token)
			shared.refs--
			return "", false
		}
	}
	return token, true
}

// releaseShared deregisters a listener and stops the hardware when the last
// reference is dropped. Deregistration happens inside the critical section,
// so no reading is delivered to fn after releaseShared returns.
func releaseShared(token string) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.sensor == nil {
		return
	}
	shared.sensor.RemoveListener(token)
	shared.refs--
	if shared.refs == 0 {
		shared.sensor.Stop()
	}
}

// sharedRefs is exposed for lifecycle tests.
func sharedRefs() int {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.refs
}
