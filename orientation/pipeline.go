package orientation

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pipeline turns a raw gravity stream into a deduplicated sequence of
// orientation changes. Samples are classified on one serial worker; changes
// are fanned out to subscribers on one delivery goroutine, so neither
// subscribers nor classification passes ever run concurrently with each
// other.
type Pipeline struct {
	cfg    Config
	sensor MotionSensor // externally owned; nil means use the shared handle

	mu            sync.Mutex
	running       bool
	closed        bool
	token         string
	lastProcessed time.Time
	lastDelivered State
	hasDelivered  bool

	classifier *Classifier
	filter     *GravityFilter
	buffers    *Buffers

	samples chan GravityReading
	deliver chan Transition
	done    chan struct{}
	wg      sync.WaitGroup

	// deliverMu serializes subscriber fan-out; Stop takes it once after
	// deregistering so in-flight deliveries drain before Stop returns.
	deliverMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[string]func(Transition)
}

// NewPipeline creates a pipeline. A nil sensor selects the process-wide
// shared handle; a non-nil sensor is externally owned and the pipeline will
// register for its readings but never start or stop it.
func NewPipeline(cfg Config, sensor MotionSensor) *Pipeline {
	def := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.Bias <= 0 {
		cfg.Bias = def.Bias
	}
	if cfg.HistorySize < 2 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}

	p := &Pipeline{
		cfg:        cfg,
		sensor:     sensor,
		classifier: NewClassifier(cfg.Bias),
		filter:     NewGravityFilter(cfg.FilterTau),
		buffers:    NewBuffers(cfg.HistorySize),
		samples:    make(chan GravityReading, cfg.QueueSize),
		deliver:    make(chan Transition, cfg.QueueSize),
		done:       make(chan struct{}),
		listeners:  make(map[string]func(Transition)),
	}

	p.wg.Add(2)
	go p.classifyWorker()
	go p.deliveryWorker()
	return p
}

// AddListener registers a subscriber for orientation changes and returns a
// token for RemoveListener. Subscribers receive changes in emission order,
// never two identical values in a row, always from the same goroutine.
func (p *Pipeline) AddListener(fn func(Transition)) string {
	token := uuid.NewString()
	p.listenersMu.Lock()
	p.listeners[token] = fn
	p.listenersMu.Unlock()
	return token
}

// RemoveListener deregisters a subscriber.
func (p *Pipeline) RemoveListener(token string) {
	p.listenersMu.Lock()
	delete(p.listeners, token)
	p.listenersMu.Unlock()
}

// Start begins classification. It is a no-op when already running, after
// Close, or when the sensor reports motion sensing unavailable.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.closed {
		return
	}

	if p.sensor != nil {
		if !p.sensor.Available() {
			log.Printf("[Orient] Motion sensing unavailable, not starting")
			return
		}
		p.token = p.sensor.AddListener(p.onReading)
	} else {
		token, ok := acquireShared(p.onReading)
		if !ok {
			log.Printf("[Orient] Motion sensing unavailable, not starting")
			return
		}
		p.token = token
	}

	p.running = true
	log.Printf("[Orient] Pipeline started (debounce=%s bias=%.1f)", p.cfg.Debounce, p.cfg.Bias)
}

// Stop halts classification. It is a no-op when already stopped. After Stop
// returns no subscriber callback fires until the next Start. The hardware
// sensor is only stopped when the pipeline holds the last reference to the
// shared handle; an externally supplied sensor is never stopped here.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	token := p.token
	p.token = ""
	p.mu.Unlock()

	if p.sensor != nil {
		p.sensor.RemoveListener(token)
	} else {
		releaseShared(token)
	}

	// Fence against an in-flight fan-out: once the delivery lock is ours,
	// every later fan-out observes running == false and drops its value.
	p.deliverMu.Lock()
	p.deliverMu.Unlock()

	log.Printf("[Orient] Pipeline stopped")
}

// Close stops the pipeline and shuts down its workers. The pipeline cannot
// be restarted afterwards. Safe to call more than once.
func (p *Pipeline) Close() {
	p.Stop()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()
}

// Running reports whether the pipeline is started.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Current returns the last published orientation.
func (p *Pipeline) Current() (State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastDelivered, p.hasDelivered
}

// Buffers exposes bounded sample and transition history.
func (p *Pipeline) Buffers() *Buffers { return p.buffers }

// Stats returns a snapshot of pipeline state.
func (p *Pipeline) Stats() map[string]interface{} {
	p.mu.Lock()
	stats := map[string]interface{}{
		"running":         p.running,
		"debounce_ms":     p.cfg.Debounce.Milliseconds(),
		"bias":            p.cfg.Bias,
		"has_orientation": p.hasDelivered,
	}
	if p.hasDelivered {
		stats["orientation"] = p.lastDelivered.String()
	}
	p.mu.Unlock()

	stats["buffers"] = p.buffers.Stats()
	return stats
}

// onReading is invoked by the sensor for every raw sample. It enqueues the
// reading for the worker; when the queue is full the sample is dropped, the
// next one carries fresher data anyway.
func (p *Pipeline) onReading(r GravityReading) {
	select {
	case p.samples <- r:
	case <-p.done:
	default:
	}
}

func (p *Pipeline) classifyWorker() {
	defer p.wg.Done()
	for {
		select {
		case r := <-p.samples:
			p.process(r)
		case <-p.done:
			return
		}
	}
}

// process runs one classification pass. The pipeline mutex is held for the
// whole pass so Stop serializes against it.
func (p *Pipeline) process(r GravityReading) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
		r.Timestamp = ts
	}

	// Debounce: coalesce bursts into one classification per window.
	if !p.lastProcessed.IsZero() && ts.Sub(p.lastProcessed) < p.cfg.Debounce {
		return
	}
	p.lastProcessed = ts

	r = p.filter.Update(r)
	p.buffers.PushSample(r)

	state, ok := p.classifier.Classify(r.PlaneVector())
	if !ok {
		// Quadrants cover the whole plane apart from the origin; reaching
		// this with a real gravity vector means something upstream is off.
		log.Printf("[Orient] No quadrant claimed sample (%.3f, %.3f), skipping", r.X, r.Y)
		return
	}

	// Duplicate suppression is independent of classifier hysteresis state.
	if p.hasDelivered && state == p.lastDelivered {
		return
	}
	p.lastDelivered = state
	p.hasDelivered = true

	tr := Transition{
		Timestamp: ts,
		State:     state,
		StateName: state.String(),
		Vector:    r.PlaneVector(),
	}
	p.buffers.PushTransition(tr)

	select {
	case p.deliver <- tr:
	default:
		log.Printf("[Orient] Delivery queue full, dropping %s", state)
	}
}

func (p *Pipeline) deliveryWorker() {
	defer p.wg.Done()
	for {
		select {
		case tr := <-p.deliver:
			p.fanout(tr)
		case <-p.done:
			return
		}
	}
}

func (p *Pipeline) fanout(tr Transition) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return
	}

	p.listenersMu.RLock()
	fns := make([]func(Transition), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(tr)
	}
}
