package remote

import (
	"crypto/tls"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"orientd/orientation"
)

// Sensor is a MotionSensor fed by gravity readings arriving over MQTT.
// Start connects to the broker and subscribes to the gravity topic;
// registered listeners then receive every parsed reading.
type Sensor struct {
	config Config
	stats  *Statistics

	mu        sync.Mutex
	client    mqtt.Client
	started   bool
	listeners map[string]func(orientation.GravityReading)
	done      chan struct{}
}

func NewSensor(config Config) *Sensor {
	return &Sensor{
		config:    config,
		stats:     NewStatistics(),
		listeners: make(map[string]func(orientation.GravityReading)),
	}
}

// Available reports whether the sensor is configured with a broker.
func (s *Sensor) Available() bool {
	return s.config.Broker != "" && s.config.GravityTopic != ""
}

// Start connects to the broker and begins delivering readings.
func (s *Sensor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	log.Printf("[Remote] Starting gravity receiver...")
	log.Printf("[Remote] Config: Broker=%s:%d Topic=%s", s.config.Broker, s.config.Port, s.config.GravityTopic)

	client, err := connect(s.config, "recv", s.onConnect, s.onConnectionLost)
	if err != nil {
		return err
	}

	s.client = client
	s.started = true
	s.done = make(chan struct{})
	go s.statsReporter(s.done)

	log.Printf("[Remote] Gravity receiver started")
	return nil
}

// Stop unsubscribes and disconnects. Listener registrations survive.
func (s *Sensor) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.done)
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Unsubscribe(s.config.GravityTopic)
		client.Disconnect(1000)
	}

	snap := s.stats.GetSnapshot()
	log.Printf("[Remote] Gravity receiver stopped - %d messages received", snap["messages_received"])
}

// AddListener registers fn and returns a removal token.
func (s *Sensor) AddListener(fn func(orientation.GravityReading)) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.listeners[token] = fn
	s.mu.Unlock()
	return token
}

// RemoveListener deregisters a listener.
func (s *Sensor) RemoveListener(token string) {
	s.mu.Lock()
	delete(s.listeners, token)
	s.mu.Unlock()
}

// Stats returns the receiver counters.
func (s *Sensor) Stats() *Statistics { return s.stats }

// IsConnected reports broker connectivity.
func (s *Sensor) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.client.IsConnected()
}

func (s *Sensor) onConnect(client mqtt.Client) {
	log.Printf("[MQTT] Connected successfully")

	token := client.Subscribe(s.config.GravityTopic, s.config.QoS, s.onMessage)
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("[MQTT] Subscribe timeout for %s", s.config.GravityTopic)
		return
	}
	if token.Error() != nil {
		log.Printf("[MQTT] Subscribe error: %v", token.Error())
		return
	}

	log.Printf("[MQTT] Subscribed to %s", s.config.GravityTopic)
}

func (s *Sensor) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] Connection lost: %v (will auto-reconnect)", err)
}

func (s *Sensor) onMessage(client mqtt.Client, msg mqtt.Message) {
	reading, ok := parseReading(msg.Payload())
	s.stats.RecordMessage(msg.Topic(), ok)
	if !ok {
		return
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	fns := make([]func(orientation.GravityReading), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(reading)
	}
}

func (s *Sensor) statsReporter(done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := s.stats.GetSnapshot()
			log.Printf("[Remote] Stats: %d msgs, %.1f msg/s, %.1f%% parsed",
				snap["messages_received"],
				snap["messages_per_sec"],
				snap["success_rate"])
		case <-done:
			return
		}
	}
}

// connect builds a configured MQTT client and waits for the connection.
func connect(cfg Config, role string, onConnect mqtt.OnConnectHandler, onLost mqtt.ConnectionLostHandler) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()

	protocol := "tcp"
	if cfg.UseTLS {
		protocol = "tls"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", protocol, cfg.Broker, cfg.Port))
	opts.SetClientID(fmt.Sprintf("%s-%s-%s", cfg.DeviceID, role, uuid.NewString()[:8]))

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: cfg.InsecureSkipTLS})
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	if onConnect != nil {
		opts.OnConnect = onConnect
	}
	if onLost != nil {
		opts.OnConnectionLost = onLost
	}

	client := mqtt.NewClient(opts)

	log.Printf("[MQTT] Connecting to %s://%s:%d...", protocol, cfg.Broker, cfg.Port)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("MQTT connect timeout")
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect failed: %w", token.Error())
	}
	return client, nil
}
