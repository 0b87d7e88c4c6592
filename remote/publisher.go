package remote

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"orientd/orientation"
)

// Publisher forwards orientation transitions to the outbound MQTT topic so
// other services can react to device rotation.
type Publisher struct {
	config Config

	mu     sync.Mutex
	client mqtt.Client
}

func NewPublisher(config Config) *Publisher {
	return &Publisher{config: config}
}

// Connect establishes the broker connection.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return nil
	}
	client, err := connect(p.config, "pub", nil, nil)
	if err != nil {
		return err
	}
	p.client = client
	log.Printf("[Remote] Orientation publisher connected (topic=%s)", p.config.OrientationTopic)
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(1000)
	}
}

// Publish sends one transition. Dropped silently when not connected; the
// broker client retries connectivity on its own.
func (p *Publisher) Publish(tr orientation.Transition) error {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return fmt.Errorf("publisher not connected")
	}

	payload, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}

	token := client.Publish(p.config.OrientationTopic, p.config.QoS, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish transition: %w", token.Error())
	}
	return nil
}
