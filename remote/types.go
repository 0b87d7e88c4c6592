// Package remote connects the orientation pipeline to devices that report
// gravity readings over MQTT, and publishes classified orientation changes
// back out.
package remote

import (
	"sync"
	"time"
)

// Config holds MQTT connection and topic settings.
type Config struct {
	Broker           string
	Port             int
	Username         string
	Password         string
	GravityTopic     string // inbound raw gravity readings
	OrientationTopic string // outbound orientation transitions
	UseTLS           bool
	InsecureSkipTLS  bool
	DeviceID         string
	QoS              byte
}

func DefaultConfig() Config {
	return Config{
		Broker:           "localhost",
		Port:             1883,
		GravityTopic:     "devices/+/gravity",
		OrientationTopic: "orientd/orientation",
		UseTLS:           false,
		DeviceID:         "orientd",
		QoS:              0,
	}
}

// Statistics tracks receiver performance counters.
type Statistics struct {
	mu               sync.RWMutex
	MessagesReceived int64
	ParseSuccesses   int64
	ParseFailures    int64
	TopicCounts      map[string]int64
	LastUpdate       time.Time
	StartTime        time.Time
}

func NewStatistics() *Statistics {
	return &Statistics{
		TopicCounts: make(map[string]int64),
		StartTime:   time.Now(),
		LastUpdate:  time.Now(),
	}
}

func (s *Statistics) RecordMessage(topic string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.MessagesReceived++
	if success {
		s.ParseSuccesses++
	} else {
		s.ParseFailures++
	}
	s.TopicCounts[topic]++
	s.LastUpdate = time.Now()
}

func (s *Statistics) GetSnapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	successRate := 0.0
	if s.MessagesReceived > 0 {
		successRate = float64(s.ParseSuccesses) / float64(s.MessagesReceived) * 100.0
	}

	uptime := time.Since(s.StartTime)
	msgPerSec := 0.0
	if uptime.Seconds() > 0 {
		msgPerSec = float64(s.MessagesReceived) / uptime.Seconds()
	}

	return map[string]interface{}{
		"messages_received": s.MessagesReceived,
		"parse_successes":   s.ParseSuccesses,
		"parse_failures":    s.ParseFailures,
		"success_rate":      successRate,
		"uptime_seconds":    uptime.Seconds(),
		"messages_per_sec":  msgPerSec,
		"last_update":       s.LastUpdate,
	}
}
