package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/claybath/density_meter/internal/config"
	"github.com/claybath/density_meter/internal/core"
)

// Telemetry publishes instrument state over MQTT: a retained status
// message on a fixed cadence plus one message per recorded measurement.
type Telemetry struct {
	client       mqtt.Client
	statusTopic  string
	measureTopic string

	measurements chan core.Measurement
}

// NewTelemetry connects to the broker. The returned Telemetry's Hook must
// be registered with the controller before Run is started.
func NewTelemetry(cfg *config.Config) (*Telemetry, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		log.Printf("telemetry: connected to %s", cfg.MQTTBroker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("telemetry: connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connecting to %s: %w", cfg.MQTTBroker, token.Error())
	}

	return &Telemetry{
		client:       client,
		statusTopic:  cfg.TopicStatus,
		measureTopic: cfg.TopicMeasurement,
		// A few cycles of headroom; the broker being down must never
		// stall the control loop.
		measurements: make(chan core.Measurement, 16),
	}, nil
}

// Hook is the controller measurement callback. It never blocks: when the
// channel is full the measurement is dropped from telemetry (it is still
// on disk).
func (t *Telemetry) Hook(m core.Measurement) {
	select {
	case t.measurements <- m:
	default:
		log.Println("telemetry: measurement queue full, dropping")
	}
}

// Run publishes until the process exits.
func (t *Telemetry) Run(src StatusSource) {
	cfg := config.Get()
	ticker := time.NewTicker(time.Duration(cfg.StatusPublishInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.publish(t.statusTopic, src.Status(), true)
		case m := <-t.measurements:
			t.publish(t.measureTopic, m, false)
		}
	}
}

func (t *Telemetry) publish(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("telemetry: marshaling %s: %v", topic, err)
		return
	}
	token := t.client.Publish(topic, 0, retained, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("telemetry: publishing to %s: %v", topic, token.Error())
		}
	}()
}
