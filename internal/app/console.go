// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/claybath/density_meter/internal/config"
	"github.com/claybath/density_meter/internal/core"
)

// RunConsole subscribes to the instrument's MQTT topics and prints a
// line-oriented view of what the instrument is doing. Used for watching a
// deployed unit from a workstation.
func RunConsole() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: MQTT_BROKER is not configured")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole).
		SetAutoReconnect(true)

	opts.OnConnect = func(c mqtt.Client) {
		log.Printf("console: connected to %s", cfg.MQTTBroker)

		if token := c.Subscribe(cfg.TopicStatus, 0, printStatus); token.Wait() && token.Error() != nil {
			log.Printf("console: subscribing to %s: %v", cfg.TopicStatus, token.Error())
		}
		if token := c.Subscribe(cfg.TopicMeasurement, 0, printMeasurement); token.Wait() && token.Error() != nil {
			log.Printf("console: subscribing to %s: %v", cfg.TopicMeasurement, token.Error())
		}
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("console: connecting to %s: %w", cfg.MQTTBroker, token.Error())
	}
	defer client.Disconnect(250)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
	return nil
}

func printStatus(_ mqtt.Client, msg mqtt.Message) {
	var st core.Status
	if err := json.Unmarshal(msg.Payload(), &st); err != nil {
		log.Printf("console: bad status payload: %v", err)
		return
	}

	next := "none"
	if st.NextAutoTime != 0 {
		next = time.Unix(st.NextAutoTime, 0).Format("15:04:05")
	}
	fmt.Printf("[%s] phase=%-9s angle=%7.2f density=%.4f target=%.3f next=%s\n",
		time.Unix(st.Now, 0).Format("15:04:05"),
		st.Phase, st.CurrentAngle, st.CurrentDensity, st.DesiredDensity, next)
}

func printMeasurement(_ mqtt.Client, msg mqtt.Message) {
	var m core.Measurement
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		log.Printf("console: bad measurement payload: %v", err)
		return
	}
	fmt.Printf("[%s] MEASUREMENT density=%.4f angle=%.2f\n",
		time.Unix(m.Time, 0).Format("15:04:05"), m.Density, m.Angle)
}
