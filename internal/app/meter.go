// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires the instrument together: hardware init, the control
// loop, displays, telemetry and the web interface.
package app

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/claybath/density_meter/internal/clock"
	"github.com/claybath/density_meter/internal/config"
	"github.com/claybath/density_meter/internal/core"
	"github.com/claybath/density_meter/internal/logbuf"
	"github.com/claybath/density_meter/internal/outputs"
	"github.com/claybath/density_meter/internal/sensors"
	"github.com/claybath/density_meter/internal/store"
)

// RunMeter starts the density meter daemon and blocks forever. buf is the
// ring buffer the process log is teed into, exposed via /api/serial.
func RunMeter(buf *logbuf.Buffer) error {
	cfg := config.Get()

	st := store.New(cfg.SettingsPath, cfg.DataDir)
	settings := st.LoadSettings()
	log.Printf("app: settings loaded (target density %.3f, interval %d min)",
		settings.DesiredDensity, settings.MeasurementInterval)

	var (
		bus1, bus2 i2c.BusCloser
		sensor     core.TiltSensor
		acts       Actuators
		rtc        *clock.DS3231
	)

	if cfg.MockSensor {
		log.Println("app: MOCK_SENSOR enabled, running without hardware")
		sensor = sensors.NewMockTilt(11, 2)
		acts = outputs.NewSim()
	} else {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("initializing host drivers: %w", err)
		}

		var err error
		if bus1, err = i2creg.Open(cfg.I2CBus1); err != nil {
			return fmt.Errorf("opening I2C bus %s: %w", cfg.I2CBus1, err)
		}
		defer bus1.Close()
		if bus2, err = i2creg.Open(cfg.I2CBus2); err != nil {
			return fmt.Errorf("opening I2C bus %s: %w", cfg.I2CBus2, err)
		}
		defer bus2.Close()

		if sensor, err = sensors.NewMPU6050(bus1, cfg.SensorI2CAddr); err != nil {
			// Without the tilt sensor there is nothing to measure.
			return fmt.Errorf("initializing tilt sensor: %w", err)
		}

		if acts, err = outputs.NewBoard(cfg.FillValvePin, cfg.EmptyValvePin, cfg.PilotRelayPin); err != nil {
			return fmt.Errorf("initializing outputs: %w", err)
		}

		if rtc, err = clock.NewDS3231(bus2, cfg.RTCI2CAddr); err != nil {
			// The instrument still measures on demand; only the schedule
			// needs a trusted clock.
			log.Printf("app: RTC unavailable: %v", err)
			rtc = nil
		}
	}

	var gps *clock.GPSTime
	if cfg.GPSSerialPort != "" {
		var err error
		if gps, err = clock.StartGPSTime(cfg.GPSSerialPort, cfg.GPSBaudRate); err != nil {
			log.Printf("app: GPS time source unavailable: %v", err)
			gps = nil
		}
	}
	clk := clock.NewService(rtc, gps)
	if !clk.Available() {
		log.Println("app: no trusted time source, automatic measurements disabled until the clock is set")
	}

	ctrl := core.NewController(settings, sensor, acts, acts, clk, st)

	if cfg.MQTTBroker != "" {
		tel, err := NewTelemetry(cfg)
		if err != nil {
			log.Printf("app: %v, continuing without telemetry", err)
		} else {
			ctrl.SetMeasurementHook(tel.Hook)
			go tel.Run(ctrl)
		}
	}

	if !cfg.MockSensor {
		displays := NewDisplays(bus1, bus2, cfg.Display1I2CAddr, cfg.Display2I2CAddr)
		go displays.Run(ctrl)
	}

	srv := NewServer(ctrl, st, clk, acts, buf, cfg.WebRoot)
	go func() {
		if err := srv.Start(cfg.WebListenAddr); err != nil {
			log.Fatalf("app: web server: %v", err)
		}
	}()

	log.Printf("app: control loop running every %d ms", cfg.TickInterval)
	ticker := time.NewTicker(time.Duration(cfg.TickInterval) * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		ctrl.Tick()
	}
	return nil
}
