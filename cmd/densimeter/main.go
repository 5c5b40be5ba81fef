// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command densimeter is the claybath density meter daemon: it runs the
// measurement control loop and serves the instrument's web interface.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/claybath/density_meter/internal/app"
	"github.com/claybath/density_meter/internal/config"
	"github.com/claybath/density_meter/internal/logbuf"
)

func main() {
	configPath := flag.String("config", "densimeter.conf", "path to configuration file")
	flag.Parse()

	// Tee the process log into a ring buffer so the web UI can show the
	// recent log without shell access to the instrument.
	buf := logbuf.New(logbuf.DefaultSize)
	log.SetOutput(io.MultiWriter(os.Stderr, buf))

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMeter(buf); err != nil {
		log.Fatalf("densimeter: %v", err)
	}
}
