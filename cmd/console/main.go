// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command console watches a deployed density meter over MQTT and prints
// its status and measurements to the terminal.
package main

import (
	"flag"
	"log"

	"github.com/claybath/density_meter/internal/app"
	"github.com/claybath/density_meter/internal/config"
)

func main() {
	configPath := flag.String("config", "densimeter.conf", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(); err != nil {
		log.Fatalf("console: %v", err)
	}
}
