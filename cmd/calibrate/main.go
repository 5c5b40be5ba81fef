// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command calibrate computes the probe calibration from two reference
// readings: immerse the probe in two baths of known density, note the raw
// angle the instrument reports for each, and feed all four numbers in.
// The printed offset and scale go into the instrument via POST
// /api/config.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
)

// densityToCalibrated inverts the density curve: density = 1.000 +
// (c/45)*0.050, so c = (density-1)*900.
func densityToCalibrated(density float64) float64 {
	return (density - 1.0) * 900.0
}

func main() {
	angle1 := flag.Float64("a1", math.NaN(), "raw angle in reference bath 1 (degrees)")
	density1 := flag.Float64("d1", math.NaN(), "known density of reference bath 1")
	angle2 := flag.Float64("a2", math.NaN(), "raw angle in reference bath 2 (degrees)")
	density2 := flag.Float64("d2", math.NaN(), "known density of reference bath 2")
	statusURL := flag.String("status", "", "instrument status URL to read the current raw angle from")
	flag.Parse()

	if *statusURL != "" {
		angle, err := fetchAngle(*statusURL)
		if err != nil {
			log.Fatalf("calibrate: %v", err)
		}
		fmt.Printf("current raw angle: %.2f°\n", angle)
		return
	}

	for _, v := range []float64{*angle1, *density1, *angle2, *density2} {
		if math.IsNaN(v) {
			log.Fatal("calibrate: need -a1 -d1 -a2 -d2 (or -status to read the current angle)")
		}
	}
	if *angle1 == *angle2 {
		log.Fatal("calibrate: reference angles must differ")
	}

	c1 := densityToCalibrated(*density1)
	c2 := densityToCalibrated(*density2)

	// The instrument computes c = (angle + offset) * scale.
	scale := (c1 - c2) / (*angle1 - *angle2)
	if scale == 0 {
		log.Fatal("calibrate: reference densities must differ")
	}
	offset := c1/scale - *angle1

	fmt.Printf("calibrationOffset = %.4f\n", offset)
	fmt.Printf("calibrationScale  = %.4f\n", scale)
	fmt.Println()
	fmt.Printf("apply with: curl -X POST <instrument>/api/config -d '{\"calibrationOffset\":%.4f,\"calibrationScale\":%.4f}'\n",
		offset, scale)
}

func fetchAngle(url string) (float64, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("fetching status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetching status: HTTP %d", resp.StatusCode)
	}

	var st struct {
		CurrentAngle float64 `json:"currentAngle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return 0, fmt.Errorf("decoding status: %w", err)
	}
	return st.CurrentAngle, nil
}
