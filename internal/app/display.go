package app

import (
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/claybath/density_meter/internal/config"
	"github.com/claybath/density_meter/internal/core"
)

// StatusSource is what the displays need from the controller.
type StatusSource interface {
	Status() core.Status
}

// Displays drives the two front-panel OLEDs. Display 1 shows the target
// and the schedule, display 2 the last result and the live instrument
// state. Either display may be absent; rendering continues on whatever was
// found at startup.
type Displays struct {
	d1 *ssd1306.Dev
	d2 *ssd1306.Dev
}

// NewDisplays probes both OLEDs. A missing display is logged and skipped;
// the instrument is fully usable through the web UI alone.
func NewDisplays(bus1, bus2 i2c.Bus, addr1, addr2 uint16) *Displays {
	opts := ssd1306.Opts{W: 128, H: 32, Rotated: true}

	d := &Displays{}
	var err error
	if d.d1, err = ssd1306.NewI2C(bus1, addr1, &opts); err != nil {
		log.Printf("display: display 1 not found at 0x%02X: %v", addr1, err)
		d.d1 = nil
	}
	if d.d2, err = ssd1306.NewI2C(bus2, addr2, &opts); err != nil {
		log.Printf("display: display 2 not found at 0x%02X: %v", addr2, err)
		d.d2 = nil
	}
	return d
}

// Run refreshes both displays until the process exits, flipping each
// display between its two pages on the configured page interval.
func (d *Displays) Run(src StatusSource) {
	cfg := config.Get()
	update := time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond
	pageEvery := time.Duration(cfg.DisplayPageInterval) * time.Millisecond

	lastFlip := time.Now()
	page := 0

	ticker := time.NewTicker(update)
	defer ticker.Stop()

	for range ticker.C {
		if time.Since(lastFlip) >= pageEvery {
			page = 1 - page
			lastFlip = time.Now()
		}

		st := src.Status()
		if d.d1 != nil {
			line1, line2 := display1Page(st, page)
			d.render(d.d1, line1, line2)
		}
		if d.d2 != nil {
			line1, line2 := display2Page(st, page)
			d.render(d.d2, line1, line2)
		}
	}
}

func display1Page(st core.Status, page int) (string, string) {
	if page == 0 {
		return "DESIRED DENSITY", fmt.Sprintf("%.3f", st.DesiredDensity)
	}
	if st.NextAutoTime == 0 {
		return "NO SCHEDULED", "MEASUREMENT"
	}
	return "NEXT MEASUREMENT", time.Unix(st.NextAutoTime, 0).Format("15:04 02/01")
}

func display2Page(st core.Status, page int) (string, string) {
	if page == 0 {
		if st.LastMeasurementTime == 0 {
			return "LAST MEASUREMENT", "--"
		}
		return "LAST MEASUREMENT", fmt.Sprintf("%.3f", st.LastMeasurementValue)
	}
	return time.Unix(st.Now, 0).Format("15:04:05 02/01"), statusLine(st)
}

// statusLine condenses the instrument state into one display row.
func statusLine(st core.Status) string {
	switch st.Phase {
	case "draining":
		return "PREPARING"
	case "filling":
		return "FILLING"
	case "settling":
		return "SETTLING"
	case "measuring":
		return fmt.Sprintf("MEAS %d/%d", st.SampleIndex, st.SampleCount)
	case "emptying":
		return "EMPTYING"
	default:
		return "READY"
	}
}

// render draws two rows of text using the fixed 7x13 font and pushes the
// frame.
func (d *Displays) render(dev *ssd1306.Dev, line1, line2 string) {
	img := image1bit.NewVerticalLSB(dev.Bounds())
	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawString(line1)
	drawer.Dot = fixed.P(0, 29)
	drawer.DrawString(line2)

	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		log.Printf("display: draw: %v", err)
	}
}
