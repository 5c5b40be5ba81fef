package clock

import (
	"bufio"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// GPSTime derives wall time from NMEA RMC sentences. It is the fallback
// time source for instruments without a working RTC battery: each valid
// fix stores a UTC reference plus the local monotonic instant it arrived,
// so Now can extrapolate between sentences.
type GPSTime struct {
	mu  sync.RWMutex
	ref time.Time // UTC time of the last valid fix
	at  time.Time // when that fix arrived (monotonic)
	ok  bool
}

// StartGPSTime opens the serial port and starts the background reader.
func StartGPSTime(portName string, baudRate int) (*GPSTime, error) {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, err
	}
	log.Printf("clock: GPS serial port opened on %s at %d baud", portName, baudRate)

	g := &GPSTime{}
	go func() {
		defer port.Close()
		reader := bufio.NewReader(port)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				log.Printf("clock: GPS read error: %v", err)
				return
			}
			g.handleSentence(strings.TrimSpace(line))
		}
	}()
	return g, nil
}

func (g *GPSTime) handleSentence(line string) {
	if !strings.HasPrefix(line, "$") {
		return
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy receivers emit partial sentences; ignore
		return
	}
	if sentence.DataType() != nmea.TypeRMC {
		return
	}

	m := sentence.(nmea.RMC)
	if string(m.Validity) != "A" || !m.Time.Valid || !m.Date.Valid {
		return
	}

	ref := time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
		m.Time.Hour, m.Time.Minute, m.Time.Second,
		m.Time.Millisecond*int(time.Millisecond), time.UTC)

	g.mu.Lock()
	first := !g.ok
	g.ref = ref
	g.at = time.Now()
	g.ok = true
	g.mu.Unlock()

	if first {
		log.Printf("clock: GPS time lock acquired: %s", ref.Format(time.RFC3339))
	}
}

// Now returns the extrapolated GPS time and whether a fix has been seen.
func (g *GPSTime) Now() (time.Time, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.ok {
		return time.Time{}, false
	}
	return g.ref.Add(time.Since(g.at)).Local(), true
}
