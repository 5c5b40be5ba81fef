// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/claybath/density_meter/internal/core"
	"github.com/claybath/density_meter/internal/logbuf"
	"github.com/claybath/density_meter/internal/store"
)

// ClockSetter is the clock as seen by the web API: readable for status and
// writable through /api/datetime.
type ClockSetter interface {
	core.Clock
	Set(t time.Time) error
}

// Actuators groups the outputs exposed for manual control.
type Actuators interface {
	core.Valves
	core.Pilot
}

// Server is the instrument's HTTP interface: the JSON API used by the
// bundled web UI plus a websocket status stream.
type Server struct {
	ctrl    *core.Controller
	store   *store.Store
	clk     ClockSetter
	acts    Actuators
	buf     *logbuf.Buffer
	webRoot string

	upgrader websocket.Upgrader
}

// NewServer creates the web server. It does not listen yet; call Start.
func NewServer(ctrl *core.Controller, st *store.Store, clk ClockSetter, acts Actuators, buf *logbuf.Buffer, webRoot string) *Server {
	return &Server{
		ctrl:    ctrl,
		store:   st,
		clk:     clk,
		acts:    acts,
		buf:     buf,
		webRoot: webRoot,
		upgrader: websocket.Upgrader{
			// The UI is served from the instrument itself; same-origin
			// checks would only get in the way on a headless LAN box.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start runs the HTTP server. It blocks until the listener fails.
func (s *Server) Start(addr string) error {
	log.Printf("web: listening on %s", addr)
	return http.ListenAndServe(addr, s.routes())
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/measure", s.handleMeasure)
	mux.HandleFunc("/api/control", s.handleControl)
	mux.HandleFunc("/api/datetime", s.handleDatetime)
	mux.HandleFunc("/api/data", s.handleData)
	mux.HandleFunc("/api/files", s.handleFiles)
	mux.HandleFunc("/api/file", s.handleFile)
	mux.HandleFunc("/api/serial", s.handleSerial)
	mux.HandleFunc("/api/serial/clear", s.handleSerialClear)
	mux.HandleFunc("/api/live", s.handleLive)
	mux.Handle("/", http.FileServer(http.Dir(s.webRoot)))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.ctrl.Settings())

	case http.MethodPost:
		var patch core.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		settings, err := s.ctrl.UpdateSettings(patch)
		if err != nil {
			log.Printf("web: saving settings: %v", err)
		}
		writeJSON(w, http.StatusOK, settings)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.ctrl.StartMeasurement(); err != nil {
		if errors.Is(err, core.ErrBusy) {
			writeError(w, http.StatusConflict, "measurement_in_progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	log.Println("web: manual measurement started")
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Action string `json:"action"`
		State  bool   `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	// Manual actuator control is for maintenance only; the sequencer owns
	// the valves while a cycle runs.
	if s.ctrl.Status().IsMeasuring {
		writeError(w, http.StatusConflict, "measurement_in_progress")
		return
	}

	var err error
	switch req.Action {
	case "fill_valve":
		err = s.acts.SetFill(req.State)
	case "empty_valve":
		err = s.acts.SetEmpty(req.State)
	case "pilot":
		err = s.acts.SetMeasuring(req.State)
	default:
		writeError(w, http.StatusBadRequest, "unknown_action")
		return
	}
	if err != nil {
		log.Printf("web: manual control %s: %v", req.Action, err)
		writeError(w, http.StatusInternalServerError, "output_failed")
		return
	}
	log.Printf("web: manual control %s -> %v", req.Action, req.State)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatetime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Year   int `json:"year"`
		Month  int `json:"month"`
		Day    int `json:"day"`
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
		Second int `json:"second"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Year < 2000 || req.Year > 2099 || req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "invalid_datetime")
		return
	}

	t := time.Date(req.Year, time.Month(req.Month), req.Day, req.Hour, req.Minute, req.Second, 0, time.Local)
	if err := s.clk.Set(t); err != nil {
		log.Printf("web: setting clock: %v", err)
		writeError(w, http.StatusInternalServerError, "clock_write_failed")
		return
	}
	s.ctrl.ClockChanged()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		csv, err := s.store.Measurements()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "read_failed")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="measurements.csv"`)
		fmt.Fprint(w, csv)

	case http.MethodDelete:
		if err := s.store.DeleteMeasurements(); err != nil {
			writeError(w, http.StatusInternalServerError, "delete_failed")
			return
		}
		log.Println("web: measurement data deleted")
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	files, err := s.store.Files()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read_failed")
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing_name")
		return
	}
	if err := s.store.DeleteFile(name); err != nil {
		writeError(w, http.StatusBadRequest, "delete_failed")
		return
	}
	log.Printf("web: data file %s deleted", name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSerial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"output":        s.buf.Contents(),
		"totalMessages": s.buf.Total(),
		"bufferSize":    s.buf.Size(),
	})
}

func (s *Server) handleSerialClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.buf.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleLive upgrades to a websocket and streams status snapshots once per
// second until the peer goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.ctrl.Status()); err != nil {
			return
		}
		<-ticker.C
	}
}
