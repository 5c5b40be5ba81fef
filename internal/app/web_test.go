package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claybath/density_meter/internal/core"
	"github.com/claybath/density_meter/internal/logbuf"
	"github.com/claybath/density_meter/internal/store"
)

type stubSensor struct{ angle float64 }

func (s stubSensor) TiltAngle() (float64, error) { return s.angle, nil }

type stubOutputs struct {
	fill, empty, pilot bool
}

func (o *stubOutputs) SetFill(open bool) error    { o.fill = open; return nil }
func (o *stubOutputs) SetEmpty(open bool) error   { o.empty = open; return nil }
func (o *stubOutputs) SetMeasuring(on bool) error { o.pilot = on; return nil }

type stubClock struct {
	now time.Time
	set []time.Time
}

func (c *stubClock) Now() time.Time        { return c.now }
func (c *stubClock) Available() bool       { return true }
func (c *stubClock) Set(t time.Time) error { c.set = append(c.set, t); c.now = t; return nil }

func newTestServer(t *testing.T) (*Server, *core.Controller, *stubOutputs, *stubClock, *logbuf.Buffer) {
	t.Helper()

	dir := t.TempDir()
	st := store.New(filepath.Join(dir, "settings.json"), filepath.Join(dir, "data"))
	outs := &stubOutputs{}
	clk := &stubClock{now: time.Date(2026, 8, 24, 10, 0, 0, 0, time.Local)}
	buf := logbuf.New(logbuf.DefaultSize)

	ctrl := core.NewController(core.DefaultSettings(), stubSensor{angle: 11}, outs, outs, clk, st)
	return NewServer(ctrl, st, clk, outs, buf, dir), ctrl, outs, clk, buf
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)
	return rr
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var st core.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.Equal(t, "idle", st.Phase)
	assert.False(t, st.IsMeasuring)
	assert.InDelta(t, 1.025, st.DesiredDensity, 1e-9)
	assert.True(t, st.ClockAvailable)
}

func TestMeasureRejectsSecondStart(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/measure", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/api/measure", "")
	require.Equal(t, http.StatusConflict, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "measurement_in_progress", resp["error"])
}

func TestConfigPartialUpdate(t *testing.T) {
	srv, ctrl, _, _, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/config", `{"desiredDensity":1.050,"measurementInterval":60}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var got core.Settings
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.InDelta(t, 1.050, got.DesiredDensity, 1e-9)
	assert.Equal(t, 60, got.MeasurementInterval)
	// Untouched fields keep their values.
	assert.Equal(t, 5, got.FillDuration)
	assert.True(t, got.AutoMeasurementEnabled)

	assert.Equal(t, got, ctrl.Settings())
}

func TestManualControl(t *testing.T) {
	srv, _, outs, _, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/control", `{"action":"fill_valve","state":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, outs.fill)

	rr = doJSON(t, srv, http.MethodPost, "/api/control", `{"action":"bogus","state":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Actuators are locked out while a cycle runs.
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodPost, "/api/measure", "").Code)
	rr = doJSON(t, srv, http.MethodPost, "/api/control", `{"action":"empty_valve","state":true}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestDatetimeEndpoint(t *testing.T) {
	srv, _, _, clk, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/datetime",
		`{"year":2026,"month":8,"day":24,"hour":12,"minute":30,"second":0}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, clk.set, 1)
	assert.Equal(t, time.Date(2026, 8, 24, 12, 30, 0, 0, time.Local), clk.set[0])

	rr = doJSON(t, srv, http.MethodPost, "/api/datetime", `{"year":1980,"month":1,"day":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Len(t, clk.set, 1)
}

func TestSerialEndpoints(t *testing.T) {
	srv, _, _, _, buf := newTestServer(t)

	buf.Write([]byte("boot complete\n"))

	rr := doJSON(t, srv, http.MethodGet, "/api/serial", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Output        string `json:"output"`
		TotalMessages int    `json:"totalMessages"`
		BufferSize    int    `json:"bufferSize"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Output, "boot complete")
	assert.Equal(t, 1, resp.TotalMessages)
	assert.Equal(t, logbuf.DefaultSize, resp.BufferSize)

	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodPost, "/api/serial/clear", "").Code)
	rr = doJSON(t, srv, http.MethodGet, "/api/serial", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Empty(t, resp.Output)
}

func TestDataEndpoint(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	require.NoError(t, srv.store.AppendMeasurement(
		time.Date(2026, 8, 24, 10, 0, 0, 0, time.Local), 1.0123, 11.07))

	rr := doJSON(t, srv, http.MethodGet, "/api/data", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Timestamp,Density,Angle")
	assert.Contains(t, rr.Body.String(), "1.0123")

	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodDelete, "/api/data", "").Code)
	rr = doJSON(t, srv, http.MethodGet, "/api/data", "")
	assert.Equal(t, "Timestamp,Density,Angle\n", rr.Body.String())
}
