package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/surface-survey/core"
	"github.com/signalsfoundry/surface-survey/internal/observability"
	"github.com/signalsfoundry/surface-survey/internal/sim"
	"github.com/signalsfoundry/surface-survey/kb"
	"github.com/signalsfoundry/surface-survey/model"
	"github.com/signalsfoundry/surface-survey/timectrl"
)

const apiScenarioYAML = `
bodies:
  - name: Mun
    radius_m: 200000
experiments:
  - id: survey
    title: Surface Survey
    base_value: 0.25
    data_scale: 60
    situations: [SrfLanded]
    biome_situations: [SrfLanded]
vessels:
  - id: rover
    body: Mun
    situation: landed
    landed_at: Craters
    motion: {source: rover, heading_deg: 0, speed_ms: 2}
instruments:
  - id: survey-1
    vessel: rover
    experiment: survey
    active: true
    survey_name: Geo Survey
    science_per_min: {default: 5}
    container: {capacity: 2}
`

func newTestServer(t *testing.T) (*httptest.Server, *sim.Simulation) {
	t.Helper()
	store := kb.NewKnowledgeBase()
	scenario, err := core.LoadScenario(store, strings.NewReader(apiScenarioYAML))
	require.NoError(t, err)

	collector, err := observability.NewSurveyCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	s, err := sim.New(store, scenario, sim.WithMetrics(collector))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	srv := httptest.NewServer(NewRouter(s, Options{Metrics: collector.Handler(), CORSOrigins: []string{"https://example.test"}}))
	t.Cleanup(srv.Close)
	return srv, s
}

func step(s *sim.Simulation) {
	s.OnTick(timectrl.TickInfo{Index: 1, Time: time.Unix(1, 0).UTC(), Delta: time.Second, WarpRate: 1})
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := getJSON(t, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestInstrumentStatusAfterTick(t *testing.T) {
	srv, s := newTestServer(t)
	step(s)

	var list []sim.InstrumentStatus
	resp := getJSON(t, srv.URL+"/instruments", &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)

	var st sim.InstrumentStatus
	resp = getJSON(t, srv.URL+"/instruments/survey-1", &st)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Toggle Geo Survey", st.ToggleLabel)
	assert.Equal(t, "300.00/min (Craters)", st.Status)
	assert.Equal(t, "SrfLanded", st.Situation)
	assert.Equal(t, "survey-1-storage", st.ContainerID)
	assert.Equal(t, 1, st.Records)
}

func TestUnknownInstrumentIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := getJSON(t, srv.URL+"/instruments/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "instrument not found")
	assert.NotEmpty(t, body.RequestID)
}

func TestToggleRoundTrip(t *testing.T) {
	srv, s := newTestServer(t)

	resp, err := http.Post(srv.URL+"/instruments/survey-1/toggle", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ToggleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Active)
	assert.Equal(t, core.StatusDisabled, out.Status)

	step(s)
	st, err := s.Instrument("survey-1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Records, "inactive instrument must not accrue")

	resp2, err := http.Post(srv.URL+"/instruments/missing/toggle", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestRecordsListing(t *testing.T) {
	srv, s := newTestServer(t)

	var empty []model.Record
	resp := getJSON(t, srv.URL+"/containers/survey-1-storage/records", &empty)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, empty)

	step(s)
	var recs []model.Record
	getJSON(t, srv.URL+"/containers/survey-1-storage/records", &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, "survey@MunSrfLandedCraters", recs[0].SubjectID)
	assert.Equal(t, 5.0, recs[0].Amount)

	resp = getJSON(t, srv.URL+"/containers/ghost/records", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVesselsAndNotifications(t *testing.T) {
	srv, _ := newTestServer(t)

	var vessels []map[string]any
	getJSON(t, srv.URL+"/vessels", &vessels)
	require.Len(t, vessels, 1)
	v := vessels[0]["vessel"].(map[string]any)
	assert.Equal(t, "LANDED", v["situation"])

	var notes []sim.Notification
	resp := getJSON(t, srv.URL+"/notifications", &notes)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, notes)
}

func TestMetricsRoute(t *testing.T) {
	srv, s := newTestServer(t)
	step(s)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "survey_ticks_total")
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/instruments/survey-1/toggle", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://example.test", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/instruments", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(sim.ErrInstrumentNotFound))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(sim.ErrContainerNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

var _ Simulation = (*sim.Simulation)(nil)
