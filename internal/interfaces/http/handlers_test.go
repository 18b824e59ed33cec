package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddslab/edgegate/internal/application"
	"github.com/oddslab/edgegate/internal/artifacts"
	"github.com/oddslab/edgegate/internal/cache"
	"github.com/oddslab/edgegate/internal/metrics"
	"github.com/oddslab/edgegate/internal/pipeline"
	"github.com/oddslab/edgegate/internal/quotes"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dataDir := t.TempDir()

	deps := Deps{
		Settings: application.NewSettingsStore(dataDir),
		Feed:     cache.NewFeed(dataDir, nil, 0),
		Sink:     artifacts.NewFSSink(dataDir),
		Metrics:  metrics.NewRegistry(),
		DataDir:  dataDir,
	}

	cfg := DefaultServerConfig()
	cfg.Port = 0 // test requests go through the router, not a listener

	s := &Server{
		router:   mux.NewRouter(),
		handlers: NewHandlers(deps),
		config:   cfg,
	}
	s.setupRoutes()
	return s, dataDir
}

func doJSON(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := doJSON(t, s, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.NotNil(t, body["swarm"])
	assert.NotNil(t, body["settings"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSettings_GetSeedsDefaults(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := doJSON(t, s, "GET", "/api/settings", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	settings := body["settings"].(map[string]interface{})
	assert.Equal(t, "private", settings["accountType"])
	assert.Equal(t, 1000.0, settings["bankrollUsd"])
	assert.Equal(t, 1.5, settings["slippageTolerancePct"])

	tiers := body["tiers"].(map[string]interface{})
	assert.Equal(t, 20.0, tiers["enterprise"])
}

func TestSettings_UpdateMergesPatch(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := doJSON(t, s, "POST", "/api/settings",
		`{"bankrollUsd":"25000","accountType":"pro"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	settings := body["settings"].(map[string]interface{})
	assert.Equal(t, 25000.0, settings["bankrollUsd"], "numeric strings coerce")
	assert.Equal(t, "pro", settings["accountType"])
	assert.Equal(t, 1.5, settings["slippageTolerancePct"], "unpatched fields keep defaults")

	sw := body["swarm"].(map[string]interface{})
	assert.Equal(t, 8.0, sw["tierCap"])
}

func TestSettings_UpdateRejectsMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := doJSON(t, s, "POST", "/api/settings", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpportunities_ScoresFeed(t *testing.T) {
	s, dataDir := newTestServer(t)
	feed := `[{"market":"A","edgePct":10,"liquidity":50000,"evidenceQuality":80,"volatilityRisk":30},
	          {"market":"B","edgePct":1}]`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "opportunities.json"), []byte(feed), 0644))

	req := httptest.NewRequest("GET", "/api/opportunities", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var scored []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scored))
	require.Len(t, scored, 2)
	assert.Equal(t, 66.0, scored[0]["signalScore"])
	// B omits volatility: defaults to 50, penalty 2.5; edge 1 -> 2.2; round(-0.3) -> 0
	assert.Equal(t, 0.0, scored[1]["signalScore"])
}

const approvableBody = `{
	"market": "Will X win?",
	"side": "YES",
	"thesis": "stable lead",
	"evidence": ["poll A"],
	"invalidators": ["scandal"],
	"edgePct": 10,
	"liquidity": 50000,
	"evidenceQuality": 80,
	"volatilityRisk": 30,
	"oddsAtSignal": 2.0,
	"currentOdds": 2.01,
	"bankrollUsd": 10000
}`

func TestCreatePosition_Approval(t *testing.T) {
	s, dataDir := newTestServer(t)

	rec, body := doJSON(t, s, "POST", "/api/position/create", approvableBody)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, body["approved"])
	assert.Equal(t, 66.0, body["signalScore"])

	riskBody := body["risk"].(map[string]interface{})
	assert.Equal(t, true, riskBody["approved"])
	assert.Equal(t, 22.0, riskBody["riskUsd"])
	assert.Equal(t, 1.4, riskBody["rrMin"])

	assert.Equal(t, 0.5, body["slippagePct"])
	assert.Equal(t, 1.5, body["slippageTolerancePct"])

	positionID := body["positionId"].(string)
	assert.True(t, strings.HasPrefix(positionID, "pos-"))

	dir := body["artifactDir"].(string)
	assert.True(t, strings.HasPrefix(dir, dataDir))
	for _, name := range []string{"01_pretrade.json", "02_exec_summary.md", "03_exec_summary.pdf"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "missing artifact %s", name)
	}
}

func TestCreatePosition_RiskGateRejection(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := doJSON(t, s, "POST", "/api/position/create",
		`{"market":"weak","edgePct":1,"bankrollUsd":10000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, false, body["approved"])
	assert.Equal(t, "signal_or_risk_gate", body["reason"])
	assert.NotNil(t, body["signalScore"])
	assert.NotNil(t, body["risk"])
	_, hasSlippage := body["slippagePct"]
	assert.False(t, hasSlippage, "risk-gate rejection carries no slippage fields")
}

func TestCreatePosition_SlippageRejection(t *testing.T) {
	s, _ := newTestServer(t)

	body := strings.Replace(approvableBody, `"currentOdds": 2.01`, `"currentOdds": 2.3`, 1)
	rec, resp := doJSON(t, s, "POST", "/api/position/create", body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, false, resp["approved"])
	assert.Equal(t, "slippage_exceeded", resp["reason"])
	assert.Equal(t, 15.0, resp["slippagePct"])
	assert.Equal(t, 1.5, resp["slippageTolerancePct"])
}

func TestCreatePosition_MalformedBody(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := doJSON(t, s, "POST", "/api/position/create", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtifact_ServesSavedPDF(t *testing.T) {
	s, _ := newTestServer(t)

	_, body := doJSON(t, s, "POST", "/api/position/create", approvableBody)
	require.Equal(t, true, body["approved"])

	dir := body["artifactDir"].(string)
	rel := strings.TrimPrefix(dir, s.handlers.deps.DataDir+string(os.PathSeparator))
	target := "/artifacts/" + filepath.ToSlash(rel) + "/03_exec_summary.pdf"

	req := httptest.NewRequest("GET", target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-1.4"))
}

func TestArtifact_RejectsTraversal(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/artifacts/../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec, body := doJSON(t, s, "GET", "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", body["error"])
}

func TestCreatePosition_QuoteBreakerGaugeTracksState(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	s, _ := newTestServer(t)
	s.handlers.deps.Quotes = quotes.NewProvider(quotes.Config{
		BaseURL:           upstream.URL,
		RequestsPerSecond: 1000,
	})

	// Five consecutive quote failures trip the breaker; each evaluation still
	// completes on the odds already in the body.
	for i := 0; i < 5; i++ {
		rec, body := doJSON(t, s, "POST", "/api/position/create", approvableBody)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, true, body["approved"])
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "edgegate_quote_breaker_state 2",
		"gauge reports the open breaker")
}

func TestStream_DeliversVerdictPerEvaluation(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The hub registers the client after the upgrade handshake completes.
	require.Eventually(t, func() bool {
		s.handlers.hub.mu.Lock()
		defer s.handlers.hub.mu.Unlock()
		return len(s.handlers.hub.conns) == 1
	}, time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/position/create", "application/json",
		strings.NewReader(approvableBody))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, true, msg["approved"])
	assert.Equal(t, 66.0, msg["signalScore"])
}

func TestStreamHub_DropsSlowClient(t *testing.T) {
	upgr := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgr.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	hub := newStreamHub()
	// Register with a full (zero-capacity) buffer and no write loop.
	hub.conns[conn] = make(chan pipeline.Verdict)

	hub.broadcast(pipeline.Verdict{Approved: true})

	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.Empty(t, hub.conns, "client that cannot keep up is removed")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	_, body := doJSON(t, s, "POST", "/api/position/create", approvableBody)
	require.Equal(t, true, body["approved"])

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `edgegate_evaluations_total{outcome="approved"} 1`)
}
