package http

import (
	"encoding/json"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/oddslab/edgegate/internal/application"
	"github.com/oddslab/edgegate/internal/artifacts"
	"github.com/oddslab/edgegate/internal/domain/risk"
	"github.com/oddslab/edgegate/internal/domain/scoring"
	"github.com/oddslab/edgegate/internal/persistence"
	"github.com/oddslab/edgegate/internal/pipeline"
	"github.com/oddslab/edgegate/internal/swarm"
)

// Handlers holds the request handlers and their collaborators.
type Handlers struct {
	deps Deps
	hub  *streamHub
}

// NewHandlers creates the handler set.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps, hub: newStreamHub()}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// Health reports liveness plus the active settings and swarm limits.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	settings, err := h.deps.Settings.Get()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	limits := swarm.Clamp(settings.RequestedSwarmAgents, settings.AccountType, swarm.MachineCap())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"swarm":    limits,
		"settings": settings,
	})
}

// GetSettings returns the stored settings, swarm limits, and tier caps.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.deps.Settings.Get()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"settings": settings,
		"swarm":    swarm.Clamp(settings.RequestedSwarmAgents, settings.AccountType, swarm.MachineCap()),
		"tiers":    swarm.TierCaps(),
	})
}

// UpdateSettings merges a JSON patch into the stored settings.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	next, err := h.deps.Settings.Update(patch.toPatch())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"settings": next,
		"swarm":    swarm.Clamp(next.RequestedSwarmAgents, next.AccountType, swarm.MachineCap()),
	})
}

// settingsPatchRequest applies numeric coercion to settings updates before
// they reach the store.
type settingsPatchRequest struct {
	AccountType          *string          `json:"accountType"`
	RequestedSwarmAgents *pipeline.Number `json:"requestedSwarmAgents"`
	RefreshIntervalSec   *pipeline.Number `json:"refreshIntervalSec"`
	SlippageTolerancePct *pipeline.Number `json:"slippageTolerancePct"`
	BankrollUsd          *pipeline.Number `json:"bankrollUsd"`
	MaxRiskPerTradePct   *pipeline.Number `json:"maxRiskPerTradePct"`
}

func (p settingsPatchRequest) toPatch() application.SettingsPatch {
	patch := application.SettingsPatch{AccountType: p.AccountType}
	if v := intValue(p.RequestedSwarmAgents); v != nil {
		patch.RequestedSwarmAgents = v
	}
	if v := intValue(p.RefreshIntervalSec); v != nil {
		patch.RefreshIntervalSec = v
	}
	if v := floatValue(p.SlippageTolerancePct); v != nil {
		patch.SlippageTolerancePct = v
	}
	if v := floatValue(p.BankrollUsd); v != nil {
		patch.BankrollUsd = v
	}
	if v := floatValue(p.MaxRiskPerTradePct); v != nil {
		patch.MaxRiskPerTradePct = v
	}
	return patch
}

func floatValue(n *pipeline.Number) *float64 {
	if n == nil || !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func intValue(n *pipeline.Number) *int {
	if n == nil || !n.Valid {
		return nil
	}
	v := int(n.Value)
	return &v
}

// scoredOpportunity is a feed entry annotated with its recomputed score.
type scoredOpportunity struct {
	pipeline.Candidate
	SignalScore int `json:"signalScore"`
}

// Opportunities returns the candidate feed with fresh signal scores.
func (h *Handlers) Opportunities(w http.ResponseWriter, r *http.Request) {
	feed, err := h.deps.Feed.Load(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scored := make([]scoredOpportunity, 0, len(feed))
	for _, c := range feed {
		score := scoring.Score(scoring.Input{
			EdgePct:         c.EdgePct,
			Liquidity:       c.Liquidity,
			EvidenceQuality: c.EvidenceQuality,
			VolatilityRisk:  c.VolatilityRisk,
		})
		scored = append(scored, scoredOpportunity{Candidate: c, SignalScore: score})
	}
	h.writeJSON(w, http.StatusOK, scored)
}

// createPositionRequest is a candidate plus optional per-request risk
// overrides.
type createPositionRequest struct {
	pipeline.Candidate
	BankrollUsd        pipeline.Number `json:"bankrollUsd"`
	MaxRiskPerTradePct pipeline.Number `json:"maxRiskPerTradePct"`
}

func (req *createPositionRequest) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &req.Candidate); err != nil {
		return err
	}
	var overrides struct {
		BankrollUsd        pipeline.Number `json:"bankrollUsd"`
		MaxRiskPerTradePct pipeline.Number `json:"maxRiskPerTradePct"`
	}
	if err := json.Unmarshal(b, &overrides); err != nil {
		return err
	}
	req.BankrollUsd = overrides.BankrollUsd
	req.MaxRiskPerTradePct = overrides.MaxRiskPerTradePct
	return nil
}

// CreatePosition runs the decision pipeline for a candidate and, on approval,
// persists the audit artifacts (and the relational record when a repository
// is configured).
func (h *Handlers) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req createPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := h.deps.Settings.Get()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rc := pipeline.RiskContext{
		BankrollUsd:        fallbackChain(req.BankrollUsd, settings.BankrollUsd, 1000),
		MaxRiskPerTradePct: fallbackChain(req.MaxRiskPerTradePct, settings.MaxRiskPerTradePct, risk.DefaultMaxRiskPerTradePct),
	}
	tolerance := settings.SlippageTolerancePct
	if tolerance == 0 {
		tolerance = 1.5
	}

	candidate := req.Candidate
	h.refreshQuote(r, &candidate)

	verdict := pipeline.Evaluate(candidate, rc, tolerance)
	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordVerdict(verdict.Approved, string(verdict.Reason), verdict.SignalScore)
	}
	h.hub.broadcast(verdict)

	if !verdict.Approved {
		resp := map[string]interface{}{
			"approved":    false,
			"reason":      verdict.Reason,
			"message":     verdict.Message,
			"signalScore": verdict.SignalScore,
			"risk":        verdict.Risk,
		}
		if verdict.Reason == pipeline.ReasonSlippageExceeded {
			resp["slippagePct"] = verdict.SlippagePct
			resp["slippageTolerancePct"] = verdict.SlippageTolerancePct
		}
		h.writeJSON(w, http.StatusOK, resp)
		return
	}

	rec := artifacts.NewRecord(candidate, verdict)
	dir, err := h.deps.Sink.Save(r.Context(), rec)
	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordArtifactWrite(err)
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.deps.Repo != nil {
		if err := h.deps.Repo.Insert(r.Context(), positionRecord(rec, dir)); err != nil {
			// Filesystem artifacts are the system of record; a repo failure
			// degrades to a warning rather than failing the position.
			log.Warn().Err(err).Str("position_id", rec.PositionID).Msg("failed to persist position record")
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"approved":             true,
		"signalScore":          verdict.SignalScore,
		"risk":                 verdict.Risk,
		"slippagePct":          verdict.SlippagePct,
		"slippageTolerancePct": verdict.SlippageTolerancePct,
		"positionId":           rec.PositionID,
		"artifactDir":          dir,
		"summaryPdf":           filepath.Join(dir, artifacts.PDFFile),
	})
}

// refreshQuote replaces the candidate's current odds with a fresh upstream
// quote when a provider is configured. Failures are logged and ignored: no
// quote data never blocks an evaluation.
func (h *Handlers) refreshQuote(r *http.Request, c *pipeline.Candidate) {
	if h.deps.Quotes == nil || c.Market == "" {
		return
	}
	odds, err := h.deps.Quotes.CurrentOdds(r.Context(), c.Market)
	if h.deps.Metrics != nil {
		h.deps.Metrics.QuoteBreakerState.Set(float64(h.deps.Quotes.BreakerState()))
	}
	if err != nil {
		log.Debug().Err(err).Str("market", c.Market).Msg("quote refresh unavailable")
		return
	}
	c.CurrentOdds = odds
}

func positionRecord(rec artifacts.Record, dir string) persistence.PositionRecord {
	pr := persistence.PositionRecord{
		PositionID:  rec.PositionID,
		CreatedAt:   rec.CreatedAt,
		Market:      rec.Market,
		Side:        rec.Side,
		Thesis:      rec.Thesis,
		EdgePct:     rec.EdgePct,
		SignalScore: rec.SignalScore,
		RiskPct:     rec.Risk.RiskPct,
		RiskUsd:     rec.Risk.RiskUsd,
		RRMin:       rec.Risk.RRMin,
		SlippagePct: rec.SlippagePct,
		ArtifactDir: dir,
	}
	if rec.OddsAtSignal > 0 {
		v := rec.OddsAtSignal
		pr.OddsAtSignal = &v
	}
	if rec.CurrentOdds > 0 {
		v := rec.CurrentOdds
		pr.CurrentOdds = &v
	}
	return pr
}

// ListPositions returns recent positions from the repository.
func (h *Handlers) ListPositions(w http.ResponseWriter, r *http.Request) {
	if h.deps.Repo == nil {
		h.writeError(w, http.StatusNotImplemented, "position repository not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	recs, err := h.deps.Repo.List(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}

// Artifact serves saved position files with the right content type.
func (h *Handlers) Artifact(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	clean := path.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		h.writeError(w, http.StatusBadRequest, "invalid artifact path")
		return
	}

	full := filepath.Join(h.deps.DataDir, filepath.FromSlash(clean))
	switch strings.ToLower(filepath.Ext(full)) {
	case ".pdf":
		w.Header().Set("Content-Type", "application/pdf")
	case ".md":
		w.Header().Set("Content-Type", "text/markdown")
	case ".json":
		w.Header().Set("Content-Type", "application/json")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	http.ServeFile(w, r, full)
}

// Metrics serves the Prometheus registry.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.deps.Metrics == nil {
		h.writeError(w, http.StatusNotImplemented, "metrics not configured")
		return
	}
	h.deps.Metrics.Handler().ServeHTTP(w, r)
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, http.StatusNotFound, "route not found")
}

func fallbackChain(n pipeline.Number, settingsValue, hardDefault float64) float64 {
	if n.Valid && n.Value != 0 {
		return n.Value
	}
	if settingsValue != 0 {
		return settingsValue
	}
	return hardDefault
}
