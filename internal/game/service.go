// Package game provides the HTTP handlers for evaluating pools, generating
// tickets, and managing saved sessions.
//
// All monetary values use shopspring/decimal — never float64 for money.
package game

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Kdotropez/loto-news-sub001/internal/budget"
	"github.com/Kdotropez/loto-news-sub001/internal/cover"
	"github.com/Kdotropez/loto-news-sub001/internal/draw"
	"github.com/Kdotropez/loto-news-sub001/internal/export"
	"github.com/Kdotropez/loto-news-sub001/internal/metrics"
	"github.com/Kdotropez/loto-news-sub001/internal/model"
	"github.com/Kdotropez/loto-news-sub001/internal/pricing"
	"github.com/Kdotropez/loto-news-sub001/internal/session"
	"github.com/Kdotropez/loto-news-sub001/internal/store"
)

// Service wires the optimizer and the session manager to HTTP.
type Service struct {
	optimizer *cover.Optimizer
	sessions  *session.Manager
	wsHub     *WSHub // optional WebSocket hub for session events
}

// NewService creates a new game service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(opt *cover.Optimizer, sessions *session.Manager, hub *WSHub) *Service {
	return &Service{
		optimizer: opt,
		sessions:  sessions,
		wsHub:     hub,
	}
}

// Routes mounts the REST API on r. The WebSocket endpoint is mounted
// separately so it can bypass request timeouts.
func (s *Service) Routes(r chi.Router) {
	r.Get("/pricing", s.GetPricing)

	r.Post("/optimizer/evaluate", s.Evaluate)
	r.Post("/optimizer/generate", s.Generate)

	r.Get("/sessions", s.ListSessions)
	r.Post("/sessions", s.SaveSession)
	r.Get("/sessions/{sessionID}", s.GetSession)
	r.Delete("/sessions/{sessionID}", s.DeleteSession)
	r.Post("/sessions/{sessionID}/check", s.CheckSession)
	r.Get("/sessions/{sessionID}/export", s.ExportSession)

	r.Get("/stats", s.GetStats)
}

// --- Request/Response types ---

// EvaluateRequest is the JSON body for POST /optimizer/evaluate.
type EvaluateRequest struct {
	Numbers    []int `json:"numbers"`
	SecondDraw bool  `json:"second_draw"`
}

// GenerateRequest is the JSON body for POST /optimizer/generate.
type GenerateRequest struct {
	Numbers    []int  `json:"numbers"`
	Strategy   string `json:"strategy"` // strategy kind; empty selects the optimal one
	SecondDraw bool   `json:"second_draw"`

	// Seed makes generation reproducible. Omitted means time-derived.
	Seed *uint64 `json:"seed,omitempty"`

	// Complementary assigns a random chance number to every ticket.
	Complementary bool `json:"complementary"`
}

// GenerateResponse is the JSON body returned from POST /optimizer/generate.
type GenerateResponse struct {
	Strategy model.Strategy       `json:"strategy"`
	Tickets  []model.Ticket       `json:"tickets"`
	Coverage cover.CoverageReport `json:"coverage"`
	Seed     uint64               `json:"seed"`
}

// CheckRequest is the JSON body for POST /sessions/{id}/check. Either Draw
// ("1-2-3-4-9+3") or Numbers and Complementary must be set.
type CheckRequest struct {
	Draw          string `json:"draw,omitempty"`
	Numbers       []int  `json:"numbers,omitempty"`
	Complementary int    `json:"complementary,omitempty"`
	Date          string `json:"date"`
}

// --- HTTP Handlers ---

// GetPricing handles GET /api/v1/pricing
func (s *Service) GetPricing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pricing.Snapshot())
}

// Evaluate handles POST /api/v1/optimizer/evaluate
func (s *Service) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ev, err := s.optimizer.Evaluate(req.Numbers, req.SecondDraw)
	if err != nil {
		writeErr(w, err)
		return
	}
	metrics.EvaluationsTotal.WithLabelValues(strconv.Itoa(ev.PoolSize)).Inc()

	slog.Debug("pool evaluated",
		"pool_size", ev.PoolSize,
		"optimal", ev.Optimal.Kind,
		"cost", ev.Optimal.TotalCost.String(),
	)
	writeJSON(w, http.StatusOK, ev)
}

// Generate handles POST /api/v1/optimizer/generate
// Evaluates the pool, realises the requested strategy, and reports the
// triple coverage actually achieved.
func (s *Service) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ev, err := s.optimizer.Evaluate(req.Numbers, req.SecondDraw)
	if err != nil {
		writeErr(w, err)
		return
	}
	strategy := ev.Optimal
	if req.Strategy != "" {
		if strategy, err = ev.Strategy(req.Strategy); err != nil {
			writeErr(w, err)
			return
		}
	}

	seed := uint64(time.Now().UnixNano())
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := newRand(seed)

	start := time.Now()
	tickets, err := s.optimizer.Generate(r.Context(), req.Numbers, strategy, rng)
	if err != nil {
		writeErr(w, err)
		return
	}
	metrics.GenerateLatency.WithLabelValues(strategy.Kind).Observe(time.Since(start).Seconds())

	if req.Complementary {
		for i := range tickets {
			c := rng.IntN(draw.MaxComplementary) + 1
			tickets[i].Complementary = &c
		}
	}
	for _, t := range tickets {
		metrics.TicketsGenerated.WithLabelValues(t.Type).Inc()
	}

	resp := GenerateResponse{
		Strategy: strategy,
		Tickets:  tickets,
		Coverage: cover.Coverage(req.Numbers, tickets),
		Seed:     seed,
	}

	slog.Info("tickets generated",
		"pool_size", len(req.Numbers),
		"strategy", strategy.Kind,
		"tickets", len(tickets),
		"covered", resp.Coverage.Covered,
		"universe", resp.Coverage.Universe,
		"elapsed", time.Since(start).String(),
	)
	writeJSON(w, http.StatusOK, resp)
}

// SaveSession handles POST /api/v1/sessions
func (s *Service) SaveSession(w http.ResponseWriter, r *http.Request) {
	var req session.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	gs, err := s.sessions.Save(r.Context(), req)
	if err != nil {
		if isBudgetError(err) {
			metrics.BudgetRejections.Inc()
		}
		writeErr(w, err)
		return
	}
	metrics.SessionsSaved.Inc()

	s.broadcast(WSMessage{
		Type:      EventSessionSaved,
		SessionID: gs.ID,
		Name:      gs.Name,
		GameDate:  gs.GameDate,
		Status:    gs.Status,
		TotalCost: gs.TotalCost.String(),
	})
	writeJSON(w, http.StatusCreated, gs)
}

// ListSessions handles GET /api/v1/sessions
func (s *Service) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.GameSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GetSession handles GET /api/v1/sessions/{sessionID}
func (s *Service) GetSession(w http.ResponseWriter, r *http.Request) {
	gs, err := s.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// DeleteSession handles DELETE /api/v1/sessions/{sessionID}
func (s *Service) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	s.broadcast(WSMessage{Type: EventSessionDeleted, SessionID: id})
	w.WriteHeader(http.StatusNoContent)
}

// CheckSession handles POST /api/v1/sessions/{sessionID}/check
func (s *Service) CheckSession(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	d := draw.Draw{Numbers: req.Numbers, Complementary: req.Complementary, Date: req.Date}
	if req.Draw != "" {
		parsed, err := draw.Parse(req.Draw, req.Date)
		if err != nil {
			writeErr(w, err)
			return
		}
		d = *parsed
	}

	id := chi.URLParam(r, "sessionID")
	result, err := s.sessions.Check(r.Context(), id, d)
	if err != nil {
		writeErr(w, err)
		return
	}

	status := model.StatusLost
	if result.TotalGains.IsPositive() {
		status = model.StatusWon
	}
	metrics.SessionsChecked.WithLabelValues(status).Inc()

	s.broadcast(WSMessage{
		Type:       EventSessionChecked,
		SessionID:  id,
		Status:     status,
		TotalGains: result.TotalGains.String(),
	})
	writeJSON(w, http.StatusOK, result)
}

// ExportSession handles GET /api/v1/sessions/{sessionID}/export
// Streams the session's tickets (and results, once checked) as CSV.
func (s *Service) ExportSession(w http.ResponseWriter, r *http.Request) {
	gs, err := s.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(gs)+`"`)
	if err := export.WriteSession(w, gs); err != nil {
		slog.Error("session export failed", "id", gs.ID, "err", err)
	}
}

// GetStats handles GET /api/v1/stats
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Stats(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- helpers ---

func (s *Service) broadcast(msg WSMessage) {
	if s.wsHub != nil {
		s.wsHub.Broadcast(msg)
	}
}

// newRand returns a PCG-backed generator for seed.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func isBudgetError(err error) bool {
	return errors.Is(err, budget.ErrSessionLimitExceeded) ||
		errors.Is(err, budget.ErrDrawLimitExceeded) ||
		errors.Is(err, budget.ErrWeekLimitExceeded)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidInput),
		errors.Is(err, cover.ErrInvalidPoolSize),
		errors.Is(err, cover.ErrInvalidNumber),
		errors.Is(err, cover.ErrDuplicateNumber),
		errors.Is(err, cover.ErrUnknownStrategy),
		errors.Is(err, draw.ErrInvalidDraw),
		errors.Is(err, draw.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate), isBudgetError(err):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeErr writes err with the status it maps to. Internal errors are
// logged and not exposed.
func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		writeError(w, "internal error", status)
		return
	}
	writeError(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
