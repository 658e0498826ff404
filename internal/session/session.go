// Package session saves generated tickets as named game sessions and
// reconciles them against official draws.
//
// The manager owns the session lifecycle: pending on save, won or lost
// after a check. Sessions are never removed except by an explicit Delete.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/budget"
	"github.com/Kdotropez/loto-news-sub001/internal/draw"
	"github.com/Kdotropez/loto-news-sub001/internal/model"
	"github.com/Kdotropez/loto-news-sub001/internal/pricing"
	"github.com/Kdotropez/loto-news-sub001/internal/store"
)

// ErrInvalidInput is returned for malformed save or check requests.
var ErrInvalidInput = errors.New("session: invalid input")

// Manager implements the session store operations on top of a Store.
type Manager struct {
	store   store.Store
	limiter *budget.Limiter // optional
	now     func() time.Time
	newID   func() string
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(f func() string) Option { return func(m *Manager) { m.newID = f } }

// NewManager creates a session manager. Pass nil for limiter to disable
// spending limits.
func NewManager(st store.Store, limiter *budget.Limiter, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		limiter: limiter,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SaveRequest describes a session to persist.
type SaveRequest struct {
	Name     string         `json:"name"`
	GameDate string         `json:"game_date"` // YYYY-MM-DD
	Pool     []int          `json:"selected_numbers"`
	Tickets  []model.Ticket `json:"grids"`
	Strategy string         `json:"strategy"`
}

// Save validates and persists a new pending session. Each ticket's cost must
// equal its list price; the total cost is the sum of the ticket costs.
func (m *Manager) Save(ctx context.Context, req SaveRequest) (*model.GameSession, error) {
	if err := validateSave(req); err != nil {
		return nil, err
	}

	total := decimal.Zero
	tickets := make([]model.Ticket, len(req.Tickets))
	for i, t := range req.Tickets {
		t.Numbers = slices.Clone(t.Numbers)
		slices.Sort(t.Numbers)
		tickets[i] = t
		total = total.Add(t.Cost)
	}

	if m.limiter != nil {
		spend, err := m.store.GetSpendByGameDate(ctx)
		if err != nil {
			return nil, fmt.Errorf("load spend: %w", err)
		}
		if err := m.limiter.CheckLimit(req.GameDate, total, spend); err != nil {
			return nil, err
		}
	}

	gs := &model.GameSession{
		ID:              m.newID(),
		Name:            req.Name,
		CreatedAt:       m.now().UTC(),
		GameDate:        req.GameDate,
		SelectedNumbers: slices.Clone(req.Pool),
		Tickets:         tickets,
		Strategy:        req.Strategy,
		TotalCost:       total,
		Status:          model.StatusPending,
	}
	if err := m.store.CreateSession(ctx, gs); err != nil {
		return nil, err
	}

	slog.Info("session saved",
		"id", gs.ID,
		"name", gs.Name,
		"game_date", gs.GameDate,
		"tickets", len(gs.Tickets),
		"total_cost", gs.TotalCost.String(),
	)
	return gs, nil
}

func validateSave(req SaveRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := draw.ParseDate(req.GameDate); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(req.Tickets) == 0 {
		return fmt.Errorf("%w: at least one ticket is required", ErrInvalidInput)
	}
	for i, t := range req.Tickets {
		if err := validateTicket(t); err != nil {
			return fmt.Errorf("%w: ticket %d: %v", ErrInvalidInput, i, err)
		}
	}
	return nil
}

func validateTicket(t model.Ticket) error {
	// Sizes without a price (6-number multiples, short simples) fail here.
	price, err := pricing.TicketCost(t.Type, len(t.Numbers), t.SecondDraw)
	if err != nil {
		return err
	}
	seen := make(map[int]bool, len(t.Numbers))
	for _, n := range t.Numbers {
		if n < 1 || n > draw.MaxMain || seen[n] {
			return fmt.Errorf("invalid or duplicate number %d", n)
		}
		seen[n] = true
	}
	if c := t.Complementary; c != nil && (*c < 1 || *c > draw.MaxComplementary) {
		return fmt.Errorf("complementary %d out of range", *c)
	}
	if !t.Cost.Equal(price) {
		return fmt.Errorf("cost %s does not match price %s", t.Cost, price)
	}
	return nil
}

// Get returns a session by ID.
func (m *Manager) Get(ctx context.Context, id string) (*model.GameSession, error) {
	return m.store.GetSession(ctx, id)
}

// List returns all sessions, newest first.
func (m *Manager) List(ctx context.Context) ([]model.GameSession, error) {
	return m.store.ListSessions(ctx)
}

// Delete removes a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return err
	}
	slog.Info("session deleted", "id", id)
	return nil
}

// Check reconciles a session against an official draw. Invalid draws are
// rejected before the session is touched. Checking the same session twice
// with the same draw yields the same result.
func (m *Manager) Check(ctx context.Context, id string, d draw.Draw) (*model.GameResult, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	gs, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	result := Evaluate(gs, d)
	status := model.StatusLost
	if result.TotalGains.IsPositive() {
		status = model.StatusWon
	}

	if err := m.store.UpdateSessionResult(ctx, id, status, result, m.now()); err != nil {
		return nil, err
	}

	slog.Info("session checked",
		"id", id,
		"draw_date", d.Date,
		"status", status,
		"winning_tickets", result.WinningTickets,
		"total_gains", result.TotalGains.String(),
	)
	return result, nil
}

// Evaluate computes per-ticket ranks and gains for a session against a
// draw. It does not validate the draw and has no side effects.
func Evaluate(gs *model.GameSession, d draw.Draw) *model.GameResult {
	winning := slices.Clone(d.Numbers)
	slices.Sort(winning)

	result := &model.GameResult{
		SessionID:            gs.ID,
		DrawDate:             d.Date,
		WinningNumbers:       winning,
		WinningComplementary: d.Complementary,
		Tickets:              make([]model.TicketResult, 0, len(gs.Tickets)),
		TotalGains:           decimal.Zero,
	}

	for i, t := range gs.Tickets {
		main, comp := d.Match(t.Numbers, t.Complementary)
		rank := draw.Rank(main, comp)
		gain := draw.Payout(rank)

		result.Tickets = append(result.Tickets, model.TicketResult{
			Index:                i,
			Numbers:              slices.Clone(t.Numbers),
			Complementary:        t.Complementary,
			MatchedMain:          main,
			MatchedComplementary: comp,
			Rank:                 rank,
			Gain:                 gain,
		})
		if rank > 0 {
			result.WinningTickets++
		}
		result.TotalGains = result.TotalGains.Add(gain)
	}
	result.NetResult = result.TotalGains.Sub(gs.TotalCost)
	return result
}

// Stats aggregates cost, gains and win rate over checked sessions.
func (m *Manager) Stats(ctx context.Context) (*model.Stats, error) {
	sessions, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return Aggregate(sessions), nil
}

// Aggregate computes statistics over a session list.
func Aggregate(sessions []model.GameSession) *model.Stats {
	st := &model.Stats{
		TotalSessions: len(sessions),
		TotalCost:     decimal.Zero,
		TotalGains:    decimal.Zero,
		NetResult:     decimal.Zero,
		WinRate:       decimal.Zero,
	}
	for _, s := range sessions {
		if !s.IsChecked() {
			st.PendingSessions++
			continue
		}
		st.CheckedSessions++
		st.TotalCost = st.TotalCost.Add(s.TotalCost)
		if s.Results != nil {
			st.TotalGains = st.TotalGains.Add(s.Results.TotalGains)
		}
		if s.Status == model.StatusWon {
			st.WonSessions++
		}
	}
	st.NetResult = st.TotalGains.Sub(st.TotalCost)
	if st.CheckedSessions > 0 {
		st.WinRate = decimal.NewFromInt(int64(st.WonSessions)).
			Div(decimal.NewFromInt(int64(st.CheckedSessions))).
			Mul(decimal.NewFromInt(100)).Round(2)
	}
	return st
}
