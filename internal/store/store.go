// Package store defines the persistence interface for game sessions.
// Implementations include PostgreSQL, SQLite (single-file local storage),
// a key-value layout over any KV backend (in-memory or Redis), a Redis
// read-through cache, and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("store: session not found")

// ErrDuplicate is returned when a session ID is already taken.
var ErrDuplicate = errors.New("store: session already exists")

// Store is the persistence interface. Sessions are user-owned: they are
// never deleted automatically.
type Store interface {
	// CreateSession persists a new session.
	CreateSession(ctx context.Context, s *model.GameSession) error

	// GetSession retrieves a session by its ID.
	GetSession(ctx context.Context, id string) (*model.GameSession, error)

	// ListSessions returns all sessions, newest first.
	ListSessions(ctx context.Context) ([]model.GameSession, error)

	// UpdateSessionResult records the outcome of a check.
	UpdateSessionResult(ctx context.Context, id, status string, result *model.GameResult, checkedAt time.Time) error

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, id string) error

	// GetSpendByGameDate returns total session cost per draw date.
	GetSpendByGameDate(ctx context.Context) (map[string]decimal.Decimal, error)
}

// cloneSession deep-copies a session so callers cannot mutate stored state.
func cloneSession(s *model.GameSession) model.GameSession {
	c := *s
	c.SelectedNumbers = slices.Clone(s.SelectedNumbers)
	c.Tickets = cloneTickets(s.Tickets)
	if s.Results != nil {
		r := *s.Results
		r.WinningNumbers = slices.Clone(s.Results.WinningNumbers)
		r.Tickets = make([]model.TicketResult, len(s.Results.Tickets))
		for i, tr := range s.Results.Tickets {
			tr.Numbers = slices.Clone(tr.Numbers)
			tr.Complementary = cloneIntPtr(tr.Complementary)
			r.Tickets[i] = tr
		}
		c.Results = &r
	}
	if s.CheckedAt != nil {
		t := *s.CheckedAt
		c.CheckedAt = &t
	}
	return c
}

func cloneTickets(tickets []model.Ticket) []model.Ticket {
	if tickets == nil {
		return nil
	}
	out := make([]model.Ticket, len(tickets))
	for i, t := range tickets {
		t.Numbers = slices.Clone(t.Numbers)
		t.Complementary = cloneIntPtr(t.Complementary)
		out[i] = t
	}
	return out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// sortNewestFirst orders sessions by creation time, newest first, with the
// ID as a stable tie-breaker.
func sortNewestFirst(sessions []model.GameSession) {
	slices.SortStableFunc(sessions, func(a, b model.GameSession) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// spendByDate sums session costs per draw date.
func spendByDate(sessions []model.GameSession) map[string]decimal.Decimal {
	spend := make(map[string]decimal.Decimal)
	for _, s := range sessions {
		spend[s.GameDate] = spend[s.GameDate].Add(s.TotalCost)
	}
	return spend
}
