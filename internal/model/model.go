// Package model defines the core domain types shared across the loto engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket types.
const (
	TicketSimple   = "simple"
	TicketMultiple = "multiple"
)

// Session statuses.
const (
	StatusPending = "pending"
	StatusChecked = "checked"
	StatusWon     = "won"
	StatusLost    = "lost"
)

// Ticket is one played grid. A simple ticket holds 5 numbers; a multiple
// ticket holds k ∈ {7,8,9,10} numbers and stands for all C(k,5) simple grids.
type Ticket struct {
	Numbers       []int           `json:"numbers"`                 // sorted ascending
	Complementary *int            `json:"complementary,omitempty"` // chance number 1-10
	Cost          decimal.Decimal `json:"cost"`
	Type          string          `json:"type"` // "simple" or "multiple"
	SecondDraw    bool            `json:"second_draw,omitempty"`
}

// Strategy is a candidate covering plan computed by the optimizer.
// Strategies are ephemeral; only the generated tickets are persisted.
type Strategy struct {
	Kind        string          `json:"kind"`
	Name        string          `json:"name"`
	TicketCount int             `json:"ticket_count"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Description string          `json:"description"`
	Efficiency  decimal.Decimal `json:"efficiency"` // total cost per ticket
	SecondDraw  bool            `json:"second_draw"`
}

// TicketResult is the outcome of one ticket against an official draw.
type TicketResult struct {
	Index                int             `json:"index"`
	Numbers              []int           `json:"numbers"`
	Complementary        *int            `json:"complementary,omitempty"`
	MatchedMain          int             `json:"matched_main"`
	MatchedComplementary bool            `json:"matched_complementary"`
	Rank                 int             `json:"rank"` // 0 = no win
	Gain                 decimal.Decimal `json:"gain"`
}

// GameResult reconciles a session against an official draw. It carries no
// wall-clock data so that checking twice yields identical results.
type GameResult struct {
	SessionID            string          `json:"session_id"`
	DrawDate             string          `json:"draw_date"` // YYYY-MM-DD
	WinningNumbers       []int           `json:"winning_numbers"`
	WinningComplementary int             `json:"winning_complementary"`
	Tickets              []TicketResult  `json:"tickets"`
	WinningTickets       int             `json:"winning_tickets"`
	TotalGains           decimal.Decimal `json:"total_gains"`
	NetResult            decimal.Decimal `json:"net_result"` // gains - cost
}

// GameSession is a saved set of tickets for one draw.
// Schema: {id, name, createdAt, gameDate, selectedNumbers, grids, totalCost, status, results?}
type GameSession struct {
	ID              string          `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	GameDate        string          `json:"game_date" db:"game_date"` // YYYY-MM-DD
	SelectedNumbers []int           `json:"selected_numbers" db:"selected_numbers"`
	Tickets         []Ticket        `json:"grids" db:"grids"`
	Strategy        string          `json:"strategy" db:"strategy"`
	TotalCost       decimal.Decimal `json:"total_cost" db:"total_cost"`
	Status          string          `json:"status" db:"status"`
	Results         *GameResult     `json:"results,omitempty" db:"results"`
	CheckedAt       *time.Time      `json:"checked_at,omitempty" db:"checked_at"`
}

// Stats aggregates spending and winnings over all sessions.
type Stats struct {
	TotalSessions   int             `json:"total_sessions"`
	PendingSessions int             `json:"pending_sessions"`
	CheckedSessions int             `json:"checked_sessions"`
	WonSessions     int             `json:"won_sessions"`
	TotalCost       decimal.Decimal `json:"total_cost"`  // over checked sessions
	TotalGains      decimal.Decimal `json:"total_gains"` // over checked sessions
	NetResult       decimal.Decimal `json:"net_result"`
	WinRate         decimal.Decimal `json:"win_rate"` // percent of checked sessions won
}

// IsChecked reports whether the session has been reconciled with a draw.
func (s *GameSession) IsChecked() bool {
	return s.Status == StatusChecked || s.Status == StatusWon || s.Status == StatusLost
}
