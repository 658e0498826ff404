// Package budget enforces spending limits on saved sessions.
//
// A player saving many sessions for the same draw, or for several draws in
// the same week, accumulates spend that no single session shows. The limiter
// groups existing spend by draw date and by ISO week and rejects a save that
// would push any group past its cap.
package budget

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrSessionLimitExceeded is returned when one session costs more than
	// the per-session maximum.
	ErrSessionLimitExceeded = errors.New("budget: per-session spending limit exceeded")

	// ErrDrawLimitExceeded is returned when the total spend on one draw date
	// would exceed the per-draw maximum.
	ErrDrawLimitExceeded = errors.New("budget: per-draw spending limit exceeded")

	// ErrWeekLimitExceeded is returned when the total spend across draw
	// dates of the same ISO week would exceed the weekly maximum.
	ErrWeekLimitExceeded = errors.New("budget: weekly spending limit exceeded")
)

// Limiter enforces spending caps. A zero cap is disabled.
type Limiter struct {
	// MaxPerSession is the maximum cost of a single session.
	MaxPerSession decimal.Decimal

	// MaxPerDraw is the maximum aggregate cost of all sessions targeting
	// the same draw date.
	MaxPerDraw decimal.Decimal

	// MaxPerWeek is the maximum aggregate cost of all sessions whose draw
	// dates fall in the same ISO week.
	MaxPerWeek decimal.Decimal
}

// NewLimiter creates a limiter. Negative caps are treated as disabled.
func NewLimiter(maxPerSession, maxPerDraw, maxPerWeek decimal.Decimal) *Limiter {
	clamp := func(v decimal.Decimal) decimal.Decimal {
		if v.IsNegative() {
			return decimal.Zero
		}
		return v
	}
	return &Limiter{
		MaxPerSession: clamp(maxPerSession),
		MaxPerDraw:    clamp(maxPerDraw),
		MaxPerWeek:    clamp(maxPerWeek),
	}
}

// CheckLimit validates whether a new session respects the caps.
//
// Parameters:
//   - gameDate: draw date of the new session (YYYY-MM-DD)
//   - cost: total cost of the new session
//   - spendByDate: map of draw date → existing spend
//
// Returns nil if the session is within limits, or an error describing the violation.
func (l *Limiter) CheckLimit(gameDate string, cost decimal.Decimal, spendByDate map[string]decimal.Decimal) error {
	// 1. Per-session limit.
	if l.MaxPerSession.IsPositive() && cost.GreaterThan(l.MaxPerSession) {
		return fmt.Errorf("%w: %s > %s", ErrSessionLimitExceeded, cost, l.MaxPerSession)
	}

	// 2. Per-draw limit.
	drawTotal := spendByDate[gameDate].Add(cost)
	if l.MaxPerDraw.IsPositive() && drawTotal.GreaterThan(l.MaxPerDraw) {
		return fmt.Errorf("%w: %s on %s > %s", ErrDrawLimitExceeded, drawTotal, gameDate, l.MaxPerDraw)
	}

	// 3. Weekly limit: sum spend across dates sharing the ISO week.
	if !l.MaxPerWeek.IsPositive() {
		return nil
	}
	target, ok := weekKey(gameDate)
	if !ok {
		return nil
	}
	weekTotal := drawTotal
	for date, spend := range spendByDate {
		if date == gameDate {
			continue // already counted via drawTotal above
		}
		if k, ok := weekKey(date); ok && k == target {
			weekTotal = weekTotal.Add(spend)
		}
	}
	if weekTotal.GreaterThan(l.MaxPerWeek) {
		return fmt.Errorf("%w: %s in week %s > %s", ErrWeekLimitExceeded, weekTotal, target, l.MaxPerWeek)
	}
	return nil
}

// weekKey returns the ISO year-week of a YYYY-MM-DD date.
func weekKey(date string) (string, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", false
	}
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w), true
}
