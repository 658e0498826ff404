// Package draw handles official Loto draws: parsing and validation of the
// winning combination, and the fixed rank and payout tables used to settle
// sessions.
package draw

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MainCount is the number of main balls drawn.
	MainCount = 5

	// MaxMain is the highest main ball.
	MaxMain = 49

	// MaxComplementary is the highest chance number.
	MaxComplementary = 10

	// DateLayout is the draw date format (YYYY-MM-DD).
	DateLayout = "2006-01-02"
)

var (
	ErrInvalidDraw = errors.New("draw: invalid draw")
	ErrInvalidDate = errors.New("draw: invalid date")
)

// drawRegex matches the textual form {n}-{n}-{n}-{n}-{n}+{c}.
// Example: 1-2-3-4-9+3
var drawRegex = regexp.MustCompile(`^(\d{1,2}(?:-\d{1,2}){4})\+(\d{1,2})$`)

// Draw is an official winning combination.
type Draw struct {
	Numbers       []int  `json:"numbers"`
	Complementary int    `json:"complementary"`
	Date          string `json:"date"` // YYYY-MM-DD
}

// Validate checks for exactly 5 distinct main numbers in [1,49] and a
// chance number in [1,10]. The date is optional.
func (d Draw) Validate() error {
	if len(d.Numbers) != MainCount {
		return fmt.Errorf("%w: expected %d numbers, got %d", ErrInvalidDraw, MainCount, len(d.Numbers))
	}
	seen := make(map[int]bool, MainCount)
	for _, n := range d.Numbers {
		if n < 1 || n > MaxMain {
			return fmt.Errorf("%w: number %d out of range [1,%d]", ErrInvalidDraw, n, MaxMain)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate number %d", ErrInvalidDraw, n)
		}
		seen[n] = true
	}
	if d.Complementary < 1 || d.Complementary > MaxComplementary {
		return fmt.Errorf("%w: complementary %d out of range [1,%d]", ErrInvalidDraw, d.Complementary, MaxComplementary)
	}
	if d.Date != "" {
		if _, err := ParseDate(d.Date); err != nil {
			return err
		}
	}
	return nil
}

// Parse reads a draw in the form "1-2-3-4-9+3" and validates it.
func Parse(s string, date string) (*Draw, error) {
	matches := drawRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return nil, fmt.Errorf("%w: %q (expected n-n-n-n-n+c)", ErrInvalidDraw, s)
	}

	var nums []int
	for _, part := range strings.Split(matches[1], "-") {
		n, _ := strconv.Atoi(part)
		nums = append(nums, n)
	}
	comp, _ := strconv.Atoi(matches[2])

	d := &Draw{Numbers: nums, Complementary: comp, Date: date}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	slices.Sort(d.Numbers)
	return d, nil
}

// ParseDate parses a YYYY-MM-DD draw date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s (expected YYYY-MM-DD)", ErrInvalidDate, s)
	}
	return t, nil
}

// Match counts the ticket numbers present in the draw and whether the
// ticket's chance number matches. A nil complementary never matches.
func (d Draw) Match(numbers []int, complementary *int) (int, bool) {
	matched := 0
	for _, n := range numbers {
		if slices.Contains(d.Numbers, n) {
			matched++
		}
	}
	return matched, complementary != nil && *complementary == d.Complementary
}

// Rank maps a match to its prize tier. 0 means no win.
func Rank(matchedMain int, matchedComplementary bool) int {
	switch {
	case matchedMain == 5 && matchedComplementary:
		return 1
	case matchedMain == 5:
		return 2
	case matchedMain == 4 && matchedComplementary:
		return 3
	case matchedMain == 4:
		return 4
	case matchedMain == 3 && matchedComplementary:
		return 5
	case matchedMain == 3:
		return 6
	case matchedMain == 2 && matchedComplementary:
		return 7
	default:
		return 0
	}
}

// payouts are flat approximate gains per rank, not the variable official
// FDJ amounts.
var payouts = map[int]decimal.Decimal{
	1: decimal.NewFromInt(2_000_000),
	2: decimal.NewFromInt(100_000),
	3: decimal.NewFromInt(1_000),
	4: decimal.NewFromInt(500),
	5: decimal.NewFromInt(50),
	6: decimal.NewFromInt(20),
	7: decimal.NewFromInt(5),
}

// Payout returns the gain for a rank. Unknown ranks pay nothing.
func Payout(rank int) decimal.Decimal {
	if p, ok := payouts[rank]; ok {
		return p
	}
	return decimal.Zero
}
