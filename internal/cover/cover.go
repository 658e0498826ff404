// Package cover implements the mixed set-cover grid optimizer.
//
// Given a pool of n numbers, the optimizer looks for a cheap set of tickets
// such that any 3 winning numbers taken from the pool appear together on at
// least one ticket. Every 5-number grid contains C(5,3) = 10 triples, so the
// coverage target (the universe) is the C(n,3) triples of the pool.
//
// Four estimators are compared:
//   - Lower bound: ceil(C(n,3) / 10) simple tickets
//   - Schönheim bound for a (n,5,3) covering design
//   - Pure simple: every 5-subset of the pool, C(n,5) tickets
//   - Pure multiple: one official multiple ticket (n <= 10)
//
// Generation realises a strategy with a greedy set-cover heuristic over a
// bounded sample of candidate grids. The result is an approximation, not a
// minimum cover (set cover is NP-hard); Coverage reports what was achieved.
//
// All monetary values use shopspring/decimal — never float64 for money.
package cover

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
	"github.com/Kdotropez/loto-news-sub001/internal/pricing"
)

// Strategy kinds, in evaluation order.
const (
	KindLowerBound   = "lower-bound"
	KindSchonheim    = "schonheim"
	KindPureSimple   = "pure-simple"
	KindPureMultiple = "pure-multiple"
)

const (
	// MinPoolSize is the smallest pool that can form a ticket.
	MinPoolSize = 5

	// DefaultMaxPoolSize is the recommended ceiling; combinatorial cost
	// explodes beyond it.
	DefaultMaxPoolSize = 20

	// DefaultCandidateCap bounds the number of candidate grids scored per
	// greedy iteration.
	DefaultCandidateCap = 1000

	// MaxMultipleSize is the largest official multiple ticket.
	MaxMultipleSize = 10

	// MaxNumber is the highest ball in the main draw.
	MaxNumber = 49

	ticketSize       = 5
	guaranteeSize    = 3
	triplesPerTicket = 10 // C(5,3)
)

var (
	// ErrInvalidPoolSize is returned when the pool is too small to form a
	// ticket or larger than the configured ceiling.
	ErrInvalidPoolSize = errors.New("cover: invalid pool size")

	// ErrInvalidNumber is returned for pool numbers outside [1,49].
	ErrInvalidNumber = errors.New("cover: pool number out of range")

	// ErrDuplicateNumber is returned when the pool repeats a number.
	ErrDuplicateNumber = errors.New("cover: duplicate pool number")

	// ErrUnknownStrategy is returned when a strategy kind is not recognised
	// or not available for the pool.
	ErrUnknownStrategy = errors.New("cover: unknown strategy")
)

// Options tunes the optimizer. Zero values select the defaults.
type Options struct {
	// CandidateCap is the maximum number of candidate grids sampled per
	// greedy iteration. When C(n,5) fits under the cap every grid is scored.
	CandidateCap int

	// MaxPoolSize is the largest accepted pool.
	MaxPoolSize int

	// MaxIterations bounds the greedy loop. 0 means bounded only by the
	// strategy's ticket count.
	MaxIterations int
}

// Optimizer evaluates and generates covering strategies. It is stateless;
// each call works on its own copy of the pool.
type Optimizer struct {
	opts Options
}

// NewOptimizer creates an optimizer, filling in defaults for zero options.
func NewOptimizer(opts Options) *Optimizer {
	if opts.CandidateCap <= 0 {
		opts.CandidateCap = DefaultCandidateCap
	}
	if opts.MaxPoolSize <= 0 {
		opts.MaxPoolSize = DefaultMaxPoolSize
	}
	if opts.MaxIterations < 0 {
		opts.MaxIterations = 0
	}
	return &Optimizer{opts: opts}
}

// Options returns the effective options.
func (o *Optimizer) Options() Options {
	return o.opts
}

// ValidatePool checks pool size, range, and uniqueness.
func (o *Optimizer) ValidatePool(pool []int) error {
	if len(pool) < MinPoolSize || len(pool) > o.opts.MaxPoolSize {
		return fmt.Errorf("%w: %d (expected %d-%d numbers)",
			ErrInvalidPoolSize, len(pool), MinPoolSize, o.opts.MaxPoolSize)
	}
	seen := make(map[int]bool, len(pool))
	for _, n := range pool {
		if n < 1 || n > MaxNumber {
			return fmt.Errorf("%w: %d", ErrInvalidNumber, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: %d", ErrDuplicateNumber, n)
		}
		seen[n] = true
	}
	return nil
}

// Evaluation is the comparison of all candidate strategies for a pool.
type Evaluation struct {
	PoolSize     int              `json:"pool_size"`
	UniverseSize int              `json:"universe_size"`
	Strategies   []model.Strategy `json:"strategies"`
	Optimal      model.Strategy   `json:"optimal"`
	MaxSavings   decimal.Decimal  `json:"max_savings"`
}

// Strategy returns the evaluated strategy of the given kind.
func (e *Evaluation) Strategy(kind string) (model.Strategy, error) {
	for _, s := range e.Strategies {
		if s.Kind == kind {
			return s, nil
		}
	}
	return model.Strategy{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, kind)
}

// Evaluate computes every applicable strategy for the pool and selects the
// cheapest. Ties go to the strategy computed first.
func (o *Optimizer) Evaluate(pool []int, includeSecondDraw bool) (*Evaluation, error) {
	if err := o.ValidatePool(pool); err != nil {
		return nil, err
	}
	n := len(pool)
	universe := Binomial(n, guaranteeSize)

	strategies := []model.Strategy{
		simpleStrategy(KindLowerBound, "Lower bound",
			fmt.Sprintf("ceil(C(%d,3) / 10): each grid covers 10 triples", n),
			LowerBound(n), includeSecondDraw),
		simpleStrategy(KindSchonheim, "Schönheim bound",
			fmt.Sprintf("Schönheim lower bound for a (%d,5,3) covering design", n),
			Schonheim(n), includeSecondDraw),
		simpleStrategy(KindPureSimple, "All simple grids",
			fmt.Sprintf("every 5-subset of the pool, C(%d,5) grids", n),
			Binomial(n, ticketSize), includeSecondDraw),
	}

	if k := min(MaxMultipleSize, n); n <= MaxMultipleSize && pricing.HasBundle(k) {
		price, _ := pricing.MultiplePrice(k)
		strategies = append(strategies, model.Strategy{
			Kind:        KindPureMultiple,
			Name:        fmt.Sprintf("Multiple %d", k),
			TicketCount: 1,
			TotalCost:   price,
			Description: fmt.Sprintf("one multiple ticket of %d numbers (%d grids)", k, pricing.SimpleEquivalents(k)),
			Efficiency:  price,
		})
	}

	optimal := strategies[0]
	highest := strategies[0].TotalCost
	for _, s := range strategies[1:] {
		if s.TotalCost.LessThan(optimal.TotalCost) {
			optimal = s
		}
		if s.TotalCost.GreaterThan(highest) {
			highest = s.TotalCost
		}
	}

	return &Evaluation{
		PoolSize:     n,
		UniverseSize: universe,
		Strategies:   strategies,
		Optimal:      optimal,
		MaxSavings:   highest.Sub(optimal.TotalCost),
	}, nil
}

func simpleStrategy(kind, name, desc string, count int, secondDraw bool) model.Strategy {
	total := pricing.SimpleCost(count, secondDraw)
	eff := decimal.Zero
	if count > 0 {
		eff = total.Div(decimal.NewFromInt(int64(count))).Round(2)
	}
	return model.Strategy{
		Kind:        kind,
		Name:        name,
		TicketCount: count,
		TotalCost:   total,
		Description: desc,
		Efficiency:  eff,
		SecondDraw:  secondDraw,
	}
}

// Binomial returns C(n,k), or 0 when k is outside [0,n].
func Binomial(n, k int) int {
	if k < 0 || n < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	r := 1
	for i := 0; i < k; i++ {
		r = r * (n - i) / (i + 1)
	}
	return r
}

// LowerBound returns ceil(C(n,3) / 10), the ticket count if every grid
// covered 10 fresh triples. An empty universe needs no tickets.
func LowerBound(n int) int {
	u := Binomial(n, guaranteeSize)
	return ceilDiv(u, triplesPerTicket)
}

// Schonheim returns the Schönheim bound via the recurrence
//
//	L0 = 1, L(i+1) = ceil((n-i)/(5-i) * L(i)) for i = 0,1,2
//
// evaluated with exact integer arithmetic.
func Schonheim(n int) int {
	if n < guaranteeSize {
		return 0
	}
	l := 1
	for i := 0; i < guaranteeSize; i++ {
		l = ceilDiv((n-i)*l, ticketSize-i)
	}
	return l
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Triple is a 3-number subset in ascending order.
type Triple [3]int

// Triples lists every triple of nums in lexicographic order of the sorted
// input.
func Triples(nums []int) []Triple {
	sorted := slices.Clone(nums)
	slices.Sort(sorted)
	out := make([]Triple, 0, Binomial(len(sorted), guaranteeSize))
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			for k := j + 1; k < len(sorted); k++ {
				out = append(out, Triple{sorted[i], sorted[j], sorted[k]})
			}
		}
	}
	return out
}

// CoverageReport describes how much of the triple universe a ticket set
// actually covers.
type CoverageReport struct {
	Universe int  `json:"universe"`
	Covered  int  `json:"covered"`
	Missing  int  `json:"missing"`
	Complete bool `json:"complete"`
}

// Coverage verifies which triples of the pool appear on at least one ticket.
// A multiple ticket covers every triple of its numbers.
func Coverage(pool []int, tickets []model.Ticket) CoverageReport {
	universe := make(map[Triple]bool)
	for _, t := range Triples(pool) {
		universe[t] = false
	}
	covered := 0
	for _, tk := range tickets {
		for _, t := range Triples(tk.Numbers) {
			if seen, ok := universe[t]; ok && !seen {
				universe[t] = true
				covered++
			}
		}
	}
	return CoverageReport{
		Universe: len(universe),
		Covered:  covered,
		Missing:  len(universe) - covered,
		Complete: covered == len(universe),
	}
}
