package cover

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
	"github.com/Kdotropez/loto-news-sub001/internal/pricing"
)

// grid is a sorted 5-number candidate ticket.
type grid [ticketSize]int

func (g grid) triples() [triplesPerTicket]Triple {
	var out [triplesPerTicket]Triple
	n := 0
	for i := 0; i < ticketSize; i++ {
		for j := i + 1; j < ticketSize; j++ {
			for k := j + 1; k < ticketSize; k++ {
				out[n] = Triple{g[i], g[j], g[k]}
				n++
			}
		}
	}
	return out
}

// Generate realises a strategy as concrete tickets.
//
// A pure-multiple strategy yields one multiple ticket holding the first
// min(10, n) pool numbers. A pure-simple strategy yields every 5-subset of
// the pool; it is enumerated directly rather than built by the greedy loop,
// since C(n,5) grids are the strategy's definition. The bound-based strategies run a greedy set cover and, if the
// greedy pass stops adding coverage before reaching the strategy's ticket
// count, pad with uniformly random grids drawn from rng. The result then
// has exactly TicketCount tickets but may not cover every triple; use
// Coverage to check.
//
// Complementary numbers are left unset. A nil rng falls back to a
// time-seeded source.
func (o *Optimizer) Generate(ctx context.Context, pool []int, s model.Strategy, rng *rand.Rand) ([]model.Ticket, error) {
	if err := o.ValidatePool(pool); err != nil {
		return nil, err
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	switch s.Kind {
	case KindPureMultiple:
		return multipleTicket(pool)
	case KindPureSimple:
		return allGrids(pool, s.SecondDraw), nil
	case KindLowerBound, KindSchonheim:
		return o.greedy(ctx, pool, s.TicketCount, s.SecondDraw, rng)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s.Kind)
	}
}

func multipleTicket(pool []int) ([]model.Ticket, error) {
	k := min(MaxMultipleSize, len(pool))
	price, err := pricing.MultiplePrice(k)
	if err != nil {
		return nil, fmt.Errorf("%w: %s for %d numbers", ErrUnknownStrategy, KindPureMultiple, k)
	}
	numbers := slices.Clone(pool[:k])
	slices.Sort(numbers)
	ticketType := model.TicketMultiple
	if k == ticketSize {
		ticketType = model.TicketSimple
	}
	return []model.Ticket{{
		Numbers: numbers,
		Cost:    price,
		Type:    ticketType,
	}}, nil
}

func allGrids(pool []int, secondDraw bool) []model.Ticket {
	sorted := slices.Clone(pool)
	slices.Sort(sorted)
	grids := enumerateGrids(sorted)
	tickets := make([]model.Ticket, 0, len(grids))
	for _, g := range grids {
		tickets = append(tickets, simpleTicket(g, secondDraw))
	}
	return tickets
}

// greedy runs the sampled greedy set cover up to target tickets.
func (o *Optimizer) greedy(ctx context.Context, pool []int, target int, secondDraw bool, rng *rand.Rand) ([]model.Ticket, error) {
	sorted := slices.Clone(pool)
	slices.Sort(sorted)

	universe := Binomial(len(sorted), guaranteeSize)
	covered := make(map[Triple]struct{}, universe)
	tickets := make([]model.Ticket, 0, max(target, 0))

	// When every grid fits under the cap, score them all each round in
	// lexicographic order; otherwise sample.
	var exhaustive []grid
	if Binomial(len(sorted), ticketSize) <= o.opts.CandidateCap {
		exhaustive = enumerateGrids(sorted)
	}

	for iter := 0; len(covered) < universe && len(tickets) < target; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if o.opts.MaxIterations > 0 && iter >= o.opts.MaxIterations {
			break
		}

		candidates := exhaustive
		if candidates == nil {
			candidates = sampleGrids(sorted, o.opts.CandidateCap, rng)
		}

		best, bestGain := -1, 0
		for i, c := range candidates {
			if gain := newCoverage(c, covered); gain > bestGain {
				best, bestGain = i, gain
			}
		}
		if best < 0 {
			break
		}

		pick := candidates[best]
		for _, t := range pick.triples() {
			covered[t] = struct{}{}
		}
		tickets = append(tickets, simpleTicket(pick, secondDraw))
	}

	for len(tickets) < target {
		tickets = append(tickets, simpleTicket(randomGrid(sorted, rng), secondDraw))
	}
	return tickets, nil
}

// newCoverage counts the triples of g not yet covered.
func newCoverage(g grid, covered map[Triple]struct{}) int {
	n := 0
	for _, t := range g.triples() {
		if _, ok := covered[t]; !ok {
			n++
		}
	}
	return n
}

// enumerateGrids lists every 5-subset of sorted in lexicographic order.
func enumerateGrids(sorted []int) []grid {
	n := len(sorted)
	out := make([]grid, 0, Binomial(n, ticketSize))
	var idx [ticketSize]int
	for i := range idx {
		idx[i] = i
	}
	if n < ticketSize {
		return out
	}
	for {
		var g grid
		for i, j := range idx {
			g[i] = sorted[j]
		}
		out = append(out, g)

		// Advance to the next combination.
		i := ticketSize - 1
		for i >= 0 && idx[i] == n-ticketSize+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < ticketSize; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func sampleGrids(sorted []int, count int, rng *rand.Rand) []grid {
	out := make([]grid, count)
	for i := range out {
		out[i] = randomGrid(sorted, rng)
	}
	return out
}

// randomGrid draws a uniformly random 5-subset with a partial Fisher-Yates
// shuffle.
func randomGrid(sorted []int, rng *rand.Rand) grid {
	buf := slices.Clone(sorted)
	var g grid
	for i := 0; i < ticketSize; i++ {
		j := i + rng.IntN(len(buf)-i)
		buf[i], buf[j] = buf[j], buf[i]
		g[i] = buf[i]
	}
	slices.Sort(g[:])
	return g
}

func simpleTicket(g grid, secondDraw bool) model.Ticket {
	return model.Ticket{
		Numbers:    slices.Clone(g[:]),
		Cost:       pricing.SimpleCost(1, secondDraw),
		Type:       model.TicketSimple,
		SecondDraw: secondDraw,
	}
}
