package cover

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

// d is a test helper for creating decimals from strings.
func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seq(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// --- Bounds ---

func TestBinomial_KnownValues(t *testing.T) {
	tests := []struct{ n, k, want int }{
		{10, 5, 252},
		{20, 5, 15504},
		{10, 3, 120},
		{5, 3, 10},
		{2, 3, 0},
		{7, 0, 1},
	}
	for _, tt := range tests {
		if got := Binomial(tt.n, tt.k); got != tt.want {
			t.Errorf("C(%d,%d): expected %d, got %d", tt.n, tt.k, tt.want, got)
		}
	}
}

func TestLowerBound(t *testing.T) {
	tests := map[int]int{5: 1, 6: 2, 7: 4, 10: 12, 15: 46, 20: 114}
	for n, want := range tests {
		if got := LowerBound(n); got != want {
			t.Errorf("n=%d: expected %d, got %d", n, want, got)
		}
	}
}

func TestSchonheim(t *testing.T) {
	tests := map[int]int{5: 1, 6: 4, 7: 5, 10: 14, 20: 114}
	for n, want := range tests {
		if got := Schonheim(n); got != want {
			t.Errorf("n=%d: expected %d, got %d", n, want, got)
		}
	}
}

func TestBounds_CoverUniverseFloor(t *testing.T) {
	for n := 5; n <= 20; n++ {
		u := Binomial(n, 3)
		if LowerBound(n)*10 < u {
			t.Errorf("n=%d: lower bound %d cannot cover %d triples", n, LowerBound(n), u)
		}
		if Schonheim(n)*10 < u {
			t.Errorf("n=%d: schonheim %d cannot cover %d triples", n, Schonheim(n), u)
		}
	}
}

func TestBounds_DegeneratePools(t *testing.T) {
	for n := 0; n < 3; n++ {
		if LowerBound(n) != 0 || Schonheim(n) != 0 {
			t.Errorf("n=%d: empty universe should need 0 tickets", n)
		}
		if len(Triples(seq(1, n))) != 0 {
			t.Errorf("n=%d: expected no triples", n)
		}
	}
}

// --- Evaluate ---

func TestNewOptimizer_Defaults(t *testing.T) {
	got := NewOptimizer(Options{MaxIterations: -3}).Options()
	want := Options{CandidateCap: DefaultCandidateCap, MaxPoolSize: DefaultMaxPoolSize}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	got = NewOptimizer(Options{CandidateCap: 50, MaxPoolSize: 12, MaxIterations: 7}).Options()
	want = Options{CandidateCap: 50, MaxPoolSize: 12, MaxIterations: 7}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestEvaluate_TenNumbers(t *testing.T) {
	o := NewOptimizer(Options{})
	ev, err := o.Evaluate(seq(1, 10), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.UniverseSize != 120 {
		t.Errorf("expected universe 120, got %d", ev.UniverseSize)
	}
	if len(ev.Strategies) != 4 {
		t.Fatalf("expected 4 strategies, got %d", len(ev.Strategies))
	}

	lb, _ := ev.Strategy(KindLowerBound)
	if lb.TicketCount != 12 || !lb.TotalCost.Equal(d("26.40")) {
		t.Errorf("lower bound: expected 12 tickets / 26.40, got %d / %s", lb.TicketCount, lb.TotalCost)
	}
	ps, _ := ev.Strategy(KindPureSimple)
	if ps.TicketCount != 252 {
		t.Errorf("pure simple: expected 252 tickets, got %d", ps.TicketCount)
	}
	pm, err := ev.Strategy(KindPureMultiple)
	if err != nil {
		t.Fatalf("pure multiple should be offered for n=10: %v", err)
	}
	if pm.TicketCount != 1 || !pm.TotalCost.Equal(d("554.40")) {
		t.Errorf("pure multiple: expected 1 / 554.40, got %d / %s", pm.TicketCount, pm.TotalCost)
	}

	// Simple tickets are cheaper than the bundle here.
	if ev.Optimal.Kind != KindLowerBound {
		t.Errorf("expected lower bound to be optimal, got %s", ev.Optimal.Kind)
	}
	if !ev.Optimal.TotalCost.Equal(d("26.40")) {
		t.Errorf("expected optimal cost 26.40, got %s", ev.Optimal.TotalCost)
	}
	if !ev.MaxSavings.Equal(d("528.00")) {
		t.Errorf("expected max savings 528.00, got %s", ev.MaxSavings)
	}
}

func TestEvaluate_OptimalIsMinimum(t *testing.T) {
	o := NewOptimizer(Options{})
	for n := 5; n <= 20; n++ {
		for _, sd := range []bool{false, true} {
			ev, err := o.Evaluate(seq(1, n), sd)
			if err != nil {
				t.Fatalf("n=%d: unexpected error: %v", n, err)
			}
			for _, s := range ev.Strategies {
				if s.TotalCost.LessThan(ev.Optimal.TotalCost) {
					t.Errorf("n=%d: %s costs %s, below optimal %s", n, s.Kind, s.TotalCost, ev.Optimal.TotalCost)
				}
			}
			ps, _ := ev.Strategy(KindPureSimple)
			if ps.TicketCount != Binomial(n, 5) {
				t.Errorf("n=%d: pure simple count %d != C(n,5)", n, ps.TicketCount)
			}
		}
	}
}

func TestEvaluate_MultiplePrices(t *testing.T) {
	o := NewOptimizer(Options{})
	tests := map[int]string{7: "46.20", 8: "123.20", 9: "277.20", 10: "554.40"}
	for n, want := range tests {
		ev, _ := o.Evaluate(seq(1, n), true)
		pm, err := ev.Strategy(KindPureMultiple)
		if err != nil {
			t.Fatalf("n=%d: expected pure multiple: %v", n, err)
		}
		if !pm.TotalCost.Equal(d(want)) {
			t.Errorf("n=%d: expected %s (no surcharge), got %s", n, want, pm.TotalCost)
		}
	}
}

func TestEvaluate_NoMultipleWithoutBundle(t *testing.T) {
	o := NewOptimizer(Options{})
	for _, n := range []int{6, 11, 15} {
		ev, _ := o.Evaluate(seq(1, n), false)
		if _, err := ev.Strategy(KindPureMultiple); !errors.Is(err, ErrUnknownStrategy) {
			t.Errorf("n=%d: pure multiple should not be offered", n)
		}
	}
}

func TestEvaluate_SecondDrawSurcharge(t *testing.T) {
	o := NewOptimizer(Options{})
	ev, _ := o.Evaluate(seq(1, 10), true)
	lb, _ := ev.Strategy(KindLowerBound)
	if !lb.TotalCost.Equal(d("36.00")) {
		t.Errorf("expected 12 × 3.00 = 36.00, got %s", lb.TotalCost)
	}
	if !lb.Efficiency.Equal(d("3.00")) {
		t.Errorf("expected efficiency 3.00, got %s", lb.Efficiency)
	}
}

func TestEvaluate_TiesGoToFirst(t *testing.T) {
	o := NewOptimizer(Options{})
	ev, _ := o.Evaluate(seq(1, 5), false)
	// All four strategies cost 2.20 for a 5-number pool.
	if ev.Optimal.Kind != KindLowerBound {
		t.Errorf("expected first strategy on tie, got %s", ev.Optimal.Kind)
	}
	if !ev.MaxSavings.IsZero() {
		t.Errorf("expected zero savings, got %s", ev.MaxSavings)
	}
}

func TestEvaluate_InvalidPools(t *testing.T) {
	o := NewOptimizer(Options{})
	tests := []struct {
		name string
		pool []int
		want error
	}{
		{"too small", seq(1, 4), ErrInvalidPoolSize},
		{"too large", seq(1, 21), ErrInvalidPoolSize},
		{"zero", []int{0, 1, 2, 3, 4}, ErrInvalidNumber},
		{"fifty", []int{1, 2, 3, 4, 50}, ErrInvalidNumber},
		{"duplicate", []int{1, 2, 3, 4, 4}, ErrDuplicateNumber},
	}
	for _, tt := range tests {
		if _, err := o.Evaluate(tt.pool, false); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

// --- Generate ---

func assertValidGrids(t *testing.T, pool []int, tickets []model.Ticket) {
	t.Helper()
	for i, tk := range tickets {
		if len(tk.Numbers) != 5 {
			t.Fatalf("ticket %d: expected 5 numbers, got %v", i, tk.Numbers)
		}
		if !slices.IsSorted(tk.Numbers) {
			t.Errorf("ticket %d: numbers not sorted: %v", i, tk.Numbers)
		}
		for j, n := range tk.Numbers {
			if !slices.Contains(pool, n) {
				t.Errorf("ticket %d: %d not in pool", i, n)
			}
			if j > 0 && tk.Numbers[j-1] == n {
				t.Errorf("ticket %d: duplicate number %d", i, n)
			}
		}
		if tk.Type != model.TicketSimple {
			t.Errorf("ticket %d: expected simple type, got %s", i, tk.Type)
		}
		if tk.Complementary != nil {
			t.Errorf("ticket %d: complementary should be unset", i)
		}
	}
}

func TestGenerate_LowerBoundExactCount(t *testing.T) {
	o := NewOptimizer(Options{})
	for _, n := range []int{5, 7, 10, 12, 15, 20} {
		pool := seq(1, n)
		ev, _ := o.Evaluate(pool, false)
		for _, kind := range []string{KindLowerBound, KindSchonheim} {
			s, _ := ev.Strategy(kind)
			tickets, err := o.Generate(context.Background(), pool, s, seeded(42))
			if err != nil {
				t.Fatalf("n=%d %s: unexpected error: %v", n, kind, err)
			}
			if len(tickets) != s.TicketCount {
				t.Errorf("n=%d %s: expected %d tickets, got %d", n, kind, s.TicketCount, len(tickets))
			}
			assertValidGrids(t, pool, tickets)
		}
	}
}

func TestGenerate_FirstGreedyPick(t *testing.T) {
	o := NewOptimizer(Options{})
	pool := []int{12, 3, 45, 7, 21, 30, 9, 18, 27, 36}
	ev, _ := o.Evaluate(pool, false)
	s, _ := ev.Strategy(KindLowerBound)
	tickets, _ := o.Generate(context.Background(), pool, s, seeded(1))
	// Every grid adds 10 triples at first; the lexicographically first wins.
	want := []int{3, 7, 9, 12, 18}
	if !slices.Equal(tickets[0].Numbers, want) {
		t.Errorf("expected first ticket %v, got %v", want, tickets[0].Numbers)
	}
}

func TestGenerate_CoverageMonotonic(t *testing.T) {
	o := NewOptimizer(Options{})
	pool := seq(1, 9)
	ev, _ := o.Evaluate(pool, false)
	s, _ := ev.Strategy(KindPureSimple)
	s.Kind = KindSchonheim
	s.TicketCount = 40
	tickets, err := o.Generate(context.Background(), pool, s, seeded(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prev := 0
	complete := false
	for i := 1; i <= len(tickets); i++ {
		rep := Coverage(pool, tickets[:i])
		if rep.Covered < prev {
			t.Fatalf("coverage decreased at ticket %d: %d < %d", i, rep.Covered, prev)
		}
		if !complete && rep.Covered == prev {
			t.Fatalf("greedy ticket %d added no coverage before completion", i)
		}
		prev = rep.Covered
		complete = rep.Complete
	}
	if !complete {
		t.Error("40 tickets should fully cover a 9-number pool")
	}
}

func TestGenerate_DeterministicWithSeed(t *testing.T) {
	o := NewOptimizer(Options{})
	pool := seq(1, 15) // C(15,5) = 3003 > cap, so candidates are sampled
	ev, _ := o.Evaluate(pool, false)
	s, _ := ev.Strategy(KindLowerBound)

	a, _ := o.Generate(context.Background(), pool, s, seeded(99))
	b, _ := o.Generate(context.Background(), pool, s, seeded(99))
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !slices.Equal(a[i].Numbers, b[i].Numbers) {
			t.Fatalf("ticket %d differs: %v vs %v", i, a[i].Numbers, b[i].Numbers)
		}
	}
}

func TestGenerate_PadsWhenIterationsExhausted(t *testing.T) {
	o := NewOptimizer(Options{MaxIterations: 2})
	pool := seq(1, 10)
	ev, _ := o.Evaluate(pool, false)
	s, _ := ev.Strategy(KindLowerBound)
	tickets, err := o.Generate(context.Background(), pool, s, seeded(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 12 {
		t.Errorf("expected padding to 12 tickets, got %d", len(tickets))
	}
	assertValidGrids(t, pool, tickets)
}

func TestGenerate_PureSimpleEnumerates(t *testing.T) {
	o := NewOptimizer(Options{})
	pool := seq(1, 7)
	ev, _ := o.Evaluate(pool, true)
	s, _ := ev.Strategy(KindPureSimple)
	tickets, err := o.Generate(context.Background(), pool, s, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 21 {
		t.Fatalf("expected 21 tickets, got %d", len(tickets))
	}
	assertValidGrids(t, pool, tickets)
	if !tickets[0].Cost.Equal(d("3.00")) || !tickets[0].SecondDraw {
		t.Errorf("expected second draw pricing, got %s", tickets[0].Cost)
	}
	if rep := Coverage(pool, tickets); !rep.Complete {
		t.Errorf("all grids should cover every triple, missing %d", rep.Missing)
	}
}

func TestGenerate_PureMultiple(t *testing.T) {
	o := NewOptimizer(Options{})
	pool := []int{40, 8, 15, 3, 22, 31, 7, 19}
	ev, _ := o.Evaluate(pool, true)
	s, _ := ev.Strategy(KindPureMultiple)
	tickets, err := o.Generate(context.Background(), pool, s, seeded(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("expected one ticket, got %d", len(tickets))
	}
	tk := tickets[0]
	if tk.Type != model.TicketMultiple || len(tk.Numbers) != 8 {
		t.Errorf("expected multiple of 8, got %s of %d", tk.Type, len(tk.Numbers))
	}
	if !tk.Cost.Equal(d("123.20")) {
		t.Errorf("expected 123.20, got %s", tk.Cost)
	}
	if rep := Coverage(pool, tickets); !rep.Complete {
		t.Error("a multiple over the whole pool covers every triple")
	}
}

func TestGenerate_PureMultipleTakesFirstTen(t *testing.T) {
	o := NewOptimizer(Options{})
	pool := seq(1, 12)
	tickets, err := o.Generate(context.Background(), pool, model.Strategy{Kind: KindPureMultiple, TicketCount: 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(tickets[0].Numbers, seq(1, 10)) {
		t.Errorf("expected first ten pool numbers, got %v", tickets[0].Numbers)
	}
}

func TestGenerate_UnknownStrategy(t *testing.T) {
	o := NewOptimizer(Options{})
	_, err := o.Generate(context.Background(), seq(1, 8), model.Strategy{Kind: "lucky"}, nil)
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestGenerate_InvalidPool(t *testing.T) {
	o := NewOptimizer(Options{})
	_, err := o.Generate(context.Background(), seq(1, 4), model.Strategy{Kind: KindLowerBound, TicketCount: 1}, nil)
	if !errors.Is(err, ErrInvalidPoolSize) {
		t.Errorf("expected ErrInvalidPoolSize, got %v", err)
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	o := NewOptimizer(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pool := seq(1, 12)
	ev, _ := o.Evaluate(pool, false)
	s, _ := ev.Strategy(KindLowerBound)
	if _, err := o.Generate(ctx, pool, s, seeded(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// --- Coverage ---

func TestCoverage_Partial(t *testing.T) {
	pool := seq(1, 6)
	tickets := []model.Ticket{{Numbers: []int{1, 2, 3, 4, 5}, Type: model.TicketSimple}}
	rep := Coverage(pool, tickets)
	if rep.Universe != 20 || rep.Covered != 10 || rep.Missing != 10 || rep.Complete {
		t.Errorf("unexpected report: %+v", rep)
	}
}

func TestCoverage_IgnoresNumbersOutsidePool(t *testing.T) {
	pool := seq(1, 5)
	tickets := []model.Ticket{{Numbers: []int{1, 2, 40, 41, 42}, Type: model.TicketSimple}}
	rep := Coverage(pool, tickets)
	if rep.Covered != 0 {
		t.Errorf("expected no coverage, got %d", rep.Covered)
	}
}
