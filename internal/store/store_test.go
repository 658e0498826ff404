package store

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intp(i int) *int { return &i }

func newSession(id, gameDate string, createdAt time.Time, cost string) *model.GameSession {
	return &model.GameSession{
		ID:              id,
		Name:            "session " + id,
		CreatedAt:       createdAt,
		GameDate:        gameDate,
		SelectedNumbers: []int{1, 2, 3, 4, 5, 6, 7},
		Tickets: []model.Ticket{
			{Numbers: []int{1, 2, 3, 4, 5}, Complementary: intp(3), Cost: d("2.20"), Type: model.TicketSimple},
			{Numbers: []int{1, 2, 3, 6, 7}, Cost: d("2.20"), Type: model.TicketSimple},
		},
		Strategy:  "lower-bound",
		TotalCost: d(cost),
		Status:    model.StatusPending,
	}
}

// backends returns every Store implementation that runs without external
// services.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"kv":     NewKVStore(NewMemoryKV(), ""),
		"sqlite": sq,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.CreateSession(ctx, newSession("s1", "2025-08-16", created, "4.40")); err != nil {
				t.Fatalf("create: %v", err)
			}
			got, err := st.GetSession(ctx, "s1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Name != "session s1" || got.GameDate != "2025-08-16" {
				t.Errorf("unexpected session: %+v", got)
			}
			if !got.CreatedAt.Equal(created) {
				t.Errorf("expected created_at %v, got %v", created, got.CreatedAt)
			}
			if !got.TotalCost.Equal(d("4.40")) {
				t.Errorf("expected total 4.40, got %s", got.TotalCost)
			}
			if len(got.Tickets) != 2 || got.Tickets[0].Complementary == nil || *got.Tickets[0].Complementary != 3 {
				t.Errorf("tickets not round-tripped: %+v", got.Tickets)
			}
			if got.Tickets[1].Complementary != nil {
				t.Error("missing complementary should stay nil")
			}
			if !slices.Equal(got.SelectedNumbers, []int{1, 2, 3, 4, 5, 6, 7}) {
				t.Errorf("unexpected pool: %v", got.SelectedNumbers)
			}
			if got.Results != nil || got.CheckedAt != nil {
				t.Error("new session should have no results")
			}
		})
	}
}

func TestStore_DuplicateAndMissing(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st.CreateSession(ctx, newSession("s1", "2025-08-16", now, "2.20"))
			if err := st.CreateSession(ctx, newSession("s1", "2025-08-16", now, "2.20")); !errors.Is(err, ErrDuplicate) {
				t.Errorf("expected ErrDuplicate, got %v", err)
			}
			if _, err := st.GetSession(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if err := st.DeleteSession(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound on delete, got %v", err)
			}
			err := st.UpdateSessionResult(ctx, "nope", model.StatusLost, &model.GameResult{}, now)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound on update, got %v", err)
			}
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st.CreateSession(ctx, newSession("a", "2025-08-02", base, "2.20"))
			st.CreateSession(ctx, newSession("c", "2025-08-09", base.Add(2*time.Hour), "2.20"))
			st.CreateSession(ctx, newSession("b", "2025-08-06", base.Add(time.Hour+500*time.Millisecond), "2.20"))

			list, err := st.ListSessions(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var ids []string
			for _, s := range list {
				ids = append(ids, s.ID)
			}
			if !slices.Equal(ids, []string{"c", "b", "a"}) {
				t.Errorf("expected [c b a], got %v", ids)
			}
		})
	}
}

func TestStore_UpdateResultAndDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 16, 21, 0, 0, 0, time.UTC)

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st.CreateSession(ctx, newSession("s1", "2025-08-16", now, "4.40"))

			result := &model.GameResult{
				SessionID:            "s1",
				DrawDate:             "2025-08-16",
				WinningNumbers:       []int{1, 2, 3, 4, 9},
				WinningComplementary: 3,
				Tickets: []model.TicketResult{
					{Index: 0, Numbers: []int{1, 2, 3, 4, 5}, Complementary: intp(3), MatchedMain: 4, MatchedComplementary: true, Rank: 3, Gain: d("1000")},
				},
				WinningTickets: 1,
				TotalGains:     d("1000"),
				NetResult:      d("995.60"),
			}
			if err := st.UpdateSessionResult(ctx, "s1", model.StatusWon, result, now); err != nil {
				t.Fatalf("update: %v", err)
			}

			got, _ := st.GetSession(ctx, "s1")
			if got.Status != model.StatusWon {
				t.Errorf("expected won, got %s", got.Status)
			}
			if got.Results == nil || !got.Results.TotalGains.Equal(d("1000")) || got.Results.Tickets[0].Rank != 3 {
				t.Errorf("results not stored: %+v", got.Results)
			}
			if got.CheckedAt == nil || !got.CheckedAt.Equal(now) {
				t.Errorf("expected checked_at %v, got %v", now, got.CheckedAt)
			}

			if err := st.DeleteSession(ctx, "s1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := st.GetSession(ctx, "s1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStore_SpendByGameDate(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st.CreateSession(ctx, newSession("a", "2025-08-16", now, "26.40"))
			st.CreateSession(ctx, newSession("b", "2025-08-16", now, "46.20"))
			st.CreateSession(ctx, newSession("c", "2025-08-18", now, "2.20"))

			spend, err := st.GetSpendByGameDate(ctx)
			if err != nil {
				t.Fatalf("spend: %v", err)
			}
			if !spend["2025-08-16"].Equal(d("72.60")) {
				t.Errorf("expected 72.60, got %s", spend["2025-08-16"])
			}
			if !spend["2025-08-18"].Equal(d("2.20")) {
				t.Errorf("expected 2.20, got %s", spend["2025-08-18"])
			}
		})
	}
}

func TestMemoryStore_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	gs := newSession("s1", "2025-08-16", time.Now(), "4.40")
	st.CreateSession(ctx, gs)

	gs.Tickets[0].Numbers[0] = 42
	got, _ := st.GetSession(ctx, "s1")
	if got.Tickets[0].Numbers[0] != 1 {
		t.Error("stored session should not alias caller slices")
	}

	got.SelectedNumbers[0] = 42
	again, _ := st.GetSession(ctx, "s1")
	if again.SelectedNumbers[0] != 1 {
		t.Error("returned session should not alias stored slices")
	}
}

// failingKV fails every write.
type failingKV struct{ *MemoryKV }

func (f failingKV) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestKVStore_WriteFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	good := NewKVStore(kv, "k")
	good.CreateSession(ctx, newSession("s1", "2025-08-16", time.Now(), "2.20"))

	bad := NewKVStore(failingKV{kv}, "k")
	if err := bad.CreateSession(ctx, newSession("s2", "2025-08-16", time.Now(), "2.20")); err == nil {
		t.Fatal("expected write error")
	}
	if err := bad.DeleteSession(ctx, "s1"); err == nil {
		t.Fatal("expected write error")
	}

	list, _ := good.ListSessions(ctx)
	if len(list) != 1 || list[0].ID != "s1" {
		t.Errorf("expected only s1 to survive, got %+v", list)
	}
}

func TestSQLiteStore_CorruptCostIsAnError(t *testing.T) {
	sq, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sq.Close()
	ctx := context.Background()

	now := time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC)
	if err := sq.CreateSession(ctx, newSession("s1", "2025-08-16", now, "2.20")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := sq.db.ExecContext(ctx, `UPDATE game_sessions SET total_cost = 'abc' WHERE id = 's1'`); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	if _, err := sq.GetSession(ctx, "s1"); err == nil {
		t.Error("expected decode error from GetSession")
	}
	if _, err := sq.GetSpendByGameDate(ctx); err == nil {
		t.Error("expected decode error from GetSpendByGameDate")
	}
}
